// Package domain contains persistence models for contractor drivers.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// GstStatus marks whether a driver is registered for GST.
type GstStatus string

const (
	GstRegistered    GstStatus = "registered"
	GstNotRegistered GstStatus = "not_registered"
)

// GstMode selects inclusive or exclusive pricing on the driver's invoices.
type GstMode string

const (
	GstModeInclusive GstMode = "inclusive"
	GstModeExclusive GstMode = "exclusive"
)

// Driver is a contractor paid via weekly RCTIs.
type Driver struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Name         string       `gorm:"type:text;not null" json:"name"`
	BusinessName string       `gorm:"type:text;not null;default:''" json:"businessName"`
	Address      string       `gorm:"type:text;not null;default:''" json:"address"`
	Abn          string       `gorm:"type:text;not null;default:''" json:"abn"`
	GstStatus    GstStatus    `gorm:"type:text;not null;default:'not_registered'" json:"gstStatus"`
	GstMode      GstMode      `gorm:"type:text;not null;default:'exclusive'" json:"gstMode"`

	BankName          string `gorm:"type:text;not null;default:''" json:"bankName"`
	BankBsb           string `gorm:"type:text;not null;default:''" json:"bankBsb"`
	BankAccountNumber string `gorm:"type:text;not null;default:''" json:"bankAccountNumber"`

	RateTray      decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"rateTray"`
	RateCrane     decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"rateCrane"`
	RateSemi      decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"rateSemi"`
	RateSemiCrane decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"rateSemiCrane"`

	// Breaks is the daily charged-hours threshold beyond which an unpaid
	// break is deducted. Zero disables break deductions for the driver.
	Breaks decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"breaks"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName sets the database table name.
func (Driver) TableName() string { return "drivers" }

type CreateDriverRequest struct {
	Name              string          `json:"name"`
	BusinessName      string          `json:"businessName"`
	Address           string          `json:"address"`
	Abn               string          `json:"abn"`
	GstStatus         GstStatus       `json:"gstStatus"`
	GstMode           GstMode         `json:"gstMode"`
	BankName          string          `json:"bankName"`
	BankBsb           string          `json:"bankBsb"`
	BankAccountNumber string          `json:"bankAccountNumber"`
	RateTray          decimal.Decimal `json:"rateTray"`
	RateCrane         decimal.Decimal `json:"rateCrane"`
	RateSemi          decimal.Decimal `json:"rateSemi"`
	RateSemiCrane     decimal.Decimal `json:"rateSemiCrane"`
	Breaks            decimal.Decimal `json:"breaks"`
}

type Service interface {
	Create(ctx context.Context, req CreateDriverRequest) (Driver, error)
	List(ctx context.Context) ([]Driver, error)
	GetByID(ctx context.Context, id string) (Driver, error)
}

var (
	ErrNotFound       = errors.New("driver not found")
	ErrNameRequired   = errors.New("driver name is required")
	ErrNegativeRate   = errors.New("driver rates must not be negative")
	ErrInvalidGst     = errors.New("invalid GST status")
	ErrInvalidGstMode = errors.New("invalid GST mode")
)
