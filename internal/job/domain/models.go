// Package domain contains persistence models for completed jobs.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Job is a unit of completed work that can be charged on an RCTI line.
type Job struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	DriverID    snowflake.ID    `gorm:"not null;index" json:"driverId"`
	JobDate     time.Time       `gorm:"type:date;not null" json:"jobDate"`
	Customer    string          `gorm:"type:text;not null" json:"customer"`
	TruckType   string          `gorm:"type:text;not null" json:"truckType"`
	Description *string         `gorm:"type:text" json:"description"`
	Hours       decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"hours"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName sets the database table name.
func (Job) TableName() string { return "jobs" }

type CreateJobRequest struct {
	DriverID    string          `json:"driverId"`
	JobDate     string          `json:"jobDate"`
	Customer    string          `json:"customer"`
	TruckType   string          `json:"truckType"`
	Description string          `json:"description"`
	Hours       decimal.Decimal `json:"hours"`
}

type ListJobRequest struct {
	DriverID   *snowflake.ID
	WeekEnding *time.Time
	// Unassigned keeps only jobs not yet billed on any RCTI line.
	Unassigned bool
}

type Service interface {
	Create(ctx context.Context, req CreateJobRequest) (Job, error)
	List(ctx context.Context, req ListJobRequest) ([]Job, error)
	// GetByIDs reads within the caller's transaction when tx is non-nil.
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []snowflake.ID) ([]Job, error)
}

var (
	ErrNotFound      = errors.New("job not found")
	ErrInvalidDriver = errors.New("invalid driver id")
	ErrInvalidDate   = errors.New("invalid job date")
	ErrMissingFields = errors.New("customer and truck type are required")
	ErrNegativeHours = errors.New("hours must not be negative")
)
