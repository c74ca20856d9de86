// Package domain contains persistence models for the driver deduction ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Type distinguishes money withheld from money paid back.
type Type string

const (
	TypeDeduction     Type = "deduction"
	TypeReimbursement Type = "reimbursement"
)

// Frequency controls how often a deduction is due for application.
type Frequency string

const (
	FrequencyOnce        Frequency = "once"
	FrequencyWeekly      Frequency = "weekly"
	FrequencyFortnightly Frequency = "fortnightly"
	FrequencyMonthly     Frequency = "monthly"
)

// Status marks whether a deduction still has a balance to move.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// RctiDeduction is a driver's standing deduction or reimbursement agreement
// with a running balance.
type RctiDeduction struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	DriverID    snowflake.ID `gorm:"not null;index" json:"driverId"`
	Type        Type         `gorm:"type:text;not null;default:'deduction'" json:"type"`
	Description string       `gorm:"type:text;not null" json:"description"`

	TotalAmount     decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"totalAmount"`
	AmountPaid      decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"amountPaid"`
	AmountRemaining decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"amountRemaining"`
	AmountPerCycle  decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"amountPerCycle"`

	Frequency   Frequency  `gorm:"type:text;not null;default:'once'" json:"frequency"`
	StartDate   time.Time  `gorm:"type:date;not null" json:"startDate"`
	Status      Status     `gorm:"type:text;not null;default:'active'" json:"status"`
	CompletedAt *time.Time `gorm:"" json:"completedAt"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`

	Applications []RctiDeductionApplication `gorm:"foreignKey:DeductionID" json:"applications,omitempty"`
}

// TableName sets the database table name.
func (RctiDeduction) TableName() string { return "rcti_deductions" }

// RctiDeductionApplication records the ledger movement for one RCTI week.
// A zero-amount row is an explicit skip: it proves the deduction was
// considered without consuming it, which is what lets a once-frequency
// deduction be skipped repeatedly yet applied only once.
type RctiDeductionApplication struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	DeductionID snowflake.ID    `gorm:"not null;index;uniqueIndex:ux_deduction_applications_week" json:"deductionId"`
	RctiID      snowflake.ID    `gorm:"not null;index;uniqueIndex:ux_deduction_applications_week" json:"rctiId"`
	Amount      decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"amount"`
	AppliedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"appliedAt"`
}

// TableName sets the database table name.
func (RctiDeductionApplication) TableName() string { return "rcti_deduction_applications" }
