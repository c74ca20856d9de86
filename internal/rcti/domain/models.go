// Package domain contains persistence models for the RCTI lifecycle.
package domain

import (
	"fmt"
	"time"

	driverdomain "github.com/bldragon101/worklog-sub001/internal/driver/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Status represents RCTI lifecycle states.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusFinalised Status = "finalised"
	StatusPaid      Status = "paid"
)

// BreakLineCustomer marks the auto-managed unpaid-break line. Lines with
// this customer are deleted and regenerated on every line mutation and are
// never hand-edited.
const BreakLineCustomer = "Break Deduction"

// Rcti is a recipient-created tax invoice: the weekly pay statement issued
// to a contractor driver. Driver fields are snapshotted at creation so the
// document stays immutable when the driver profile changes later.
type Rcti struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceNumber string       `gorm:"type:text;not null" json:"invoiceNumber"`
	DriverID      snowflake.ID `gorm:"not null;index;uniqueIndex:ux_rctis_driver_week" json:"driverId"`
	DriverName    string       `gorm:"type:text;not null;default:''" json:"driverName"`
	BusinessName  string       `gorm:"type:text;not null;default:''" json:"businessName"`
	DriverAddress string       `gorm:"type:text;not null;default:''" json:"driverAddress"`
	DriverAbn     string       `gorm:"type:text;not null;default:''" json:"driverAbn"`
	WeekEnding    time.Time    `gorm:"type:date;not null;uniqueIndex:ux_rctis_driver_week" json:"weekEnding"`

	GstStatus driverdomain.GstStatus `gorm:"type:text;not null;default:'not_registered'" json:"gstStatus"`
	GstMode   driverdomain.GstMode   `gorm:"type:text;not null;default:'exclusive'" json:"gstMode"`

	BankName          string `gorm:"type:text;not null;default:''" json:"bankName"`
	BankBsb           string `gorm:"type:text;not null;default:''" json:"bankBsb"`
	BankAccountNumber string `gorm:"type:text;not null;default:''" json:"bankAccountNumber"`

	Subtotal decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"subtotal"`
	Gst      decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"gst"`
	Total    decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"total"`

	Status                Status     `gorm:"type:text;not null;default:'draft'" json:"status"`
	PaidAt                *time.Time `gorm:"" json:"paidAt"`
	RevertedToDraftAt     *time.Time `gorm:"" json:"revertedToDraftAt"`
	RevertedToDraftReason *string    `gorm:"type:text" json:"revertedToDraftReason"`
	Notes                 *string    `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`

	Lines         []RctiLine     `gorm:"foreignKey:RctiID" json:"lines,omitempty"`
	StatusChanges []StatusChange `gorm:"foreignKey:RctiID" json:"statusChanges,omitempty"`
}

// TableName sets the database table name.
func (Rcti) TableName() string { return "rctis" }

// InvoiceNumberFor derives the stable invoice number for a driver/week pair.
func InvoiceNumberFor(driverID snowflake.ID, weekEnding time.Time) string {
	return fmt.Sprintf("RCTI-%s-%s", weekEnding.Format("20060102"), driverID.String())
}

// IsBreakLine reports whether the line is the auto-managed break deduction.
func (l RctiLine) IsBreakLine() bool { return l.Customer == BreakLineCustomer }

// RctiLine is one job or manual entry charged within the week.
type RctiLine struct {
	ID     snowflake.ID  `gorm:"primaryKey" json:"id"`
	RctiID snowflake.ID  `gorm:"not null;index" json:"rctiId"`
	JobID  *snowflake.ID `gorm:"index" json:"jobId"`

	JobDate     time.Time `gorm:"type:date;not null" json:"jobDate"`
	Customer    string    `gorm:"type:text;not null" json:"customer"`
	TruckType   string    `gorm:"type:text;not null" json:"truckType"`
	Description *string   `gorm:"type:text" json:"description"`

	ChargedHours decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"chargedHours"`
	RatePerHour  decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"ratePerHour"`
	AmountExGst  decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"amountExGst"`
	GstAmount    decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"gstAmount"`
	AmountIncGst decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"amountIncGst"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName sets the database table name.
func (RctiLine) TableName() string { return "rcti_lines" }

// StatusChange is an append-only audit entry for a lifecycle transition.
type StatusChange struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	RctiID     snowflake.ID `gorm:"not null;index" json:"rctiId"`
	FromStatus Status       `gorm:"type:text;not null" json:"fromStatus"`
	ToStatus   Status       `gorm:"type:text;not null" json:"toStatus"`
	Reason     *string      `gorm:"type:text" json:"reason"`
	ChangedBy  string       `gorm:"type:text;not null;default:''" json:"changedBy"`
	ChangedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"changedAt"`
}

// TableName sets the database table name.
func (StatusChange) TableName() string { return "rcti_status_changes" }
