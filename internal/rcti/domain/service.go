package domain

import (
	"context"
	"errors"
	"time"

	deductiondomain "github.com/bldragon101/worklog-sub001/internal/deduction/domain"
	driverdomain "github.com/bldragon101/worklog-sub001/internal/driver/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type CreateRctiRequest struct {
	DriverID   string `json:"driverId"`
	WeekEnding string `json:"weekEnding"`
	Notes      string `json:"notes"`
}

type ListRctiRequest struct {
	DriverID   *snowflake.ID
	Status     *Status
	WeekEnding *time.Time
}

// ManualLineInput carries a hand-entered line. Hours and rate accept both
// JSON numbers and numeric strings.
type ManualLineInput struct {
	JobDate      string           `json:"jobDate"`
	Customer     string           `json:"customer"`
	TruckType    string           `json:"truckType"`
	Description  string           `json:"description"`
	ChargedHours *decimal.Decimal `json:"chargedHours"`
	RatePerHour  *decimal.Decimal `json:"ratePerHour"`
}

// RctiDetail is the full document returned by mutating operations.
type RctiDetail struct {
	Rcti                  Rcti                                       `json:"rcti"`
	Driver                driverdomain.Driver                        `json:"driver"`
	DeductionApplications []deductiondomain.RctiDeductionApplication `json:"deductionApplications,omitempty"`
}

type Service interface {
	Create(ctx context.Context, req CreateRctiRequest) (Rcti, error)
	List(ctx context.Context, req ListRctiRequest) ([]Rcti, error)
	GetByID(ctx context.Context, id string) (RctiDetail, error)

	AddJobLines(ctx context.Context, rctiID string, jobIDs []string, actor string) ([]RctiLine, error)
	AddManualLine(ctx context.Context, rctiID string, input ManualLineInput, actor string) (RctiLine, error)
	RemoveLine(ctx context.Context, rctiID, lineID, actor string) error

	Finalize(ctx context.Context, rctiID string, overrides map[string]any, actor string) (RctiDetail, error)
	MarkPaid(ctx context.Context, rctiID string, actor string) (Rcti, error)
	RevertToDraft(ctx context.Context, rctiID, reason, actor string) (RctiDetail, error)
}

var (
	ErrInvalidID       = errors.New("invalid id")
	ErrNotFound        = errors.New("RCTI not found")
	ErrLineNotFound    = errors.New("Line not found")
	ErrDuplicateWeek   = errors.New("an RCTI already exists for this driver and week")
	ErrNoValidJobs     = errors.New("No valid jobs found for the provided ids")
	ErrAddNotDraft     = errors.New("Can only add lines to draft RCTIs")
	ErrRemoveNotDraft  = errors.New("Can only remove lines from draft RCTIs")
	ErrLineMismatch    = errors.New("Line does not belong to this RCTI")
	ErrFinalizeState   = errors.New("Can only finalise draft RCTIs")
	ErrMarkPaidState   = errors.New("Can only mark finalised RCTIs as paid")
	ErrRevertState     = errors.New("Only paid RCTIs can be reverted to draft")
	ErrMissingFields   = errors.New("Missing required fields for manual line entry")
	ErrInvalidAmounts  = errors.New("Invalid hours or rate")
	ErrReasonTooShort  = errors.New("A reason of at least 5 characters is required")
	ErrInvalidWeekDate = errors.New("invalid week ending date")
)
