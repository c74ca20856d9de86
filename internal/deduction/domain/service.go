package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateDeductionRequest struct {
	DriverID       string          `json:"driverId"`
	Type           Type            `json:"type"`
	Description    string          `json:"description"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	AmountPerCycle decimal.Decimal `json:"amountPerCycle"`
	Frequency      Frequency       `json:"frequency"`
	StartDate      string          `json:"startDate"`
}

type ListDeductionRequest struct {
	DriverID *snowflake.ID
	Status   *Status
}

// Override is a caller-supplied per-deduction adjustment for one finalize.
// Skip applies amount 0 and leaves running totals untouched.
type Override struct {
	Skip   bool
	Amount decimal.Decimal
}

// ApplyResult aggregates one finalize's ledger effect.
type ApplyResult struct {
	Applied             int             `json:"applied"`
	TotalDeductions     decimal.Decimal `json:"totalDeductionAmount"`
	TotalReimbursements decimal.Decimal `json:"totalReimbursementAmount"`
}

// Ledger is the transactional deduction engine. Apply and Reverse must be
// called inside the caller's transaction so the RCTI status change and the
// ledger movement commit or roll back together.
type Ledger interface {
	ApplyForRcti(ctx context.Context, tx *gorm.DB, rctiID, driverID snowflake.ID, weekEnding time.Time, overrides map[snowflake.ID]Override) (ApplyResult, error)
	ReverseForRcti(ctx context.Context, tx *gorm.DB, rctiID snowflake.ID) error
}

type Service interface {
	Ledger

	Create(ctx context.Context, req CreateDeductionRequest) (RctiDeduction, error)
	List(ctx context.Context, req ListDeductionRequest) ([]RctiDeduction, error)
	GetByID(ctx context.Context, id string) (RctiDeduction, error)
}

var (
	ErrNotFound         = errors.New("deduction not found")
	ErrInvalidDriver    = errors.New("invalid driver id")
	ErrInvalidType      = errors.New("invalid deduction type")
	ErrInvalidFrequency = errors.New("invalid deduction frequency")
	ErrInvalidStartDate = errors.New("invalid start date")
	ErrMissingFields    = errors.New("description and amounts are required")
	ErrNegativeAmount   = errors.New("amounts must not be negative")
	ErrInvalidOverride  = errors.New("invalid deduction override value")
)

// InvalidOverrideError names the offending deduction when an override fails
// to parse. It is raised before any ledger mutation runs.
func InvalidOverrideError(deductionID string) error {
	return fmt.Errorf("Invalid deduction override value for deduction %s: %w", deductionID, ErrInvalidOverride)
}

// ParseOverrides validates and normalizes the raw override payload. Each
// value must be JSON null (skip), a finite number, or a numeric string.
// The whole batch is rejected on the first invalid entry.
func ParseOverrides(raw map[string]any) (map[snowflake.ID]Override, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	overrides := make(map[snowflake.ID]Override, len(raw))
	for key, value := range raw {
		deductionID, err := snowflake.ParseString(strings.TrimSpace(key))
		if err != nil {
			return nil, InvalidOverrideError(key)
		}

		if value == nil {
			overrides[deductionID] = Override{Skip: true}
			continue
		}

		amount, err := parseOverrideAmount(value)
		if err != nil {
			return nil, InvalidOverrideError(key)
		}
		overrides[deductionID] = Override{Amount: amount}
	}
	return overrides, nil
}

func parseOverrideAmount(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	default:
		return decimal.Zero, ErrInvalidOverride
	}
}
