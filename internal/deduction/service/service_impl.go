package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bldragon101/worklog-sub001/internal/clock"
	"github.com/bldragon101/worklog-sub001/internal/deduction/domain"
	"github.com/bldragon101/worklog-sub001/internal/observability/metrics"
	"github.com/bldragon101/worklog-sub001/pkg/db"
	"github.com/bldragon101/worklog-sub001/pkg/repository"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *metrics.Metrics

	deductionrepo repository.Repository[domain.RctiDeduction]
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("deduction.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		metrics: p.Metrics,

		deductionrepo: repository.ProvideStore[domain.RctiDeduction](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateDeductionRequest) (domain.RctiDeduction, error) {
	driverID, err := snowflake.ParseString(strings.TrimSpace(req.DriverID))
	if err != nil {
		return domain.RctiDeduction{}, domain.ErrInvalidDriver
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		return domain.RctiDeduction{}, domain.ErrMissingFields
	}
	if req.TotalAmount.IsNegative() || req.AmountPerCycle.IsNegative() {
		return domain.RctiDeduction{}, domain.ErrNegativeAmount
	}

	kind := req.Type
	switch kind {
	case "":
		kind = domain.TypeDeduction
	case domain.TypeDeduction, domain.TypeReimbursement:
	default:
		return domain.RctiDeduction{}, domain.ErrInvalidType
	}

	frequency := req.Frequency
	switch frequency {
	case "":
		frequency = domain.FrequencyOnce
	case domain.FrequencyOnce, domain.FrequencyWeekly, domain.FrequencyFortnightly, domain.FrequencyMonthly:
	default:
		return domain.RctiDeduction{}, domain.ErrInvalidFrequency
	}

	startDate, err := time.Parse("2006-01-02", strings.TrimSpace(req.StartDate))
	if err != nil {
		return domain.RctiDeduction{}, domain.ErrInvalidStartDate
	}

	now := s.clock.Now()
	deduction := domain.RctiDeduction{
		ID:              s.genID.Generate(),
		DriverID:        driverID,
		Type:            kind,
		Description:     description,
		TotalAmount:     req.TotalAmount,
		AmountPaid:      decimal.Zero,
		AmountRemaining: req.TotalAmount,
		AmountPerCycle:  req.AmountPerCycle,
		Frequency:       frequency,
		StartDate:       startDate,
		Status:          domain.StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.deductionrepo.Create(ctx, &deduction); err != nil {
		return domain.RctiDeduction{}, err
	}
	return deduction, nil
}

func (s *Service) List(ctx context.Context, req domain.ListDeductionRequest) ([]domain.RctiDeduction, error) {
	query := s.db.WithContext(ctx).Model(&domain.RctiDeduction{})
	if req.DriverID != nil {
		query = query.Where("driver_id = ?", *req.DriverID)
	}
	if req.Status != nil {
		query = query.Where("status = ?", *req.Status)
	}

	var deductions []domain.RctiDeduction
	if err := query.Order("created_at ASC").Find(&deductions).Error; err != nil {
		return nil, err
	}
	return deductions, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.RctiDeduction, error) {
	deductionID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.RctiDeduction{}, domain.ErrNotFound
	}

	var deduction domain.RctiDeduction
	err = s.db.WithContext(ctx).
		Preload("Applications").
		Where("id = ?", deductionID).
		First(&deduction).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.RctiDeduction{}, domain.ErrNotFound
		}
		return domain.RctiDeduction{}, err
	}
	return deduction, nil
}

// ApplyForRcti walks the driver's active deductions inside the caller's
// transaction and records an application row for each one due this week.
// Deduction rows are read with a row lock so concurrent finalizes for two
// weeks of the same driver cannot both spend the same remaining balance.
func (s *Service) ApplyForRcti(ctx context.Context, tx *gorm.DB, rctiID, driverID snowflake.ID, weekEnding time.Time, overrides map[snowflake.ID]domain.Override) (domain.ApplyResult, error) {
	result := domain.ApplyResult{
		TotalDeductions:     decimal.Zero,
		TotalReimbursements: decimal.Zero,
	}

	var candidates []domain.RctiDeduction
	err := db.ForUpdate(tx.WithContext(ctx)).
		Where("driver_id = ? AND status = ? AND start_date <= ?", driverID, domain.StatusActive, weekEnding).
		Order("created_at ASC").
		Find(&candidates).Error
	if err != nil {
		return result, err
	}

	now := s.clock.Now()
	for i := range candidates {
		deduction := &candidates[i]

		consumed := false
		if deduction.Frequency == domain.FrequencyOnce {
			var count int64
			err := tx.WithContext(ctx).
				Model(&domain.RctiDeductionApplication{}).
				Where("deduction_id = ? AND amount <> 0", deduction.ID).
				Count(&count).Error
			if err != nil {
				return result, err
			}
			consumed = count > 0
		}

		if !dueForWeek(*deduction, weekEnding, consumed) {
			continue
		}

		amount := decimal.Min(deduction.AmountPerCycle, deduction.AmountRemaining)
		if override, ok := overrides[deduction.ID]; ok {
			if override.Skip {
				amount = decimal.Zero
			} else {
				amount = override.Amount
				if amount.IsNegative() {
					amount = decimal.Zero
				}
				if amount.GreaterThan(deduction.AmountRemaining) {
					amount = deduction.AmountRemaining
				}
			}
		}

		application := domain.RctiDeductionApplication{
			ID:          s.genID.Generate(),
			DeductionID: deduction.ID,
			RctiID:      rctiID,
			Amount:      amount,
			AppliedAt:   now,
		}
		if err := tx.WithContext(ctx).Create(&application).Error; err != nil {
			return result, err
		}

		if amount.IsZero() {
			continue
		}

		deduction.AmountPaid = deduction.AmountPaid.Add(amount)
		deduction.AmountRemaining = deduction.AmountRemaining.Sub(amount)
		if !deduction.AmountRemaining.IsPositive() {
			deduction.AmountRemaining = decimal.Zero
			deduction.Status = domain.StatusCompleted
			completedAt := now
			deduction.CompletedAt = &completedAt
		}
		deduction.UpdatedAt = now

		if err := tx.WithContext(ctx).Save(deduction).Error; err != nil {
			return result, err
		}

		result.Applied++
		switch deduction.Type {
		case domain.TypeReimbursement:
			result.TotalReimbursements = result.TotalReimbursements.Add(amount)
		default:
			result.TotalDeductions = result.TotalDeductions.Add(amount)
		}
		if s.metrics != nil {
			s.metrics.RecordDeductionApplication(ctx, string(deduction.Type))
		}
	}

	return result, nil
}

// ReverseForRcti undoes every ledger movement this RCTI caused and deletes
// its application rows. Reversal is exact: a deduction completed by this
// RCTI's application goes back to active with its prior balances.
func (s *Service) ReverseForRcti(ctx context.Context, tx *gorm.DB, rctiID snowflake.ID) error {
	var applications []domain.RctiDeductionApplication
	err := tx.WithContext(ctx).
		Where("rcti_id = ?", rctiID).
		Find(&applications).Error
	if err != nil {
		return err
	}
	if len(applications) == 0 {
		return nil
	}

	now := s.clock.Now()
	for _, application := range applications {
		if application.Amount.IsZero() {
			continue
		}

		var deduction domain.RctiDeduction
		err := db.ForUpdate(tx.WithContext(ctx)).
			Where("id = ?", application.DeductionID).
			First(&deduction).Error
		if err != nil {
			return err
		}

		deduction.AmountPaid = deduction.AmountPaid.Sub(application.Amount)
		deduction.AmountRemaining = deduction.AmountRemaining.Add(application.Amount)
		if deduction.Status == domain.StatusCompleted && deduction.AmountRemaining.IsPositive() {
			deduction.Status = domain.StatusActive
			deduction.CompletedAt = nil
		}
		deduction.UpdatedAt = now

		if err := tx.WithContext(ctx).Save(&deduction).Error; err != nil {
			return err
		}
	}

	return tx.WithContext(ctx).
		Where("rcti_id = ?", rctiID).
		Delete(&domain.RctiDeductionApplication{}).Error
}
