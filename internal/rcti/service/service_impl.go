package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/bldragon101/worklog-sub001/internal/audit/domain"
	"github.com/bldragon101/worklog-sub001/internal/clock"
	"github.com/bldragon101/worklog-sub001/internal/config"
	deductiondomain "github.com/bldragon101/worklog-sub001/internal/deduction/domain"
	driverdomain "github.com/bldragon101/worklog-sub001/internal/driver/domain"
	jobdomain "github.com/bldragon101/worklog-sub001/internal/job/domain"
	"github.com/bldragon101/worklog-sub001/internal/observability/metrics"
	"github.com/bldragon101/worklog-sub001/internal/rcti/domain"
	"github.com/bldragon101/worklog-sub001/pkg/db"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	PayRules *config.PayRulesHolder
	Jobs     jobdomain.Service
	Ledger   deductiondomain.Service
	Audit    auditdomain.Service `optional:"true"`
	Metrics  *metrics.Metrics    `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	payRules *config.PayRulesHolder
	jobs     jobdomain.Service
	ledger   deductiondomain.Ledger
	audit    auditdomain.Service
	metrics  *metrics.Metrics
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("rcti.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		payRules: p.PayRules,
		jobs:     p.Jobs,
		ledger:   p.Ledger,
		audit:    p.Audit,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRctiRequest) (domain.Rcti, error) {
	driverID, err := snowflake.ParseString(strings.TrimSpace(req.DriverID))
	if err != nil {
		return domain.Rcti{}, domain.ErrInvalidID
	}
	weekEnding, err := time.Parse("2006-01-02", strings.TrimSpace(req.WeekEnding))
	if err != nil {
		return domain.Rcti{}, domain.ErrInvalidWeekDate
	}

	var driver driverdomain.Driver
	err = s.db.WithContext(ctx).Where("id = ?", driverID).First(&driver).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Rcti{}, driverdomain.ErrNotFound
		}
		return domain.Rcti{}, err
	}

	var existing int64
	err = s.db.WithContext(ctx).Model(&domain.Rcti{}).
		Where("driver_id = ? AND week_ending = ?", driverID, weekEnding).
		Count(&existing).Error
	if err != nil {
		return domain.Rcti{}, err
	}
	if existing > 0 {
		return domain.Rcti{}, domain.ErrDuplicateWeek
	}

	now := s.clock.Now()
	rcti := domain.Rcti{
		ID:            s.genID.Generate(),
		InvoiceNumber: domain.InvoiceNumberFor(driverID, weekEnding),
		DriverID:      driverID,
		DriverName:    driver.Name,
		BusinessName:  driver.BusinessName,
		DriverAddress: driver.Address,
		DriverAbn:     driver.Abn,
		WeekEnding:    weekEnding,

		GstStatus: driver.GstStatus,
		GstMode:   driver.GstMode,

		BankName:          driver.BankName,
		BankBsb:           driver.BankBsb,
		BankAccountNumber: driver.BankAccountNumber,

		Status:    domain.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		rcti.Notes = &notes
	}

	if err := s.db.WithContext(ctx).Create(&rcti).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Rcti{}, domain.ErrDuplicateWeek
		}
		return domain.Rcti{}, err
	}
	return rcti, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRctiRequest) ([]domain.Rcti, error) {
	query := s.db.WithContext(ctx).Model(&domain.Rcti{})
	if req.DriverID != nil {
		query = query.Where("driver_id = ?", *req.DriverID)
	}
	if req.Status != nil {
		query = query.Where("status = ?", *req.Status)
	}
	if req.WeekEnding != nil {
		query = query.Where("week_ending = ?", *req.WeekEnding)
	}

	var rctis []domain.Rcti
	err := query.Order("week_ending DESC, created_at DESC").Find(&rctis).Error
	if err != nil {
		return nil, err
	}
	return rctis, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.RctiDetail, error) {
	rctiID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.RctiDetail{}, domain.ErrInvalidID
	}
	return s.loadDetail(ctx, s.db, rctiID)
}

// loadDetail assembles the full document: the invoice with its lines and
// status history, the live driver record, and this week's ledger rows.
func (s *Service) loadDetail(ctx context.Context, tx *gorm.DB, rctiID snowflake.ID) (domain.RctiDetail, error) {
	var rcti domain.Rcti
	err := tx.WithContext(ctx).
		Preload("Lines", func(q *gorm.DB) *gorm.DB { return q.Order("job_date ASC, created_at ASC") }).
		Preload("StatusChanges", func(q *gorm.DB) *gorm.DB { return q.Order("changed_at ASC") }).
		Where("id = ?", rctiID).
		First(&rcti).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RctiDetail{}, domain.ErrNotFound
		}
		return domain.RctiDetail{}, err
	}

	var driver driverdomain.Driver
	err = tx.WithContext(ctx).Where("id = ?", rcti.DriverID).First(&driver).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.RctiDetail{}, err
	}

	var applications []deductiondomain.RctiDeductionApplication
	err = tx.WithContext(ctx).
		Where("rcti_id = ?", rctiID).
		Order("applied_at ASC").
		Find(&applications).Error
	if err != nil {
		return domain.RctiDetail{}, err
	}

	return domain.RctiDetail{
		Rcti:                  rcti,
		Driver:                driver,
		DeductionApplications: applications,
	}, nil
}

// lockRcti loads the invoice row under a row lock inside tx. Status guards
// run against this read so concurrent mutations serialize on the row.
func (s *Service) lockRcti(ctx context.Context, tx *gorm.DB, rctiID snowflake.ID) (domain.Rcti, error) {
	var rcti domain.Rcti
	err := db.ForUpdate(tx.WithContext(ctx)).Where("id = ?", rctiID).First(&rcti).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Rcti{}, domain.ErrNotFound
		}
		return domain.Rcti{}, err
	}
	return rcti, nil
}

func (s *Service) loadDriver(ctx context.Context, tx *gorm.DB, driverID snowflake.ID) (driverdomain.Driver, error) {
	var driver driverdomain.Driver
	err := tx.WithContext(ctx).Where("id = ?", driverID).First(&driver).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return driverdomain.Driver{}, driverdomain.ErrNotFound
		}
		return driverdomain.Driver{}, err
	}
	return driver, nil
}

func (s *Service) auditLog(ctx context.Context, actor, action string, rctiID snowflake.ID, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	targetID := rctiID.String()
	if err := s.audit.AuditLog(ctx, actor, action, "rcti", &targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}
