package service

import (
	"context"
	"strings"
	"time"

	"github.com/bldragon101/worklog-sub001/internal/clock"
	"github.com/bldragon101/worklog-sub001/internal/job/domain"
	"github.com/bldragon101/worklog-sub001/pkg/repository"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	jobrepo repository.Repository[domain.Job]
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("job.service"),
		genID: p.GenID,
		clock: p.Clock,

		jobrepo: repository.ProvideStore[domain.Job](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateJobRequest) (domain.Job, error) {
	driverID, err := snowflake.ParseString(strings.TrimSpace(req.DriverID))
	if err != nil {
		return domain.Job{}, domain.ErrInvalidDriver
	}

	jobDate, err := time.Parse("2006-01-02", strings.TrimSpace(req.JobDate))
	if err != nil {
		return domain.Job{}, domain.ErrInvalidDate
	}

	customer := strings.TrimSpace(req.Customer)
	truckType := strings.TrimSpace(req.TruckType)
	if customer == "" || truckType == "" {
		return domain.Job{}, domain.ErrMissingFields
	}
	if req.Hours.IsNegative() {
		return domain.Job{}, domain.ErrNegativeHours
	}

	now := s.clock.Now()
	job := domain.Job{
		ID:        s.genID.Generate(),
		DriverID:  driverID,
		JobDate:   jobDate,
		Customer:  customer,
		TruckType: truckType,
		Hours:     req.Hours,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if description := strings.TrimSpace(req.Description); description != "" {
		job.Description = &description
	}

	if err := s.jobrepo.Create(ctx, &job); err != nil {
		return domain.Job{}, err
	}
	return job, nil
}

func (s *Service) List(ctx context.Context, req domain.ListJobRequest) ([]domain.Job, error) {
	stmt := s.db.WithContext(ctx).Model(&domain.Job{})
	if req.DriverID != nil {
		stmt = stmt.Where("driver_id = ?", *req.DriverID)
	}
	if req.WeekEnding != nil {
		weekStart := req.WeekEnding.AddDate(0, 0, -6)
		stmt = stmt.Where("job_date BETWEEN ? AND ?", weekStart, *req.WeekEnding)
	}
	if req.Unassigned {
		stmt = stmt.Where("NOT EXISTS (SELECT 1 FROM rcti_lines WHERE rcti_lines.job_id = jobs.id)")
	}

	var jobs []domain.Job
	if err := stmt.Order("job_date asc, id asc").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *Service) GetByIDs(ctx context.Context, tx *gorm.DB, ids []snowflake.ID) ([]domain.Job, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	db := s.db
	if tx != nil {
		db = tx
	}

	var jobs []domain.Job
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}
