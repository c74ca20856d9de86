package service

import (
	"context"
	"strings"

	"github.com/bldragon101/worklog-sub001/internal/clock"
	"github.com/bldragon101/worklog-sub001/internal/driver/domain"
	"github.com/bldragon101/worklog-sub001/pkg/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
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

	driverrepo repository.Repository[domain.Driver]
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("driver.service"),
		genID: p.GenID,
		clock: p.Clock,

		driverrepo: repository.ProvideStore[domain.Driver](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateDriverRequest) (domain.Driver, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Driver{}, domain.ErrNameRequired
	}
	for _, rate := range []decimal.Decimal{req.RateTray, req.RateCrane, req.RateSemi, req.RateSemiCrane, req.Breaks} {
		if rate.IsNegative() {
			return domain.Driver{}, domain.ErrNegativeRate
		}
	}

	gstStatus := req.GstStatus
	switch gstStatus {
	case "":
		gstStatus = domain.GstNotRegistered
	case domain.GstRegistered, domain.GstNotRegistered:
	default:
		return domain.Driver{}, domain.ErrInvalidGst
	}

	gstMode := req.GstMode
	switch gstMode {
	case "":
		gstMode = domain.GstModeExclusive
	case domain.GstModeInclusive, domain.GstModeExclusive:
	default:
		return domain.Driver{}, domain.ErrInvalidGstMode
	}

	now := s.clock.Now()
	driver := domain.Driver{
		ID:                s.genID.Generate(),
		Name:              name,
		BusinessName:      strings.TrimSpace(req.BusinessName),
		Address:           strings.TrimSpace(req.Address),
		Abn:               strings.TrimSpace(req.Abn),
		GstStatus:         gstStatus,
		GstMode:           gstMode,
		BankName:          strings.TrimSpace(req.BankName),
		BankBsb:           strings.TrimSpace(req.BankBsb),
		BankAccountNumber: strings.TrimSpace(req.BankAccountNumber),
		RateTray:          req.RateTray,
		RateCrane:         req.RateCrane,
		RateSemi:          req.RateSemi,
		RateSemiCrane:     req.RateSemiCrane,
		Breaks:            req.Breaks,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.driverrepo.Create(ctx, &driver); err != nil {
		return domain.Driver{}, err
	}
	return driver, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Driver, error) {
	items, err := s.driverrepo.Find(ctx, &domain.Driver{})
	if err != nil {
		return nil, err
	}

	drivers := make([]domain.Driver, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		drivers = append(drivers, *item)
	}
	return drivers, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Driver, error) {
	driverID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Driver{}, domain.ErrNotFound
	}

	item, err := s.driverrepo.FindOne(ctx, &domain.Driver{ID: driverID})
	if err != nil {
		return domain.Driver{}, err
	}
	if item == nil {
		return domain.Driver{}, domain.ErrNotFound
	}
	return *item, nil
}
