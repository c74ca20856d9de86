package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	driverdomain "github.com/bldragon101/worklog-sub001/internal/driver/domain"
	"github.com/bldragon101/worklog-sub001/internal/rcti/calc"
	"github.com/bldragon101/worklog-sub001/internal/rcti/domain"
)

// AddJobLines imports completed jobs as invoice lines. Each job is billed at
// the driver's current rate for its truck type, then breaks and totals are
// recomputed in the same transaction.
func (s *Service) AddJobLines(ctx context.Context, rctiID string, jobIDs []string, actor string) ([]domain.RctiLine, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rctiID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	parsed := make([]snowflake.ID, 0, len(jobIDs))
	for _, raw := range jobIDs {
		jobID, err := snowflake.ParseString(strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		parsed = append(parsed, jobID)
	}

	var created []domain.RctiLine
	err = s.db.Transaction(func(tx *gorm.DB) error {
		rcti, err := s.lockRcti(ctx, tx, id)
		if err != nil {
			return err
		}
		if rcti.Status != domain.StatusDraft {
			return domain.ErrAddNotDraft
		}

		driver, err := s.loadDriver(ctx, tx, rcti.DriverID)
		if err != nil {
			return err
		}

		jobs, err := s.jobs.GetByIDs(ctx, tx, parsed)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		for _, job := range jobs {
			if job.DriverID != rcti.DriverID {
				continue
			}
			rate := calc.RateForTruckType(job.TruckType, driver)
			exGst, gst, incGst := calc.LineAmounts(job.Hours, rate, rcti.GstStatus)

			jobID := job.ID
			line := domain.RctiLine{
				ID:           s.genID.Generate(),
				RctiID:       rcti.ID,
				JobID:        &jobID,
				JobDate:      job.JobDate,
				Customer:     job.Customer,
				TruckType:    job.TruckType,
				Description:  job.Description,
				ChargedHours: job.Hours,
				RatePerHour:  rate,
				AmountExGst:  exGst,
				GstAmount:    gst,
				AmountIncGst: incGst,
				CreatedAt:    now,
			}
			created = append(created, line)
		}
		if len(created) == 0 {
			return domain.ErrNoValidJobs
		}

		for i := range created {
			if err := tx.WithContext(ctx).Create(&created[i]).Error; err != nil {
				return err
			}
		}

		return s.recalcTotals(ctx, tx, &rcti, driver)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordLineMutation(ctx, "add_jobs")
	}
	s.auditLog(ctx, actor, "rcti.lines.add_jobs", id, map[string]any{"count": len(created)})
	return created, nil
}

// AddManualLine appends a hand-entered line to a draft RCTI.
func (s *Service) AddManualLine(ctx context.Context, rctiID string, input domain.ManualLineInput, actor string) (domain.RctiLine, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rctiID))
	if err != nil {
		return domain.RctiLine{}, domain.ErrInvalidID
	}

	customer := strings.TrimSpace(input.Customer)
	truckType := strings.TrimSpace(input.TruckType)
	jobDateRaw := strings.TrimSpace(input.JobDate)
	if jobDateRaw == "" || customer == "" || truckType == "" || input.ChargedHours == nil || input.RatePerHour == nil {
		return domain.RctiLine{}, domain.ErrMissingFields
	}
	jobDate, err := time.Parse("2006-01-02", jobDateRaw)
	if err != nil {
		return domain.RctiLine{}, domain.ErrMissingFields
	}

	hours := *input.ChargedHours
	rate := *input.RatePerHour
	rules := s.payRules.Current()
	if hours.IsNegative() || rate.IsNegative() {
		return domain.RctiLine{}, domain.ErrInvalidAmounts
	}
	if hours.GreaterThan(decimal.NewFromFloat(rules.ManualLineMaxHours)) ||
		rate.GreaterThan(decimal.NewFromFloat(rules.ManualLineMaxRate)) {
		return domain.RctiLine{}, domain.ErrInvalidAmounts
	}

	var description *string
	if trimmed := strings.TrimSpace(input.Description); trimmed != "" {
		description = &trimmed
	}

	var line domain.RctiLine
	err = s.db.Transaction(func(tx *gorm.DB) error {
		rcti, err := s.lockRcti(ctx, tx, id)
		if err != nil {
			return err
		}
		if rcti.Status != domain.StatusDraft {
			return domain.ErrAddNotDraft
		}

		driver, err := s.loadDriver(ctx, tx, rcti.DriverID)
		if err != nil {
			return err
		}

		exGst, gst, incGst := calc.LineAmounts(hours, rate, rcti.GstStatus)
		line = domain.RctiLine{
			ID:           s.genID.Generate(),
			RctiID:       rcti.ID,
			JobDate:      jobDate,
			Customer:     customer,
			TruckType:    truckType,
			Description:  description,
			ChargedHours: hours,
			RatePerHour:  rate,
			AmountExGst:  exGst,
			GstAmount:    gst,
			AmountIncGst: incGst,
			CreatedAt:    s.clock.Now(),
		}
		if err := tx.WithContext(ctx).Create(&line).Error; err != nil {
			return err
		}

		return s.recalcTotals(ctx, tx, &rcti, driver)
	})
	if err != nil {
		return domain.RctiLine{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordLineMutation(ctx, "add_manual")
	}
	s.auditLog(ctx, actor, "rcti.lines.add_manual", id, map[string]any{"customer": customer})
	return line, nil
}

// RemoveLine deletes a line from a draft RCTI and recomputes totals.
func (s *Service) RemoveLine(ctx context.Context, rctiID, lineID, actor string) error {
	id, err := snowflake.ParseString(strings.TrimSpace(rctiID))
	if err != nil {
		return domain.ErrInvalidID
	}
	lnID, err := snowflake.ParseString(strings.TrimSpace(lineID))
	if err != nil {
		return domain.ErrInvalidID
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		rcti, err := s.lockRcti(ctx, tx, id)
		if err != nil {
			return err
		}
		if rcti.Status != domain.StatusDraft {
			return domain.ErrRemoveNotDraft
		}

		var line domain.RctiLine
		err = tx.WithContext(ctx).Where("id = ?", lnID).First(&line).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return domain.ErrLineNotFound
			}
			return err
		}
		if line.RctiID != rcti.ID {
			return domain.ErrLineMismatch
		}

		if err := tx.WithContext(ctx).Delete(&domain.RctiLine{}, "id = ?", lnID).Error; err != nil {
			return err
		}

		driver, err := s.loadDriver(ctx, tx, rcti.DriverID)
		if err != nil {
			return err
		}
		return s.recalcTotals(ctx, tx, &rcti, driver)
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordLineMutation(ctx, "remove")
	}
	s.auditLog(ctx, actor, "rcti.lines.remove", id, map[string]any{"lineId": lineID})
	return nil
}

// recalcTotals drops the synthetic break lines, regenerates them from the
// surviving line set, and rewrites the cached subtotal/gst/total. Runs
// inside the caller's transaction so readers never see stale totals.
func (s *Service) recalcTotals(ctx context.Context, tx *gorm.DB, rcti *domain.Rcti, driver driverdomain.Driver) error {
	err := tx.WithContext(ctx).
		Where("rcti_id = ? AND customer = ?", rcti.ID, domain.BreakLineCustomer).
		Delete(&domain.RctiLine{}).Error
	if err != nil {
		return err
	}

	var lines []domain.RctiLine
	err = tx.WithContext(ctx).
		Where("rcti_id = ?", rcti.ID).
		Order("job_date ASC, created_at ASC").
		Find(&lines).Error
	if err != nil {
		return err
	}

	now := s.clock.Now()
	breaks := calc.BreakLines(lines, driver, s.payRules.Current(), rcti.GstStatus)
	for i := range breaks {
		breaks[i].ID = s.genID.Generate()
		breaks[i].RctiID = rcti.ID
		breaks[i].CreatedAt = now
		if err := tx.WithContext(ctx).Create(&breaks[i]).Error; err != nil {
			return err
		}
	}

	subtotal, gst, total := calc.Totals(append(lines, breaks...))
	rcti.Subtotal = subtotal
	rcti.Gst = gst
	rcti.Total = total
	rcti.UpdatedAt = now

	return tx.WithContext(ctx).Model(&domain.Rcti{}).
		Where("id = ?", rcti.ID).
		Updates(map[string]any{
			"subtotal":   subtotal,
			"gst":        gst,
			"total":      total,
			"updated_at": now,
		}).Error
}
