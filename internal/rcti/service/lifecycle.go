package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	deductiondomain "github.com/bldragon101/worklog-sub001/internal/deduction/domain"
	"github.com/bldragon101/worklog-sub001/internal/rcti/calc"
	"github.com/bldragon101/worklog-sub001/internal/rcti/domain"
)

// Finalize moves a draft RCTI to finalised, applying the driver's due
// deductions for the week. Ledger movement, total adjustment, and status
// change commit in one transaction.
func (s *Service) Finalize(ctx context.Context, rctiID string, overrides map[string]any, actor string) (domain.RctiDetail, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rctiID))
	if err != nil {
		return domain.RctiDetail{}, domain.ErrInvalidID
	}

	parsed, err := deductiondomain.ParseOverrides(overrides)
	if err != nil {
		return domain.RctiDetail{}, err
	}

	var result deductiondomain.ApplyResult
	err = s.db.Transaction(func(tx *gorm.DB) error {
		rcti, err := s.lockRcti(ctx, tx, id)
		if err != nil {
			return err
		}
		if rcti.Status != domain.StatusDraft {
			return domain.ErrFinalizeState
		}

		result, err = s.ledger.ApplyForRcti(ctx, tx, rcti.ID, rcti.DriverID, rcti.WeekEnding, parsed)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		total := rcti.Total.Sub(result.TotalDeductions).Add(result.TotalReimbursements)
		err = tx.WithContext(ctx).Model(&domain.Rcti{}).
			Where("id = ?", rcti.ID).
			Updates(map[string]any{
				"total":      total,
				"status":     domain.StatusFinalised,
				"updated_at": now,
			}).Error
		if err != nil {
			return err
		}

		return s.recordStatusChange(ctx, tx, rcti.ID, rcti.Status, domain.StatusFinalised, nil, actor)
	})
	if err != nil {
		return domain.RctiDetail{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordRctiFinalized(ctx)
	}
	s.auditLog(ctx, actor, "rcti.finalize", id, map[string]any{
		"applied":                  result.Applied,
		"totalDeductionAmount":     result.TotalDeductions.String(),
		"totalReimbursementAmount": result.TotalReimbursements.String(),
	})
	return s.loadDetail(ctx, s.db, id)
}

// MarkPaid moves a finalised RCTI to paid and stamps the payment time.
func (s *Service) MarkPaid(ctx context.Context, rctiID string, actor string) (domain.Rcti, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rctiID))
	if err != nil {
		return domain.Rcti{}, domain.ErrInvalidID
	}

	var updated domain.Rcti
	err = s.db.Transaction(func(tx *gorm.DB) error {
		rcti, err := s.lockRcti(ctx, tx, id)
		if err != nil {
			return err
		}
		if rcti.Status != domain.StatusFinalised {
			return domain.ErrMarkPaidState
		}

		now := s.clock.Now()
		err = tx.WithContext(ctx).Model(&domain.Rcti{}).
			Where("id = ?", rcti.ID).
			Updates(map[string]any{
				"status":     domain.StatusPaid,
				"paid_at":    now,
				"updated_at": now,
			}).Error
		if err != nil {
			return err
		}

		if err := s.recordStatusChange(ctx, tx, rcti.ID, rcti.Status, domain.StatusPaid, nil, actor); err != nil {
			return err
		}

		rcti.Status = domain.StatusPaid
		rcti.PaidAt = &now
		rcti.UpdatedAt = now
		updated = rcti
		return nil
	})
	if err != nil {
		return domain.Rcti{}, err
	}

	s.auditLog(ctx, actor, "rcti.mark_paid", id, nil)
	return updated, nil
}

// RevertToDraft undoes a paid RCTI: the week's ledger movements are
// reversed exactly, totals are recomputed from the surviving lines, and the
// transition is audited with the operator's reason.
func (s *Service) RevertToDraft(ctx context.Context, rctiID, reason, actor string) (domain.RctiDetail, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rctiID))
	if err != nil {
		return domain.RctiDetail{}, domain.ErrInvalidID
	}

	trimmed := strings.TrimSpace(reason)
	if len(trimmed) < s.payRules.Current().RevertReasonMinimum {
		return domain.RctiDetail{}, domain.ErrReasonTooShort
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		rcti, err := s.lockRcti(ctx, tx, id)
		if err != nil {
			return err
		}
		if rcti.Status != domain.StatusPaid {
			return domain.ErrRevertState
		}

		if err := s.ledger.ReverseForRcti(ctx, tx, rcti.ID); err != nil {
			return err
		}

		// Totals come from the lines, not from re-adding the reversed
		// delta. The reversal already restored the line/total relationship.
		var lines []domain.RctiLine
		err = tx.WithContext(ctx).Where("rcti_id = ?", rcti.ID).Find(&lines).Error
		if err != nil {
			return err
		}
		subtotal, gst, total := calc.Totals(lines)

		now := s.clock.Now()
		err = tx.WithContext(ctx).Model(&domain.Rcti{}).
			Where("id = ?", rcti.ID).
			Updates(map[string]any{
				"subtotal":                 subtotal,
				"gst":                      gst,
				"total":                    total,
				"status":                   domain.StatusDraft,
				"paid_at":                  nil,
				"reverted_to_draft_at":     now,
				"reverted_to_draft_reason": trimmed,
				"updated_at":               now,
			}).Error
		if err != nil {
			return err
		}

		return s.recordStatusChange(ctx, tx, rcti.ID, rcti.Status, domain.StatusDraft, &trimmed, actor)
	})
	if err != nil {
		return domain.RctiDetail{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordRctiReverted(ctx)
	}
	s.auditLog(ctx, actor, "rcti.revert_to_draft", id, map[string]any{"reason": trimmed})
	return s.loadDetail(ctx, s.db, id)
}

func (s *Service) recordStatusChange(ctx context.Context, tx *gorm.DB, rctiID snowflake.ID, from, to domain.Status, reason *string, actor string) error {
	change := domain.StatusChange{
		ID:         s.genID.Generate(),
		RctiID:     rctiID,
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
		ChangedBy:  actor,
		ChangedAt:  s.clock.Now(),
	}
	return tx.WithContext(ctx).Create(&change).Error
}
