package service

import (
	"time"

	"github.com/bldragon101/worklog-sub001/internal/deduction/domain"
)

// dueForWeek reports whether a week ending on weekEnding is a due date for
// the deduction. The caller has already filtered on status and start date.
//
// Cadence is anchored on startDate and calendar arithmetic alone, never on
// which weeks already carry applications, so skipped weeks cannot shift the
// schedule:
//   - once: due until a non-zero application consumes it.
//   - weekly: every week.
//   - fortnightly: weeks where the whole-week count since startDate is even,
//     so the first eligible week is always due.
//   - monthly: the first week-ending of each calendar month.
func dueForWeek(d domain.RctiDeduction, weekEnding time.Time, consumed bool) bool {
	switch d.Frequency {
	case domain.FrequencyOnce:
		return !consumed
	case domain.FrequencyWeekly:
		return true
	case domain.FrequencyFortnightly:
		days := int(weekEnding.Sub(d.StartDate).Hours() / 24)
		return (days/7)%2 == 0
	case domain.FrequencyMonthly:
		return weekEnding.Day() <= 7
	default:
		return false
	}
}
