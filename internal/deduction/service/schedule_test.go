package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bldragon101/worklog-sub001/internal/deduction/domain"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestDueForWeekOnce(t *testing.T) {
	d := domain.RctiDeduction{Frequency: domain.FrequencyOnce, StartDate: date("2025-06-01")}

	assert.True(t, dueForWeek(d, date("2025-06-07"), false))
	assert.True(t, dueForWeek(d, date("2025-06-14"), false), "skips do not consume a once deduction")
	assert.False(t, dueForWeek(d, date("2025-06-14"), true), "a non-zero application retires it")
}

func TestDueForWeekWeekly(t *testing.T) {
	d := domain.RctiDeduction{Frequency: domain.FrequencyWeekly, StartDate: date("2025-06-01")}

	assert.True(t, dueForWeek(d, date("2025-06-07"), false))
	assert.True(t, dueForWeek(d, date("2025-06-14"), false))
}

func TestDueForWeekFortnightly(t *testing.T) {
	d := domain.RctiDeduction{Frequency: domain.FrequencyFortnightly, StartDate: date("2025-06-01")}

	assert.True(t, dueForWeek(d, date("2025-06-07"), false), "first eligible week is due")
	assert.False(t, dueForWeek(d, date("2025-06-14"), false))
	assert.True(t, dueForWeek(d, date("2025-06-21"), false))
	assert.False(t, dueForWeek(d, date("2025-06-28"), false))
}

func TestDueForWeekFortnightlyAnchoredOnStartDate(t *testing.T) {
	d := domain.RctiDeduction{Frequency: domain.FrequencyFortnightly, StartDate: date("2025-06-01")}

	// Whether earlier weeks were skipped or applied is irrelevant, only the
	// calendar distance from startDate decides.
	assert.True(t, dueForWeek(d, date("2025-06-21"), false))
	assert.True(t, dueForWeek(d, date("2025-06-21"), true))
}

func TestDueForWeekMonthly(t *testing.T) {
	d := domain.RctiDeduction{Frequency: domain.FrequencyMonthly, StartDate: date("2025-06-01")}

	assert.True(t, dueForWeek(d, date("2025-07-05"), false), "first week-ending of the month")
	assert.False(t, dueForWeek(d, date("2025-07-12"), false))
	assert.False(t, dueForWeek(d, date("2025-07-26"), false))
	assert.True(t, dueForWeek(d, date("2025-08-02"), false))
}
