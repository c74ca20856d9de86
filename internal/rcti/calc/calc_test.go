package calc

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bldragon101/worklog-sub001/internal/config"
	driverdomain "github.com/bldragon101/worklog-sub001/internal/driver/domain"
	"github.com/bldragon101/worklog-sub001/internal/rcti/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestLineAmountsRegistered(t *testing.T) {
	ex, gst, inc := LineAmounts(dec("8.5"), dec("85.00"), driverdomain.GstRegistered)

	assert.True(t, ex.Equal(dec("722.5")), "amountExGst = %s", ex)
	assert.True(t, gst.Equal(dec("72.25")), "gstAmount = %s", gst)
	assert.True(t, inc.Equal(dec("794.75")), "amountIncGst = %s", inc)
}

func TestLineAmountsNotRegistered(t *testing.T) {
	ex, gst, inc := LineAmounts(dec("8.5"), dec("85.00"), driverdomain.GstNotRegistered)

	assert.True(t, gst.IsZero())
	assert.True(t, inc.Equal(ex))
}

func TestLineAmountsAdditive(t *testing.T) {
	ex, gst, inc := LineAmounts(dec("7.25"), dec("92.40"), driverdomain.GstRegistered)
	assert.True(t, inc.Equal(ex.Add(gst)))
}

func TestRateForTruckType(t *testing.T) {
	driver := driverdomain.Driver{
		RateTray:      dec("80"),
		RateCrane:     dec("90"),
		RateSemi:      dec("100"),
		RateSemiCrane: dec("110"),
	}

	tests := []struct {
		truckType string
		want      decimal.Decimal
	}{
		{"Semi Crane", dec("110")},
		{"crane semi", dec("110")},
		{"SEMI", dec("100")},
		{"semi trailer", dec("100")},
		{"Crane Truck", dec("90")},
		{"Tray", dec("80")},
		{"tray top", dec("80")},
		{"flatbed", dec("80")},
		{"", dec("80")},
	}

	for _, tt := range tests {
		t.Run(tt.truckType, func(t *testing.T) {
			got := RateForTruckType(tt.truckType, driver)
			assert.True(t, got.Equal(tt.want), "rate for %q = %s, want %s", tt.truckType, got, tt.want)
		})
	}
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestBreakLinesOverThreshold(t *testing.T) {
	driver := driverdomain.Driver{Breaks: dec("6")}
	rules := config.DefaultPayRules()

	lines := []domain.RctiLine{
		{JobDate: day("2025-06-02"), Customer: "Acme", ChargedHours: dec("4"), RatePerHour: dec("85")},
		{JobDate: day("2025-06-02"), Customer: "Beta", ChargedHours: dec("3"), RatePerHour: dec("95")},
		{JobDate: day("2025-06-03"), Customer: "Acme", ChargedHours: dec("5"), RatePerHour: dec("85")},
	}

	breaks := BreakLines(lines, driver, rules, driverdomain.GstRegistered)
	require.Len(t, breaks, 1)

	br := breaks[0]
	assert.Equal(t, domain.BreakLineCustomer, br.Customer)
	assert.Equal(t, day("2025-06-02"), br.JobDate)
	assert.True(t, br.ChargedHours.Equal(dec("-0.5")))
	assert.True(t, br.RatePerHour.Equal(dec("95")), "deducts at the day's highest rate")
	assert.True(t, br.AmountExGst.Equal(dec("-47.5")))
	assert.True(t, br.AmountIncGst.Equal(dec("-52.25")))
}

func TestBreakLinesIgnoresExistingBreakLines(t *testing.T) {
	driver := driverdomain.Driver{Breaks: dec("6")}
	rules := config.DefaultPayRules()

	lines := []domain.RctiLine{
		{JobDate: day("2025-06-02"), Customer: "Acme", ChargedHours: dec("8"), RatePerHour: dec("85")},
		{JobDate: day("2025-06-02"), Customer: domain.BreakLineCustomer, ChargedHours: dec("-0.5"), RatePerHour: dec("85")},
	}

	breaks := BreakLines(lines, driver, rules, driverdomain.GstNotRegistered)
	require.Len(t, breaks, 1)
	assert.True(t, breaks[0].GstAmount.IsZero())
}

func TestBreakLinesNoneUnderThreshold(t *testing.T) {
	driver := driverdomain.Driver{Breaks: dec("6")}
	lines := []domain.RctiLine{
		{JobDate: day("2025-06-02"), ChargedHours: dec("6"), RatePerHour: dec("85")},
	}

	breaks := BreakLines(lines, driver, config.DefaultPayRules(), driverdomain.GstRegistered)
	assert.Empty(t, breaks, "exactly at threshold is not over it")
}

func TestBreakLinesFallsBackToDefaultThreshold(t *testing.T) {
	driver := driverdomain.Driver{}
	lines := []domain.RctiLine{
		{JobDate: day("2025-06-02"), ChargedHours: dec("6.5"), RatePerHour: dec("85")},
	}

	breaks := BreakLines(lines, driver, config.DefaultPayRules(), driverdomain.GstRegistered)
	assert.Len(t, breaks, 1)
}

func TestBreakLinesSortedByDate(t *testing.T) {
	driver := driverdomain.Driver{Breaks: dec("6")}
	lines := []domain.RctiLine{
		{JobDate: day("2025-06-05"), ChargedHours: dec("9"), RatePerHour: dec("85")},
		{JobDate: day("2025-06-02"), ChargedHours: dec("8"), RatePerHour: dec("85")},
	}

	breaks := BreakLines(lines, driver, config.DefaultPayRules(), driverdomain.GstRegistered)
	require.Len(t, breaks, 2)
	assert.True(t, breaks[0].JobDate.Before(breaks[1].JobDate))
}

func TestTotals(t *testing.T) {
	lines := []domain.RctiLine{
		{AmountExGst: dec("100"), GstAmount: dec("10"), AmountIncGst: dec("110")},
		{AmountExGst: dec("-47.5"), GstAmount: dec("-4.75"), AmountIncGst: dec("-52.25")},
	}

	subtotal, gst, total := Totals(lines)
	assert.True(t, subtotal.Equal(dec("52.5")))
	assert.True(t, gst.Equal(dec("5.25")))
	assert.True(t, total.Equal(dec("57.75")))
	assert.True(t, total.Equal(subtotal.Add(gst)))
}
