// Package calc holds the pure money and rate arithmetic for RCTI lines.
// Nothing in here touches the database.
package calc

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bldragon101/worklog-sub001/internal/config"
	driverdomain "github.com/bldragon101/worklog-sub001/internal/driver/domain"
	"github.com/bldragon101/worklog-sub001/internal/rcti/domain"
)

var gstRate = decimal.NewFromFloat(0.10)

// LineAmounts derives the three stored amounts for a line. GST is 10% of
// the ex-GST amount when the driver is registered, zero otherwise. No
// rounding happens here, display formatting is a boundary concern.
func LineAmounts(chargedHours, ratePerHour decimal.Decimal, gstStatus driverdomain.GstStatus) (amountExGst, gstAmount, amountIncGst decimal.Decimal) {
	amountExGst = chargedHours.Mul(ratePerHour)
	if gstStatus == driverdomain.GstRegistered {
		gstAmount = amountExGst.Mul(gstRate)
	} else {
		gstAmount = decimal.Zero
	}
	amountIncGst = amountExGst.Add(gstAmount)
	return amountExGst, gstAmount, amountIncGst
}

// RateForTruckType resolves the driver's hourly rate for a truck-type label
// by case-insensitive substring matching. The combined semi+crane branch
// must run first so "semi crane" never falls through to the single-rig
// rates. Unknown labels bill at the tray rate.
func RateForTruckType(truckType string, d driverdomain.Driver) decimal.Decimal {
	label := strings.ToLower(truckType)
	hasSemi := strings.Contains(label, "semi")
	hasCrane := strings.Contains(label, "crane")

	switch {
	case hasSemi && hasCrane:
		return d.RateSemiCrane
	case hasSemi:
		return d.RateSemi
	case hasCrane:
		return d.RateCrane
	default:
		return d.RateTray
	}
}

// BreakLines produces the synthetic unpaid-break lines for an RCTI from its
// current non-break lines. Lines are grouped by job date; any day whose
// charged hours exceed the driver's break threshold gets one negative line
// of the configured break length, billed at the highest rate worked that
// day. The returned lines are ordered by date.
func BreakLines(lines []domain.RctiLine, d driverdomain.Driver, rules config.PayRules, gstStatus driverdomain.GstStatus) []domain.RctiLine {
	threshold := d.Breaks
	if threshold.IsZero() {
		threshold = decimal.NewFromFloat(rules.DefaultBreaksAfter)
	}
	breakLength := decimal.NewFromFloat(rules.BreakLengthHours)
	if breakLength.IsZero() || threshold.IsZero() {
		return nil
	}

	type dayTotals struct {
		date    time.Time
		hours   decimal.Decimal
		maxRate decimal.Decimal
	}
	days := make(map[string]*dayTotals)
	for _, line := range lines {
		if line.IsBreakLine() {
			continue
		}
		key := line.JobDate.Format("2006-01-02")
		day, ok := days[key]
		if !ok {
			day = &dayTotals{date: line.JobDate}
			days[key] = day
		}
		day.hours = day.hours.Add(line.ChargedHours)
		if line.RatePerHour.GreaterThan(day.maxRate) {
			day.maxRate = line.RatePerHour
		}
	}

	var out []domain.RctiLine
	for _, day := range days {
		if !day.hours.GreaterThan(threshold) {
			continue
		}
		hours := breakLength.Neg()
		exGst, gst, incGst := LineAmounts(hours, day.maxRate, gstStatus)
		out = append(out, domain.RctiLine{
			JobDate:      day.date,
			Customer:     domain.BreakLineCustomer,
			TruckType:    "N/A",
			ChargedHours: hours,
			RatePerHour:  day.maxRate,
			AmountExGst:  exGst,
			GstAmount:    gst,
			AmountIncGst: incGst,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobDate.Before(out[j].JobDate) })
	return out
}

// Totals sums the surviving lines into the cached invoice figures.
func Totals(lines []domain.RctiLine) (subtotal, gst, total decimal.Decimal) {
	for _, line := range lines {
		subtotal = subtotal.Add(line.AmountExGst)
		gst = gst.Add(line.GstAmount)
		total = total.Add(line.AmountIncGst)
	}
	return subtotal, gst, total
}
