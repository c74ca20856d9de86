package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bldragon101/worklog-sub001/internal/clock"
	"github.com/bldragon101/worklog-sub001/internal/config"
	deductiondomain "github.com/bldragon101/worklog-sub001/internal/deduction/domain"
	deductionservice "github.com/bldragon101/worklog-sub001/internal/deduction/service"
	driverdomain "github.com/bldragon101/worklog-sub001/internal/driver/domain"
	jobdomain "github.com/bldragon101/worklog-sub001/internal/job/domain"
	jobservice "github.com/bldragon101/worklog-sub001/internal/job/service"
	"github.com/bldragon101/worklog-sub001/internal/rcti/domain"
)

type fixture struct {
	svc    *Service
	db     *gorm.DB
	node   *snowflake.Node
	clock  *clock.FakeClock
	driver driverdomain.Driver
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decp(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&driverdomain.Driver{},
		&jobdomain.Job{},
		&domain.Rcti{},
		&domain.RctiLine{},
		&domain.StatusChange{},
		&deductiondomain.RctiDeduction{},
		&deductiondomain.RctiDeductionApplication{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	jobs := jobservice.NewService(jobservice.ServiceParam{
		DB: gdb, Log: log, GenID: node, Clock: fake,
	})
	ledger := deductionservice.NewService(deductionservice.ServiceParam{
		DB: gdb, Log: log, GenID: node, Clock: fake,
	})

	svc := NewService(ServiceParam{
		DB:       gdb,
		Log:      log,
		GenID:    node,
		Clock:    fake,
		PayRules: config.NewStaticPayRules(config.DefaultPayRules()),
		Jobs:     jobs,
		Ledger:   ledger,
	}).(*Service)

	driver := driverdomain.Driver{
		ID:            node.Generate(),
		Name:          "Dale Hopper",
		BusinessName:  "Hopper Haulage Pty Ltd",
		Abn:           "51824753556",
		GstStatus:     driverdomain.GstRegistered,
		GstMode:       driverdomain.GstModeExclusive,
		RateTray:      dec("80"),
		RateCrane:     dec("90"),
		RateSemi:      dec("100"),
		RateSemiCrane: dec("110"),
		Breaks:        dec("6"),
	}
	require.NoError(t, gdb.Create(&driver).Error)

	return &fixture{svc: svc, db: gdb, node: node, clock: fake, driver: driver}
}

func (f *fixture) createRcti(t *testing.T, weekEnding string) domain.Rcti {
	t.Helper()
	rcti, err := f.svc.Create(context.Background(), domain.CreateRctiRequest{
		DriverID:   f.driver.ID.String(),
		WeekEnding: weekEnding,
	})
	require.NoError(t, err)
	return rcti
}

func (f *fixture) seedJob(t *testing.T, jobDate, truckType, hours string) jobdomain.Job {
	t.Helper()
	job := jobdomain.Job{
		ID:        f.node.Generate(),
		DriverID:  f.driver.ID,
		JobDate:   mustDate(jobDate),
		Customer:  "Acme Logistics",
		TruckType: truckType,
		Hours:     dec(hours),
	}
	require.NoError(t, f.db.Create(&job).Error)
	return job
}

func mustDate(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateRctiSnapshotsDriver(t *testing.T) {
	f := newFixture(t)

	rcti := f.createRcti(t, "2025-06-14")

	assert.Equal(t, domain.StatusDraft, rcti.Status)
	assert.Equal(t, f.driver.Name, rcti.DriverName)
	assert.Equal(t, f.driver.BusinessName, rcti.BusinessName)
	assert.Equal(t, driverdomain.GstRegistered, rcti.GstStatus)
	assert.Equal(t, "RCTI-20250614-"+f.driver.ID.String(), rcti.InvoiceNumber)

	// Invoice fields stay frozen even if the driver record changes later.
	require.NoError(t, f.db.Model(&driverdomain.Driver{}).
		Where("id = ?", f.driver.ID).
		Update("name", "Renamed").Error)
	detail, err := f.svc.GetByID(context.Background(), rcti.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Dale Hopper", detail.Rcti.DriverName)
}

func TestCreateRctiDuplicateWeek(t *testing.T) {
	f := newFixture(t)
	f.createRcti(t, "2025-06-14")

	_, err := f.svc.Create(context.Background(), domain.CreateRctiRequest{
		DriverID:   f.driver.ID.String(),
		WeekEnding: "2025-06-14",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateWeek)
}

func TestAddJobLinesComputesAmountsAndBreaks(t *testing.T) {
	f := newFixture(t)
	rcti := f.createRcti(t, "2025-06-14")
	morning := f.seedJob(t, "2025-06-09", "Semi", "5")
	afternoon := f.seedJob(t, "2025-06-09", "Semi Crane", "4")

	lines, err := f.svc.AddJobLines(context.Background(),
		rcti.ID.String(),
		[]string{morning.ID.String(), afternoon.ID.String()},
		"tester")
	require.NoError(t, err)
	require.Len(t, lines, 2)

	byTruck := make(map[string]domain.RctiLine, len(lines))
	for _, line := range lines {
		byTruck[line.TruckType] = line
	}
	assert.True(t, byTruck["Semi"].RatePerHour.Equal(dec("100")))
	assert.True(t, byTruck["Semi Crane"].RatePerHour.Equal(dec("110")))
	assert.True(t, byTruck["Semi"].AmountExGst.Equal(dec("500")))
	assert.True(t, byTruck["Semi"].GstAmount.Equal(dec("50")))

	detail, err := f.svc.GetByID(context.Background(), rcti.ID.String())
	require.NoError(t, err)

	// 9 hours on one day crosses the 6 hour threshold, so a break line at
	// the day's highest rate appears alongside the two job lines.
	require.Len(t, detail.Rcti.Lines, 3)
	var breakLine *domain.RctiLine
	for i := range detail.Rcti.Lines {
		if detail.Rcti.Lines[i].IsBreakLine() {
			breakLine = &detail.Rcti.Lines[i]
		}
	}
	require.NotNil(t, breakLine)
	assert.True(t, breakLine.ChargedHours.Equal(dec("-0.5")))
	assert.True(t, breakLine.RatePerHour.Equal(dec("110")))

	// subtotal = 500 + 440 - 55, gst = 10%, total = subtotal + gst
	assert.True(t, detail.Rcti.Subtotal.Equal(dec("885")), "subtotal = %s", detail.Rcti.Subtotal)
	assert.True(t, detail.Rcti.Gst.Equal(dec("88.5")))
	assert.True(t, detail.Rcti.Total.Equal(dec("973.5")))
}

func TestAddJobLinesNoValidJobs(t *testing.T) {
	f := newFixture(t)
	rcti := f.createRcti(t, "2025-06-14")

	_, err := f.svc.AddJobLines(context.Background(), rcti.ID.String(), []string{"junk"}, "tester")
	assert.ErrorIs(t, err, domain.ErrNoValidJobs)

	otherDriver := driverdomain.Driver{ID: f.node.Generate(), Name: "Someone Else"}
	require.NoError(t, f.db.Create(&otherDriver).Error)
	foreign := jobdomain.Job{
		ID: f.node.Generate(), DriverID: otherDriver.ID,
		JobDate: mustDate("2025-06-09"), Customer: "Acme", TruckType: "Tray", Hours: dec("4"),
	}
	require.NoError(t, f.db.Create(&foreign).Error)

	_, err = f.svc.AddJobLines(context.Background(), rcti.ID.String(), []string{foreign.ID.String()}, "tester")
	assert.ErrorIs(t, err, domain.ErrNoValidJobs, "another driver's jobs are not valid for this invoice")
}

func TestAddManualLineValidation(t *testing.T) {
	f := newFixture(t)
	rcti := f.createRcti(t, "2025-06-14")
	ctx := context.Background()

	_, err := f.svc.AddManualLine(ctx, rcti.ID.String(), domain.ManualLineInput{
		JobDate: "2025-06-09", Customer: "  ", TruckType: "Tray",
		ChargedHours: decp("4"), RatePerHour: decp("80"),
	}, "tester")
	assert.ErrorIs(t, err, domain.ErrMissingFields)

	_, err = f.svc.AddManualLine(ctx, rcti.ID.String(), domain.ManualLineInput{
		JobDate: "2025-06-09", Customer: "Acme", TruckType: "Tray",
		ChargedHours: decp("4"),
	}, "tester")
	assert.ErrorIs(t, err, domain.ErrMissingFields)

	_, err = f.svc.AddManualLine(ctx, rcti.ID.String(), domain.ManualLineInput{
		JobDate: "2025-06-09", Customer: "Acme", TruckType: "Tray",
		ChargedHours: decp("-1"), RatePerHour: decp("80"),
	}, "tester")
	assert.ErrorIs(t, err, domain.ErrInvalidAmounts)

	_, err = f.svc.AddManualLine(ctx, rcti.ID.String(), domain.ManualLineInput{
		JobDate: "2025-06-09", Customer: "Acme", TruckType: "Tray",
		ChargedHours: decp("4"), RatePerHour: decp("5000"),
	}, "tester")
	assert.ErrorIs(t, err, domain.ErrInvalidAmounts, "rate above the configured ceiling")
}

func TestAddManualLineScenarioA(t *testing.T) {
	f := newFixture(t)
	rcti := f.createRcti(t, "2025-06-14")

	line, err := f.svc.AddManualLine(context.Background(), rcti.ID.String(), domain.ManualLineInput{
		JobDate:      "2025-06-09",
		Customer:     "Acme Logistics",
		TruckType:    "Tray",
		Description:  "  ",
		ChargedHours: decp("8.5"),
		RatePerHour:  decp("85.00"),
	}, "tester")
	require.NoError(t, err)

	assert.True(t, line.AmountExGst.Equal(dec("722.5")))
	assert.True(t, line.GstAmount.Equal(dec("72.25")))
	assert.True(t, line.AmountIncGst.Equal(dec("794.75")))
	assert.Nil(t, line.Description, "blank description stored as null")
	assert.Nil(t, line.JobID)
}

func TestAddManualLineNotRegisteredScenarioB(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&driverdomain.Driver{}).
		Where("id = ?", f.driver.ID).
		Update("gst_status", driverdomain.GstNotRegistered).Error)
	rcti := f.createRcti(t, "2025-06-14")

	line, err := f.svc.AddManualLine(context.Background(), rcti.ID.String(), domain.ManualLineInput{
		JobDate: "2025-06-09", Customer: "Acme", TruckType: "Tray",
		ChargedHours: decp("8.5"), RatePerHour: decp("85.00"),
	}, "tester")
	require.NoError(t, err)

	assert.True(t, line.GstAmount.IsZero())
	assert.True(t, line.AmountIncGst.Equal(line.AmountExGst))
}

func TestRemoveLine(t *testing.T) {
	f := newFixture(t)
	rcti := f.createRcti(t, "2025-06-14")
	other := f.createRcti(t, "2025-06-21")
	ctx := context.Background()

	line, err := f.svc.AddManualLine(ctx, rcti.ID.String(), domain.ManualLineInput{
		JobDate: "2025-06-09", Customer: "Acme", TruckType: "Tray",
		ChargedHours: decp("4"), RatePerHour: decp("80"),
	}, "tester")
	require.NoError(t, err)

	err = f.svc.RemoveLine(ctx, other.ID.String(), line.ID.String(), "tester")
	assert.ErrorIs(t, err, domain.ErrLineMismatch)

	err = f.svc.RemoveLine(ctx, rcti.ID.String(), f.node.Generate().String(), "tester")
	assert.ErrorIs(t, err, domain.ErrLineNotFound)

	require.NoError(t, f.svc.RemoveLine(ctx, rcti.ID.String(), line.ID.String(), "tester"))

	detail, err := f.svc.GetByID(ctx, rcti.ID.String())
	require.NoError(t, err)
	assert.Empty(t, detail.Rcti.Lines)
	assert.True(t, detail.Rcti.Total.IsZero())
}

func TestFinalizeAppliesDeductions(t *testing.T) {
	f := newFixture(t)
	rcti := f.createRcti(t, "2025-06-14")
	ctx := context.Background()

	_, err := f.svc.AddManualLine(ctx, rcti.ID.String(), domain.ManualLineInput{
		JobDate: "2025-06-09", Customer: "Acme", TruckType: "Tray",
		ChargedHours: decp("5"), RatePerHour: decp("100"),
	}, "tester")
	require.NoError(t, err)

	deduction := deductiondomain.RctiDeduction{
		ID:              f.node.Generate(),
		DriverID:        f.driver.ID,
		Type:            deductiondomain.TypeDeduction,
		Description:     "Fuel card",
		TotalAmount:     dec("300"),
		AmountRemaining: dec("300"),
		AmountPerCycle:  dec("50"),
		Frequency:       deductiondomain.FrequencyWeekly,
		StartDate:       mustDate("2025-06-01"),
		Status:          deductiondomain.StatusActive,
	}
	require.NoError(t, f.db.Create(&deduction).Error)

	detail, err := f.svc.Finalize(ctx, rcti.ID.String(), nil, "tester")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFinalised, detail.Rcti.Status)
	// 5h * 100 = 500 ex, 50 gst, 550 inc; minus the 50 weekly deduction.
	assert.True(t, detail.Rcti.Subtotal.Equal(dec("500")))
	assert.True(t, detail.Rcti.Gst.Equal(dec("50")))
	assert.True(t, detail.Rcti.Total.Equal(dec("500")), "total = %s", detail.Rcti.Total)
	require.Len(t, detail.DeductionApplications, 1)
	assert.True(t, detail.DeductionApplications[0].Amount.Equal(dec("50")))

	_, err = f.svc.Finalize(ctx, rcti.ID.String(), nil, "tester")
	assert.ErrorIs(t, err, domain.ErrFinalizeState, "second finalize must observe the status change")
}

func TestFinalizeRejectsMalformedOverride(t *testing.T) {
	f := newFixture(t)
	rcti := f.createRcti(t, "2025-06-14")
	ctx := context.Background()

	deduction := deductiondomain.RctiDeduction{
		ID:              f.node.Generate(),
		DriverID:        f.driver.ID,
		Type:            deductiondomain.TypeDeduction,
		Description:     "Fuel card",
		TotalAmount:     dec("300"),
		AmountRemaining: dec("300"),
		AmountPerCycle:  dec("50"),
		Frequency:       deductiondomain.FrequencyWeekly,
		StartDate:       mustDate("2025-06-01"),
		Status:          deductiondomain.StatusActive,
	}
	require.NoError(t, f.db.Create(&deduction).Error)

	_, err := f.svc.Finalize(ctx, rcti.ID.String(),
		map[string]any{deduction.ID.String(): true}, "tester")
	assert.ErrorIs(t, err, deductiondomain.ErrInvalidOverride)

	// The whole batch is rejected before the ledger runs, so nothing is
	// partially applied and the invoice never leaves draft.
	var applications int64
	require.NoError(t, f.db.Model(&deductiondomain.RctiDeductionApplication{}).Count(&applications).Error)
	assert.Zero(t, applications)

	var after deductiondomain.RctiDeduction
	require.NoError(t, f.db.First(&after, "id = ?", deduction.ID).Error)
	assert.True(t, after.AmountPaid.IsZero())
	assert.True(t, after.AmountRemaining.Equal(dec("300")))

	detail, err := f.svc.GetByID(ctx, rcti.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, detail.Rcti.Status)
}

func TestMarkPaid(t *testing.T) {
	f := newFixture(t)
	rcti := f.createRcti(t, "2025-06-14")
	ctx := context.Background()

	_, err := f.svc.MarkPaid(ctx, rcti.ID.String(), "tester")
	assert.ErrorIs(t, err, domain.ErrMarkPaidState)

	_, err = f.svc.Finalize(ctx, rcti.ID.String(), nil, "tester")
	require.NoError(t, err)

	paid, err := f.svc.MarkPaid(ctx, rcti.ID.String(), "tester")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
}

func TestRevertToDraftRoundTrip(t *testing.T) {
	f := newFixture(t)
	rcti := f.createRcti(t, "2025-06-14")
	ctx := context.Background()

	_, err := f.svc.AddManualLine(ctx, rcti.ID.String(), domain.ManualLineInput{
		JobDate: "2025-06-09", Customer: "Acme", TruckType: "Tray",
		ChargedHours: decp("5"), RatePerHour: decp("100"),
	}, "tester")
	require.NoError(t, err)

	deduction := deductiondomain.RctiDeduction{
		ID:              f.node.Generate(),
		DriverID:        f.driver.ID,
		Type:            deductiondomain.TypeDeduction,
		Description:     "Damage repayment",
		TotalAmount:     dec("75"),
		AmountRemaining: dec("75"),
		AmountPerCycle:  dec("75"),
		Frequency:       deductiondomain.FrequencyOnce,
		StartDate:       mustDate("2025-06-01"),
		Status:          deductiondomain.StatusActive,
	}
	require.NoError(t, f.db.Create(&deduction).Error)

	_, err = f.svc.Finalize(ctx, rcti.ID.String(), nil, "tester")
	require.NoError(t, err)
	_, err = f.svc.MarkPaid(ctx, rcti.ID.String(), "tester")
	require.NoError(t, err)

	_, err = f.svc.RevertToDraft(ctx, rcti.ID.String(), "  x ", "tester")
	assert.ErrorIs(t, err, domain.ErrReasonTooShort)

	detail, err := f.svc.RevertToDraft(ctx, rcti.ID.String(), "wrong hours entered", "tester")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusDraft, detail.Rcti.Status)
	assert.Nil(t, detail.Rcti.PaidAt)
	require.NotNil(t, detail.Rcti.RevertedToDraftAt)
	require.NotNil(t, detail.Rcti.RevertedToDraftReason)
	assert.Equal(t, "wrong hours entered", *detail.Rcti.RevertedToDraftReason)

	// total is back to subtotal + gst and the ledger is fully unwound
	assert.True(t, detail.Rcti.Total.Equal(detail.Rcti.Subtotal.Add(detail.Rcti.Gst)))
	assert.Empty(t, detail.DeductionApplications)

	var after deductiondomain.RctiDeduction
	require.NoError(t, f.db.First(&after, "id = ?", deduction.ID).Error)
	assert.True(t, after.AmountPaid.IsZero())
	assert.True(t, after.AmountRemaining.Equal(dec("75")))
	assert.Equal(t, deductiondomain.StatusActive, after.Status)

	require.Len(t, detail.Rcti.StatusChanges, 3)
	last := detail.Rcti.StatusChanges[2]
	assert.Equal(t, domain.StatusPaid, last.FromStatus)
	assert.Equal(t, domain.StatusDraft, last.ToStatus)
	require.NotNil(t, last.Reason)

	_, err = f.svc.RevertToDraft(ctx, rcti.ID.String(), "reverting twice", "tester")
	assert.ErrorIs(t, err, domain.ErrRevertState)
}

func TestLifecycleGuardsOnNonDraftLines(t *testing.T) {
	f := newFixture(t)
	rcti := f.createRcti(t, "2025-06-14")
	ctx := context.Background()

	line, err := f.svc.AddManualLine(ctx, rcti.ID.String(), domain.ManualLineInput{
		JobDate: "2025-06-09", Customer: "Acme", TruckType: "Tray",
		ChargedHours: decp("4"), RatePerHour: decp("80"),
	}, "tester")
	require.NoError(t, err)

	_, err = f.svc.Finalize(ctx, rcti.ID.String(), nil, "tester")
	require.NoError(t, err)

	_, err = f.svc.AddManualLine(ctx, rcti.ID.String(), domain.ManualLineInput{
		JobDate: "2025-06-10", Customer: "Acme", TruckType: "Tray",
		ChargedHours: decp("4"), RatePerHour: decp("80"),
	}, "tester")
	assert.ErrorIs(t, err, domain.ErrAddNotDraft)

	err = f.svc.RemoveLine(ctx, rcti.ID.String(), line.ID.String(), "tester")
	assert.ErrorIs(t, err, domain.ErrRemoveNotDraft)
}
