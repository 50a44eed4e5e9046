package leave_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leavebot/leave"
)

func date(s string) time.Time {
	d, err := leave.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func upto(n int) *int { return &n }

var sampleRules = []leave.AnnualLeaveRule{
	{MinMonths: 0, MaxMonths: upto(6), Days: 0},
	{MinMonths: 6, MaxMonths: upto(12), Days: 3},
	{MinMonths: 12, MaxMonths: upto(36), Days: 7},
	{MinMonths: 36, MaxMonths: upto(120), Days: 10},
	{MinMonths: 120, MaxMonths: nil, Days: 15},
}

// =============================================================================
// ENTITLEMENT
// =============================================================================

func TestMonthsOfService_IgnoresDayOfMonth(t *testing.T) {
	assert.Equal(t, 1, leave.MonthsOfService(date("2024-01-31"), date("2024-02-01")))
	assert.Equal(t, 0, leave.MonthsOfService(date("2024-01-01"), date("2024-01-31")))
	assert.Equal(t, 25, leave.MonthsOfService(date("2022-11-15"), date("2024-12-01")))
}

func TestAnnualLeaveDays_Tiers(t *testing.T) {
	cases := []struct {
		months int
		want   int
	}{
		{0, 0},
		{5, 0},
		{6, 3},
		{11, 3},
		{12, 7},
		{35, 7},
		{36, 10},
		{119, 10},
		{120, 15},
		{125, 15},
		{132, 16},
		{144, 17},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, leave.AnnualLeaveDays(c.months, sampleRules), "months=%d", c.months)
	}
}

func TestAnnualLeaveDays_OpenTierMonotoneAndCapped(t *testing.T) {
	prev := 0
	for m := 120; m <= 600; m++ {
		got := leave.AnnualLeaveDays(m, sampleRules)
		assert.GreaterOrEqual(t, got, prev, "months=%d", m)
		assert.LessOrEqual(t, got, leave.MaxAnnualLeaveDays, "months=%d", m)
		prev = got
	}
	assert.Equal(t, 30, leave.AnnualLeaveDays(600, sampleRules))
}

func TestAnnualLeaveDays_UnsortedInputNotMutated(t *testing.T) {
	// GIVEN: Rules in reverse order
	rules := []leave.AnnualLeaveRule{sampleRules[4], sampleRules[2], sampleRules[1]}

	// WHEN: Computing
	got := leave.AnnualLeaveDays(13, rules)

	// THEN: Correct tier is found and caller slice is untouched
	assert.Equal(t, 7, got)
	assert.Equal(t, 120, rules[0].MinMonths)
}

func TestAnnualLeaveDays_OpenTierBelowMinimum(t *testing.T) {
	rules := []leave.AnnualLeaveRule{{MinMonths: 24, MaxMonths: nil, Days: 10}}
	assert.Equal(t, 0, leave.AnnualLeaveDays(12, rules))
	assert.Equal(t, 10, leave.AnnualLeaveDays(24, rules))
}

func TestEntitlement_NoData(t *testing.T) {
	now := date("2026-03-01")
	hire := date("2020-01-01")

	_, ok := leave.Entitlement(nil, sampleRules, now)
	assert.False(t, ok)

	_, ok = leave.Entitlement(&hire, nil, now)
	assert.False(t, ok)

	days, ok := leave.Entitlement(&hire, sampleRules, now)
	require.True(t, ok)
	assert.Equal(t, 10, days)
}

func TestEntitledDays_AnnualOverride(t *testing.T) {
	now := date("2026-03-01")
	hire := date("2025-06-01")
	annual := leave.Policy{LeaveType: leave.AnnualLeaveType, DefaultAnnualDays: 7}
	sick := leave.Policy{LeaveType: "病假", DefaultAnnualDays: 30}

	assert.Equal(t, 3, leave.EntitledDays(annual, &hire, sampleRules, now))
	assert.Equal(t, 7, leave.EntitledDays(annual, nil, sampleRules, now))
	assert.Equal(t, 30, leave.EntitledDays(sick, &hire, sampleRules, now))
}

// =============================================================================
// HOUR ACCRUAL
// =============================================================================

func TestParseClock(t *testing.T) {
	h, err := leave.ParseClock("13:30")
	require.NoError(t, err)
	assert.True(t, h.Equal(decimal.RequireFromString("13.5")))

	for _, bad := range []string{"", "9", "25:00", "09:60", "ab:cd", "09:5"} {
		_, err := leave.ParseClock(bad)
		assert.ErrorIs(t, err, leave.ErrInvalidTime, bad)
	}
}

func TestLeaveHours_SameDay(t *testing.T) {
	d := date("2026-03-02")
	got, err := leave.LeaveHours(d, d, "09:00", "18:00", leave.DefaultSchedule())
	require.NoError(t, err)
	assert.Equal(t, "9", got.String())

	got, err = leave.LeaveHours(d, d, "09:00", "11:20", leave.DefaultSchedule())
	require.NoError(t, err)
	assert.Equal(t, "2.5", got.String())

	got, err = leave.LeaveHours(d, d, "14:00", "10:00", leave.DefaultSchedule())
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestLeaveHours_MultiDay(t *testing.T) {
	// GIVEN: Wednesday-spanning request 09:00 to 18:00 on a 09:00-18:00, 8h schedule
	got, err := leave.LeaveHours(date("2025-03-03"), date("2025-03-05"), "09:00", "18:00", leave.DefaultSchedule())

	// THEN: first day 9h + one middle day 8h + last day 9h
	require.NoError(t, err)
	assert.Equal(t, "26", got.String())
}

func TestLeaveHours_MultiDay_DerivedWorkEnd(t *testing.T) {
	// GIVEN: No explicit work-day end, so it is WorkStart + Daily (17:00)
	sched := leave.Schedule{WorkStart: "09:00", Daily: decimal.NewFromInt(8)}

	got, err := leave.LeaveHours(date("2025-03-03"), date("2025-03-04"), "13:00", "12:00", sched)

	// THEN: 4h on the first day, 3h on the last
	require.NoError(t, err)
	assert.Equal(t, "7", got.String())
}

func TestSchedule_End(t *testing.T) {
	assert.Equal(t, "18:00", leave.DefaultSchedule().End())
	assert.Equal(t, "15:00", leave.Schedule{WorkStart: "09:00", Daily: decimal.NewFromInt(6)}.End())
	assert.Equal(t, "14:00", leave.Schedule{WorkStart: "08:30", Daily: decimal.RequireFromString("5.5")}.End())
	assert.Equal(t, "", leave.Schedule{WorkStart: "nine", Daily: decimal.NewFromInt(8)}.End())
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "09:30", leave.FormatClock(decimal.RequireFromString("9.5")))
	assert.Equal(t, "00:00", leave.FormatClock(decimal.NewFromInt(-2)))
	assert.Equal(t, "23:59", leave.FormatClock(decimal.NewFromInt(30)))
}

func TestLeaveHours_EndBeforeStart(t *testing.T) {
	_, err := leave.LeaveHours(date("2025-03-05"), date("2025-03-03"), "09:00", "18:00", leave.DefaultSchedule())
	assert.ErrorIs(t, err, leave.ErrInvalidRange)
	assert.True(t, leave.IsUserInput(err))
}

func TestFormatHours(t *testing.T) {
	eight := decimal.NewFromInt(8)
	cases := map[string]string{
		"12":  "1d 4h",
		"16":  "2d",
		"4.5": "4.5h",
		"0":   "0h",
		"-3":  "0h",
		"8.5": "1d 0.5h",
	}
	for in, want := range cases {
		assert.Equal(t, want, leave.FormatHours(decimal.RequireFromString(in), eight), in)
	}
}

func TestInclusiveDaysAndFullDay(t *testing.T) {
	assert.Equal(t, 1, leave.InclusiveDays(date("2026-03-02"), date("2026-03-02")))
	assert.Equal(t, 3, leave.InclusiveDays(date("2026-02-27"), date("2026-03-01")))
	assert.Equal(t, 0, leave.InclusiveDays(date("2026-03-02"), date("2026-03-01")))
	assert.Equal(t, "24", leave.FullDayHours(3, decimal.NewFromInt(8)).String())
}

func TestRequest_HoursOrDays(t *testing.T) {
	eight := decimal.NewFromInt(8)
	r := leave.Request{StartDate: date("2026-03-02"), EndDate: date("2026-03-03")}
	assert.Equal(t, "16", r.HoursOrDays(eight).String())

	r.Hours = decimal.NewNullDecimal(decimal.RequireFromString("4.5"))
	assert.Equal(t, "4.5", r.HoursOrDays(eight).String())
}

// =============================================================================
// OVERLAP
// =============================================================================

func TestOverlaps_Inclusive(t *testing.T) {
	// GIVEN: An existing approved request 2026-02-20..22
	existing := []leave.Request{{
		LeaveType: "事假",
		StartDate: date("2026-02-20"),
		EndDate:   date("2026-02-22"),
		Status:    leave.StatusApproved,
	}}

	// THEN: Touching end day overlaps, the next day does not
	assert.NotNil(t, leave.FindOverlap(existing, date("2026-02-22"), date("2026-02-23")))
	assert.Nil(t, leave.FindOverlap(existing, date("2026-02-23"), date("2026-02-24")))
	assert.NotNil(t, leave.FindOverlap(existing, date("2026-02-18"), date("2026-02-20")))
	assert.NotNil(t, leave.FindOverlap(existing, date("2026-02-01"), date("2026-02-28")))
}

func TestFindOverlap_IgnoresRejected(t *testing.T) {
	existing := []leave.Request{{
		StartDate: date("2026-02-20"),
		EndDate:   date("2026-02-22"),
		Status:    leave.StatusRejected,
	}}
	assert.Nil(t, leave.FindOverlap(existing, date("2026-02-21"), date("2026-02-21")))
}

func TestOverlapError_Unwraps(t *testing.T) {
	err := &leave.OverlapError{Existing: leave.Request{LeaveType: "病假", StartDate: date("2026-02-20"), EndDate: date("2026-02-22")}}
	assert.True(t, errors.Is(err, leave.ErrOverlap))
	assert.Contains(t, err.Error(), "2026-02-20 ~ 2026-02-22")
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := leave.ParseDate("2026-13-01")
	assert.ErrorIs(t, err, leave.ErrInvalidDate)
	assert.Equal(t, "2026-03-01", leave.FormatDate(date("2026-03-01")))
	assert.Equal(t, date("2026-02-28"), leave.EndOfMonth(2026, time.February))
}
