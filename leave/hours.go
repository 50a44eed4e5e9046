package leave

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	two   = decimal.NewFromInt(2)
	sixty = decimal.NewFromInt(60)
)

// Schedule is the working-day configuration used for hour accrual.
type Schedule struct {
	WorkStart string          // "HH:MM"
	WorkEnd   string          // "HH:MM"; empty means WorkStart + Daily
	Daily     decimal.Decimal // hours per full day
}

// DefaultSchedule is 09:00-18:00 with an 8 hour day.
func DefaultSchedule() Schedule {
	return Schedule{
		WorkStart: DefaultWorkStart,
		WorkEnd:   DefaultWorkEnd,
		Daily:     decimal.NewFromInt(DefaultDailyWorkHours),
	}
}

// WithDaily returns a copy with a different daily-hours value.
func (s Schedule) WithDaily(daily decimal.Decimal) Schedule {
	s.Daily = daily
	return s
}

// End returns the end of the working day as "HH:MM": WorkEnd when set,
// otherwise WorkStart + Daily. It returns "" when WorkStart is malformed.
func (s Schedule) End() string {
	if s.WorkEnd != "" {
		return s.WorkEnd
	}
	ws, err := ParseClock(s.WorkStart)
	if err != nil {
		return ""
	}
	return FormatClock(ws.Add(s.Daily))
}

// FormatClock renders fractional hours as "HH:MM", clamped to 00:00-23:59.
func FormatClock(h decimal.Decimal) string {
	mins := h.Mul(sixty).Round(0).IntPart()
	mins = max(0, min(mins, 23*60+59))
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// ParseClock converts "HH:MM" to fractional hours.
func ParseClock(s string) (decimal.Decimal, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 || len(hh) > 2 {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || len(mm) != 2 {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return decimal.NewFromInt(int64(h)).Add(decimal.NewFromInt(int64(m)).Div(sixty)), nil
}

// roundHalf rounds to the nearest 0.5 and clamps negatives to zero.
func roundHalf(d decimal.Decimal) decimal.Decimal {
	r := d.Mul(two).Round(0).Div(two)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// LeaveHours computes the hours consumed by a request from start date/time to
// end date/time.
//
// On a single day it is the clock difference. Across days the first day runs
// from startTime to the end of the work day, the last day from the start of the
// work day to endTime, and every day in between counts as a full day. Each
// partial day is rounded to the nearest half hour. No break is deducted.
func LeaveHours(start, end time.Time, startTime, endTime string, sched Schedule) (decimal.Decimal, error) {
	if DaysBetween(start, end) < 0 {
		return decimal.Zero, ErrInvalidRange
	}
	st, err := ParseClock(startTime)
	if err != nil {
		return decimal.Zero, err
	}
	et, err := ParseClock(endTime)
	if err != nil {
		return decimal.Zero, err
	}

	dayDiff := DaysBetween(start, end)
	if dayDiff == 0 {
		return roundHalf(et.Sub(st)), nil
	}

	ws, err := ParseClock(sched.WorkStart)
	if err != nil {
		return decimal.Zero, err
	}
	we := ws.Add(sched.Daily)
	if sched.WorkEnd != "" {
		if we, err = ParseClock(sched.WorkEnd); err != nil {
			return decimal.Zero, err
		}
	}

	first := roundHalf(we.Sub(st))
	last := roundHalf(et.Sub(ws))
	middle := sched.Daily.Mul(decimal.NewFromInt(int64(max(0, dayDiff-1))))
	return first.Add(middle).Add(last), nil
}

// FullDayHours is days x daily.
func FullDayHours(days int, daily decimal.Decimal) decimal.Decimal {
	return daily.Mul(decimal.NewFromInt(int64(days)))
}

// FormatHours renders hours as "Dd Hh" with the zero component omitted,
// e.g. 12h with an 8h day is "1d 4h". Non-positive totals render as "0h".
func FormatHours(total, daily decimal.Decimal) string {
	if !total.IsPositive() {
		return "0h"
	}
	if !daily.IsPositive() {
		return total.String() + "h"
	}
	days := total.Div(daily).Floor()
	rest := total.Sub(days.Mul(daily))

	switch {
	case days.IsZero():
		return rest.String() + "h"
	case rest.IsZero():
		return days.String() + "d"
	default:
		return days.String() + "d " + rest.String() + "h"
	}
}
