package leave

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// DateOf truncates t to its calendar date in t's location, returned as UTC midnight.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// InclusiveDays counts calendar days in [start, end]. Returns 0 when end < start.
func InclusiveDays(start, end time.Time) int {
	d := DaysBetween(start, end)
	if d < 0 {
		return 0
	}
	return d + 1
}

// DaysBetween returns the whole-day difference end - start.
func DaysBetween(start, end time.Time) int {
	return int(DateOf(end).Sub(DateOf(start)).Hours() / 24)
}

func StartOfYear(year int) time.Time { return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC) }
func EndOfYear(year int) time.Time   { return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC) }

func StartOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

func EndOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// RangeLabel renders "start" for a single day or "start ~ end".
func RangeLabel(start, end time.Time) string {
	if DateOf(start).Equal(DateOf(end)) {
		return FormatDate(start)
	}
	return FormatDate(start) + " ~ " + FormatDate(end)
}
