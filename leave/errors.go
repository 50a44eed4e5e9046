package leave

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrOverlap is returned when a new request shares at least one calendar
	// day with a pending or approved request of the same account.
	ErrOverlap = errors.New("leave request overlaps an existing request")

	// ErrNotFound is returned when a referenced account or record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidDate is returned for text that is not a YYYY-MM-DD date.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidTime is returned for text that is not an HH:MM clock time.
	ErrInvalidTime = errors.New("invalid time")

	// ErrInvalidRange is returned when an end date precedes its start date.
	ErrInvalidRange = errors.New("invalid range: end before start")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// OverlapError names the existing request that blocks a submission.
type OverlapError struct {
	Existing Request
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("overlaps %s request %s", e.Existing.LeaveType, RangeLabel(e.Existing.StartDate, e.Existing.EndDate))
}

func (e *OverlapError) Unwrap() error {
	return ErrOverlap
}

// IsUserInput reports whether err was caused by malformed caller input.
func IsUserInput(err error) bool {
	return errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidTime) ||
		errors.Is(err, ErrInvalidRange)
}
