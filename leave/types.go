/*
Package leave holds the leave domain: requests, policies, seniority tiers and
the pure calculators shared by the chat controller and the web app.

KEY CONCEPTS:
  - LeaveRequest:    One submitted leave record (inclusive date range, optional
                     time window and decimal hours).
  - Policy:          A configured leave category with its default annual days.
  - AnnualLeaveRule: One seniority tier used to derive the Annual entitlement.
  - Identity:        A messaging-platform user bound to an application account.

CALCULATORS:
  - entitlement.go: months of service -> annual leave days
  - hours.go:       date/time range -> decimal leave hours
  - overlap.go:     inclusive date-range overlap

SEE ALSO:
  - bot/: the dispatcher that drives these calculators
  - store/sqlite: persistence of every type in this file
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// AnnualLeaveType is the distinguished policy whose entitlement is derived
// from seniority instead of the policy's default days.
const AnnualLeaveType = "特休"

// DefaultDailyWorkHours is used when an account has no explicit setting.
const DefaultDailyWorkHours = 8

// Default working window used for full-day requests.
const (
	DefaultWorkStart = "09:00"
	DefaultWorkEnd   = "18:00"
)

// =============================================================================
// REQUEST STATUS
// =============================================================================

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Blocking reports whether a request in this status reserves its dates.
func (s Status) Blocking() bool {
	return s == StatusPending || s == StatusApproved
}

// BlockingStatuses are the statuses considered by overlap and balance queries.
var BlockingStatuses = []Status{StatusPending, StatusApproved}

// =============================================================================
// LEAVE REQUEST
// =============================================================================

// Request is one submitted leave record. StartDate and EndDate are calendar
// dates (UTC midnight) and the range is inclusive on both ends.
type Request struct {
	ID        string
	AccountID string
	LeaveType string
	StartDate time.Time
	EndDate   time.Time
	Reason    string
	Status    Status
	StartTime string // "HH:MM", empty when not given
	EndTime   string
	Hours     decimal.NullDecimal
	CreatedAt time.Time
}

// DateLabel renders the range as a single date or "start ~ end".
func (r Request) DateLabel() string {
	return RangeLabel(r.StartDate, r.EndDate)
}

// HoursOrDays returns the stored hours, or the full-day equivalent when the
// request was created without hours.
func (r Request) HoursOrDays(daily decimal.Decimal) decimal.Decimal {
	if r.Hours.Valid {
		return r.Hours.Decimal
	}
	return FullDayHours(InclusiveDays(r.StartDate, r.EndDate), daily)
}

// =============================================================================
// POLICIES AND SENIORITY TIERS
// =============================================================================

// Policy is a configured leave category.
type Policy struct {
	LeaveType             string
	DefaultAnnualDays     int
	Description           string
	IsActive              bool
	ReminderThresholdDays int
	ReminderEnabled       bool
	Category              string
	SortOrder             int
}

// AnnualLeaveRule is one seniority tier. MaxMonths == nil marks the terminal,
// open-ended tier.
type AnnualLeaveRule struct {
	MinMonths int
	MaxMonths *int
	Days      int
}

// =============================================================================
// IDENTITY
// =============================================================================

// Identity binds a messaging-platform subject to an application account.
type Identity struct {
	SubjectID      string
	AccountID      string
	DisplayName    string
	Department     string
	HireDate       *time.Time
	DailyWorkHours int
}

// DailyHours returns the configured daily hours, falling back to fallback
// (and then to DefaultDailyWorkHours) when unset.
func (id Identity) DailyHours(fallback int) decimal.Decimal {
	if id.DailyWorkHours > 0 {
		return decimal.NewFromInt(int64(id.DailyWorkHours))
	}
	if fallback > 0 {
		return decimal.NewFromInt(int64(fallback))
	}
	return decimal.NewFromInt(DefaultDailyWorkHours)
}

// RosterEntry is an approved request joined with its owner's profile.
type RosterEntry struct {
	Name       string
	Department string
	LeaveType  string
	StartDate  time.Time
	EndDate    time.Time
}
