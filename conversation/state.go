/*
Package conversation keeps the per-user dialog state that survives between
independent webhook deliveries.

PURPOSE:
  Every webhook call is stateless. A multi-step leave application (type ->
  dates -> full day or times -> reason) is carried across calls by persisting
  one State per messaging subject in an external Backend.

EXPIRY:
  A State older than TTL (30 minutes) is treated as absent. Manager.Get
  deletes it on that lookup, so an abandoned dialog never resumes.

BACKENDS:
  store/sqlite:      conversation_state table (default)
  store/redisstate:  JSON value per key with a native key TTL
  store/mongostate:  conversation_state collection

SEE ALSO:
  - action.go: postback payload decoding
  - bot/: the dispatcher driving transitions
*/
package conversation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TTL is how long an idle dialog stays resumable.
const TTL = 30 * time.Minute

// =============================================================================
// STEPS
// =============================================================================

// Step tags where a dialog is waiting. A missing State means idle.
type Step string

const (
	StepAwaitStartDate Step = "await_start_date"
	StepAwaitEndDate   Step = "await_end_date"
	StepAwaitFullDay   Step = "await_full_day"
	StepAwaitStartTime Step = "await_start_time"
	StepAwaitEndTime   Step = "await_end_time"
	StepAwaitReason    Step = "await_reason"
)

func (s Step) Valid() bool {
	switch s {
	case StepAwaitStartDate, StepAwaitEndDate, StepAwaitFullDay,
		StepAwaitStartTime, StepAwaitEndTime, StepAwaitReason:
		return true
	}
	return false
}

// =============================================================================
// STATE
// =============================================================================

// Payload accumulates the values chosen so far. Dates are YYYY-MM-DD and
// times HH:MM; empty means not chosen yet.
type Payload struct {
	LeaveType string              `json:"leaveType,omitempty"`
	StartDate string              `json:"startDate,omitempty"`
	EndDate   string              `json:"endDate,omitempty"`
	StartTime string              `json:"startTime,omitempty"`
	EndTime   string              `json:"endTime,omitempty"`
	Hours     decimal.NullDecimal `json:"hours"`
}

// State is the persisted dialog position of one subject.
type State struct {
	SubjectID string
	Step      Step
	Payload   Payload
	UpdatedAt time.Time
}

// Expired reports whether the state is older than TTL at now.
func (s State) Expired(now time.Time) bool {
	return now.Sub(s.UpdatedAt) > TTL
}

// Backend persists states. Load returns (nil, nil) when nothing is stored.
type Backend interface {
	Load(ctx context.Context, subjectID string) (*State, error)
	Save(ctx context.Context, st State) error
	Delete(ctx context.Context, subjectID string) error
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager enforces expiry on top of a Backend.
type Manager struct {
	backend Backend
	now     func() time.Time
}

func NewManager(backend Backend) *Manager {
	return &Manager{backend: backend, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Get returns the live state for subject, or nil. An expired state is deleted.
func (m *Manager) Get(ctx context.Context, subjectID string) (*State, error) {
	st, err := m.backend.Load(ctx, subjectID)
	if err != nil || st == nil {
		return nil, err
	}
	if st.Expired(m.now()) {
		if err := m.backend.Delete(ctx, subjectID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return st, nil
}

// Set overwrites the subject's state and stamps it with the current time.
func (m *Manager) Set(ctx context.Context, subjectID string, step Step, payload Payload) error {
	return m.backend.Save(ctx, State{
		SubjectID: subjectID,
		Step:      step,
		Payload:   payload,
		UpdatedAt: m.now(),
	})
}

// Clear deletes the subject's state. Clearing an absent state is not an error.
func (m *Manager) Clear(ctx context.Context, subjectID string) error {
	return m.backend.Delete(ctx, subjectID)
}
