package conversation_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leavebot/conversation"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newManager() (*conversation.Manager, *conversation.MemoryBackend, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	backend := conversation.NewMemoryBackend()
	return conversation.NewManager(backend).WithClock(clock.Now), backend, clock
}

// =============================================================================
// STATE EXPIRY
// =============================================================================

func TestManager_ExpiredStateDeletedOnRead(t *testing.T) {
	// GIVEN: A state written at T
	m, backend, clock := newManager()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "U1", conversation.StepAwaitStartDate, conversation.Payload{LeaveType: "特休"}))

	// WHEN: Reading at T+31m
	clock.Advance(31 * time.Minute)
	st, err := m.Get(ctx, "U1")

	// THEN: Absent, and the row is gone
	require.NoError(t, err)
	assert.Nil(t, st)
	assert.Equal(t, 0, backend.Len())
}

func TestManager_LiveStateReturnedUnchanged(t *testing.T) {
	m, _, clock := newManager()
	ctx := context.Background()
	payload := conversation.Payload{
		LeaveType: "特休",
		StartDate: "2026-03-02",
		EndDate:   "2026-03-02",
		Hours:     decimal.NewNullDecimal(decimal.NewFromInt(8)),
	}
	require.NoError(t, m.Set(ctx, "U1", conversation.StepAwaitReason, payload))
	written := clock.Now()

	clock.Advance(29 * time.Minute)
	st, err := m.Get(ctx, "U1")

	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, conversation.StepAwaitReason, st.Step)
	assert.Equal(t, payload, st.Payload)
	assert.Equal(t, written, st.UpdatedAt)
}

func TestManager_SetRefreshesTimestamp(t *testing.T) {
	m, _, clock := newManager()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "U1", conversation.StepAwaitStartDate, conversation.Payload{}))

	clock.Advance(20 * time.Minute)
	require.NoError(t, m.Set(ctx, "U1", conversation.StepAwaitEndDate, conversation.Payload{StartDate: "2026-03-02"}))
	clock.Advance(20 * time.Minute)

	st, err := m.Get(ctx, "U1")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, conversation.StepAwaitEndDate, st.Step)
}

func TestManager_ClearAbsentIsNoop(t *testing.T) {
	m, _, _ := newManager()
	assert.NoError(t, m.Clear(context.Background(), "nobody"))
}

// =============================================================================
// ACTION CODEC
// =============================================================================

func TestAction_EncodeDecodeRoundTrip(t *testing.T) {
	actions := []conversation.Action{
		conversation.SelectLeave{Type: "特休"},
		conversation.ShowOtherTypes{Offset: 9},
		conversation.ShowOtherTypes{},
		conversation.ShowAllBalance{},
		conversation.SameDay{},
		conversation.FullDay{},
		conversation.PickTime{},
		conversation.SetStartTime{Time: "10:00"},
		conversation.SetEndTime{Time: "17:30"},
		conversation.SkipReason{},
		conversation.Cancel{},
	}
	for _, a := range actions {
		got, err := conversation.Decode(conversation.Encode(a), conversation.Params{})
		require.NoError(t, err, a.Kind())
		assert.Equal(t, a, got)
	}
}

func TestDecode_PickerParamsTakePrecedence(t *testing.T) {
	got, err := conversation.Decode("action=pick_start_date", conversation.Params{Date: "2026-03-02"})
	require.NoError(t, err)
	assert.Equal(t, conversation.PickStartDate{Date: "2026-03-02"}, got)

	got, err = conversation.Decode("action=set_end_time&time=12:00", conversation.Params{Time: "15:30"})
	require.NoError(t, err)
	assert.Equal(t, conversation.SetEndTime{Time: "15:30"}, got)

	got, err = conversation.Decode("action=set_start_time&time=10:00", conversation.Params{})
	require.NoError(t, err)
	assert.Equal(t, conversation.SetStartTime{Time: "10:00"}, got)
}

func TestDecode_Unknown(t *testing.T) {
	for _, data := range []string{"", "action=explode", "foo=bar", "action=select_leave"} {
		_, err := conversation.Decode(data, conversation.Params{})
		assert.ErrorIs(t, err, conversation.ErrUnknownAction, data)
	}
}

func TestExpectedStep(t *testing.T) {
	step, ok := conversation.ExpectedStep(conversation.SameDay{})
	assert.True(t, ok)
	assert.Equal(t, conversation.StepAwaitEndDate, step)

	_, ok = conversation.ExpectedStep(conversation.SelectLeave{Type: "病假"})
	assert.False(t, ok)
	_, ok = conversation.ExpectedStep(conversation.Cancel{})
	assert.False(t, ok)
}
