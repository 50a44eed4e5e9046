package mongostate

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/warp/leavebot/conversation"
)

func TestDocument_RoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	st := conversation.State{
		SubjectID: "U1",
		Step:      conversation.StepAwaitReason,
		Payload: conversation.Payload{
			LeaveType: "事假",
			StartDate: "2026-03-02",
			EndDate:   "2026-03-02",
			StartTime: "09:00",
			EndTime:   "13:00",
			Hours:     decimal.NewNullDecimal(decimal.RequireFromString("4")),
		},
		UpdatedAt: at,
	}

	raw, err := bson.Marshal(toDocument(st))
	require.NoError(t, err)

	var doc document
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, "U1", doc.SubjectID)
	assert.Equal(t, "4", doc.Hours)

	got, err := fromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, st.Payload.EndTime, got.Payload.EndTime)
	assert.Equal(t, "4", got.Payload.Hours.Decimal.String())
	assert.True(t, at.Equal(got.UpdatedAt))
}

func TestDocument_NoHours(t *testing.T) {
	doc := toDocument(conversation.State{SubjectID: "U1", Step: conversation.StepAwaitStartDate})
	assert.Empty(t, doc.Hours)

	got, err := fromDocument(doc)
	require.NoError(t, err)
	assert.False(t, got.Payload.Hours.Valid)
}

func TestDocument_BadHours(t *testing.T) {
	_, err := fromDocument(document{SubjectID: "U1", Hours: "abc"})
	assert.Error(t, err)
}

// TestBackend_Live runs against a real server when LEAVEBOT_TEST_MONGO_URI is set.
func TestBackend_Live(t *testing.T) {
	uri := os.Getenv("LEAVEBOT_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("LEAVEBOT_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	b, err := New(ctx, uri, "leavebot_test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		b.coll.Drop(context.Background())
		b.Close(context.Background())
	})

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, b.Save(ctx, conversation.State{SubjectID: "U1", Step: conversation.StepAwaitEndDate, Payload: conversation.Payload{LeaveType: "特休"}, UpdatedAt: now}))
	require.NoError(t, b.Save(ctx, conversation.State{SubjectID: "U1", Step: conversation.StepAwaitFullDay, Payload: conversation.Payload{LeaveType: "特休"}, UpdatedAt: now}))

	got, err := b.Load(ctx, "U1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, conversation.StepAwaitFullDay, got.Step)

	n, err := b.PurgeExpired(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err = b.Load(ctx, "U1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
