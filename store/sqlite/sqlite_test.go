package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leavebot/conversation"
	"github.com/warp/leavebot/leave"
	"github.com/warp/leavebot/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func date(s string) time.Time {
	d, err := leave.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedAccount(t *testing.T, store *sqlite.Store, id, email, name string) {
	hire := date("2023-01-15")
	require.NoError(t, store.SaveAccount(context.Background(), sqlite.Account{
		ID:         id,
		Email:      email,
		Name:       name,
		Department: "研發",
		HireDate:   &hire,
	}))
}

// =============================================================================
// IDENTITY BINDING
// =============================================================================

func TestBindSubject_CaseInsensitiveEmail(t *testing.T) {
	// GIVEN: An account with a mixed-case email
	store := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, store, "acc-1", "Amy.Chen@Example.com", "陳艾咪")

	// WHEN: Binding with a lowercased email
	id, err := store.BindSubject(ctx, "amy.chen@example.com", "U1")

	// THEN: The identity resolves with profile fields
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "acc-1", id.AccountID)
	assert.Equal(t, "陳艾咪", id.DisplayName)
	assert.Equal(t, 8, id.DailyWorkHours)
	require.NotNil(t, id.HireDate)
	assert.Equal(t, "2023-01-15", leave.FormatDate(*id.HireDate))

	got, err := store.IdentityBySubject(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestBindSubject_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.BindSubject(context.Background(), "ghost@example.com", "U1")
	assert.ErrorIs(t, err, leave.ErrNotFound)

	id, err := store.IdentityBySubject(context.Background(), "U1")
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestBindSubject_LastWriteWins(t *testing.T) {
	// GIVEN: Subject U1 bound to account A
	store := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, store, "acc-a", "a@example.com", "A")
	seedAccount(t, store, "acc-b", "b@example.com", "B")
	_, err := store.BindSubject(ctx, "a@example.com", "U1")
	require.NoError(t, err)

	// WHEN: U1 binds to account B
	_, err = store.BindSubject(ctx, "b@example.com", "U1")
	require.NoError(t, err)

	// THEN: Only B holds the link
	id, err := store.IdentityBySubject(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "acc-b", id.AccountID)

	a, err := store.GetAccount(ctx, "acc-a")
	require.NoError(t, err)
	assert.Empty(t, a.LineUserID)
}

// =============================================================================
// POLICIES & RULES
// =============================================================================

func TestSaveAccount_WithoutIDUpdatesByEmail(t *testing.T) {
	// GIVEN: An existing bound account
	store := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, store, "acc-1", "amy@example.com", "Amy")
	_, err := store.BindSubject(ctx, "amy@example.com", "U1")
	require.NoError(t, err)

	// WHEN: Saving again by email only, with different case
	require.NoError(t, store.SaveAccount(ctx, sqlite.Account{
		Email:          "AMY@example.com",
		Name:           "Amy Chen",
		Department:     "業務",
		DailyWorkHours: 6,
	}))

	// THEN: The same account is updated and stays bound
	acc, err := store.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, "Amy Chen", acc.Name)
	assert.Equal(t, "業務", acc.Department)
	assert.Equal(t, 6, acc.DailyWorkHours)
	assert.Equal(t, "U1", acc.LineUserID)

	id, err := store.IdentityBySubject(ctx, "U1")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "acc-1", id.AccountID)
}

func TestSaveAccount_WithoutIDCreatesNew(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAccount(ctx, sqlite.Account{Email: "bob@example.com", Name: "Bob"}))

	id, err := store.BindSubject(ctx, "bob@example.com", "U2")
	require.NoError(t, err)
	assert.NotEmpty(t, id.AccountID)
	assert.Equal(t, "Bob", id.DisplayName)
}

func TestActivePolicies_OrderAndFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, p := range leave.DefaultPolicies() {
		require.NoError(t, store.SavePolicy(ctx, p))
	}
	require.NoError(t, store.SavePolicy(ctx, leave.Policy{LeaveType: "補休", IsActive: false, Category: "a"}))

	got, err := store.ActivePolicies(ctx)
	require.NoError(t, err)
	require.Len(t, got, 6)

	var types []string
	for _, p := range got {
		types = append(types, p.LeaveType)
	}
	assert.Equal(t, []string{"婚假", "喪假", "產假", "特休", "病假", "事假"}, types)
}

func TestAnnualLeaveRules_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.ReplaceAnnualLeaveRules(ctx, leave.StatutoryAnnualRules()))

	rules, err := store.AnnualLeaveRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 7)
	assert.Nil(t, rules[6].MaxMonths)
	assert.Equal(t, 16, rules[6].Days)
	assert.Equal(t, 12, *rules[1].MaxMonths)

	// Replacing is idempotent
	require.NoError(t, store.ReplaceAnnualLeaveRules(ctx, leave.StatutoryAnnualRules()))
	rules, err = store.AnnualLeaveRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 7)
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

func TestFindOverlapping_InclusiveBounds(t *testing.T) {
	// GIVEN: An approved request 2026-02-20..22
	store := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, store, "acc-1", "a@example.com", "A")
	r, err := store.InsertRequest(ctx, leave.Request{
		AccountID: "acc-1", LeaveType: "事假",
		StartDate: date("2026-02-20"), EndDate: date("2026-02-22"),
	})
	require.NoError(t, err)
	require.NoError(t, store.UpdateRequestStatus(ctx, r.ID, leave.StatusApproved))

	// THEN: 22..23 overlaps, 23..24 does not
	hit, err := store.FindOverlapping(ctx, "acc-1", date("2026-02-22"), date("2026-02-23"))
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "事假", hit.LeaveType)

	miss, err := store.FindOverlapping(ctx, "acc-1", date("2026-02-23"), date("2026-02-24"))
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestFindOverlapping_IgnoresRejectedAndOtherAccounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, store, "acc-1", "a@example.com", "A")
	seedAccount(t, store, "acc-2", "b@example.com", "B")

	r, err := store.InsertRequest(ctx, leave.Request{AccountID: "acc-1", LeaveType: "病假", StartDate: date("2026-04-01"), EndDate: date("2026-04-01")})
	require.NoError(t, err)
	require.NoError(t, store.UpdateRequestStatus(ctx, r.ID, leave.StatusRejected))
	_, err = store.InsertRequest(ctx, leave.Request{AccountID: "acc-2", LeaveType: "病假", StartDate: date("2026-04-01"), EndDate: date("2026-04-01")})
	require.NoError(t, err)

	hit, err := store.FindOverlapping(ctx, "acc-1", date("2026-04-01"), date("2026-04-01"))
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestInsertRequest_DefaultsAndHours(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, store, "acc-1", "a@example.com", "A")

	r, err := store.InsertRequest(ctx, leave.Request{
		AccountID: "acc-1", LeaveType: "特休",
		StartDate: date("2026-03-02"), EndDate: date("2026-03-02"),
		StartTime: "09:00", EndTime: "18:00",
		Hours:  decimal.NewNullDecimal(decimal.RequireFromString("8")),
		Reason: "dentist",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, leave.StatusPending, r.Status)

	reqs, err := store.RequestsInYear(ctx, "acc-1", 2026)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "dentist", reqs[0].Reason)
	assert.Equal(t, "09:00", reqs[0].StartTime)
	assert.True(t, reqs[0].Hours.Valid)
	assert.Equal(t, "8", reqs[0].Hours.Decimal.String())
}

func TestInsertRequest_UnknownAccountFails(t *testing.T) {
	store := newTestStore(t)
	_, err := store.InsertRequest(context.Background(), leave.Request{
		AccountID: "nobody", LeaveType: "特休",
		StartDate: date("2026-03-02"), EndDate: date("2026-03-02"),
	})
	assert.Error(t, err)
}

func TestRequestsInYear_NewestFirstAndYearScoped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, store, "acc-1", "a@example.com", "A")
	for _, d := range []string{"2025-12-30", "2026-01-05", "2026-06-01", "2026-03-02"} {
		_, err := store.InsertRequest(ctx, leave.Request{AccountID: "acc-1", LeaveType: "特休", StartDate: date(d), EndDate: date(d)})
		require.NoError(t, err)
	}

	reqs, err := store.RequestsInYear(ctx, "acc-1", 2026)
	require.NoError(t, err)
	var got []string
	for _, r := range reqs {
		got = append(got, leave.FormatDate(r.StartDate))
	}
	assert.Equal(t, []string{"2026-06-01", "2026-03-02", "2026-01-05"}, got)
}

func TestApprovedInRange_JoinsProfile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, store, "acc-1", "a@example.com", "王小明")

	inMonth, err := store.InsertRequest(ctx, leave.Request{AccountID: "acc-1", LeaveType: "特休", StartDate: date("2026-02-27"), EndDate: date("2026-03-02")})
	require.NoError(t, err)
	require.NoError(t, store.UpdateRequestStatus(ctx, inMonth.ID, leave.StatusApproved))
	_, err = store.InsertRequest(ctx, leave.Request{AccountID: "acc-1", LeaveType: "病假", StartDate: date("2026-03-10"), EndDate: date("2026-03-10")})
	require.NoError(t, err)

	entries, err := store.ApprovedInRange(ctx, leave.StartOfMonth(2026, time.March), leave.EndOfMonth(2026, time.March))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "王小明", entries[0].Name)
	assert.Equal(t, "研發", entries[0].Department)
	assert.Equal(t, "2026-02-27", leave.FormatDate(entries[0].StartDate))
}

func TestUpdateRequestStatus_NotFound(t *testing.T) {
	store := newTestStore(t)
	err := store.UpdateRequestStatus(context.Background(), "missing", leave.StatusApproved)
	assert.ErrorIs(t, err, leave.ErrNotFound)
}

// =============================================================================
// CONVERSATION STATE
// =============================================================================

func TestStateBackend_WithManager(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m := conversation.NewManager(store).WithClock(func() time.Time { return now })

	payload := conversation.Payload{LeaveType: "特休", StartDate: "2026-03-02", Hours: decimal.NewNullDecimal(decimal.RequireFromString("4.5"))}
	require.NoError(t, m.Set(ctx, "U1", conversation.StepAwaitReason, payload))

	now = now.Add(29 * time.Minute)
	st, err := m.Get(ctx, "U1")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, conversation.StepAwaitReason, st.Step)
	assert.Equal(t, "特休", st.Payload.LeaveType)
	assert.Equal(t, "4.5", st.Payload.Hours.Decimal.String())

	now = now.Add(2 * time.Minute)
	st, err = m.Get(ctx, "U1")
	require.NoError(t, err)
	assert.Nil(t, st)

	raw, err := store.Load(ctx, "U1")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestPurgeExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, conversation.State{SubjectID: "old", Step: conversation.StepAwaitStartDate, UpdatedAt: base}))
	require.NoError(t, store.Save(ctx, conversation.State{SubjectID: "fresh", Step: conversation.StepAwaitStartDate, UpdatedAt: base.Add(40*time.Minute + 500*time.Millisecond)}))

	n, err := store.PurgeExpired(ctx, base.Add(40*time.Minute).Add(-conversation.TTL))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	st, err := store.Load(ctx, "fresh")
	require.NoError(t, err)
	assert.NotNil(t, st)
}

func TestPendingRequests_AndGetRequest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, store, "acc-1", "a@example.com", "A")

	a, err := store.InsertRequest(ctx, leave.Request{AccountID: "acc-1", LeaveType: "特休", StartDate: date("2026-03-02"), EndDate: date("2026-03-02"), CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	b, err := store.InsertRequest(ctx, leave.Request{AccountID: "acc-1", LeaveType: "病假", StartDate: date("2026-01-02"), EndDate: date("2026-01-02"), CreatedAt: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	c, err := store.InsertRequest(ctx, leave.Request{AccountID: "acc-1", LeaveType: "事假", StartDate: date("2026-04-02"), EndDate: date("2026-04-02")})
	require.NoError(t, err)
	require.NoError(t, store.UpdateRequestStatus(ctx, c.ID, leave.StatusApproved))

	pending, err := store.PendingRequests(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, a.ID, pending[0].ID)
	assert.Equal(t, b.ID, pending[1].ID)

	got, err := store.GetRequest(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, leave.StatusApproved, got.Status)

	missing, err := store.GetRequest(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
