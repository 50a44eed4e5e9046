/*
Package sqlite provides the SQLite-backed relational store for the leave bot.

PURPOSE:
  Holds accounts (with their LINE identity link), leave requests, leave-type
  policies, the annual-leave seniority table and the conversation state rows.
  In production the same schema runs on PostgreSQL with only minor dialect
  changes.

KEY TABLES:
  accounts:           Employees; line_user_id is the identity link
  leave_requests:     Submitted leave, inclusive date ranges
  leave_policies:     Leave-type catalog
  annual_leave_rules: Seniority tiers for the Annual type
  conversation_state: One dialog row per LINE subject

INDEXES:
  - idx_accounts_line_user:   unique identity link lookup (hot path, every event)
  - idx_requests_account_dates: overlap and yearly queries
  - idx_requests_status_dates:  monthly roster
  - idx_state_updated:          expiry sweep

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. The overlap check and insert are two
  separate calls; a narrow race between concurrent submissions of one account
  is accepted.

USAGE:
  store, err := sqlite.New("./data/leavebot.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - state.go: conversation.Backend implementation
  - bot/: consumer of every query here
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/leavebot/leave"
)

// Store implements the bot repository and the conversation state backend.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// each connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection, for health probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		name TEXT NOT NULL,
		department TEXT NOT NULL DEFAULT '',
		hire_date TEXT,
		daily_work_hours INTEGER NOT NULL DEFAULT 8,
		line_user_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_email
		ON accounts(lower(email));
	CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_line_user
		ON accounts(line_user_id) WHERE line_user_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		leave_type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		start_time TEXT,
		end_time TEXT,
		hours TEXT,
		created_at TEXT NOT NULL,
		CHECK (start_date <= end_date),
		CHECK (status IN ('pending', 'approved', 'rejected'))
	);

	CREATE INDEX IF NOT EXISTS idx_requests_account_dates
		ON leave_requests(account_id, start_date, end_date);
	CREATE INDEX IF NOT EXISTS idx_requests_status_dates
		ON leave_requests(status, start_date, end_date);

	CREATE TABLE IF NOT EXISTS leave_policies (
		leave_type TEXT PRIMARY KEY,
		default_annual_days INTEGER NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		reminder_threshold_days INTEGER NOT NULL DEFAULT 0,
		reminder_enabled INTEGER NOT NULL DEFAULT 0,
		category TEXT NOT NULL DEFAULT '',
		sort_order INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS annual_leave_rules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		min_months INTEGER NOT NULL,
		max_months INTEGER,
		days INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversation_state (
		subject_id TEXT PRIMARY KEY,
		step TEXT NOT NULL,
		payload TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_state_updated
		ON conversation_state(updated_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ACCOUNTS & IDENTITY
// =============================================================================

// Account is an employee record owned by the web app.
type Account struct {
	ID             string
	Email          string
	Name           string
	Department     string
	HireDate       *time.Time
	DailyWorkHours int
	LineUserID     string
	CreatedAt      time.Time
}

// SaveAccount inserts or updates an account. Without an ID the account is
// matched by email (case-insensitive) and a new ID is generated only when no
// account has that email. The identity link is left alone on update; use
// BindSubject to change it.
func (s *Store) SaveAccount(ctx context.Context, a Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		err := s.db.QueryRowContext(ctx,
			"SELECT id FROM accounts WHERE lower(email) = lower(?)", strings.TrimSpace(a.Email),
		).Scan(&a.ID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("look up account by email: %w", err)
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.DailyWorkHours <= 0 {
		a.DailyWorkHours = leave.DefaultDailyWorkHours
	}

	query := `
		INSERT INTO accounts (id, email, name, department, hire_date, daily_work_hours, line_user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			department = excluded.department,
			hire_date = excluded.hire_date,
			daily_work_hours = excluded.daily_work_hours
	`

	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.Email, a.Name, a.Department, nullDate(a.HireDate), a.DailyWorkHours,
		nullString(a.LineUserID), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetAccount retrieves an account by ID, or nil.
func (s *Store) GetAccount(ctx context.Context, id string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var a Account
	var hireDate, lineUserID sql.NullString
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, department, hire_date, daily_work_hours, line_user_id, created_at
		FROM accounts WHERE id = ?`, id,
	).Scan(&a.ID, &a.Email, &a.Name, &a.Department, &hireDate, &a.DailyWorkHours, &lineUserID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	a.HireDate = parseNullDate(hireDate)
	a.LineUserID = lineUserID.String
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

// IdentityBySubject resolves a LINE user id to its bound account, or nil.
func (s *Store) IdentityBySubject(ctx context.Context, subjectID string) (*leave.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return identityBySubject(ctx, s.db, subjectID)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func identityBySubject(ctx context.Context, q queryer, subjectID string) (*leave.Identity, error) {
	var id leave.Identity
	var hireDate sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT line_user_id, id, name, department, hire_date, daily_work_hours
		FROM accounts WHERE line_user_id = ?`, subjectID,
	).Scan(&id.SubjectID, &id.AccountID, &id.DisplayName, &id.Department, &hireDate, &id.DailyWorkHours)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("identity lookup: %w", err)
	}
	id.HireDate = parseNullDate(hireDate)
	return &id, nil
}

// BindSubject links subjectID to the account whose email matches
// case-insensitively. Any other account holding the same subject is unlinked
// first. Returns leave.ErrNotFound when no account has that email.
func (s *Store) BindSubject(ctx context.Context, email, subjectID string) (*leave.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var accountID string
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM accounts WHERE lower(email) = lower(?)", strings.TrimSpace(email),
	).Scan(&accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %q: %w", email, leave.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE accounts SET line_user_id = NULL WHERE line_user_id = ? AND id <> ?", subjectID, accountID,
	); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE accounts SET line_user_id = ? WHERE id = ?", subjectID, accountID,
	); err != nil {
		return nil, err
	}

	id, err := identityBySubject(ctx, tx, subjectID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return id, nil
}

// =============================================================================
// POLICIES & ANNUAL LEAVE RULES
// =============================================================================

// SavePolicy inserts or updates a leave-type policy.
func (s *Store) SavePolicy(ctx context.Context, p leave.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO leave_policies (leave_type, default_annual_days, description, is_active,
			reminder_threshold_days, reminder_enabled, category, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(leave_type) DO UPDATE SET
			default_annual_days = excluded.default_annual_days,
			description = excluded.description,
			is_active = excluded.is_active,
			reminder_threshold_days = excluded.reminder_threshold_days,
			reminder_enabled = excluded.reminder_enabled,
			category = excluded.category,
			sort_order = excluded.sort_order
	`
	_, err := s.db.ExecContext(ctx, query,
		p.LeaveType, p.DefaultAnnualDays, p.Description, p.IsActive,
		p.ReminderThresholdDays, p.ReminderEnabled, p.Category, p.SortOrder,
	)
	return err
}

// ActivePolicies lists active policies ordered by category, then sort order.
func (s *Store) ActivePolicies(ctx context.Context) ([]leave.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT leave_type, default_annual_days, description, is_active,
			reminder_threshold_days, reminder_enabled, category, sort_order
		FROM leave_policies
		WHERE is_active = 1
		ORDER BY category, sort_order, leave_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []leave.Policy
	for rows.Next() {
		var p leave.Policy
		if err := rows.Scan(&p.LeaveType, &p.DefaultAnnualDays, &p.Description, &p.IsActive,
			&p.ReminderThresholdDays, &p.ReminderEnabled, &p.Category, &p.SortOrder); err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

// AnnualLeaveRules returns the seniority table ordered by min months.
func (s *Store) AnnualLeaveRules(ctx context.Context) ([]leave.AnnualLeaveRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT min_months, max_months, days FROM annual_leave_rules ORDER BY min_months")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []leave.AnnualLeaveRule
	for rows.Next() {
		var r leave.AnnualLeaveRule
		var maxMonths sql.NullInt64
		if err := rows.Scan(&r.MinMonths, &maxMonths, &r.Days); err != nil {
			return nil, err
		}
		if maxMonths.Valid {
			m := int(maxMonths.Int64)
			r.MaxMonths = &m
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// ReplaceAnnualLeaveRules swaps the whole seniority table atomically.
func (s *Store) ReplaceAnnualLeaveRules(ctx context.Context, rules []leave.AnnualLeaveRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM annual_leave_rules"); err != nil {
		return err
	}
	for _, r := range rules {
		var maxMonths sql.NullInt64
		if r.MaxMonths != nil {
			maxMonths = sql.NullInt64{Int64: int64(*r.MaxMonths), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO annual_leave_rules (min_months, max_months, days) VALUES (?, ?, ?)",
			r.MinMonths, maxMonths, r.Days,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

const requestColumns = `id, account_id, leave_type, start_date, end_date, reason, status,
	start_time, end_time, hours, created_at`

// InsertRequest stores a new request. ID, Status and CreatedAt are filled in
// when empty; the stored record is returned.
func (s *Store) InsertRequest(ctx context.Context, r leave.Request) (leave.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = leave.StatusPending
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	var hours sql.NullString
	if r.Hours.Valid {
		hours = sql.NullString{String: r.Hours.Decimal.String(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.AccountID, r.LeaveType, leave.FormatDate(r.StartDate), leave.FormatDate(r.EndDate),
		r.Reason, string(r.Status), nullString(r.StartTime), nullString(r.EndTime), hours,
		r.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return leave.Request{}, fmt.Errorf("insert leave request: %w", err)
	}
	return r, nil
}

// UpdateRequestStatus sets the review outcome of a request.
func (s *Store) UpdateRequestStatus(ctx context.Context, id string, status leave.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "UPDATE leave_requests SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("leave request %s: %w", id, leave.ErrNotFound)
	}
	return nil
}

// FindOverlapping returns one pending or approved request of the account that
// shares a day with [start, end], or nil.
func (s *Store) FindOverlapping(ctx context.Context, accountID string, start, end time.Time) (*leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reqs, err := s.queryRequests(ctx, `
		SELECT `+requestColumns+` FROM leave_requests
		WHERE account_id = ?
			AND status IN ('pending', 'approved')
			AND start_date <= ?
			AND end_date >= ?
		ORDER BY start_date
		LIMIT 1`,
		accountID, leave.FormatDate(end), leave.FormatDate(start),
	)
	if err != nil || len(reqs) == 0 {
		return nil, err
	}
	return &reqs[0], nil
}

// RequestsInYear lists the account's requests starting in year, newest first.
func (s *Store) RequestsInYear(ctx context.Context, accountID string, year int) ([]leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRequests(ctx, `
		SELECT `+requestColumns+` FROM leave_requests
		WHERE account_id = ? AND start_date >= ? AND start_date <= ?
		ORDER BY start_date DESC, created_at DESC`,
		accountID, leave.FormatDate(leave.StartOfYear(year)), leave.FormatDate(leave.EndOfYear(year)),
	)
}

// GetRequest retrieves a request by ID, or nil.
func (s *Store) GetRequest(ctx context.Context, id string) (*leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reqs, err := s.queryRequests(ctx, "SELECT "+requestColumns+" FROM leave_requests WHERE id = ?", id)
	if err != nil || len(reqs) == 0 {
		return nil, err
	}
	return &reqs[0], nil
}

// PendingRequests lists every request awaiting review, oldest first.
func (s *Store) PendingRequests(ctx context.Context) ([]leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRequests(ctx, `
		SELECT `+requestColumns+` FROM leave_requests
		WHERE status = 'pending'
		ORDER BY created_at, start_date`)
}

// ApprovedInRange lists approved requests overlapping [from, to] across all
// accounts, joined with the owner's name and department.
func (s *Store) ApprovedInRange(ctx context.Context, from, to time.Time) ([]leave.RosterEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(a.name, ''), COALESCE(a.department, ''), r.leave_type, r.start_date, r.end_date
		FROM leave_requests r
		LEFT JOIN accounts a ON a.id = r.account_id
		WHERE r.status = 'approved' AND r.start_date <= ? AND r.end_date >= ?
		ORDER BY r.start_date, a.name`,
		leave.FormatDate(to), leave.FormatDate(from),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []leave.RosterEntry
	for rows.Next() {
		var e leave.RosterEntry
		var start, end string
		if err := rows.Scan(&e.Name, &e.Department, &e.LeaveType, &start, &end); err != nil {
			return nil, err
		}
		e.StartDate, _ = leave.ParseDate(start)
		e.EndDate, _ = leave.ParseDate(end)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) queryRequests(ctx context.Context, query string, args ...any) ([]leave.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []leave.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, r)
	}
	return reqs, rows.Err()
}

func scanRequest(rows *sql.Rows) (leave.Request, error) {
	var r leave.Request
	var start, end, status, createdAt string
	var startTime, endTime, hours sql.NullString

	if err := rows.Scan(&r.ID, &r.AccountID, &r.LeaveType, &start, &end, &r.Reason, &status,
		&startTime, &endTime, &hours, &createdAt); err != nil {
		return r, err
	}

	r.StartDate, _ = leave.ParseDate(start)
	r.EndDate, _ = leave.ParseDate(end)
	r.Status = leave.Status(status)
	r.StartTime = startTime.String
	r.EndTime = endTime.String
	if hours.Valid {
		d, err := decimal.NewFromString(hours.String)
		if err != nil {
			return r, fmt.Errorf("request %s hours %q: %w", r.ID, hours.String, err)
		}
		r.Hours = decimal.NewNullDecimal(d)
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return r, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: leave.FormatDate(*t), Valid: true}
}

func parseNullDate(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := leave.ParseDate(s.String)
	if err != nil {
		return nil
	}
	return &t
}
