package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/warp/leavebot/conversation"
)

// =============================================================================
// CONVERSATION STATE (conversation.Backend interface)
// =============================================================================

// stampLayout is fixed-width so updated_at compares correctly as text.
const stampLayout = "2006-01-02T15:04:05.000000Z"

// Load returns the stored dialog state of subject, or nil.
func (s *Store) Load(ctx context.Context, subjectID string) (*conversation.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st conversation.State
	var step, payload, updatedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT subject_id, step, payload, updated_at FROM conversation_state WHERE subject_id = ?",
		subjectID,
	).Scan(&st.SubjectID, &step, &payload, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	st.Step = conversation.Step(step)
	if err := json.Unmarshal([]byte(payload), &st.Payload); err != nil {
		return nil, fmt.Errorf("decode state payload: %w", err)
	}
	st.UpdatedAt, err = time.Parse(stampLayout, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("decode state timestamp: %w", err)
	}
	return &st, nil
}

// Save upserts the subject's dialog state.
func (s *Store) Save(ctx context.Context, st conversation.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(st.Payload)
	if err != nil {
		return fmt.Errorf("encode state payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversation_state (subject_id, step, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(subject_id) DO UPDATE SET
			step = excluded.step,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		st.SubjectID, string(st.Step), string(payload), st.UpdatedAt.UTC().Format(stampLayout),
	)
	return err
}

// Delete removes the subject's dialog state.
func (s *Store) Delete(ctx context.Context, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM conversation_state WHERE subject_id = ?", subjectID)
	return err
}

// PurgeExpired deletes states last updated before cutoff and returns how many
// rows were removed.
func (s *Store) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM conversation_state WHERE updated_at < ?",
		cutoff.UTC().Format(stampLayout),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
