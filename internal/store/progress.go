package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/examdrill/internal/attempt"
)

// Key identifies one progress record. TrialID is empty for progress written
// before trials existed (the implicit Trial #1).
type Key struct {
	User    string
	SetID   string
	TrialID string
}

// LoadProgress returns the persisted state for key with CurrentIndex clamped
// to questionCount. A missing or corrupt row yields a fresh empty state:
// malformed persisted data must never block the user from continuing.
func (s *Store) LoadProgress(ctx context.Context, key Key, questionCount int) (attempt.ProgressState, error) {
	var stateJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT state_json FROM progress WHERE user_id = ? AND set_id = ? AND trial_id = ?`,
		key.User, key.SetID, key.TrialID,
	).Scan(&stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return attempt.ParseState(nil, questionCount), nil
	}
	if err != nil {
		return attempt.ParseState(nil, questionCount), fmt.Errorf("load progress: %w", err)
	}
	return attempt.ParseState([]byte(stateJSON), questionCount), nil
}

// SaveProgress upserts the state for key.
func (s *Store) SaveProgress(ctx context.Context, key Key, state attempt.ProgressState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal progress state: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO progress (user_id, set_id, trial_id, state_json, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, set_id, trial_id) DO UPDATE SET
		  state_json = excluded.state_json,
		  updated_at = excluded.updated_at`,
		key.User, key.SetID, key.TrialID, string(data), state.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// ClearProgress removes the state for key. Missing rows are not an error.
func (s *Store) ClearProgress(ctx context.Context, key Key) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM progress WHERE user_id = ? AND set_id = ? AND trial_id = ?`,
		key.User, key.SetID, key.TrialID,
	)
	if err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	return nil
}

// ClearSetProgress removes every progress record for (user, set) across all
// trials. Used by reset.
func (s *Store) ClearSetProgress(ctx context.Context, user, setID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM progress WHERE user_id = ? AND set_id = ?`,
		user, setID,
	)
	if err != nil {
		return fmt.Errorf("clear set progress: %w", err)
	}
	return nil
}
