package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TrialRow is the persisted form of a trial. The summary stays an opaque
// JSON blob at this layer; the trial package owns its shape.
type TrialRow struct {
	TrialID     string
	Number      int
	Status      string
	StartedAt   time.Time
	CompletedAt *time.Time
	SummaryJSON []byte
}

// ActiveTrialID returns the active trial pointer for (user, set).
// The second result is false when no trial is active.
func (s *Store) ActiveTrialID(ctx context.Context, user, setID string) (string, bool, error) {
	var trialID string
	err := s.db.QueryRowContext(ctx,
		`SELECT trial_id FROM active_trials WHERE user_id = ? AND set_id = ?`,
		user, setID,
	).Scan(&trialID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("active trial: %w", err)
	}
	return trialID, true, nil
}

// SetActiveTrialID records trialID as the single active trial for
// (user, set). The table's primary key makes a second active pointer
// unrepresentable.
func (s *Store) SetActiveTrialID(ctx context.Context, user, setID, trialID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO active_trials (user_id, set_id, trial_id) VALUES (?, ?, ?)
		ON CONFLICT (user_id, set_id) DO UPDATE SET trial_id = excluded.trial_id`,
		user, setID, trialID,
	)
	if err != nil {
		return fmt.Errorf("set active trial: %w", err)
	}
	return nil
}

// ClearActiveTrialID removes the active pointer for (user, set).
func (s *Store) ClearActiveTrialID(ctx context.Context, user, setID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM active_trials WHERE user_id = ? AND set_id = ?`,
		user, setID,
	)
	if err != nil {
		return fmt.Errorf("clear active trial: %w", err)
	}
	return nil
}

// SaveTrial upserts a trial row.
func (s *Store) SaveTrial(ctx context.Context, user, setID string, row TrialRow) error {
	var completedAt any
	if row.CompletedAt != nil {
		completedAt = row.CompletedAt.UTC().Format(time.RFC3339)
	}
	var summary any
	if row.SummaryJSON != nil {
		summary = string(row.SummaryJSON)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trials (user_id, set_id, trial_id, trial_number, status, started_at, completed_at, summary_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, set_id, trial_id) DO UPDATE SET
		  trial_number = excluded.trial_number,
		  status = excluded.status,
		  started_at = excluded.started_at,
		  completed_at = excluded.completed_at,
		  summary_json = excluded.summary_json`,
		user, setID, row.TrialID, row.Number, row.Status,
		row.StartedAt.UTC().Format(time.RFC3339), completedAt, summary,
	)
	if err != nil {
		return fmt.Errorf("save trial: %w", err)
	}
	return nil
}

// GetTrial returns the trial row, or (nil, nil) if it does not exist.
func (s *Store) GetTrial(ctx context.Context, user, setID, trialID string) (*TrialRow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT trial_id, trial_number, status, started_at, completed_at, summary_json
		FROM trials WHERE user_id = ? AND set_id = ? AND trial_id = ?`,
		user, setID, trialID,
	)
	tr, err := scanTrial(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get trial: %w", err)
	}
	return tr, nil
}

// ListTrials returns all trial rows for (user, set) ordered by trial number.
func (s *Store) ListTrials(ctx context.Context, user, setID string) ([]TrialRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trial_id, trial_number, status, started_at, completed_at, summary_json
		FROM trials WHERE user_id = ? AND set_id = ? ORDER BY trial_number`,
		user, setID,
	)
	if err != nil {
		return nil, fmt.Errorf("list trials: %w", err)
	}
	defer rows.Close()

	var out []TrialRow
	for rows.Next() {
		tr, err := scanTrial(rows)
		if err != nil {
			return nil, fmt.Errorf("list trials: %w", err)
		}
		out = append(out, *tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list trials: %w", err)
	}
	return out, nil
}

// DeleteTrial removes the trial row only. Progress cleanup and active
// pointer maintenance are the registry's job.
func (s *Store) DeleteTrial(ctx context.Context, user, setID, trialID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM trials WHERE user_id = ? AND set_id = ? AND trial_id = ?`,
		user, setID, trialID,
	)
	if err != nil {
		return fmt.Errorf("delete trial: %w", err)
	}
	return nil
}

// MaxTrialNumber returns the highest trial number recorded for (user, set),
// or 0 if none exist.
func (s *Store) MaxTrialNumber(ctx context.Context, user, setID string) (int, error) {
	var n sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(trial_number) FROM trials WHERE user_id = ? AND set_id = ?`,
		user, setID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("max trial number: %w", err)
	}
	return int(n.Int64), nil
}

// RenameTrial rewrites a trial id across the trials, progress, and
// active-pointer tables. Used when the remote store assigns the canonical
// id for a trial that was created locally first.
func (s *Store) RenameTrial(ctx context.Context, user, setID, oldID, newID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("rename trial: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`UPDATE trials SET trial_id = ? WHERE user_id = ? AND set_id = ? AND trial_id = ?`,
		`UPDATE progress SET trial_id = ? WHERE user_id = ? AND set_id = ? AND trial_id = ?`,
		`UPDATE active_trials SET trial_id = ? WHERE user_id = ? AND set_id = ? AND trial_id = ?`,
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q, newID, user, setID, oldID); err != nil {
			return fmt.Errorf("rename trial: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("rename trial: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrial(sc scanner) (*TrialRow, error) {
	var (
		tr          TrialRow
		startedAt   string
		completedAt sql.NullString
		summary     sql.NullString
	)
	if err := sc.Scan(&tr.TrialID, &tr.Number, &tr.Status, &startedAt, &completedAt, &summary); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	tr.StartedAt = t

	if completedAt.Valid {
		t, err := time.Parse(time.RFC3339, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		tr.CompletedAt = &t
	}
	if summary.Valid {
		tr.SummaryJSON = []byte(summary.String)
	}
	return &tr, nil
}
