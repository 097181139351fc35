package trial

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/examdrill/internal/attempt"
	"github.com/abhisek/examdrill/internal/store"
)

// Registry knows which trial is active for each (user, set), creates and
// completes trials, and is the enforcement point for trial immutability:
// every progress write for a trial goes through RecordState.
type Registry struct {
	db *store.Store
}

// NewRegistry creates a Registry backed by the local store.
func NewRegistry(db *store.Store) *Registry {
	return &Registry{db: db}
}

// Active returns the in-progress trial for (user, set), or nil when none is
// active.
func (r *Registry) Active(ctx context.Context, user, setID string) (*Trial, error) {
	trialID, ok, err := r.db.ActiveTrialID(ctx, user, setID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	row, err := r.db.GetTrial(ctx, user, setID, trialID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		// Dangling pointer; drop it rather than report a phantom trial.
		if err := r.db.ClearActiveTrialID(ctx, user, setID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return fromRow(row)
}

// Current returns the trial the drill surface should work against: the
// active trial if one exists, otherwise the implicit legacy trial when no
// trials have ever been recorded for (user, set). It returns nil when
// trials exist but none is active — the caller must start or pick one.
func (r *Registry) Current(ctx context.Context, user, setID string) (*Trial, error) {
	active, err := r.Active(ctx, user, setID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return active, nil
	}
	rows, err := r.db.ListTrials(ctx, user, setID)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return nil, nil
	}
	return &Trial{ID: LegacyID, Number: 1, Status: StatusInProgress}, nil
}

// Start creates a new in-progress trial with an empty progress state and
// records it as active. It fails with *ErrActiveExists if a trial is
// already in progress.
func (r *Registry) Start(ctx context.Context, user, setID string) (*Trial, error) {
	active, err := r.Active(ctx, user, setID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, &ErrActiveExists{TrialID: active.ID}
	}

	maxNum, err := r.db.MaxTrialNumber(ctx, user, setID)
	if err != nil {
		return nil, err
	}

	t := &Trial{
		ID:        uuid.NewString(),
		Number:    maxNum + 1,
		Status:    StatusInProgress,
		StartedAt: now(),
	}
	if err := r.saveTrial(ctx, user, setID, t); err != nil {
		return nil, err
	}
	if err := r.db.SetActiveTrialID(ctx, user, setID, t.ID); err != nil {
		return nil, err
	}
	key := store.Key{User: user, SetID: setID, TrialID: t.ID}
	if err := r.db.SaveProgress(ctx, key, attempt.NewProgressState()); err != nil {
		return nil, err
	}
	return t, nil
}

// Complete freezes the trial: it computes the summary from the trial's
// progress state, marks it completed, and clears the active pointer.
// Completing an already-completed trial is a no-op. The implicit legacy
// trial is materialized as Trial #1 when completed.
func (r *Registry) Complete(ctx context.Context, user, setID, trialID string, totalQuestions int) (*Trial, error) {
	row, err := r.db.GetTrial(ctx, user, setID, trialID)
	if err != nil {
		return nil, err
	}

	var t *Trial
	switch {
	case row != nil:
		t, err = fromRow(row)
		if err != nil {
			return nil, err
		}
	case trialID == LegacyID:
		// Pre-trial progress engaging the trial model for the first time.
		t = &Trial{ID: LegacyID, Number: 1, Status: StatusInProgress}
	default:
		return nil, ErrNotFound
	}

	if t.Completed() {
		return t, nil
	}

	key := store.Key{User: user, SetID: setID, TrialID: trialID}
	state, err := r.db.LoadProgress(ctx, key, totalQuestions)
	if err != nil {
		return nil, err
	}

	completedAt := now()
	t.Status = StatusCompleted
	t.CompletedAt = &completedAt
	t.Summary = buildSummary(state, t.StartedAt, completedAt, totalQuestions)

	if err := r.saveTrial(ctx, user, setID, t); err != nil {
		return nil, err
	}
	if err := r.db.ClearActiveTrialID(ctx, user, setID); err != nil {
		return nil, err
	}
	return t, nil
}

// RecordState persists a progress state for the trial. It is rejected with
// ErrCompleted once the trial is completed; the check consults the stored
// status, not just the caller's copy, so a stale handle cannot bypass it.
func (r *Registry) RecordState(ctx context.Context, user, setID string, t *Trial, state attempt.ProgressState) error {
	if t.Completed() {
		return ErrCompleted
	}
	row, err := r.db.GetTrial(ctx, user, setID, t.ID)
	if err != nil {
		return err
	}
	if row != nil && Status(row.Status) == StatusCompleted {
		return ErrCompleted
	}
	key := store.Key{User: user, SetID: setID, TrialID: t.ID}
	return r.db.SaveProgress(ctx, key, state)
}

// LoadState returns the persisted progress for the trial, clamped to
// questionCount.
func (r *Registry) LoadState(ctx context.Context, user, setID, trialID string, questionCount int) (attempt.ProgressState, error) {
	key := store.Key{User: user, SetID: setID, TrialID: trialID}
	return r.db.LoadProgress(ctx, key, questionCount)
}

// Delete removes a trial together with its progress, clearing the active
// pointer when it referenced the deleted trial.
func (r *Registry) Delete(ctx context.Context, user, setID, trialID string) error {
	if err := r.db.DeleteTrial(ctx, user, setID, trialID); err != nil {
		return err
	}
	key := store.Key{User: user, SetID: setID, TrialID: trialID}
	if err := r.db.ClearProgress(ctx, key); err != nil {
		return err
	}
	active, ok, err := r.db.ActiveTrialID(ctx, user, setID)
	if err != nil {
		return err
	}
	if ok && active == trialID {
		return r.db.ClearActiveTrialID(ctx, user, setID)
	}
	return nil
}

// List returns all recorded trials for (user, set) in trial-number order.
func (r *Registry) List(ctx context.Context, user, setID string) ([]*Trial, error) {
	rows, err := r.db.ListTrials(ctx, user, setID)
	if err != nil {
		return nil, err
	}
	out := make([]*Trial, 0, len(rows))
	for i := range rows {
		t, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Get returns one trial, or ErrNotFound.
func (r *Registry) Get(ctx context.Context, user, setID, trialID string) (*Trial, error) {
	row, err := r.db.GetTrial(ctx, user, setID, trialID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrNotFound
	}
	return fromRow(row)
}

// AdoptRemoteID rekeys a locally created trial to the canonical id the
// remote store assigned for it.
func (r *Registry) AdoptRemoteID(ctx context.Context, user, setID, localID, remoteID string) error {
	if localID == remoteID {
		return nil
	}
	return r.db.RenameTrial(ctx, user, setID, localID, remoteID)
}

// Adopt records a trial known to the remote store into the local registry,
// overwriting any local copy, and marks it active when it is in progress.
func (r *Registry) Adopt(ctx context.Context, user, setID string, t *Trial) error {
	if err := r.saveTrial(ctx, user, setID, t); err != nil {
		return err
	}
	if t.Status == StatusInProgress {
		return r.db.SetActiveTrialID(ctx, user, setID, t.ID)
	}
	return nil
}

func (r *Registry) saveTrial(ctx context.Context, user, setID string, t *Trial) error {
	row := store.TrialRow{
		TrialID:     t.ID,
		Number:      t.Number,
		Status:      string(t.Status),
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
	}
	if t.Summary != nil {
		data, err := json.Marshal(t.Summary)
		if err != nil {
			return fmt.Errorf("marshal summary: %w", err)
		}
		row.SummaryJSON = data
	}
	return r.db.SaveTrial(ctx, user, setID, row)
}

func fromRow(row *store.TrialRow) (*Trial, error) {
	t := &Trial{
		ID:          row.TrialID,
		Number:      row.Number,
		Status:      Status(row.Status),
		StartedAt:   row.StartedAt,
		CompletedAt: row.CompletedAt,
	}
	if len(row.SummaryJSON) > 0 {
		var sum Summary
		if err := json.Unmarshal(row.SummaryJSON, &sum); err != nil {
			return nil, fmt.Errorf("unmarshal summary: %w", err)
		}
		t.Summary = &sum
	}
	return t, nil
}

// buildSummary derives the frozen aggregate for a completed trial. Duration
// is in whole seconds and nil when the start time is unknown (legacy
// progress has no recorded start).
func buildSummary(state attempt.ProgressState, startedAt, completedAt time.Time, totalQuestions int) *Summary {
	tally := attempt.CountAttempts(state)
	sum := &Summary{
		Answered:    tally.Answered,
		Correct:     tally.Correct,
		Incorrect:   tally.Incorrect,
		Unknown:     tally.Unknown,
		Flagged:     tally.Flagged,
		AccuracyPct: tally.AccuracyPercent(),
		Total:       totalQuestions,
	}
	if !startedAt.IsZero() {
		d := int64(completedAt.Sub(startedAt) / time.Second)
		if d < 0 {
			d = 0
		}
		sum.DurationSec = &d
	}
	return sum
}

// now is replaced in tests.
var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
