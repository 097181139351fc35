package trial

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/abhisek/examdrill/internal/attempt"
	"github.com/abhisek/examdrill/internal/store"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRegistry(db)
}

func fixedClock(t *testing.T, at time.Time) {
	t.Helper()
	orig := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = orig })
}

func TestStartEnforcesSingleActiveTrial(t *testing.T) {
	ctx := context.Background()
	r := testRegistry(t)

	first, err := r.Start(ctx, "u", "s")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if first.Number != 1 || first.Status != StatusInProgress {
		t.Fatalf("trial = %+v", first)
	}

	_, err = r.Start(ctx, "u", "s")
	var exists *ErrActiveExists
	if !errors.As(err, &exists) {
		t.Fatalf("second Start = %v, want ErrActiveExists", err)
	}
	if exists.TrialID != first.ID {
		t.Fatalf("conflict id = %q, want %q", exists.TrialID, first.ID)
	}
}

func TestTrialNumbersIncrease(t *testing.T) {
	ctx := context.Background()
	r := testRegistry(t)

	t1, err := r.Start(ctx, "u", "s")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Complete(ctx, "u", "s", t1.ID, 10); err != nil {
		t.Fatal(err)
	}
	t2, err := r.Start(ctx, "u", "s")
	if err != nil {
		t.Fatal(err)
	}
	if t2.Number != 2 {
		t.Fatalf("second trial number = %d, want 2", t2.Number)
	}
}

func TestCompleteFreezesTrial(t *testing.T) {
	ctx := context.Background()
	r := testRegistry(t)
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	fixedClock(t, started)

	tr, err := r.Start(ctx, "u", "s")
	if err != nil {
		t.Fatal(err)
	}

	state := attempt.NewProgressState()
	state.Attempts["q1"] = attempt.Attempt{SelectedChoiceIDs: []string{"a"}, Correctness: attempt.Correct}
	state.Attempts["q2"] = attempt.Attempt{SelectedChoiceIDs: []string{"b"}, Correctness: attempt.Incorrect, Flagged: true}
	if err := r.RecordState(ctx, "u", "s", tr, state); err != nil {
		t.Fatal(err)
	}

	fixedClock(t, started.Add(90*time.Second))
	done, err := r.Complete(ctx, "u", "s", tr.ID, 3)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !done.Completed() || done.CompletedAt == nil {
		t.Fatalf("trial = %+v", done)
	}

	sum := done.Summary
	if sum == nil {
		t.Fatal("completed trial must carry a summary")
	}
	if sum.Answered != 2 || sum.Correct != 1 || sum.Incorrect != 1 || sum.Flagged != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.AccuracyPct != 50 || sum.Total != 3 {
		t.Fatalf("accuracy = %d total = %d", sum.AccuracyPct, sum.Total)
	}
	if sum.DurationSec == nil || *sum.DurationSec != 90 {
		t.Fatalf("duration = %v, want 90", sum.DurationSec)
	}

	// Completed trials reject writes even through a fresh handle.
	fresh, err := r.Get(ctx, "u", "s", tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	stale := *fresh
	stale.Status = StatusInProgress
	if err := r.RecordState(ctx, "u", "s", &stale, state); !errors.Is(err, ErrCompleted) {
		t.Fatalf("RecordState after completion = %v, want ErrCompleted", err)
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	r := testRegistry(t)

	tr, err := r.Start(ctx, "u", "s")
	if err != nil {
		t.Fatal(err)
	}
	first, err := r.Complete(ctx, "u", "s", tr.ID, 5)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Complete(ctx, "u", "s", tr.ID, 5)
	if err != nil {
		t.Fatalf("second Complete: %v", err)
	}
	if !second.CompletedAt.Equal(*first.CompletedAt) {
		t.Fatal("re-completion must not move the completion time")
	}
}

func TestCompleteEmptyTrialHasZeroAccuracy(t *testing.T) {
	ctx := context.Background()
	r := testRegistry(t)

	tr, err := r.Start(ctx, "u", "s")
	if err != nil {
		t.Fatal(err)
	}
	done, err := r.Complete(ctx, "u", "s", tr.ID, 5)
	if err != nil {
		t.Fatal(err)
	}
	if done.Summary.Answered != 0 || done.Summary.AccuracyPct != 0 {
		t.Fatalf("summary = %+v", done.Summary)
	}
}

func TestCurrentLegacyTrialOnFreshSet(t *testing.T) {
	ctx := context.Background()
	r := testRegistry(t)

	cur, err := r.Current(ctx, "u", "s")
	if err != nil {
		t.Fatal(err)
	}
	if cur == nil || !cur.Legacy() || cur.Number != 1 {
		t.Fatalf("current = %+v, want implicit legacy trial #1", cur)
	}
}

func TestCurrentNilWhenTrialsExistButNoneActive(t *testing.T) {
	ctx := context.Background()
	r := testRegistry(t)

	tr, err := r.Start(ctx, "u", "s")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Complete(ctx, "u", "s", tr.ID, 5); err != nil {
		t.Fatal(err)
	}

	cur, err := r.Current(ctx, "u", "s")
	if err != nil {
		t.Fatal(err)
	}
	if cur != nil {
		t.Fatalf("current = %+v, want nil so the caller picks or starts one", cur)
	}
}

func TestCompleteLegacyMaterializesTrialOne(t *testing.T) {
	ctx := context.Background()
	r := testRegistry(t)

	done, err := r.Complete(ctx, "u", "s", LegacyID, 5)
	if err != nil {
		t.Fatalf("Complete legacy: %v", err)
	}
	if done.Number != 1 || !done.Completed() {
		t.Fatalf("trial = %+v", done)
	}
	// Legacy has no start time, so no duration.
	if done.Summary.DurationSec != nil {
		t.Fatalf("duration = %v, want nil for legacy", done.Summary.DurationSec)
	}

	trials, err := r.List(ctx, "u", "s")
	if err != nil {
		t.Fatal(err)
	}
	if len(trials) != 1 {
		t.Fatalf("trials = %d, want the materialized legacy row", len(trials))
	}
}

func TestCompleteUnknownTrial(t *testing.T) {
	ctx := context.Background()
	r := testRegistry(t)

	if _, err := r.Complete(ctx, "u", "s", "nope", 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteClearsActivePointerAndProgress(t *testing.T) {
	ctx := context.Background()
	r := testRegistry(t)

	tr, err := r.Start(ctx, "u", "s")
	if err != nil {
		t.Fatal(err)
	}
	state := attempt.NewProgressState()
	state.CurrentIndex = 3
	if err := r.RecordState(ctx, "u", "s", tr, state); err != nil {
		t.Fatal(err)
	}

	if err := r.Delete(ctx, "u", "s", tr.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	active, err := r.Active(ctx, "u", "s")
	if err != nil || active != nil {
		t.Fatalf("active = %+v err = %v, want none", active, err)
	}
	st, err := r.LoadState(ctx, "u", "s", tr.ID, 5)
	if err != nil {
		t.Fatal(err)
	}
	if st.CurrentIndex != 0 {
		t.Fatal("progress must be gone with the trial")
	}
}

func TestAdoptRemoteIDRekeysTrial(t *testing.T) {
	ctx := context.Background()
	r := testRegistry(t)

	tr, err := r.Start(ctx, "u", "s")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.AdoptRemoteID(ctx, "u", "s", tr.ID, "srv-1"); err != nil {
		t.Fatalf("AdoptRemoteID: %v", err)
	}

	got, err := r.Get(ctx, "u", "s", "srv-1")
	if err != nil {
		t.Fatalf("rekeyed trial missing: %v", err)
	}
	if got.Number != tr.Number {
		t.Fatalf("number = %d, want %d", got.Number, tr.Number)
	}
	active, err := r.Active(ctx, "u", "s")
	if err != nil || active == nil || active.ID != "srv-1" {
		t.Fatalf("active = %+v err = %v", active, err)
	}
}

func TestAdoptRecordsRemoteTrial(t *testing.T) {
	ctx := context.Background()
	r := testRegistry(t)

	remote := &Trial{
		ID:        "srv-7",
		Number:    4,
		Status:    StatusInProgress,
		StartedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := r.Adopt(ctx, "u", "s", remote); err != nil {
		t.Fatalf("Adopt: %v", err)
	}

	active, err := r.Active(ctx, "u", "s")
	if err != nil || active == nil || active.ID != "srv-7" {
		t.Fatalf("active = %+v err = %v", active, err)
	}
}
