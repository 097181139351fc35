package syncer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/abhisek/examdrill/internal/attempt"
	"github.com/abhisek/examdrill/internal/remote"
	"github.com/abhisek/examdrill/internal/store"
	"github.com/abhisek/examdrill/internal/trial"
)

// fakeGateway is a scriptable in-memory Gateway.
type fakeGateway struct {
	list      *remote.TrialList
	trials    map[string]*remote.TrialWithState
	flat      *remote.FlatProgress
	createOut *remote.TrialWithState
	createErr error

	updates     []attempt.ProgressState
	puts        []attempt.ProgressState
	deleted     []string
	flatDeletes int
}

func (f *fakeGateway) ListTrials(ctx context.Context, setID string) (*remote.TrialList, error) {
	if f.list == nil {
		return &remote.TrialList{}, nil
	}
	return f.list, nil
}

func (f *fakeGateway) CreateTrial(ctx context.Context, setID string, totalQuestions int) (*remote.TrialWithState, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	return &remote.TrialWithState{Trial: trial.Trial{ID: "srv-1", Number: 1, Status: trial.StatusInProgress}}, nil
}

func (f *fakeGateway) GetTrial(ctx context.Context, setID, trialID string) (*remote.TrialWithState, error) {
	tws, ok := f.trials[trialID]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return tws, nil
}

func (f *fakeGateway) UpdateTrial(ctx context.Context, setID, trialID string, state attempt.ProgressState) (*remote.UpdateResult, error) {
	f.updates = append(f.updates, state)
	return &remote.UpdateResult{OK: true, UpdatedAt: state.UpdatedAt}, nil
}

func (f *fakeGateway) CompleteTrial(ctx context.Context, setID, trialID string, totalQuestions int) (*trial.Trial, error) {
	return &trial.Trial{ID: trialID, Status: trial.StatusCompleted}, nil
}

func (f *fakeGateway) DeleteTrial(ctx context.Context, setID, trialID string) error {
	f.deleted = append(f.deleted, trialID)
	return nil
}

func (f *fakeGateway) GetProgress(ctx context.Context, setID string) (*remote.FlatProgress, error) {
	if f.flat == nil {
		return nil, remote.ErrNotFound
	}
	return f.flat, nil
}

func (f *fakeGateway) PutProgress(ctx context.Context, setID string, state attempt.ProgressState) error {
	f.puts = append(f.puts, state)
	return nil
}

func (f *fakeGateway) DeleteProgress(ctx context.Context, setID string) error {
	f.flatDeletes++
	return nil
}

func newTestCoordinator(t *testing.T, gw remote.Gateway) (*Coordinator, *trial.Registry) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	reg := trial.NewRegistry(db)
	return New(reg, gw, "tester"), reg
}

func TestBeginLocalOnlyStaysIdle(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCoordinator(t, nil)

	sess, _, needsRemote, err := c.Begin(ctx, "set-1", 10)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if needsRemote {
		t.Fatal("local-only session must not request a remote fetch")
	}
	if c.State() != StateIdle {
		t.Fatalf("state = %v, want idle", c.State())
	}
	if sess.Trial == nil || !sess.Trial.Legacy() {
		t.Fatalf("fresh set should start on the implicit legacy trial, got %+v", sess.Trial)
	}

	push, err := c.RecordMutation(ctx, attempt.NewProgressState())
	if err != nil {
		t.Fatalf("RecordMutation: %v", err)
	}
	if push {
		t.Fatal("no gateway configured, push must be withheld")
	}
}

func TestStaleLoadDiscarded(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{}
	c, _ := newTestCoordinator(t, gw)

	_, gen1, _, err := c.Begin(ctx, "set-1", 10)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, _, _, err := c.Begin(ctx, "set-2", 5); err != nil {
		t.Fatalf("second Begin: %v", err)
	}

	if _, err := c.FetchRemote(ctx, gen1); !errors.Is(err, ErrStaleLoad) {
		t.Fatalf("FetchRemote with stale gen = %v, want ErrStaleLoad", err)
	}
	if _, err := c.ApplyRemote(ctx, gen1, &RemoteOutcome{}, nil); !errors.Is(err, ErrStaleLoad) {
		t.Fatalf("ApplyRemote with stale gen = %v, want ErrStaleLoad", err)
	}
}

func TestApplyRemoteLaterRemoteWinsAndPersists(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{}
	c, reg := newTestCoordinator(t, gw)

	sess, gen, _, err := c.Begin(ctx, "set-1", 10)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	local := sess.State
	local.CurrentIndex = 2
	local.UpdatedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if _, err := c.RecordMutation(ctx, local); err != nil {
		t.Fatalf("RecordMutation: %v", err)
	}

	rstate := attempt.ProgressState{
		CurrentIndex: 6,
		Attempts:     map[string]attempt.Attempt{},
		UpdatedAt:    local.UpdatedAt.Add(time.Minute),
	}
	out := &RemoteOutcome{State: &rstate, Legacy: true}

	merged, err := c.ApplyRemote(ctx, gen, out, nil)
	if err != nil {
		t.Fatalf("ApplyRemote: %v", err)
	}
	if merged.State.CurrentIndex != 6 {
		t.Fatalf("index = %d, want remote's 6", merged.State.CurrentIndex)
	}
	if c.State() != StateReconciled {
		t.Fatalf("state = %v, want reconciled", c.State())
	}

	// The winner must survive a fresh read from the local store.
	stored, err := reg.LoadState(ctx, "tester", "set-1", trial.LegacyID, 10)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if stored.CurrentIndex != 6 {
		t.Fatalf("stored index = %d, want 6", stored.CurrentIndex)
	}
}

func TestApplyRemoteLocalWinsAndPushesBack(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{}
	c, _ := newTestCoordinator(t, gw)

	sess, gen, _, err := c.Begin(ctx, "set-1", 10)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	local := sess.State
	local.CurrentIndex = 4
	local.UpdatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if _, err := c.RecordMutation(ctx, local); err != nil {
		t.Fatalf("RecordMutation: %v", err)
	}

	rstate := attempt.ProgressState{
		CurrentIndex: 1,
		Attempts:     map[string]attempt.Attempt{},
		UpdatedAt:    local.UpdatedAt.Add(-time.Hour),
	}
	merged, err := c.ApplyRemote(ctx, gen, &RemoteOutcome{State: &rstate, Legacy: true}, nil)
	if err != nil {
		t.Fatalf("ApplyRemote: %v", err)
	}
	if merged.State.CurrentIndex != 4 {
		t.Fatalf("index = %d, want local's 4", merged.State.CurrentIndex)
	}
	if len(gw.puts) != 1 {
		t.Fatalf("local win over a legacy record must push once, got %d pushes", len(gw.puts))
	}
}

func TestApplyRemoteFetchErrorStaysLocal(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{}
	c, _ := newTestCoordinator(t, gw)

	_, gen, _, err := c.Begin(ctx, "set-1", 10)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if _, err := c.ApplyRemote(ctx, gen, nil, errors.New("connection refused")); err != nil {
		t.Fatalf("ApplyRemote with fetch error: %v", err)
	}
	if c.State() != StateIdle {
		t.Fatalf("state = %v, want idle after failed load", c.State())
	}
}

func TestApplyRemoteAdoptsServerActiveTrial(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{}
	c, reg := newTestCoordinator(t, gw)

	_, gen, _, err := c.Begin(ctx, "set-1", 10)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	rt := &trial.Trial{
		ID:        "srv-9",
		Number:    3,
		Status:    trial.StatusInProgress,
		StartedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	rstate := attempt.ProgressState{
		CurrentIndex: 5,
		Attempts:     map[string]attempt.Attempt{},
		UpdatedAt:    time.Date(2026, 2, 1, 9, 5, 0, 0, time.UTC),
	}

	sess, err := c.ApplyRemote(ctx, gen, &RemoteOutcome{Trial: rt, State: &rstate}, nil)
	if err != nil {
		t.Fatalf("ApplyRemote: %v", err)
	}
	if sess.Trial == nil || sess.Trial.ID != "srv-9" {
		t.Fatalf("session trial = %+v, want adopted srv-9", sess.Trial)
	}
	if sess.State.CurrentIndex != 5 {
		t.Fatalf("index = %d, want remote's 5", sess.State.CurrentIndex)
	}

	adopted, err := reg.Get(ctx, "tester", "set-1", "srv-9")
	if err != nil {
		t.Fatalf("Get adopted trial: %v", err)
	}
	if adopted.Number != 3 {
		t.Fatalf("adopted trial number = %d, want 3", adopted.Number)
	}
}

func TestSuppressedSwallowsOnePush(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{}
	c, _ := newTestCoordinator(t, gw)

	_, gen, _, err := c.Begin(ctx, "set-1", 10)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := c.ApplyRemote(ctx, gen, &RemoteOutcome{}, nil); err != nil {
		t.Fatalf("ApplyRemote: %v", err)
	}

	if err := c.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if c.State() != StateSuppressed {
		t.Fatalf("state = %v, want suppressed after reset", c.State())
	}

	push, err := c.RecordMutation(ctx, attempt.NewProgressState())
	if err != nil {
		t.Fatalf("RecordMutation: %v", err)
	}
	if push {
		t.Fatal("first mutation after reset must not push")
	}
	if c.State() != StateReconciled {
		t.Fatalf("state = %v, want reconciled after suppression consumed", c.State())
	}

	push, err = c.RecordMutation(ctx, attempt.NewProgressState())
	if err != nil {
		t.Fatalf("second RecordMutation: %v", err)
	}
	if !push {
		t.Fatal("second mutation must push again")
	}
}

func TestPushWithheldWhileLoading(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{}
	c, _ := newTestCoordinator(t, gw)

	if _, _, _, err := c.Begin(ctx, "set-1", 10); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if c.State() != StateLoadingRemote {
		t.Fatalf("state = %v, want loading-remote", c.State())
	}

	push, err := c.RecordMutation(ctx, attempt.NewProgressState())
	if err != nil {
		t.Fatalf("RecordMutation: %v", err)
	}
	if push {
		t.Fatal("mutations during a remote load must not push")
	}
}

func TestCompletedTrialRejectsMutations(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCoordinator(t, nil)

	if _, _, _, err := c.Begin(ctx, "set-1", 10); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	st, err := c.StartTrial(ctx)
	if err != nil {
		t.Fatalf("StartTrial: %v", err)
	}
	if st.Number != 1 {
		t.Fatalf("trial number = %d, want 1", st.Number)
	}
	if _, err := c.CompleteTrial(ctx); err != nil {
		t.Fatalf("CompleteTrial: %v", err)
	}

	if _, err := c.RecordMutation(ctx, attempt.NewProgressState()); !errors.Is(err, trial.ErrCompleted) {
		t.Fatalf("RecordMutation on completed trial = %v, want ErrCompleted", err)
	}
}

func TestStartTrialRemoteConflictRollsBack(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{createErr: &remote.ErrActiveTrialExists{TrialID: "srv-busy"}}
	c, reg := newTestCoordinator(t, gw)

	if _, _, _, err := c.Begin(ctx, "set-1", 10); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	_, err := c.StartTrial(ctx)
	var exists *trial.ErrActiveExists
	if !errors.As(err, &exists) {
		t.Fatalf("StartTrial = %v, want ErrActiveExists", err)
	}
	if exists.TrialID != "srv-busy" {
		t.Fatalf("conflict trial id = %q, want srv-busy", exists.TrialID)
	}

	trials, err := reg.List(ctx, "tester", "set-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(trials) != 0 {
		t.Fatalf("local create must be rolled back, found %d trials", len(trials))
	}
}

func TestStartTrialAdoptsServerID(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{
		createOut: &remote.TrialWithState{Trial: trial.Trial{ID: "srv-42", Number: 2, Status: trial.StatusInProgress}},
	}
	c, reg := newTestCoordinator(t, gw)

	if _, _, _, err := c.Begin(ctx, "set-1", 10); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	st, err := c.StartTrial(ctx)
	if err != nil {
		t.Fatalf("StartTrial: %v", err)
	}
	if st.ID != "srv-42" {
		t.Fatalf("trial id = %q, want server-assigned srv-42", st.ID)
	}
	if _, err := reg.Get(ctx, "tester", "set-1", "srv-42"); err != nil {
		t.Fatalf("rekeyed trial not found locally: %v", err)
	}
}

func TestDeleteLegacyTrialClearsFlatProgress(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{}
	c, _ := newTestCoordinator(t, gw)

	if _, _, _, err := c.Begin(ctx, "set-1", 10); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := c.DeleteTrial(ctx, trial.LegacyID); err != nil {
		t.Fatalf("DeleteTrial: %v", err)
	}
	if gw.flatDeletes != 1 {
		t.Fatalf("legacy delete must hit the flat endpoint, got %d calls", gw.flatDeletes)
	}
	if len(gw.deleted) != 0 {
		t.Fatalf("legacy delete must not hit the trial endpoint, got %v", gw.deleted)
	}
}

func TestFetchRemoteLegacyFallback(t *testing.T) {
	ctx := context.Background()
	flatState := attempt.ProgressState{
		CurrentIndex: 3,
		Attempts:     map[string]attempt.Attempt{},
		UpdatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	gw := &fakeGateway{flat: &remote.FlatProgress{SetID: "set-1", State: &flatState}}
	c, _ := newTestCoordinator(t, gw)

	_, gen, _, err := c.Begin(ctx, "set-1", 10)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	out, err := c.FetchRemote(ctx, gen)
	if err != nil {
		t.Fatalf("FetchRemote: %v", err)
	}
	if !out.Legacy {
		t.Fatal("empty trial list must fall back to the legacy record")
	}
	if out.State == nil || out.State.CurrentIndex != 3 {
		t.Fatalf("legacy state = %+v, want index 3", out.State)
	}
}
