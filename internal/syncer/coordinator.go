// Package syncer reconciles the on-device copy of a trial's progress with
// the remote trial store. Local state renders immediately and is always the
// durable fallback; remote state is fetched asynchronously and can only
// move the session forward in time.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/abhisek/examdrill/internal/attempt"
	"github.com/abhisek/examdrill/internal/remote"
	"github.com/abhisek/examdrill/internal/trial"
)

// State is the per-(user, set) session state. Modeling it as one enum keeps
// the "is loading" / "skip next save" combinations from drifting apart.
type State int

const (
	// StateIdle: purely local session, no remote configured or fetch not started.
	StateIdle State = iota
	// StateLoadingRemote: a remote fetch is in flight; pushes are withheld
	// so a stale local write cannot race the load.
	StateLoadingRemote
	// StateReconciled: local and remote agreed on a winner; pushes flow.
	StateReconciled
	// StateSuppressed: a local reset just happened; the next push is
	// swallowed once so autosave cannot resurrect the cleared state.
	StateSuppressed
)

func (s State) String() string {
	switch s {
	case StateLoadingRemote:
		return "loading-remote"
	case StateReconciled:
		return "reconciled"
	case StateSuppressed:
		return "suppressed"
	default:
		return "idle"
	}
}

// ErrNoTrial is returned when a mutation arrives with no trial in play.
var ErrNoTrial = errors.New("syncer: no trial selected")

// ErrStaleLoad is returned when a remote load completes for a session that
// is no longer current; its result must be discarded.
var ErrStaleLoad = errors.New("syncer: stale remote load discarded")

// Session is a snapshot handed to the UI after Begin or ApplyRemote.
type Session struct {
	Trial    *trial.Trial
	State    attempt.ProgressState
	ReadOnly bool
}

// RemoteOutcome is what a remote fetch found for the selected set.
type RemoteOutcome struct {
	Trial  *trial.Trial           // nil when the server has no usable trial
	State  *attempt.ProgressState // nil when no state was returned
	Legacy bool                   // state came from the flat pre-trial endpoint
}

// Coordinator orchestrates reconciliation for one user across set
// selections. All methods are safe for concurrent use; the generation
// counter guards against responses from abandoned loads.
type Coordinator struct {
	registry *trial.Registry
	gw       remote.Gateway // nil means purely local operation
	user     string

	mu            sync.Mutex
	state         State
	generation    int
	setID         string
	questionCount int
	current       *trial.Trial
}

// New creates a Coordinator. gw may be nil for local-only mode.
func New(registry *trial.Registry, gw remote.Gateway, user string) *Coordinator {
	return &Coordinator{registry: registry, gw: gw, user: user}
}

// User returns the identity this coordinator records progress under.
func (c *Coordinator) User() string { return c.user }

// State returns the current session state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Remote reports whether a remote gateway is configured.
func (c *Coordinator) Remote() bool { return c.gw != nil }

// Begin selects a question set. It reads the local active trial and its
// state synchronously so the caller can render without waiting on the
// network, and returns the generation token for the follow-up remote fetch.
// needsRemote is false when no gateway is configured; the session then
// stays Idle and purely local.
func (c *Coordinator) Begin(ctx context.Context, setID string, questionCount int) (Session, int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.setID = setID
	c.questionCount = questionCount
	c.current = nil

	t, err := c.registry.Current(ctx, c.user, setID)
	if err != nil {
		return Session{}, c.generation, false, err
	}
	c.current = t

	var state attempt.ProgressState
	if t != nil {
		state, err = c.registry.LoadState(ctx, c.user, setID, t.ID, questionCount)
		if err != nil {
			// Fall back to an empty state; a broken local read must not
			// block the session.
			state = attempt.NewProgressState()
		}
	} else {
		state = attempt.NewProgressState()
	}

	if c.gw == nil {
		c.state = StateIdle
		return c.sessionLocked(state), c.generation, false, nil
	}

	c.state = StateLoadingRemote
	return c.sessionLocked(state), c.generation, true, nil
}

// FetchRemote queries the gateway for the authoritative trial and state of
// the set selected at generation gen. It performs no local writes; pass the
// outcome to ApplyRemote. Safe to call from a background goroutine.
func (c *Coordinator) FetchRemote(ctx context.Context, gen int) (*RemoteOutcome, error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return nil, ErrStaleLoad
	}
	gw := c.gw
	setID := c.setID
	c.mu.Unlock()

	if gw == nil {
		return &RemoteOutcome{}, nil
	}

	list, err := gw.ListTrials(ctx, setID)
	if err != nil && !errors.Is(err, remote.ErrNotFound) {
		return nil, err
	}

	if list != nil && list.TrialCount > 0 {
		if list.ActiveTrialID == "" {
			return &RemoteOutcome{}, nil
		}
		tws, err := gw.GetTrial(ctx, setID, list.ActiveTrialID)
		if err != nil {
			if errors.Is(err, remote.ErrNotFound) {
				return &RemoteOutcome{}, nil
			}
			return nil, err
		}
		t := tws.Trial
		return &RemoteOutcome{Trial: &t, State: tws.State}, nil
	}

	// No trials server-side: fall back to the legacy flat progress record.
	flat, err := gw.GetProgress(ctx, setID)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			return &RemoteOutcome{}, nil
		}
		return nil, err
	}
	return &RemoteOutcome{State: flat.State, Legacy: true}, nil
}

// ApplyRemote merges the fetched remote outcome into the session. The
// winning state is written back to the local store so the device cache
// reflects the merge; when local wins and a remote copy exists, the local
// state is pushed back so both sides converge. A result for a superseded
// generation is discarded with ErrStaleLoad. fetchErr degrades the session
// to local-only rather than failing it.
func (c *Coordinator) ApplyRemote(ctx context.Context, gen int, outcome *RemoteOutcome, fetchErr error) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return Session{}, ErrStaleLoad
	}

	if fetchErr != nil {
		warnf("remote load failed, staying local: %v", fetchErr)
		c.state = StateIdle
		return c.reloadLocked(ctx)
	}

	if outcome == nil || (outcome.Trial == nil && outcome.State == nil) {
		c.state = StateReconciled
		return c.reloadLocked(ctx)
	}

	switch {
	case outcome.Trial != nil && (c.current == nil || c.current.ID != outcome.Trial.ID):
		// The server's active trial is one this device doesn't have in
		// play. The server is authoritative for which trial is active.
		if err := c.registry.Adopt(ctx, c.user, c.setID, outcome.Trial); err != nil {
			return Session{}, err
		}
		c.current = outcome.Trial
		if outcome.State != nil {
			st := clampTo(*outcome.State, c.questionCount)
			if err := c.registry.RecordState(ctx, c.user, c.setID, c.current, st); err != nil && !errors.Is(err, trial.ErrCompleted) {
				return Session{}, err
			}
		}

	case outcome.State != nil:
		// Same record on both sides: the strictly later state wins.
		trialID := trial.LegacyID
		if c.current != nil {
			trialID = c.current.ID
		}
		local, err := c.registry.LoadState(ctx, c.user, c.setID, trialID, c.questionCount)
		if err != nil {
			local = attempt.NewProgressState()
		}
		remoteState := clampTo(*outcome.State, c.questionCount)
		winner := Latest(local, remoteState)

		if c.current == nil && outcome.Legacy {
			c.current = &trial.Trial{ID: trial.LegacyID, Number: 1, Status: trial.StatusInProgress}
		}
		if c.current != nil && !c.current.Completed() {
			if err := c.registry.RecordState(ctx, c.user, c.setID, c.current, winner); err != nil {
				return Session{}, err
			}
			if winner.UpdatedAt.After(remoteState.UpdatedAt) {
				c.pushLocked(ctx, winner)
			}
		}
	}

	c.state = StateReconciled
	return c.reloadLocked(ctx)
}

// RecordMutation persists a mutated state locally and reports whether the
// caller should push it to the remote store. Pushes are withheld while a
// load is in flight, once after a reset, when no gateway is configured, and
// always for completed trials (which also reject the local write).
func (c *Coordinator) RecordMutation(ctx context.Context, state attempt.ProgressState) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return false, ErrNoTrial
	}
	if err := c.registry.RecordState(ctx, c.user, c.setID, c.current, state); err != nil {
		return false, err
	}

	switch {
	case c.gw == nil:
		return false, nil
	case c.state == StateLoadingRemote:
		return false, nil
	case c.state == StateSuppressed:
		// One-shot: consumed by the first mutation after a reset.
		c.state = StateReconciled
		return false, nil
	}
	return true, nil
}

// PushState sends the state to the remote store. Failures are logged and
// swallowed; the local copy stays the durable source of truth until the
// next successful reconciliation.
func (c *Coordinator) PushState(ctx context.Context, state attempt.ProgressState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushLocked(ctx, state)
}

func (c *Coordinator) pushLocked(ctx context.Context, state attempt.ProgressState) {
	if c.gw == nil || c.current == nil || c.current.Completed() {
		return
	}
	var err error
	if c.current.Legacy() {
		err = c.gw.PutProgress(ctx, c.setID, state)
	} else {
		_, err = c.gw.UpdateTrial(ctx, c.setID, c.current.ID, state)
	}
	if err != nil {
		warnf("remote save failed: %v", err)
	}
}

// StartTrial starts a new trial locally and mirrors it remotely. A remote
// "active trial exists" rejection rolls the local create back and is
// returned to the caller as a correctable condition.
func (c *Coordinator) StartTrial(ctx context.Context) (*trial.Trial, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.registry.Start(ctx, c.user, c.setID)
	if err != nil {
		return nil, err
	}

	if c.gw != nil {
		created, err := c.gw.CreateTrial(ctx, c.setID, c.questionCount)
		switch {
		case err == nil:
			if err := c.registry.AdoptRemoteID(ctx, c.user, c.setID, t.ID, created.ID); err != nil {
				return nil, err
			}
			t.ID = created.ID
			if created.Number > 0 {
				t.Number = created.Number
			}
		default:
			var exists *remote.ErrActiveTrialExists
			if errors.As(err, &exists) {
				// The server knows better; undo the optimistic local create
				// and surface the conflict for the user to resolve.
				if delErr := c.registry.Delete(ctx, c.user, c.setID, t.ID); delErr != nil {
					warnf("rollback local trial: %v", delErr)
				}
				c.current = nil
				return nil, &trial.ErrActiveExists{TrialID: exists.TrialID}
			}
			warnf("remote trial create failed, continuing locally: %v", err)
		}
	}

	c.current = t
	return t, nil
}

// CompleteTrial freezes the current trial locally and mirrors the
// completion remotely, best-effort.
func (c *Coordinator) CompleteTrial(ctx context.Context) (*trial.Trial, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return nil, ErrNoTrial
	}
	done, err := c.registry.Complete(ctx, c.user, c.setID, c.current.ID, c.questionCount)
	if err != nil {
		return nil, err
	}
	if c.gw != nil && !done.Legacy() {
		if _, err := c.gw.CompleteTrial(ctx, c.setID, done.ID, c.questionCount); err != nil {
			warnf("remote trial complete failed: %v", err)
		}
	}
	c.current = done
	return done, nil
}

// DeleteTrial removes a trial locally and remotely, best-effort on the
// remote side.
func (c *Coordinator) DeleteTrial(ctx context.Context, trialID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.registry.Delete(ctx, c.user, c.setID, trialID); err != nil {
		return err
	}
	if c.gw != nil {
		var err error
		if trialID == trial.LegacyID {
			err = c.gw.DeleteProgress(ctx, c.setID)
		} else {
			err = c.gw.DeleteTrial(ctx, c.setID, trialID)
		}
		if err != nil && !errors.Is(err, remote.ErrNotFound) {
			warnf("remote trial delete failed: %v", err)
		}
	}
	if c.current != nil && c.current.ID == trialID {
		c.current = nil
	}
	return nil
}

// Reset clears the local progress of the current trial and enters the
// Suppressed state so the immediately following autosave does not push the
// cleared slate over newer server data.
func (c *Coordinator) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return ErrNoTrial
	}
	fresh := attempt.NewProgressState()
	if err := c.registry.RecordState(ctx, c.user, c.setID, c.current, fresh); err != nil {
		return err
	}
	c.state = StateSuppressed
	return nil
}

// CurrentTrial returns the trial in play, or nil.
func (c *Coordinator) CurrentTrial() *trial.Trial {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Coordinator) sessionLocked(state attempt.ProgressState) Session {
	readOnly := c.current != nil && c.current.Completed()
	return Session{Trial: c.current, State: state, ReadOnly: readOnly}
}

func (c *Coordinator) reloadLocked(ctx context.Context) (Session, error) {
	var state attempt.ProgressState
	if c.current != nil {
		var err error
		state, err = c.registry.LoadState(ctx, c.user, c.setID, c.current.ID, c.questionCount)
		if err != nil {
			state = attempt.NewProgressState()
		}
	} else {
		state = attempt.NewProgressState()
	}
	return c.sessionLocked(state), nil
}

func clampTo(s attempt.ProgressState, questionCount int) attempt.ProgressState {
	if s.Attempts == nil {
		s.Attempts = map[string]attempt.Attempt{}
	}
	if s.CurrentIndex < 0 {
		s.CurrentIndex = 0
	}
	if questionCount == 0 {
		s.CurrentIndex = 0
	} else if s.CurrentIndex > questionCount-1 {
		s.CurrentIndex = questionCount - 1
	}
	return s
}

func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
}
