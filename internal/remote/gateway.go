// Package remote talks to the server-side trial store. The server is
// treated as an opaque, unreliable key-value store for trials; all conflict
// decisions are made client-side by the syncer.
package remote

import (
	"context"
	"time"

	"github.com/abhisek/examdrill/internal/attempt"
	"github.com/abhisek/examdrill/internal/trial"
)

// TrialList is the server's view of all trials for a set.
type TrialList struct {
	ActiveTrialID string        `json:"activeTrialId"`
	TrialCount    int           `json:"trialCount"`
	Trials        []trial.Trial `json:"trials"`
}

// TrialWithState is a trial plus its progress state.
type TrialWithState struct {
	trial.Trial
	State *attempt.ProgressState `json:"state"`
}

// UpdateResult acknowledges a state write.
type UpdateResult struct {
	OK        bool      `json:"ok"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FlatProgress is the legacy single-document progress record used before
// trials existed server-side. Once engaged it is treated as Trial #1.
type FlatProgress struct {
	SetID     string                 `json:"setId"`
	UpdatedAt time.Time              `json:"updatedAt"`
	State     *attempt.ProgressState `json:"state"`
}

// Gateway is the remote trial store. Implementations must return
// ErrNotFound for missing records and *ErrActiveTrialExists when trial
// creation conflicts with an existing active trial.
type Gateway interface {
	ListTrials(ctx context.Context, setID string) (*TrialList, error)
	CreateTrial(ctx context.Context, setID string, totalQuestions int) (*TrialWithState, error)
	GetTrial(ctx context.Context, setID, trialID string) (*TrialWithState, error)
	UpdateTrial(ctx context.Context, setID, trialID string, state attempt.ProgressState) (*UpdateResult, error)
	CompleteTrial(ctx context.Context, setID, trialID string, totalQuestions int) (*trial.Trial, error)
	DeleteTrial(ctx context.Context, setID, trialID string) error

	// Legacy flat-progress endpoints.
	GetProgress(ctx context.Context, setID string) (*FlatProgress, error)
	PutProgress(ctx context.Context, setID string, state attempt.ProgressState) error
	DeleteProgress(ctx context.Context, setID string) error
}
