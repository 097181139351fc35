package cmd

import (
	"context"
	"fmt"

	"github.com/abhisek/examdrill/internal/config"
	"github.com/abhisek/examdrill/internal/questionset"
	"github.com/abhisek/examdrill/internal/remote"
	"github.com/abhisek/examdrill/internal/store"
	"github.com/abhisek/examdrill/internal/syncer"
	"github.com/abhisek/examdrill/internal/trial"
	"github.com/spf13/cobra"
)

var trialsCmd = &cobra.Command{
	Use:   "trials",
	Short: "Manage trials for a question set",
}

var trialsListCmd = &cobra.Command{
	Use:   "list <set.json>",
	Short: "List trials for a question set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, registry, _, cleanup, err := openServices(cmd, args[0])
		if err != nil {
			return err
		}
		defer cleanup()

		cfg := config.FromEnv()
		list, err := registry.List(cmd.Context(), cfg.User, set.ID)
		if err != nil {
			return fmt.Errorf("list trials: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No trials yet for", set.ID)
			return nil
		}
		for _, t := range list {
			printTrial(t)
		}
		return nil
	},
}

var trialsStartCmd = &cobra.Command{
	Use:   "start <set.json>",
	Short: "Start a new trial",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, _, coord, cleanup, err := openServices(cmd, args[0])
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		if err := beginLocal(ctx, coord, set); err != nil {
			return err
		}
		t, err := coord.StartTrial(ctx)
		if err != nil {
			return fmt.Errorf("start trial: %w", err)
		}
		printTrial(t)
		return nil
	},
}

var trialsCompleteCmd = &cobra.Command{
	Use:   "complete <set.json>",
	Short: "Complete the trial currently in progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, _, coord, cleanup, err := openServices(cmd, args[0])
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		if err := beginLocal(ctx, coord, set); err != nil {
			return err
		}
		done, err := coord.CompleteTrial(ctx)
		if err != nil {
			return fmt.Errorf("complete trial: %w", err)
		}
		printTrial(done)
		return nil
	},
}

var trialsDeleteCmd = &cobra.Command{
	Use:   "delete <set.json> <trial-id>",
	Short: "Delete a trial and its progress",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, _, coord, cleanup, err := openServices(cmd, args[0])
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		if err := beginLocal(ctx, coord, set); err != nil {
			return err
		}
		trialID := args[1]
		if trialID == "legacy" {
			trialID = trial.LegacyID
		}
		if err := coord.DeleteTrial(ctx, trialID); err != nil {
			return fmt.Errorf("delete trial: %w", err)
		}
		fmt.Println("Deleted.")
		return nil
	},
}

func init() {
	trialsCmd.AddCommand(trialsListCmd)
	trialsCmd.AddCommand(trialsStartCmd)
	trialsCmd.AddCommand(trialsCompleteCmd)
	trialsCmd.AddCommand(trialsDeleteCmd)
}

// openServices loads the question set and wires the storage and sync layers
// shared by the trial subcommands.
func openServices(cmd *cobra.Command, setPath string) (*questionset.Set, *trial.Registry, *syncer.Coordinator, func(), error) {
	set, err := questionset.LoadFile(setPath)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load question set: %w", err)
	}

	cfg := config.FromEnv()
	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("open store: %w", err)
	}

	registry := trial.NewRegistry(st)
	var gw remote.Gateway
	if cfg.Remote() {
		gw = remote.NewClient(cfg.RemoteURL, cfg.Token)
	}
	coord := syncer.New(registry, gw, cfg.User)

	return set, registry, coord, func() { st.Close() }, nil
}

// beginLocal opens a session without waiting for the background remote load.
func beginLocal(ctx context.Context, coord *syncer.Coordinator, set *questionset.Set) error {
	if _, _, _, err := coord.Begin(ctx, set.ID, set.Len()); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	return nil
}

func printTrial(t *trial.Trial) {
	id := t.ID
	if t.Legacy() {
		id = "legacy"
	}
	line := fmt.Sprintf("#%-3d %-12s %-36s started %s",
		t.Number, t.Status, id, t.StartedAt.Format("2006-01-02 15:04"))
	if t.Summary != nil {
		line += fmt.Sprintf("  %d/%d answered, %d%% accuracy",
			t.Summary.Answered, t.Summary.Total, t.Summary.AccuracyPct)
	}
	fmt.Println(line)
}
