package cmd

import (
	"fmt"
	"os"

	"github.com/abhisek/examdrill/internal/app"
	"github.com/abhisek/examdrill/internal/config"
	"github.com/abhisek/examdrill/internal/explain"
	"github.com/abhisek/examdrill/internal/questionset"
	"github.com/abhisek/examdrill/internal/remote"
	"github.com/abhisek/examdrill/internal/store"
	"github.com/abhisek/examdrill/internal/syncer"
	"github.com/abhisek/examdrill/internal/trial"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play <set.json>",
	Short: "Drill a question set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := questionset.LoadFile(args[0])
		if err != nil {
			return fmt.Errorf("load question set: %w", err)
		}

		cfg := config.FromEnv()
		dbPath, err := resolveDBPath(cmd, cfg)
		if err != nil {
			return fmt.Errorf("resolve DB path: %w", err)
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		registry := trial.NewRegistry(st)

		var gw remote.Gateway
		if cfg.Remote() {
			gw = remote.NewClient(cfg.RemoteURL, cfg.Token)
		}
		coord := syncer.New(registry, gw, cfg.User)

		// The explainer is optional; the app works without a provider.
		var explainSvc *explain.Service
		if llmCfg, ok := explain.DiscoverConfig(); ok {
			provider, err := explain.NewProvider(llmCfg)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Explanation provider not configured:", err)
				fmt.Fprintln(os.Stderr, "AI explanations will be unavailable.")
				explainSvc = explain.NewService(nil, llmCfg)
			} else {
				explainSvc = explain.NewService(provider, llmCfg)
			}
		} else {
			explainSvc = explain.NewService(nil, explain.DefaultConfig())
		}

		return app.Run(app.Options{
			Set:         set,
			Coordinator: coord,
			Registry:    registry,
			Explain:     explainSvc,
		})
	},
}
