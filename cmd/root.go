package cmd

import (
	"github.com/abhisek/examdrill/internal/config"
	"github.com/abhisek/examdrill/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "examdrill",
	Short: "Terminal exam drilling with synced progress",
	Long:  "Examdrill — practice exam question sets in the terminal, with progress tracked per trial and synced to an optional remote service.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides EXAMDRILL_DB env var)")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(trialsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then EXAMDRILL_DB from the config, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}
