package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetAll bool

var resetCmd = &cobra.Command{
	Use:   "reset <set.json>",
	Short: "Clear recorded progress for a question set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, registry, coord, cleanup, err := openServices(cmd, args[0])
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()

		if resetAll {
			list, err := registry.List(ctx, coord.User(), set.ID)
			if err != nil {
				return fmt.Errorf("list trials: %w", err)
			}
			if err := beginLocal(ctx, coord, set); err != nil {
				return err
			}
			for _, t := range list {
				if err := coord.DeleteTrial(ctx, t.ID); err != nil {
					return fmt.Errorf("delete trial #%d: %w", t.Number, err)
				}
			}
			fmt.Printf("Deleted %d trial(s) for %s.\n", len(list), set.ID)
			return nil
		}

		if err := beginLocal(ctx, coord, set); err != nil {
			return err
		}
		if err := coord.Reset(ctx); err != nil {
			return fmt.Errorf("reset progress: %w", err)
		}
		fmt.Println("Progress cleared for the current trial.")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetAll, "all", false, "Delete every trial for the set instead of clearing the current one")
}
