package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <set.json>",
	Short: "Compare accuracy across completed trials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, registry, coord, cleanup, err := openServices(cmd, args[0])
		if err != nil {
			return err
		}
		defer cleanup()

		list, err := registry.List(cmd.Context(), coord.User(), set.ID)
		if err != nil {
			return fmt.Errorf("list trials: %w", err)
		}

		fmt.Println(set.Title)
		prev := -1
		printed := 0
		for _, t := range list {
			if !t.Completed() || t.Summary == nil {
				continue
			}
			delta := ""
			if prev >= 0 {
				delta = fmt.Sprintf("  (%+d%%)", t.Summary.AccuracyPct-prev)
			}
			fmt.Printf("  #%-3d %s  %3d/%d answered  %3d%% accuracy%s\n",
				t.Number, t.CompletedAt.Format("2006-01-02"),
				t.Summary.Answered, t.Summary.Total, t.Summary.AccuracyPct, delta)
			prev = t.Summary.AccuracyPct
			printed++
		}
		if printed == 0 {
			fmt.Println("  No completed trials yet.")
		}
		return nil
	},
}
