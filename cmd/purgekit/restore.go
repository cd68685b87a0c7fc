package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <recovery-id>",
		Short: "Restore one backed-up item by its recovery id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			destination, _ := cmd.Flags().GetString("destination")

			recoveryID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid recovery id %q: %w", args[0], err)
			}

			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.rec.Restore(recoveryID, destination); err != nil {
				return err
			}
			color.Green("restored recovery %d\n", recoveryID)
			return nil
		},
	}
	cmd.Flags().String("destination", "", "restore to this path instead of the original location")
	cmd.AddCommand(newRestoreFailedCmd())
	return cmd
}

func newRestoreFailedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "failed [plan-id]",
		Short: "Batch-restore every recovery row whose item ended Failed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var planID string
			if len(args) == 1 {
				planID = args[0]
			}

			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.rec.RestoreFailedItems(planID)
			if err != nil {
				return err
			}
			ok := 0
			for path, success := range results {
				if success {
					ok++
				} else {
					color.Red("failed to restore %s\n", path)
				}
			}
			fmt.Printf("restored %d/%d item(s)\n", ok, len(results))
			return nil
		},
	}
}
