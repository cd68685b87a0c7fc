package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newReapCmd() *cobra.Command {
	var days int
	var maxVersions int
	cmd := &cobra.Command{
		Use:   "reap",
		Short: "Delete backups past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if days <= 0 {
				days = a.cfg.RetentionDays()
			}
			var maxVersionsPtr *int
			if cmd.Flags().Changed("max-versions") {
				maxVersionsPtr = &maxVersions
			} else {
				maxVersionsPtr = a.cfg.RetentionMaxVersions()
			}

			reaped, err := a.rec.CleanupExpired(days, maxVersionsPtr)
			if err != nil {
				return err
			}
			color.Green("reaped %d backup(s)\n", len(reaped))
			for _, r := range reaped {
				fmt.Printf("  %s (%s)\n", r.Path, r.Reason)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "retention-days", 0, "override the configured retention window")
	cmd.Flags().IntVar(&maxVersions, "max-versions", 0, "cap the number of retained manifest versions per backup profile")
	return cmd
}
