package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"purgekit/internal/store"
)

func newHistoryCmd() *cobra.Command {
	var keyword string
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Paginate the recovery log, optionally filtered by keyword",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var rows []store.RecoveryRow
			if keyword != "" {
				rows, err = a.rec.Search(keyword)
			} else {
				rows, err = a.rec.History(store.HistoryFilter{}, store.Page{Limit: limit})
			}
			if err != nil {
				return err
			}

			for _, r := range rows {
				fmt.Printf("%d  %-9s  restored=%-5v  %s\n", r.RecoveryID, r.BackupKind, r.Restored, r.OriginalPath)
			}
			fmt.Printf("%d row(s)\n", len(rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&keyword, "search", "", "substring match against original/backup path")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to return")
	return cmd
}
