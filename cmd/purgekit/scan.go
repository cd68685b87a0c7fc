package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"purgekit/internal/core"
)

func newScanCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan configured roots, classify candidates, and persist a sealed plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, dryRun, false)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "classify candidates without persisting a plan")
	return cmd
}

func newPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Scan and classify without persisting a plan (alias for scan --dry-run)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, true, true)
		},
	}
	return cmd
}

func runScan(cmd *cobra.Command, dryRun, preview bool) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	roots, err := a.scanRoots()
	if err != nil {
		return err
	}
	if len(roots) == 0 {
		fmt.Println("no scan roots configured; add paths to config.ini [paths]")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, warnc := a.scan.Scan(ctx, roots, a.cfg.ScannerFilters())

	var items []core.PlanItem
	var nextID int64 = 1
	now := time.Now()

	go func() {
		for w := range warnc {
			a.log.Warnf("scan: %s", w)
		}
	}()

	for scanItem := range out {
		assessment := a.arb.Assess(ctx, scanItem, nil, now)
		items = append(items, core.PlanItem{
			ItemID:     nextID,
			Path:       scanItem.Path,
			Size:       scanItem.Size,
			Kind:       scanItem.Kind,
			FinalLabel: assessment.FinalLabel,
			ReasonID:   assessment.ReasonID,
			Status:     core.StatusPending,
		})
		nextID++
	}

	printScanSummary(items)

	if dryRun || preview {
		return nil
	}

	planID, err := uuid.NewV7()
	if err != nil {
		planID = uuid.New()
	}
	plan := core.CleanupPlan{
		PlanID:    planID.String(),
		CreatedAt: time.Now(),
		Items:     items,
		Sealed:    true,
	}
	if err := a.db.CreatePlan(plan); err != nil {
		return fmt.Errorf("persist plan: %w", err)
	}

	color.Green("plan %s sealed with %d item(s)\n", plan.PlanID, len(plan.Items))
	return nil
}

func printScanSummary(items []core.PlanItem) {
	var safe, suspicious, dangerous int
	var totalSize uint64
	for _, item := range items {
		totalSize += item.Size
		switch item.FinalLabel {
		case core.Safe:
			safe++
		case core.Suspicious:
			suspicious++
		case core.Dangerous:
			dangerous++
		}
	}
	fmt.Printf("%d candidate(s): %d safe, %d suspicious, %d dangerous (%s total)\n",
		len(items), safe, suspicious, dangerous, humanizeBytes(totalSize))
}
