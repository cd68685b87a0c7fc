package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"purgekit/internal/core"
	"purgekit/internal/executor"
	"purgekit/internal/reportx"
)

func newExecuteCmd() *cobra.Command {
	var abortOnError bool
	cmd := &cobra.Command{
		Use:   "execute <plan-id>",
		Short: "Run a previously sealed plan: back up and delete each item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if cmd.Flags().Changed("abort-on-error") {
				execCfg := a.cfg.ExecutorConfig()
				execCfg.AbortOnError = abortOnError
				a.exec = executor.New(a.backups, a.db, a.log, execCfg)
			}

			plan, err := a.db.LoadPlan(args[0])
			if err != nil {
				return fmt.Errorf("load plan: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			progress := make(chan core.ProgressEvent, 64)
			done := make(chan struct{})
			go func() {
				defer close(done)
				for ev := range progress {
					fmt.Printf("[%d/%d] %s %s\n", ev.CurrentIndex, ev.Total, ev.Phase, ev.Path)
				}
			}()

			result, err := a.exec.Run(ctx, plan, progress)
			close(progress)
			<-done
			if err != nil {
				return err
			}

			report := reportx.BuildReport(plan.PlanID, "manual", plan.Items, result, false)
			if err := reportx.Persist(a.db, plan.PlanID, report); err != nil {
				a.log.Errorf("persist report for plan %s: %v", plan.PlanID, err)
			}

			printExecutionSummary(result)
			for _, rec := range report.Recommendations {
				fmt.Println("  -", rec)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&abortOnError, "abort-on-error", false, "stop the run at the first item failure")
	return cmd
}

func printExecutionSummary(result core.ExecutionResult) {
	c := color.New(color.FgGreen)
	if result.Failed > 0 {
		c = color.New(color.FgYellow)
	}
	c.Printf("plan %s %s: %d succeeded, %d failed, %d skipped, %s freed\n",
		result.PlanID, result.Status, result.Success, result.Failed, result.Skipped, humanizeBytes(result.FreedBytes))
}
