// Package executor runs a sealed CleanupPlan item by item: existence
// check, backup dispatch, delete with retry, and terminal-state
// persistence, generalized from a single-processor worker goroutine
// into a state machine driven item by item.
package executor

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"purgekit/internal/backupstore"
	"purgekit/internal/core"
	"purgekit/internal/logx"
	"purgekit/internal/store"
)

// Config tunes retry behavior and plan-level abort policy.
type Config struct {
	MaxRetries   int
	RetryDelay   time.Duration
	AbortOnError bool
}

// DefaultConfig is the conservative out-of-the-box retry policy.
func DefaultConfig() Config {
	return Config{MaxRetries: 3, RetryDelay: 500 * time.Millisecond}
}

// Executor applies a sealed plan against the filesystem. Exactly one
// Run may be in flight at a time, since the backup root is written by
// exactly one executor at a time; a concurrent Run is rejected by the
// idle gate.
type Executor struct {
	backups *backupstore.Store
	db      *store.Store
	log     *logx.Logger
	cfg     Config

	idle atomic.Bool
}

func New(backups *backupstore.Store, db *store.Store, log *logx.Logger, cfg Config) *Executor {
	e := &Executor{backups: backups, db: db, log: log, cfg: cfg}
	e.idle.Store(true)
	return e
}

// ErrBusy is returned when Run is called while another execution is
// already in flight.
var ErrBusy = fmt.Errorf("executor: another execution is already running")

// Run executes every item of plan in order, emitting a ProgressEvent
// after each one on progress (progress may be nil). Cancellation
// between items is immediate; cancellation mid-item is best-effort —
// the current item always reaches a terminal state before ctx is
// rechecked.
func (e *Executor) Run(ctx context.Context, plan core.CleanupPlan, progress chan<- core.ProgressEvent) (core.ExecutionResult, error) {
	if !e.idle.CompareAndSwap(true, false) {
		return core.ExecutionResult{}, ErrBusy
	}
	defer e.idle.Store(true)

	result := core.ExecutionResult{
		PlanID:     plan.PlanID,
		StartedAt:  time.Now(),
		TotalItems: len(plan.Items),
	}

	cancelled := false
	for i, item := range plan.Items {
		if !cancelled && ctx.Err() != nil {
			cancelled = true
		}
		if cancelled {
			if err := e.db.UpdateItemStatus(item.ItemID, core.StatusCancelled); err != nil {
				e.log.Errorf("persist cancelled status for item %d: %v", item.ItemID, err)
			}
			emitProgress(progress, plan.PlanID, "cancelled", i+1, len(plan.Items), item.Path)
			continue
		}

		status, failure := e.runItem(ctx, plan.PlanID, item, &result)
		switch status {
		case core.StatusSuccess:
			result.Success++
			result.FreedBytes += item.Size
		case core.StatusSkipped:
			result.Skipped++
		case core.StatusFailed:
			result.Failed++
			result.FailedBytes += item.Size
			if failure != nil {
				result.Failures = append(result.Failures, *failure)
			}
			if e.cfg.AbortOnError {
				emitProgress(progress, plan.PlanID, "phase:aborting", i+1, len(plan.Items), item.Path)
				result.CompletedAt = time.Now()
				result.Status = "partial_success"
				e.recordExecution(result)
				return result, nil
			}
		}

		emitProgress(progress, plan.PlanID, "item_done", i+1, len(plan.Items), item.Path)
	}

	result.CompletedAt = time.Now()
	switch {
	case cancelled:
		result.Status = "cancelled"
	case result.Failed > 0:
		result.Status = "partial_success"
	default:
		result.Status = "completed"
	}
	e.recordExecution(result)
	return result, nil
}

func (e *Executor) recordExecution(result core.ExecutionResult) {
	if err := e.db.RecordExecution(result); err != nil {
		e.log.Errorf("record execution for plan %s: %v", result.PlanID, err)
	}
}

// runItem drives one PlanItem through Pending -> BackingUp -> Deleting
// -> a terminal state, persisting each transition before it is
// reflected to callers.
func (e *Executor) runItem(ctx context.Context, planID string, item core.PlanItem, result *core.ExecutionResult) (core.PlanItemStatus, *core.ExecutionFailure) {
	if _, err := os.Lstat(item.Path); err != nil {
		if os.IsNotExist(err) {
			e.transition(item.ItemID, core.StatusSkipped)
			return core.StatusSkipped, nil
		}
		e.transition(item.ItemID, core.StatusFailed)
		return core.StatusFailed, &core.ExecutionFailure{Path: item.Path, Kind: core.KindAccessDenied, Err: err}
	}

	e.transition(item.ItemID, core.StatusBackingUp)
	info, err := e.backups.BackupItem(item.Path, item.FinalLabel, item.ItemID)
	if err != nil {
		e.transition(item.ItemID, core.StatusFailed)
		kind := core.KindBackupFailed
		if ce, ok := core.AsCoreError(err); ok {
			kind = ce.Kind
		}
		return core.StatusFailed, &core.ExecutionFailure{Path: item.Path, Kind: kind, Err: err}
	}
	if info.BackupKind != core.BackupNone {
		info.ItemID = item.ItemID
		if err := e.db.RecordRecovery(planID, item.ItemID, info); err != nil {
			e.log.Errorf("record recovery for item %d: %v", item.ItemID, err)
		}
	}

	e.transition(item.ItemID, core.StatusDeleting)
	if err := deleteWithRetry(ctx, item.Path, e.cfg); err != nil {
		e.transition(item.ItemID, core.StatusFailed)
		kind := core.KindDeleteFailed
		if ce, ok := core.AsCoreError(err); ok {
			kind = ce.Kind
			if kind == core.KindFileNotFound {
				e.transition(item.ItemID, core.StatusSkipped)
				return core.StatusSkipped, nil
			}
		}
		return core.StatusFailed, &core.ExecutionFailure{Path: item.Path, Kind: kind, Err: err}
	}

	e.transition(item.ItemID, core.StatusSuccess)
	return core.StatusSuccess, nil
}

func (e *Executor) transition(itemID int64, status core.PlanItemStatus) {
	if err := e.db.UpdateItemStatus(itemID, status); err != nil {
		e.log.Errorf("persist status %s for item %d: %v", status, itemID, err)
	}
}

func emitProgress(progress chan<- core.ProgressEvent, planID, phase string, idx, total int, path string) {
	if progress == nil {
		return
	}
	progress <- core.ProgressEvent{PlanID: planID, Phase: phase, CurrentIndex: idx, Total: total, Path: path}
}
