package store

import (
	"database/sql"
	"fmt"
	"time"

	"purgekit/internal/core"
)

// CreatePlan persists a sealed CleanupPlan header and its items in one
// transaction (cleanup_plans, cleanup_items).
func (s *Store) CreatePlan(plan core.CleanupPlan) error {
	tx, err := s.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO cleanup_plans (plan_id, created_at, sealed, status, total_items) VALUES (?, ?, ?, 'pending', ?)`,
		plan.PlanID, plan.CreatedAt.Format(time.RFC3339Nano), boolToInt(plan.Sealed), len(plan.Items),
	)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}

	for _, item := range plan.Items {
		_, err := tx.Exec(
			`INSERT INTO cleanup_items (item_id, plan_id, path, size, kind, final_label, reason_id, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ItemID, plan.PlanID, item.Path, item.Size, item.Kind.String(), item.FinalLabel.String(), item.ReasonID, string(item.Status),
		)
		if err != nil {
			return fmt.Errorf("insert item %d: %w", item.ItemID, err)
		}
	}

	return tx.Commit()
}

// LoadPlan reconstructs a sealed CleanupPlan and its items from
// persistence, for callers that seal/persist a plan in one process (e.g.
// "scan") and execute it in another ("execute").
func (s *Store) LoadPlan(planID string) (core.CleanupPlan, error) {
	var plan core.CleanupPlan
	var createdAt string
	var sealed int
	err := s.readDB.QueryRow(
		`SELECT plan_id, created_at, sealed FROM cleanup_plans WHERE plan_id = ?`, planID,
	).Scan(&plan.PlanID, &createdAt, &sealed)
	if err != nil {
		return core.CleanupPlan{}, fmt.Errorf("load plan %s: %w", planID, err)
	}
	plan.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	plan.Sealed = sealed != 0

	rows, err := s.readDB.Query(
		`SELECT item_id, path, size, kind, final_label, reason_id, status FROM cleanup_items WHERE plan_id = ? ORDER BY item_id`,
		planID,
	)
	if err != nil {
		return core.CleanupPlan{}, fmt.Errorf("load items for plan %s: %w", planID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item core.PlanItem
		var kind, label, status string
		var reasonID sql.NullInt64
		if err := rows.Scan(&item.ItemID, &item.Path, &item.Size, &kind, &label, &reasonID, &status); err != nil {
			return core.CleanupPlan{}, err
		}
		item.Kind = parseItemKind(kind)
		item.FinalLabel, _ = core.ParseRiskLabel(label)
		item.ReasonID = reasonID.Int64
		item.Status = core.PlanItemStatus(status)
		plan.Items = append(plan.Items, item)
	}
	return plan, rows.Err()
}

func parseItemKind(s string) core.ItemKind {
	if s == "dir" {
		return core.KindDir
	}
	return core.KindFile
}

// UpdateItemStatus persists a PlanItem's state-machine transition. State
// transitions are persisted before the corresponding progress event is
// emitted.
func (s *Store) UpdateItemStatus(itemID int64, status core.PlanItemStatus) error {
	_, err := s.writeDB.Exec(`UPDATE cleanup_items SET status = ? WHERE item_id = ?`, string(status), itemID)
	return err
}

// RecordExecution inserts the terminal ExecutionResult for one executor
// run (cleanup_executions).
func (s *Store) RecordExecution(result core.ExecutionResult) error {
	_, err := s.writeDB.Exec(
		`INSERT INTO cleanup_executions
		 (plan_id, status, started_at, completed_at, total_items, success, failed, skipped, freed_bytes, failed_bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.PlanID, result.Status,
		result.StartedAt.Format(time.RFC3339Nano), result.CompletedAt.Format(time.RFC3339Nano),
		result.TotalItems, result.Success, result.Failed, result.Skipped, result.FreedBytes, result.FailedBytes,
	)
	return err
}

// RecordRecovery inserts one recovery_log row for an item that reached
// at least the backup stage.
func (s *Store) RecordRecovery(planID string, itemID int64, backup core.BackupInfo) error {
	_, err := s.writeDB.Exec(
		`INSERT INTO recovery_log (plan_id, item_id, original_path, backup_id, backup_path, backup_kind, restored, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		planID, itemID, backup.OriginalPath, backup.BackupID, backup.BackupPath, string(backup.BackupKind),
		backup.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// MarkRestored flips a recovery_log row to restored=true (monotone
// false->true).
func (s *Store) MarkRestored(recoveryID int64, at time.Time) error {
	_, err := s.writeDB.Exec(
		`UPDATE recovery_log SET restored = 1, restored_at = ? WHERE recovery_id = ? AND restored = 0`,
		at.Format(time.RFC3339Nano), recoveryID,
	)
	return err
}

// NullBackupPath clears backup_path for a reaped backup while keeping
// the recovery row for audit.
func (s *Store) NullBackupPath(backupPath string) error {
	_, err := s.writeDB.Exec(`UPDATE recovery_log SET backup_path = NULL WHERE backup_path = ?`, backupPath)
	return err
}

// RecoveryRow mirrors one recovery_log row for query results.
type RecoveryRow struct {
	RecoveryID   int64
	PlanID       string
	ItemID       int64
	OriginalPath string
	BackupID     string
	BackupPath   sql.NullString
	BackupKind   string
	Restored     bool
	RestoredAt   sql.NullString
	CreatedAt    time.Time
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
