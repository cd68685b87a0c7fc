package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// HistoryFilter narrows a recovery_log history query.
type HistoryFilter struct {
	BackupKind string // "" means any
	Restored   *bool  // nil means any
	Since      time.Time
	Until      time.Time
	Keyword    string // substring match against original_path/backup_path
}

// Page bounds a paginated query.
type Page struct {
	Limit  int
	Offset int
}

// History returns recovery_log rows matching filter, newest first.
func (s *Store) History(filter HistoryFilter, page Page) ([]RecoveryRow, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT recovery_id, plan_id, item_id, original_path, backup_id, backup_path, backup_kind, restored, restored_at, created_at
		FROM recovery_log WHERE 1=1`)
	var args []any

	if filter.BackupKind != "" {
		query.WriteString(" AND backup_kind = ?")
		args = append(args, filter.BackupKind)
	}
	if filter.Restored != nil {
		query.WriteString(" AND restored = ?")
		args = append(args, boolToInt(*filter.Restored))
	}
	if !filter.Since.IsZero() {
		query.WriteString(" AND created_at >= ?")
		args = append(args, filter.Since.Format(time.RFC3339Nano))
	}
	if !filter.Until.IsZero() {
		query.WriteString(" AND created_at <= ?")
		args = append(args, filter.Until.Format(time.RFC3339Nano))
	}
	if filter.Keyword != "" {
		query.WriteString(" AND (original_path LIKE ? OR backup_path LIKE ?)")
		like := "%" + filter.Keyword + "%"
		args = append(args, like, like)
	}

	query.WriteString(" ORDER BY created_at DESC")
	if page.Limit > 0 {
		query.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, page.Limit, page.Offset)
	}

	rows, err := s.readDB.Query(query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query recovery history: %w", err)
	}
	defer rows.Close()

	var results []RecoveryRow
	for rows.Next() {
		var r RecoveryRow
		var backupID sql.NullString
		var createdAt string
		if err := rows.Scan(&r.RecoveryID, &r.PlanID, &r.ItemID, &r.OriginalPath, &backupID,
			&r.BackupPath, &r.BackupKind, &r.Restored, &r.RestoredAt, &createdAt); err != nil {
			return nil, err
		}
		r.BackupID = backupID.String
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		results = append(results, r)
	}
	return results, rows.Err()
}

// Search is History with only a keyword filter.
func (s *Store) Search(keyword string) ([]RecoveryRow, error) {
	return s.History(HistoryFilter{Keyword: keyword}, Page{})
}

// GetRecovery looks up a single recovery_log row by its recovery_id, the
// stable identifier a restore operation resolves against.
func (s *Store) GetRecovery(recoveryID int64) (RecoveryRow, error) {
	var r RecoveryRow
	var backupID sql.NullString
	var createdAt string
	err := s.readDB.QueryRow(
		`SELECT recovery_id, plan_id, item_id, original_path, backup_id, backup_path, backup_kind, restored, restored_at, created_at
		 FROM recovery_log WHERE recovery_id = ?`, recoveryID,
	).Scan(&r.RecoveryID, &r.PlanID, &r.ItemID, &r.OriginalPath, &backupID,
		&r.BackupPath, &r.BackupKind, &r.Restored, &r.RestoredAt, &createdAt)
	if err != nil {
		return RecoveryRow{}, fmt.Errorf("get recovery %d: %w", recoveryID, err)
	}
	r.BackupID = backupID.String
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return r, nil
}

// FailedItemRecoveryRows returns every recovery row whose PlanItem ended
// Failed, optionally scoped to one plan.
func (s *Store) FailedItemRecoveryRows(planID string) ([]RecoveryRow, error) {
	query := `SELECT r.recovery_id, r.plan_id, r.item_id, r.original_path, r.backup_id, r.backup_path, r.backup_kind, r.restored, r.restored_at, r.created_at
		FROM recovery_log r
		JOIN cleanup_items i ON i.item_id = r.item_id
		WHERE i.status = 'failed'`
	var args []any
	if planID != "" {
		query += " AND r.plan_id = ?"
		args = append(args, planID)
	}

	rows, err := s.readDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed-item recovery rows: %w", err)
	}
	defer rows.Close()

	var results []RecoveryRow
	for rows.Next() {
		var r RecoveryRow
		var backupID sql.NullString
		var createdAt string
		if err := rows.Scan(&r.RecoveryID, &r.PlanID, &r.ItemID, &r.OriginalPath, &backupID,
			&r.BackupPath, &r.BackupKind, &r.Restored, &r.RestoredAt, &createdAt); err != nil {
			return nil, err
		}
		r.BackupID = backupID.String
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		results = append(results, r)
	}
	return results, rows.Err()
}
