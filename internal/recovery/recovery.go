// Package recovery implements the recovery manager: history, restore,
// restore_from_manifest, restore_failed_items, cleanup_expired, and
// search, layered over internal/store and internal/backupstore.
package recovery

import (
	"purgekit/internal/backupstore"
	"purgekit/internal/logx"
	"purgekit/internal/store"
)

// Manager is the read/restore side of the persistence + backup layers.
// It owns no state of its own.
type Manager struct {
	db      *store.Store
	backups *backupstore.Store
	log     *logx.Logger
}

func New(db *store.Store, backups *backupstore.Store, log *logx.Logger) *Manager {
	return &Manager{db: db, backups: backups, log: log}
}

// History paginates recovery rows.
func (m *Manager) History(filter store.HistoryFilter, page store.Page) ([]store.RecoveryRow, error) {
	return m.db.History(filter, page)
}

// Search substring-matches original_path/backup_path.
func (m *Manager) Search(keyword string) ([]store.RecoveryRow, error) {
	return m.db.Search(keyword)
}

// CleanupExpired is a thin wrapper over the retention reaper: after
// reaping, every reaped path's recovery_log row has its backup_path
// nulled while the row itself remains for audit.
func (m *Manager) CleanupExpired(retentionDays int, maxVersions *int) ([]backupstore.Reaped, error) {
	reaped, err := m.backups.CleanupOldBackups(retentionDays, maxVersions)
	if err != nil {
		return reaped, err
	}
	for _, r := range reaped {
		if err := m.db.NullBackupPath(r.Path); err != nil && m.log != nil {
			m.log.Errorf("null backup_path for reaped %s: %v", r.Path, err)
		}
	}
	return reaped, nil
}

// RestoreFailedItems batch-restores every recovery row whose PlanItem
// ended Failed, optionally scoped to one plan. Idempotent: rows already
// restored are skipped. Failure of one path never aborts the batch; the
// return value names each failed path.
func (m *Manager) RestoreFailedItems(planID string) (map[string]bool, error) {
	rows, err := m.db.FailedItemRecoveryRows(planID)
	if err != nil {
		return nil, err
	}

	results := make(map[string]bool, len(rows))
	for _, row := range rows {
		if row.Restored {
			continue
		}
		err := m.Restore(row.RecoveryID, "")
		results[row.OriginalPath] = err == nil
		if err != nil && m.log != nil {
			m.log.Errorf("restore failed item %s: %v", row.OriginalPath, err)
		}
	}
	return results, nil
}
