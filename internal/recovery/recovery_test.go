package recovery

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"purgekit/internal/backupstore"
	"purgekit/internal/core"
	"purgekit/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *store.Store, *backupstore.Store, string) {
	t.Helper()
	root := t.TempDir()

	backups, err := backupstore.New(filepath.Join(root, "backups"), nil)
	if err != nil {
		t.Fatalf("backupstore.New: %v", err)
	}
	db, err := store.Open(filepath.Join(root, "purgekit.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return New(db, backups, nil), db, backups, root
}

func mustWriteFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func seedRecovery(t *testing.T, db *store.Store, planID string, itemID int64, backup core.BackupInfo) int64 {
	t.Helper()
	plan := core.CleanupPlan{PlanID: planID, CreatedAt: time.Now(), Sealed: true}
	if err := db.CreatePlan(plan); err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if err := db.RecordRecovery(planID, itemID, backup); err != nil {
		t.Fatalf("RecordRecovery: %v", err)
	}
	rows, err := db.History(store.HistoryFilter{}, store.Page{})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	for _, r := range rows {
		if r.PlanID == planID && r.ItemID == itemID {
			return r.RecoveryID
		}
	}
	t.Fatalf("seeded recovery row not found")
	return 0
}

func TestRestore_CopiesBackupBackAndMarksRestored(t *testing.T) {
	m, db, _, root := newTestManager(t)

	backupFile := filepath.Join(root, "backups", "full", "report_abcd1234.docx")
	mustWriteFile(t, backupFile, "restored content")

	original := filepath.Join(root, "work", "report.docx")
	recoveryID := seedRecovery(t, db, "plan-1", 1, core.BackupInfo{
		OriginalPath: original, BackupPath: backupFile, BackupKind: core.BackupFull, CreatedAt: time.Now(),
	})

	if err := m.Restore(recoveryID, ""); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	got, err := os.ReadFile(original)
	if err != nil {
		t.Fatalf("read restored file: %v", err)
	}
	if string(got) != "restored content" {
		t.Fatalf("content mismatch: %q", got)
	}

	rows, err := db.History(store.HistoryFilter{}, store.Page{})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if !rows[0].Restored {
		t.Fatalf("expected row marked restored")
	}
}

func TestRestore_ReapedBackupFails(t *testing.T) {
	m, db, _, _ := newTestManager(t)

	recoveryID := seedRecovery(t, db, "plan-2", 1, core.BackupInfo{
		OriginalPath: "/tmp/gone", BackupPath: "", BackupKind: core.BackupFull, CreatedAt: time.Now(),
	})

	if err := m.Restore(recoveryID, ""); err == nil {
		t.Fatalf("expected error restoring a reaped backup")
	}
}

func TestRestoreFailedItems_SkipsAlreadyRestored(t *testing.T) {
	m, db, _, root := newTestManager(t)

	backupFile := filepath.Join(root, "backups", "full", "a_11112222.tmp")
	mustWriteFile(t, backupFile, "a")
	plan := core.CleanupPlan{
		PlanID: "plan-3", CreatedAt: time.Now(), Sealed: true,
		Items: []core.PlanItem{{ItemID: 1, Path: filepath.Join(root, "a.tmp"), Size: 1, Kind: core.KindFile, FinalLabel: core.Dangerous, Status: core.StatusFailed}},
	}
	if err := db.CreatePlan(plan); err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if err := db.RecordRecovery("plan-3", 1, core.BackupInfo{OriginalPath: plan.Items[0].Path, BackupPath: backupFile, BackupKind: core.BackupFull, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("RecordRecovery: %v", err)
	}

	results, err := m.RestoreFailedItems("plan-3")
	if err != nil {
		t.Fatalf("RestoreFailedItems: %v", err)
	}
	if !results[plan.Items[0].Path] {
		t.Fatalf("expected successful restore, got %+v", results)
	}

	results2, err := m.RestoreFailedItems("plan-3")
	if err != nil {
		t.Fatalf("RestoreFailedItems (second): %v", err)
	}
	if len(results2) != 0 {
		t.Fatalf("expected already-restored row to be skipped, got %+v", results2)
	}
}

func TestCleanupExpired_NullsBackupPathForReapedRows(t *testing.T) {
	m, db, backups, root := newTestManager(t)

	f1 := filepath.Join(root, "src", "a.txt")
	mustWriteFile(t, f1, "alpha")
	manifest, err := backups.CreateManifest("profile-x", []string{f1}, 6)
	if err != nil {
		t.Fatalf("CreateManifest: %v", err)
	}
	_ = manifest

	plan := core.CleanupPlan{PlanID: "plan-4", CreatedAt: time.Now(), Sealed: true}
	if err := db.CreatePlan(plan); err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}

	legacyBackup := filepath.Join(root, "backups", "full", "legacy_deadbeef.tmp")
	mustWriteFile(t, legacyBackup, "legacy")
	old := time.Now().AddDate(0, 0, -90)
	if err := os.Chtimes(legacyBackup, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := db.RecordRecovery("plan-4", 1, core.BackupInfo{OriginalPath: "/tmp/legacy", BackupPath: legacyBackup, BackupKind: core.BackupFull, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("RecordRecovery: %v", err)
	}

	reaped, err := m.CleanupExpired(30, nil)
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if len(reaped) == 0 {
		t.Fatalf("expected at least one reaped backup")
	}

	rows, err := db.History(store.HistoryFilter{}, store.Page{})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if rows[0].BackupPath.Valid {
		t.Fatalf("expected backup_path nulled after reap, got %+v", rows[0])
	}
}
