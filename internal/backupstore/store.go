// Package backupstore implements the content-addressed backup area:
// three subtrees (hardlinks/, full/, manifests/), single-item backup
// dispatch keyed on risk label, and manifest-based multi-file backups
// with a retention reaper.
package backupstore

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"purgekit/internal/core"
	"purgekit/internal/logx"
)

// Store is rooted at a single backup directory with three subtrees.
// Exactly one executor writes to a Store at a time.
type Store struct {
	Root string
	log  *logx.Logger
}

const (
	hardlinksDir = "hardlinks"
	fullDir      = "full"
	manifestsDir = "manifests"
)

// New ensures the three subtrees exist under root.
func New(root string, log *logx.Logger) (*Store, error) {
	for _, sub := range []string{hardlinksDir, fullDir, manifestsDir} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create backup subtree %s: %w", sub, err)
		}
	}
	return &Store{Root: root, log: log}, nil
}

// StrategyFor returns the backup strategy keyed on risk label:
// Safe -> None, Suspicious -> Hardlink, Dangerous -> Full.
func StrategyFor(label core.RiskLabel) core.BackupKind {
	switch label {
	case core.Safe:
		return core.BackupNone
	case core.Suspicious:
		return core.BackupHardlink
	default:
		return core.BackupFull
	}
}

// backupFilename implements the single-item naming scheme:
// basename + '_' + md5(path)[:8] + ext.
func backupFilename(path string) string {
	ext := filepath.Ext(path)
	base := filepath.Base(path)
	base = base[:len(base)-len(ext)]
	sum := md5.Sum([]byte(path))
	return base + "_" + hex.EncodeToString(sum[:])[:8] + ext
}

// BackupItem dispatches a single-item backup for path per its final
// label. A Safe item yields BackupNone and is not copied anywhere.
func (s *Store) BackupItem(path string, label core.RiskLabel, itemID int64) (core.BackupInfo, error) {
	kind := StrategyFor(label)
	info := core.BackupInfo{
		ItemID:       itemID,
		OriginalPath: path,
		BackupKind:   kind,
		CreatedAt:    time.Now(),
	}
	if kind == core.BackupNone {
		return info, nil
	}

	dst := filepath.Join(s.Root, subtreeFor(kind), backupFilename(path))
	if _, err := os.Stat(dst); err == nil {
		return core.BackupInfo{}, core.NewError(core.KindBackupFailed, path,
			"backup destination already exists; caller must retry with a fresh path suffix", nil)
	}

	if kind == core.BackupHardlink {
		if err := os.Link(path, dst); err != nil {
			// Hardlink fallback: cross-device or unsupported FS degrades
			// to a Full copy, with a warning.
			if s.log != nil {
				s.log.Warnf("hardlink backup failed for %s, degrading to full copy: %v", path, err)
			}
			dst = filepath.Join(s.Root, fullDir, backupFilename(path))
			if err := copyPreservingMeta(path, dst); err != nil {
				return core.BackupInfo{}, core.NewError(core.KindBackupFailed, path, "full-copy fallback failed", err)
			}
			info.BackupKind = core.BackupFull
			info.BackupPath = dst
			return info, nil
		}
		info.BackupPath = dst
		return info, nil
	}

	if err := copyPreservingMeta(path, dst); err != nil {
		return core.BackupInfo{}, core.NewError(core.KindBackupFailed, path, "full backup copy failed", err)
	}
	info.BackupPath = dst
	return info, nil
}

func subtreeFor(kind core.BackupKind) string {
	if kind == core.BackupHardlink {
		return hardlinksDir
	}
	return fullDir
}

// copyPreservingMeta performs a Full backup: copy2 semantics, preserving
// mtime and permissions.
func copyPreservingMeta(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	if info.IsDir() {
		return copyDirPreservingMeta(src, dst, info)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode())
	if err != nil {
		return err
	}
	closed := false
	defer func() {
		if !closed {
			out.Close()
			os.Remove(tmp)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	closed = true

	if err := os.Rename(tmp, dst); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

func copyDirPreservingMeta(src, dst string, info os.FileInfo) error {
	if err := os.MkdirAll(dst, info.Mode()); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		childSrc := filepath.Join(src, e.Name())
		childDst := filepath.Join(dst, e.Name())
		if err := copyPreservingMeta(childSrc, childDst); err != nil {
			return err
		}
	}
	return nil
}

// stripDriveLetter removes a Windows drive prefix ("C:") from p so
// archive entry paths stay portable.
func stripDriveLetter(p string) string {
	if runtime.GOOS != "windows" {
		return p
	}
	if len(p) >= 2 && p[1] == ':' {
		return p[2:]
	}
	return p
}
