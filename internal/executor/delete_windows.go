//go:build windows

package executor

import (
	"io/fs"
	"os"
	"path/filepath"
)

// clearReadOnly strips the read-only attribute so a subsequent
// os.Remove/RemoveAll does not fail with access-denied.
func clearReadOnly(path string) {
	info, err := os.Lstat(path)
	if err != nil {
		return
	}
	if info.Mode()&0o200 == 0 {
		_ = os.Chmod(path, info.Mode()|0o200)
	}
}

// clearLockedChildren walks path clearing the read-only bit on every
// descendant before a DirectoryNotEmpty retry, covering the case where
// a child was left read-only by the process that originally wrote it.
func clearLockedChildren(path string) {
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		clearReadOnly(p)
		return nil
	})
}
