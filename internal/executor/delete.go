package executor

import (
	"context"
	"os"
	"strings"
	"time"

	"purgekit/internal/core"
)

// deleteWithRetry unlinks a file or recursively deletes a directory,
// retrying a recoverable failure up to cfg.MaxRetries times.
//
// DirectoryNotEmpty gets its own one-shot path instead of the generic
// budget: a directory that still has children after the walk almost
// always means a handle on one of them hasn't closed yet (Windows), so
// this clears the stragglers and retries exactly once more before
// failing the item outright — looping it through cfg.MaxRetries like
// every other recoverable kind would just retry the same unremovable
// children.
func deleteWithRetry(ctx context.Context, path string, cfg Config) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		err := deleteOnce(path)
		if err == nil {
			return nil
		}
		lastErr = err

		ce, ok := core.AsCoreError(err)
		if !ok || !ce.Kind.Recoverable() {
			return lastErr
		}

		if ce.Kind == core.KindDirectoryNotEmpty {
			return deleteDirectoryNotEmptyOnce(ctx, path, cfg)
		}

		if attempt >= cfg.MaxRetries {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(cfg.RetryDelay):
		}
	}
}

// deleteDirectoryNotEmptyOnce clears locked children and retries the
// delete exactly once, regardless of cfg.MaxRetries.
func deleteDirectoryNotEmptyOnce(ctx context.Context, path string, cfg Config) error {
	clearLockedChildren(path)

	select {
	case <-ctx.Done():
		return core.NewError(core.KindDirectoryNotEmpty, path, "delete", ctx.Err())
	case <-time.After(cfg.RetryDelay):
	}

	return deleteOnce(path)
}

// deleteOnce performs a single delete attempt, clearing the read-only
// attribute first (a no-op off Windows) and classifying the resulting
// error into a core.ErrorKind.
func deleteOnce(path string) error {
	clearReadOnly(path)

	info, statErr := os.Lstat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return nil
		}
		return core.NewError(classifyDeleteErr(statErr), path, "stat before delete", statErr)
	}

	var err error
	if info.IsDir() {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		return nil
	}
	return core.NewError(classifyDeleteErr(err), path, "delete", err)
}

// classifyDeleteErr maps a raw filesystem error into the closed
// ErrorKind set. DirectoryNotEmpty is detected by message since its
// errno name differs across platforms.
func classifyDeleteErr(err error) core.ErrorKind {
	switch {
	case os.IsNotExist(err):
		return core.KindFileNotFound
	case os.IsPermission(err):
		return core.KindPermissionDenied
	case strings.Contains(err.Error(), "not empty"):
		return core.KindDirectoryNotEmpty
	case strings.Contains(err.Error(), "used by another process"), strings.Contains(err.Error(), "resource busy"):
		return core.KindFileInUse
	case strings.Contains(err.Error(), "no space"):
		return core.KindDiskFull
	default:
		return core.KindDeleteFailed
	}
}
