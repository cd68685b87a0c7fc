//go:build !windows

package executor

// clearReadOnly is a no-op off Windows: POSIX permission bits don't
// have a read-only attribute that blocks unlink of a writable parent.
func clearReadOnly(path string) {}

// clearLockedChildren is a no-op off Windows; the retry still happens
// but nothing extra needs clearing first.
func clearLockedChildren(path string) {}
