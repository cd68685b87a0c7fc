// Package whitelist implements the path-prefix protection set.
package whitelist

import (
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
)

// Whitelist is a prefix-matching set of absolute paths that must never be
// deleted. Updates are snapshot-atomic: readers always observe a
// consistent set, never a partial update.
type Whitelist struct {
	snap atomic.Pointer[[]string]
}

// New builds a Whitelist seeded with the given protected path prefixes.
func New(prefixes ...string) *Whitelist {
	w := &Whitelist{}
	w.Set(prefixes)
	return w
}

// Set atomically replaces the protected set.
func (w *Whitelist) Set(prefixes []string) {
	normalized := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		normalized = append(normalized, normalize(p))
	}
	w.snap.Store(&normalized)
}

// Add appends prefixes to the current set, publishing a new snapshot.
func (w *Whitelist) Add(prefixes ...string) {
	cur := w.snapshot()
	next := make([]string, 0, len(cur)+len(prefixes))
	next = append(next, cur...)
	for _, p := range prefixes {
		next = append(next, normalize(p))
	}
	w.snap.Store(&next)
}

func (w *Whitelist) snapshot() []string {
	p := w.snap.Load()
	if p == nil {
		return nil
	}
	return *p
}

// IsProtected reports whether p is under (or equal to) any protected
// prefix, using OS path semantics (case-insensitive on Windows).
func (w *Whitelist) IsProtected(p string) bool {
	np := normalize(p)
	for _, prefix := range w.snapshot() {
		if hasPathPrefix(np, prefix) {
			return true
		}
	}
	return false
}

// normalize produces a canonical absolute form for prefix comparison.
// On Windows, paths are case-folded because the filesystem is
// case-insensitive.
func normalize(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = p
	}
	abs = filepath.Clean(abs)
	if runtime.GOOS == "windows" {
		abs = strings.ToLower(abs)
	}
	return abs
}

// hasPathPrefix reports whether child is prefix or a descendant of
// prefix, respecting path element boundaries (so "/data2" is not
// considered a descendant of "/data").
func hasPathPrefix(child, prefix string) bool {
	if child == prefix {
		return true
	}
	sep := string(filepath.Separator)
	if !strings.HasSuffix(prefix, sep) {
		prefix += sep
	}
	return strings.HasPrefix(child, prefix)
}
