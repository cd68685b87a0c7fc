package scanner

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// IncrementalIndex persists a per-root "last scan completed at" timestamp
// so a later scan of the same root can skip files unchanged since then.
// It is a single JSON document, written atomically (write-temp then
// rename) so a crash mid-write never leaves a truncated index behind.
type IncrementalIndex struct {
	path string

	mu      sync.Mutex
	entries map[string]time.Time

	// MinInterval is the minimum time that must elapse between two
	// recorded scans of the same root before Set takes effect; a root
	// re-scanned sooner than this is treated as "not yet due" and its
	// last-scan timestamp is left alone. Zero disables the guard.
	MinInterval time.Duration
}

type indexDocument struct {
	Roots map[string]time.Time `json:"roots"`
}

// NewIncrementalIndex loads the index document at path, if any, and
// returns an IncrementalIndex backed by it. A missing file is not an
// error: it just starts empty.
func NewIncrementalIndex(path string) (*IncrementalIndex, error) {
	idx := &IncrementalIndex{
		path:        path,
		entries:     make(map[string]time.Time),
		MinInterval: 60 * time.Second,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, err
	}

	var doc indexDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		// A corrupt index is not fatal to the whole program: start fresh
		// rather than refuse to scan at all.
		return idx, nil
	}
	if doc.Roots != nil {
		idx.entries = doc.Roots
	}
	return idx, nil
}

// Get returns the last recorded scan completion time for root, or the
// zero Time if root has never completed a scan.
func (idx *IncrementalIndex) Get(root string) (time.Time, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.entries[normalizeRoot(root)], nil
}

// Set records that root finished scanning at when, persisting the index
// to disk. If a prior entry exists and less than MinInterval has passed
// since it, the update is skipped and Set returns nil without touching
// the file.
func (idx *IncrementalIndex) Set(root string, when time.Time) error {
	key := normalizeRoot(root)

	idx.mu.Lock()
	if prev, ok := idx.entries[key]; ok && idx.MinInterval > 0 {
		if when.Sub(prev) < idx.MinInterval {
			idx.mu.Unlock()
			return nil
		}
	}
	idx.entries[key] = when
	doc := indexDocument{Roots: make(map[string]time.Time, len(idx.entries))}
	for k, v := range idx.entries {
		doc.Roots[k] = v
	}
	idx.mu.Unlock()

	return idx.persist(doc)
}

func (idx *IncrementalIndex) persist(doc indexDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(idx.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".incremental-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, idx.path)
}

// normalizeRoot is the index key: filepath.Clean everywhere, plus
// case-folding on Windows only, where the filesystem itself is
// case-insensitive.
func normalizeRoot(root string) string {
	key := filepath.ToSlash(filepath.Clean(root))
	if runtime.GOOS == "windows" {
		key = strings.ToLower(key)
	}
	return key
}
