// Package scanner implements the cancelable, parallel scanner pool and
// the incremental index.
//
// Concurrency model: each root is an independent task consumed by a
// bounded worker pool; inside a root, traversal is single-threaded DFS.
// Candidates are delivered on a bounded channel the caller pulls from
// lazily — the stream is finite and non-restartable.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"purgekit/internal/core"
	"purgekit/internal/logx"
	"purgekit/internal/whitelist"
)

// Filters narrows which entries are emitted as candidates.
type Filters struct {
	MinSize            uint64
	IncludeHidden      bool
	ExtensionAllowList []string // empty means "all extensions"
	AgeCutoff          time.Duration
	ExcludeGlobs       []string
}

// Root describes one configured scan root.
type Root struct {
	Path        string
	Incremental bool
}

// Config tunes the scanner pool.
type Config struct {
	// ThreadCount bounds concurrent root workers. Default: 2x CPU, clamped [1,32].
	ThreadCount int
	// QueueSize bounds the output stream (back-pressure).
	QueueSize int
	// DirSizeWallClock caps time spent summing one directory's size.
	DirSizeWallClock time.Duration
	// DirSizeFileCap caps the number of files visited summing one directory's size.
	DirSizeFileCap int
	// CancelCheckEvery polls the cancel flag every N walked entries (files
	// and directories) of a root.
	CancelCheckEvery int
}

// DefaultConfig returns the scanner's default tuning.
func DefaultConfig() Config {
	threads := runtime.NumCPU() * 2
	if threads < 1 {
		threads = 1
	}
	if threads > 32 {
		threads = 32
	}
	return Config{
		ThreadCount:      threads,
		QueueSize:        256,
		DirSizeWallClock: 30 * time.Second,
		DirSizeFileCap:   10000,
		CancelCheckEvery: 256,
	}
}

// Pool is the parallel, cancelable scanner.
type Pool struct {
	cfg       Config
	whitelist *whitelist.Whitelist
	index     *IncrementalIndex
	log       *logx.Logger

	// itemsFound/bytesSeen count emitted items and their bytes; nothing in
	// this package reads them back.
	itemsFound uint64
	bytesSeen  uint64
}

// New constructs a Pool. wl and idx may be nil (no whitelist / no
// incremental mode).
func New(cfg Config, wl *whitelist.Whitelist, idx *IncrementalIndex, log *logx.Logger) *Pool {
	if cfg.ThreadCount <= 0 {
		cfg.ThreadCount = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.DirSizeWallClock <= 0 {
		cfg.DirSizeWallClock = 30 * time.Second
	}
	if cfg.DirSizeFileCap <= 0 {
		cfg.DirSizeFileCap = 10000
	}
	if cfg.CancelCheckEvery <= 0 {
		cfg.CancelCheckEvery = 256
	}
	return &Pool{cfg: cfg, whitelist: wl, index: idx, log: log}
}

// Scan walks roots in a bounded worker pool and returns a lazy, bounded
// stream of ScanItems. The stream closes when all roots finish or ctx is
// canceled. Already-emitted items remain valid after cancellation.
//
// warnc receives non-fatal per-root/per-entry warnings (permission denied,
// broken symlink, directory-size cap hit, entirely inaccessible root).
func (p *Pool) Scan(ctx context.Context, roots []Root, filters Filters) (<-chan core.ScanItem, <-chan string) {
	out := make(chan core.ScanItem, p.cfg.QueueSize)
	warnc := make(chan string, p.cfg.QueueSize)

	sem := make(chan struct{}, p.cfg.ThreadCount)
	var wg sync.WaitGroup

	for _, root := range roots {
		root := root
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			p.scanRoot(ctx, root, filters, out, warnc)
		}()
	}

	go func() {
		wg.Wait()
		close(out)
		close(warnc)
		// Incremental index is updated only after successful (non-cancelled)
		// termination of each root; see scanRoot. A cancelled scan leaves
		// the index untouched for every root not yet finished.
	}()

	return out, warnc
}

func (p *Pool) scanRoot(ctx context.Context, root Root, filters Filters, out chan<- core.ScanItem, warnc chan<- string) {
	fi, err := os.Stat(root.Path)
	if err != nil {
		warnc <- "root inaccessible: " + root.Path
		return
	}

	var lastScan time.Time
	if root.Incremental && p.index != nil {
		lastScan, _ = p.index.Get(root.Path)
	}

	scanStart := time.Now()

	emit := func(path string, info os.FileInfo, isDir bool) bool {
		if ctx.Err() != nil {
			return false
		}
		if p.whitelist != nil && p.whitelist.IsProtected(path) {
			return true // protected paths are simply never emitted as candidates
		}
		if !filters.IncludeHidden && isHidden(path) {
			return true
		}
		if matchesExclude(path, filters.ExcludeGlobs) {
			return false // caller should not descend either; handled by caller
		}
		size := uint64(0)
		partial := false
		if isDir {
			size, partial = p.directorySize(ctx, path)
			if partial && ctx.Err() == nil {
				warnc <- "directory size cap hit, partial sum reported: " + path
			}
		} else {
			size = uint64(info.Size())
			if size < filters.MinSize {
				return true
			}
			if len(filters.ExtensionAllowList) > 0 && !extAllowed(path, filters.ExtensionAllowList) {
				return true
			}
			if filters.AgeCutoff > 0 && time.Since(info.ModTime()) < filters.AgeCutoff {
				return true
			}
			if root.Incremental && !lastScan.IsZero() && !info.ModTime().After(lastScan) {
				return true // incremental mode: unchanged since last scan
			}
		}

		item := core.ScanItem{
			Path:         path,
			Size:         size,
			ModTime:      info.ModTime(),
			DiscoveredAt: time.Now(),
			PartialSize:  partial,
		}
		if isDir {
			item.Kind = core.KindDir
		} else {
			item.Kind = core.KindFile
		}

		select {
		case <-ctx.Done():
			return false
		case out <- item:
			atomic.AddUint64(&p.itemsFound, 1)
			atomic.AddUint64(&p.bytesSeen, size)
		}
		return true
	}

	if !fi.IsDir() {
		emit(root.Path, fi, false)
		return
	}

	count := 0
	walkErr := filepath.WalkDir(root.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			warnc <- "walk error (" + path + "): " + err.Error()
			return nil
		}

		count++
		if count%p.cfg.CancelCheckEvery == 0 && ctx.Err() != nil {
			return context.Canceled
		}

		if d.IsDir() {
			if path != root.Path && matchesExclude(path, filters.ExcludeGlobs) {
				return filepath.SkipDir
			}
			if p.whitelist != nil && p.whitelist.IsProtected(path) {
				return filepath.SkipDir
			}
			// A directory is itself a candidate ScanItem (a cache
			// directory can be assessed as a single unit), emitted with
			// its recursive size, in addition to continuing the walk into
			// its children. The root itself is never emitted as a
			// candidate — only its contents are.
			if path != root.Path {
				info, err := d.Info()
				if err != nil {
					warnc <- "info error (" + path + "): " + err.Error()
					return nil
				}
				emit(path, info, true)
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			warnc <- "info error (" + path + "): " + err.Error()
			return nil
		}
		emit(path, info, false)
		return nil
	})

	if walkErr != nil && walkErr != context.Canceled {
		warnc <- "walk failed for " + root.Path + ": " + walkErr.Error()
		return
	}

	// Only update the incremental index on successful, non-cancelled
	// termination.
	if root.Incremental && p.index != nil && ctx.Err() == nil {
		_ = p.index.Set(root.Path, scanStart)
	}
}

// directorySize recursively sums a directory's size with two hard caps:
// wall-clock and file count. Past either cap the partial sum is returned.
func (p *Pool) directorySize(ctx context.Context, root string) (uint64, bool) {
	deadline := time.Now().Add(p.cfg.DirSizeWallClock)
	var total uint64
	files := 0
	partial := false

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			partial = true
			return filepath.SkipAll
		}
		if d.IsDir() {
			return nil
		}
		files++
		if files > p.cfg.DirSizeFileCap || time.Now().After(deadline) {
			partial = true
			return filepath.SkipAll
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += uint64(info.Size())
		return nil
	})

	return total, partial
}

func isHidden(path string) bool {
	base := filepath.Base(path)
	return len(base) > 0 && base[0] == '.'
}

func extAllowed(path string, allow []string) bool {
	ext := filepath.Ext(path)
	for _, a := range allow {
		if a == ext {
			return true
		}
	}
	return false
}

func matchesExclude(path string, globs []string) bool {
	normalized := filepath.ToSlash(path)
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, normalized); ok {
			return true
		}
		if filepath.Base(path) == trimGlobSuffix(g) {
			return true
		}
	}
	return false
}

// trimGlobSuffix extracts a bare directory-name exclude like "node_modules"
// out of a "**/node_modules" pattern so base-name comparisons also match
// without requiring doublestar to walk the whole pattern.
func trimGlobSuffix(g string) string {
	idx := len(g) - 1
	for idx >= 0 && g[idx] != '/' {
		idx--
	}
	return g[idx+1:]
}
