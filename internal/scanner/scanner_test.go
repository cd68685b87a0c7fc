package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"purgekit/internal/core"
	"purgekit/internal/whitelist"
)

func drain(t *testing.T, out <-chan core.ScanItem, warnc <-chan string) ([]core.ScanItem, []string) {
	t.Helper()
	var items []core.ScanItem
	var warnings []string
	for out != nil || warnc != nil {
		select {
		case item, ok := <-out:
			if !ok {
				out = nil
				continue
			}
			items = append(items, item)
		case w, ok := <-warnc:
			if !ok {
				warnc = nil
				continue
			}
			warnings = append(warnings, w)
		}
	}
	return items, warnings
}

func mustWriteFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestScan_EmitsFilesAndDirectories(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "cache", "a.bin"), "hello")
	mustWriteFile(t, filepath.Join(root, "cache", "b.bin"), "world")
	mustWriteFile(t, filepath.Join(root, "keep.txt"), "x")

	pool := New(DefaultConfig(), nil, nil, nil)
	out, warnc := pool.Scan(context.Background(), []Root{{Path: root}}, Filters{})
	items, _ := drain(t, out, warnc)

	var sawCacheDir, sawKeepFile bool
	for _, it := range items {
		if it.Path == filepath.Join(root, "cache") && it.Kind == core.KindDir {
			sawCacheDir = true
			if it.Size != 10 {
				t.Fatalf("expected cache dir size 10, got %d", it.Size)
			}
		}
		if it.Path == filepath.Join(root, "keep.txt") && it.Kind == core.KindFile {
			sawKeepFile = true
		}
	}
	if !sawCacheDir {
		t.Fatalf("expected cache directory to be emitted as a candidate, items: %+v", items)
	}
	if !sawKeepFile {
		t.Fatalf("expected keep.txt to be emitted as a candidate, items: %+v", items)
	}

	// the root itself must never be emitted as a candidate
	for _, it := range items {
		if it.Path == root {
			t.Fatalf("root must not be emitted as a candidate")
		}
	}
}

func TestScan_WhitelistExcludesSubtree(t *testing.T) {
	root := t.TempDir()
	protectedDir := filepath.Join(root, "protected")
	mustWriteFile(t, filepath.Join(protectedDir, "a.txt"), "x")
	mustWriteFile(t, filepath.Join(root, "other", "b.txt"), "y")

	wl := whitelist.New(protectedDir)
	pool := New(DefaultConfig(), wl, nil, nil)
	out, warnc := pool.Scan(context.Background(), []Root{{Path: root}}, Filters{})
	items, _ := drain(t, out, warnc)

	for _, it := range items {
		if it.Path == filepath.Join(protectedDir, "a.txt") || it.Path == protectedDir {
			t.Fatalf("whitelisted path leaked into candidates: %s", it.Path)
		}
	}
}

func TestScan_ExcludeGlobsSkipDescent(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "node_modules", "pkg", "index.js"), "x")
	mustWriteFile(t, filepath.Join(root, "src", "main.go"), "y")

	pool := New(DefaultConfig(), nil, nil, nil)
	out, warnc := pool.Scan(context.Background(), []Root{{Path: root}}, Filters{
		ExcludeGlobs: []string{"**/node_modules"},
	})
	items, _ := drain(t, out, warnc)

	for _, it := range items {
		if filepath.Base(filepath.Dir(it.Path)) == "node_modules" || filepath.Base(it.Path) == "node_modules" {
			t.Fatalf("excluded subtree leaked into candidates: %s", it.Path)
		}
	}
}

func TestScan_MinSizeFiltersSmallFiles(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "small.txt"), "x")
	mustWriteFile(t, filepath.Join(root, "big.txt"), "this is a much longer file body")

	pool := New(DefaultConfig(), nil, nil, nil)
	out, warnc := pool.Scan(context.Background(), []Root{{Path: root}}, Filters{MinSize: 10})
	items, _ := drain(t, out, warnc)

	for _, it := range items {
		if it.Path == filepath.Join(root, "small.txt") {
			t.Fatalf("small.txt should have been filtered out by MinSize")
		}
	}
}

func TestScan_Cancellation_IndexNotUpdated(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 50; i++ {
		mustWriteFile(t, filepath.Join(root, "f"+string(rune('a'+i%26))+".txt"), "x")
	}

	idxPath := filepath.Join(t.TempDir(), "index.json")
	idx, err := NewIncrementalIndex(idxPath)
	if err != nil {
		t.Fatalf("NewIncrementalIndex: %v", err)
	}
	idx.MinInterval = 0

	cfg := DefaultConfig()
	cfg.CancelCheckEvery = 1
	pool := New(cfg, nil, idx, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, warnc := pool.Scan(ctx, []Root{{Path: root, Incremental: true}}, Filters{})
	drain(t, out, warnc)

	got, _ := idx.Get(root)
	if !got.IsZero() {
		t.Fatalf("expected incremental index untouched after cancellation, got %v", got)
	}
}

func TestScan_IncrementalSkipsUnchangedFiles(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "a.txt")
	mustWriteFile(t, target, "x")

	idxPath := filepath.Join(t.TempDir(), "index.json")
	idx, err := NewIncrementalIndex(idxPath)
	if err != nil {
		t.Fatalf("NewIncrementalIndex: %v", err)
	}
	idx.MinInterval = 0

	pool := New(DefaultConfig(), nil, idx, nil)

	out, warnc := pool.Scan(context.Background(), []Root{{Path: root, Incremental: true}}, Filters{})
	items, _ := drain(t, out, warnc)
	if len(items) == 0 {
		t.Fatalf("expected a.txt on first scan")
	}

	time.Sleep(5 * time.Millisecond)

	out2, warnc2 := pool.Scan(context.Background(), []Root{{Path: root, Incremental: true}}, Filters{})
	items2, _ := drain(t, out2, warnc2)
	for _, it := range items2 {
		if it.Path == target {
			t.Fatalf("expected unchanged a.txt to be skipped on second incremental scan")
		}
	}
}

func TestDirectorySize_FileCapReturnsPartial(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 10; i++ {
		mustWriteFile(t, filepath.Join(root, "f"+string(rune('a'+i))+".txt"), "x")
	}

	cfg := DefaultConfig()
	cfg.DirSizeFileCap = 3
	pool := New(cfg, nil, nil, nil)

	_, partial := pool.directorySize(context.Background(), root)
	if !partial {
		t.Fatalf("expected partial result when file cap is exceeded")
	}
}
