package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"purgekit/internal/core"
)

func TestReadScanRoots_ParsesIncrementalToggle(t *testing.T) {
	dir := t.TempDir()
	ini := "[paths]\n" +
		"/data/incoming, yes\n" +
		"/data/archive, no\n" +
		"/data/default\n"
	if err := os.WriteFile(filepath.Join(dir, "config.ini"), []byte(ini), 0o644); err != nil {
		t.Fatalf("write config.ini: %v", err)
	}

	roots, err := ReadScanRoots(dir, nil)
	if err != nil {
		t.Fatalf("ReadScanRoots: %v", err)
	}
	if len(roots) != 3 {
		t.Fatalf("expected 3 roots, got %d: %+v", len(roots), roots)
	}
	if !roots[0].Incremental {
		t.Fatalf("expected first root incremental=true, got %+v", roots[0])
	}
	if roots[1].Incremental {
		t.Fatalf("expected second root incremental=false, got %+v", roots[1])
	}
	if !roots[2].Incremental {
		t.Fatalf("expected default (no toggle) incremental=true, got %+v", roots[2])
	}
}

func TestReadScanRoots_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	ini := "[paths]\n,\n/ok/path, yes\n"
	if err := os.WriteFile(filepath.Join(dir, "config.ini"), []byte(ini), 0o644); err != nil {
		t.Fatalf("write config.ini: %v", err)
	}

	roots, err := ReadScanRoots(dir, nil)
	if err != nil {
		t.Fatalf("ReadScanRoots: %v", err)
	}
	if len(roots) != 1 || roots[0].Path != "/ok/path" {
		t.Fatalf("expected malformed line skipped, got %+v", roots)
	}
}

func TestLoadYAML_OverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	body := `
backup_root: /backups
scanner:
  thread_count: 4
  queue_size: 0
executor:
  max_retries: 5
retention:
  days: 14
llm:
  mode: budget
  max_calls_per_scan: 10
`
	path := filepath.Join(dir, "purgekit.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write purgekit.yaml: %v", err)
	}

	doc, err := LoadYAML(path)
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}

	scannerCfg := doc.ScannerConfig()
	if scannerCfg.ThreadCount != 4 {
		t.Fatalf("expected thread_count override 4, got %d", scannerCfg.ThreadCount)
	}
	if scannerCfg.QueueSize == 0 {
		t.Fatalf("expected queue_size to fall back to default, got 0")
	}

	execCfg := doc.ExecutorConfig()
	if execCfg.MaxRetries != 5 {
		t.Fatalf("expected max_retries override 5, got %d", execCfg.MaxRetries)
	}

	if doc.RetentionDays() != 14 {
		t.Fatalf("expected retention days 14, got %d", doc.RetentionDays())
	}

	limits := doc.LLMLimits()
	if limits.MaxCallsPerScan != 10 {
		t.Fatalf("expected max_calls_per_scan override 10, got %d", limits.MaxCallsPerScan)
	}
	if doc.BackupRootOrDefault() != "/backups" {
		t.Fatalf("expected backup root /backups, got %s", doc.BackupRootOrDefault())
	}
}

func TestDocument_RuleEngineBuildsFromYAML(t *testing.T) {
	doc := &Document{
		Rules: []RuleDoc{
			{
				Name:  "protect-system32",
				Class: "system_critical",
				Conditions: []ConditionDoc{
					{Op: "glob", Pattern: "**/System32/**"},
				},
				Label:     "dangerous",
				Rationale: "system directory",
			},
		},
	}

	engine, err := doc.RuleEngine()
	if err != nil {
		t.Fatalf("RuleEngine: %v", err)
	}
	if engine == nil {
		t.Fatalf("expected a non-nil engine")
	}

	label, _ := engine.Classify(`C:/Windows/System32/drivers/x.sys`, 10, nil, false, time.Now())
	if label != core.Dangerous {
		t.Fatalf("expected System32 path classified Dangerous, got %v", label)
	}
}

func TestDocument_RuleEngineRejectsUnknownLabel(t *testing.T) {
	doc := &Document{
		Rules: []RuleDoc{{Name: "bad", Class: "fallback", Label: "extremely_dangerous"}},
	}
	if _, err := doc.RuleEngine(); err == nil {
		t.Fatalf("expected error for unknown label")
	}
}
