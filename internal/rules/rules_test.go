package rules

import (
	"testing"
	"time"

	"purgekit/internal/core"
)

func TestClassify_Table(t *testing.T) {
	engine := NewEngine(DefaultRules())
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	old := now.Add(-10 * 24 * time.Hour)
	recent := now.Add(-1 * time.Hour)

	tests := []struct {
		name       string
		path       string
		size       uint64
		lastAccess *time.Time
		isDir      bool
		want       core.RiskLabel
	}{
		{"windows system dir", `C:\Windows\System32\kernel32.dll`, 100, nil, false, core.Dangerous},
		{"documents file", `C:\Users\me\Documents\report.docx`, 100, nil, false, core.Dangerous},
		{"temp file", `C:\Temp\x\a.tmp`, 1024, nil, false, core.Safe},
		{"old log file", `/var/log/app.log`, 2048, &old, false, core.Safe},
		{"recent log file does not match age rule", `/var/log/app.log`, 2048, &recent, false, core.Suspicious},
		{"unrecognized path falls back to suspicious", `/home/me/project/data.bin`, 100, nil, false, core.Suspicious},
		{"thumbs.db", `C:\Users\me\Pictures\Thumbs.db`, 100, nil, false, core.Safe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := engine.Classify(tt.path, tt.size, tt.lastAccess, tt.isDir, now)
			if got != tt.want {
				t.Fatalf("Classify(%q) = %v (%s), want %v", tt.path, got, reason, tt.want)
			}
			if reason == "" {
				t.Fatalf("expected non-empty rationale")
			}
		})
	}
}

func TestClassify_BadRuleSkipped(t *testing.T) {
	engine := NewEngine([]Rule{
		{Name: "broken", Class: ClassSystemCritical, Conditions: []Condition{{Op: "nonsense"}}, Label: core.Dangerous},
		{Name: "fallback-safe", Class: ClassKnownJunk, Conditions: []Condition{{Op: OpGlob, Pattern: "**/*.tmp"}}, Label: core.Safe, Rationale: "tmp"},
	})

	got, _ := engine.Classify("/a/b/c.tmp", 10, nil, false, time.Now())
	if got != core.Safe {
		t.Fatalf("expected bad rule to be skipped and safe rule to match, got %v", got)
	}
}
