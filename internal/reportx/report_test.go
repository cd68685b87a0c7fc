package reportx

import (
	"strings"
	"testing"
	"time"

	"purgekit/internal/core"
)

func items() []core.PlanItem {
	return []core.PlanItem{
		{ItemID: 1, Path: "/tmp/a.log", Size: 1024, Kind: core.KindFile, FinalLabel: core.Safe},
		{ItemID: 2, Path: "/tmp/b.log", Size: 50 * 1024, Kind: core.KindFile, FinalLabel: core.Safe},
		{ItemID: 3, Path: "/tmp/cache/big.bin", Size: 20 * 1024 * 1024, Kind: core.KindFile, FinalLabel: core.Suspicious},
		{ItemID: 4, Path: "/tmp/cache", Size: 0, Kind: core.KindDir, FinalLabel: core.Dangerous},
	}
}

func TestBuildReport_SummaryTotals(t *testing.T) {
	result := core.ExecutionResult{
		PlanID: "p1", Status: "completed", CompletedAt: time.Unix(1000, 0),
		TotalItems: 4, Success: 3, Failed: 1, FreedBytes: 21*1024*1024 + 1024 + 50*1024,
		Failures: []core.ExecutionFailure{
			{Path: "/tmp/cache", Kind: core.KindFileInUse, Err: nil},
		},
	}
	r := BuildReport("r1", "manual", items(), result, false)

	if r.Summary.TotalPlanned != 4 || r.Summary.DeletedCount != 3 || r.Summary.FailedCount != 1 {
		t.Fatalf("unexpected summary: %+v", r.Summary)
	}
	if r.Summary.SuccessRate != 0.75 {
		t.Fatalf("expected success rate 0.75, got %v", r.Summary.SuccessRate)
	}
	if r.Summary.IsDryRun {
		t.Fatalf("expected IsDryRun false")
	}
}

func TestBuildReport_StatisticsBuckets(t *testing.T) {
	result := core.ExecutionResult{CompletedAt: time.Unix(1000, 0)}
	r := BuildReport("r1", "manual", items(), result, false)

	if r.Statistics.FilesByType[".log"] != 2 {
		t.Fatalf("expected 2 .log files, got %+v", r.Statistics.FilesByType)
	}
	if r.Statistics.FilesByType["directory"] != 1 {
		t.Fatalf("expected 1 directory, got %+v", r.Statistics.FilesByType)
	}
	if r.Statistics.SizeDistribution["<100KB"] != 3 {
		t.Fatalf("expected 3 items under 100KB (two logs and the empty directory), got %+v", r.Statistics.SizeDistribution)
	}
	if r.Statistics.SizeDistribution[">10MB"] != 1 {
		t.Fatalf("expected 1 item over 10MB, got %+v", r.Statistics.SizeDistribution)
	}
	if r.Statistics.RiskDistribution["dangerous"] != 1 || r.Statistics.RiskDistribution["safe"] != 2 {
		t.Fatalf("unexpected risk distribution: %+v", r.Statistics.RiskDistribution)
	}
	if len(r.Statistics.TopDirectories) == 0 {
		t.Fatalf("expected at least one top directory")
	}
}

func TestBuildReport_FailureAnalysisCapsAndCounts(t *testing.T) {
	var failures []core.ExecutionFailure
	for i := 0; i < 15; i++ {
		failures = append(failures, core.ExecutionFailure{Path: "x", Kind: core.KindPermissionDenied})
	}
	result := core.ExecutionResult{CompletedAt: time.Unix(1000, 0), Failures: failures}
	r := BuildReport("r1", "manual", nil, result, false)

	if r.Failures.TotalFailures != 15 {
		t.Fatalf("expected 15 total failures, got %d", r.Failures.TotalFailures)
	}
	if len(r.Failures.TopFailures) != 10 {
		t.Fatalf("expected top failures capped at 10, got %d", len(r.Failures.TopFailures))
	}
	if r.Failures.ErrorTypes["PermissionDenied"] != 15 {
		t.Fatalf("expected 15 PermissionDenied, got %+v", r.Failures.ErrorTypes)
	}
}

func TestBuildRecommendations_LowSuccessRateAndFileInUse(t *testing.T) {
	summary := Summary{TotalPlanned: 10, SuccessRate: 0.5}
	failures := FailureAnalysis{ErrorTypes: map[string]int{"FileInUse": 2}}
	recs := BuildRecommendations(summary, Statistics{SizeDistribution: map[string]int{}}, failures)

	joined := strings.Join(recs, " | ")
	if !strings.Contains(joined, "success rate") {
		t.Fatalf("expected a low success rate recommendation, got %v", recs)
	}
	if !strings.Contains(joined, "another process") {
		t.Fatalf("expected a file-in-use recommendation, got %v", recs)
	}
}

func TestBuildRecommendations_SmallFileRatio(t *testing.T) {
	summary := Summary{TotalPlanned: 100, SuccessRate: 1}
	stats := Statistics{SizeDistribution: map[string]int{"<100KB": 80}}
	recs := BuildRecommendations(summary, stats, FailureAnalysis{ErrorTypes: map[string]int{}})

	found := false
	for _, r := range recs {
		if strings.Contains(r, "under 100KB") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a small-file-ratio recommendation, got %v", recs)
	}
}

func TestRenderMarkdown_ContainsKeySections(t *testing.T) {
	result := core.ExecutionResult{CompletedAt: time.Unix(1000, 0), Success: 2, FreedBytes: 2048}
	r := BuildReport("r1", "manual", items()[:2], result, false)
	md := RenderMarkdown(r)

	for _, want := range []string{"# Cleanup Report", "## Summary", "## Statistics", "### Size distribution"} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected markdown to contain %q, got:\n%s", want, md)
		}
	}
}

type fakeReportStore struct {
	summary, statistics, failures string
}

func (f *fakeReportStore) SaveReport(planID, summary, statistics, failures string) error {
	f.summary, f.statistics, f.failures = summary, statistics, failures
	return nil
}

func (f *fakeReportStore) LoadReport(planID string) (string, string, string, error) {
	return f.summary, f.statistics, f.failures, nil
}

func TestPersistAndLoad_RoundTripsSummaryAndStatistics(t *testing.T) {
	result := core.ExecutionResult{CompletedAt: time.Unix(1000, 0), Success: 1, FreedBytes: 1024}
	r := BuildReport("r1", "manual", items()[:1], result, false)

	store := &fakeReportStore{}
	if err := Persist(store, "plan-1", r); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	loaded, err := Load(store, "plan-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Summary.DeletedCount != r.Summary.DeletedCount {
		t.Fatalf("expected round-tripped summary, got %+v", loaded.Summary)
	}
	if loaded.Statistics.FilesByType[".log"] != r.Statistics.FilesByType[".log"] {
		t.Fatalf("expected round-tripped statistics, got %+v", loaded.Statistics)
	}
}
