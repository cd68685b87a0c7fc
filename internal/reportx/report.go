// Package reportx assembles the JSON/text report a completed cleanup run
// produces: a summary pass, a statistics pass, and a failure-analysis
// pass over the plan's items and the executor's outcome.
package reportx

import (
	"path/filepath"
	"strings"
	"time"

	"purgekit/internal/core"
)

// Report is the top-level envelope returned by BuildReport and persisted
// via store.SaveReport.
type Report struct {
	ReportID        string          `json:"report_id"`
	GeneratedAt     time.Time       `json:"generated_at"`
	ScanType        string          `json:"scan_type"`
	Summary         Summary         `json:"summary"`
	Statistics      Statistics      `json:"statistics"`
	Failures        FailureAnalysis `json:"failures"`
	Recommendations []string        `json:"recommendations"`
}

// Summary holds run totals and the freed-bytes figure.
type Summary struct {
	ScanType        string  `json:"scan_type"`
	TotalScanned    int     `json:"total_scanned"`
	TotalPlanned    int     `json:"total_planned"`
	DeletedCount    int     `json:"deleted_count"`
	FailedCount     int     `json:"failed_count"`
	SuccessRate     float64 `json:"success_rate"`
	TotalFreedBytes uint64  `json:"total_freed_bytes"`
	IsDryRun        bool    `json:"is_dry_run"`
}

// DirCount is one entry of Statistics.TopDirectories.
type DirCount struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// Statistics breaks the planned items down by type, size, and risk.
type Statistics struct {
	FilesByType      map[string]int    `json:"files_by_type"`
	SpaceByType      map[string]uint64 `json:"space_by_type"`
	SizeDistribution map[string]int    `json:"size_distribution"`
	RiskDistribution map[string]int    `json:"risk_distribution"`
	TopDirectories   []DirCount        `json:"top_directories"`
}

// FailureAnalysis summarizes the execution failures of the run.
type FailureAnalysis struct {
	TotalFailures int                      `json:"total_failures"`
	ErrorTypes    map[string]int           `json:"error_types"`
	TopFailures   []core.ExecutionFailure  `json:"top_failures"`
}

const topDirectoriesSampleCap = 100

// category buckets a path by extension for the file-type histogram;
// directories get their own bucket.
func category(item core.PlanItem) string {
	if item.Kind == core.KindDir {
		return "directory"
	}
	ext := strings.ToLower(filepath.Ext(item.Path))
	if ext == "" {
		return "(no extension)"
	}
	return ext
}

func sizeBucket(size uint64) string {
	switch {
	case size < 100*1024:
		return "<100KB"
	case size < 1024*1024:
		return "100KB-1MB"
	case size < 10*1024*1024:
		return "1MB-10MB"
	default:
		return ">10MB"
	}
}

// BuildReport assembles a Report from a plan's items (as classified by
// the arbiter) and the executor's outcome for that plan. isDryRun
// reports whether the run only simulated deletion.
func BuildReport(reportID, scanType string, items []core.PlanItem, result core.ExecutionResult, isDryRun bool) Report {
	summary := buildSummary(scanType, items, result, isDryRun)
	stats := buildStatistics(items)
	failures := buildFailureAnalysis(result.Failures)

	return Report{
		ReportID:        reportID,
		GeneratedAt:     result.CompletedAt,
		ScanType:        scanType,
		Summary:         summary,
		Statistics:      stats,
		Failures:        failures,
		Recommendations: BuildRecommendations(summary, stats, failures),
	}
}

func buildSummary(scanType string, items []core.PlanItem, result core.ExecutionResult, isDryRun bool) Summary {
	total := len(items)
	var rate float64
	if total > 0 {
		rate = float64(result.Success) / float64(total)
	}
	return Summary{
		ScanType:        scanType,
		TotalScanned:    total,
		TotalPlanned:    total,
		DeletedCount:    result.Success,
		FailedCount:     result.Failed,
		SuccessRate:     rate,
		TotalFreedBytes: result.FreedBytes,
		IsDryRun:        isDryRun,
	}
}

func buildStatistics(items []core.PlanItem) Statistics {
	filesByType := make(map[string]int)
	spaceByType := make(map[string]uint64)
	sizeDist := make(map[string]int)
	riskDist := make(map[string]int)
	dirCounts := make(map[string]int)

	sample := items
	if len(sample) > topDirectoriesSampleCap {
		sample = sample[:topDirectoriesSampleCap]
	}

	for _, item := range items {
		cat := category(item)
		filesByType[cat]++
		spaceByType[cat] += item.Size
		sizeDist[sizeBucket(item.Size)]++
		riskDist[item.FinalLabel.String()]++
	}
	for _, item := range sample {
		dirCounts[filepath.Dir(item.Path)]++
	}

	return Statistics{
		FilesByType:      filesByType,
		SpaceByType:      spaceByType,
		SizeDistribution: sizeDist,
		RiskDistribution: riskDist,
		TopDirectories:   topDirectories(dirCounts, 10),
	}
}

func topDirectories(counts map[string]int, n int) []DirCount {
	out := make([]DirCount, 0, len(counts))
	for path, count := range counts {
		out = append(out, DirCount{Path: path, Count: count})
	}
	// simple insertion sort descending by count; n and len(out) are both
	// small (top-10 over a few hundred directories at most).
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Count > out[j-1].Count; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}

const topFailuresCap = 10

func buildFailureAnalysis(failures []core.ExecutionFailure) FailureAnalysis {
	errorTypes := make(map[string]int)
	for _, f := range failures {
		errorTypes[f.Kind.String()]++
	}
	top := failures
	if len(top) > topFailuresCap {
		top = top[:topFailuresCap]
	}
	return FailureAnalysis{
		TotalFailures: len(failures),
		ErrorTypes:    errorTypes,
		TopFailures:   top,
	}
}
