package reportx

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

const (
	lowSuccessRateThreshold = 0.8
	smallFileRatioThreshold = 0.7
)

// BuildRecommendations derives the heuristic advice lines that close out
// a report: a handful of independent checks over the summary, size
// distribution, and failure breakdown, each contributing at most one
// line.
func BuildRecommendations(summary Summary, stats Statistics, failures FailureAnalysis) []string {
	var out []string

	if summary.TotalPlanned > 0 && summary.SuccessRate < lowSuccessRateThreshold {
		out = append(out, fmt.Sprintf(
			"success rate was %.0f%%; review the failure breakdown before the next run",
			summary.SuccessRate*100,
		))
	}

	if n := failures.ErrorTypes["FileInUse"]; n > 0 {
		out = append(out, fmt.Sprintf(
			"%d item(s) failed because another process had them open; close those programs and retry", n,
		))
	}

	if n := failures.ErrorTypes["PermissionDenied"]; n > 0 {
		out = append(out, fmt.Sprintf(
			"%d item(s) failed with permission denied; elevated privileges may be required for these paths", n,
		))
	}

	if total := summary.TotalPlanned; total > 0 {
		small := stats.SizeDistribution["<100KB"]
		if ratio := float64(small) / float64(total); ratio > smallFileRatioThreshold {
			out = append(out, fmt.Sprintf(
				"%.0f%% of planned items are under 100KB; consider raising the minimum size filter to reduce churn",
				ratio*100,
			))
		}
	}

	if n := stats.SizeDistribution[">10MB"]; n > 0 {
		out = append(out, fmt.Sprintf(
			"%d large item(s) over 10MB are in this plan; review them individually before approving", n,
		))
	}

	if summary.TotalFreedBytes > 0 {
		out = append(out, fmt.Sprintf("this run freed %s", humanize.Bytes(summary.TotalFreedBytes)))
	}

	return out
}
