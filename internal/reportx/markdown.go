package reportx

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// RenderMarkdown renders r as a human-readable Markdown document.
func RenderMarkdown(r Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Cleanup Report\n\n")
	fmt.Fprintf(&b, "- Report ID: %s\n", r.ReportID)
	fmt.Fprintf(&b, "- Generated: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "- Scan type: %s\n\n", r.ScanType)

	fmt.Fprintf(&b, "## Summary\n\n")
	fmt.Fprintf(&b, "- Planned: %d\n", r.Summary.TotalPlanned)
	fmt.Fprintf(&b, "- Deleted: %d\n", r.Summary.DeletedCount)
	fmt.Fprintf(&b, "- Failed: %d\n", r.Summary.FailedCount)
	fmt.Fprintf(&b, "- Success rate: %.1f%%\n", r.Summary.SuccessRate*100)
	fmt.Fprintf(&b, "- Freed: %s\n", humanize.Bytes(r.Summary.TotalFreedBytes))
	if r.Summary.IsDryRun {
		fmt.Fprintf(&b, "- Dry run: yes (nothing was actually deleted)\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Statistics\n\n")
	fmt.Fprintf(&b, "### By type\n\n")
	for _, k := range sortedKeys(r.Statistics.FilesByType) {
		fmt.Fprintf(&b, "- %s: %d files, %s\n", k, r.Statistics.FilesByType[k], humanize.Bytes(r.Statistics.SpaceByType[k]))
	}
	fmt.Fprintf(&b, "\n### Size distribution\n\n")
	for _, k := range []string{"<100KB", "100KB-1MB", "1MB-10MB", ">10MB"} {
		if n, ok := r.Statistics.SizeDistribution[k]; ok {
			fmt.Fprintf(&b, "- %s: %d\n", k, n)
		}
	}
	fmt.Fprintf(&b, "\n### Risk distribution\n\n")
	for _, k := range []string{"safe", "suspicious", "dangerous"} {
		if n, ok := r.Statistics.RiskDistribution[k]; ok {
			fmt.Fprintf(&b, "- %s: %d\n", k, n)
		}
	}
	if len(r.Statistics.TopDirectories) > 0 {
		fmt.Fprintf(&b, "\n### Top directories\n\n")
		for _, d := range r.Statistics.TopDirectories {
			fmt.Fprintf(&b, "- %s (%d)\n", d.Path, d.Count)
		}
	}

	if r.Failures.TotalFailures > 0 {
		fmt.Fprintf(&b, "\n## Failures\n\n")
		fmt.Fprintf(&b, "- Total: %d\n", r.Failures.TotalFailures)
		for _, k := range sortedKeys(r.Failures.ErrorTypes) {
			fmt.Fprintf(&b, "- %s: %d\n", k, r.Failures.ErrorTypes[k])
		}
		if len(r.Failures.TopFailures) > 0 {
			b.WriteString("\n### First failures\n\n")
			for _, f := range r.Failures.TopFailures {
				fmt.Fprintf(&b, "- %s: %s (%s)\n", f.Path, f.Kind, f.Err)
			}
		}
	}

	if len(r.Recommendations) > 0 {
		fmt.Fprintf(&b, "\n## Recommendations\n\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
	}

	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
