package rules

import (
	"time"

	"purgekit/internal/core"
)

// DefaultRules returns the built-in rule classes: system-critical
// dangerous, known-junk safe, and an implicit fallback suspicious
// (handled by Engine.Classify when nothing else matches).
func DefaultRules() []Rule {
	return append(systemCriticalRules(), knownJunkRules()...)
}

func systemCriticalRules() []Rule {
	return []Rule{
		{
			Name:       "windows-system-root",
			Class:      ClassSystemCritical,
			Conditions: []Condition{{Op: OpGlob, Pattern: "**/windows/**"}},
			Label:      core.Dangerous,
			Rationale:  "path is under the Windows system directory",
		},
		{
			Name:       "program-files",
			Class:      ClassSystemCritical,
			Conditions: []Condition{{Op: OpGlob, Pattern: "**/program files*/**"}},
			Label:      core.Dangerous,
			Rationale:  "path is under Program Files",
		},
		{
			Name:       "drivers",
			Class:      ClassSystemCritical,
			Conditions: []Condition{{Op: OpGlob, Pattern: "**/system32/drivers/**"}},
			Label:      core.Dangerous,
			Rationale:  "path is under the driver store",
		},
		{
			Name:       "user-documents",
			Class:      ClassSystemCritical,
			Conditions: []Condition{{Op: OpGlob, Pattern: "**/documents/**"}},
			Label:      core.Dangerous,
			Rationale:  "path is under a user Documents folder",
		},
		{
			Name:       "user-downloads",
			Class:      ClassSystemCritical,
			Conditions: []Condition{{Op: OpGlob, Pattern: "**/downloads/**"}},
			Label:      core.Dangerous,
			Rationale:  "path is under a user Downloads folder",
		},
		{
			Name:       "user-desktop",
			Class:      ClassSystemCritical,
			Conditions: []Condition{{Op: OpGlob, Pattern: "**/desktop/**"}},
			Label:      core.Dangerous,
			Rationale:  "path is under a user Desktop folder",
		},
	}
}

func knownJunkRules() []Rule {
	return []Rule{
		{
			Name:       "temp-dir",
			Class:      ClassKnownJunk,
			Conditions: []Condition{{Op: OpGlob, Pattern: "**/temp/**"}},
			Label:      core.Safe,
			Rationale:  "path is under a temp directory",
		},
		{
			Name:       "tmp-dir",
			Class:      ClassKnownJunk,
			Conditions: []Condition{{Op: OpGlob, Pattern: "**/tmp/**"}},
			Label:      core.Safe,
			Rationale:  "path is under a tmp directory",
		},
		{
			Name:       "prefetch",
			Class:      ClassKnownJunk,
			Conditions: []Condition{{Op: OpGlob, Pattern: "**/prefetch/**"}},
			Label:      core.Safe,
			Rationale:  "path is under the Windows prefetch cache",
		},
		{
			Name:       "browser-cache",
			Class:      ClassKnownJunk,
			Conditions: []Condition{{Op: OpGlob, Pattern: "**/cache/**"}},
			Label:      core.Safe,
			Rationale:  "path is under a browser/app cache directory",
		},
		{
			Name:       "ds-store",
			Class:      ClassKnownJunk,
			Conditions: []Condition{{Op: OpGlob, Pattern: "**/.ds_store"}},
			Label:      core.Safe,
			Rationale:  "macOS Finder metadata file",
		},
		{
			Name:       "thumbs-db",
			Class:      ClassKnownJunk,
			Conditions: []Condition{{Op: OpGlob, Pattern: "**/thumbs.db"}},
			Label:      core.Safe,
			Rationale:  "Windows Explorer thumbnail cache file",
		},
		{
			Name:       "log-extension",
			Class:      ClassKnownJunk,
			Conditions: []Condition{{Op: OpGlob, Pattern: "**/*.log"}, {Op: OpAgeGT, Age: 7 * 24 * time.Hour}},
			Label:      core.Safe,
			Rationale:  "old log file by well-known extension",
		},
		{
			Name:       "tmp-extension",
			Class:      ClassKnownJunk,
			Conditions: []Condition{{Op: OpGlob, Pattern: "**/*.tmp"}},
			Label:      core.Safe,
			Rationale:  "temp file by well-known extension",
		},
	}
}

// DefaultExcludeGlobs lists common descent skip patterns: "node_modules",
// "__pycache__", ".git" and friends. The scanner does not apply it on its
// own; it skips only the exclude globs passed in its Filters.
func DefaultExcludeGlobs() []string {
	return []string{
		"**/node_modules",
		"**/__pycache__",
		"**/.git",
		"**/.hg",
		"**/.svn",
	}
}
