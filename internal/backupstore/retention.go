package backupstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Reaped names one item removed by CleanupOldBackups, for logging/
// reporting.
type Reaped struct {
	Path   string
	Reason string
}

// CleanupOldBackups implements the retention reaper:
//   - manifests grouped by profile_id; a manifest is deleted (with its
//     zip) if older than retentionDays, or — when maxVersions is set —
//     if it isn't among the newest maxVersions for its profile.
//   - legacy single-file backups under hardlinks/ and full/ are reaped
//     by mtime against retentionDays.
//
// Recovery rows are never touched here; callers (internal/recovery) null
// out backup_path for any row whose backup this reaped.
func (s *Store) CleanupOldBackups(retentionDays int, maxVersions *int) ([]Reaped, error) {
	var reaped []Reaped
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	manifestReaped, err := s.reapManifests(cutoff, maxVersions)
	if err != nil {
		return reaped, err
	}
	reaped = append(reaped, manifestReaped...)

	for _, sub := range []string{hardlinksDir, fullDir} {
		legacyReaped, err := s.reapLegacy(sub, cutoff)
		if err != nil {
			return reaped, err
		}
		reaped = append(reaped, legacyReaped...)
	}

	return reaped, nil
}

type manifestMeta struct {
	path      string
	createdAt time.Time
	profileID string
}

func (s *Store) reapManifests(cutoff time.Time, maxVersions *int) ([]Reaped, error) {
	dir := filepath.Join(s.Root, manifestsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	byProfile := make(map[string][]manifestMeta)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var doc struct {
			ProfileID string    `json:"ProfileID"`
			CreatedAt time.Time `json:"CreatedAt"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			continue
		}
		byProfile[doc.ProfileID] = append(byProfile[doc.ProfileID], manifestMeta{
			path:      path,
			createdAt: doc.CreatedAt,
			profileID: doc.ProfileID,
		})
	}

	var reaped []Reaped
	for _, metas := range byProfile {
		sort.Slice(metas, func(i, j int) bool { return metas[i].createdAt.After(metas[j].createdAt) })
		for i, m := range metas {
			reason := ""
			if m.createdAt.Before(cutoff) {
				reason = "older than retention window"
			} else if maxVersions != nil && i >= *maxVersions {
				reason = "not among newest versions for its profile"
			}
			if reason == "" {
				continue
			}
			if err := s.removeManifest(m.path); err != nil {
				continue
			}
			reaped = append(reaped, Reaped{Path: m.path, Reason: reason})
		}
	}
	return reaped, nil
}

func (s *Store) removeManifest(jsonPath string) error {
	zipPath := strings.TrimSuffix(jsonPath, ".json") + ".zip"
	_ = os.Remove(zipPath)
	return os.Remove(jsonPath)
}

func (s *Store) reapLegacy(subdir string, cutoff time.Time) ([]Reaped, error) {
	dir := filepath.Join(s.Root, subdir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var reaped []Reaped
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			full := filepath.Join(dir, e.Name())
			if err := os.Remove(full); err != nil {
				continue
			}
			reaped = append(reaped, Reaped{Path: full, Reason: "older than retention window"})
		}
	}
	return reaped, nil
}
