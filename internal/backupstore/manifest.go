package backupstore

import (
	"archive/zip"
	"compress/flate"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"purgekit/internal/core"
)

// Profile is a named, reusable set of paths+excludes for a manifest
// backup.
type Profile struct {
	ID       string
	Name     string
	Paths    []string
	Excludes []string
}

// Stats rolls up backup activity across a Store.
type Stats struct {
	TotalBackups  int
	TotalSize     int64
	HardlinkCount int
	FullCount     int
}

// CreateManifest streams files into a temporary zip (entries named by
// their original paths), renames it into place, and writes the manifest
// JSON sidecar atomically. A compressionLevel <= 0 stores entries
// uncompressed; 1-9 deflates them at that level (values above 9 use 9).
func (s *Store) CreateManifest(profileID string, files []string, compressionLevel int) (*core.BackupManifest, error) {
	manifestID := uuid.NewString()
	zipPath := filepath.Join(s.Root, manifestsDir, manifestID+".zip")
	manifestPath := filepath.Join(s.Root, manifestsDir, manifestID+".json")

	tmpZip := zipPath + ".tmp"
	zf, err := os.Create(tmpZip)
	if err != nil {
		return nil, fmt.Errorf("create manifest zip: %w", err)
	}
	zw := zip.NewWriter(zf)
	if compressionLevel > 0 {
		level := compressionLevel
		if level > flate.BestCompression {
			level = flate.BestCompression
		}
		zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, level)
		})
	}

	entries := make([]core.FileEntry, 0, len(files))
	for _, original := range files {
		entry, err := addFileToZip(zw, original, compressionLevel)
		if err != nil {
			zw.Close()
			zf.Close()
			os.Remove(tmpZip)
			return nil, fmt.Errorf("archive %s: %w", original, err)
		}
		entries = append(entries, entry)
	}

	if err := zw.Close(); err != nil {
		zf.Close()
		os.Remove(tmpZip)
		return nil, err
	}
	if err := zf.Close(); err != nil {
		os.Remove(tmpZip)
		return nil, err
	}
	if err := os.Rename(tmpZip, zipPath); err != nil {
		os.Remove(tmpZip)
		return nil, err
	}

	manifest := &core.BackupManifest{
		ManifestID: manifestID,
		ZipPath:    zipPath,
		CreatedAt:  time.Now(),
		ProfileID:  profileID,
		Files:      entries,
	}

	if err := writeManifestAtomic(manifestPath, manifest); err != nil {
		return nil, err
	}

	return manifest, nil
}

func addFileToZip(zw *zip.Writer, original string, level int) (core.FileEntry, error) {
	info, err := os.Stat(original)
	if err != nil {
		return core.FileEntry{}, err
	}

	// On Windows the drive letter is stripped from the archived path.
	entryName := filepath.ToSlash(stripDriveLetter(original))
	entryName = trimLeadingSlash(entryName)

	if info.IsDir() {
		_, err := zw.CreateHeader(&zip.FileHeader{Name: entryName + "/"})
		return core.FileEntry{
			OriginalPath:       original,
			RelativeBackupPath: entryName + "/",
			IsDir:              true,
			Permissions:        uint32(info.Mode().Perm()),
			ModTime:            info.ModTime(),
		}, err
	}

	f, err := os.Open(original)
	if err != nil {
		return core.FileEntry{}, err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return core.FileEntry{}, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return core.FileEntry{}, err
	}

	header := &zip.FileHeader{
		Name:     entryName,
		Method:   compressionMethod(level),
		Modified: info.ModTime(),
	}
	w, err := zw.CreateHeader(header)
	if err != nil {
		return core.FileEntry{}, err
	}
	written, err := io.Copy(w, f)
	if err != nil {
		return core.FileEntry{}, err
	}

	return core.FileEntry{
		OriginalPath:       original,
		RelativeBackupPath: entryName,
		Size:               info.Size(),
		CompressedSize:     written,
		SHA256:             hex.EncodeToString(hasher.Sum(nil)),
		Permissions:        uint32(info.Mode().Perm()),
		ModTime:            info.ModTime(),
	}, nil
}

func compressionMethod(level int) uint16 {
	if level <= 0 {
		return zip.Store
	}
	return zip.Deflate
}

func trimLeadingSlash(p string) string {
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	return p
}

func writeManifestAtomic(path string, manifest *core.BackupManifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadManifest reads a manifest JSON sidecar and checks that its zip
// still exists: a missing zip clears ZipPath, marking it unrestorable.
// The file list is not checked against the zip's contents.
func LoadManifest(manifestPath string) (*core.BackupManifest, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, err
	}
	var manifest core.BackupManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}
	if _, err := os.Stat(manifest.ZipPath); err != nil {
		manifest.ZipPath = ""
	}
	return &manifest, nil
}
