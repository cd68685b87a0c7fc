// Package config loads the two configuration surfaces purgekit reads at
// startup: an INI-style scan-root list (the per-path toggle, originally
// "backup enabled per path", is repurposed as "incremental mode per
// path") and a YAML document (purgekit.yaml) for rule definitions,
// cost-controller budgets, and scanner/executor tuning.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"purgekit/internal/logx"
)

// PathConfig is one configured scan root.
type PathConfig struct {
	Path        string
	Incremental bool
	IsDir       bool
}

// ReadScanRoots reads the [paths] section of configDir/config.ini: one
// entry per line, each optionally suffixed with ", yes"/", no" to toggle
// incremental scanning for that root (default: incremental enabled).
//
// File format:
//
//	[paths]
//	C:\Users\me\Downloads, yes
//	\\server\share\incoming, no
func ReadScanRoots(configDir string, log *logx.Logger) ([]PathConfig, error) {
	configFile := filepath.Join(configDir, "config.ini")

	b, err := os.ReadFile(configFile)
	if err != nil {
		return nil, errors.Wrap(err, "read config.ini")
	}

	content := string(b)
	if len(content) > 2 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		content = content[3:]
	}

	sections, standalone, err := parseIniSections(content)
	if err != nil {
		return nil, errors.Wrap(err, "parse config.ini")
	}

	return parsePathsSection(log, sections["paths"], standalone["paths"])
}

func parseIniSections(content string) (map[string]map[string]string, map[string][]string, error) {
	sections := make(map[string]map[string]string)
	standalone := make(map[string][]string)
	var currentSection string

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			name := strings.Trim(line, "[]")
			if name == "" {
				return nil, nil, fmt.Errorf("empty section name")
			}
			currentSection = name
			sections[currentSection] = make(map[string]string)
			continue
		}
		if strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if currentSection == "" {
			return nil, nil, fmt.Errorf("line outside of section: %s", line)
		}
		if strings.Contains(line, "=") {
			parts := strings.SplitN(line, "=", 2)
			sections[currentSection][strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
			continue
		}
		standalone[currentSection] = append(standalone[currentSection], line)
	}

	return sections, standalone, nil
}

func parsePathsSection(log *logx.Logger, section map[string]string, standalone []string) ([]PathConfig, error) {
	var content string
	if v, ok := section["paths"]; ok && v != "" {
		content = v
	} else {
		content = strings.Join(standalone, "\n")
	}

	lines := strings.Split(content, "\n")
	roots := make([]PathConfig, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}

		path, incremental, err := parsePathLine(line)
		if err != nil {
			if log != nil {
				log.Warnf("skipping malformed line in config.ini [paths]: %s (%v)", line, err)
			}
			continue
		}

		isDir := true
		if fi, err := os.Stat(path); err == nil {
			isDir = fi.IsDir()
		}

		roots = append(roots, PathConfig{Path: path, Incremental: incremental, IsDir: isDir})
	}

	return roots, nil
}

// parsePathLine splits "path[, yes|no]"; an unrecognized or absent
// toggle defaults to incremental=true.
func parsePathLine(line string) (string, bool, error) {
	if !strings.Contains(line, ",") {
		return line, true, nil
	}

	parts := strings.SplitN(line, ",", 2)
	path := strings.TrimSpace(parts[0])
	toggle := strings.ToLower(strings.TrimSpace(parts[1]))
	if path == "" {
		return "", false, fmt.Errorf("empty path in line: %s", line)
	}

	switch toggle {
	case "no", "n", "false", "0":
		return path, false, nil
	default:
		return path, true, nil
	}
}
