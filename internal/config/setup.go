package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const defaultYAMLTemplate = `backup_root: ./purgekit-backups

scanner:
  thread_count: 0
  queue_size: 256

executor:
  max_retries: 3
  retry_delay_ms: 500

retention:
  days: 30

llm:
  mode: unlimited
  model: ""
  max_tokens: 8192
  temperature: 0.7

whitelist: []

rules: []
`

const defaultINITemplate = `[paths]
; one scan root per line, optionally ", yes" or ", no" to toggle
; incremental scanning for that root (default: yes)
`

// ConfigExists reports whether configDir already has a purgekit.yaml.
func ConfigExists(configDir string) bool {
	_, err := os.Stat(filepath.Join(configDir, "purgekit.yaml"))
	return err == nil
}

// EnsureConfigDir creates configDir and seeds it with a minimal
// purgekit.yaml and config.ini on first run. There is no interactive
// setup wizard here; first-run defaults are written directly.
func EnsureConfigDir(configDir string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return errors.Wrap(err, "create config directory")
	}

	yamlPath := filepath.Join(configDir, "purgekit.yaml")
	if _, err := os.Stat(yamlPath); os.IsNotExist(err) {
		if err := os.WriteFile(yamlPath, []byte(defaultYAMLTemplate), 0o644); err != nil {
			return errors.Wrap(err, "write default purgekit.yaml")
		}
	}

	iniPath := filepath.Join(configDir, "config.ini")
	if _, err := os.Stat(iniPath); os.IsNotExist(err) {
		if err := os.WriteFile(iniPath, []byte(defaultINITemplate), 0o644); err != nil {
			return errors.Wrap(err, "write default config.ini")
		}
	}

	return nil
}
