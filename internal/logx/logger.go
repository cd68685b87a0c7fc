// Package logx is a lightweight, goroutine-safe leveled logger shared
// across the whole pipeline.
package logx

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Settings controls where logs go.
//
// Modes:
//   - NoLogs=true  => console-only (stdout). No log files are created.
//   - NoLogs=false => write logs to files under LogDir.
type Settings struct {
	NoLogs bool
	LogDir string
}

// Logger is a single shared instance safe for concurrent use by the
// scanner pool, the arbiter's LLM calls, and the executor.
type Logger struct {
	ConfigDir string

	settings Settings
	levels   map[string]bool

	mu sync.Mutex
}

// New initializes a Logger, reading configDir/logging.json for enabled
// log levels (defaults apply if absent).
func New(configDir string, settings Settings) (*Logger, error) {
	levels, err := loadLevels(configDir)
	if err != nil {
		return nil, err
	}

	if !settings.NoLogs {
		if settings.LogDir == "" {
			return nil, fmt.Errorf("log dir is empty (settings.LogDir)")
		}
		if err := os.MkdirAll(settings.LogDir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}

	return &Logger{
		ConfigDir: configDir,
		settings:  settings,
		levels:    levels,
	}, nil
}

func loadLevels(configDir string) (map[string]bool, error) {
	path := filepath.Join(configDir, "logging.json")

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{
				"DEBUG":    false,
				"COUNT":    true,
				"INFO":     true,
				"WARN":     true,
				"ERROR":    true,
				"SUCCESS":  true,
				"FATAL":    true,
				"CRITICAL": true,
			}, nil
		}
		return nil, fmt.Errorf("stat logging config: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read logging config: %w", err)
	}

	var levels map[string]bool
	if err := json.Unmarshal(b, &levels); err != nil {
		return nil, fmt.Errorf("parse logging config: %w", err)
	}
	return levels, nil
}

// Enabled reports whether a log level is enabled. Unknown levels default
// to enabled (fail-open) so new levels aren't silently dropped.
func (l *Logger) Enabled(level string) bool {
	level = strings.ToUpper(strings.TrimSpace(level))
	enabled, ok := l.levels[level]
	if ok && !enabled {
		return false
	}
	return true
}

// Log writes a single log line to stdout (NoLogs mode) or daily log files.
func (l *Logger) Log(level, msg string) {
	level = strings.ToUpper(strings.TrimSpace(level))

	if !l.Enabled(level) {
		return
	}

	now := time.Now()
	date := now.Format("2006-01-02")
	timeStamp := now.Format("01/02/06 15:04:05")

	line := fmt.Sprintf("[%s] [%s] -> %s\n", timeStamp, level, msg)

	if l.settings.NoLogs {
		fmt.Print(line)
		return
	}

	mainFile := filepath.Join(l.settings.LogDir, fmt.Sprintf("purgekit_%s.log", date))

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := appendLine(mainFile, line); err != nil {
		fmt.Printf("error writing to log file: %v\n", err)
		return
	}

	if level == "COUNT" {
		countFile := filepath.Join(l.settings.LogDir, fmt.Sprintf("count_%s.log", date))
		_ = appendLine(countFile, line)
	}

	if level == "ERROR" || level == "CRITICAL" {
		errFile := filepath.Join(l.settings.LogDir, fmt.Sprintf("errors_%s.log", date))
		_ = appendLine(errFile, line)
	}
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line)
	return err
}

func (l *Logger) Debug(msg string)    { l.Log("DEBUG", msg) }
func (l *Logger) Info(msg string)     { l.Log("INFO", msg) }
func (l *Logger) Warn(msg string)     { l.Log("WARN", msg) }
func (l *Logger) Error(msg string)    { l.Log("ERROR", msg) }
func (l *Logger) Success(msg string)  { l.Log("SUCCESS", msg) }
func (l *Logger) Count(msg string)    { l.Log("COUNT", msg) }
func (l *Logger) Critical(msg string) { l.Log("CRITICAL", msg); notifyCritical("purgekit", msg) }

func (l *Logger) Fatal(msg string) { l.Log("FATAL", msg); os.Exit(1) }

func (l *Logger) Debugf(format string, args ...any)    { l.Debug(fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...any)     { l.Info(fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...any)     { l.Warn(fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...any)    { l.Error(fmt.Sprintf(format, args...)) }
func (l *Logger) Successf(format string, args ...any)  { l.Success(fmt.Sprintf(format, args...)) }
func (l *Logger) Countf(format string, args ...any)    { l.Count(fmt.Sprintf(format, args...)) }
func (l *Logger) Criticalf(format string, args ...any) { l.Critical(fmt.Sprintf(format, args...)) }
func (l *Logger) Fatalf(format string, args ...any)    { l.Fatal(fmt.Sprintf(format, args...)) }
