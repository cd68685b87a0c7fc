package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"purgekit/internal/core"
	"purgekit/internal/executor"
	"purgekit/internal/llm"
	"purgekit/internal/rules"
	"purgekit/internal/scanner"
)

// Document is the purgekit.yaml shape: rule definitions, cost-controller
// budgets, and scanner/executor tuning. The LLM circuit breaker settings
// are fixed in internal/llm and are not read from this document.
type Document struct {
	BackupRoot string       `yaml:"backup_root"`
	Scanner    ScannerDoc   `yaml:"scanner"`
	Executor   ExecutorDoc  `yaml:"executor"`
	Retention  RetentionDoc `yaml:"retention"`
	LLM        LLMDoc       `yaml:"llm"`
	Whitelist  []string     `yaml:"whitelist"`
	Rules      []RuleDoc    `yaml:"rules"`
}

type ScannerDoc struct {
	ThreadCount        int      `yaml:"thread_count"`
	QueueSize          int      `yaml:"queue_size"`
	DirSizeWallClockMS int      `yaml:"dir_size_wallclock_ms"`
	DirSizeFileCap     int      `yaml:"dir_size_file_cap"`
	CancelCheckEvery   int      `yaml:"cancel_check_every"`
	MinSize            uint64   `yaml:"min_size"`
	IncludeHidden      bool     `yaml:"include_hidden"`
	ExtensionAllowList []string `yaml:"extension_allow_list"`
	AgeCutoffDays      int      `yaml:"age_cutoff_days"`
	ExcludeGlobs       []string `yaml:"exclude_globs"`
}

type ExecutorDoc struct {
	MaxRetries   int  `yaml:"max_retries"`
	RetryDelayMS int  `yaml:"retry_delay_ms"`
	AbortOnError bool `yaml:"abort_on_error"`
}

type RetentionDoc struct {
	Days        int  `yaml:"days"`
	MaxVersions *int `yaml:"max_versions"`
}

type LLMDoc struct {
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	MaxTokens         int64   `yaml:"max_tokens"`
	Temperature       float64 `yaml:"temperature"`
	MaxRetries        int     `yaml:"max_retries"`
	Mode              string  `yaml:"mode"`
	MaxCallsPerScan   int     `yaml:"max_calls_per_scan"`
	MaxBudgetPerScan  float64 `yaml:"max_budget_per_scan"`
	MaxBudgetPerDay   float64 `yaml:"max_budget_per_day"`
	FallbackToRules   bool    `yaml:"fallback_to_rules"`
	OnlyAnalyzeSusp   bool    `yaml:"only_analyze_suspicious"`
	EstimatedCallCost float64 `yaml:"estimated_call_cost"`
}

type ConditionDoc struct {
	Op      string `yaml:"op"`
	Pattern string `yaml:"pattern"`
	Size    uint64 `yaml:"size"`
	AgeDays int    `yaml:"age_days"`
}

type RuleDoc struct {
	Name       string         `yaml:"name"`
	Class      string         `yaml:"class"`
	Conditions []ConditionDoc `yaml:"conditions"`
	Label      string         `yaml:"label"`
	Rationale  string         `yaml:"rationale"`
}

// LoadYAML reads and parses path (typically configDir/purgekit.yaml).
func LoadYAML(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read purgekit.yaml")
	}
	var doc Document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, errors.Wrap(err, "parse purgekit.yaml")
	}
	return &doc, nil
}

// ScannerConfig overlays non-zero fields onto scanner.DefaultConfig().
func (d *Document) ScannerConfig() scanner.Config {
	cfg := scanner.DefaultConfig()
	if d.Scanner.ThreadCount > 0 {
		cfg.ThreadCount = d.Scanner.ThreadCount
	}
	if d.Scanner.QueueSize > 0 {
		cfg.QueueSize = d.Scanner.QueueSize
	}
	if d.Scanner.DirSizeWallClockMS > 0 {
		cfg.DirSizeWallClock = time.Duration(d.Scanner.DirSizeWallClockMS) * time.Millisecond
	}
	if d.Scanner.DirSizeFileCap > 0 {
		cfg.DirSizeFileCap = d.Scanner.DirSizeFileCap
	}
	if d.Scanner.CancelCheckEvery > 0 {
		cfg.CancelCheckEvery = d.Scanner.CancelCheckEvery
	}
	return cfg
}

// ScannerFilters builds the candidate filter set from the YAML
// document.
func (d *Document) ScannerFilters() scanner.Filters {
	var ageCutoff time.Duration
	if d.Scanner.AgeCutoffDays > 0 {
		ageCutoff = time.Duration(d.Scanner.AgeCutoffDays) * 24 * time.Hour
	}
	return scanner.Filters{
		MinSize:            d.Scanner.MinSize,
		IncludeHidden:      d.Scanner.IncludeHidden,
		ExtensionAllowList: d.Scanner.ExtensionAllowList,
		AgeCutoff:          ageCutoff,
		ExcludeGlobs:       d.Scanner.ExcludeGlobs,
	}
}

// ExecutorConfig overlays non-zero fields onto executor.DefaultConfig().
func (d *Document) ExecutorConfig() executor.Config {
	cfg := executor.DefaultConfig()
	if d.Executor.MaxRetries > 0 {
		cfg.MaxRetries = d.Executor.MaxRetries
	}
	if d.Executor.RetryDelayMS > 0 {
		cfg.RetryDelay = time.Duration(d.Executor.RetryDelayMS) * time.Millisecond
	}
	cfg.AbortOnError = d.Executor.AbortOnError
	return cfg
}

// RetentionDays and RetentionMaxVersions feed backupstore.CleanupOldBackups.
func (d *Document) RetentionDays() int {
	if d.Retention.Days > 0 {
		return d.Retention.Days
	}
	return 30
}

func (d *Document) RetentionMaxVersions() *int {
	return d.Retention.MaxVersions
}

// LLMClientConfig overlays non-zero fields onto llm.DefaultClientConfig(),
// resolving the API key from the configured environment variable
// (default ANTHROPIC_API_KEY).
func (d *Document) LLMClientConfig() llm.ClientConfig {
	cfg := llm.DefaultClientConfig()
	envVar := d.LLM.APIKeyEnv
	if envVar == "" {
		envVar = "ANTHROPIC_API_KEY"
	}
	cfg.APIKey = os.Getenv(envVar)
	if d.LLM.Model != "" {
		cfg.Model = d.LLM.Model
	}
	if d.LLM.MaxTokens > 0 {
		cfg.MaxTokens = d.LLM.MaxTokens
	}
	if d.LLM.Temperature > 0 {
		cfg.Temperature = d.LLM.Temperature
	}
	if d.LLM.MaxRetries > 0 {
		cfg.MaxRetries = d.LLM.MaxRetries
	}
	return cfg
}

// LLMLimits overlays the cost-controller fields onto llm.DefaultLimits().
func (d *Document) LLMLimits() llm.Limits {
	limits := llm.DefaultLimits()
	if d.LLM.Mode != "" {
		limits.Mode = llm.Mode(d.LLM.Mode)
	}
	if d.LLM.MaxCallsPerScan > 0 {
		limits.MaxCallsPerScan = d.LLM.MaxCallsPerScan
	}
	if d.LLM.MaxBudgetPerScan > 0 {
		limits.MaxBudgetPerScan = d.LLM.MaxBudgetPerScan
	}
	if d.LLM.MaxBudgetPerDay > 0 {
		limits.MaxBudgetPerDay = d.LLM.MaxBudgetPerDay
	}
	if d.LLM.EstimatedCallCost > 0 {
		limits.EstimatedCallCost = d.LLM.EstimatedCallCost
	}
	limits.FallbackToRules = d.LLM.FallbackToRules
	limits.OnlyAnalyzeSusp = d.LLM.OnlyAnalyzeSusp
	return limits
}

// BackupRootOrDefault resolves the configured backup root, defaulting to
// a sibling "purgekit-backups" directory.
func (d *Document) BackupRootOrDefault() string {
	if d.BackupRoot != "" {
		return d.BackupRoot
	}
	return "./purgekit-backups"
}

// RuleEngine builds a rules.Engine from the YAML rule definitions, or
// nil, 0 errors if none are configured (callers fall back to
// rules.DefaultRules()).
func (d *Document) RuleEngine() (*rules.Engine, error) {
	if len(d.Rules) == 0 {
		return nil, nil
	}

	parsed := make([]rules.Rule, 0, len(d.Rules))
	for _, rd := range d.Rules {
		class, err := parseRuleClass(rd.Class)
		if err != nil {
			return nil, errors.Wrapf(err, "rule %q", rd.Name)
		}
		label, ok := core.ParseRiskLabel(rd.Label)
		if !ok {
			return nil, fmt.Errorf("rule %q: unknown label %q", rd.Name, rd.Label)
		}

		conditions := make([]rules.Condition, 0, len(rd.Conditions))
		for _, cd := range rd.Conditions {
			conditions = append(conditions, rules.Condition{
				Op:      rules.Operator(cd.Op),
				Pattern: cd.Pattern,
				Size:    cd.Size,
				Age:     time.Duration(cd.AgeDays) * 24 * time.Hour,
			})
		}

		parsed = append(parsed, rules.Rule{
			Name:       rd.Name,
			Class:      class,
			Conditions: conditions,
			Label:      label,
			Rationale:  rd.Rationale,
		})
	}

	return rules.NewEngine(parsed), nil
}

func parseRuleClass(s string) (rules.RuleClass, error) {
	switch s {
	case "system_critical":
		return rules.ClassSystemCritical, nil
	case "known_junk":
		return rules.ClassKnownJunk, nil
	case "fallback", "":
		return rules.ClassFallback, nil
	default:
		return 0, fmt.Errorf("unknown rule class %q", s)
	}
}
