package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"purgekit/internal/arbiter"
	"purgekit/internal/backupstore"
	"purgekit/internal/config"
	"purgekit/internal/executor"
	"purgekit/internal/llm"
	"purgekit/internal/logx"
	"purgekit/internal/recovery"
	"purgekit/internal/rules"
	"purgekit/internal/scanner"
	"purgekit/internal/store"
	"purgekit/internal/whitelist"
)

// globalFlags are the persistent flags every subcommand shares.
type globalFlags struct {
	configDir string
	noLogs    bool
	logDir    string
}

var flags globalFlags

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "purgekit",
		Short: "Disk-hygiene engine: scan, classify, and reversibly clean up junk files",
	}

	appRoot, err := exeDir()
	if err != nil {
		appRoot, _ = os.Getwd()
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", filepath.Join(appRoot, "config"), "configuration directory (purgekit.yaml, config.ini)")
	root.PersistentFlags().BoolVar(&flags.noLogs, "no-logs", false, "disable log files, print to stdout only")
	root.PersistentFlags().StringVar(&flags.logDir, "log-dir", filepath.Join(appRoot, "logs"), "log directory")

	root.AddCommand(newScanCmd())
	root.AddCommand(newPreviewCmd())
	root.AddCommand(newExecuteCmd())
	root.AddCommand(newRestoreCmd())
	root.AddCommand(newReapCmd())
	root.AddCommand(newHistoryCmd())

	return root
}

// app bundles every component the CLI wires together for one invocation.
type app struct {
	cfg     *config.Document
	log     *logx.Logger
	db      *store.Store
	backups *backupstore.Store
	arb     *arbiter.Arbiter
	scan    *scanner.Pool
	exec    *executor.Executor
	rec     *recovery.Manager
}

// buildApp loads config, opens the store, and wires every component
// together. Callers must call Close when done.
func buildApp() (*app, error) {
	if err := config.EnsureConfigDir(flags.configDir); err != nil {
		return nil, err
	}

	log, err := logx.New(flags.configDir, logx.Settings{NoLogs: flags.noLogs, LogDir: flags.logDir})
	if err != nil {
		return nil, err
	}

	doc, err := config.LoadYAML(filepath.Join(flags.configDir, "purgekit.yaml"))
	if err != nil {
		return nil, err
	}

	db, err := store.Open(filepath.Join(flags.configDir, "purgekit.db"))
	if err != nil {
		return nil, err
	}

	backups, err := backupstore.New(doc.BackupRootOrDefault(), log)
	if err != nil {
		db.Close()
		return nil, err
	}

	ruleEngine, err := doc.RuleEngine()
	if err != nil {
		db.Close()
		return nil, err
	}
	if ruleEngine == nil {
		ruleEngine = rules.NewEngine(rules.DefaultRules())
	}

	wl := whitelist.New(doc.Whitelist...)

	cost := llm.NewCostController(doc.LLMLimits())
	var reasoner arbiter.Reasoner
	if clientCfg := doc.LLMClientConfig(); clientCfg.APIKey != "" {
		reasoner = llm.NewClient(clientCfg, cost)
	}

	arb := &arbiter.Arbiter{
		IsProtected: wl.IsProtected,
		Rules:       ruleEngine,
		Cost:        cost,
		Reasoner:    reasoner,
		Intern:      db,
		Log:         log,
	}

	idx, err := scanner.NewIncrementalIndex(filepath.Join(flags.configDir, "incremental.json"))
	if err != nil {
		db.Close()
		return nil, err
	}
	scanPool := scanner.New(doc.ScannerConfig(), wl, idx, log)

	exec := executor.New(backups, db, log, doc.ExecutorConfig())
	rec := recovery.New(db, backups, log)

	return &app{
		cfg: doc, log: log, db: db, backups: backups,
		arb: arb, scan: scanPool, exec: exec, rec: rec,
	}, nil
}

func (a *app) Close() {
	a.db.Close()
}

// scanRoots reads the configured path-list INI.
func (a *app) scanRoots() ([]scanner.Root, error) {
	paths, err := config.ReadScanRoots(flags.configDir, a.log)
	if err != nil {
		return nil, err
	}
	roots := make([]scanner.Root, 0, len(paths))
	for _, p := range paths {
		roots = append(roots, scanner.Root{Path: p.Path, Incremental: p.Incremental})
	}
	return roots, nil
}
