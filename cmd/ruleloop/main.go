package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nvandessel/ruleloop/internal/cache"
	"github.com/nvandessel/ruleloop/internal/config"
	"github.com/nvandessel/ruleloop/internal/extraction"
	"github.com/nvandessel/ruleloop/internal/llm"
	"github.com/nvandessel/ruleloop/internal/selection"
	"github.com/nvandessel/ruleloop/internal/service"
	"github.com/nvandessel/ruleloop/internal/store"
	"github.com/nvandessel/ruleloop/internal/sweep"
	"github.com/nvandessel/ruleloop/internal/vectorindex"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "ruleloop",
		Short: "Rule loop - preference learning for AI assistants",
		Long: `ruleloop learns behavioral rules from user corrections and injects
the relevant ones into each assistant turn.

It detects corrections, extracts generalized rules, reinforces duplicates,
ranks rules by confidence and relevance under a token budget, and decays
rules that go unused.`,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("db", "", "Path to the SQLite database (default ~/.ruleloop/ruleloop.db)")
	rootCmd.PersistentFlags().String("user", "default", "User whose rules to operate on")

	rootCmd.AddCommand(
		newVersionCmd(),
		newChatCmd(),
		newLearnCmd(),
		newRulesCmd(),
		newSweepCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]string{"version": version})
			} else {
				fmt.Printf("ruleloop version %s\n", version)
			}
		},
	}
}

// app bundles the wired components behind the CLI commands.
type app struct {
	cfg    config.Config
	store  *store.SQLiteStore
	cache  *cache.RuleCache
	index  *vectorindex.TieredIndex
	logger *log.Logger

	// provider is nil when no provider could be configured; commands that
	// need one must check.
	provider llm.Provider

	rules        *service.RuleService
	interactions *service.InteractionService
	sweeper      *sweep.Sweeper
}

// openApp loads config and wires the stores and services. The provider is
// optional: rule management and sweeps work without one.
func openApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})

	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		dbPath = cfg.Storage.DBPath
	}
	if dbPath == "" {
		if err := store.EnsureDataDir(); err != nil {
			return nil, err
		}
		if dbPath, err = store.DefaultDBPath(); err != nil {
			return nil, err
		}
	}

	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, err
	}

	ruleCache := cache.NewRuleCache(cfg.Cache.TTL)

	index, err := vectorindex.NewTieredIndex(vectorindex.TieredConfig{
		HNSW: vectorindex.HNSWConfig{Dir: cfg.Storage.IndexDir},
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	var provider llm.Provider
	if p, provErr := llm.NewProvider(cfg.Provider); provErr == nil {
		provider = p
	} else {
		logger.Debug("no provider configured", "err", provErr)
	}

	rules := service.NewRuleService(st, ruleCache, index, provider, logger)

	a := &app{
		cfg:    cfg,
		store:  st,
		cache:  ruleCache,
		index:  index,
		logger: logger,
		rules:  rules,
		sweeper: sweep.NewSweeper(st, st, ruleCache, sweep.Config{
			DecayRate:        cfg.Learning.DecayRate,
			ArchiveThreshold: cfg.Learning.ArchiveThreshold,
		}, logger),
		provider: provider,
	}

	if provider != nil {
		pipeline := extraction.NewPipeline(provider, &extraction.Config{
			SimilarityThreshold:    cfg.Learning.SimilarityThreshold,
			MinDetectionConfidence: 0.5,
		}, logger)
		a.interactions = service.NewInteractionService(st, rules, pipeline, provider, selection.Config{
			ConfidenceThreshold: cfg.Learning.ConfidenceThreshold,
			MaxRules:            cfg.Learning.MaxRules,
			MaxTokens:           cfg.Learning.MaxTokens,
		}, logger)
	}

	return a, nil
}

func (a *app) close() {
	if err := a.index.Close(); err != nil {
		a.logger.Warn("failed to close vector index", "err", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close store", "err", err)
	}
}

// requireProvider fails commands that need a configured LLM provider.
func (a *app) requireProvider() error {
	if a.provider == nil {
		return fmt.Errorf("no LLM provider configured: set OPENAI_API_KEY or configure ollama in the config file")
	}
	return nil
}
