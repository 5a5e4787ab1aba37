// Package config loads the module configuration from a YAML file with
// environment variable overrides. Missing file and missing fields fall back
// to defaults, so a zero-config run works out of the box.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/ruleloop/internal/llm"
)

// Learning holds the rule lifecycle parameters.
type Learning struct {
	// DecayRate is the per-week confidence penalty for unused rules.
	DecayRate float64 `yaml:"decay_rate"`

	// ConfidenceThreshold is the minimum confidence for selection.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// ArchiveThreshold is the confidence below which the sweep archives.
	ArchiveThreshold float64 `yaml:"archive_threshold"`

	// SimilarityThreshold is the duplicate-detection cutoff.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// MaxTokens is the prompt budget for selected rules.
	MaxTokens int `yaml:"max_tokens"`

	// MaxRules caps how many rules are injected per prompt.
	MaxRules int `yaml:"max_rules"`
}

// Storage holds persistence settings.
type Storage struct {
	// DBPath is the SQLite database location. Empty means the default
	// under ~/.ruleloop.
	DBPath string `yaml:"db_path"`

	// IndexDir is where the vector index persists its graph. Empty keeps
	// the index in memory.
	IndexDir string `yaml:"index_dir"`
}

// Cache holds rule cache settings.
type Cache struct {
	// TTL is how long a cached rule snapshot stays valid.
	TTL time.Duration `yaml:"ttl"`
}

// Sweep holds scheduled sweep settings.
type Sweep struct {
	// Interval is the time between scheduled sweeps.
	Interval time.Duration `yaml:"interval"`
}

// Config is the root configuration.
type Config struct {
	Learning Learning   `yaml:"learning"`
	Provider llm.Config `yaml:"provider"`
	Storage  Storage    `yaml:"storage"`
	Cache    Cache      `yaml:"cache"`
	Sweep    Sweep      `yaml:"sweep"`
}

// Default returns the configuration used when no file or overrides exist.
func Default() Config {
	return Config{
		Learning: Learning{
			DecayRate:           0.05,
			ConfidenceThreshold: 0.3,
			ArchiveThreshold:    0.2,
			SimilarityThreshold: 0.85,
			MaxTokens:           500,
			MaxRules:            10,
		},
		Provider: llm.DefaultConfig(),
		Cache:    Cache{TTL: time.Hour},
		Sweep:    Sweep{Interval: time.Hour},
	}
}

// Load reads the YAML file at path (skipped when path is empty or the file
// does not exist), applies environment overrides, and fills remaining zero
// values with defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// No file is fine; defaults apply.
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	fillDefaults(&cfg)
	return cfg, nil
}

// applyEnv overrides config fields from RULELOOP_* environment variables.
// OPENAI_API_KEY is honored as a fallback for the provider key.
func applyEnv(cfg *Config) {
	setString(&cfg.Provider.Provider, "RULELOOP_PROVIDER")
	setString(&cfg.Provider.Model, "RULELOOP_MODEL")
	setString(&cfg.Provider.EmbeddingModel, "RULELOOP_EMBEDDING_MODEL")
	setString(&cfg.Provider.BaseURL, "RULELOOP_BASE_URL")
	setString(&cfg.Provider.APIKey, "RULELOOP_API_KEY")
	if cfg.Provider.APIKey == "" {
		setString(&cfg.Provider.APIKey, "OPENAI_API_KEY")
	}
	setString(&cfg.Storage.DBPath, "RULELOOP_DB_PATH")
	setString(&cfg.Storage.IndexDir, "RULELOOP_INDEX_DIR")
	setFloat(&cfg.Learning.DecayRate, "RULELOOP_DECAY_RATE")
	setFloat(&cfg.Learning.ConfidenceThreshold, "RULELOOP_CONFIDENCE_THRESHOLD")
	setFloat(&cfg.Learning.ArchiveThreshold, "RULELOOP_ARCHIVE_THRESHOLD")
	setFloat(&cfg.Learning.SimilarityThreshold, "RULELOOP_SIMILARITY_THRESHOLD")
	setInt(&cfg.Learning.MaxTokens, "RULELOOP_MAX_TOKENS")
	setInt(&cfg.Learning.MaxRules, "RULELOOP_MAX_RULES")
}

// fillDefaults repairs zero or out-of-range values after file and env merge.
func fillDefaults(cfg *Config) {
	def := Default()
	if cfg.Learning.DecayRate <= 0 {
		cfg.Learning.DecayRate = def.Learning.DecayRate
	}
	if cfg.Learning.ConfidenceThreshold <= 0 {
		cfg.Learning.ConfidenceThreshold = def.Learning.ConfidenceThreshold
	}
	if cfg.Learning.ArchiveThreshold <= 0 {
		cfg.Learning.ArchiveThreshold = def.Learning.ArchiveThreshold
	}
	if cfg.Learning.SimilarityThreshold <= 0 {
		cfg.Learning.SimilarityThreshold = def.Learning.SimilarityThreshold
	}
	if cfg.Learning.MaxTokens <= 0 {
		cfg.Learning.MaxTokens = def.Learning.MaxTokens
	}
	if cfg.Learning.MaxRules <= 0 {
		cfg.Learning.MaxRules = def.Learning.MaxRules
	}
	if cfg.Provider.Provider == "" {
		cfg.Provider.Provider = def.Provider.Provider
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = def.Provider.Model
	}
	if cfg.Provider.EmbeddingModel == "" {
		cfg.Provider.EmbeddingModel = def.Provider.EmbeddingModel
	}
	if cfg.Provider.Timeout <= 0 {
		cfg.Provider.Timeout = def.Provider.Timeout
	}
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = def.Cache.TTL
	}
	if cfg.Sweep.Interval <= 0 {
		cfg.Sweep.Interval = def.Sweep.Interval
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
