package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Learning.DecayRate != 0.05 {
		t.Errorf("DecayRate = %v, want 0.05", cfg.Learning.DecayRate)
	}
	if cfg.Learning.ConfidenceThreshold != 0.3 {
		t.Errorf("ConfidenceThreshold = %v, want 0.3", cfg.Learning.ConfidenceThreshold)
	}
	if cfg.Learning.ArchiveThreshold != 0.2 {
		t.Errorf("ArchiveThreshold = %v, want 0.2", cfg.Learning.ArchiveThreshold)
	}
	if cfg.Learning.SimilarityThreshold != 0.85 {
		t.Errorf("SimilarityThreshold = %v, want 0.85", cfg.Learning.SimilarityThreshold)
	}
	if cfg.Learning.MaxTokens != 500 || cfg.Learning.MaxRules != 10 {
		t.Errorf("budgets = %d/%d, want 500/10", cfg.Learning.MaxTokens, cfg.Learning.MaxRules)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
	}
	if cfg.Provider.Provider != "openai" {
		t.Errorf("Provider = %q, want openai", cfg.Provider.Provider)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults, got %v", err)
	}
	if cfg.Learning.DecayRate != 0.05 {
		t.Errorf("DecayRate = %v, want default", cfg.Learning.DecayRate)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
learning:
  decay_rate: 0.1
  max_rules: 5
provider:
  provider: ollama
  model: llama3
storage:
  db_path: /tmp/test.db
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Learning.DecayRate != 0.1 {
		t.Errorf("DecayRate = %v, want 0.1", cfg.Learning.DecayRate)
	}
	if cfg.Learning.MaxRules != 5 {
		t.Errorf("MaxRules = %d, want 5", cfg.Learning.MaxRules)
	}
	// Unset fields keep defaults.
	if cfg.Learning.MaxTokens != 500 {
		t.Errorf("MaxTokens = %d, want default 500", cfg.Learning.MaxTokens)
	}
	if cfg.Provider.Provider != "ollama" || cfg.Provider.Model != "llama3" {
		t.Errorf("provider = %q/%q", cfg.Provider.Provider, cfg.Provider.Model)
	}
	if cfg.Storage.DBPath != "/tmp/test.db" {
		t.Errorf("DBPath = %q", cfg.Storage.DBPath)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RULELOOP_DECAY_RATE", "0.2")
	t.Setenv("RULELOOP_PROVIDER", "ollama")
	t.Setenv("RULELOOP_MAX_RULES", "3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Learning.DecayRate != 0.2 {
		t.Errorf("DecayRate = %v, want env 0.2", cfg.Learning.DecayRate)
	}
	if cfg.Provider.Provider != "ollama" {
		t.Errorf("Provider = %q, want env ollama", cfg.Provider.Provider)
	}
	if cfg.Learning.MaxRules != 3 {
		t.Errorf("MaxRules = %d, want env 3", cfg.Learning.MaxRules)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("learning:\n  decay_rate: 0.1\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RULELOOP_DECAY_RATE", "0.3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Learning.DecayRate != 0.3 {
		t.Errorf("DecayRate = %v, env should win over file", cfg.Learning.DecayRate)
	}
}

func TestLoadAPIKeyFallback(t *testing.T) {
	t.Setenv("RULELOOP_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want OPENAI_API_KEY fallback", cfg.Provider.APIKey)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("learning: [not a map"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
