package llm

import (
	"fmt"
	"strings"
)

// NewProvider creates a Provider from configuration.
func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIProvider(cfg)
	case "ollama":
		return NewOllamaProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (supported: openai, ollama)", cfg.Provider)
	}
}
