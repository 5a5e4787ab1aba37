// Package llm provides the capability interface for text generation,
// structured extraction, and embeddings, with interchangeable provider
// backends. The engine only ever calls the Provider interface; all
// provider-specific request/response shaping stays inside this package.
package llm

import (
	"context"
	"strings"
	"time"
)

// Role constants for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a structured conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateOptions tunes a single generation request. Zero values fall back
// to the provider's configured defaults.
type GenerateOptions struct {
	Temperature float32
	MaxTokens   int
}

// Provider is the capability interface for an LLM backend.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// Generate produces text for an ordered conversation.
	Generate(ctx context.Context, messages []Message, opts GenerateOptions) (string, error)

	// Embed returns a fixed-dimension vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// ExtractJSON runs prompt against the model with a JSON-only
	// instruction and unmarshals the response into out. Fails when the
	// model does not return parseable JSON.
	ExtractJSON(ctx context.Context, prompt, systemPrompt string, out any) error
}

// Config holds provider configuration.
type Config struct {
	// Provider name: "openai", "ollama".
	Provider string `yaml:"provider"`

	// Model is the chat/extraction model name (provider-specific).
	Model string `yaml:"model"`

	// EmbeddingModel is the embedding model name.
	EmbeddingModel string `yaml:"embedding_model"`

	// APIKey authenticates against hosted providers.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the API endpoint (e.g. an Ollama host).
	BaseURL string `yaml:"base_url"`

	// Temperature is the default sampling temperature.
	Temperature float32 `yaml:"temperature"`

	// MaxTokens is the default generation budget.
	MaxTokens int `yaml:"max_tokens"`

	// Timeout bounds each API request.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns sensible provider defaults.
func DefaultConfig() Config {
	return Config{
		Provider:       "openai",
		Model:          "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
		Temperature:    0.7,
		MaxTokens:      2048,
		Timeout:        30 * time.Second,
	}
}

// StripJSONFences removes markdown code fences some models wrap around
// JSON output ("```json ... ```").
func StripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
