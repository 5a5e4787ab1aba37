package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOllamaBaseURL = "http://localhost:11434/v1"

// OllamaProvider implements Provider against a local Ollama server through
// its OpenAI-compatible endpoint. No API key required; Ollama models do not
// reliably honor JSON response format, so ExtractJSON relies on prompt
// instructions plus fence stripping.
type OllamaProvider struct {
	client *openai.Client
	config Config
}

// NewOllamaProvider creates an Ollama provider from config.
func NewOllamaProvider(cfg Config) (*OllamaProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL = strings.TrimSuffix(baseURL, "/") + "/v1"
	}

	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama: model name is required")
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = cfg.Model
	}

	clientConfig := openai.DefaultConfig("ollama") // dummy key, unused by Ollama
	clientConfig.BaseURL = baseURL

	return &OllamaProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}, nil
}

// Name returns the provider name.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Generate produces text via Ollama's OpenAI-compatible chat endpoint.
func (p *OllamaProvider) Generate(ctx context.Context, messages []Message, opts GenerateOptions) (string, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	temperature := opts.Temperature
	if temperature == 0 {
		temperature = p.config.Temperature
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.config.Model,
		Messages:    toOpenAIMessages(messages),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("ollama: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("ollama: empty completion response")
	}

	return resp.Choices[0].Message.Content, nil
}

// Embed returns an embedding vector for text.
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.config.EmbeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("ollama: embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("ollama: empty embedding response")
	}

	return resp.Data[0].Embedding, nil
}

// ExtractJSON asks the model for JSON-only output and unmarshals it into out.
func (p *OllamaProvider) ExtractJSON(ctx context.Context, prompt, systemPrompt string, out any) error {
	response, err := p.Generate(ctx, []Message{
		{Role: RoleSystem, Content: systemPrompt + "\nRespond ONLY with valid JSON, no markdown formatting."},
		{Role: RoleUser, Content: prompt},
	}, GenerateOptions{Temperature: extractionTemperature})
	if err != nil {
		return err
	}

	raw := StripJSONFences(response)
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("ollama: parsing extraction response: %w", err)
	}
	return nil
}

func (p *OllamaProvider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := p.config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
