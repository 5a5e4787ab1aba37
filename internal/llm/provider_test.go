package llm

import "testing"

func TestStripJSONFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bare json", in: `{"a": 1}`, want: `{"a": 1}`},
		{name: "json fence", in: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "plain fence", in: "```\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "surrounding whitespace", in: "  {\"a\": 1}\n", want: `{"a": 1}`},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripJSONFences(tt.in); got != tt.want {
				t.Errorf("StripJSONFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "openai requires api key", cfg: Config{Provider: "openai"}, wantErr: true},
		{name: "openai with key", cfg: Config{Provider: "openai", APIKey: "sk-test"}, wantErr: false},
		{name: "ollama requires model", cfg: Config{Provider: "ollama"}, wantErr: true},
		{name: "ollama with model", cfg: Config{Provider: "ollama", Model: "llama3"}, wantErr: false},
		{name: "unknown provider", cfg: Config{Provider: "cohere"}, wantErr: true},
		{name: "case insensitive", cfg: Config{Provider: "OpenAI", APIKey: "sk-test"}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewProvider() error: %v", err)
			}
			if p == nil {
				t.Fatal("NewProvider() returned nil provider")
			}
		})
	}
}
