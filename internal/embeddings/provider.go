package embeddings

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider defines a simple embeddings provider interface.
// Implementations should be concurrency-safe.
type Provider interface {
	// Name returns the provider name (e.g., "openai", "ollama").
	Name() string
	// Dimensions returns the embedding dimensionality this provider produces.
	Dimensions() int
	// Embed returns one embedding per input string.
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// Config selects and configures the embeddings provider.
type Config struct {
	Provider    string        `env:"EMBEDDINGS_PROVIDER" envDefault:"hash"`
	Dims        int           `env:"EMBEDDING_DIMS" envDefault:"384"`
	HTTPTimeout time.Duration `env:"EMBEDDINGS_HTTP_TIMEOUT" envDefault:"30s"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel   string `env:"OPENAI_EMBEDDINGS_MODEL" envDefault:"text-embedding-3-small"`

	OllamaHost  string `env:"OLLAMA_HOST" envDefault:"http://localhost:11434"`
	OllamaModel string `env:"OLLAMA_EMBEDDINGS_MODEL" envDefault:"nomic-embed-text"`
}

// New constructs the configured provider, adapted to cfg.Dims.
// EMBEDDINGS_PROVIDER: "hash" (default), "openai", "localai" or "ollama".
func New(cfg Config) (Provider, error) {
	var p Provider
	switch name := strings.ToLower(strings.TrimSpace(cfg.Provider)); name {
	case "", "hash":
		p = NewHashProvider(cfg.Dims)
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, fmt.Errorf("openai embeddings: OPENAI_API_KEY is not set")
		}
		p = NewOpenAIProvider("openai", cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.HTTPTimeout)
	case "localai", "llamacpp", "llama.cpp":
		// OpenAI-compatible server, key optional
		p = NewOpenAIProvider("localai", cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.HTTPTimeout)
	case "ollama":
		p = NewOllamaProvider(cfg.OllamaHost, cfg.OllamaModel, cfg.HTTPTimeout)
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", name)
	}
	return WrapToDims(p, cfg.Dims), nil
}
