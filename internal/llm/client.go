package llm

import (
	"context"
	"fmt"
)

// ChatClient sends a system instruction plus user content and returns the model's text reply
type ChatClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
	// ChatModel returns the model (or deployment) used for completions
	ChatModel() string
}

// Embedder converts text into a dense vector
type Embedder interface {
	Embed(ctx context.Context, input string) ([]float32, error)
	// EmbeddingModel returns the model (or deployment) used for embeddings
	EmbeddingModel() string
}

// Client is an abstraction over LLM providers
type Client interface {
	ChatClient
	Embedder
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	case ProviderOpenAI, ProviderAzure:
		return NewOpenAIClient(config, apiKey)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", config.Provider)
	}
}
