// Package llm provides chat-completion and embedding clients behind a provider-neutral interface.
package llm

import "time"

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderOpenAI is the OpenAI REST API (or any compatible gateway)
	ProviderOpenAI Provider = "openai"
	// ProviderAzure is Azure OpenAI with per-deployment URLs
	ProviderAzure Provider = "azure"
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
)

// Default request bounds
const (
	DefaultTemperature       = 0.1
	DefaultMaxTokens         = 2048
	DefaultCompletionTimeout = 60 * time.Second
	DefaultEmbeddingTimeout  = 30 * time.Second
)

// Config holds the model configuration for the application.
// For Azure, ChatModel and EmbeddingModel are deployment names.
type Config struct {
	Provider       Provider
	Endpoint       string
	APIVersion     string
	ChatModel      string
	EmbeddingModel string
	Temperature    float32
	MaxTokens      int

	CompletionTimeout time.Duration
	EmbeddingTimeout  time.Duration
}

// DefaultConfig returns the default configuration (OpenAI)
func DefaultConfig() *Config {
	return DefaultOpenAIConfig()
}

// DefaultOpenAIConfig returns the default OpenAI configuration
func DefaultOpenAIConfig() *Config {
	return &Config{
		Provider:          ProviderOpenAI,
		Endpoint:          "https://api.openai.com/v1",
		ChatModel:         "gpt-4o-mini",
		EmbeddingModel:    "text-embedding-3-small",
		Temperature:       DefaultTemperature,
		MaxTokens:         DefaultMaxTokens,
		CompletionTimeout: DefaultCompletionTimeout,
		EmbeddingTimeout:  DefaultEmbeddingTimeout,
	}
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider:          ProviderGemini,
		ChatModel:         "gemini-2.5-flash",
		EmbeddingModel:    "text-embedding-004",
		Temperature:       DefaultTemperature,
		MaxTokens:         DefaultMaxTokens,
		CompletionTimeout: DefaultCompletionTimeout,
		EmbeddingTimeout:  DefaultEmbeddingTimeout,
	}
}

// WithChatModel returns a new Config with a different chat model
func (c *Config) WithChatModel(model string) *Config {
	newConfig := *c
	newConfig.ChatModel = model
	return &newConfig
}

// WithEmbeddingModel returns a new Config with a different embedding model
func (c *Config) WithEmbeddingModel(model string) *Config {
	newConfig := *c
	newConfig.EmbeddingModel = model
	return &newConfig
}

func (c *Config) completionTimeout() time.Duration {
	if c.CompletionTimeout <= 0 {
		return DefaultCompletionTimeout
	}
	return c.CompletionTimeout
}

func (c *Config) embeddingTimeout() time.Duration {
	if c.EmbeddingTimeout <= 0 {
		return DefaultEmbeddingTimeout
	}
	return c.EmbeddingTimeout
}

func (c *Config) maxTokens() int {
	if c.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return c.MaxTokens
}
