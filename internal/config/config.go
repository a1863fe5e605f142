// Package config provides configuration loading and validation for the pipeline services.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Provider names accepted for LLM.Provider
const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
	ProviderGemini = "gemini"
)

// Config holds every tunable of the pipeline.
// Values come from Default(), then an optional JSON file, then environment variables.
type Config struct {
	DatabaseURL string `json:"database_url,omitempty" envconfig:"DATABASE_URL"`
	LogLevel    string `json:"log_level,omitempty" envconfig:"LOG_LEVEL"`

	LLM         LLMConfig         `json:"llm" envconfig:"LLM"`
	ObjectStore ObjectStoreConfig `json:"object_store" envconfig:"OBJECT_STORE"`
	Timeouts    TimeoutConfig     `json:"timeouts" envconfig:"TIMEOUT"`
	Download    DownloadConfig    `json:"download" envconfig:"DOWNLOAD"`
	Worker      WorkerConfig      `json:"worker" envconfig:"WORKER"`
	Server      ServerConfig      `json:"server" envconfig:"SERVER"`
}

// LLMConfig configures the chat-completion and embedding collaborators
type LLMConfig struct {
	Provider       string  `json:"provider,omitempty" envconfig:"PROVIDER"`
	Endpoint       string  `json:"endpoint,omitempty" envconfig:"ENDPOINT"`
	APIKey         string  `json:"api_key,omitempty" envconfig:"API_KEY"`
	APIVersion     string  `json:"api_version,omitempty" envconfig:"API_VERSION"`
	ChatModel      string  `json:"chat_model,omitempty" envconfig:"CHAT_MODEL"`
	EmbeddingModel string  `json:"embedding_model,omitempty" envconfig:"EMBEDDING_MODEL"`
	Temperature    float64 `json:"temperature,omitempty" envconfig:"TEMPERATURE"`
	MaxTokens      int     `json:"max_tokens,omitempty" envconfig:"MAX_TOKENS"`
}

// ObjectStoreConfig configures the S3-compatible blob store résumés are uploaded to
type ObjectStoreConfig struct {
	Endpoint      string `json:"endpoint,omitempty" envconfig:"ENDPOINT"`
	Bucket        string `json:"bucket,omitempty" envconfig:"BUCKET"`
	AccessKey     string `json:"access_key,omitempty" envconfig:"ACCESS_KEY"`
	SecretKey     string `json:"secret_key,omitempty" envconfig:"SECRET_KEY"`
	UseSSL        bool   `json:"use_ssl,omitempty" envconfig:"USE_SSL"`
	PublicBaseURL string `json:"public_base_url,omitempty" envconfig:"PUBLIC_BASE_URL"`
}

// Enabled reports whether enough is configured to talk to the object store
func (c ObjectStoreConfig) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// TimeoutConfig bounds each network-bound stage
type TimeoutConfig struct {
	Download   Duration `json:"download,omitempty" envconfig:"DOWNLOAD"`
	Completion Duration `json:"completion,omitempty" envconfig:"COMPLETION"`
	Embedding  Duration `json:"embedding,omitempty" envconfig:"EMBEDDING"`
}

// DownloadConfig configures résumé downloads
type DownloadConfig struct {
	Attempts int `json:"attempts,omitempty" envconfig:"ATTEMPTS"`
}

// WorkerConfig configures the work-queue poller
type WorkerConfig struct {
	PollInterval Duration `json:"poll_interval,omitempty" envconfig:"POLL_INTERVAL"`
	BatchSize    int      `json:"batch_size,omitempty" envconfig:"BATCH_SIZE"`
	Concurrency  int      `json:"concurrency,omitempty" envconfig:"CONCURRENCY"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Port int `json:"port,omitempty" envconfig:"PORT"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		LogLevel: "info",
		LLM: LLMConfig{
			Provider:       ProviderOpenAI,
			Endpoint:       "https://api.openai.com/v1",
			ChatModel:      "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			Temperature:    0.1,
			MaxTokens:      2048,
		},
		Timeouts: TimeoutConfig{
			Download:   Duration(30 * time.Second),
			Completion: Duration(60 * time.Second),
			Embedding:  Duration(30 * time.Second),
		},
		Download: DownloadConfig{Attempts: 1},
		Worker: WorkerConfig{
			PollInterval: Duration(5 * time.Second),
			BatchSize:    10,
			Concurrency:  4,
		},
		Server: ServerConfig{Port: 8080},
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Load builds the effective configuration: defaults, then the JSON file at path (if any),
// then environment variables. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg.MergeWithDefaults(cfg)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overlays set environment variables onto c. Unset variables leave fields untouched.
func (c *Config) ApplyEnv() error {
	if err := envconfig.Process("", c); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return nil
}

// Validate checks that the configuration has valid values.
// Connection strings are not required here; each command checks what it needs.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderAzure, ProviderGemini:
	default:
		return fmt.Errorf("config error: unknown llm provider %q", c.LLM.Provider)
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("config error: 'llm.temperature' must be between 0 and 2")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("config error: 'llm.max_tokens' must be positive")
	}
	if c.LLM.Provider == ProviderAzure && c.LLM.APIVersion == "" {
		return fmt.Errorf("config error: 'llm.api_version' is required for azure")
	}

	if c.Timeouts.Download <= 0 || c.Timeouts.Completion <= 0 || c.Timeouts.Embedding <= 0 {
		return fmt.Errorf("config error: timeouts must be positive")
	}
	if c.Download.Attempts < 1 {
		return fmt.Errorf("config error: 'download.attempts' must be at least 1")
	}

	if c.Worker.BatchSize < 1 {
		return fmt.Errorf("config error: 'worker.batch_size' must be at least 1")
	}
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config error: 'worker.concurrency' must be at least 1")
	}
	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("config error: 'worker.poll_interval' must be positive")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config error: 'server.port' out of range")
	}

	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from defaults.
// Bools cannot distinguish unset from false, so they are never merged.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}

	llm := &result.LLM
	if llm.Provider == "" {
		llm.Provider = defaults.LLM.Provider
	}
	if llm.Endpoint == "" {
		llm.Endpoint = defaults.LLM.Endpoint
	}
	if llm.APIKey == "" {
		llm.APIKey = defaults.LLM.APIKey
	}
	if llm.APIVersion == "" {
		llm.APIVersion = defaults.LLM.APIVersion
	}
	if llm.ChatModel == "" {
		llm.ChatModel = defaults.LLM.ChatModel
	}
	if llm.EmbeddingModel == "" {
		llm.EmbeddingModel = defaults.LLM.EmbeddingModel
	}
	if llm.Temperature == 0 {
		llm.Temperature = defaults.LLM.Temperature
	}
	if llm.MaxTokens == 0 {
		llm.MaxTokens = defaults.LLM.MaxTokens
	}

	store := &result.ObjectStore
	if store.Endpoint == "" {
		store.Endpoint = defaults.ObjectStore.Endpoint
	}
	if store.Bucket == "" {
		store.Bucket = defaults.ObjectStore.Bucket
	}
	if store.AccessKey == "" {
		store.AccessKey = defaults.ObjectStore.AccessKey
	}
	if store.SecretKey == "" {
		store.SecretKey = defaults.ObjectStore.SecretKey
	}
	if store.PublicBaseURL == "" {
		store.PublicBaseURL = defaults.ObjectStore.PublicBaseURL
	}

	if result.Timeouts.Download == 0 {
		result.Timeouts.Download = defaults.Timeouts.Download
	}
	if result.Timeouts.Completion == 0 {
		result.Timeouts.Completion = defaults.Timeouts.Completion
	}
	if result.Timeouts.Embedding == 0 {
		result.Timeouts.Embedding = defaults.Timeouts.Embedding
	}
	if result.Download.Attempts == 0 {
		result.Download.Attempts = defaults.Download.Attempts
	}

	if result.Worker.PollInterval == 0 {
		result.Worker.PollInterval = defaults.Worker.PollInterval
	}
	if result.Worker.BatchSize == 0 {
		result.Worker.BatchSize = defaults.Worker.BatchSize
	}
	if result.Worker.Concurrency == 0 {
		result.Worker.Concurrency = defaults.Worker.Concurrency
	}

	if result.Server.Port == 0 {
		result.Server.Port = defaults.Server.Port
	}

	return result
}
