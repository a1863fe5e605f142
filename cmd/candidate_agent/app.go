package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/candidate-pipeline/internal/config"
	"github.com/jonathan/candidate-pipeline/internal/db"
	"github.com/jonathan/candidate-pipeline/internal/embedding"
	"github.com/jonathan/candidate-pipeline/internal/fetch"
	"github.com/jonathan/candidate-pipeline/internal/ingestion"
	"github.com/jonathan/candidate-pipeline/internal/llm"
	"github.com/jonathan/candidate-pipeline/internal/parsing"
	"github.com/jonathan/candidate-pipeline/internal/pipeline"
	"go.uber.org/zap"
)

// app is the fully wired pipeline shared by serve, worker, process and embed
type app struct {
	db           *db.DB
	llm          llm.Client
	embeddings   *embedding.Generator
	orchestrator *pipeline.Orchestrator
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("LLM API key is required (set LLM_API_KEY or llm.api_key in the config file)")
	}

	database, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := llm.NewClient(ctx, llmConfig(cfg), cfg.LLM.APIKey)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	objects, err := newObjectStore(cfg)
	if err != nil {
		database.Close()
		_ = client.Close()
		return nil, err
	}

	var getter fetch.ObjectGetter
	if objects != nil {
		getter = objects
	}
	downloader := fetch.NewDownloader(&fetch.Options{
		Timeout:  cfg.Timeouts.Download.Std(),
		Attempts: cfg.Download.Attempts,
		Backoff:  500 * time.Millisecond,
	}, getter)

	generator := embedding.NewGenerator(database, client, cfg.Timeouts.Embedding.Std(), logger.Named("embedding"))
	orchestrator := pipeline.NewOrchestrator(pipeline.Dependencies{
		Downloader: downloader,
		Extractor:  ingestion.NewPDFExtractor(),
		Structurer: parsing.NewStructurer(client, logger.Named("parsing")),
		Store:      database,
		Embeddings: generator,
	}, pipeline.Timeouts{
		Download:   cfg.Timeouts.Download.Std(),
		Completion: cfg.Timeouts.Completion.Std(),
	}, logger.Named("pipeline"))

	return &app{
		db:           database,
		llm:          client,
		embeddings:   generator,
		orchestrator: orchestrator,
	}, nil
}

func (a *app) Close() {
	if a.llm != nil {
		_ = a.llm.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func openDB(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required (set DATABASE_URL or database_url in the config file)")
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return database, nil
}

// newObjectStore returns nil when no object store is configured
func newObjectStore(cfg *config.Config) (*fetch.ObjectStore, error) {
	if !cfg.ObjectStore.Enabled() {
		return nil, nil
	}
	store, err := fetch.NewObjectStore(
		fetch.WithEndpoint(cfg.ObjectStore.Endpoint),
		fetch.WithBucket(cfg.ObjectStore.Bucket),
		fetch.WithAccessKey(cfg.ObjectStore.AccessKey),
		fetch.WithSecretKey(cfg.ObjectStore.SecretKey),
		fetch.WithSSL(cfg.ObjectStore.UseSSL),
		fetch.WithPublicBaseURL(cfg.ObjectStore.PublicBaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store: %w", err)
	}
	return store, nil
}

func llmConfig(cfg *config.Config) *llm.Config {
	return &llm.Config{
		Provider:          llm.Provider(cfg.LLM.Provider),
		Endpoint:          cfg.LLM.Endpoint,
		APIVersion:        cfg.LLM.APIVersion,
		ChatModel:         cfg.LLM.ChatModel,
		EmbeddingModel:    cfg.LLM.EmbeddingModel,
		Temperature:       float32(cfg.LLM.Temperature),
		MaxTokens:         cfg.LLM.MaxTokens,
		CompletionTimeout: cfg.Timeouts.Completion.Std(),
		EmbeddingTimeout:  cfg.Timeouts.Embedding.Std(),
	}
}
