// Package embedding turns a candidate's latest parsed résumé into a stored embedding vector.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-pipeline/internal/db"
	"github.com/jonathan/candidate-pipeline/internal/llm"
	"github.com/jonathan/candidate-pipeline/internal/metrics"
	"github.com/jonathan/candidate-pipeline/internal/types"
	"go.uber.org/zap"
)

// Store is the persistence the generator needs. *db.DB satisfies it.
type Store interface {
	LatestParsedResume(ctx context.Context, orgID, candidateID uuid.UUID) (*types.ParsedResume, error)
	SetEmbedding(ctx context.Context, orgID, candidateID uuid.UUID, vector []float32) error
	InsertEmbeddingResult(ctx context.Context, r *types.EmbeddingResult) (uuid.UUID, error)
	FailPendingJob(ctx context.Context, orgID, candidateID uuid.UUID, jobType types.JobType, errMsg string) (bool, error)
}

// Generator embeds candidates' parsed résumés
type Generator struct {
	store    Store
	embedder llm.Embedder
	timeout  time.Duration
	logger   *zap.Logger
}

// NewGenerator creates a Generator. A zero timeout leaves the embedding call bounded only by ctx.
func NewGenerator(store Store, embedder llm.Embedder, timeout time.Duration, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		store:    store,
		embedder: embedder,
		timeout:  timeout,
		logger:   logger,
	}
}

// Generate embeds the candidate's most recent parsed résumé and stores the vector.
// Every outcome is recorded as an EmbeddingResult. On failure the candidate's newest
// pending embed_resume job is marked failed and the error is returned.
func (g *Generator) Generate(ctx context.Context, orgID, candidateID uuid.UUID) (*types.EmbedResult, error) {
	log := g.logger.With(zap.String("candidate_id", candidateID.String()), zap.String("org_id", orgID.String()))
	return g.generate(ctx, log, orgID, candidateID, true)
}

// GenerateForJob is Generate on behalf of a claimed embed_resume job. The caller owns
// that job's status, so a failure leaves the candidate's other queued jobs untouched.
func (g *Generator) GenerateForJob(ctx context.Context, jobID, orgID, candidateID uuid.UUID) (*types.EmbedResult, error) {
	log := g.logger.With(
		zap.String("job_id", jobID.String()),
		zap.String("candidate_id", candidateID.String()),
		zap.String("org_id", orgID.String()),
	)
	return g.generate(ctx, log, orgID, candidateID, false)
}

func (g *Generator) generate(ctx context.Context, log *zap.Logger, orgID, candidateID uuid.UUID, failPending bool) (*types.EmbedResult, error) {
	vector, err := g.embed(ctx, orgID, candidateID)
	if err != nil {
		g.recordFailure(ctx, log, orgID, candidateID, err, failPending)
		return &types.EmbedResult{Success: false, Message: err.Error()}, err
	}

	if _, err := g.store.InsertEmbeddingResult(ctx, &types.EmbeddingResult{
		CandidateID: candidateID,
		OrgID:       orgID,
		Status:      types.EmbeddingStatusSuccess,
		Dimensions:  len(vector),
		Model:       g.embedder.EmbeddingModel(),
	}); err != nil {
		// The vector stays stored even when the audit row is lost.
		log.Warn("failed to record embedding result", zap.Error(err))
	}
	metrics.IncreaseEmbeddings(string(types.EmbeddingStatusSuccess))

	log.Info("stored candidate embedding", zap.Int("dimensions", len(vector)))
	return &types.EmbedResult{
		Success:    true,
		Message:    fmt.Sprintf("stored %d-dimensional embedding", len(vector)),
		Dimensions: len(vector),
	}, nil
}

func (g *Generator) embed(ctx context.Context, orgID, candidateID uuid.UUID) ([]float32, error) {
	parsed, err := g.store.LatestParsedResume(ctx, orgID, candidateID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, &NoParsedResumeError{CandidateID: candidateID, Cause: err}
		}
		return nil, fmt.Errorf("failed to read parsed résumé: %w", err)
	}

	text := Flatten(parsed)
	if text == "" {
		return nil, &NoParsedResumeError{CandidateID: candidateID}
	}

	embedCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	vector, err := g.embedder.Embed(embedCtx, text)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, &llm.UpstreamServiceError{Service: llm.ServiceEmbedding, Message: "response contained no vector"}
	}

	if err := g.store.SetEmbedding(ctx, orgID, candidateID, vector); err != nil {
		return nil, err
	}
	return vector, nil
}

// recordFailure is best effort: bookkeeping errors are logged, never returned.
func (g *Generator) recordFailure(ctx context.Context, log *zap.Logger, orgID, candidateID uuid.UUID, cause error, failPending bool) {
	metrics.IncreaseEmbeddings(string(types.EmbeddingStatusError))
	log.Warn("embedding generation failed", zap.Error(cause))

	if _, err := g.store.InsertEmbeddingResult(ctx, &types.EmbeddingResult{
		CandidateID:  candidateID,
		OrgID:        orgID,
		Status:       types.EmbeddingStatusError,
		Model:        g.embedder.EmbeddingModel(),
		ErrorMessage: cause.Error(),
	}); err != nil {
		log.Warn("failed to record embedding failure", zap.Error(err))
	}
	if !failPending {
		return
	}

	found, err := g.store.FailPendingJob(ctx, orgID, candidateID, types.JobTypeEmbedResume, cause.Error())
	if err != nil {
		log.Warn("failed to mark embed_resume job failed", zap.Error(err))
		return
	}
	if !found {
		log.Debug("no pending embed_resume job to mark failed")
	}
}
