package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-pipeline/internal/db"
	"github.com/jonathan/candidate-pipeline/internal/observability"
	"github.com/jonathan/candidate-pipeline/internal/types"
)

// summaryStore reads back what a run persisted
type summaryStore interface {
	LatestParsedResume(ctx context.Context, orgID, candidateID uuid.UUID) (*types.ParsedResume, error)
	ListJobsForCandidate(ctx context.Context, orgID, candidateID uuid.UUID) ([]types.WorkflowJob, error)
	ListEmbeddingResults(ctx context.Context, orgID, candidateID uuid.UUID) ([]types.EmbeddingResult, error)
}

// printSummary renders the candidate's stored state for --verbose
func printSummary(ctx context.Context, w io.Writer, store summaryStore, orgID, candidateID uuid.UUID) error {
	p := observability.NewPrinter(w)

	resume, err := store.LatestParsedResume(ctx, orgID, candidateID)
	switch {
	case errors.Is(err, db.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to load parsed résumé: %w", err)
	default:
		p.PrintParsedResume(resume)
	}

	jobs, err := store.ListJobsForCandidate(ctx, orgID, candidateID)
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}
	p.PrintJobs(jobs)

	results, err := store.ListEmbeddingResults(ctx, orgID, candidateID)
	if err != nil {
		return fmt.Errorf("failed to list embedding results: %w", err)
	}
	p.PrintEmbeddingResults(results)
	return nil
}
