package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-pipeline/internal/types"
)

// InsertEmbeddingResult records the outcome of one embedding attempt
func (db *DB) InsertEmbeddingResult(ctx context.Context, r *types.EmbeddingResult) (uuid.UUID, error) {
	var dimensions *int
	if r.Dimensions > 0 {
		dimensions = &r.Dimensions
	}

	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO embedding_results (candidate_id, org_id, status, dimensions, model, error_message)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
		 RETURNING id`,
		r.CandidateID, r.OrgID, r.Status, dimensions, r.Model, r.ErrorMessage,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert embedding result: %w", err)
	}
	return id, nil
}

// ListEmbeddingResults returns a candidate's embedding attempts, newest first
func (db *DB) ListEmbeddingResults(ctx context.Context, orgID, candidateID uuid.UUID) ([]types.EmbeddingResult, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, candidate_id, org_id, status, COALESCE(dimensions, 0),
		        COALESCE(model, ''), COALESCE(error_message, ''), created_at
		 FROM embedding_results
		 WHERE candidate_id = $1 AND org_id = $2
		 ORDER BY created_at DESC`,
		candidateID, orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list embedding results: %w", err)
	}
	defer rows.Close()

	var results []types.EmbeddingResult
	for rows.Next() {
		var r types.EmbeddingResult
		if err := rows.Scan(&r.ID, &r.CandidateID, &r.OrgID, &r.Status, &r.Dimensions,
			&r.Model, &r.ErrorMessage, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan embedding result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
