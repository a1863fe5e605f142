package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/candidate-pipeline/internal/types"
)

// InsertResult appends a structured result row and returns its id.
// Rows are never updated; readers take the most recent one.
func (db *DB) InsertResult(ctx context.Context, input *ResultInput) (uuid.UUID, error) {
	payload, err := json.Marshal(input.Result)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var id uuid.UUID
	err = db.pool.QueryRow(ctx,
		`INSERT INTO ai_results (job_type, candidate_id, org_id, result)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		input.JobType, input.CandidateID, input.OrgID, payload,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert %s result: %w", input.JobType, err)
	}
	return id, nil
}

// LatestResult returns the newest result of jobType for the candidate, or a NotFoundError
func (db *DB) LatestResult(ctx context.Context, orgID, candidateID uuid.UUID, jobType types.ResultJobType) (*types.AIResult, error) {
	var r types.AIResult
	var payload []byte

	err := db.pool.QueryRow(ctx,
		`SELECT id, job_type, candidate_id, org_id, result, created_at
		 FROM ai_results
		 WHERE candidate_id = $1 AND org_id = $2 AND job_type = $3
		 ORDER BY created_at DESC
		 LIMIT 1`,
		candidateID, orgID, jobType,
	).Scan(&r.ID, &r.JobType, &r.CandidateID, &r.OrgID, &payload, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: EntityResult, ID: candidateID, OrgID: orgID}
		}
		return nil, fmt.Errorf("failed to get latest %s result: %w", jobType, err)
	}
	r.Result = payload
	return &r, nil
}

// LatestParsedResume decodes the newest resume_parse result for the candidate
func (db *DB) LatestParsedResume(ctx context.Context, orgID, candidateID uuid.UUID) (*types.ParsedResume, error) {
	result, err := db.LatestResult(ctx, orgID, candidateID, types.ResultJobTypeResumeParse)
	if err != nil {
		return nil, err
	}

	parsed, err := result.ParsedResume()
	if err != nil {
		return nil, fmt.Errorf("failed to decode result %s: %w", result.ID, err)
	}
	return parsed, nil
}
