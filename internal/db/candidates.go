package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/candidate-pipeline/internal/types"
	"github.com/pgvector/pgvector-go"
)

const candidateColumns = `id, org_id, job_id, COALESCE(email, ''), resume_url, status,
	COALESCE(embedding_vector::text, ''), created_at, updated_at`

// CreateCandidate inserts a candidate in the pending stage
func (db *DB) CreateCandidate(ctx context.Context, input *CandidateInput) (*types.Candidate, error) {
	var email *string
	if input.Email != "" {
		email = &input.Email
	}

	row := db.pool.QueryRow(ctx,
		`INSERT INTO candidates (org_id, job_id, email, resume_url, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+candidateColumns,
		input.OrgID, input.JobID, email, input.ResumeURL, types.CandidateStatusPending,
	)
	c, err := scanCandidate(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create candidate: %w", err)
	}
	return c, nil
}

// GetCandidate returns the candidate with id in org, or a NotFoundError
func (db *DB) GetCandidate(ctx context.Context, orgID, id uuid.UUID) (*types.Candidate, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE id = $1 AND org_id = $2`,
		id, orgID,
	)
	c, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: EntityCandidate, ID: id, OrgID: orgID}
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return c, nil
}

// SetEmailIfEmpty stores email only when the candidate has none.
// It reports whether the row changed; a missing candidate is a NotFoundError.
func (db *DB) SetEmailIfEmpty(ctx context.Context, orgID, id uuid.UUID, email string) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE candidates SET email = $3, updated_at = NOW()
		 WHERE id = $1 AND org_id = $2 AND (email IS NULL OR email = '')`,
		id, orgID, email,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update candidate email: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	if err := db.candidateExists(ctx, orgID, id); err != nil {
		return false, err
	}
	return false, nil
}

// SetEmbedding overwrites the candidate's embedding vector
func (db *DB) SetEmbedding(ctx context.Context, orgID, id uuid.UUID, vector []float32) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE candidates SET embedding_vector = $3, updated_at = NOW()
		 WHERE id = $1 AND org_id = $2`,
		id, orgID, pgvector.NewVector(vector),
	)
	if err != nil {
		return fmt.Errorf("failed to store candidate embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: EntityCandidate, ID: id, OrgID: orgID}
	}
	return nil
}

func (db *DB) candidateExists(ctx context.Context, orgID, id uuid.UUID) error {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM candidates WHERE id = $1 AND org_id = $2)`,
		id, orgID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up candidate: %w", err)
	}
	if !exists {
		return &NotFoundError{Entity: EntityCandidate, ID: id, OrgID: orgID}
	}
	return nil
}

func scanCandidate(row pgx.Row) (*types.Candidate, error) {
	var c types.Candidate
	var status string
	var vectorText string

	if err := row.Scan(&c.ID, &c.OrgID, &c.JobID, &c.Email, &c.ResumeURL, &status,
		&vectorText, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Status = types.CandidateStatus(status)
	if !c.Status.IsValid() {
		return nil, fmt.Errorf("unknown candidate status %q", status)
	}

	embedding, err := parseVector(vectorText)
	if err != nil {
		return nil, err
	}
	c.Embedding = embedding
	return &c, nil
}

// parseVector decodes the text form of a pgvector column. Empty text means NULL.
func parseVector(text string) ([]float32, error) {
	if text == "" {
		return nil, nil
	}
	var v pgvector.Vector
	if err := v.Scan(text); err != nil {
		return nil, fmt.Errorf("failed to decode embedding vector: %w", err)
	}
	return v.Slice(), nil
}
