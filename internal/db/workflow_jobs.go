package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/candidate-pipeline/internal/types"
)

const jobColumns = `id, job_type, candidate_id, job_id, org_id, status,
	COALESCE(error_message, ''), created_at, updated_at`

// EnqueueJobs inserts pending jobs in a single transaction. Either all rows are written or none.
func (db *DB) EnqueueJobs(ctx context.Context, jobs []JobInput) ([]uuid.UUID, error) {
	if len(jobs) == 0 {
		return nil, nil
	}
	for _, j := range jobs {
		if !j.JobType.IsValid() {
			return nil, fmt.Errorf("invalid job type %q", j.JobType)
		}
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, j := range jobs {
		batch.Queue(
			`INSERT INTO workflow_jobs (job_type, candidate_id, job_id, org_id, status)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			j.JobType, j.CandidateID, j.JobID, j.OrgID, types.JobStatusPending,
		)
	}

	results := tx.SendBatch(ctx, batch)
	ids := make([]uuid.UUID, 0, len(jobs))
	for _, j := range jobs {
		var id uuid.UUID
		if err := results.QueryRow().Scan(&id); err != nil {
			_ = results.Close()
			return nil, fmt.Errorf("failed to enqueue %s job: %w", j.JobType, err)
		}
		ids = append(ids, id)
	}
	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("failed to enqueue jobs: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit jobs: %w", err)
	}
	return ids, nil
}

// ClaimPendingJobs leases up to limit pending jobs of jobType, oldest first.
// A claimed job is invisible to other claimers until lease expires or its status changes.
func (db *DB) ClaimPendingJobs(ctx context.Context, jobType types.JobType, limit int, lease time.Duration) ([]types.WorkflowJob, error) {
	rows, err := db.pool.Query(ctx,
		`UPDATE workflow_jobs SET claimed_at = clock_timestamp()
		 WHERE id IN (
		     SELECT id FROM workflow_jobs
		     WHERE job_type = $1 AND status = 'pending'
		       AND (claimed_at IS NULL OR claimed_at < clock_timestamp() - make_interval(secs => $3))
		     ORDER BY created_at
		     LIMIT $2
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+jobColumns,
		jobType, limit, lease.Seconds(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to claim %s jobs: %w", jobType, err)
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to claim %s jobs: %w", jobType, err)
	}
	return jobs, nil
}

// UpdateJobStatus moves a job to completed or failed. errMsg is stored for failures.
func (db *DB) UpdateJobStatus(ctx context.Context, id uuid.UUID, status types.JobStatus, errMsg string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE workflow_jobs
		 SET status = $2, error_message = NULLIF($3, ''), claimed_at = NULL, updated_at = clock_timestamp()
		 WHERE id = $1`,
		id, status, errMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: EntityJob, ID: id}
	}
	return nil
}

// FailPendingJob marks the newest pending job of jobType for the candidate as failed.
// It reports whether a job was found.
func (db *DB) FailPendingJob(ctx context.Context, orgID, candidateID uuid.UUID, jobType types.JobType, errMsg string) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE workflow_jobs
		 SET status = 'failed', error_message = NULLIF($4, ''), claimed_at = NULL, updated_at = clock_timestamp()
		 WHERE id = (
		     SELECT id FROM workflow_jobs
		     WHERE candidate_id = $1 AND org_id = $2 AND job_type = $3 AND status = 'pending'
		     ORDER BY created_at DESC
		     LIMIT 1
		 )`,
		candidateID, orgID, jobType, errMsg,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark %s job failed: %w", jobType, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListJobsForCandidate returns every job ever queued for the candidate, oldest first
func (db *DB) ListJobsForCandidate(ctx context.Context, orgID, candidateID uuid.UUID) ([]types.WorkflowJob, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+jobColumns+`
		 FROM workflow_jobs
		 WHERE candidate_id = $1 AND org_id = $2
		 ORDER BY created_at`,
		candidateID, orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

func scanJobs(rows pgx.Rows) ([]types.WorkflowJob, error) {
	var jobs []types.WorkflowJob
	for rows.Next() {
		var j types.WorkflowJob
		if err := rows.Scan(&j.ID, &j.JobType, &j.CandidateID, &j.JobID, &j.OrgID, &j.Status,
			&j.Error, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
