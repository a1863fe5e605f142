// Package worker drains the work queue: pending parse_resume jobs run the full pipeline and
// pending embed_resume jobs re-run embedding against the latest parse.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-pipeline/internal/metrics"
	"github.com/jonathan/candidate-pipeline/internal/pipeline"
	"github.com/jonathan/candidate-pipeline/internal/types"
	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Store is the queue access the worker needs. *db.DB satisfies it.
type Store interface {
	ClaimPendingJobs(ctx context.Context, jobType types.JobType, limit int, lease time.Duration) ([]types.WorkflowJob, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status types.JobStatus, errMsg string) error
	GetCandidate(ctx context.Context, orgID, id uuid.UUID) (*types.Candidate, error)
}

// Processor runs the ingestion pipeline. *pipeline.Orchestrator satisfies it.
type Processor interface {
	ProcessCandidate(ctx context.Context, req *types.ProcessRequest, reporter pipeline.ProgressReporter) (*types.ProcessResult, error)
}

// EmbeddingGenerator embeds a candidate's latest parse for a claimed job.
// *embedding.Generator satisfies it.
type EmbeddingGenerator interface {
	GenerateForJob(ctx context.Context, jobID, orgID, candidateID uuid.UUID) (*types.EmbedResult, error)
}

// Options tunes polling
type Options struct {
	PollInterval time.Duration
	BatchSize    int
	Concurrency  int
	// Lease is how long a claimed job stays invisible to other workers
	Lease time.Duration
}

// DefaultOptions mirrors the config defaults
func DefaultOptions() Options {
	return Options{
		PollInterval: 5 * time.Second,
		BatchSize:    10,
		Concurrency:  4,
		Lease:        10 * time.Minute,
	}
}

// Worker polls the queue and runs claimed jobs with bounded concurrency
type Worker struct {
	store      Store
	processor  Processor
	embeddings EmbeddingGenerator
	opts       Options
	logger     *zap.Logger
}

// New creates a Worker. Zero-valued options fall back to DefaultOptions.
func New(store Store, processor Processor, embeddings EmbeddingGenerator, opts Options, logger *zap.Logger) *Worker {
	def := DefaultOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = def.Concurrency
	}
	if opts.Lease <= 0 {
		opts.Lease = def.Lease
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		store:      store,
		processor:  processor,
		embeddings: embeddings,
		opts:       opts,
		logger:     logger,
	}
}

// Run polls until ctx is cancelled. Poll errors are logged and do not stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started",
		zap.Duration("poll_interval", w.opts.PollInterval),
		zap.Int("batch_size", w.opts.BatchSize),
		zap.Int("concurrency", w.opts.Concurrency))

	ticker := jitterbug.New(w.opts.PollInterval, &jitterbug.Norm{Stdev: w.opts.PollInterval / 10, Mean: 0})
	defer ticker.Stop()

	for {
		if _, err := w.Poll(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("poll failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Poll claims and runs one batch of each job type the worker handles.
// It returns how many jobs were run.
func (w *Worker) Poll(ctx context.Context) (int, error) {
	total := 0
	for _, jobType := range []types.JobType{types.JobTypeParseResume, types.JobTypeEmbedResume} {
		jobs, err := w.store.ClaimPendingJobs(ctx, jobType, w.opts.BatchSize, w.opts.Lease)
		if err != nil {
			return total, fmt.Errorf("failed to claim %s jobs: %w", jobType, err)
		}
		if len(jobs) == 0 {
			continue
		}
		w.logger.Debug("claimed jobs", zap.String("job_type", string(jobType)), zap.Int("count", len(jobs)))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(w.opts.Concurrency)
		for _, job := range jobs {
			g.Go(func() error {
				w.runJob(gctx, job)
				return nil
			})
		}
		_ = g.Wait()
		total += len(jobs)
	}
	return total, nil
}

// runJob executes one job and records its final status. Failures stay on the job row.
func (w *Worker) runJob(ctx context.Context, job types.WorkflowJob) {
	log := w.logger.With(zap.String("job_id", job.ID.String()), zap.String("job_type", string(job.JobType)))

	err := w.execute(ctx, job)
	status := types.JobStatusCompleted
	errMsg := ""
	if err != nil {
		status = types.JobStatusFailed
		errMsg = err.Error()
		log.Warn("job failed", zap.Error(err))
	} else {
		log.Info("job completed")
	}
	metrics.IncreaseWorkflowJobs(string(job.JobType), string(status))

	// The run context may already be cancelled; the status write must still land
	if err := w.store.UpdateJobStatus(context.WithoutCancel(ctx), job.ID, status, errMsg); err != nil {
		log.Error("failed to update job status", zap.Error(err))
	}
}

func (w *Worker) execute(ctx context.Context, job types.WorkflowJob) error {
	if job.CandidateID == nil {
		return fmt.Errorf("job %s has no candidate", job.ID)
	}

	switch job.JobType {
	case types.JobTypeParseResume:
		candidate, err := w.store.GetCandidate(ctx, job.OrgID, *job.CandidateID)
		if err != nil {
			return err
		}
		_, err = w.processor.ProcessCandidate(ctx, &types.ProcessRequest{
			ResumeURL:   candidate.ResumeURL,
			CandidateID: candidate.ID.String(),
			OrgID:       candidate.OrgID.String(),
		}, nil)
		return err

	case types.JobTypeEmbedResume:
		_, err := w.embeddings.GenerateForJob(ctx, job.ID, job.OrgID, *job.CandidateID)
		return err

	default:
		return fmt.Errorf("unsupported job type %q", job.JobType)
	}
}
