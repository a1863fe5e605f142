// Package pipeline runs the résumé ingestion state machine for one candidate:
// download, extract, structure, persist, update the candidate, fan out follow-up jobs and embed.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-pipeline/internal/db"
	"github.com/jonathan/candidate-pipeline/internal/metrics"
	"github.com/jonathan/candidate-pipeline/internal/types"
	"go.uber.org/zap"
)

// Downloader fetches résumé bytes
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// TextExtractor turns document bytes into plain text
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Structurer turns plain text into a parsed résumé
type Structurer interface {
	Structure(ctx context.Context, text string) (*types.ParsedResume, error)
}

// EmbeddingGenerator embeds the latest persisted résumé for a candidate
type EmbeddingGenerator interface {
	Generate(ctx context.Context, orgID, candidateID uuid.UUID) (*types.EmbedResult, error)
}

// Store is the persistence a run needs. *db.DB satisfies it.
type Store interface {
	GetCandidate(ctx context.Context, orgID, id uuid.UUID) (*types.Candidate, error)
	InsertResult(ctx context.Context, input *db.ResultInput) (uuid.UUID, error)
	SetEmailIfEmpty(ctx context.Context, orgID, id uuid.UUID, email string) (bool, error)
	EnqueueJobs(ctx context.Context, jobs []db.JobInput) ([]uuid.UUID, error)
}

// Dependencies are the collaborators of an Orchestrator
type Dependencies struct {
	Downloader Downloader
	Extractor  TextExtractor
	Structurer Structurer
	Store      Store
	Embeddings EmbeddingGenerator
}

// Timeouts bound the network-bound stages. Zero means no extra bound beyond ctx.
type Timeouts struct {
	Download   time.Duration
	Completion time.Duration
}

// Orchestrator runs pipeline runs. It holds no per-run state and is safe for concurrent use.
type Orchestrator struct {
	deps     Dependencies
	timeouts Timeouts
	logger   *zap.Logger
}

// NewOrchestrator creates an Orchestrator
func NewOrchestrator(deps Dependencies, timeouts Timeouts, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{deps: deps, timeouts: timeouts, logger: logger}
}

// ProcessCandidate runs the full pipeline for one uploaded résumé.
// The returned result is never nil. err is non-nil exactly when result.Success is false.
func (o *Orchestrator) ProcessCandidate(ctx context.Context, req *types.ProcessRequest, reporter ProgressReporter) (*types.ProcessResult, error) {
	if err := req.Validate(); err != nil {
		return &types.ProcessResult{Success: false, Message: "invalid request: " + err.Error()}, fmt.Errorf("invalid request: %w", err)
	}
	candidateID, orgID, err := req.IDs()
	if err != nil {
		return &types.ProcessResult{Success: false, Message: "invalid request: " + err.Error()}, fmt.Errorf("invalid request: %w", err)
	}

	r := o.newRun(orgID, candidateID, reporter)
	r.log.Info("processing résumé", zap.String("resume_url", req.ResumeURL))

	resultID, err := r.execute(ctx, req.ResumeURL)
	if err != nil {
		metrics.IncreaseRunsTotal(metrics.OutcomeFailed)
		r.reporter.OnStageFailure(StageFailed, err)
		return &types.ProcessResult{Success: false, Message: err.Error()}, err
	}

	metrics.IncreaseRunsTotal(metrics.OutcomeSuccess)
	message := "résumé processed"
	if len(r.warnings) > 0 {
		message += " with warnings: " + strings.Join(r.warnings, "; ")
	}
	r.reporter.OnStageSuccess(StageDone, message)
	r.log.Info("résumé processed", zap.String("result_id", resultID.String()), zap.Int("warnings", len(r.warnings)))

	return &types.ProcessResult{Success: true, Message: message, ResultID: resultID.String()}, nil
}

// EmbedCandidate re-runs embedding against the candidate's latest parsed résumé
func (o *Orchestrator) EmbedCandidate(ctx context.Context, req *types.EmbedRequest, reporter ProgressReporter) (*types.EmbedResult, error) {
	if err := req.Validate(); err != nil {
		return &types.EmbedResult{Success: false, Message: "invalid request: " + err.Error()}, fmt.Errorf("invalid request: %w", err)
	}
	candidateID, err := uuid.Parse(req.CandidateID)
	if err != nil {
		return &types.EmbedResult{Success: false, Message: err.Error()}, err
	}
	orgID, err := uuid.Parse(req.OrgID)
	if err != nil {
		return &types.EmbedResult{Success: false, Message: err.Error()}, err
	}

	r := o.newRun(orgID, candidateID, reporter)
	// A standalone embed trusts the store for the persisted résumé
	r.completed[StagePersisting] = true

	var result *types.EmbedResult
	err = r.stage(ctx, StageEmbeddingGeneration, func(ctx context.Context) (string, error) {
		var err error
		result, err = o.deps.Embeddings.Generate(ctx, orgID, candidateID)
		if err != nil {
			return "", err
		}
		return result.Message, nil
	})
	if err != nil {
		if result == nil {
			result = &types.EmbedResult{Success: false, Message: err.Error()}
		}
		return result, err
	}
	return result, nil
}

type run struct {
	o           *Orchestrator
	orgID       uuid.UUID
	candidateID uuid.UUID
	reporter    ProgressReporter
	log         *zap.Logger
	completed   map[Stage]bool
	warnings    []string
}

func (o *Orchestrator) newRun(orgID, candidateID uuid.UUID, reporter ProgressReporter) *run {
	log := o.logger.With(zap.String("candidate_id", candidateID.String()), zap.String("org_id", orgID.String()))
	reporters := MultiReporter{NewLogReporter(log)}
	if reporter != nil {
		reporters = append(reporters, reporter)
	}
	return &run{
		o:           o,
		orgID:       orgID,
		candidateID: candidateID,
		reporter:    reporters,
		log:         log,
		completed:   make(map[Stage]bool),
	}
}

func (r *run) execute(ctx context.Context, resumeURL string) (uuid.UUID, error) {
	deps := r.o.deps

	var data []byte
	if err := r.stage(ctx, StageDownloading, func(ctx context.Context) (string, error) {
		ctx, cancel := withTimeout(ctx, r.o.timeouts.Download)
		defer cancel()

		var err error
		data, err = deps.Downloader.Download(ctx, resumeURL)
		return fmt.Sprintf("downloaded %d bytes", len(data)), err
	}); err != nil {
		return uuid.Nil, err
	}

	var text string
	if err := r.stage(ctx, StageExtracting, func(ctx context.Context) (string, error) {
		var err error
		text, err = deps.Extractor.Extract(ctx, data)
		return fmt.Sprintf("extracted %d characters", len(text)), err
	}); err != nil {
		return uuid.Nil, err
	}

	var parsed *types.ParsedResume
	if err := r.stage(ctx, StageStructuring, func(ctx context.Context) (string, error) {
		ctx, cancel := withTimeout(ctx, r.o.timeouts.Completion)
		defer cancel()

		var err error
		parsed, err = deps.Structurer.Structure(ctx, text)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("structured %d experience entries", len(parsed.Experience)), nil
	}); err != nil {
		return uuid.Nil, err
	}

	var candidate *types.Candidate
	var resultID uuid.UUID
	if err := r.stage(ctx, StagePersisting, func(ctx context.Context) (string, error) {
		var err error
		candidate, err = deps.Store.GetCandidate(ctx, r.orgID, r.candidateID)
		if err != nil {
			return "", err
		}
		resultID, err = deps.Store.InsertResult(ctx, &db.ResultInput{
			JobType:     types.ResultJobTypeResumeParse,
			CandidateID: r.candidateID,
			OrgID:       r.orgID,
			Result:      parsed,
		})
		return "stored result " + resultID.String(), err
	}); err != nil {
		return uuid.Nil, err
	}

	if err := r.stage(ctx, StageUpdatingCandidate, func(ctx context.Context) (string, error) {
		if parsed.Email == "" {
			return "no email extracted", nil
		}
		updated, err := deps.Store.SetEmailIfEmpty(ctx, r.orgID, r.candidateID, parsed.Email)
		if err != nil {
			return "", err
		}
		if !updated {
			return "kept existing email", nil
		}
		return "set email", nil
	}); err != nil {
		return uuid.Nil, err
	}

	// Everything below is best effort
	if err := r.stage(ctx, StageEnqueueingFollowups, func(ctx context.Context) (string, error) {
		jobs := make([]db.JobInput, 0, len(types.FollowupJobTypes))
		for _, jt := range types.FollowupJobTypes {
			jobs = append(jobs, db.JobInput{
				JobType:     jt,
				CandidateID: &r.candidateID,
				JobID:       candidate.JobID,
				OrgID:       r.orgID,
			})
		}
		ids, err := deps.Store.EnqueueJobs(ctx, jobs)
		return fmt.Sprintf("enqueued %d follow-up jobs", len(ids)), err
	}); err != nil {
		metrics.IncreaseFollowupFailures()
		r.warnings = append(r.warnings, err.Error())
	}

	if err := r.stage(ctx, StageEmbeddingGeneration, func(ctx context.Context) (string, error) {
		result, err := deps.Embeddings.Generate(ctx, r.orgID, r.candidateID)
		if err != nil {
			return "", err
		}
		return result.Message, nil
	}); err != nil {
		r.warnings = append(r.warnings, err.Error())
	}

	return resultID, nil
}

// stage runs fn as the given stage, recording progress, timing and failures.
// Failures come back as *StageError whatever the stage's fatality; callers decide.
func (r *run) stage(ctx context.Context, stage Stage, fn func(ctx context.Context) (string, error)) error {
	if err := ValidateDependencies(stage, r.completed); err != nil {
		r.reporter.OnStageFailure(stage, err)
		return &StageError{Stage: stage, Err: err}
	}

	r.reporter.OnStageStart(stage)
	start := time.Now()
	message, err := fn(ctx)
	metrics.ObserveStageDuration(string(stage), time.Since(start))

	if err != nil {
		metrics.IncreaseStageFailures(string(stage))
		r.reporter.OnStageFailure(stage, err)
		return &StageError{Stage: stage, Err: err}
	}

	r.completed[stage] = true
	r.reporter.OnStageSuccess(stage, message)
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
