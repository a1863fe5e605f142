package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-pipeline/internal/db"
	"github.com/jonathan/candidate-pipeline/internal/db/dbtest"
	"github.com/jonathan/candidate-pipeline/internal/embedding"
	"github.com/jonathan/candidate-pipeline/internal/llm"
	"github.com/jonathan/candidate-pipeline/internal/pipeline"
	"github.com/jonathan/candidate-pipeline/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	mu       sync.Mutex
	requests []*types.ProcessRequest
	err      error
	delay    time.Duration

	running    int32
	maxRunning int32
}

func (f *fakeProcessor) ProcessCandidate(_ context.Context, req *types.ProcessRequest, _ pipeline.ProgressReporter) (*types.ProcessResult, error) {
	n := atomic.AddInt32(&f.running, 1)
	defer atomic.AddInt32(&f.running, -1)
	for {
		prev := atomic.LoadInt32(&f.maxRunning)
		if n <= prev || atomic.CompareAndSwapInt32(&f.maxRunning, prev, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.err != nil {
		return &types.ProcessResult{Success: false, Message: f.err.Error()}, f.err
	}
	return &types.ProcessResult{Success: true, Message: "résumé processed"}, nil
}

type fakeGenerator struct {
	mu     sync.Mutex
	calls  []uuid.UUID
	jobIDs []uuid.UUID
	err    error
}

func (f *fakeGenerator) GenerateForJob(_ context.Context, jobID, _, candidateID uuid.UUID) (*types.EmbedResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, candidateID)
	f.jobIDs = append(f.jobIDs, jobID)
	if f.err != nil {
		return nil, f.err
	}
	return &types.EmbedResult{Success: true, Dimensions: 3}, nil
}

func enqueue(t *testing.T, store *dbtest.Memory, jobType types.JobType, c *types.Candidate) uuid.UUID {
	t.Helper()
	var candidateID *uuid.UUID
	if c != nil {
		candidateID = &c.ID
	}
	orgID := uuid.New()
	if c != nil {
		orgID = c.OrgID
	}
	ids, err := store.EnqueueJobs(context.Background(), []db.JobInput{{JobType: jobType, CandidateID: candidateID, OrgID: orgID}})
	require.NoError(t, err)
	return ids[0]
}

func jobByID(t *testing.T, store *dbtest.Memory, id uuid.UUID) types.WorkflowJob {
	t.Helper()
	for _, j := range store.Jobs {
		if j.ID == id {
			return j
		}
	}
	t.Fatalf("job %s not found", id)
	return types.WorkflowJob{}
}

func TestPoll_ParseResumeJob(t *testing.T) {
	store := dbtest.NewMemory()
	c := store.AddCandidate(uuid.New(), nil, "")
	jobID := enqueue(t, store, types.JobTypeParseResume, c)

	processor := &fakeProcessor{}
	w := New(store, processor, &fakeGenerator{}, Options{}, nil)

	n, err := w.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, processor.requests, 1)
	assert.Equal(t, c.ResumeURL, processor.requests[0].ResumeURL)
	assert.Equal(t, c.ID.String(), processor.requests[0].CandidateID)
	assert.Equal(t, c.OrgID.String(), processor.requests[0].OrgID)

	assert.Equal(t, types.JobStatusCompleted, jobByID(t, store, jobID).Status)
}

func TestPoll_ParseResumeFailureMarksJobFailed(t *testing.T) {
	store := dbtest.NewMemory()
	c := store.AddCandidate(uuid.New(), nil, "")
	jobID := enqueue(t, store, types.JobTypeParseResume, c)

	w := New(store, &fakeProcessor{err: errors.New("downloading failed: HTTP status 404")}, &fakeGenerator{}, Options{}, nil)

	_, err := w.Poll(context.Background())
	require.NoError(t, err)

	job := jobByID(t, store, jobID)
	assert.Equal(t, types.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "404")
}

func TestPoll_MissingCandidate(t *testing.T) {
	store := dbtest.NewMemory()
	c := store.AddCandidate(uuid.New(), nil, "")
	jobID := enqueue(t, store, types.JobTypeParseResume, c)
	delete(store.Candidates, c.ID)

	processor := &fakeProcessor{}
	w := New(store, processor, &fakeGenerator{}, Options{}, nil)

	_, err := w.Poll(context.Background())
	require.NoError(t, err)

	assert.Empty(t, processor.requests)
	job := jobByID(t, store, jobID)
	assert.Equal(t, types.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "not found")
}

func TestPoll_EmbedResumeJob(t *testing.T) {
	store := dbtest.NewMemory()
	c := store.AddCandidate(uuid.New(), nil, "")
	jobID := enqueue(t, store, types.JobTypeEmbedResume, c)

	generator := &fakeGenerator{}
	w := New(store, &fakeProcessor{}, generator, Options{}, nil)

	n, err := w.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []uuid.UUID{c.ID}, generator.calls)
	assert.Equal(t, []uuid.UUID{jobID}, generator.jobIDs)
	assert.Equal(t, types.JobStatusCompleted, jobByID(t, store, jobID).Status)
}

func TestPoll_EmbedFailure(t *testing.T) {
	store := dbtest.NewMemory()
	c := store.AddCandidate(uuid.New(), nil, "")
	jobID := enqueue(t, store, types.JobTypeEmbedResume, c)

	w := New(store, &fakeProcessor{}, &fakeGenerator{err: errors.New("embedding call failed with status 500")}, Options{}, nil)

	_, err := w.Poll(context.Background())
	require.NoError(t, err)

	job := jobByID(t, store, jobID)
	assert.Equal(t, types.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "500")
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, &llm.UpstreamServiceError{Service: llm.ServiceEmbedding, StatusCode: 500, Message: "server error"}
}

func (failingEmbedder) EmbeddingModel() string { return "fake-embed" }

func TestPoll_EmbedFailureLeavesQueuedDuplicatePending(t *testing.T) {
	store := dbtest.NewMemory()
	c := store.AddCandidate(uuid.New(), nil, "")
	_, err := store.InsertResult(context.Background(), &db.ResultInput{
		JobType:     types.ResultJobTypeResumeParse,
		CandidateID: c.ID,
		OrgID:       c.OrgID,
		Result: &types.ParsedResume{
			Name:       "Ada",
			Email:      "ada@example.com",
			Experience: []types.Experience{{Role: "Analyst", Company: "AE", Type: types.EmploymentFullTime}},
			URLs:       []string{},
		},
	})
	require.NoError(t, err)
	first := enqueue(t, store, types.JobTypeEmbedResume, c)
	second := enqueue(t, store, types.JobTypeEmbedResume, c)

	generator := embedding.NewGenerator(store, failingEmbedder{}, 0, nil)
	w := New(store, &fakeProcessor{}, generator, Options{BatchSize: 1}, nil)

	n, err := w.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	claimed := jobByID(t, store, first)
	assert.Equal(t, types.JobStatusFailed, claimed.Status)
	assert.Contains(t, claimed.Error, "server error")

	queued := jobByID(t, store, second)
	assert.Equal(t, types.JobStatusPending, queued.Status)
	assert.Empty(t, queued.Error)

	require.Len(t, store.EmbeddingResults, 1)
	assert.Equal(t, types.EmbeddingStatusError, store.EmbeddingResults[0].Status)
}

func TestPoll_JobWithoutCandidate(t *testing.T) {
	store := dbtest.NewMemory()
	jobID := enqueue(t, store, types.JobTypeEmbedResume, nil)

	generator := &fakeGenerator{}
	w := New(store, &fakeProcessor{}, generator, Options{}, nil)

	_, err := w.Poll(context.Background())
	require.NoError(t, err)

	assert.Empty(t, generator.calls)
	job := jobByID(t, store, jobID)
	assert.Equal(t, types.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "no candidate")
}

func TestPoll_IgnoresOtherJobTypes(t *testing.T) {
	store := dbtest.NewMemory()
	c := store.AddCandidate(uuid.New(), nil, "")
	jobID := enqueue(t, store, types.JobTypeInterviewKit, c)

	w := New(store, &fakeProcessor{}, &fakeGenerator{}, Options{}, nil)

	n, err := w.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, types.JobStatusPending, jobByID(t, store, jobID).Status)
}

func TestPoll_ClaimError(t *testing.T) {
	store := dbtest.NewMemory()
	store.Errors["ClaimPendingJobs"] = errors.New("connection refused")

	w := New(store, &fakeProcessor{}, &fakeGenerator{}, Options{}, nil)

	_, err := w.Poll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to claim parse_resume jobs")
}

func TestPoll_BoundedConcurrency(t *testing.T) {
	store := dbtest.NewMemory()
	for i := 0; i < 6; i++ {
		c := store.AddCandidate(uuid.New(), nil, "")
		enqueue(t, store, types.JobTypeParseResume, c)
	}

	processor := &fakeProcessor{delay: 20 * time.Millisecond}
	w := New(store, processor, &fakeGenerator{}, Options{Concurrency: 2, BatchSize: 10}, nil)

	n, err := w.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Len(t, processor.requests, 6)
	assert.LessOrEqual(t, atomic.LoadInt32(&processor.maxRunning), int32(2))
}

func TestPoll_BatchSize(t *testing.T) {
	store := dbtest.NewMemory()
	for i := 0; i < 3; i++ {
		c := store.AddCandidate(uuid.New(), nil, "")
		enqueue(t, store, types.JobTypeParseResume, c)
	}

	w := New(store, &fakeProcessor{}, &fakeGenerator{}, Options{BatchSize: 2}, nil)

	n, err := w.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = w.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRun_StopsOnCancel(t *testing.T) {
	store := dbtest.NewMemory()
	c := store.AddCandidate(uuid.New(), nil, "")
	jobID := enqueue(t, store, types.JobTypeParseResume, c)

	w := New(store, &fakeProcessor{}, &fakeGenerator{}, Options{PollInterval: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	require.NoError(t, w.Run(ctx))
	assert.Equal(t, types.JobStatusCompleted, jobByID(t, store, jobID).Status)
}

func TestNew_Defaults(t *testing.T) {
	w := New(dbtest.NewMemory(), &fakeProcessor{}, &fakeGenerator{}, Options{}, nil)
	assert.Equal(t, DefaultOptions(), w.opts)
}
