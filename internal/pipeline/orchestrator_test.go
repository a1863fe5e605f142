package pipeline

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-pipeline/internal/db/dbtest"
	"github.com/jonathan/candidate-pipeline/internal/embedding"
	"github.com/jonathan/candidate-pipeline/internal/fetch"
	"github.com/jonathan/candidate-pipeline/internal/ingestion"
	"github.com/jonathan/candidate-pipeline/internal/llm"
	"github.com/jonathan/candidate-pipeline/internal/parsing"
	"github.com/jonathan/candidate-pipeline/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDownloader struct {
	data  []byte
	err   error
	delay time.Duration
	calls int
}

func (f *fakeDownloader) Download(ctx context.Context, _ string) ([]byte, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, &fetch.DownloadError{Message: "cancelled", Cause: ctx.Err()}
		}
	}
	return f.data, f.err
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte) (string, error) {
	return f.text, f.err
}

type fakeStructurer struct {
	resume *types.ParsedResume
	err    error
	calls  int
}

func (f *fakeStructurer) Structure(_ context.Context, _ string) (*types.ParsedResume, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	copied := *f.resume
	return &copied, nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return f.vector, f.err
}

func (f *fakeEmbedder) EmbeddingModel() string { return "fake-embed" }

type recorder struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (r *recorder) add(e ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) trace() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, string(e.Stage)+":"+e.Status)
	}
	return out
}

type harness struct {
	store      *dbtest.Memory
	downloader *fakeDownloader
	extractor  *fakeExtractor
	structurer *fakeStructurer
	embedder   *fakeEmbedder
	orch       *Orchestrator
	candidate  *types.Candidate
	jobID      uuid.UUID
}

func newHarness(t *testing.T, existingEmail string) *harness {
	t.Helper()

	h := &harness{
		store:      dbtest.NewMemory(),
		downloader: &fakeDownloader{data: []byte("%PDF-1.4 ...")},
		extractor:  &fakeExtractor{text: "Ada Lovelace\nada@example.com\nAnalyst at Analytical Engines"},
		structurer: &fakeStructurer{resume: &types.ParsedResume{
			Name:  "Ada Lovelace",
			Email: "ada@example.com",
			Experience: []types.Experience{
				{Role: "Analyst", Company: "Analytical Engines", StartDate: "1842", EndDate: "1843", Type: types.EmploymentFullTime},
			},
			URLs: []string{"https://github.com/ada"},
		}},
		embedder: &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}},
		jobID:    uuid.New(),
	}
	h.candidate = h.store.AddCandidate(uuid.New(), &h.jobID, existingEmail)

	generator := embedding.NewGenerator(h.store, h.embedder, time.Second, nil)
	h.orch = NewOrchestrator(Dependencies{
		Downloader: h.downloader,
		Extractor:  h.extractor,
		Structurer: h.structurer,
		Store:      h.store,
		Embeddings: generator,
	}, Timeouts{Download: time.Second, Completion: time.Second}, nil)
	return h
}

func (h *harness) request() *types.ProcessRequest {
	return &types.ProcessRequest{
		ResumeURL:   "https://files.example.com/ada.pdf",
		CandidateID: h.candidate.ID.String(),
		OrgID:       h.candidate.OrgID.String(),
	}
}

func (h *harness) reload(t *testing.T) *types.Candidate {
	t.Helper()
	c, err := h.store.GetCandidate(context.Background(), h.candidate.OrgID, h.candidate.ID)
	require.NoError(t, err)
	return c
}

func TestProcessCandidate_FreshCandidate(t *testing.T) {
	h := newHarness(t, "")

	result, err := h.orch.ProcessCandidate(context.Background(), h.request(), nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.ResultID)

	c := h.reload(t)
	assert.Equal(t, "ada@example.com", c.Email)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, c.Embedding)

	jobs, err := h.store.ListJobsForCandidate(context.Background(), c.OrgID, c.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 4)
	var got []types.JobType
	for _, j := range jobs {
		got = append(got, j.JobType)
		assert.Equal(t, types.JobStatusPending, j.Status)
		require.NotNil(t, j.JobID)
		assert.Equal(t, h.jobID, *j.JobID)
	}
	assert.ElementsMatch(t, types.FollowupJobTypes, got)

	require.Len(t, h.store.EmbeddingResults, 1)
	assert.Equal(t, types.EmbeddingStatusSuccess, h.store.EmbeddingResults[0].Status)
	assert.Equal(t, 3, h.store.EmbeddingResults[0].Dimensions)
}

func TestProcessCandidate_ExistingEmailWins(t *testing.T) {
	h := newHarness(t, "a@x.com")
	h.structurer.resume.Email = "b@y.com"

	result, err := h.orch.ProcessCandidate(context.Background(), h.request(), nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "a@x.com", h.reload(t).Email)
}

func TestProcessCandidate_DownloadNotFound(t *testing.T) {
	h := newHarness(t, "")
	h.downloader.err = &fetch.DownloadError{URL: "https://files.example.com/ada.pdf", StatusCode: http.StatusNotFound, Message: "HTTP status 404"}

	result, err := h.orch.ProcessCandidate(context.Background(), h.request(), nil)
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "404")

	var dlErr *fetch.DownloadError
	require.ErrorAs(t, err, &dlErr)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageDownloading, stageErr.Stage)

	assert.Equal(t, 0, h.store.ResultCount(h.candidate.ID))
	c := h.reload(t)
	assert.Empty(t, c.Email)
	assert.Nil(t, c.Embedding)
	assert.Equal(t, h.candidate.UpdatedAt, c.UpdatedAt)
	assert.Empty(t, h.store.Jobs)
	assert.Equal(t, 0, h.structurer.calls)
}

func TestProcessCandidate_EmbeddingFailureIsNonFatal(t *testing.T) {
	h := newHarness(t, "")
	h.embedder.err = &llm.UpstreamServiceError{Service: llm.ServiceEmbedding, StatusCode: 500, Message: "internal error"}

	result, err := h.orch.ProcessCandidate(context.Background(), h.request(), nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Message, "warnings")

	c := h.reload(t)
	assert.Equal(t, "ada@example.com", c.Email)
	assert.Nil(t, c.Embedding)

	require.Len(t, h.store.EmbeddingResults, 1)
	assert.Equal(t, types.EmbeddingStatusError, h.store.EmbeddingResults[0].Status)

	counts := h.store.JobsByStatus(c.ID)
	assert.Equal(t, 1, counts[types.JobStatusFailed])
	assert.Equal(t, 3, counts[types.JobStatusPending])
}

func TestProcessCandidate_FatalStagesLeaveNoCandidateMutation(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
		stage Stage
	}{
		{"extraction", func(h *harness) {
			h.extractor.err = &ingestion.ExtractionError{Message: "not a PDF"}
		}, StageExtracting},
		{"structuring upstream", func(h *harness) {
			h.structurer.err = &llm.UpstreamServiceError{Service: llm.ServiceCompletion, StatusCode: 429, Message: "rate limited"}
		}, StageStructuring},
		{"structuring schema", func(h *harness) {
			h.structurer.err = &parsing.SchemaValidationError{Message: "missing fields", Fields: []string{"email"}}
		}, StageStructuring},
		{"persisting", func(h *harness) {
			h.store.Errors["InsertResult"] = errors.New("connection reset")
		}, StagePersisting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "")
			tt.setup(h)

			result, err := h.orch.ProcessCandidate(context.Background(), h.request(), nil)
			require.Error(t, err)
			assert.False(t, result.Success)

			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, tt.stage, stageErr.Stage)

			c := h.reload(t)
			assert.Empty(t, c.Email)
			assert.Nil(t, c.Embedding)
			assert.Equal(t, 0, h.store.ResultCount(c.ID))
			assert.Empty(t, h.store.Jobs)
			assert.Empty(t, h.store.EmbeddingResults)
		})
	}
}

func TestProcessCandidate_MissingCandidateIsFatal(t *testing.T) {
	h := newHarness(t, "")
	delete(h.store.Candidates, h.candidate.ID)

	result, err := h.orch.ProcessCandidate(context.Background(), h.request(), nil)
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, err.Error(), "not found")
	assert.Equal(t, 0, h.store.ResultCount(h.candidate.ID))
}

func TestProcessCandidate_CandidateUpdateFailureIsFatal(t *testing.T) {
	h := newHarness(t, "")
	h.store.Errors["SetEmailIfEmpty"] = errors.New("deadlock detected")

	result, err := h.orch.ProcessCandidate(context.Background(), h.request(), nil)
	require.Error(t, err)
	assert.False(t, result.Success)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageUpdatingCandidate, stageErr.Stage)
	assert.Empty(t, h.store.Jobs)
	assert.Nil(t, h.reload(t).Embedding)
}

func TestProcessCandidate_FanoutFailureIsNonFatal(t *testing.T) {
	h := newHarness(t, "")
	h.store.Errors["EnqueueJobs"] = errors.New("queue table locked")

	result, err := h.orch.ProcessCandidate(context.Background(), h.request(), nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Message, "queue table locked")

	c := h.reload(t)
	assert.Equal(t, "ada@example.com", c.Email)
	// Embedding still runs from the persisted result
	assert.NotNil(t, c.Embedding)
}

func TestProcessCandidate_RerunIsIdempotent(t *testing.T) {
	h := newHarness(t, "")

	_, err := h.orch.ProcessCandidate(context.Background(), h.request(), nil)
	require.NoError(t, err)
	firstUpdate := h.reload(t)

	h.structurer.resume.Email = "changed@example.com"
	h.structurer.resume.Name = "Augusta Ada King"
	h.embedder.vector = []float32{0.9, 0.8}

	_, err = h.orch.ProcessCandidate(context.Background(), h.request(), nil)
	require.NoError(t, err)

	c := h.reload(t)
	assert.Equal(t, 2, h.store.ResultCount(c.ID))
	assert.Equal(t, firstUpdate.Email, c.Email)
	assert.Equal(t, []float32{0.9, 0.8}, c.Embedding)

	parsed, err := h.store.LatestParsedResume(context.Background(), c.OrgID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Augusta Ada King", parsed.Name)
}

func TestProcessCandidate_EmptyExtractedEmailSkipsUpdate(t *testing.T) {
	h := newHarness(t, "")
	h.structurer.resume.Email = ""

	result, err := h.orch.ProcessCandidate(context.Background(), h.request(), nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, h.reload(t).Email)
}

func TestProcessCandidate_InvalidRequest(t *testing.T) {
	h := newHarness(t, "")

	tests := []struct {
		name string
		req  *types.ProcessRequest
	}{
		{"missing url", &types.ProcessRequest{CandidateID: h.candidate.ID.String(), OrgID: h.candidate.OrgID.String()}},
		{"bad candidate id", &types.ProcessRequest{ResumeURL: "https://x.example/r.pdf", CandidateID: "nope", OrgID: h.candidate.OrgID.String()}},
		{"missing org", &types.ProcessRequest{ResumeURL: "https://x.example/r.pdf", CandidateID: h.candidate.ID.String()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.orch.ProcessCandidate(context.Background(), tt.req, nil)
			require.Error(t, err)
			assert.False(t, result.Success)
			assert.Contains(t, result.Message, "invalid request")
		})
	}
	assert.Equal(t, 0, h.downloader.calls)
}

func TestProcessCandidate_DownloadTimeout(t *testing.T) {
	h := newHarness(t, "")
	h.downloader.delay = time.Second
	h.orch.timeouts.Download = 10 * time.Millisecond

	result, err := h.orch.ProcessCandidate(context.Background(), h.request(), nil)
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProcessCandidate_ReportsProgressInOrder(t *testing.T) {
	h := newHarness(t, "")
	rec := &recorder{}

	_, err := h.orch.ProcessCandidate(context.Background(), h.request(), NewCallbackReporter(h.candidate.ID, rec.add))
	require.NoError(t, err)

	var want []string
	for _, s := range StageOrder {
		want = append(want, string(s)+":"+StatusStarted, string(s)+":"+StatusSucceeded)
	}
	want = append(want, string(StageDone)+":"+StatusSucceeded)
	assert.Equal(t, want, rec.trace())

	for _, e := range rec.events {
		assert.Equal(t, h.candidate.ID.String(), e.CandidateID)
	}
}

func TestProcessCandidate_ReportsFailure(t *testing.T) {
	h := newHarness(t, "")
	h.extractor.err = &ingestion.ExtractionError{Message: "no text"}
	rec := &recorder{}

	_, err := h.orch.ProcessCandidate(context.Background(), h.request(), NewCallbackReporter(uuid.Nil, rec.add))
	require.Error(t, err)

	assert.Equal(t, []string{
		"downloading:started", "downloading:succeeded",
		"extracting:started", "extracting:failed",
		"failed:failed",
	}, rec.trace())
	assert.True(t, rec.events[3].Fatal)
}

func TestEmbedCandidate(t *testing.T) {
	h := newHarness(t, "")
	_, err := h.orch.ProcessCandidate(context.Background(), h.request(), nil)
	require.NoError(t, err)

	h.embedder.vector = []float32{1, 2, 3, 4}
	result, err := h.orch.EmbedCandidate(context.Background(), &types.EmbedRequest{
		CandidateID: h.candidate.ID.String(),
		OrgID:       h.candidate.OrgID.String(),
	}, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 4, result.Dimensions)
	assert.Equal(t, []float32{1, 2, 3, 4}, h.reload(t).Embedding)
}

func TestEmbedCandidate_NoParsedResume(t *testing.T) {
	h := newHarness(t, "")

	result, err := h.orch.EmbedCandidate(context.Background(), &types.EmbedRequest{
		CandidateID: h.candidate.ID.String(),
		OrgID:       h.candidate.OrgID.String(),
	}, nil)
	require.Error(t, err)
	assert.False(t, result.Success)

	var noParse *embedding.NoParsedResumeError
	require.ErrorAs(t, err, &noParse)
}

func TestEmbedCandidate_InvalidRequest(t *testing.T) {
	h := newHarness(t, "")
	result, err := h.orch.EmbedCandidate(context.Background(), &types.EmbedRequest{CandidateID: "x"}, nil)
	require.Error(t, err)
	assert.False(t, result.Success)
}
