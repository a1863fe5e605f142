package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-pipeline/internal/db"
	"github.com/jonathan/candidate-pipeline/internal/db/dbtest"
	"github.com/jonathan/candidate-pipeline/internal/llm"
	"github.com/jonathan/candidate-pipeline/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	inputs []string
	delay  time.Duration
}

func (f *fakeEmbedder) Embed(ctx context.Context, input string) ([]float32, error) {
	f.inputs = append(f.inputs, input)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.vector, f.err
}

func (f *fakeEmbedder) EmbeddingModel() string { return "fake-embed" }

func seedParsed(t *testing.T, store *dbtest.Memory, c *types.Candidate, name string) {
	t.Helper()
	_, err := store.InsertResult(context.Background(), &db.ResultInput{
		JobType:     types.ResultJobTypeResumeParse,
		CandidateID: c.ID,
		OrgID:       c.OrgID,
		Result: &types.ParsedResume{
			Name:       name,
			Email:      "ada@example.com",
			Experience: []types.Experience{{Role: "Analyst", Company: "AE", Type: types.EmploymentFullTime}},
			URLs:       []string{},
		},
	})
	require.NoError(t, err)
}

func enqueueEmbedJob(t *testing.T, store *dbtest.Memory, c *types.Candidate) {
	t.Helper()
	_, err := store.EnqueueJobs(context.Background(), []db.JobInput{
		{JobType: types.JobTypeEmbedResume, CandidateID: &c.ID, JobID: c.JobID, OrgID: c.OrgID},
	})
	require.NoError(t, err)
}

func TestGenerate_Success(t *testing.T) {
	store := dbtest.NewMemory()
	c := store.AddCandidate(uuid.New(), nil, "")
	seedParsed(t, store, c, "Ada Lovelace")
	enqueueEmbedJob(t, store, c)

	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	g := NewGenerator(store, embedder, time.Second, nil)

	result, err := g.Generate(context.Background(), c.OrgID, c.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Dimensions)

	stored, err := store.GetCandidate(context.Background(), c.OrgID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, stored.Embedding)

	require.Len(t, store.EmbeddingResults, 1)
	assert.Equal(t, types.EmbeddingStatusSuccess, store.EmbeddingResults[0].Status)
	assert.Equal(t, 3, store.EmbeddingResults[0].Dimensions)
	assert.Equal(t, "fake-embed", store.EmbeddingResults[0].Model)

	require.Len(t, embedder.inputs, 1)
	assert.Contains(t, embedder.inputs[0], "Name: Ada Lovelace")

	// Success leaves the queued job for the worker
	assert.Equal(t, 1, store.JobsByStatus(c.ID)[types.JobStatusPending])
}

func TestGenerate_UsesLatestParse(t *testing.T) {
	store := dbtest.NewMemory()
	c := store.AddCandidate(uuid.New(), nil, "")
	seedParsed(t, store, c, "Old Name")
	seedParsed(t, store, c, "New Name")

	embedder := &fakeEmbedder{vector: []float32{1}}
	_, err := NewGenerator(store, embedder, 0, nil).Generate(context.Background(), c.OrgID, c.ID)
	require.NoError(t, err)

	require.Len(t, embedder.inputs, 1)
	assert.Contains(t, embedder.inputs[0], "New Name")
	assert.NotContains(t, embedder.inputs[0], "Old Name")
}

func TestGenerate_Idempotent(t *testing.T) {
	store := dbtest.NewMemory()
	c := store.AddCandidate(uuid.New(), nil, "")
	seedParsed(t, store, c, "Ada")

	embedder := &fakeEmbedder{vector: []float32{0.5, 0.5}}
	g := NewGenerator(store, embedder, 0, nil)

	_, err := g.Generate(context.Background(), c.OrgID, c.ID)
	require.NoError(t, err)
	first, _ := store.GetCandidate(context.Background(), c.OrgID, c.ID)

	_, err = g.Generate(context.Background(), c.OrgID, c.ID)
	require.NoError(t, err)
	second, _ := store.GetCandidate(context.Background(), c.OrgID, c.ID)

	assert.Equal(t, first.Embedding, second.Embedding)
	assert.Equal(t, embedder.inputs[0], embedder.inputs[1])
}

func TestGenerate_NoParsedResume(t *testing.T) {
	store := dbtest.NewMemory()
	c := store.AddCandidate(uuid.New(), nil, "")
	enqueueEmbedJob(t, store, c)

	embedder := &fakeEmbedder{vector: []float32{1}}
	result, err := NewGenerator(store, embedder, 0, nil).Generate(context.Background(), c.OrgID, c.ID)
	require.Error(t, err)
	assert.False(t, result.Success)

	var noParse *NoParsedResumeError
	require.ErrorAs(t, err, &noParse)
	assert.Equal(t, c.ID, noParse.CandidateID)
	assert.ErrorIs(t, err, db.ErrNotFound)

	assert.Empty(t, embedder.inputs)
	require.Len(t, store.EmbeddingResults, 1)
	assert.Equal(t, types.EmbeddingStatusError, store.EmbeddingResults[0].Status)
	assert.Equal(t, 1, store.JobsByStatus(c.ID)[types.JobStatusFailed])
}

func TestGenerate_UpstreamFailure(t *testing.T) {
	store := dbtest.NewMemory()
	c := store.AddCandidate(uuid.New(), nil, "")
	seedParsed(t, store, c, "Ada")
	enqueueEmbedJob(t, store, c)

	upstream := &llm.UpstreamServiceError{Service: llm.ServiceEmbedding, StatusCode: 500, Message: "server error"}
	result, err := NewGenerator(store, &fakeEmbedder{err: upstream}, 0, nil).Generate(context.Background(), c.OrgID, c.ID)
	require.Error(t, err)
	assert.False(t, result.Success)

	var got *llm.UpstreamServiceError
	require.ErrorAs(t, err, &got)

	stored, _ := store.GetCandidate(context.Background(), c.OrgID, c.ID)
	assert.Nil(t, stored.Embedding)

	require.Len(t, store.EmbeddingResults, 1)
	assert.Equal(t, types.EmbeddingStatusError, store.EmbeddingResults[0].Status)
	assert.Contains(t, store.EmbeddingResults[0].ErrorMessage, "server error")

	jobs, _ := store.ListJobsForCandidate(context.Background(), c.OrgID, c.ID)
	require.Len(t, jobs, 1)
	assert.Equal(t, types.JobStatusFailed, jobs[0].Status)
	assert.Contains(t, jobs[0].Error, "server error")
}

func TestGenerateForJob_FailureLeavesQueuedJobsAlone(t *testing.T) {
	store := dbtest.NewMemory()
	c := store.AddCandidate(uuid.New(), nil, "")
	seedParsed(t, store, c, "Ada")
	enqueueEmbedJob(t, store, c)
	enqueueEmbedJob(t, store, c)

	upstream := &llm.UpstreamServiceError{Service: llm.ServiceEmbedding, StatusCode: 500, Message: "server error"}
	result, err := NewGenerator(store, &fakeEmbedder{err: upstream}, 0, nil).
		GenerateForJob(context.Background(), store.Jobs[0].ID, c.OrgID, c.ID)
	require.Error(t, err)
	assert.False(t, result.Success)

	require.Len(t, store.EmbeddingResults, 1)
	assert.Equal(t, types.EmbeddingStatusError, store.EmbeddingResults[0].Status)

	jobs, _ := store.ListJobsForCandidate(context.Background(), c.OrgID, c.ID)
	require.Len(t, jobs, 2)
	for _, j := range jobs {
		assert.Equal(t, types.JobStatusPending, j.Status)
		assert.Empty(t, j.Error)
	}
}

func TestGenerateForJob_Success(t *testing.T) {
	store := dbtest.NewMemory()
	c := store.AddCandidate(uuid.New(), nil, "")
	seedParsed(t, store, c, "Ada")

	result, err := NewGenerator(store, &fakeEmbedder{vector: []float32{1, 2, 3}}, 0, nil).
		GenerateForJob(context.Background(), uuid.New(), c.OrgID, c.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Dimensions)

	stored, _ := store.GetCandidate(context.Background(), c.OrgID, c.ID)
	assert.Equal(t, []float32{1, 2, 3}, stored.Embedding)
}

func TestGenerate_EmptyVector(t *testing.T) {
	store := dbtest.NewMemory()
	c := store.AddCandidate(uuid.New(), nil, "")
	seedParsed(t, store, c, "Ada")

	_, err := NewGenerator(store, &fakeEmbedder{vector: nil}, 0, nil).Generate(context.Background(), c.OrgID, c.ID)
	var got *llm.UpstreamServiceError
	require.ErrorAs(t, err, &got)
	assert.Contains(t, err.Error(), "no vector")
}

func TestGenerate_Timeout(t *testing.T) {
	store := dbtest.NewMemory()
	c := store.AddCandidate(uuid.New(), nil, "")
	seedParsed(t, store, c, "Ada")

	embedder := &fakeEmbedder{vector: []float32{1}, delay: time.Second}
	_, err := NewGenerator(store, embedder, 10*time.Millisecond, nil).Generate(context.Background(), c.OrgID, c.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerate_BookkeepingFailuresAreSwallowed(t *testing.T) {
	store := dbtest.NewMemory()
	c := store.AddCandidate(uuid.New(), nil, "")
	seedParsed(t, store, c, "Ada")
	store.Errors["InsertEmbeddingResult"] = errors.New("disk full")
	store.Errors["FailPendingJob"] = errors.New("disk full")

	result, err := NewGenerator(store, &fakeEmbedder{vector: []float32{1, 2}}, 0, nil).Generate(context.Background(), c.OrgID, c.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)

	_, err = NewGenerator(store, &fakeEmbedder{err: errors.New("boom")}, 0, nil).Generate(context.Background(), c.OrgID, c.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestGenerate_MissingCandidate(t *testing.T) {
	store := dbtest.NewMemory()
	orgID := uuid.New()
	c := store.AddCandidate(orgID, nil, "")
	seedParsed(t, store, c, "Ada")
	delete(store.Candidates, c.ID)

	_, err := NewGenerator(store, &fakeEmbedder{vector: []float32{1}}, 0, nil).Generate(context.Background(), orgID, c.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)

	var noParse *NoParsedResumeError
	assert.False(t, errors.As(err, &noParse))
}
