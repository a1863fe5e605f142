// Package dbtest provides an in-memory stand-in for the PostgreSQL store used in unit tests.
package dbtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-pipeline/internal/db"
	"github.com/jonathan/candidate-pipeline/internal/types"
)

// Memory mimics *db.DB semantics: org-scoped candidates, append-only results and a job queue.
// Set Errors[method] to make that method fail.
type Memory struct {
	mu sync.Mutex

	Candidates       map[uuid.UUID]*types.Candidate
	Results          []types.AIResult
	EmbeddingResults []types.EmbeddingResult
	Jobs             []types.WorkflowJob
	Errors           map[string]error

	claimed map[uuid.UUID]bool
	clock   time.Time
}

// NewMemory returns an empty store
func NewMemory() *Memory {
	return &Memory{
		Candidates: make(map[uuid.UUID]*types.Candidate),
		Errors:     make(map[string]error),
		claimed:    make(map[uuid.UUID]bool),
		clock:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// now returns strictly increasing timestamps so "latest" is well defined
func (m *Memory) now() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

func (m *Memory) fail(method string) error {
	return m.Errors[method]
}

// AddCandidate seeds a candidate and returns it
func (m *Memory) AddCandidate(orgID uuid.UUID, jobID *uuid.UUID, email string) *types.Candidate {
	c, _ := m.CreateCandidate(context.Background(), &db.CandidateInput{
		OrgID:     orgID,
		JobID:     jobID,
		Email:     email,
		ResumeURL: "https://files.example.com/resume.pdf",
	})
	return c
}

// CreateCandidate stores a new pending candidate
func (m *Memory) CreateCandidate(_ context.Context, input *db.CandidateInput) (*types.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateCandidate"); err != nil {
		return nil, err
	}

	ts := m.now()
	c := &types.Candidate{
		ID:        uuid.New(),
		OrgID:     input.OrgID,
		JobID:     input.JobID,
		Email:     input.Email,
		ResumeURL: input.ResumeURL,
		Status:    types.CandidateStatusPending,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	m.Candidates[c.ID] = c
	copied := *c
	return &copied, nil
}

// GetCandidate returns a copy of the candidate
func (m *Memory) GetCandidate(_ context.Context, orgID, id uuid.UUID) (*types.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetCandidate"); err != nil {
		return nil, err
	}

	c, err := m.candidate(orgID, id)
	if err != nil {
		return nil, err
	}
	copied := *c
	return &copied, nil
}

// SetEmailIfEmpty writes email only when none is set
func (m *Memory) SetEmailIfEmpty(_ context.Context, orgID, id uuid.UUID, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SetEmailIfEmpty"); err != nil {
		return false, err
	}

	c, err := m.candidate(orgID, id)
	if err != nil {
		return false, err
	}
	if c.Email != "" {
		return false, nil
	}
	c.Email = email
	c.UpdatedAt = m.now()
	return true, nil
}

// SetEmbedding overwrites the candidate's vector
func (m *Memory) SetEmbedding(_ context.Context, orgID, id uuid.UUID, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SetEmbedding"); err != nil {
		return err
	}

	c, err := m.candidate(orgID, id)
	if err != nil {
		return err
	}
	c.Embedding = append([]float32(nil), vector...)
	c.UpdatedAt = m.now()
	return nil
}

// InsertResult appends a result row
func (m *Memory) InsertResult(_ context.Context, input *db.ResultInput) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertResult"); err != nil {
		return uuid.Nil, err
	}

	payload, err := json.Marshal(input.Result)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	r := types.AIResult{
		ID:          uuid.New(),
		JobType:     input.JobType,
		CandidateID: input.CandidateID,
		OrgID:       input.OrgID,
		Result:      payload,
		CreatedAt:   m.now(),
	}
	m.Results = append(m.Results, r)
	return r.ID, nil
}

// LatestResult returns the newest matching result
func (m *Memory) LatestResult(_ context.Context, orgID, candidateID uuid.UUID, jobType types.ResultJobType) (*types.AIResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("LatestResult"); err != nil {
		return nil, err
	}

	var latest *types.AIResult
	for i := range m.Results {
		r := &m.Results[i]
		if r.OrgID != orgID || r.CandidateID != candidateID || r.JobType != jobType {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, &db.NotFoundError{Entity: db.EntityResult, ID: candidateID, OrgID: orgID}
	}
	copied := *latest
	return &copied, nil
}

// LatestParsedResume decodes the newest resume_parse result
func (m *Memory) LatestParsedResume(ctx context.Context, orgID, candidateID uuid.UUID) (*types.ParsedResume, error) {
	r, err := m.LatestResult(ctx, orgID, candidateID, types.ResultJobTypeResumeParse)
	if err != nil {
		return nil, err
	}
	return r.ParsedResume()
}

// InsertEmbeddingResult appends an embedding outcome
func (m *Memory) InsertEmbeddingResult(_ context.Context, r *types.EmbeddingResult) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertEmbeddingResult"); err != nil {
		return uuid.Nil, err
	}

	row := *r
	row.ID = uuid.New()
	row.CreatedAt = m.now()
	m.EmbeddingResults = append(m.EmbeddingResults, row)
	return row.ID, nil
}

// ListEmbeddingResults returns outcomes newest first
func (m *Memory) ListEmbeddingResults(_ context.Context, orgID, candidateID uuid.UUID) ([]types.EmbeddingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []types.EmbeddingResult
	for _, r := range m.EmbeddingResults {
		if r.OrgID == orgID && r.CandidateID == candidateID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// EnqueueJobs appends pending jobs atomically
func (m *Memory) EnqueueJobs(_ context.Context, jobs []db.JobInput) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("EnqueueJobs"); err != nil {
		return nil, err
	}

	for _, j := range jobs {
		if !j.JobType.IsValid() {
			return nil, fmt.Errorf("invalid job type %q", j.JobType)
		}
	}

	ids := make([]uuid.UUID, 0, len(jobs))
	for _, j := range jobs {
		ts := m.now()
		job := types.WorkflowJob{
			ID:          uuid.New(),
			JobType:     j.JobType,
			CandidateID: j.CandidateID,
			JobID:       j.JobID,
			OrgID:       j.OrgID,
			Status:      types.JobStatusPending,
			CreatedAt:   ts,
			UpdatedAt:   ts,
		}
		m.Jobs = append(m.Jobs, job)
		ids = append(ids, job.ID)
	}
	return ids, nil
}

// ClaimPendingJobs hands out unclaimed pending jobs, oldest first. The lease never expires here.
func (m *Memory) ClaimPendingJobs(_ context.Context, jobType types.JobType, limit int, _ time.Duration) ([]types.WorkflowJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ClaimPendingJobs"); err != nil {
		return nil, err
	}

	var out []types.WorkflowJob
	for _, j := range m.Jobs {
		if len(out) >= limit {
			break
		}
		if j.JobType == jobType && j.Status == types.JobStatusPending && !m.claimed[j.ID] {
			m.claimed[j.ID] = true
			out = append(out, j)
		}
	}
	return out, nil
}

// UpdateJobStatus sets a job's status
func (m *Memory) UpdateJobStatus(_ context.Context, id uuid.UUID, status types.JobStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateJobStatus"); err != nil {
		return err
	}

	for i := range m.Jobs {
		if m.Jobs[i].ID == id {
			m.Jobs[i].Status = status
			m.Jobs[i].Error = errMsg
			m.Jobs[i].UpdatedAt = m.now()
			delete(m.claimed, id)
			return nil
		}
	}
	return &db.NotFoundError{Entity: db.EntityJob, ID: id}
}

// FailPendingJob fails the newest pending job of jobType for the candidate
func (m *Memory) FailPendingJob(_ context.Context, orgID, candidateID uuid.UUID, jobType types.JobType, errMsg string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FailPendingJob"); err != nil {
		return false, err
	}

	for i := len(m.Jobs) - 1; i >= 0; i-- {
		j := &m.Jobs[i]
		if j.OrgID == orgID && j.CandidateID != nil && *j.CandidateID == candidateID &&
			j.JobType == jobType && j.Status == types.JobStatusPending {
			j.Status = types.JobStatusFailed
			j.Error = errMsg
			j.UpdatedAt = m.now()
			return true, nil
		}
	}
	return false, nil
}

// ListJobsForCandidate returns the candidate's jobs oldest first
func (m *Memory) ListJobsForCandidate(_ context.Context, orgID, candidateID uuid.UUID) ([]types.WorkflowJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListJobsForCandidate"); err != nil {
		return nil, err
	}

	var out []types.WorkflowJob
	for _, j := range m.Jobs {
		if j.OrgID == orgID && j.CandidateID != nil && *j.CandidateID == candidateID {
			out = append(out, j)
		}
	}
	return out, nil
}

// JobsByStatus counts the candidate's jobs per status
func (m *Memory) JobsByStatus(candidateID uuid.UUID) map[types.JobStatus]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[types.JobStatus]int)
	for _, j := range m.Jobs {
		if j.CandidateID != nil && *j.CandidateID == candidateID {
			counts[j.Status]++
		}
	}
	return counts
}

// ResultCount returns how many result rows exist for the candidate
func (m *Memory) ResultCount(candidateID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, r := range m.Results {
		if r.CandidateID == candidateID {
			n++
		}
	}
	return n
}

func (m *Memory) candidate(orgID, id uuid.UUID) (*types.Candidate, error) {
	c, ok := m.Candidates[id]
	if !ok || c.OrgID != orgID {
		return nil, &db.NotFoundError{Entity: db.EntityCandidate, ID: id, OrgID: orgID}
	}
	return c, nil
}
