package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobType identifies a unit of deferred processing in the work queue
type JobType string

// JobType constants
const (
	JobTypeParseResume       JobType = "parse_resume"
	JobTypeEmbedResume       JobType = "embed_resume"
	JobTypeAutoTagCandidate  JobType = "auto_tag_candidate"
	JobTypeRoleFitScore      JobType = "role_fit_score"
	JobTypeInterviewKit      JobType = "interview_kit"
	JobTypeFetchMarketSalary JobType = "fetch_market_salary"
)

// FollowupJobTypes are enqueued for a candidate once its résumé has been structured
var FollowupJobTypes = []JobType{
	JobTypeEmbedResume,
	JobTypeAutoTagCandidate,
	JobTypeRoleFitScore,
	JobTypeInterviewKit,
}

// IsValid reports whether t is a known job type
func (t JobType) IsValid() bool {
	switch t {
	case JobTypeParseResume, JobTypeEmbedResume, JobTypeAutoTagCandidate,
		JobTypeRoleFitScore, JobTypeInterviewKit, JobTypeFetchMarketSalary:
		return true
	}
	return false
}

// JobStatus is the lifecycle state of a workflow job
type JobStatus string

// JobStatus constants
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// WorkflowJob is a row in the work queue table
type WorkflowJob struct {
	ID          uuid.UUID  `json:"id"`
	JobType     JobType    `json:"job_type"`
	CandidateID *uuid.UUID `json:"candidate_id,omitempty"`
	JobID       *uuid.UUID `json:"job_id,omitempty"`
	OrgID       uuid.UUID  `json:"org_id"`
	Status      JobStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ResultJobType tags rows in the result store
type ResultJobType string

// ResultJobTypeResumeParse tags structured résumé output
const ResultJobTypeResumeParse ResultJobType = "resume_parse"

// AIResult is an append-only row of structured step output
type AIResult struct {
	ID          uuid.UUID       `json:"id"`
	JobType     ResultJobType   `json:"job_type"`
	CandidateID uuid.UUID       `json:"candidate_id"`
	OrgID       uuid.UUID       `json:"org_id"`
	Result      json.RawMessage `json:"result"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ParsedResume decodes the payload of a resume_parse result
func (r *AIResult) ParsedResume() (*ParsedResume, error) {
	var parsed ParsedResume
	if err := json.Unmarshal(r.Result, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// EmbeddingStatus is the outcome of an embedding attempt
type EmbeddingStatus string

// EmbeddingStatus constants
const (
	EmbeddingStatusSuccess EmbeddingStatus = "success"
	EmbeddingStatusError   EmbeddingStatus = "error"
)

// EmbeddingResult records one embedding attempt for a candidate
type EmbeddingResult struct {
	ID           uuid.UUID       `json:"id"`
	CandidateID  uuid.UUID       `json:"candidate_id"`
	OrgID        uuid.UUID       `json:"org_id"`
	Status       EmbeddingStatus `json:"status"`
	Dimensions   int             `json:"dimensions,omitempty"`
	Model        string          `json:"model,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
