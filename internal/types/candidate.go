package types

import (
	"time"

	"github.com/google/uuid"
)

// CandidateStatus is the hiring stage a candidate is in
type CandidateStatus string

// CandidateStatus constants
const (
	CandidateStatusPending   CandidateStatus = "pending"
	CandidateStatusScreening CandidateStatus = "screening"
	CandidateStatusInterview CandidateStatus = "interview"
	CandidateStatusOffer     CandidateStatus = "offer"
	CandidateStatusHired     CandidateStatus = "hired"
	CandidateStatusRejected  CandidateStatus = "rejected"
)

// IsValid reports whether s is a known candidate status
func (s CandidateStatus) IsValid() bool {
	switch s {
	case CandidateStatusPending, CandidateStatusScreening, CandidateStatusInterview,
		CandidateStatusOffer, CandidateStatusHired, CandidateStatusRejected:
		return true
	}
	return false
}

// Candidate represents an applicant attached to a job posting.
// Email and Embedding stay empty until the pipeline derives them.
type Candidate struct {
	ID        uuid.UUID       `json:"id"`
	OrgID     uuid.UUID       `json:"org_id"`
	JobID     *uuid.UUID      `json:"job_id,omitempty"`
	Email     string          `json:"email,omitempty"`
	ResumeURL string          `json:"resume_url"`
	Status    CandidateStatus `json:"status"`
	Embedding []float32       `json:"embedding,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// HasEmbedding reports whether an embedding vector has been stored
func (c *Candidate) HasEmbedding() bool {
	return len(c.Embedding) > 0
}
