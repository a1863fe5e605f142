package db

import (
	"github.com/google/uuid"
	"github.com/jonathan/candidate-pipeline/internal/types"
)

// Entity names used in NotFoundError
const (
	EntityCandidate = "candidate"
	EntityResult    = "result"
	EntityJob       = "workflow job"
)

// CandidateInput holds the fields needed to create a candidate
type CandidateInput struct {
	OrgID     uuid.UUID
	JobID     *uuid.UUID
	Email     string
	ResumeURL string
}

// JobInput describes one job to enqueue
type JobInput struct {
	JobType     types.JobType
	CandidateID *uuid.UUID
	JobID       *uuid.UUID
	OrgID       uuid.UUID
}

// ResultInput describes one structured result to append
type ResultInput struct {
	JobType     types.ResultJobType
	CandidateID uuid.UUID
	OrgID       uuid.UUID
	Result      any
}
