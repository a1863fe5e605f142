package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ProcessRequest is the input to a pipeline run for one uploaded résumé
type ProcessRequest struct {
	ResumeURL   string `json:"resume_url" validate:"required,url"`
	CandidateID string `json:"candidate_id" validate:"required,uuid"`
	OrgID       string `json:"org_id" validate:"required,uuid"`
}

// Validate validates the ProcessRequest using the validator.
func (r *ProcessRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// IDs returns the parsed candidate and org IDs. Call Validate first.
func (r *ProcessRequest) IDs() (candidateID, orgID uuid.UUID, err error) {
	candidateID, err = uuid.Parse(r.CandidateID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	orgID, err = uuid.Parse(r.OrgID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return candidateID, orgID, nil
}

// EmbedRequest is the input to a standalone embedding run
type EmbedRequest struct {
	CandidateID string `json:"candidate_id" validate:"required,uuid"`
	OrgID       string `json:"org_id" validate:"required,uuid"`
}

// Validate validates the EmbedRequest using the validator.
func (r *EmbedRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// ProcessResult is returned to the caller of a pipeline run
type ProcessResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	ResultID string `json:"result_id,omitempty"`
}

// EmbedResult is returned to the caller of a standalone embedding run
type EmbedResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Dimensions int    `json:"dimensions,omitempty"`
}
