package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-pipeline/internal/pipeline"
	"github.com/jonathan/candidate-pipeline/internal/types"
	"go.uber.org/zap"
)

// orgHeader carries the tenant for candidate-scoped routes; the org_id query parameter also works
const orgHeader = "X-Org-ID"

// JobsResponse is the body of GET /candidates/{id}/jobs
type JobsResponse struct {
	CandidateID string              `json:"candidate_id"`
	Jobs        []types.WorkflowJob `json:"jobs"`
}

// handleProcess runs the pipeline synchronously and returns its result
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeProcessRequest(w, r)
	if !ok {
		return
	}

	result, err := s.pipeline.ProcessCandidate(r.Context(), req, nil)
	if err != nil {
		s.logger.Warn("process failed", zap.String("candidate_id", req.CandidateID), zap.Error(err))
		s.jsonResponse(w, HTTPStatus(err), result)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleProcessStream runs the pipeline and streams stage progress via SSE
func (s *Server) handleProcessStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeProcessRequest(w, r)
	if !ok {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	candidateID, _ := uuid.Parse(req.CandidateID)
	reporter := pipeline.NewCallbackReporter(candidateID, func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent(eventProgress, event); err != nil {
			s.logger.Debug("client went away", zap.Error(err))
		}
	})

	result, err := s.pipeline.ProcessCandidate(r.Context(), req, reporter)
	if err != nil {
		sse.WriteError(err.Error())
	}
	sse.WriteComplete(result)
}

// handleEmbed re-runs embedding for one candidate
func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	candidateID, orgID, ok := s.candidateScope(w, r)
	if !ok {
		return
	}

	result, err := s.pipeline.EmbedCandidate(r.Context(), &types.EmbedRequest{
		CandidateID: candidateID.String(),
		OrgID:       orgID.String(),
	}, nil)
	if err != nil {
		s.logger.Warn("embed failed", zap.String("candidate_id", candidateID.String()), zap.Error(err))
		s.jsonResponse(w, HTTPStatus(err), result)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleListJobs lists the work queue entries of a candidate
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	candidateID, orgID, ok := s.candidateScope(w, r)
	if !ok {
		return
	}

	jobs, err := s.store.ListJobsForCandidate(r.Context(), orgID, candidateID)
	if err != nil {
		s.logger.Error("failed to list jobs", zap.String("candidate_id", candidateID.String()), zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if jobs == nil {
		jobs = []types.WorkflowJob{}
	}

	s.jsonResponse(w, http.StatusOK, JobsResponse{CandidateID: candidateID.String(), Jobs: jobs})
}

func (s *Server) decodeProcessRequest(w http.ResponseWriter, r *http.Request) (*types.ProcessRequest, bool) {
	var req types.ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return nil, false
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return nil, false
	}
	return &req, true
}

// candidateScope parses the {id} path value and the org id
func (s *Server) candidateScope(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	candidateID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid candidate ID format")
		return uuid.Nil, uuid.Nil, false
	}

	org := r.Header.Get(orgHeader)
	if org == "" {
		org = r.URL.Query().Get("org_id")
	}
	if org == "" {
		s.errorResponse(w, http.StatusBadRequest, "org_id is required")
		return uuid.Nil, uuid.Nil, false
	}
	orgID, err := uuid.Parse(org)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid org ID format")
		return uuid.Nil, uuid.Nil, false
	}
	return candidateID, orgID, true
}
