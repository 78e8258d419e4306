package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/doc-tailor/internal/job"
)

// SubmitRequest represents the request body for POST /jobs.
type SubmitRequest struct {
	InputText string `json:"input_text"`
}

// SubmitResponse represents the response for POST /jobs.
type SubmitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobResponse represents the full job record for GET /jobs/{id}.
type JobResponse struct {
	JobID         string            `json:"job_id"`
	Status        string            `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	StageResults  []job.StageResult `json:"stage_results"`
	Failure       *job.Failure      `json:"failure,omitempty"`
	ArtifactPaths []string          `json:"artifact_paths,omitempty"`
}

// JobSummary represents one entry in the GET /jobs listing.
type JobSummary struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// handleSubmitJob accepts a job posting and starts the pipeline for it.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	id, err := s.orch.Submit(r.Context(), req.InputText)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusAccepted, SubmitResponse{
		JobID:  id.String(),
		Status: string(job.StatusPending),
	})
}

// handleGetJob returns the full record for one job.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid job ID: "+err.Error())
		return
	}

	j, err := s.orch.GetStatus(r.Context(), id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, toJobResponse(j))
}

// handleListJobs returns summaries for all known jobs, newest first.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.orch.Jobs(r.Context())
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	summaries := make([]JobSummary, 0, len(jobs))
	for _, j := range jobs {
		summaries = append(summaries, JobSummary{
			JobID:     j.ID.String(),
			Status:    string(j.Status),
			CreatedAt: j.CreatedAt,
			UpdatedAt: j.UpdatedAt,
		})
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"jobs": summaries})
}

// handleMetrics returns the rolling inference metrics summary.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.metrics.Summarize())
}

func toJobResponse(j *job.Job) JobResponse {
	resp := JobResponse{
		JobID:         j.ID.String(),
		Status:        string(j.Status),
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
		StageResults:  j.StageResults,
		Failure:       j.Failure,
		ArtifactPaths: j.ArtifactPaths,
	}
	if resp.StageResults == nil {
		resp.StageResults = []job.StageResult{}
	}
	return resp
}
