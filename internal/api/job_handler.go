package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pixfetch/pixfetch/internal/api/shared"
	"github.com/pixfetch/pixfetch/internal/broadcast"
	"github.com/pixfetch/pixfetch/internal/domain"
	"github.com/pixfetch/pixfetch/internal/scheduler"
)

// JobService defines the scheduling operations the HTTP layer depends on.
type JobService interface {
	Submit(ctx context.Context, rawURL, keyword string) (*domain.Job, error)
	Get(id string) (*domain.Job, error)
	List() []*domain.Job
	Abort(id string) (*domain.Job, error)
	Delete(ctx context.Context, id string) error
	Subscribe(id string) (*broadcast.Subscription, error)
	History(ctx context.Context) ([]domain.HistoryEntry, error)
	ClearHistory(ctx context.Context) error
}

// SubmitJobRequest represents the request body for submitting a scrape job.
type SubmitJobRequest struct {
	URL     string `json:"url" validate:"required"`
	Keyword string `json:"keyword"`
}

// SubmitJobResponse represents the response for an accepted submission.
type SubmitJobResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// DuplicateJobResponse is returned when an identical job is still active.
type DuplicateJobResponse struct {
	Error         string `json:"error"`
	ExistingJobID string `json:"existingJobId"`
}

// DeleteJobResponse acknowledges a job deletion.
type DeleteJobResponse struct {
	Success bool `json:"success"`
}

// JobHandler handles job-related HTTP requests.
type JobHandler struct {
	jobs      JobService
	validator *validator.Validate
	logger    *slog.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobs JobService, logger *slog.Logger) *JobHandler {
	return &JobHandler{
		jobs:      jobs,
		validator: validator.New(),
		logger:    logger.With("component", "job_handler"),
	}
}

// Submit handles POST /api/scrape requests.
func (h *JobHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitJobRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "URL is required")
		return
	}

	job, err := h.jobs.Submit(r.Context(), req.URL, req.Keyword)
	if err != nil {
		var dup *scheduler.DuplicateError
		if errors.As(err, &dup) {
			shared.RespondWithJSON(w, r, http.StatusConflict, DuplicateJobResponse{
				Error:         "duplicate",
				ExistingJobID: dup.ExistingID,
			})
			return
		}
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SubmitJobResponse{
		JobID:  job.ID,
		Status: string(job.Status),
	})
}

// List handles GET /api/jobs requests.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.jobs.List())
}

// Get handles GET /api/jobs/{jobID} requests.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(chi.URLParam(r, "jobID"))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, job)
}

// Abort handles POST /api/abort/{jobID} requests.
func (h *JobHandler) Abort(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Abort(chi.URLParam(r, "jobID"))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, SubmitJobResponse{
		JobID:  job.ID,
		Status: string(job.Status),
	})
}

// Delete handles DELETE /api/jobs/{jobID} requests.
func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.jobs.Delete(r.Context(), chi.URLParam(r, "jobID")); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, DeleteJobResponse{Success: true})
}

// History handles GET /api/history requests.
func (h *JobHandler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.jobs.History(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, entries)
}

// ClearHistory handles DELETE /api/history requests.
func (h *JobHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.jobs.ClearHistory(r.Context()); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	h.logger.Info("history cleared")
	shared.RespondWithJSON(w, r, http.StatusOK, DeleteJobResponse{Success: true})
}
