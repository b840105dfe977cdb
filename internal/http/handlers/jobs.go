package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/guybartal/momentloop-sub000/internal/domain"
	"github.com/guybartal/momentloop-sub000/internal/middleware"
)

type jobCreateRequest struct {
	ProjectID   string `json:"project_id"`
	JobType     string `json:"job_type"`
	Description string `json:"description"`
}

type jobRecord struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	ProjectID   string     `json:"project_id"`
	JobType     string     `json:"job_type"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Error       *string    `json:"error"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

func toJobRecord(job *domain.Job) jobRecord {
	rec := jobRecord{
		ID:          job.ID,
		UserID:      job.UserID,
		ProjectID:   job.ProjectID,
		JobType:     string(job.Type),
		Description: job.Description,
		Status:      string(job.Status),
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
	if job.Error != "" {
		msg := job.Error
		rec.Error = &msg
	}
	return rec
}

// JobsList handles GET /api/jobs. Results are newest first, optionally
// filtered by project_id and status.
func (a *App) JobsList(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	filter := domain.JobFilter{
		ProjectID: r.URL.Query().Get("project_id"),
		Status:    domain.JobStatus(r.URL.Query().Get("status")),
		Limit:     domain.DefaultJobListLimit,
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > domain.MaxJobListLimit {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be between 1 and 200")
			return
		}
		filter.Limit = n
	}

	jobs, err := a.Jobs.ListRecent(r.Context(), userID, filter)
	if err != nil {
		a.Logger.Error().Err(err).Msg("failed to list jobs")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list jobs")
		return
	}

	out := make([]jobRecord, 0, len(jobs))
	for i := range jobs {
		out = append(out, toJobRecord(&jobs[i]))
	}
	a.json(w, http.StatusOK, out)
}

// JobsCreate handles POST /api/jobs. New jobs start running with
// started_at set server-side.
func (a *App) JobsCreate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	var req jobCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.ProjectID == "" || req.Description == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "project_id and description are required")
		return
	}
	if !domain.ValidJobType(domain.JobType(req.JobType)) {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid job type")
		return
	}

	now := time.Now().UTC()
	job := &domain.Job{
		ID:          uuid.NewString(),
		UserID:      userID,
		ProjectID:   req.ProjectID,
		Type:        domain.JobType(req.JobType),
		Description: req.Description,
		Status:      domain.JobStatusRunning,
		CreatedAt:   now,
		StartedAt:   &now,
	}
	if err := a.Jobs.Create(r.Context(), job); err != nil {
		a.Logger.Error().Err(err).Msg("failed to create job")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create job")
		return
	}

	a.json(w, http.StatusCreated, toJobRecord(job))
}

// JobsComplete handles PATCH /api/jobs/{job_id}/complete.
func (a *App) JobsComplete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "job_id")

	job, err := a.Jobs.Complete(r.Context(), userID, jobID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("failed to complete job")
		a.error(w, http.StatusInternalServerError, "internal", "failed to complete job")
		return
	}

	a.Hub.BroadcastToProject(job.ProjectID, "job_completed", map[string]any{
		"job_id":   job.ID,
		"job_type": string(job.Type),
	})
	a.json(w, http.StatusOK, toJobRecord(job))
}

// JobsFail handles PATCH /api/jobs/{job_id}/fail. The error text rides in
// the "error" query parameter.
func (a *App) JobsFail(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "job_id")
	errMsg := r.URL.Query().Get("error")

	job, err := a.Jobs.Fail(r.Context(), userID, jobID, errMsg, time.Now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("failed to fail job")
		a.error(w, http.StatusInternalServerError, "internal", "failed to fail job")
		return
	}

	a.Hub.BroadcastToProject(job.ProjectID, "job_failed", map[string]any{
		"job_id":   job.ID,
		"job_type": string(job.Type),
		"error":    job.Error,
	})
	a.json(w, http.StatusOK, toJobRecord(job))
}

// JobsClearNotifications handles DELETE /api/jobs/notifications: bulk
// dismissal of every completed/failed job.
func (a *App) JobsClearNotifications(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	n, err := a.Jobs.DeleteNotifications(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Msg("failed to clear notifications")
		a.error(w, http.StatusInternalServerError, "internal", "failed to clear notifications")
		return
	}
	a.Logger.Debug().Int("count", n).Str("user_id", userID).Msg("cleared job notifications")
	w.WriteHeader(http.StatusNoContent)
}

// JobsClearNotification handles DELETE /api/jobs/{job_id}. Running jobs are
// protected from dismissal and report 404, matching the bulk endpoint's
// non-running filter.
func (a *App) JobsClearNotification(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "job_id")

	if err := a.Jobs.DeleteNotification(r.Context(), userID, jobID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found or still running")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("failed to delete notification")
		a.error(w, http.StatusInternalServerError, "internal", "failed to delete notification")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
