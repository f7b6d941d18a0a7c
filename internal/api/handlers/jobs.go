package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/funster-a/hackathon-backend/internal/api/middleware"
	"github.com/funster-a/hackathon-backend/internal/domain"
	"github.com/funster-a/hackathon-backend/internal/jobs"
	"github.com/funster-a/hackathon-backend/internal/logger"
)

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store     jobs.JobStore
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, publisher jobs.Publisher, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store:     store,
		publisher: publisher,
		log:       log,
	}
}

// CreateJob handles POST /api/jobs
func (h *JobsHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text   string `json:"text"`
		Locale string `json:"locale"`
		Source string `json:"source"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "text is required")
		return
	}

	ctx := r.Context()
	job := &jobs.AnalyzeJob{
		Text:   req.Text,
		Locale: domain.ParseLocale(req.Locale),
		Source: req.Source,
	}
	if err := h.publisher.PublishAnalyze(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue analysis job")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue analysis job")
		return
	}
	jobID := job.GetID()

	h.log.Info().Str("job_id", jobID).Msg("Analysis job enqueued")

	// A worker may already own job; report the stored copy.
	stored, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
			"job_id": jobID,
			"status": string(jobs.JobStatusPending),
		})
		return
	}
	middleware.WriteJSON(w, http.StatusAccepted, stored)
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// AnalyzeJobRunner returns the queue handler that analyses job text. Analysis
// always produces a record, so jobs fail only on unexpected job types.
func AnalyzeJobRunner(analyzer StatementAnalyzer) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		analyzeJob, ok := job.(*jobs.AnalyzeJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		fields := map[string]interface{}{"job_id": analyzeJob.JobID}
		if analyzeJob.Source != "" {
			fields["source"] = analyzeJob.Source
		}
		log := logger.WithFields(logger.FromContext(ctx), fields)
		log.Info().Int("text_length", analyzeJob.TextLength).Msg("Processing analysis job")

		res := analyzer.Analyze(logger.WithContext(ctx, log), analyzeJob.Text, analyzeJob.Locale)
		analyzeJob.RunID = res.RunID
		analyzeJob.Fallback = res.Fallback
		analyzeJob.Result = res.Record
		if res.Fallback && res.Reason != nil {
			analyzeJob.Error = res.Reason.Error()
		}
		return nil
	}
}
