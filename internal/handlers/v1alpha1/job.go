package v1alpha1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	api "github.com/kubev2v/fold-planner/api/v1alpha1"
	"github.com/kubev2v/fold-planner/internal/auth"
	"github.com/kubev2v/fold-planner/internal/handlers/v1alpha1/mappers"
	"github.com/kubev2v/fold-planner/internal/service"
	"github.com/kubev2v/fold-planner/pkg/log"
	"github.com/kubev2v/fold-planner/pkg/metrics"
	"github.com/kubev2v/fold-planner/pkg/middleware"
)

// (POST /api/submit-sequence)
func (h *ServiceHandler) SubmitSequence(w http.ResponseWriter, r *http.Request) {
	logger := log.NewDebugLogger("job_handler").
		WithContext(r.Context()).
		Operation("submit_sequence").
		Build()

	var body api.SubmitSequenceRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		logger.Error(err).Log()
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	name := ""
	if body.Name != nil {
		name = *body.Name
	}

	metrics.UniqueSubmittersPerWeek.Add(middleware.ClientIP(r))

	res, err := h.jobSrv.Submit(r.Context(), body.Sequence, name)
	if err != nil {
		var invalid *service.ErrInvalidSequence
		switch {
		case errors.As(err, &invalid):
			logger.Error(err).Log()
			respondError(w, r, http.StatusBadRequest, err.Error())
		default:
			logger.Error(err).Log()
			respondError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to submit sequence: %v", err))
		}
		return
	}

	logger.Success().WithString("job_id", res.Job.ID).WithString("status", res.Job.Status).Log()
	render.JSON(w, r, mappers.SubmitResultToApi(*res))
}

// (GET /api/job-status/{jobId})
func (h *ServiceHandler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	logger := log.NewDebugLogger("job_handler").
		WithContext(r.Context()).
		Operation("get_job_status").
		WithString("job_id", jobID).
		Build()

	status, err := h.jobSrv.GetStatus(r.Context(), jobID)
	if err != nil {
		h.respondServiceError(w, r, logger, err)
		return
	}

	logger.Success().WithString("status", status.Job.Status).Log()
	render.JSON(w, r, mappers.JobStatusToApi(*status))
}

// (GET /api/check-result/{jobId})
func (h *ServiceHandler) CheckResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	logger := log.NewDebugLogger("job_handler").
		WithContext(r.Context()).
		Operation("check_result").
		WithString("job_id", jobID).
		Build()

	res, err := h.jobSrv.CheckResult(r.Context(), jobID)
	if err != nil {
		h.respondServiceError(w, r, logger, err)
		return
	}

	logger.Success().WithString("status", res.Status).Log()
	render.JSON(w, r, mappers.ResultStatusToApi(*res))
}

// (GET /api/admin/jobs)
func (h *ServiceHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	logger := log.NewDebugLogger("job_handler").
		WithContext(r.Context()).
		Operation("list_jobs").
		WithString("admin", auth.UsernameFromContext(r.Context())).
		Build()

	queued, logged, err := h.jobSrv.ListAll(r.Context())
	if err != nil {
		logger.Error(err).Log()
		respondError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to list jobs: %v", err))
		return
	}

	logger.Success().WithInt("queued", len(queued)).WithInt("processed", len(logged)).Log()
	render.JSON(w, r, api.AdminJobsResponse{
		Queued:    mappers.JobListToApi(queued),
		Processed: mappers.JobListToApi(logged),
	})
}

func (h *ServiceHandler) respondServiceError(w http.ResponseWriter, r *http.Request, logger *log.OperationTracer, err error) {
	var notFound *service.ErrResourceNotFound
	var unavailable *service.ErrStorageUnavailable
	switch {
	case errors.As(err, &notFound):
		logger.Step("not_found").Log()
		respondError(w, r, http.StatusNotFound, err.Error())
	case errors.As(err, &unavailable):
		logger.Error(err).Log()
		respondError(w, r, http.StatusInternalServerError, err.Error())
	default:
		logger.Error(err).Log()
		respondError(w, r, http.StatusInternalServerError, fmt.Sprintf("internal error: %v", err))
	}
}
