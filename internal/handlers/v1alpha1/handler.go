package v1alpha1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	api "github.com/kubev2v/fold-planner/api/v1alpha1"
	"github.com/kubev2v/fold-planner/internal/service"
)

type ServiceHandler struct {
	jobSrv *service.JobService
}

func NewServiceHandler(jobService *service.JobService) *ServiceHandler {
	return &ServiceHandler{
		jobSrv: jobService,
	}
}

// Routes mounts the public job routes on r. The admin routes are mounted with AdminRoutes
// so they can sit behind the authenticator.
func (h *ServiceHandler) Routes(r chi.Router) {
	r.Post("/api/submit-sequence", h.SubmitSequence)
	r.Get("/api/job-status/{jobId}", h.GetJobStatus)
	r.Get("/api/check-result/{jobId}", h.CheckResult)
	r.Get("/health", h.Health)
}

func (h *ServiceHandler) AdminRoutes(r chi.Router) {
	r.Get("/api/admin/jobs", h.ListJobs)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, api.Error{Error: message})
}
