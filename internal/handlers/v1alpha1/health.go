package v1alpha1

import (
	"net/http"

	"github.com/go-chi/render"
	api "github.com/kubev2v/fold-planner/api/v1alpha1"
	"go.uber.org/zap"
)

// (GET /health)
func (h *ServiceHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.jobSrv.Health(r.Context()); err != nil {
		zap.S().Named("health").Warnw("store is not reachable", "error", err)
		respondError(w, r, http.StatusServiceUnavailable, "store is not reachable")
		return
	}
	render.JSON(w, r, api.HealthResponse{Status: "healthy"})
}
