package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/cinematch/pkg/logger"
	"github.com/okian/cinematch/pkg/metrics"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleHealth handles GET /healthz requests with the Prometheus exposition.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// ReadyDependencies reports data readiness.
type ReadyDependencies interface {
	Ready() error
}

// ReadyHandler handles readiness probes.
type ReadyHandler struct {
	deps ReadyDependencies
	log  logger.Logger
}

// NewReadyHandler creates a new readiness handler.
func NewReadyHandler(deps ReadyDependencies, log logger.Logger) *ReadyHandler {
	return &ReadyHandler{deps: deps, log: log}
}

type readyResponse struct {
	Status string `json:"status"`
}

// HandleReady handles GET /readyz requests.
func (h *ReadyHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Ready(); err != nil {
		writeError(r.Context(), w, h.log, Wrap("ready", err))
		return
	}
	writeJSON(w, http.StatusOK, readyResponse{Status: "ok"})
}
