// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/okian/cinematch/internal/domain/types"
	"github.com/okian/cinematch/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Recommend returns neighbours of an exact catalog title.
	Recommend(ctx context.Context, title string) ([]types.Recommendation, error)
	// Titles lists the catalog in row order.
	Titles(ctx context.Context) ([]string, error)
	// Ready reports whether recommendation data is loaded.
	Ready() error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler          *HealthHandler
	readyHandler           *ReadyHandler
	statsHandler           *StatsHandler
	titlesHandler          *TitlesHandler
	recommendationsHandler *RecommendationsHandler

	rateLimit  int
	rateWindow time.Duration
	log        logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimit limits /api requests per client IP. Zero disables.
func WithRateLimit(requests int, window time.Duration) Option {
	return func(s *Server) {
		s.rateLimit = requests
		if window > 0 {
			s.rateWindow = window
		}
	}
}

// WithLogger sets the logger used for unexpected handler errors.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		rateWindow: time.Minute,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.readyHandler = NewReadyHandler(deps, s.log)
	s.statsHandler = NewStatsHandler(statsProvider)
	s.titlesHandler = NewTitlesHandler(deps, s.log)
	s.recommendationsHandler = NewRecommendationsHandler(deps, s.log)
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/readyz", MetricsMiddleware(s.readyHandler.HandleReady, "readyz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimit(s.rateLimit, s.rateWindow))
		r.Get("/titles", MetricsMiddleware(s.titlesHandler.HandleGetTitles, "titles"))
		r.Get("/recommendations", MetricsMiddleware(s.recommendationsHandler.HandleGetRecommendations, "recommendations"))
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err using the status of its kind. Internal errors are
// logged and their cause hidden.
func writeError(ctx context.Context, w http.ResponseWriter, log logger.Logger, err error) {
	code, name := status(err)
	msg := err.Error()
	switch code {
	case http.StatusInternalServerError:
		log.Error(ctx, "request failed", logger.String("request_id", RequestIDFromContext(ctx)), logger.Error(err))
		msg = http.StatusText(code)
	case StatusClientClosedRequest:
		log.Debug(ctx, "client went away", logger.String("request_id", RequestIDFromContext(ctx)))
	}
	writeJSON(w, code, errorResponse{Code: name, Message: msg})
}
