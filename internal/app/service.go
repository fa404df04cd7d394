// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/cinematch/internal/adapters/artifact"
	"github.com/okian/cinematch/internal/domain/catalog"
	"github.com/okian/cinematch/internal/domain/recommend"
	"github.com/okian/cinematch/internal/domain/types"
	"github.com/okian/cinematch/pkg/logger"
	"github.com/okian/cinematch/pkg/metrics"
)

// Default artifact locations.
const (
	DefaultCatalogPath = "data/catalog.bin"
	DefaultMatrixPath  = "data/similarity.bin"
)

// Service implements the API dependencies for the recommender.
type Service struct {
	mu sync.RWMutex

	// Artifacts
	catalogPath     string
	matrixPath      string
	catalogURL      string
	matrixURL       string
	downloadTimeout time.Duration
	httpClient      *http.Client

	// Recommendation
	gateway recommend.Gateway
	limit   int

	// State
	started     bool
	store       *catalog.Store
	recommender *recommend.Recommender
	loadErr     error
	served      atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithArtifactPaths sets where the catalog and matrix artifacts live.
func WithArtifactPaths(catalogPath, matrixPath string) Option {
	return func(s *Service) {
		if catalogPath != "" {
			s.catalogPath = catalogPath
		}
		if matrixPath != "" {
			s.matrixPath = matrixPath
		}
	}
}

// WithArtifactURLs sets where missing artifacts are downloaded from.
func WithArtifactURLs(catalogURL, matrixURL string) Option {
	return func(s *Service) {
		s.catalogURL = catalogURL
		s.matrixURL = matrixURL
	}
}

// WithDownloadTimeout bounds each artifact download.
func WithDownloadTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.downloadTimeout = d
		}
	}
}

// WithHTTPClient sets the client used for artifact downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithGateway sets the metadata gateway.
func WithGateway(g recommend.Gateway) Option {
	return func(s *Service) {
		if g != nil {
			s.gateway = g
		}
	}
}

// WithResultLimit sets the maximum number of recommendations.
func WithResultLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// absentGateway answers every lookup with absence.
type absentGateway struct{}

func (absentGateway) FetchDetails(context.Context, int64) (types.Details, bool) {
	return types.Details{}, false
}

func (absentGateway) FetchTrailer(context.Context, int64) (string, bool) { return "", false }

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		catalogPath:     DefaultCatalogPath,
		matrixPath:      DefaultMatrixPath,
		downloadTimeout: artifact.DefaultTimeout,
		gateway:         absentGateway{},
		limit:           recommend.DefaultLimit,
		logger:          nil, // Will be replaced when service starts
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: s.downloadTimeout}
	}
	return s
}

// Start fetches missing artifacts and loads them. A load failure is kept and
// reported by Ready; it does not stop the service.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting recommender service...",
		logger.String("catalog", s.catalogPath),
		logger.String("matrix", s.matrixPath))

	s.ensure(ctx, "catalog", s.catalogURL, s.catalogPath)
	s.ensure(ctx, "matrix", s.matrixURL, s.matrixPath)

	store, err := catalog.Load(ctx, s.catalogPath, s.matrixPath)
	s.started = true
	if err != nil {
		s.loadErr = err
		metrics.UpdateCatalogLoaded(false)
		metrics.UpdateCatalogEntries(0)
		s.logger.Error(ctx, "recommendation data unavailable", logger.Error(err))
		return nil
	}

	s.store = store
	s.recommender = recommend.New(store, s.gateway,
		recommend.WithLimit(s.limit),
		recommend.WithLogger(s.logger.Named("recommend")))
	metrics.UpdateCatalogLoaded(true)
	metrics.UpdateCatalogEntries(store.Len())
	s.logger.Info(ctx, "recommender service started",
		logger.Int("entries", store.Len()),
		logger.Int("limit", s.limit),
		logger.Bool("gateway", s.gatewayEnabled()))
	return nil
}

func (s *Service) ensure(ctx context.Context, name, url, path string) {
	dctx, cancel := context.WithTimeout(ctx, s.downloadTimeout)
	defer cancel()
	outcome, err := artifact.Ensure(dctx, s.httpClient, url, path)
	if err != nil {
		s.logger.Warn(ctx, "artifact download failed",
			logger.String("artifact", name),
			logger.String("path", path),
			logger.Error(err))
		return
	}
	if outcome == artifact.OutcomeDownloaded {
		s.logger.Info(ctx, "artifact downloaded",
			logger.String("artifact", name),
			logger.String("path", path))
	}
}

// Stop marks the service as stopped. Loaded data stays readable.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "recommender service stopped")
}

// Ready returns nil when data is loaded, otherwise an error wrapping
// ErrUnavailable.
func (s *Service) Ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readyLocked()
}

func (s *Service) readyLocked() error {
	switch {
	case s.store != nil:
		return nil
	case s.loadErr != nil:
		return fmt.Errorf("%w: %w", ErrUnavailable, s.loadErr)
	default:
		return fmt.Errorf("%w: service not started", ErrUnavailable)
	}
}

// Recommend returns recommendations for an exact catalog title.
func (s *Service) Recommend(ctx context.Context, title string) ([]types.Recommendation, error) {
	s.mu.RLock()
	r, err := s.recommender, s.readyLocked()
	s.mu.RUnlock()
	if err != nil {
		metrics.RecordRecommendation("unavailable")
		return nil, err
	}

	s.served.Add(1)
	return r.Recommend(ctx, title)
}

// Titles returns every catalog title in row order.
func (s *Service) Titles(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readyLocked(); err != nil {
		return nil, err
	}
	return s.store.Titles(), nil
}

func (s *Service) gatewayEnabled() bool {
	if e, ok := s.gateway.(interface{ Enabled() bool }); ok {
		return e.Enabled()
	}
	_, absent := s.gateway.(absentGateway)
	return !absent
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"loaded":         s.store != nil,
		"resultLimit":    s.limit,
		"gatewayEnabled": s.gatewayEnabled(),
		"requestsServed": s.served.Load(),
	}
	if s.store != nil {
		stats["catalogEntries"] = s.store.Len()
	}
	if s.loadErr != nil {
		stats["loadError"] = s.loadErr.Error()
	}
	if b, ok := s.gateway.(interface{ BreakerState() string }); ok {
		stats["breakerState"] = b.BreakerState()
	}
	return stats
}
