package api

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/okian/cinematch/internal/domain/types"
	"github.com/okian/cinematch/pkg/logger"
)

// RecommendationDependencies defines the interface for recommendation queries.
type RecommendationDependencies interface {
	Recommend(ctx context.Context, title string) ([]types.Recommendation, error)
}

// RecommendationsHandler handles recommendation requests.
type RecommendationsHandler struct {
	deps RecommendationDependencies
	log  logger.Logger
}

// NewRecommendationsHandler creates a new recommendations handler.
func NewRecommendationsHandler(deps RecommendationDependencies, log logger.Logger) *RecommendationsHandler {
	return &RecommendationsHandler{deps: deps, log: log}
}

// recommendationQuery mirrors the OpenAPI parameters for GET /api/recommendations.
type recommendationQuery struct {
	Title string `validate:"required,max=512"`
}

type recommendationsResponse struct {
	Title   string                 `json:"title"`
	Results []types.Recommendation `json:"results"`
}

var (
	queryValidator     *validator.Validate
	queryValidatorOnce sync.Once
)

func getValidator() *validator.Validate {
	queryValidatorOnce.Do(func() {
		queryValidator = validator.New(validator.WithRequiredStructEnabled())
	})
	return queryValidator
}

// HandleGetRecommendations handles GET /api/recommendations?title=T requests.
// The title must match a catalog title exactly; surrounding whitespace is
// significant for matching but a blank title is rejected.
func (h *RecommendationsHandler) HandleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	q := recommendationQuery{Title: r.URL.Query().Get("title")}
	if strings.TrimSpace(q.Title) == "" {
		writeError(r.Context(), w, h.log, NewKind("recommend", ErrBadRequest, "missing title"))
		return
	}
	if err := getValidator().Struct(q); err != nil {
		writeError(r.Context(), w, h.log, NewKind("recommend", ErrBadRequest, "title too long"))
		return
	}

	results, err := h.deps.Recommend(r.Context(), q.Title)
	if err != nil {
		writeError(r.Context(), w, h.log, Wrap("recommend", err))
		return
	}
	if results == nil {
		results = []types.Recommendation{}
	}
	writeJSON(w, http.StatusOK, recommendationsResponse{Title: q.Title, Results: results})
}
