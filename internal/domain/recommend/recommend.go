// Package recommend ranks catalog neighbours of a movie and enriches the
// best of them with metadata.
package recommend

import (
	"context"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/okian/cinematch/internal/domain/catalog"
	"github.com/okian/cinematch/internal/domain/types"
	"github.com/okian/cinematch/pkg/logger"
	"github.com/okian/cinematch/pkg/metrics"
)

// DefaultLimit is the maximum number of recommendations returned.
const DefaultLimit = 5

// Gateway resolves movie metadata. A false second return means the
// information is absent; gateways never report errors.
type Gateway interface {
	FetchDetails(ctx context.Context, movieID int64) (types.Details, bool)
	FetchTrailer(ctx context.Context, movieID int64) (string, bool)
}

// Candidate is one ranked neighbour.
type Candidate struct {
	Row   int
	Score float64
}

// Option configures a Recommender.
type Option func(*Recommender)

// WithLimit sets the result cap. Values below 1 are ignored.
func WithLimit(n int) Option {
	return func(r *Recommender) {
		if n > 0 {
			r.limit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Recommender) {
		if l != nil {
			r.log = l
		}
	}
}

// Recommender answers recommendation queries against a loaded store.
type Recommender struct {
	store   *catalog.Store
	gateway Gateway
	limit   int
	log     logger.Logger
}

// New creates a Recommender over store, enriching results through gw.
func New(store *catalog.Store, gw Gateway, opts ...Option) *Recommender {
	r := &Recommender{
		store:   store,
		gateway: gw,
		limit:   DefaultLimit,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Limit returns the configured result cap.
func (r *Recommender) Limit() int { return r.limit }

// Recommend returns up to Limit neighbours of title that have a poster,
// most similar first.
func (r *Recommender) Recommend(ctx context.Context, title string) ([]types.Recommendation, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRecommendationLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	entry, ok := r.store.Lookup(title)
	if !ok {
		metrics.RecordRecommendation("not_found")
		return nil, &NotFoundError{Title: title}
	}

	ranked := Rank(r.store.Row(entry.Row), entry.Row)
	out := make([]types.Recommendation, 0, r.limit)
	for _, c := range ranked {
		if len(out) == r.limit {
			break
		}
		if err := ctx.Err(); err != nil {
			metrics.RecordRecommendation("cancelled")
			return nil, err
		}
		metrics.RecordCandidateExamined()

		neighbour := r.store.Entry(c.Row)
		details, ok := r.gateway.FetchDetails(ctx, neighbour.MovieID)
		if !ok {
			metrics.RecordCandidateSkipped()
			r.log.Debug(ctx, "skipping candidate without poster",
				logger.String("title", neighbour.Title),
				logger.Int64("movie_id", neighbour.MovieID))
			continue
		}

		rec := types.Recommendation{
			Title:      neighbour.Title,
			MovieID:    neighbour.MovieID,
			PosterURL:  details.PosterURL,
			Rating:     details.Rating,
			Similarity: Percent(c.Score),
		}
		if url, ok := r.gateway.FetchTrailer(ctx, neighbour.MovieID); ok {
			rec.TrailerURL = url
		}
		out = append(out, rec)
	}

	metrics.RecordRecommendation("ok")
	metrics.RecordRecommendationResults(len(out))
	return out, nil
}

// Rank orders every entry except self by descending score. Equal scores keep
// row order.
func Rank(row []float64, self int) []Candidate {
	out := make([]Candidate, 0, len(row))
	for i, score := range row {
		if i == self {
			continue
		}
		out = append(out, Candidate{Row: i, Score: score})
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Score > out[b].Score
	})
	return out
}

// Percent maps a similarity score to a percentage rounded to two decimals.
// Scores outside [0,1] are clamped.
func Percent(score float64) float64 {
	score = math.Max(0, math.Min(1, score))
	// Round score*100 once, on its exact decimal value.
	p, _ := strconv.ParseFloat(strconv.FormatFloat(score*100, 'f', 2, 64), 64)
	return p
}
