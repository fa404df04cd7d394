// Package tmdb resolves posters, ratings and trailers from The Movie Database.
//
// Every failure is reported as absence. Calls are bounded by a timeout, shaped
// by a rate limiter and isolated by a circuit breaker; nothing is retried.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/okian/cinematch/internal/adapters/memo"
	"github.com/okian/cinematch/internal/domain/types"
	"github.com/okian/cinematch/pkg/logger"
	"github.com/okian/cinematch/pkg/metrics"
)

// Endpoint labels.
const (
	endpointDetails = "details"
	endpointVideos  = "videos"
)

// Client is a TMDB metadata gateway.
type Client struct {
	apiKey        string
	baseURL       string
	imageBaseURL  string
	timeout       time.Duration
	http          *http.Client
	ratePerSecond float64
	burst         int
	maxFailures   uint32
	openTimeout   time.Duration

	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[[]byte]
	details  memo.Store[types.Details]
	trailers memo.Store[string]
	log      logger.Logger
}

// New creates a Client. Without WithAPIKey every lookup is absent.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:      DefaultBaseURL,
		imageBaseURL: DefaultImageBaseURL,
		timeout:      DefaultTimeout,
		http:         &http.Client{},
		burst:        1,
		maxFailures:  DefaultMaxFailures,
		openTimeout:  DefaultOpenTimeout,
		details:      memo.NewInMemory[types.Details](),
		trailers:     memo.NewInMemory[string](),
		log:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.ratePerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(c.ratePerSecond), c.burst)
	}
	c.details = memo.WithMetrics("details", c.details)
	c.trailers = memo.WithMetrics("trailer", c.trailers)
	c.breaker = c.newBreaker()
	return c
}

func (c *Client) newBreaker() *gobreaker.CircuitBreaker[[]byte] {
	metrics.UpdateCircuitBreakerState(breakerName, stateToFloat(gobreaker.StateClosed))
	maxFailures := c.maxFailures
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     c.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not an upstream fault.
			return answered(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn(context.Background(), "circuit breaker state change",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
			metrics.UpdateCircuitBreakerState(name, stateToFloat(to))
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String())
		},
	})
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Enabled reports whether a credential is configured.
func (c *Client) Enabled() bool { return c.apiKey != "" }

// BreakerState returns the circuit breaker state name.
func (c *Client) BreakerState() string { return c.breaker.State().String() }

type detailsPayload struct {
	PosterPath  *string  `json:"poster_path"`
	VoteAverage *float64 `json:"vote_average"`
}

type videosPayload struct {
	Results []struct {
		Key  string `json:"key"`
		Site string `json:"site"`
		Type string `json:"type"`
	} `json:"results"`
}

// FetchDetails returns the poster and rating of a movie. ok is false when
// there is no poster or the lookup failed.
func (c *Client) FetchDetails(ctx context.Context, movieID int64) (types.Details, bool) {
	if !c.Enabled() {
		metrics.RecordGatewayRequest(endpointDetails, "disabled")
		return types.Details{}, false
	}
	key := strconv.FormatInt(movieID, 10)
	if d, ok := c.details.Get(ctx, key); ok {
		return d, d.HasPoster()
	}

	body, err := c.get(ctx, endpointDetails, movieID, fmt.Sprintf("/movie/%d", movieID))
	if err != nil {
		if answered(err) {
			c.details.Put(ctx, key, types.Details{})
		}
		return types.Details{}, false
	}

	var p detailsPayload
	if err := json.Unmarshal(body, &p); err != nil {
		c.log.Debug(ctx, "undecodable details payload", logger.Int64("movie_id", movieID), logger.Error(err))
		metrics.RecordGatewayRequest(endpointDetails, "undecodable")
		c.details.Put(ctx, key, types.Details{})
		return types.Details{}, false
	}

	var d types.Details
	if p.PosterPath != nil && *p.PosterPath != "" {
		d.PosterURL = c.imageBaseURL + *p.PosterPath
	}
	if p.VoteAverage != nil {
		d.Rating = *p.VoteAverage
	}
	c.details.Put(ctx, key, d)
	if !d.HasPoster() {
		metrics.RecordGatewayRequest(endpointDetails, "absent")
		return types.Details{}, false
	}
	metrics.RecordGatewayRequest(endpointDetails, "ok")
	return d, true
}

// FetchTrailer returns the watch URL of the first YouTube trailer.
func (c *Client) FetchTrailer(ctx context.Context, movieID int64) (string, bool) {
	if !c.Enabled() {
		metrics.RecordGatewayRequest(endpointVideos, "disabled")
		return "", false
	}
	key := strconv.FormatInt(movieID, 10)
	if u, ok := c.trailers.Get(ctx, key); ok {
		return u, u != ""
	}

	body, err := c.get(ctx, endpointVideos, movieID, fmt.Sprintf("/movie/%d/videos", movieID))
	if err != nil {
		if answered(err) {
			c.trailers.Put(ctx, key, "")
		}
		return "", false
	}

	var p videosPayload
	if err := json.Unmarshal(body, &p); err != nil {
		c.log.Debug(ctx, "undecodable videos payload", logger.Int64("movie_id", movieID), logger.Error(err))
		metrics.RecordGatewayRequest(endpointVideos, "undecodable")
		c.trailers.Put(ctx, key, "")
		return "", false
	}

	var watch string
	for _, v := range p.Results {
		if v.Type == "Trailer" && v.Site == "YouTube" && v.Key != "" {
			watch = youtubeWatchURL + v.Key
			break
		}
	}
	c.trailers.Put(ctx, key, watch)
	if watch == "" {
		metrics.RecordGatewayRequest(endpointVideos, "absent")
		return "", false
	}
	metrics.RecordGatewayRequest(endpointVideos, "ok")
	return watch, true
}

// get performs one bounded, limited, breaker-guarded GET.
func (c *Client) get(ctx context.Context, endpoint string, movieID int64, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			metrics.RecordRateLimited()
			metrics.RecordGatewayRequest(endpoint, "rate_limited")
			c.log.Debug(ctx, "rate limiter wait abandoned", logger.Int64("movie_id", movieID), logger.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrRateLimited, err)
		}
	}

	target, err := c.endpointURL(path)
	if err != nil {
		metrics.RecordGatewayRequest(endpoint, "error")
		return nil, err
	}

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, target)
	})
	metrics.RecordGatewayLatency(endpoint, float64(time.Since(start).Microseconds())/1000)

	if err != nil {
		outcome := "error"
		var se *StatusError
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			outcome = "rejected"
		case errors.As(err, &se) && !se.Failure():
			outcome = "absent"
		}
		metrics.RecordGatewayRequest(endpoint, outcome)
		c.log.Debug(ctx, "tmdb lookup failed",
			logger.String("endpoint", endpoint),
			logger.Int64("movie_id", movieID),
			logger.String("outcome", outcome),
			logger.Error(err))
		return nil, err
	}
	return body, nil
}

// endpointURL joins path to the base URL and adds the credential.
func (c *Client) endpointURL(path string) (string, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return "", fmt.Errorf("build tmdb url: %w", err)
	}
	q := u.Query()
	q.Set("api_key", c.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) do(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// Strip the URL so the credential never reaches logs.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return nil, uerr.Err
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, defaultMaxBodyBytes))
		return nil, &StatusError{Code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, defaultMaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read tmdb body: %w", err)
	}
	return body, nil
}
