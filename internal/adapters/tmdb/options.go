package tmdb

import (
	"net/http"
	"time"

	"github.com/okian/cinematch/internal/adapters/memo"
	"github.com/okian/cinematch/internal/domain/types"
	"github.com/okian/cinematch/pkg/logger"
)

// Defaults for the TMDB client.
const (
	DefaultBaseURL      = "https://api.themoviedb.org/3"
	DefaultImageBaseURL = "https://image.tmdb.org/t/p/w500"
	DefaultTimeout      = 5 * time.Second
	DefaultMaxFailures  = 5
	DefaultOpenTimeout  = 30 * time.Second
	defaultMaxBodyBytes = 1 << 20
	youtubeWatchURL     = "https://www.youtube.com/watch?v="
	breakerName         = "tmdb"
)

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the credential. An empty key disables the client.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithBaseURL overrides the API root, e.g. for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithImageBaseURL overrides the prefix joined with poster paths.
func WithImageBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.imageBaseURL = u
		}
	}
}

// WithTimeout bounds every upstream call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRateLimit shapes outbound calls. A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		c.ratePerSecond = perSecond
		if burst > 0 {
			c.burst = burst
		}
	}
}

// WithBreaker sets how many consecutive failures open the breaker and how
// long it stays open.
func WithBreaker(maxFailures int, openTimeout time.Duration) Option {
	return func(c *Client) {
		if maxFailures > 0 {
			c.maxFailures = uint32(maxFailures)
		}
		if openTimeout > 0 {
			c.openTimeout = openTimeout
		}
	}
}

// WithDetailsMemo replaces the in-process details memo.
func WithDetailsMemo(s memo.Store[types.Details]) Option {
	return func(c *Client) {
		if s != nil {
			c.details = s
		}
	}
}

// WithTrailerMemo replaces the in-process trailer memo.
func WithTrailerMemo(s memo.Store[string]) Option {
	return func(c *Client) {
		if s != nil {
			c.trailers = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}
