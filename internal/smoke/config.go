// Package smoke runs a black-box check against a running cinematch server.
package smoke

import "time"

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL string        // Base URL of the service
	Sample  int           // Number of titles to query; 0 queries all
	Workers int           // Number of concurrent workers
	Timeout time.Duration // HTTP request timeout
	Limit   int           // Maximum results the server may return
	Verbose bool          // Log every title
}

// Recommendation mirrors one result card on the wire.
type Recommendation struct {
	Title      string  `json:"title"`
	MovieID    int64   `json:"movie_id"`
	PosterURL  string  `json:"poster_url"`
	Rating     float64 `json:"rating"`
	Similarity float64 `json:"similarity"`
	TrailerURL string  `json:"trailer_url,omitempty"`
}

// Response mirrors GET /api/recommendations.
type Response struct {
	Title   string           `json:"title"`
	Results []Recommendation `json:"results"`
}

// Stats holds run statistics.
type Stats struct {
	RunID        string
	Titles       int
	Queried      int
	Passed       int
	Failed       int
	Empty        int
	Results      int
	WithTrailers int
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
}
