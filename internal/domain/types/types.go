// Package types contains common types used across the application
package types

// Recommendation is one result card: a similar movie with its display metadata.
type Recommendation struct {
	Title     string  `json:"title"`
	MovieID   int64   `json:"movie_id"`
	PosterURL string  `json:"poster_url"`
	Rating    float64 `json:"rating"`
	// Similarity is the raw score scaled to 0..100 and rounded to 2 decimals.
	Similarity float64 `json:"similarity"`
	TrailerURL string  `json:"trailer_url,omitempty"`
}

// HasTrailer reports whether a trailer link was resolved.
func (r Recommendation) HasTrailer() bool { return r.TrailerURL != "" }

// Details is what the metadata gateway knows about a movie.
// An empty PosterURL means no poster.
type Details struct {
	PosterURL string  `json:"poster_url,omitempty"`
	Rating    float64 `json:"rating"`
}

// HasPoster reports whether the details carry a poster.
func (d Details) HasPoster() bool { return d.PosterURL != "" }
