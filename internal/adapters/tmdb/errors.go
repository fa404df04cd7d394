package tmdb

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrRateLimited never leaves the package: callers only see absence.
var ErrRateLimited = errors.New("tmdb rate limiter wait exceeded deadline")

// StatusError is a non-2xx upstream response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb responded %d %s", e.Code, http.StatusText(e.Code))
}

// Failure reports whether the status indicates an upstream problem rather
// than a definitive answer about the movie.
func (e *StatusError) Failure() bool {
	return e.Code >= http.StatusInternalServerError || e.Code == http.StatusTooManyRequests
}

// answered reports whether err still represents a definitive upstream answer
// that may be remembered.
func answered(err error) bool {
	if err == nil {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && !se.Failure()
}
