package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/cinematch/internal/app"
	"github.com/okian/cinematch/internal/domain/catalog"
	"github.com/okian/cinematch/internal/domain/recommend"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("data unavailable")
	ErrRateLimited = errors.New("rate limited")
	ErrInternal    = errors.New("internal error")

	// ErrCanceled marks requests whose client went away.
	ErrCanceled = errors.New("request canceled")
)

// StatusClientClosedRequest is the non-standard status recorded when the
// client disconnects before the response is ready.
const StatusClientClosedRequest = 499

// Error ties an operation to an error kind and its cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() []error { return []error{e.Kind, e.Err} }

// NewKind returns an Error of kind with a message.
func NewKind(op string, kind error, msg string) error {
	return &Error{Op: op, Kind: kind, Err: errors.New(msg)}
}

// Wrap classifies err for op. Known domain errors map to their kind; anything
// else is internal.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	kind := ErrInternal
	switch {
	case errors.Is(err, recommend.ErrNotFound):
		kind = ErrNotFound
	case errors.Is(err, service.ErrUnavailable), errors.Is(err, catalog.ErrLoad):
		kind = ErrUnavailable
	case errors.Is(err, context.Canceled):
		kind = ErrCanceled
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// status maps an error to its HTTP status and wire code.
func status(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, "data_unavailable"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, ErrCanceled):
		return StatusClientClosedRequest, "canceled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
