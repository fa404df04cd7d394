package recommend

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the requested title is not in the catalog.
var ErrNotFound = errors.New("title not found")

// NotFoundError carries the title that failed to match.
type NotFoundError struct {
	Title string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %q", ErrNotFound, e.Title)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
