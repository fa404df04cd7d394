package catalog

import (
	"errors"
	"fmt"
)

// Sentinel kinds for catalog errors.
var (
	// ErrLoad marks any failure to load the lookup artifacts.
	ErrLoad = errors.New("catalog load failed")

	ErrMalformed         = errors.New("malformed artifact")
	ErrDimensionMismatch = errors.New("matrix dimension does not match catalog size")
)

// LoadError reports which artifact failed to load and why.
// errors.Is(err, ErrLoad) holds for every LoadError.
type LoadError struct {
	Artifact string // "catalog" or "matrix"
	Path     string
	Err      error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load %s: %v", e.Artifact, e.Err)
	}
	return fmt.Sprintf("load %s %s: %v", e.Artifact, e.Path, e.Err)
}

func (e *LoadError) Unwrap() []error { return []error{ErrLoad, e.Err} }
