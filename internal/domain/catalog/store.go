// Package catalog holds the movie catalog and its precomputed similarity
// matrix. Both are loaded once at startup and shared read-only.
package catalog

import (
	"context"
	"fmt"
	"os"
)

// Artifact names used in LoadError.
const (
	ArtifactCatalog = "catalog"
	ArtifactMatrix  = "matrix"
)

// Entry is one catalog row.
type Entry struct {
	Title   string
	MovieID int64
	Row     int
}

// Matrix is a square row-major similarity matrix.
type Matrix struct {
	n      int
	values []float64
}

// Dim returns the matrix dimension.
func (m *Matrix) Dim() int { return m.n }

// Row returns row i without copying. Callers must not modify it.
func (m *Matrix) Row(i int) []float64 {
	return m.values[i*m.n : (i+1)*m.n : (i+1)*m.n]
}

// Store pairs the catalog with its matrix. It is immutable after New.
type Store struct {
	entries []Entry
	byTitle map[string]int
	matrix  *Matrix
}

// New builds a Store from already decoded parts.
func New(entries []Entry, matrix *Matrix) (*Store, error) {
	if matrix == nil || matrix.Dim() != len(entries) {
		dim := 0
		if matrix != nil {
			dim = matrix.Dim()
		}
		return nil, fmt.Errorf("%w: %d entries, matrix %dx%d", ErrDimensionMismatch, len(entries), dim, dim)
	}
	s := &Store{
		entries: make([]Entry, len(entries)),
		byTitle: make(map[string]int, len(entries)),
		matrix:  matrix,
	}
	for i, e := range entries {
		if _, dup := s.byTitle[e.Title]; dup {
			return nil, fmt.Errorf("%w: title %q repeated", ErrMalformed, e.Title)
		}
		e.Row = i
		s.entries[i] = e
		s.byTitle[e.Title] = i
	}
	return s, nil
}

// Load reads both artifacts and builds a Store. Any failure is a *LoadError.
func Load(ctx context.Context, catalogPath, matrixPath string) (*Store, error) {
	entries, err := loadFile(ctx, ArtifactCatalog, catalogPath, func(f *os.File) ([]Entry, error) {
		return ReadCatalog(f)
	})
	if err != nil {
		return nil, err
	}
	matrix, err := loadFile(ctx, ArtifactMatrix, matrixPath, func(f *os.File) (*Matrix, error) {
		return ReadMatrix(f)
	})
	if err != nil {
		return nil, err
	}

	s, err := New(entries, matrix)
	if err != nil {
		return nil, &LoadError{Artifact: ArtifactMatrix, Path: matrixPath, Err: err}
	}
	return s, nil
}

func loadFile[T any](ctx context.Context, artifact, path string, decode func(*os.File) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, &LoadError{Artifact: artifact, Path: path, Err: err}
	}
	f, err := os.Open(path)
	if err != nil {
		return zero, &LoadError{Artifact: artifact, Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	v, err := decode(f)
	if err != nil {
		return zero, &LoadError{Artifact: artifact, Path: path, Err: err}
	}
	return v, nil
}

// Lookup finds an entry by exact title.
func (s *Store) Lookup(title string) (Entry, bool) {
	i, ok := s.byTitle[title]
	if !ok {
		return Entry{}, false
	}
	return s.entries[i], true
}

// Entry returns the entry at row i.
func (s *Store) Entry(i int) Entry { return s.entries[i] }

// Row returns the similarity row for entry i. Callers must not modify it.
func (s *Store) Row(i int) []float64 { return s.matrix.Row(i) }

// Len returns the number of entries.
func (s *Store) Len() int { return len(s.entries) }

// Titles returns all titles in row order.
func (s *Store) Titles() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Title
	}
	return out
}
