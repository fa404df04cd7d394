package catalog

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/goccy/go-json"
)

// Artifact framing.
//
// Catalog: uint32 big-endian payload length, then a JSON array of records.
// Matrix:  "SIMM", uint32 big-endian N, then N*N big-endian float64 row-major.
const (
	matrixMagic = "SIMM"
	// maxCatalogBytes bounds the catalog payload.
	maxCatalogBytes = 256 << 20
	// maxDimension bounds N (N*N*8 bytes).
	maxDimension = 1 << 15
	// matrixChunkRows is how many rows are reserved before reading.
	matrixChunkRows = 64
)

// record is the on-disk shape of one catalog row.
type record struct {
	Title   string `json:"title"`
	MovieID int64  `json:"movie_id"`
}

// WriteCatalog encodes entries as a catalog artifact. Row order is slice order;
// Entry.Row is ignored.
func WriteCatalog(w io.Writer, entries []Entry) error {
	recs := make([]record, len(entries))
	for i, e := range entries {
		recs[i] = record{Title: e.Title, MovieID: e.MovieID}
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if len(data) > maxCatalogBytes {
		return fmt.Errorf("encode catalog: payload of %d bytes exceeds limit", len(data))
	}

	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	if _, err := w.Write(length[:]); err != nil {
		return fmt.Errorf("write catalog header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write catalog payload: %w", err)
	}
	return nil
}

// ReadCatalog decodes a catalog artifact.
func ReadCatalog(r io.Reader) ([]Entry, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: read length: %w", ErrMalformed, err)
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length == 0 || length > maxCatalogBytes {
		return nil, fmt.Errorf("%w: payload length %d", ErrMalformed, length)
	}

	// Grow with the bytes that actually arrive; the prefix alone is not
	// trusted for allocation.
	data, err := io.ReadAll(io.LimitReader(r, int64(length)))
	if err != nil {
		return nil, fmt.Errorf("%w: read payload: %w", ErrMalformed, err)
	}
	if len(data) != int(length) {
		return nil, fmt.Errorf("%w: read payload: %d of %d bytes", ErrMalformed, len(data), length)
	}
	if err := expectEOF(r); err != nil {
		return nil, err
	}

	var recs []record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("%w: decode payload: %w", ErrMalformed, err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: empty catalog", ErrMalformed)
	}

	entries := make([]Entry, len(recs))
	seen := make(map[string]int, len(recs))
	for i, rec := range recs {
		if rec.Title == "" {
			return nil, fmt.Errorf("%w: row %d has an empty title", ErrMalformed, i)
		}
		if prev, dup := seen[rec.Title]; dup {
			return nil, fmt.Errorf("%w: title %q repeated at rows %d and %d", ErrMalformed, rec.Title, prev, i)
		}
		seen[rec.Title] = i
		entries[i] = Entry{Title: rec.Title, MovieID: rec.MovieID, Row: i}
	}
	return entries, nil
}

// WriteMatrix encodes a square matrix as a matrix artifact.
func WriteMatrix(w io.Writer, rows [][]float64) error {
	n := len(rows)
	if n > maxDimension {
		return fmt.Errorf("encode matrix: dimension %d exceeds limit", n)
	}
	for i, row := range rows {
		if len(row) != n {
			return fmt.Errorf("encode matrix: row %d has %d columns, want %d", i, len(row), n)
		}
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(matrixMagic); err != nil {
		return fmt.Errorf("write matrix header: %w", err)
	}
	var buf [8]byte
	binary.BigEndian.PutUint32(buf[:4], uint32(n))
	if _, err := bw.Write(buf[:4]); err != nil {
		return fmt.Errorf("write matrix header: %w", err)
	}
	for _, row := range rows {
		for _, v := range row {
			binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
			if _, err := bw.Write(buf[:]); err != nil {
				return fmt.Errorf("write matrix values: %w", err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write matrix values: %w", err)
	}
	return nil
}

// ReadMatrix decodes a matrix artifact into a flat row-major slice.
func ReadMatrix(r io.Reader) (*Matrix, error) {
	br := bufio.NewReader(r)

	var header [8]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrMalformed, err)
	}
	if string(header[:4]) != matrixMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrMalformed, header[:4])
	}
	n := int(binary.BigEndian.Uint32(header[4:]))
	if n == 0 || n > maxDimension {
		return nil, fmt.Errorf("%w: dimension %d", ErrMalformed, n)
	}

	// Rows are appended as they are read so a forged dimension fails on the
	// first missing row instead of allocating n*n up front.
	total := n * n
	values := make([]float64, 0, min(total, n*matrixChunkRows))
	row := make([]byte, 8*n)
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(br, row); err != nil {
			return nil, fmt.Errorf("%w: row %d of %d: %w", ErrMalformed, i, n, err)
		}
		for j := 0; j < n; j++ {
			v := math.Float64frombits(binary.BigEndian.Uint64(row[8*j:]))
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: non-finite value at row %d col %d", ErrMalformed, i, j)
			}
			values = append(values, v)
		}
	}
	if err := expectEOF(br); err != nil {
		return nil, err
	}
	return &Matrix{n: n, values: values}, nil
}

func expectEOF(r io.Reader) error {
	var one [1]byte
	n, err := r.Read(one[:])
	if n > 0 {
		return fmt.Errorf("%w: trailing bytes", ErrMalformed)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return nil
}
