// Command mkartifacts converts CSV exports into the catalog and similarity
// artifacts the server loads at startup.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/okian/cinematch/internal/domain/catalog"
	"github.com/okian/cinematch/pkg/logger"
)

// ErrInput marks malformed CSV input.
var ErrInput = errors.New("invalid input")

func main() {
	var (
		catalogCSV = flag.String("catalog", "catalog.csv", "CSV with header title,movie_id")
		matrixCSV  = flag.String("similarity", "similarity.csv", "CSV with N rows of N similarity scores")
		outDir     = flag.String("out", "data", "Output directory")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	ctx := context.Background()
	log := logger.Get()

	catPath := filepath.Join(*outDir, "catalog.bin")
	matPath := filepath.Join(*outDir, "similarity.bin")
	n, err := build(*catalogCSV, *matrixCSV, catPath, matPath)
	if err != nil {
		log.Error(ctx, "failed to build artifacts", logger.Error(err))
		os.Exit(1)
	}
	log.Info(ctx, "artifacts written",
		logger.Int("entries", n),
		logger.String("catalog", catPath),
		logger.String("matrix", matPath))
}

// build reads both CSV files, checks they agree and writes both artifacts.
// The written files are verified by loading them back.
func build(catalogCSV, matrixCSV, catPath, matPath string) (int, error) {
	entries, err := readFile(catalogCSV, readCatalogCSV)
	if err != nil {
		return 0, err
	}
	rows, err := readFile(matrixCSV, readMatrixCSV)
	if err != nil {
		return 0, err
	}
	if len(rows) != len(entries) {
		return 0, fmt.Errorf("%w: %d catalog rows but %d similarity rows", ErrInput, len(entries), len(rows))
	}

	if err := writeFile(catPath, func(w io.Writer) error { return catalog.WriteCatalog(w, entries) }); err != nil {
		return 0, err
	}
	if err := writeFile(matPath, func(w io.Writer) error { return catalog.WriteMatrix(w, rows) }); err != nil {
		return 0, err
	}

	store, err := catalog.Load(context.Background(), catPath, matPath)
	if err != nil {
		return 0, fmt.Errorf("verify artifacts: %w", err)
	}
	return store.Len(), nil
}

func readFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer func() { _ = f.Close() }()
	v, err := parse(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}

// readCatalogCSV parses "title,movie_id" rows after a header line.
func readCatalogCSV(r io.Reader) ([]catalog.Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInput, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: no catalog rows", ErrInput)
	}
	if h := records[0]; strings.TrimSpace(h[0]) != "title" || strings.TrimSpace(h[1]) != "movie_id" {
		return nil, fmt.Errorf("%w: header %v, want [title movie_id]", ErrInput, h)
	}

	entries := make([]catalog.Entry, 0, len(records)-1)
	for i, rec := range records[1:] {
		id, err := strconv.ParseInt(strings.TrimSpace(rec[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d movie_id: %w", ErrInput, i+2, err)
		}
		entries = append(entries, catalog.Entry{Title: rec[0], MovieID: id})
	}
	return entries, nil
}

// readMatrixCSV parses a square matrix without header.
func readMatrixCSV(r io.Reader) ([][]float64, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	var rows [][]float64
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInput, err)
		}
		row := make([]float64, len(rec))
		for j, cell := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d col %d: %w", ErrInput, len(rows), j, err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	for i, row := range rows {
		if len(row) != len(rows) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrInput, i, len(row), len(rows))
		}
	}
	return rows, nil
}
