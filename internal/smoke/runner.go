package smoke

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/cinematch/pkg/logger"
)

// ErrFailed is returned when any check fails.
var ErrFailed = errors.New("smoke checks failed")

type outcome struct {
	title    string
	results  int
	trailers int
	problems []string
}

// Run executes the complete smoke check.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.Limit <= 0 {
		config.Limit = DefaultLimit
	}
	stats := &Stats{RunID: uuid.NewString(), StartTime: time.Now()}
	log := logger.Get().Named("smoke")

	log.Info(ctx, "starting cinematch smoke run",
		logger.String("runID", stats.RunID),
		logger.String("baseURL", config.BaseURL),
		logger.Int("sample", config.Sample),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout))

	client := newHTTPClient(strings.TrimRight(config.BaseURL, "/"), stats.RunID, config.Timeout)

	// Step 1: readiness
	status, body, err := client.get(ctx, "/readyz")
	if err != nil {
		return stats, fmt.Errorf("service readiness check failed: %w", err)
	}
	if status != http.StatusOK {
		return stats, fmt.Errorf("service not ready (%d): %s", status, body)
	}

	// Step 2: titles
	titles, err := client.titles(ctx)
	if err != nil {
		return stats, err
	}
	if len(titles) == 0 {
		return stats, fmt.Errorf("%w: empty catalog", ErrFailed)
	}
	stats.Titles = len(titles)

	// Step 3: unknown titles are rejected
	var failures []string
	if code, _, err := client.recommend(ctx, unknownTitle); err != nil || code != http.StatusNotFound {
		failures = append(failures, fmt.Sprintf("unknown title answered %d (err=%v), want 404", code, err))
	}

	// Step 4: recommendations for the sample
	for _, o := range query(ctx, client, sample(titles, config.Sample), config) {
		stats.Queried++
		stats.Results += o.results
		stats.WithTrailers += o.trailers
		if o.results == 0 {
			stats.Empty++
		}
		if len(o.problems) == 0 {
			stats.Passed++
			if config.Verbose {
				log.Info(ctx, "ok", logger.String("title", o.title), logger.Int("results", o.results))
			}
			continue
		}
		stats.Failed++
		for _, p := range o.problems {
			failures = append(failures, o.title+": "+p)
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if len(failures) > 0 {
		for _, f := range failures {
			log.Error(ctx, "check failed", logger.String("detail", f))
		}
		return stats, fmt.Errorf("%w: %d problems", ErrFailed, len(failures))
	}
	log.Info(ctx, "smoke run passed")
	return stats, nil
}

// query fans titles out to a worker pool. Each title is requested twice to
// check idempotence.
func query(ctx context.Context, client *HTTPClient, titles []string, config *Config) []outcome {
	jobs := make(chan string, config.Workers*WorkerChannelFactor)
	results := make(chan outcome, len(titles))
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for title := range jobs {
				results <- check(ctx, client, title, config.Limit)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, t := range titles {
			select {
			case <-ctx.Done():
				return
			case jobs <- t:
			}
		}
	}()

	wg.Wait()
	close(results)

	out := make([]outcome, 0, len(titles))
	for o := range results {
		out = append(out, o)
	}
	return out
}

func check(ctx context.Context, client *HTTPClient, title string, limit int) outcome {
	o := outcome{title: title}
	code, first, err := client.recommend(ctx, title)
	if err != nil || code != http.StatusOK {
		o.problems = append(o.problems, fmt.Sprintf("status %d (err=%v)", code, err))
		return o
	}
	o.results = len(first.Results)
	for _, r := range first.Results {
		if r.TrailerURL != "" {
			o.trailers++
		}
	}
	o.problems = append(o.problems, Verify(title, first, limit)...)

	code, second, err := client.recommend(ctx, title)
	if err != nil || code != http.StatusOK {
		o.problems = append(o.problems, fmt.Sprintf("repeat status %d (err=%v)", code, err))
		return o
	}
	o.problems = append(o.problems, VerifyIdempotent(first, second)...)
	return o
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var passRate float64
	if stats.Queried > 0 {
		passRate = float64(stats.Passed) / float64(stats.Queried) * PercentageMultiplier
	}
	log.Info(ctx, "final statistics",
		logger.String("runID", stats.RunID),
		logger.Int("titles", stats.Titles),
		logger.Int("queried", stats.Queried),
		logger.Int("passed", stats.Passed),
		logger.Int("failed", stats.Failed),
		logger.Int("empty", stats.Empty),
		logger.Int("results", stats.Results),
		logger.Int("withTrailers", stats.WithTrailers),
		logger.Duration("duration", stats.Duration),
		logger.Float64("passRate", passRate))
}
