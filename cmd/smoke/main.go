package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/cinematch/internal/smoke"
	"github.com/okian/cinematch/pkg/logger"
)

// Default configuration constants.
const (
	defaultSample      = 50
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		sample  = flag.Int("sample", defaultSample, "Number of titles to query; 0 queries all")
		workers = flag.Int("workers", runtime.NumCPU(), "Number of concurrent workers")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		limit   = flag.Int("limit", smoke.DefaultLimit, "Maximum results per title")
		verbose = flag.Bool("verbose", false, "Log every title")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		smoke.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &smoke.Config{
		BaseURL: *baseURL,
		Sample:  *sample,
		Workers: *workers,
		Timeout: *timeout,
		Limit:   *limit,
		Verbose: *verbose,
	}

	if _, err := smoke.Run(ctx, config); err != nil {
		logger.Get().Error(ctx, "smoke run failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
}
