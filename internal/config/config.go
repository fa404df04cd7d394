// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keys are flat snake_case names shared by the YAML file and env vars.
// - New() returns the defaults; Load layers file and env on top of them.
// - Errors wrap this package's sentinel kinds.
package config

import "time"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" validate:"omitempty,oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// CatalogPath and MatrixPath locate the two lookup artifacts on disk.
	CatalogPath string `koanf:"catalog_path" validate:"required"`
	MatrixPath  string `koanf:"matrix_path" validate:"required"`
	// CatalogURL and MatrixURL are fetched once when the files are missing.
	// Empty disables the download.
	CatalogURL string `koanf:"catalog_url" validate:"omitempty,url"`
	MatrixURL  string `koanf:"matrix_url" validate:"omitempty,url"`
	// DownloadTimeoutMS bounds each artifact download.
	DownloadTimeoutMS int `koanf:"download_timeout_ms" validate:"gt=0"`

	// ResultLimit caps the number of recommendations returned.
	ResultLimit int `koanf:"result_limit" validate:"gte=1,lte=50"`

	// TMDBAPIKey enables the metadata gateway. Empty disables it.
	TMDBAPIKey       string `koanf:"tmdb_api_key"`
	TMDBBaseURL      string `koanf:"tmdb_base_url" validate:"required,url"`
	TMDBImageBaseURL string `koanf:"tmdb_image_base_url" validate:"required,url"`
	TMDBTimeoutMS    int    `koanf:"tmdb_timeout_ms" validate:"gt=0"`
	// TMDBRatePerSecond and TMDBBurst shape outbound calls. Zero rate disables limiting.
	TMDBRatePerSecond float64 `koanf:"tmdb_rate_per_second" validate:"gte=0"`
	TMDBBurst         int     `koanf:"tmdb_burst" validate:"gte=1"`

	// BreakerMaxFailures consecutive upstream failures open the breaker for
	// BreakerOpenTimeoutMS.
	BreakerMaxFailures   int `koanf:"breaker_max_failures" validate:"gte=1"`
	BreakerOpenTimeoutMS int `koanf:"breaker_open_timeout_ms" validate:"gt=0"`

	// RedisAddr enables a shared second memo tier when set.
	RedisAddr      string `koanf:"redis_addr" validate:"omitempty,hostname_port"`
	RedisPassword  string `koanf:"redis_password"`
	RedisDB        int    `koanf:"redis_db" validate:"gte=0"`
	MemoTTLSeconds int    `koanf:"memo_ttl_seconds" validate:"gte=0"`

	// HTTPRateLimit requests per HTTPRateWindowMS per client IP on /api. Zero disables.
	HTTPRateLimit    int `koanf:"http_rate_limit" validate:"gte=0"`
	HTTPRateWindowMS int `koanf:"http_rate_window_ms" validate:"gt=0"`

	// MetricsRefreshMS sets how often system gauges are sampled.
	MetricsRefreshMS int `koanf:"metrics_refresh_ms" validate:"gt=0"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		CatalogPath:          "data/catalog.bin",
		MatrixPath:           "data/similarity.bin",
		DownloadTimeoutMS:    10_000,
		ResultLimit:          5,
		TMDBBaseURL:          "https://api.themoviedb.org/3",
		TMDBImageBaseURL:     "https://image.tmdb.org/t/p/w500",
		TMDBTimeoutMS:        5_000,
		TMDBRatePerSecond:    40,
		TMDBBurst:            10,
		BreakerMaxFailures:   5,
		BreakerOpenTimeoutMS: 30_000,
		MemoTTLSeconds:       86_400,
		HTTPRateLimit:        120,
		HTTPRateWindowMS:     60_000,
		MetricsRefreshMS:     10_000,
	}
}

// DownloadTimeout returns DownloadTimeoutMS as a duration.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.DownloadTimeoutMS) * time.Millisecond
}

// TMDBTimeout returns TMDBTimeoutMS as a duration.
func (c *Config) TMDBTimeout() time.Duration {
	return time.Duration(c.TMDBTimeoutMS) * time.Millisecond
}

// BreakerOpenTimeout returns BreakerOpenTimeoutMS as a duration.
func (c *Config) BreakerOpenTimeout() time.Duration {
	return time.Duration(c.BreakerOpenTimeoutMS) * time.Millisecond
}

// MemoTTL returns MemoTTLSeconds as a duration. Zero means no expiry.
func (c *Config) MemoTTL() time.Duration {
	return time.Duration(c.MemoTTLSeconds) * time.Second
}

// HTTPRateWindow returns HTTPRateWindowMS as a duration.
func (c *Config) HTTPRateWindow() time.Duration {
	return time.Duration(c.HTTPRateWindowMS) * time.Millisecond
}

// MetricsRefresh returns MetricsRefreshMS as a duration.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshMS) * time.Millisecond
}
