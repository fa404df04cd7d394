package config_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/okian/cinematch/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.CatalogPath, convey.ShouldEqual, "data/catalog.bin")
				convey.So(cfg.ResultLimit, convey.ShouldEqual, 5)
				convey.So(cfg.TMDBRatePerSecond, convey.ShouldEqual, 40.0)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("CINEMATCH_ADDR", ":8080")
			_ = os.Setenv("CINEMATCH_TMDB_API_KEY", "secret")
			_ = os.Setenv("CINEMATCH_RESULT_LIMIT", "3")
			_ = os.Setenv("CINEMATCH_TMDB_RATE_PER_SECOND", "2.5")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.TMDBAPIKey, convey.ShouldEqual, "secret")
				convey.So(cfg.ResultLimit, convey.ShouldEqual, 3)
				convey.So(cfg.TMDBRatePerSecond, convey.ShouldEqual, 2.5)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
catalog_path: /srv/catalog.bin
matrix_url: https://example.com/similarity.bin
redis_addr: localhost:6379
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("CINEMATCH_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.CatalogPath, convey.ShouldEqual, "/srv/catalog.bin")
				convey.So(cfg.MatrixURL, convey.ShouldEqual, "https://example.com/similarity.bin")
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "localhost:6379")
				convey.So(cfg.MatrixPath, convey.ShouldEqual, "data/similarity.bin")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
result_limit: 7
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("CINEMATCH_CONFIG", tmpFile)
			_ = os.Setenv("CINEMATCH_ADDR", ":8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.ResultLimit, convey.ShouldEqual, 7)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("CINEMATCH_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("CINEMATCH_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("CINEMATCH_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When result_limit is out of range", func() {
			_ = os.Setenv("CINEMATCH_RESULT_LIMIT", "0")

			_, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "result_limit must be gte 1")
		})

		convey.Convey("When the log format is unknown", func() {
			_ = os.Setenv("CINEMATCH_LOG_FORMAT", "xml")

			_, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "log_format must be one of")
		})

		convey.Convey("When an artifact URL is malformed", func() {
			_ = os.Setenv("CINEMATCH_CATALOG_URL", "not a url")

			_, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "catalog_url must be a valid URL")
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("CINEMATCH_RESULT_LIMIT", "invalid")

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func createTempConfigFile(content string) string {
	f, err := os.CreateTemp("", "cinematch-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
	return f.Name()
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, config.EnvPrefix) {
			_ = os.Unsetenv(strings.SplitN(kv, "=", 2)[0])
		}
	}
}
