// Package artifact fetches missing lookup artifacts once at startup.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/cinematch/pkg/metrics"
)

// DefaultTimeout bounds a single download.
const DefaultTimeout = 10 * time.Second

// Download outcomes.
const (
	OutcomePresent    = "present"
	OutcomeSkipped    = "skipped"
	OutcomeDownloaded = "downloaded"
	OutcomeFailed     = "failed"
)

// ErrDownload wraps every download failure.
var ErrDownload = errors.New("artifact download failed")

// Ensure makes sure path exists. An existing file is left untouched. When the
// file is missing and url is empty nothing happens and the later load reports
// the missing file. Otherwise url is fetched into a temporary file next to path
// and renamed into place, so a failed download never leaves a partial file.
func Ensure(ctx context.Context, client *http.Client, url, path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		metrics.RecordArtifactDownload(OutcomePresent)
		return OutcomePresent, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		metrics.RecordArtifactDownload(OutcomeFailed)
		return OutcomeFailed, fmt.Errorf("%w: stat %s: %w", ErrDownload, path, err)
	}
	if url == "" {
		metrics.RecordArtifactDownload(OutcomeSkipped)
		return OutcomeSkipped, nil
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	start := time.Now()
	err := download(ctx, client, url, path)
	metrics.RecordArtifactDownloadLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordArtifactDownload(OutcomeFailed)
		return OutcomeFailed, fmt.Errorf("%w: %s: %w", ErrDownload, url, err)
	}
	metrics.RecordArtifactDownload(OutcomeDownloaded)
	return OutcomeDownloaded, nil
}

func download(ctx context.Context, client *http.Client, url, path string) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.part")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, resp.Body); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
