package smoke

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
)

// HTTPClient wraps http.Client with a per-request timeout and run id.
type HTTPClient struct {
	client *http.Client
	base   string
	runID  string
}

func newHTTPClient(base, runID string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{Timeout: timeout},
		base:   base,
		runID:  runID,
	}
}

// get performs a GET and returns status and body.
func (c *HTTPClient) get(ctx context.Context, path string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, http.NoBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", c.runID)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *HTTPClient) titles(ctx context.Context) ([]string, error) {
	status, body, err := c.get(ctx, "/api/titles")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("titles: unexpected status %d: %s", status, body)
	}
	var out struct {
		Titles []string `json:"titles"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("titles: %w", err)
	}
	return out.Titles, nil
}

func (c *HTTPClient) recommend(ctx context.Context, title string) (int, Response, error) {
	status, body, err := c.get(ctx, "/api/recommendations?title="+url.QueryEscape(title))
	if err != nil {
		return status, Response{}, err
	}
	var out Response
	if status == http.StatusOK {
		if err := json.Unmarshal(body, &out); err != nil {
			return status, Response{}, fmt.Errorf("recommend %q: %w", title, err)
		}
	}
	return status, out, nil
}
