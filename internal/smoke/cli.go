package smoke

import "os"

// ShowHelp prints usage information for the smoke tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`cinematch smoke check

Queries a running server and verifies its recommendation contract:
at most -limit results, posters present, similarity within [0,100] and
non-increasing, the movie itself never recommended, unknown titles answered
with 404 and repeated calls returning identical results.

Usage:
  go run ./cmd/smoke [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -sample int
        Number of titles to query, spread across the catalog; 0 = all (default 50)
  -workers int
        Number of concurrent workers (default CPU cores)
  -timeout duration
        HTTP request timeout (default 30s)
  -limit int
        Maximum results per title (default 5)
  -verbose
        Log every title
  -help
        Show this help message
`)
}
