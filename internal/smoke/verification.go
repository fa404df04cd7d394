package smoke

import (
	"fmt"
	"reflect"
)

// Verify checks one response against the recommendation contract and
// returns every violation found.
func Verify(title string, resp Response, limit int) []string {
	var problems []string
	if resp.Title != title {
		problems = append(problems, fmt.Sprintf("echoed title %q, want %q", resp.Title, title))
	}
	if len(resp.Results) > limit {
		problems = append(problems, fmt.Sprintf("%d results exceed limit %d", len(resp.Results), limit))
	}
	seen := make(map[string]bool, len(resp.Results))
	for i, r := range resp.Results {
		if r.Title == title {
			problems = append(problems, fmt.Sprintf("result %d recommends the movie itself", i))
		}
		if seen[r.Title] {
			problems = append(problems, fmt.Sprintf("result %d repeats %q", i, r.Title))
		}
		seen[r.Title] = true
		if r.PosterURL == "" {
			problems = append(problems, fmt.Sprintf("result %d has no poster", i))
		}
		if r.Similarity < 0 || r.Similarity > 100 {
			problems = append(problems, fmt.Sprintf("result %d similarity %.2f outside [0,100]", i, r.Similarity))
		}
		if i > 0 && r.Similarity > resp.Results[i-1].Similarity {
			problems = append(problems, fmt.Sprintf("result %d similarity %.2f above previous %.2f",
				i, r.Similarity, resp.Results[i-1].Similarity))
		}
	}
	return problems
}

// VerifyIdempotent reports whether two responses for the same title match.
func VerifyIdempotent(first, second Response) []string {
	if reflect.DeepEqual(first, second) {
		return nil
	}
	return []string{fmt.Sprintf("repeat call for %q returned different results", first.Title)}
}

// sample picks n titles spread evenly across the catalog.
func sample(titles []string, n int) []string {
	if n <= 0 || n >= len(titles) {
		return titles
	}
	out := make([]string, 0, n)
	step := float64(len(titles)) / float64(n)
	for i := 0; i < n; i++ {
		out = append(out, titles[int(float64(i)*step)])
	}
	return out
}
