package recommend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/cinematch/internal/domain/catalog"
	"github.com/okian/cinematch/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeGateway serves posters and trailers from maps and counts calls.
type fakeGateway struct {
	mu       sync.Mutex
	posters  map[int64]string
	ratings  map[int64]float64
	trailers map[int64]string
	details  []int64
	videos   []int64
}

func (g *fakeGateway) FetchDetails(_ context.Context, id int64) (types.Details, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.details = append(g.details, id)
	p, ok := g.posters[id]
	if !ok {
		return types.Details{}, false
	}
	return types.Details{PosterURL: p, Rating: g.ratings[id]}, true
}

func (g *fakeGateway) FetchTrailer(_ context.Context, id int64) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.videos = append(g.videos, id)
	t, ok := g.trailers[id]
	return t, ok
}

// disabledGateway behaves like a gateway with no credential.
type disabledGateway struct{}

func (disabledGateway) FetchDetails(context.Context, int64) (types.Details, bool) {
	return types.Details{}, false
}
func (disabledGateway) FetchTrailer(context.Context, int64) (string, bool) { return "", false }

func mustStore(t *testing.T, entries []catalog.Entry, rows [][]float64) *catalog.Store {
	t.Helper()
	var buf bytes.Buffer
	if err := catalog.WriteMatrix(&buf, rows); err != nil {
		t.Fatalf("encode matrix: %v", err)
	}
	m, err := catalog.ReadMatrix(&buf)
	if err != nil {
		t.Fatalf("decode matrix: %v", err)
	}
	s, err := catalog.New(entries, m)
	if err != nil {
		t.Fatalf("build store: %v", err)
	}
	return s
}

func TestRecommendExample(t *testing.T) {
	Convey("Given catalog A, B, C with row A = [1.0, 0.9, 0.9]", t, func() {
		store := mustStore(t,
			[]catalog.Entry{{Title: "A", MovieID: 1}, {Title: "B", MovieID: 2}, {Title: "C", MovieID: 3}},
			[][]float64{{1.0, 0.9, 0.9}, {0.9, 1.0, 0.1}, {0.9, 0.1, 1.0}},
		)
		gw := &fakeGateway{
			posters:  map[int64]string{2: "pB", 3: "pC"},
			ratings:  map[int64]float64{2: 7.5},
			trailers: map[int64]string{3: "https://www.youtube.com/watch?v=c"},
		}
		r := New(store, gw)

		Convey("When recommending for A", func() {
			got, err := r.Recommend(context.Background(), "A")

			Convey("Then B and C are returned in row order at 90%", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, []types.Recommendation{
					{Title: "B", MovieID: 2, PosterURL: "pB", Rating: 7.5, Similarity: 90},
					{Title: "C", MovieID: 3, PosterURL: "pC", Similarity: 90, TrailerURL: "https://www.youtube.com/watch?v=c"},
				})
			})

			Convey("Then the movie itself is never considered", func() {
				So(gw.details, ShouldNotContain, int64(1))
			})
		})

		Convey("When recommending for an unknown title", func() {
			got, err := r.Recommend(context.Background(), "a")

			Convey("Then a NotFoundError is returned", func() {
				So(got, ShouldBeEmpty)
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
				var nf *NotFoundError
				So(errors.As(err, &nf), ShouldBeTrue)
				So(nf.Title, ShouldEqual, "a")
			})
		})

		Convey("When the gateway has no credential", func() {
			r := New(store, disabledGateway{})
			for _, title := range store.Titles() {
				got, err := r.Recommend(context.Background(), title)
				So(err, ShouldBeNil)
				So(got, ShouldBeEmpty)
			}
		})
	})
}

func TestRecommendLimitAndSkipping(t *testing.T) {
	Convey("Given twelve movies where odd ids lack posters", t, func() {
		const n = 12
		entries := make([]catalog.Entry, n)
		rows := make([][]float64, n)
		posters := map[int64]string{}
		for i := 0; i < n; i++ {
			id := int64(100 + i)
			entries[i] = catalog.Entry{Title: fmt.Sprintf("M%02d", i), MovieID: id}
			rows[i] = make([]float64, n)
			for j := 0; j < n; j++ {
				rows[i][j] = 1 - float64(abs(i-j))/n
			}
			if id%2 == 0 {
				posters[id] = fmt.Sprintf("p%d", id)
			}
		}
		gw := &fakeGateway{posters: posters}
		r := New(mustStore(t, entries, rows), gw)

		Convey("When recommending", func() {
			got, err := r.Recommend(context.Background(), "M00")

			Convey("Then at most five posterful results come back, best first", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, DefaultLimit)
				for i, rec := range got {
					So(rec.MovieID%2, ShouldEqual, int64(0))
					So(rec.Similarity, ShouldBeBetweenOrEqual, 0, 100)
					if i > 0 {
						So(rec.Similarity, ShouldBeLessThanOrEqualTo, got[i-1].Similarity)
					}
				}
			})

			Convey("Then trailers are only requested for accepted candidates", func() {
				So(len(gw.videos), ShouldEqual, len(got))
			})

			Convey("Then repeating the call yields identical results", func() {
				again, err := r.Recommend(context.Background(), "M00")
				So(err, ShouldBeNil)
				So(again, ShouldResemble, got)
			})
		})

		Convey("When a smaller limit is configured", func() {
			got, err := New(mustStore(t, entries, rows), gw, WithLimit(2)).Recommend(context.Background(), "M05")
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 2)
		})

		Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := r.Recommend(ctx, "M00")
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestRank(t *testing.T) {
	Convey("Given a row with ties", t, func() {
		row := []float64{0.3, 1.0, 0.7, 0.3, 0.7}

		Convey("When ranking for row 1", func() {
			got := Rank(row, 1)

			Convey("Then self is excluded and ties keep row order", func() {
				So(got, ShouldResemble, []Candidate{
					{Row: 2, Score: 0.7}, {Row: 4, Score: 0.7},
					{Row: 0, Score: 0.3}, {Row: 3, Score: 0.3},
				})
			})
		})
	})
}

func TestPercent(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0.9, 90},
		{0.12344, 12.34},
		{0.87656, 87.66},
		{0.56785, 56.78},
		{1, 100},
		{0, 0},
		{1.0000001, 100},
		{-0.2, 0},
	}
	for _, tc := range cases {
		if got := Percent(tc.in); got != tc.want {
			t.Errorf("Percent(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
