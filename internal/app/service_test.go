package service_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/cinematch/internal/app"
	"github.com/okian/cinematch/internal/domain/catalog"
	"github.com/okian/cinematch/internal/domain/recommend"
	"github.com/okian/cinematch/internal/domain/types"
	"github.com/okian/cinematch/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

type posterGateway struct{}

func (posterGateway) FetchDetails(_ context.Context, id int64) (types.Details, bool) {
	return types.Details{PosterURL: "p", Rating: float64(id)}, true
}

func (posterGateway) FetchTrailer(context.Context, int64) (string, bool) { return "", false }

func encodeArtifacts(t *testing.T) ([]byte, []byte) {
	t.Helper()
	var cat, mat bytes.Buffer
	entries := []catalog.Entry{{Title: "A", MovieID: 1}, {Title: "B", MovieID: 2}, {Title: "C", MovieID: 3}}
	rows := [][]float64{{1, 0.9, 0.9}, {0.9, 1, 0.4}, {0.9, 0.4, 1}}
	if err := catalog.WriteCatalog(&cat, entries); err != nil {
		t.Fatal(err)
	}
	if err := catalog.WriteMatrix(&mat, rows); err != nil {
		t.Fatal(err)
	}
	return cat.Bytes(), mat.Bytes()
}

func writeArtifacts(t *testing.T) (string, string) {
	t.Helper()
	cat, mat := encodeArtifacts(t)
	dir := t.TempDir()
	catPath, matPath := filepath.Join(dir, "catalog.bin"), filepath.Join(dir, "similarity.bin")
	if err := os.WriteFile(catPath, cat, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(matPath, mat, 0o600); err != nil {
		t.Fatal(err)
	}
	return catPath, matPath
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["loaded"], ShouldEqual, false)
			So(stats["resultLimit"], ShouldEqual, recommend.DefaultLimit)
			So(stats["gatewayEnabled"], ShouldEqual, false)
		})

		Convey("Then it is not ready", func() {
			So(errors.Is(svc.Ready(), service.ErrUnavailable), ShouldBeTrue)
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given artifacts on disk", t, func() {
		catPath, matPath := writeArtifacts(t)
		svc := service.New(
			service.WithArtifactPaths(catPath, matPath),
			service.WithGateway(posterGateway{}),
		)
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := svc.Start(ctx)

		Convey("Then it should start and be ready", func() {
			So(err, ShouldBeNil)
			So(svc.Ready(), ShouldBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["catalogEntries"], ShouldEqual, 3)
		})

		Convey("When listing titles", func() {
			titles, err := svc.Titles(ctx)
			So(err, ShouldBeNil)
			So(titles, ShouldResemble, []string{"A", "B", "C"})
		})

		Convey("When recommending", func() {
			recs, err := svc.Recommend(ctx, "A")

			So(err, ShouldBeNil)
			So(len(recs), ShouldEqual, 2)
			So(recs[0].Title, ShouldEqual, "B")
			So(recs[1].Title, ShouldEqual, "C")
			So(svc.GetStats()["requestsServed"], ShouldEqual, int64(1))
		})

		Convey("When recommending an unknown title", func() {
			_, err := svc.Recommend(ctx, "Z")
			So(errors.Is(err, recommend.ErrNotFound), ShouldBeTrue)
		})

		Convey("When starting twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
		})
	})

	Convey("Given missing artifacts and no download URL", t, func() {
		dir := t.TempDir()
		svc := service.New(service.WithArtifactPaths(filepath.Join(dir, "c.bin"), filepath.Join(dir, "m.bin")))
		err := svc.Start(context.Background())

		Convey("Then start succeeds but every query is unavailable", func() {
			So(err, ShouldBeNil)
			So(errors.Is(svc.Ready(), service.ErrUnavailable), ShouldBeTrue)
			So(errors.Is(svc.Ready(), catalog.ErrLoad), ShouldBeTrue)

			_, rerr := svc.Recommend(context.Background(), "A")
			So(errors.Is(rerr, service.ErrUnavailable), ShouldBeTrue)
			_, terr := svc.Titles(context.Background())
			So(errors.Is(terr, service.ErrUnavailable), ShouldBeTrue)
			So(svc.GetStats()["loadError"], ShouldNotBeEmpty)
		})
	})

	Convey("Given artifacts served over HTTP", t, func() {
		cat, mat := encodeArtifacts(t)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/catalog.bin":
				_, _ = w.Write(cat)
			case "/similarity.bin":
				_, _ = w.Write(mat)
			default:
				http.NotFound(w, r)
			}
		}))
		defer srv.Close()
		dir := t.TempDir()

		svc := service.New(
			service.WithArtifactPaths(filepath.Join(dir, "catalog.bin"), filepath.Join(dir, "similarity.bin")),
			service.WithArtifactURLs(srv.URL+"/catalog.bin", srv.URL+"/similarity.bin"),
			service.WithHTTPClient(srv.Client()),
		)
		So(svc.Start(context.Background()), ShouldBeNil)

		Convey("Then they are downloaded and loaded", func() {
			So(svc.Ready(), ShouldBeNil)
			_, err := os.Stat(filepath.Join(dir, "similarity.bin"))
			So(err, ShouldBeNil)
		})

		Convey("Then recommendations are empty without a gateway", func() {
			recs, err := svc.Recommend(context.Background(), "B")
			So(err, ShouldBeNil)
			So(recs, ShouldBeEmpty)
		})
	})
}

func TestService_Stop(t *testing.T) {
	Convey("Given a started service", t, func() {
		catPath, matPath := writeArtifacts(t)
		svc := service.New(service.WithArtifactPaths(catPath, matPath))
		So(svc.Start(context.Background()), ShouldBeNil)

		Convey("When stopping the service", func() {
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, false)
			})
		})
	})
}
