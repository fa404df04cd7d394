package memo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

type entry struct {
	Poster string  `json:"poster"`
	Rating float64 `json:"rating"`
}

// fakeRedis keeps raw values and can be told to fail.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	fail error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return redis.NewStringResult("", f.fail)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return redis.NewStatusResult("", f.fail)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func TestInMemory(t *testing.T) {
	Convey("Given an in-memory store", t, func() {
		ctx := context.Background()
		s := NewInMemory[entry]()

		Convey("When nothing was stored", func() {
			_, ok := s.Get(ctx, "1")
			So(ok, ShouldBeFalse)
		})

		Convey("When a value is stored", func() {
			s.Put(ctx, "1", entry{Poster: "p", Rating: 7})
			v, ok := s.Get(ctx, "1")

			So(ok, ShouldBeTrue)
			So(v, ShouldResemble, entry{Poster: "p", Rating: 7})
			So(s.Len(), ShouldEqual, 1)
		})

		Convey("When used from many goroutines", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					s.Put(ctx, "k", entry{Rating: 1})
					_, _ = s.Get(ctx, "k")
				}()
			}
			wg.Wait()
			So(s.Len(), ShouldEqual, 1)
		})
	})
}

func TestRedis(t *testing.T) {
	Convey("Given a redis store with a prefix", t, func() {
		ctx := context.Background()
		client := newFakeRedis()
		s := NewRedis[entry](client, "cinematch:details:", time.Hour)

		Convey("When a value is stored", func() {
			s.Put(ctx, "42", entry{Poster: "p", Rating: 6.5})

			Convey("Then it is JSON under the prefixed key with the ttl", func() {
				So(client.data["cinematch:details:42"], ShouldEqual, `{"poster":"p","rating":6.5}`)
				So(client.ttls["cinematch:details:42"], ShouldEqual, time.Hour)
			})

			Convey("Then it reads back", func() {
				v, ok := s.Get(ctx, "42")
				So(ok, ShouldBeTrue)
				So(v.Rating, ShouldEqual, 6.5)
			})
		})

		Convey("When the key is absent", func() {
			_, ok := s.Get(ctx, "7")
			So(ok, ShouldBeFalse)
		})

		Convey("When the stored value is garbage", func() {
			client.data["cinematch:details:9"] = "not json"
			v, ok := s.Get(ctx, "9")
			So(ok, ShouldBeFalse)
			So(v, ShouldResemble, entry{})
		})

		Convey("When redis fails", func() {
			client.fail = errors.New("connection refused")
			s.Put(ctx, "1", entry{Poster: "p"})
			_, ok := s.Get(ctx, "1")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestTiered(t *testing.T) {
	Convey("Given near and far stores", t, func() {
		ctx := context.Background()
		near := NewInMemory[string]()
		far := NewInMemory[string]()
		s := NewTiered[string](near, far)

		Convey("When far holds a value", func() {
			far.Put(ctx, "k", "v")
			v, ok := s.Get(ctx, "k")

			Convey("Then it is returned and copied into near", func() {
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, "v")
				nv, nok := near.Get(ctx, "k")
				So(nok, ShouldBeTrue)
				So(nv, ShouldEqual, "v")
			})
		})

		Convey("When writing", func() {
			s.Put(ctx, "a", "b")
			So(near.Len(), ShouldEqual, 1)
			So(far.Len(), ShouldEqual, 1)
		})

		Convey("When far is nil", func() {
			So(NewTiered[string](near, nil), ShouldEqual, near)
		})
	})
}

func TestInstrumented(t *testing.T) {
	Convey("Given an instrumented store", t, func() {
		ctx := context.Background()
		inner := NewInMemory[int]()
		s := WithMetrics[int]("test", inner)

		s.Put(ctx, "x", 3)
		v, ok := s.Get(ctx, "x")
		So(ok, ShouldBeTrue)
		So(v, ShouldEqual, 3)
		_, ok = s.Get(ctx, "y")
		So(ok, ShouldBeFalse)
	})
}
