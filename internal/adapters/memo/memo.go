// Package memo provides per-key memo stores for upstream answers.
package memo

import (
	"context"
	"sync"

	"github.com/okian/cinematch/pkg/metrics"
)

// Store remembers values by key. Implementations are safe for concurrent use.
type Store[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Put(ctx context.Context, key string, v V)
}

// InMemory is a mutex-guarded map without eviction.
type InMemory[V any] struct {
	mu sync.RWMutex
	m  map[string]V
}

// NewInMemory returns an empty in-process store.
func NewInMemory[V any]() *InMemory[V] {
	return &InMemory[V]{m: make(map[string]V)}
}

func (s *InMemory[V]) Get(_ context.Context, key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

func (s *InMemory[V]) Put(_ context.Context, key string, v V) {
	s.mu.Lock()
	s.m[key] = v
	s.mu.Unlock()
}

// Len returns the number of remembered keys.
func (s *InMemory[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Tiered reads near before far and backfills near on a far hit.
type Tiered[V any] struct {
	near Store[V]
	far  Store[V]
}

// NewTiered stacks two stores. A nil far store yields near unchanged.
func NewTiered[V any](near, far Store[V]) Store[V] {
	if far == nil {
		return near
	}
	return &Tiered[V]{near: near, far: far}
}

func (t *Tiered[V]) Get(ctx context.Context, key string) (V, bool) {
	if v, ok := t.near.Get(ctx, key); ok {
		return v, true
	}
	v, ok := t.far.Get(ctx, key)
	if ok {
		t.near.Put(ctx, key, v)
	}
	return v, ok
}

func (t *Tiered[V]) Put(ctx context.Context, key string, v V) {
	t.near.Put(ctx, key, v)
	t.far.Put(ctx, key, v)
}

// Instrumented records hit and miss counts under name.
type Instrumented[V any] struct {
	name  string
	inner Store[V]
}

// WithMetrics wraps s so every Get is counted.
func WithMetrics[V any](name string, s Store[V]) Store[V] {
	return &Instrumented[V]{name: name, inner: s}
}

func (s *Instrumented[V]) Get(ctx context.Context, key string) (V, bool) {
	v, ok := s.inner.Get(ctx, key)
	metrics.RecordMemoLookup(s.name, ok)
	return v, ok
}

func (s *Instrumented[V]) Put(ctx context.Context, key string, v V) {
	s.inner.Put(ctx, key, v)
}
