package memo

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/okian/cinematch/pkg/logger"
)

// RedisClient is the subset of redis.Cmdable the memo uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Redis stores JSON-encoded values in redis under a key prefix.
// Redis errors read as misses.
type Redis[V any] struct {
	client RedisClient
	prefix string
	ttl    time.Duration
	log    logger.Logger
}

// NewRedis returns a redis-backed store. A zero ttl keeps keys forever.
func NewRedis[V any](client RedisClient, prefix string, ttl time.Duration) *Redis[V] {
	return &Redis[V]{client: client, prefix: prefix, ttl: ttl, log: logger.Nop()}
}

// WithLogger sets the logger used for redis failures.
func (s *Redis[V]) WithLogger(l logger.Logger) *Redis[V] {
	if l != nil {
		s.log = l
	}
	return s
}

func (s *Redis[V]) key(k string) string { return s.prefix + k }

func (s *Redis[V]) Get(ctx context.Context, key string) (V, bool) {
	var v V
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return v, false
	}
	if err != nil {
		s.log.Debug(ctx, "memo get failed", logger.String("key", s.key(key)), logger.Error(err))
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		s.log.Debug(ctx, "memo value undecodable", logger.String("key", s.key(key)), logger.Error(err))
		var zero V
		return zero, false
	}
	return v, true
}

func (s *Redis[V]) Put(ctx context.Context, key string, v V) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Debug(ctx, "memo value unencodable", logger.String("key", s.key(key)), logger.Error(err))
		return
	}
	if err := s.client.Set(ctx, s.key(key), data, s.ttl).Err(); err != nil {
		s.log.Debug(ctx, "memo put failed", logger.String("key", s.key(key)), logger.Error(err))
	}
}
