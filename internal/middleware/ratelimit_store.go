package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateStore counts hits per key inside a fixed window. Implementations must
// be safe for concurrent use.
type RateStore interface {
	// Incr increments the counter for key and returns the new count. The
	// counter resets once window elapses from its first hit.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

// MemoryRateStore is a process-local RateStore, suitable for single-instance
// deployments and tests.
type MemoryRateStore struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

// NewMemoryRateStore constructs an empty in-process store.
func NewMemoryRateStore() *MemoryRateStore {
	return &MemoryRateStore{
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

func (s *MemoryRateStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &memoryWindow{resetAt: now.Add(window)}
		s.windows[key] = w
	}

	w.count++
	return w.count, nil
}

// RedisRateStore counts hits in Redis so the limit holds across instances.
type RedisRateStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisRateStore constructs a RateStore over the given Redis client.
func NewRedisRateStore(client redis.UniversalClient) *RedisRateStore {
	return &RedisRateStore{client: client, prefix: "ratelimit:"}
}

func (s *RedisRateStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	redisKey := s.prefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	// NX keeps the window anchored at the first hit.
	pipe.ExpireNX(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	return incr.Val(), nil
}
