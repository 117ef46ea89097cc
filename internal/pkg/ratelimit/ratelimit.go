package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Limiter decides whether an action keyed by a client identity (IP) may
// proceed. Allow records the action when it is permitted, so a denied call
// has no side effects.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// New returns a Redis-backed sliding-window limiter, or an in-memory one
// when no Redis client is configured.
func New(client *redis.Client, limit int, window time.Duration) Limiter {
	if client == nil {
		log.Warn().Msg("Rate limiting without Redis, using in-memory window")
		return NewMemoryLimiter(limit, window)
	}
	return NewRedisLimiter(client, limit, window)
}

// RedisLimiter implements a sliding window over a Redis sorted set per key.
// Member scores are event timestamps; entries older than the window are
// trimmed on every check.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisLimiter creates a Redis sliding-window limiter
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

// Allow trims, records and counts in a single MULTI/EXEC so two concurrent
// requests at the boundary cannot both slip under the limit. The tentatively
// added member is removed again when the request is denied, keeping denied
// calls free of side effects.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	redisKey := "ratelimit:create:" + key
	cutoff := now.Add(-l.window).UnixNano()
	member := uuid.New().String()

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", cutoff))
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: member,
	})
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	if countCmd.Val() > int64(l.limit) {
		if err := l.client.ZRem(ctx, redisKey, member).Err(); err != nil {
			return false, fmt.Errorf("rate limit rollback failed: %w", err)
		}
		return false, nil
	}

	return true, nil
}

// MemoryLimiter is the single-process fallback. Same sliding-window
// semantics, kept in a map of recent event times per key.
type MemoryLimiter struct {
	mu     sync.Mutex
	events map[string][]time.Time
	limit  int
	window time.Duration
}

// NewMemoryLimiter creates an in-memory sliding-window limiter
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		events: make(map[string][]time.Time),
		limit:  limit,
		window: window,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)

	kept := l.events[key][:0]
	for _, t := range l.events[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.limit {
		l.events[key] = kept
		return false, nil
	}

	l.events[key] = append(kept, now)
	return true, nil
}
