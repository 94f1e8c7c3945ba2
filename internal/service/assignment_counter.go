package service

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Counter hands out a strictly increasing sequence per key.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
}

// RotationCounter rotates through candidates with a persisted per-specialty
// counter, giving strict round robin under concurrent escalations. When the
// counter is unreachable it degrades to HistoryRoundRobin.
type RotationCounter struct {
	Counter  Counter
	Fallback AssignmentStrategy
	Logger   *zap.Logger
}

// Name identifies the strategy in logs.
func (r RotationCounter) Name() string { return "counter" }

// Pick bumps the specialty's counter and returns the candidate at that
// position, wrapping around the list.
func (r RotationCounter) Pick(ctx context.Context, reader repository.Reader, specialty string, candidates []domain.Analyst) (*domain.Analyst, error) {
	n, err := r.Counter.Incr(ctx, rotationKey(specialty))
	if err != nil {
		if r.Logger != nil {
			r.Logger.Warn("rotation counter unavailable; using ticket history", zap.Error(err))
		}
		fallback := r.Fallback
		if fallback == nil {
			fallback = HistoryRoundRobin{}
		}
		return fallback.Pick(ctx, reader, specialty, candidates)
	}
	idx := int((n - 1) % int64(len(candidates)))
	if idx < 0 {
		idx += len(candidates)
	}
	return &candidates[idx], nil
}

func rotationKey(specialty string) string {
	return "helpdesk:assignment:rotation:" + strings.ToLower(strings.TrimSpace(specialty))
}

// RedisCounter stores rotation counters with INCR.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter wraps a go-redis client.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

// Incr increments key with INCR and returns the new value.
func (c *RedisCounter) Incr(ctx context.Context, key string) (int64, error) {
	return c.client.Incr(ctx, key).Result()
}

// MemoryCounter keeps counters in process.
type MemoryCounter struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewMemoryCounter returns an empty counter set.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{values: map[string]int64{}}
}

// Incr increments key and returns the new value.
func (c *MemoryCounter) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key]++
	return c.values[key], nil
}
