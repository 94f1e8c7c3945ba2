package persistence

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LocalLocker serializes work per ticket inside one process.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[int64]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker returns an empty keyed mutex.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: map[int64]*keyedLock{}}
}

// Lock blocks until the ticket is free or ctx is done.
func (l *LocalLocker) Lock(ctx context.Context, ticketID int64) (func(), error) {
	l.mu.Lock()
	k, ok := l.locks[ticketID]
	if !ok {
		k = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[ticketID] = k
	}
	k.refs++
	l.mu.Unlock()

	select {
	case k.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(ticketID, k, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() { once.Do(func() { l.release(ticketID, k, true) }) }, nil
}

func (l *LocalLocker) release(ticketID int64, k *keyedLock, held bool) {
	if held {
		<-k.ch
	}
	l.mu.Lock()
	k.refs--
	if k.refs == 0 {
		delete(l.locks, ticketID)
	}
	l.mu.Unlock()
}

// ErrLockTimeout is returned when a Redis lock could not be taken in time.
var ErrLockTimeout = errors.New("ticket lock not acquired")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker serializes work per ticket across processes with SET NX PX.
// The lease expires after ttl so a crashed holder cannot block a ticket.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	logger *zap.Logger
}

// NewRedisLocker builds a distributed locker.
func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisLocker{client: client, ttl: ttl, retry: 50 * time.Millisecond, logger: logger}
}

func lockKey(ticketID int64) string {
	return "helpdesk:ticket-lock:" + strconv.FormatInt(ticketID, 10)
}

// Lock polls until the key is acquired or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, ticketID int64) (func(), error) {
	key := lockKey(ticketID)
	token := uuid.NewString()
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Join(ErrLockTimeout, ctx.Err())
			}
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrLockTimeout, ctx.Err())
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Warn("failed to release ticket lock", zap.Int64("ticket_id", ticketID), zap.Error(err))
			}
		})
	}, nil
}
