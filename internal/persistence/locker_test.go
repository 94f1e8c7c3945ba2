package persistence

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalLockerSerializesSameTicket(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, 1)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		u, err := locker.Lock(ctx, 1)
		if err == nil {
			close(acquired)
			u()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first is held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
}

func TestLocalLockerIndependentTickets(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()
	u1, err := locker.Lock(ctx, 1)
	require.NoError(t, err)
	u2, err := locker.Lock(ctx, 2)
	require.NoError(t, err)
	u1()
	u2()
	u1()
	assert.Empty(t, locker.locks)
}

func TestLocalLockerHonorsContext(t *testing.T) {
	locker := NewLocalLocker()
	unlock, err := locker.Lock(context.Background(), 7)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, 7)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocalLockerCounterUnderContention(t *testing.T) {
	locker := NewLocalLocker()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), 3)
			if err != nil {
				return
			}
			counter++
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR is not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	locker := NewRedisLocker(client, 5*time.Second, zap.NewNop())
	ctx := context.Background()
	ticketID := time.Now().UnixNano()

	unlock, err := locker.Lock(ctx, ticketID)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 120*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(short, ticketID)
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	unlock2, err := locker.Lock(ctx, ticketID)
	require.NoError(t, err)
	unlock2()
}
