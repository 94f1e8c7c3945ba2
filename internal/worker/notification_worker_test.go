package worker

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
)

func TestAsyncDispatcherDeliversQueuedEvents(t *testing.T) {
	inner := events.NewInMemoryDispatcher()
	async := NewAsyncDispatcher(inner, 8, zap.NewNop())

	var delivered atomic.Int32
	async.Subscribe(events.EventTicketCreated, func(context.Context, events.Event) error {
		delivered.Add(1)
		return nil
	})

	for i := 0; i < 3; i++ {
		assert.NoError(t, async.Publish(context.Background(), events.Event{Type: events.EventTicketCreated}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	async.Run(ctx)
	assert.Equal(t, int32(3), delivered.Load())
}

func TestAsyncDispatcherDropsWhenFull(t *testing.T) {
	async := NewAsyncDispatcher(events.NewInMemoryDispatcher(), 1, zap.NewNop())
	ctx := context.Background()
	assert.NoError(t, async.Publish(ctx, events.Event{Type: events.EventTicketCreated}))
	assert.NoError(t, async.Publish(ctx, events.Event{Type: events.EventTicketCreated}))
	assert.Len(t, async.queue, 1)
}
