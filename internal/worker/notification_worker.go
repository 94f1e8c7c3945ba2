package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// AsyncDispatcher queues published events and delivers them to an inner
// dispatcher from a single goroutine, so slow notification handlers never
// hold up a request.
type AsyncDispatcher struct {
	inner  events.Dispatcher
	queue  chan queued
	logger *zap.Logger
	wg     sync.WaitGroup
}

type queued struct {
	ctx   context.Context
	event events.Event
}

// NewAsyncDispatcher wraps inner with a queue of the given size.
func NewAsyncDispatcher(inner events.Dispatcher, buffer int, logger *zap.Logger) *AsyncDispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	return &AsyncDispatcher{inner: inner, queue: make(chan queued, buffer), logger: logger}
}

// Publish enqueues the event. A full queue drops the event with a warning.
func (d *AsyncDispatcher) Publish(ctx context.Context, event events.Event) error {
	select {
	case d.queue <- queued{ctx: context.WithoutCancel(ctx), event: event}:
	default:
		d.logger.Warn("notification queue full; dropping event",
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID))
	}
	return nil
}

// Subscribe registers handler on the inner dispatcher.
func (d *AsyncDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {
	d.inner.Subscribe(eventType, handler)
}

// Run delivers queued events until ctx is done, then drains what is left.
func (d *AsyncDispatcher) Run(ctx context.Context) {
	d.wg.Add(1)
	defer d.wg.Done()
	for {
		select {
		case item := <-d.queue:
			d.deliver(item)
		case <-ctx.Done():
			for {
				select {
				case item := <-d.queue:
					d.deliver(item)
				default:
					return
				}
			}
		}
	}
}

// Wait blocks until Run has returned.
func (d *AsyncDispatcher) Wait() {
	d.wg.Wait()
}

func (d *AsyncDispatcher) deliver(item queued) {
	if err := d.inner.Publish(item.ctx, item.event); err != nil {
		d.logger.Warn("notification handler failed",
			zap.String("event_type", string(item.event.Type)),
			zap.Int64("ticket_id", item.event.TicketID),
			zap.Error(err))
	}
}

// StartNotificationWorker registers notification handlers and starts
// delivering queued events in the background.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, dispatcher *AsyncDispatcher) {
	if notificationService == nil || dispatcher == nil {
		return
	}
	notificationService.RegisterHandlers()
	go dispatcher.Run(ctx)
}
