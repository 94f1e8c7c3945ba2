package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

type webhookSink struct {
	mu       sync.Mutex
	status   int
	bodies   [][]byte
	eventHdr []string
}

func (s *webhookSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.bodies = append(s.bodies, body)
	s.eventHdr = append(s.eventHdr, r.Header.Get("X-Helpdesk-Event"))
	status := s.status
	s.mu.Unlock()
	if status == 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
}

func (s *webhookSink) received() ([][]byte, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.bodies...), append([]string(nil), s.eventHdr...)
}

func newNotifier(t *testing.T, url string) (events.Dispatcher, *countingMetrics, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher()
	metrics := &countingMetrics{}
	NewNotificationService(NotificationDependencies{
		Dispatcher: dispatcher,
		Logger:     zap.New(core),
		Metrics:    metrics,
		Config:     config.NotificationConfig{WebhookURL: url},
	}).RegisterHandlers()
	return dispatcher, metrics, logs
}

func escalatedEvent() events.Event {
	return events.Event{
		ID:         "evt-1",
		Type:       events.EventTicketEscalated,
		TicketID:   9,
		TicketCode: "HD-ABCDEFGH",
		Actor:      events.Actor{Type: events.ActorSystem},
		Payload:    events.TicketEscalatedPayload{Reason: events.EscalationAssistantDown},
	}
}

func TestNotificationWebhookReceivesEventJSON(t *testing.T) {
	sink := &webhookSink{}
	server := httptest.NewServer(sink)
	defer server.Close()
	dispatcher, metrics, logs := newNotifier(t, server.URL)

	require.NoError(t, dispatcher.Publish(context.Background(), escalatedEvent()))

	bodies, headers := sink.received()
	require.Len(t, bodies, 1)
	assert.Equal(t, []string{string(events.EventTicketEscalated)}, headers)
	var got map[string]any
	require.NoError(t, json.Unmarshal(bodies[0], &got))
	assert.Equal(t, "evt-1", got["id"])
	assert.Equal(t, "HD-ABCDEFGH", got["ticket_code"])
	payload := got["payload"].(map[string]any)
	assert.Equal(t, string(events.EscalationAssistantDown), payload["reason"])
	assert.Equal(t, 0, metrics.count("webhook"))
	assert.Equal(t, 1, logs.FilterMessage("ticket event").Len())
}

func TestNotificationWebhookSkipsMessageEvents(t *testing.T) {
	sink := &webhookSink{}
	server := httptest.NewServer(sink)
	defer server.Close()
	dispatcher, _, logs := newNotifier(t, server.URL)

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: 9,
		Payload:  events.TicketMessageAddedPayload{BodyPreview: "hello"},
	})
	require.NoError(t, err)
	bodies, _ := sink.received()
	assert.Empty(t, bodies)
	assert.Equal(t, 1, logs.FilterMessage("ticket event").Len())
}

func TestNotificationWebhookFailureIsReported(t *testing.T) {
	sink := &webhookSink{status: http.StatusBadGateway}
	server := httptest.NewServer(sink)
	defer server.Close()
	dispatcher, metrics, _ := newNotifier(t, server.URL)

	err := dispatcher.Publish(context.Background(), escalatedEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, 1, metrics.count("webhook"))
}

func TestNotificationWithoutWebhookOnlyLogs(t *testing.T) {
	dispatcher, metrics, logs := newNotifier(t, "")

	require.NoError(t, dispatcher.Publish(context.Background(), escalatedEvent()))
	assert.Equal(t, 1, logs.FilterMessage("ticket event").Len())
	assert.Equal(t, 0, metrics.count("webhook"))
}
