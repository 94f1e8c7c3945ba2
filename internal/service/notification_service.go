package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

const defaultWebhookTimeout = 5 * time.Second

// webhookEvents are forwarded to the webhook. Message events are only logged.
var webhookEvents = map[events.EventType]bool{
	events.EventTicketCreated:       true,
	events.EventTicketStatusChanged: true,
	events.EventTicketAssigned:      true,
	events.EventTicketEscalated:     true,
	events.EventTicketDeleted:       true,
}

// NotificationService logs ticket events and posts the relevant ones as JSON
// to the configured webhook.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    CollaboratorMetrics
	webhookURL string
	timeout    time.Duration
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    CollaboratorMetrics
	Config     config.NotificationConfig
}

// NewNotificationService creates the service. An empty webhook URL disables
// delivery.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	timeout := time.Duration(deps.Config.WebhookTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		webhookURL: strings.TrimSpace(deps.Config.WebhookURL),
		timeout:    timeout,
	}
}

// RegisterHandlers subscribes to every ticket event.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketAssigned,
		events.EventTicketEscalated,
		events.EventTicketMessageAdded,
		events.EventTicketDeleted,
	} {
		n.dispatcher.Subscribe(eventType, n.notify)
	}
}

func (n *NotificationService) notify(_ context.Context, event events.Event) error {
	n.logger.Info("ticket event",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("ticket_code", event.TicketCode),
		zap.Any("payload", event.Payload),
	)
	if n.webhookURL == "" || !webhookEvents[event.Type] {
		return nil
	}
	if err := n.postWebhook(event); err != nil {
		if n.metrics != nil {
			n.metrics.RecordCollaboratorFailure("webhook")
		}
		return err
	}
	return nil
}

func (n *NotificationService) postWebhook(event events.Event) error {
	agent := fiber.Post(n.webhookURL).
		Set("X-Helpdesk-Event", string(event.Type)).
		Set("X-Helpdesk-Event-ID", event.ID).
		Timeout(n.timeout).
		JSON(event)
	status, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("webhook %s: %w", event.Type, errors.Join(errs...))
	}
	if status < fiber.StatusOK || status >= fiber.StatusMultipleChoices {
		return fmt.Errorf("webhook %s: unexpected status %d", event.Type, status)
	}
	return nil
}
