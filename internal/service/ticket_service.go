package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/assistant"
	"github.com/spec-kit/helpdesk-service/internal/audit"
	"github.com/spec-kit/helpdesk-service/internal/blobstore"
	"github.com/spec-kit/helpdesk-service/internal/clock"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	// DefaultAssistantName is the sender name of assistant messages.
	DefaultAssistantName = "NextLayer Assistant"
	// DefaultReopenWindow is how long a completed ticket accepts client messages.
	DefaultReopenWindow = 72 * time.Hour

	fallbackSenderName = "System"
	fallbackReply      = "Our assistant is unavailable right now. Your ticket was forwarded to the support team and an analyst will reply shortly."
	uploadRoot         = "uploads/tickets"
	maxCodeAttempts    = 5
	// replyWriteTimeout bounds the writes that follow an assistant call. They
	// run detached from the request so a fallback is stored even after the
	// request deadline has passed.
	replyWriteTimeout = 10 * time.Second

	// RecentOpenWindow is how far back the status report looks for new tickets.
	RecentOpenWindow = 7 * 24 * time.Hour
	recentOpenLimit  = 50
)

// reportClosedStatuses are left out of the open-ticket figures of the report.
var reportClosedStatuses = []domain.TicketStatus{
	domain.TicketStatusCompleted,
	domain.TicketStatusClosed,
	domain.TicketStatusCancelled,
}

// TicketLocker serializes mutations of one ticket.
type TicketLocker interface {
	Lock(ctx context.Context, ticketID int64) (func(), error)
}

// CollaboratorMetrics counts swallowed collaborator failures.
type CollaboratorMetrics interface {
	RecordCollaboratorFailure(collaborator string)
}

// TicketService owns the ticket state machine: it decides when the assistant
// answers, hands tickets to analysts and keeps every write in one audited
// transaction.
type TicketService struct {
	store         repository.Store
	assistant     assistant.Assistant
	blobs         blobstore.Store
	assignment    *AssignmentService
	locker        TicketLocker
	dispatcher    events.Dispatcher
	clock         clock.Clock
	logger        *zap.Logger
	metrics       CollaboratorMetrics
	assistantName string
	reopenWindow  time.Duration
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store         repository.Store
	Assistant     assistant.Assistant
	Blobs         blobstore.Store
	Assignment    *AssignmentService
	Locker        TicketLocker
	Dispatcher    events.Dispatcher
	Clock         clock.Clock
	Logger        *zap.Logger
	Metrics       CollaboratorMetrics
	AssistantName string
	ReopenWindow  time.Duration
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Attachments []blobstore.Upload
}

// TicketUpdateInput replaces the mutable ticket fields wholesale.
type TicketUpdateInput struct {
	Status    domain.TicketStatus
	Priority  domain.TicketPriority
	TeamTag   *string
	AnalystID *int64
}

// TicketListOptions paginates list queries.
type TicketListOptions struct {
	Limit  int
	Offset int
}

// StatusReport is the staff dashboard. Open figures exclude completed,
// closed and cancelled tickets.
type StatusReport struct {
	ByStatus       []repository.StatusCount
	OpenTotal      int
	OpenByPriority []repository.PriorityCount
	RecentOpen     []domain.Ticket
	RecentSince    time.Time
}

// TicketDetail is the read model of one ticket.
type TicketDetail struct {
	Ticket      domain.Ticket
	ClientName  string
	AnalystName string
	Messages    []domain.Message
	Attachments []domain.Attachment
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	if deps.Assistant == nil {
		deps.Assistant = assistant.Unavailable{}
	}
	if deps.Assignment == nil {
		deps.Assignment = NewAssignmentService(AssignmentDependencies{Logger: deps.Logger})
	}
	if deps.Locker == nil {
		deps.Locker = persistence.NewLocalLocker()
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if strings.TrimSpace(deps.AssistantName) == "" {
		deps.AssistantName = DefaultAssistantName
	}
	if deps.ReopenWindow <= 0 {
		deps.ReopenWindow = DefaultReopenWindow
	}
	return &TicketService{
		store:         deps.Store,
		assistant:     deps.Assistant,
		blobs:         deps.Blobs,
		assignment:    deps.Assignment,
		locker:        deps.Locker,
		dispatcher:    deps.Dispatcher,
		clock:         deps.Clock,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
		assistantName: deps.AssistantName,
		reopenWindow:  deps.ReopenWindow,
	}
}

// CreateTicket opens a ticket for a client. The assistant answers before the
// write; the ticket, its attachments and its three opening messages are
// committed together. The ticket stays with the assistant unless the
// assistant fails, in which case it goes straight to the analyst queue.
func (s *TicketService) CreateTicket(ctx context.Context, clientID int64, input TicketCreateInput) (*TicketDetail, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description are required", map[string]any{
			"title":       title != "",
			"description": description != "",
		})
	}
	actor := domain.Identity{ID: clientID, Role: domain.RoleClient}
	ctx = audit.WithActor(ctx, actor)

	client, err := s.store.GetClient(ctx, clientID)
	if err != nil {
		return nil, notFound(err, "client", map[string]any{"client_id": clientID})
	}
	code, err := s.allocateCode(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ticket := &domain.Ticket{
		Code:        code,
		ClientID:    client.ID,
		Title:       title,
		Description: description,
		OpenedAt:    now,
		Status:      domain.TicketStatusOpenAI,
		Priority:    domain.TicketPriorityMedium,
	}
	attachments := s.saveAttachments(ctx, code, input.Attachments, now)

	messages := []domain.Message{
		{Content: description, SentAt: now, SenderName: client.Name, Sender: domain.ClientSender(client.ID)},
		{Content: s.greeting(), SentAt: now.Add(time.Second), SenderName: s.assistantName, Sender: domain.AssistantSender()},
	}
	reply, replyErr := s.assistant.GenerateReply(ctx, assistant.Request{
		TicketCode:    code,
		Title:         title,
		Description:   description,
		Transcript:    assistant.TranscriptFrom(messages),
		LatestMessage: description,
	})
	outcome := s.replyOutcome(ticket, reply, replyErr)
	if outcome.reason != events.EscalationAssistantDown {
		outcome.escalate = false
	}
	outcome.message.SentAt = now.Add(2 * time.Second)
	messages = append(messages, outcome.message)

	ctx, cancel := detached(ctx)
	defer cancel()

	var assigned *domain.Analyst
	err = s.withTx(ctx, func(tx repository.Tx) error {
		if outcome.escalate {
			ticket.Status = domain.TicketStatusAwaitingAnalyst
			assigned, err = s.assignFor(ctx, tx, ticket, outcome.category)
			if err != nil {
				return err
			}
		}
		if err := tx.CreateTicket(ctx, ticket); err != nil {
			return err
		}
		for i := range attachments {
			attachments[i].TicketID = ticket.ID
			if err := tx.CreateAttachment(ctx, &attachments[i]); err != nil {
				return err
			}
		}
		for i := range messages {
			messages[i].TicketID = ticket.ID
			if err := tx.CreateMessage(ctx, &messages[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket created",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("ticket_code", ticket.Code),
		zap.String("status", string(ticket.Status)),
		zap.Int("attachments", len(attachments)),
		zap.Int("attachments_requested", len(input.Attachments)),
	)
	s.publishEvent(ctx, ticket, actorOf(actor), events.EventTicketCreated, events.TicketCreatedPayload{
		ClientID:    ticket.ClientID,
		Title:       ticket.Title,
		Status:      ticket.Status,
		Priority:    ticket.Priority,
		Attachments: len(attachments),
	})
	s.publishEscalation(ctx, ticket, outcome, nil, assigned)

	detail := &TicketDetail{
		Ticket:      *ticket,
		ClientName:  client.Name,
		Messages:    messages,
		Attachments: attachments,
	}
	if assigned != nil {
		detail.AnalystName = assigned.Name
	}
	return detail, nil
}

// AddMessage appends a message from a client or an employee and returns the
// ticket's full message list. The triggering message is committed before the
// assistant is called; its reply goes in a second transaction.
func (s *TicketService) AddMessage(ctx context.Context, actor domain.Identity, ticketID int64, content string) ([]domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("message content is required", nil)
	}
	if actor.Role != domain.RoleClient && actor.Role != domain.RoleEmployee {
		return nil, apperrors.NewForbidden("unknown sender role")
	}
	ctx = audit.WithActor(ctx, actor)

	unlock, err := s.locker.Lock(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	var (
		ticket     *domain.Ticket
		before     domain.Ticket
		message    domain.Message
		transcript []domain.Message
		askBot     bool
	)
	err = s.withTx(ctx, func(tx repository.Tx) error {
		ticket, err = tx.LockTicket(ctx, ticketID)
		if err != nil {
			return notFound(err, "ticket", map[string]any{"ticket_id": ticketID})
		}
		before = *ticket.Clone()
		now := s.clock.Now()

		var sender domain.Sender
		var senderName string
		switch actor.Role {
		case domain.RoleClient:
			if ticket.ClientID != actor.ID {
				return apperrors.NewForbidden("ticket belongs to another client")
			}
			if ticket.BlockedForClient(now, s.reopenWindow) {
				return apperrors.NewConflict("ticket is closed", map[string]any{
					"ticket_id": ticketID,
					"status":    ticket.Status,
				})
			}
			client, err := tx.GetClient(ctx, actor.ID)
			if err != nil {
				return notFound(err, "client", map[string]any{"client_id": actor.ID})
			}
			sender, senderName = domain.ClientSender(client.ID), client.Name
			askBot = !ticket.AnalystEngaged
		case domain.RoleEmployee:
			analyst, err := tx.GetAnalyst(ctx, actor.ID)
			if err != nil {
				return notFound(err, "analyst", map[string]any{"analyst_id": actor.ID})
			}
			sender, senderName = domain.EmployeeSender(analyst.ID), analyst.Name
			if engageAnalyst(ticket, analyst.ID) {
				if err := tx.UpdateTicket(ctx, ticket); err != nil {
					return err
				}
			}
		}

		transcript, err = tx.ListMessages(ctx, ticket.ID)
		if err != nil {
			return err
		}
		message = domain.Message{
			TicketID:   ticket.ID,
			Content:    content,
			SentAt:     notBefore(now, transcript),
			SenderName: senderName,
			Sender:     sender,
		}
		if err := tx.CreateMessage(ctx, &message); err != nil {
			return err
		}
		transcript = append(transcript, message)
		return nil
	})
	unlock()
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, ticket, actorOf(actor), events.EventTicketMessageAdded, messagePayload(message))
	s.publishTicketChanges(ctx, actorOf(actor), &before, ticket)

	if askBot {
		if err := s.answerClient(ctx, ticket, transcript, content); err != nil {
			return nil, err
		}
	}

	readCtx, cancel := detached(ctx)
	defer cancel()
	messages, err := s.store.ListMessages(readCtx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return messages, nil
}

// answerClient asks the assistant about the latest client message and stores
// its reply, unless an analyst engaged while the assistant was thinking. The
// ticket lock is not held during the assistant call.
func (s *TicketService) answerClient(ctx context.Context, ticket *domain.Ticket, transcript []domain.Message, latest string) error {
	reply, replyErr := s.assistant.GenerateReply(ctx, assistant.Request{
		TicketCode:    ticket.Code,
		Title:         ticket.Title,
		Description:   ticket.Description,
		Transcript:    assistant.TranscriptFrom(transcript),
		LatestMessage: latest,
	})

	ctx, cancel := detached(ctx)
	defer cancel()
	unlock, err := s.locker.Lock(ctx, ticket.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	defer unlock()

	var (
		current  *domain.Ticket
		before   domain.Ticket
		outcome  replyOutcome
		assigned *domain.Analyst
		dropped  bool
	)
	err = s.withTx(ctx, func(tx repository.Tx) error {
		var err error
		current, err = tx.LockTicket(ctx, ticket.ID)
		if err != nil {
			return notFound(err, "ticket", map[string]any{"ticket_id": ticket.ID})
		}
		if current.AnalystEngaged {
			dropped = true
			return nil
		}
		before = *current.Clone()
		outcome = s.replyOutcome(current, reply, replyErr)
		if outcome.escalate {
			current.Status = domain.TicketStatusAwaitingAnalyst
			assigned, err = s.assignFor(ctx, tx, current, outcome.category)
			if err != nil {
				return err
			}
		}
		if current.Status != before.Status || !sameID(current.AnalystID, before.AnalystID) {
			if err := tx.UpdateTicket(ctx, current); err != nil {
				return err
			}
		}
		existing, err := tx.ListMessages(ctx, current.ID)
		if err != nil {
			return err
		}
		outcome.message.TicketID = current.ID
		outcome.message.SentAt = notBefore(s.clock.Now(), existing)
		return tx.CreateMessage(ctx, &outcome.message)
	})
	if err != nil {
		return err
	}
	if dropped {
		s.logger.Info("assistant reply discarded; analyst engaged",
			zap.Int64("ticket_id", ticket.ID),
			zap.String("ticket_code", ticket.Code),
		)
		return nil
	}

	system := events.Actor{Type: events.ActorSystem}
	s.publishEvent(ctx, current, system, events.EventTicketMessageAdded, messagePayload(outcome.message))
	s.publishStatusChange(ctx, system, &before, current)
	s.publishEscalation(ctx, current, outcome, before.AnalystID, assigned)
	return nil
}

type replyOutcome struct {
	message  domain.Message
	escalate bool
	reason   events.EscalationReason
	category string
}

// replyOutcome turns an assistant result into the message to store and the
// escalation decision. Any assistant error escalates to a human; a successful
// reply escalates only when it asks for a hand-off and names a category.
func (s *TicketService) replyOutcome(ticket *domain.Ticket, reply *assistant.Reply, err error) replyOutcome {
	if err != nil || reply == nil {
		if err == nil {
			err = errors.New("assistant returned no reply")
		}
		s.logger.Error("assistant failed; escalating to analysts",
			zap.String("ticket_code", ticket.Code),
			zap.Error(apperrors.NewCollaboratorFailure("assistant", err)),
		)
		s.recordFailure("assistant")
		return replyOutcome{
			message:  domain.Message{Content: fallbackReply, SenderName: fallbackSenderName, Sender: domain.AssistantSender()},
			escalate: true,
			reason:   events.EscalationAssistantDown,
		}
	}
	category := strings.TrimSpace(reply.SuggestedCategory)
	return replyOutcome{
		message:  domain.Message{Content: reply.Text, SenderName: s.assistantName, Sender: domain.AssistantSender()},
		escalate: reply.ShouldEscalate && category != "",
		reason:   events.EscalationRequested,
		category: category,
	}
}

// assignFor runs the balancer for category and assigns the winner to ticket.
// No category or no matching analyst leaves the current assignment untouched.
func (s *TicketService) assignFor(ctx context.Context, tx repository.Tx, ticket *domain.Ticket, category string) (*domain.Analyst, error) {
	if category == "" {
		return nil, nil
	}
	analyst, err := s.assignment.FindNextAnalyst(ctx, tx, category)
	if err != nil {
		return nil, err
	}
	if analyst == nil {
		s.logger.Warn("no analyst for suggested specialty",
			zap.String("ticket_code", ticket.Code),
			zap.String("specialty", category),
		)
		return nil, nil
	}
	id := analyst.ID
	ticket.AnalystID = &id
	s.logger.Info("ticket assigned by balancer",
		zap.String("ticket_code", ticket.Code),
		zap.String("specialty", category),
		zap.Int64("analyst_id", id),
		zap.String("strategy", s.assignment.Strategy()),
	)
	return analyst, nil
}

// engageAnalyst applies the effects of an employee message and reports
// whether the ticket changed.
func engageAnalyst(ticket *domain.Ticket, analystID int64) bool {
	changed := false
	if !ticket.AnalystEngaged {
		ticket.AnalystEngaged = true
		changed = true
	}
	if ticket.Status.AwaitingHuman() {
		ticket.Status = domain.TicketStatusInProgressAnalyst
		changed = true
	}
	if !ticket.AssignedTo(analystID) {
		id := analystID
		ticket.AnalystID = &id
		changed = true
	}
	return changed
}

// UpdateTicket overwrites status, priority, team tag and analyst.
func (s *TicketService) UpdateTicket(ctx context.Context, actor domain.Identity, ticketID int64, input TicketUpdateInput) (*domain.Ticket, error) {
	if actor.Role != domain.RoleEmployee {
		return nil, apperrors.NewForbidden("only analysts can update tickets")
	}
	if !input.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": input.Status})
	}
	if !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}
	if input.TeamTag != nil {
		tag := strings.TrimSpace(*input.TeamTag)
		if tag == "" {
			input.TeamTag = nil
		} else {
			input.TeamTag = &tag
		}
	}
	ctx = audit.WithActor(ctx, actor)

	unlock, err := s.locker.Lock(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer unlock()

	var ticket *domain.Ticket
	var before domain.Ticket
	err = s.withTx(ctx, func(tx repository.Tx) error {
		ticket, err = tx.LockTicket(ctx, ticketID)
		if err != nil {
			return notFound(err, "ticket", map[string]any{"ticket_id": ticketID})
		}
		before = *ticket.Clone()
		if before.Status == domain.TicketStatusClosed && input.Status == domain.TicketStatusCancelled {
			return apperrors.NewConflict("closed tickets cannot be cancelled", map[string]any{"ticket_id": ticketID})
		}
		if input.AnalystID != nil {
			if _, err := tx.GetAnalyst(ctx, *input.AnalystID); err != nil {
				return notFound(err, "analyst", map[string]any{"analyst_id": *input.AnalystID})
			}
		}
		applyUpdate(ticket, input, s.clock.Now())
		return tx.UpdateTicket(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket updated",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("ticket_code", ticket.Code),
		zap.String("old_status", string(before.Status)),
		zap.String("new_status", string(ticket.Status)),
	)
	s.publishTicketChanges(ctx, actorOf(actor), &before, ticket)
	return ticket, nil
}

// applyUpdate writes input over ticket and keeps the completion stamp
// consistent with the status change.
func applyUpdate(ticket *domain.Ticket, input TicketUpdateInput, now time.Time) {
	prev := ticket.Status
	ticket.Status = input.Status
	ticket.Priority = input.Priority
	ticket.TeamTag = input.TeamTag
	ticket.AnalystID = input.AnalystID

	switch {
	case ticket.Status == domain.TicketStatusCompleted && prev != domain.TicketStatusCompleted:
		stamp := now
		ticket.CompletedAt = &stamp
	case prev == domain.TicketStatusCompleted && ticket.Status != domain.TicketStatusCompleted && ticket.Status != domain.TicketStatusClosed:
		ticket.CompletedAt = nil
	}
	if input.AnalystID != nil {
		ticket.AnalystEngaged = true
	}
}

// DeleteTicket removes a ticket with its messages and attachments. Admin only.
func (s *TicketService) DeleteTicket(ctx context.Context, actor domain.Identity, ticketID int64) error {
	if actor.Role != domain.RoleEmployee || !actor.IsAdmin {
		return apperrors.NewForbidden("admin required")
	}
	ctx = audit.WithActor(ctx, actor)

	unlock, err := s.locker.Lock(ctx, ticketID)
	if err != nil {
		return apperrors.MapError(err)
	}
	defer unlock()

	var ticket *domain.Ticket
	err = s.withTx(ctx, func(tx repository.Tx) error {
		ticket, err = tx.LockTicket(ctx, ticketID)
		if err != nil {
			return notFound(err, "ticket", map[string]any{"ticket_id": ticketID})
		}
		return tx.DeleteTicket(ctx, ticketID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("ticket deleted",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("ticket_code", ticket.Code),
		zap.Int64("admin_id", actor.ID),
	)
	s.publishEvent(ctx, ticket, actorOf(actor), events.EventTicketDeleted, nil)
	return nil
}

// GetTicket returns the ticket with its messages and attachments. Clients can
// only read their own tickets.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Identity, ticketID int64) (*TicketDetail, error) {
	ticket, err := s.store.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, notFound(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if actor.Role == domain.RoleClient && ticket.ClientID != actor.ID {
		return nil, apperrors.NewForbidden("ticket belongs to another client")
	}
	messages, err := s.store.ListMessages(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	attachments, err := s.store.ListAttachments(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	detail := &TicketDetail{Ticket: *ticket, Messages: messages, Attachments: attachments}
	if client, err := s.store.GetClient(ctx, ticket.ClientID); err == nil {
		detail.ClientName = client.Name
	}
	if ticket.AnalystID != nil {
		if analyst, err := s.store.GetAnalyst(ctx, *ticket.AnalystID); err == nil {
			detail.AnalystName = analyst.Name
		}
	}
	return detail, nil
}

// ListOpenTickets returns every ticket that is not closed, most urgent first,
// oldest first within a priority.
func (s *TicketService) ListOpenTickets(ctx context.Context, opts TicketListOptions) ([]domain.Ticket, error) {
	return s.listTickets(ctx, repository.TicketFilter{
		ExcludeStatuses: []domain.TicketStatus{domain.TicketStatusClosed},
		Order:           repository.OrderPriorityThenOpened,
		Limit:           opts.Limit,
		Offset:          opts.Offset,
	})
}

// ListClientTickets returns a client's tickets, newest first.
func (s *TicketService) ListClientTickets(ctx context.Context, clientID int64, opts TicketListOptions) ([]domain.Ticket, error) {
	return s.listTickets(ctx, repository.TicketFilter{
		ClientID: &clientID,
		Order:    repository.OrderOpenedDesc,
		Limit:    opts.Limit,
		Offset:   opts.Offset,
	})
}

// ListAnalystTickets returns the analyst's active queue.
func (s *TicketService) ListAnalystTickets(ctx context.Context, analystID int64, opts TicketListOptions) ([]domain.Ticket, error) {
	return s.listTickets(ctx, repository.TicketFilter{
		AnalystID: &analystID,
		ExcludeStatuses: []domain.TicketStatus{
			domain.TicketStatusClosed,
			domain.TicketStatusCompleted,
			domain.TicketStatusCancelled,
		},
		Order:  repository.OrderPriorityThenOpened,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

func (s *TicketService) listTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.store.ListTickets(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

// StatusReport counts tickets per status, counts open tickets per priority
// and lists the ones opened within RecentOpenWindow, newest first.
func (s *TicketService) StatusReport(ctx context.Context) (*StatusReport, error) {
	byStatus, err := s.store.CountTicketsByStatus(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byPriority, err := s.store.CountTicketsByPriority(ctx, reportClosedStatuses)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	since := s.clock.Now().Add(-RecentOpenWindow)
	recent, err := s.listTickets(ctx, repository.TicketFilter{
		ExcludeStatuses: reportClosedStatuses,
		OpenedSince:     &since,
		Order:           repository.OrderOpenedDesc,
		Limit:           recentOpenLimit,
	})
	if err != nil {
		return nil, err
	}

	report := &StatusReport{
		ByStatus:       byStatus,
		OpenByPriority: byPriority,
		RecentOpen:     recent,
		RecentSince:    since,
	}
	if report.ByStatus == nil {
		report.ByStatus = []repository.StatusCount{}
	}
	if report.OpenByPriority == nil {
		report.OpenByPriority = []repository.PriorityCount{}
	}
	for _, c := range byPriority {
		report.OpenTotal += c.Count
	}
	return report, nil
}

// ListAuditEntries reads the audit trail. Admin only.
func (s *TicketService) ListAuditEntries(ctx context.Context, actor domain.Identity, filter repository.AuditFilter) ([]domain.AuditEntry, error) {
	if actor.Role != domain.RoleEmployee || !actor.IsAdmin {
		return nil, apperrors.NewForbidden("admin required")
	}
	entries, err := s.store.ListAuditEntries(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	return entries, nil
}

func (s *TicketService) withTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Warn("rollback failed", zap.Error(rbErr))
		}
		return apperrors.MapError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// allocateCode draws ticket codes until one is unused. The unique index on
// tickets.code still rejects a code raced in by another writer.
func (s *TicketService) allocateCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := domain.NewTicketCode()
		_, err := s.store.GetTicketByCode(ctx, code)
		if apperrors.IsNoRows(err) {
			return code, nil
		}
		if err != nil {
			return "", apperrors.MapError(err)
		}
		s.logger.Warn("ticket code collision", zap.String("ticket_code", code))
	}
	return "", apperrors.NewConflict("could not allocate a ticket code", nil)
}

// saveAttachments uploads each file and keeps the ones that were stored. A
// failed upload is logged and skipped.
func (s *TicketService) saveAttachments(ctx context.Context, code string, uploads []blobstore.Upload, now time.Time) []domain.Attachment {
	if len(uploads) == 0 {
		return nil
	}
	dir := uploadRoot + "/" + code
	saved := make([]domain.Attachment, 0, len(uploads))
	for _, upload := range uploads {
		if s.blobs == nil {
			s.logger.Error("attachment dropped; no blob store configured",
				zap.String("ticket_code", code),
				zap.String("file_name", upload.FileName),
			)
			s.recordFailure("blobstore")
			continue
		}
		locator, err := s.blobs.Save(ctx, upload, dir)
		if err != nil {
			s.logger.Error("attachment upload failed",
				zap.String("ticket_code", code),
				zap.String("file_name", upload.FileName),
				zap.Error(apperrors.NewCollaboratorFailure("blobstore", err)),
			)
			s.recordFailure("blobstore")
			continue
		}
		saved = append(saved, domain.Attachment{
			FileName:    upload.FileName,
			Locator:     locator,
			ContentType: upload.ContentType,
			UploadedAt:  now,
		})
	}
	return saved
}

func (s *TicketService) greeting() string {
	return fmt.Sprintf("Hi, I'm %s. I'm reviewing your request and will answer in a moment.", s.assistantName)
}

func (s *TicketService) recordFailure(collaborator string) {
	if s.metrics != nil {
		s.metrics.RecordCollaboratorFailure(collaborator)
	}
}

func (s *TicketService) publishEvent(ctx context.Context, ticket *domain.Ticket, actor events.Actor, eventType events.EventType, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		TicketID:   ticket.ID,
		TicketCode: ticket.Code,
		Actor:      actor,
		Timestamp:  s.clock.Now(),
		Payload:    payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func (s *TicketService) publishEscalation(ctx context.Context, ticket *domain.Ticket, outcome replyOutcome, oldAnalyst *int64, assigned *domain.Analyst) {
	if !outcome.escalate {
		return
	}
	system := events.Actor{Type: events.ActorSystem}
	s.publishEvent(ctx, ticket, system, events.EventTicketEscalated, events.TicketEscalatedPayload{
		Reason:    outcome.reason,
		Specialty: outcome.category,
		Assigned:  assigned != nil,
	})
	if assigned != nil {
		id := assigned.ID
		s.publishEvent(ctx, ticket, system, events.EventTicketAssigned, events.TicketAssignedPayload{
			OldAnalystID: oldAnalyst,
			AnalystID:    &id,
			Specialty:    outcome.category,
		})
	}
}

func (s *TicketService) publishStatusChange(ctx context.Context, actor events.Actor, before, after *domain.Ticket) {
	if before.Status == after.Status {
		return
	}
	s.publishEvent(ctx, after, actor, events.EventTicketStatusChanged, events.TicketStatusChangedPayload{
		OldStatus: before.Status,
		NewStatus: after.Status,
	})
}

// publishTicketChanges emits status and assignment events for the fields that
// differ between before and after.
func (s *TicketService) publishTicketChanges(ctx context.Context, actor events.Actor, before, after *domain.Ticket) {
	s.publishStatusChange(ctx, actor, before, after)
	if !sameID(before.AnalystID, after.AnalystID) {
		s.publishEvent(ctx, after, actor, events.EventTicketAssigned, events.TicketAssignedPayload{
			OldAnalystID: before.AnalystID,
			AnalystID:    after.AnalystID,
		})
	}
}

func messagePayload(msg domain.Message) events.TicketMessageAddedPayload {
	return events.TicketMessageAddedPayload{
		MessageID:   msg.ID,
		SenderKind:  msg.Sender.Kind,
		SenderName:  msg.SenderName,
		BodyPreview: stringPreview(msg.Content, 120),
	}
}

func actorOf(identity domain.Identity) events.Actor {
	id := identity.ID
	return events.Actor{Type: identity.Role, ID: &id}
}

func notFound(err error, resource string, details map[string]any) error {
	if apperrors.IsNoRows(err) {
		return apperrors.NewNotFound(resource, details)
	}
	return apperrors.MapError(err)
}

// notBefore keeps send times non-decreasing within a ticket.
func notBefore(now time.Time, existing []domain.Message) time.Time {
	if n := len(existing); n > 0 && existing[n-1].SentAt.After(now) {
		return existing[n-1].SentAt
	}
	return now
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// stringPreview shortens body to at most max runes.
func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// detached keeps ctx values such as the audit actor but not its deadline.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), replyWriteTimeout)
}
