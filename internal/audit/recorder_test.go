package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/clock"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
)

var start = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

func newRecorder() (*Recorder, *memory.Store) {
	inner := memory.New()
	return NewRecorder(RecorderDependencies{Store: inner, Clock: clock.NewFake(start)}), inner
}

func decode(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	if raw == nil {
		return nil
	}
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestCreatedEntryRedactsPasswordHash(t *testing.T) {
	ctx := context.Background()
	rec, inner := newRecorder()

	tx, err := rec.Begin(ctx)
	require.NoError(t, err)
	client := &domain.Client{Name: "Ana", Email: "ana@example.com", PasswordHash: "$2a$10$secret"}
	require.NoError(t, tx.CreateClient(ctx, client))
	require.NoError(t, tx.Commit(ctx))

	entries, err := inner.ListAuditEntries(ctx, repository.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, domain.AuditCreated, e.Action)
	assert.Equal(t, "clients", e.Entity)
	assert.Equal(t, "1", e.PrimaryKey)
	assert.Nil(t, e.ActorID)
	assert.Nil(t, e.OldValues)
	assert.Equal(t, start, e.OccurredAt)

	values := decode(t, e.NewValues)
	assert.Equal(t, Redacted, values["password_hash"])
	assert.Equal(t, "ana@example.com", values["email"])
	assert.NotContains(t, string(e.NewValues), "secret")
}

func TestModifiedEntryCarriesOnlyChangedFields(t *testing.T) {
	ctx := context.Background()
	rec, inner := newRecorder()

	tx, _ := rec.Begin(ctx)
	client := &domain.Client{Name: "Ana", Email: "ana@example.com"}
	require.NoError(t, tx.CreateClient(ctx, client))
	ticket := &domain.Ticket{Code: "HD-AAAA1111", ClientID: client.ID, Status: domain.TicketStatusOpenAI, Priority: domain.TicketPriorityMedium, OpenedAt: start}
	require.NoError(t, tx.CreateTicket(ctx, ticket))
	require.NoError(t, tx.Commit(ctx))

	actorCtx := WithActor(ctx, domain.Identity{ID: 3, Role: domain.RoleEmployee})
	tx, _ = rec.Begin(actorCtx)
	ticket.Status = domain.TicketStatusInProgressAnalyst
	ticket.AnalystEngaged = true
	require.NoError(t, tx.UpdateTicket(actorCtx, ticket))
	require.NoError(t, tx.Commit(actorCtx))

	entries, err := inner.ListAuditEntries(ctx, repository.AuditFilter{Entity: "tickets"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	mod := entries[1]
	assert.Equal(t, domain.AuditModified, mod.Action)
	require.NotNil(t, mod.ActorID)
	assert.Equal(t, "employee:3", *mod.ActorID)

	old := decode(t, mod.OldValues)
	next := decode(t, mod.NewValues)
	assert.Len(t, old, 2)
	assert.Equal(t, "OPEN_AI", old["status"])
	assert.Equal(t, false, old["analyst_engaged"])
	assert.Equal(t, "IN_PROGRESS_ANALYST", next["status"])
	assert.Equal(t, true, next["analyst_engaged"])
}

func TestCreateThenUpdateInOneTxCoalesces(t *testing.T) {
	ctx := context.Background()
	rec, inner := newRecorder()

	tx, _ := rec.Begin(ctx)
	client := &domain.Client{Name: "Ana", Email: "ana@example.com"}
	require.NoError(t, tx.CreateClient(ctx, client))
	ticket := &domain.Ticket{Code: "HD-AAAA2222", ClientID: client.ID, Status: domain.TicketStatusOpenAI, Priority: domain.TicketPriorityMedium}
	require.NoError(t, tx.CreateTicket(ctx, ticket))
	ticket.Status = domain.TicketStatusAwaitingAnalyst
	require.NoError(t, tx.UpdateTicket(ctx, ticket))
	require.NoError(t, tx.Commit(ctx))

	entries, _ := inner.ListAuditEntries(ctx, repository.AuditFilter{Entity: "tickets"})
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditCreated, entries[0].Action)
	assert.Equal(t, "AWAITING_ANALYST", decode(t, entries[0].NewValues)["status"])
}

func TestRollbackWritesNoEntries(t *testing.T) {
	ctx := context.Background()
	rec, inner := newRecorder()

	tx, _ := rec.Begin(ctx)
	require.NoError(t, tx.CreateClient(ctx, &domain.Client{Name: "Ana", Email: "ana@example.com"}))
	require.NoError(t, tx.Rollback(ctx))

	entries, err := inner.ListAuditEntries(ctx, repository.AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeleteRecordsEveryCascadedRow(t *testing.T) {
	ctx := context.Background()
	rec, inner := newRecorder()

	tx, _ := rec.Begin(ctx)
	client := &domain.Client{Name: "Ana", Email: "ana@example.com"}
	require.NoError(t, tx.CreateClient(ctx, client))
	ticket := &domain.Ticket{Code: "HD-AAAA3333", ClientID: client.ID, Status: domain.TicketStatusOpenAI, Priority: domain.TicketPriorityMedium}
	require.NoError(t, tx.CreateTicket(ctx, ticket))
	require.NoError(t, tx.CreateMessage(ctx, &domain.Message{TicketID: ticket.ID, Content: "a", Sender: domain.ClientSender(client.ID)}))
	require.NoError(t, tx.CreateMessage(ctx, &domain.Message{TicketID: ticket.ID, Content: "b", Sender: domain.AssistantSender()}))
	require.NoError(t, tx.CreateAttachment(ctx, &domain.Attachment{TicketID: ticket.ID, FileName: "log.txt"}))
	require.NoError(t, tx.Commit(ctx))

	tx, _ = rec.Begin(ctx)
	require.NoError(t, tx.DeleteTicket(ctx, ticket.ID))
	require.NoError(t, tx.Commit(ctx))

	all, _ := inner.ListAuditEntries(ctx, repository.AuditFilter{})
	var deleted []domain.AuditEntry
	for _, e := range all {
		if e.Action == domain.AuditDeleted {
			deleted = append(deleted, e)
		}
	}
	require.Len(t, deleted, 4)
	for _, e := range deleted {
		assert.NotNil(t, e.OldValues)
		assert.Nil(t, e.NewValues)
	}
	assert.Equal(t, "tickets", deleted[3].Entity)
}

func TestJoinKey(t *testing.T) {
	assert.Equal(t, "7", joinKey([]any{int64(7)}))
	assert.Equal(t, "7,abc", joinKey([]any{7, "abc"}))
}
