// Package audit records an immutable AuditEntry for every row a transaction
// creates, modifies or deletes, inside the same commit.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/clock"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Redacted replaces the value of sensitive fields in serialized snapshots.
const Redacted = "[REDACTED]"

// DefaultSensitiveFields lists columns never written to the trail in clear.
var DefaultSensitiveFields = []string{"password_hash"}

// RecorderDependencies wires a Recorder.
type RecorderDependencies struct {
	Store           repository.Store
	Clock           clock.Clock
	Logger          *zap.Logger
	SensitiveFields []string
}

// Recorder decorates a repository.Store. Transactions begun through it track
// pending changes and flush one AuditEntry per changed row right before the
// underlying commit.
type Recorder struct {
	repository.Store
	clock     clock.Clock
	logger    *zap.Logger
	sensitive map[string]struct{}
}

// NewRecorder builds the decorator.
func NewRecorder(deps RecorderDependencies) *Recorder {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	fields := deps.SensitiveFields
	if fields == nil {
		fields = DefaultSensitiveFields
	}
	sensitive := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		sensitive[f] = struct{}{}
	}
	return &Recorder{
		Store:     deps.Store,
		clock:     deps.Clock,
		logger:    deps.Logger,
		sensitive: sensitive,
	}
}

var _ repository.Store = (*Recorder)(nil)

func (r *Recorder) Begin(ctx context.Context) (repository.Tx, error) {
	inner, err := r.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &auditedTx{Tx: inner, rec: r, index: map[string]int{}}, nil
}

type change struct {
	action domain.AuditAction
	entity string
	key    string
	old    map[string]any
	new    map[string]any
}

type auditedTx struct {
	repository.Tx
	rec     *Recorder
	pending []*change
	index   map[string]int
}

func (t *auditedTx) track(action domain.AuditAction, before, after domain.Auditable) {
	var ref domain.Auditable = after
	if ref == nil {
		ref = before
	}
	entity := ref.AuditTable()
	key := joinKey(ref.AuditKey())
	id := entity + "/" + key

	if i, ok := t.index[id]; ok && t.pending[i] != nil {
		prev := t.pending[i]
		switch {
		case action == domain.AuditModified:
			// Created or Modified keeps its original action and old values
			prev.new = after.AuditValues()
			return
		case action == domain.AuditDeleted && prev.action == domain.AuditCreated:
			t.pending[i] = nil
			delete(t.index, id)
			return
		case action == domain.AuditDeleted:
			prev.action = domain.AuditDeleted
			prev.new = nil
			return
		}
	}

	c := &change{action: action, entity: entity, key: key}
	if before != nil {
		c.old = before.AuditValues()
	}
	if after != nil {
		c.new = after.AuditValues()
	}
	t.index[id] = len(t.pending)
	t.pending = append(t.pending, c)
}

func (t *auditedTx) CreateTicket(ctx context.Context, ticket *domain.Ticket) error {
	if err := t.Tx.CreateTicket(ctx, ticket); err != nil {
		return err
	}
	t.track(domain.AuditCreated, nil, ticket.Clone())
	return nil
}

func (t *auditedTx) UpdateTicket(ctx context.Context, ticket *domain.Ticket) error {
	before, err := t.Tx.GetTicket(ctx, ticket.ID)
	if err != nil {
		return err
	}
	if err := t.Tx.UpdateTicket(ctx, ticket); err != nil {
		return err
	}
	after, err := t.Tx.GetTicket(ctx, ticket.ID)
	if err != nil {
		return err
	}
	t.track(domain.AuditModified, before, after)
	return nil
}

func (t *auditedTx) DeleteTicket(ctx context.Context, id int64) error {
	ticket, err := t.Tx.GetTicket(ctx, id)
	if err != nil {
		return err
	}
	messages, err := t.Tx.ListMessages(ctx, id)
	if err != nil {
		return err
	}
	attachments, err := t.Tx.ListAttachments(ctx, id)
	if err != nil {
		return err
	}
	if err := t.Tx.DeleteTicket(ctx, id); err != nil {
		return err
	}
	for i := range messages {
		t.track(domain.AuditDeleted, &messages[i], nil)
	}
	for i := range attachments {
		t.track(domain.AuditDeleted, &attachments[i], nil)
	}
	t.track(domain.AuditDeleted, ticket, nil)
	return nil
}

func (t *auditedTx) CreateMessage(ctx context.Context, msg *domain.Message) error {
	if err := t.Tx.CreateMessage(ctx, msg); err != nil {
		return err
	}
	cp := *msg
	t.track(domain.AuditCreated, nil, &cp)
	return nil
}

func (t *auditedTx) CreateAttachment(ctx context.Context, att *domain.Attachment) error {
	if err := t.Tx.CreateAttachment(ctx, att); err != nil {
		return err
	}
	cp := *att
	t.track(domain.AuditCreated, nil, &cp)
	return nil
}

func (t *auditedTx) CreateClient(ctx context.Context, client *domain.Client) error {
	if err := t.Tx.CreateClient(ctx, client); err != nil {
		return err
	}
	cp := *client
	t.track(domain.AuditCreated, nil, &cp)
	return nil
}

func (t *auditedTx) CreateAnalyst(ctx context.Context, analyst *domain.Analyst) error {
	if err := t.Tx.CreateAnalyst(ctx, analyst); err != nil {
		return err
	}
	cp := *analyst
	t.track(domain.AuditCreated, nil, &cp)
	return nil
}

func (t *auditedTx) Commit(ctx context.Context) error {
	actor := ActorFrom(ctx)
	now := t.rec.clock.Now()
	written := 0
	for _, c := range t.pending {
		if c == nil {
			continue
		}
		entry, err := t.rec.entryFor(c, actor, now)
		if err != nil {
			_ = t.Tx.Rollback(ctx)
			return err
		}
		if err := t.Tx.CreateAuditEntry(ctx, entry); err != nil {
			_ = t.Tx.Rollback(ctx)
			return fmt.Errorf("write audit entry for %s %s: %w", c.entity, c.key, err)
		}
		written++
	}
	if err := t.Tx.Commit(ctx); err != nil {
		return err
	}
	t.pending = nil
	if written > 0 {
		t.rec.logger.Debug("audit entries recorded", zap.Int("count", written))
	}
	return nil
}

func (t *auditedTx) Rollback(ctx context.Context) error {
	t.pending = nil
	return t.Tx.Rollback(ctx)
}

func (r *Recorder) entryFor(c *change, actor *string, now time.Time) (*domain.AuditEntry, error) {
	entry := &domain.AuditEntry{
		ActorID:    actor,
		Action:     c.action,
		Entity:     c.entity,
		PrimaryKey: c.key,
		OccurredAt: now,
	}
	oldValues, newValues := c.old, c.new
	switch c.action {
	case domain.AuditCreated:
		oldValues = nil
	case domain.AuditDeleted:
		newValues = nil
	case domain.AuditModified:
		oldValues, newValues = diff(c.old, c.new)
	}

	var err error
	if oldValues != nil {
		if entry.OldValues, err = r.serialize(oldValues); err != nil {
			return nil, err
		}
	}
	if newValues != nil {
		if entry.NewValues, err = r.serialize(newValues); err != nil {
			return nil, err
		}
	}
	return entry, nil
}

func (r *Recorder) serialize(values map[string]any) ([]byte, error) {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if _, ok := r.sensitive[k]; ok {
			out[k] = Redacted
			continue
		}
		out[k] = v
	}
	return json.Marshal(out)
}

// diff keeps only the fields whose serialized value changed.
func diff(before, after map[string]any) (map[string]any, map[string]any) {
	changedOld := map[string]any{}
	changedNew := map[string]any{}
	for k, nv := range after {
		ov := before[k]
		a, errA := json.Marshal(ov)
		b, errB := json.Marshal(nv)
		if errA == nil && errB == nil && string(a) == string(b) {
			continue
		}
		changedOld[k] = ov
		changedNew[k] = nv
	}
	return changedOld, changedNew
}

func joinKey(parts []any) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprint(p)
	}
	return strings.Join(s, ",")
}
