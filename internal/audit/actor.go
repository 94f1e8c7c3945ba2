package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type actorKey struct{}

// WithActor attaches the acting identity to ctx. Entries committed under a
// context without an actor are recorded as system actions.
func WithActor(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, actorKey{}, ActorID(identity))
}

// ActorFrom returns the actor id carried by ctx, or nil.
func ActorFrom(ctx context.Context) *string {
	if v, ok := ctx.Value(actorKey{}).(string); ok && v != "" {
		return &v
	}
	return nil
}

// ActorID renders an identity as it appears in the trail, e.g. "employee:3".
func ActorID(identity domain.Identity) string {
	return fmt.Sprintf("%s:%d", strings.ToLower(string(identity.Role)), identity.ID)
}
