package identity

import (
	"context"
	"errors"

	"github.com/opencivic/civicflow/internal/models"
)

// ErrUnauthenticated is returned when no valid session exists
var ErrUnauthenticated = errors.New("not authenticated")

// Actor is the authenticated caller of a workflow operation: who they
// are, what role they hold, and which area or department scopes them.
type Actor struct {
	ID                   string      `json:"id"`
	Role                 models.Role `json:"role"`
	AssignedAreaID       string      `json:"assigned_area_id,omitempty"`
	AssignedAreaName     string      `json:"assigned_area_name,omitempty"`
	AssignedDepartmentID string      `json:"assigned_department_id,omitempty"`
}

// Identity resolves the current actor from a request context
type Identity interface {
	// CurrentActor returns the actor bound to ctx, or
	// ErrUnauthenticated when no session is present.
	CurrentActor(ctx context.Context) (Actor, error)
}

type actorKey struct{}

// WithActor returns a context carrying the given actor
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ContextIdentity reads the actor previously attached to the context
// by the auth middleware. It is the Identity implementation the HTTP
// layer wires into the engine.
type ContextIdentity struct{}

// CurrentActor returns the actor bound to ctx
func (ContextIdentity) CurrentActor(ctx context.Context) (Actor, error) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok {
		return Actor{}, ErrUnauthenticated
	}
	return actor, nil
}
