package actorctx

import (
	"context"
	"strings"
)

// Actor identifies the authenticated caller as supplied by the upstream
// auth collaborator. The engine never authenticates; it only consumes.
type Actor struct {
	ID          string
	Role        string
	Permissions []string
}

const (
	RoleFarmer    = "farmer"
	RoleProcessor = "processor"
	RoleLab       = "lab"
	RoleRetailer  = "retailer"
	RoleRegulator = "regulator"
	RoleAdmin     = "admin"
)

// HasPermission reports whether the actor carries the named permission.
// Admins implicitly hold every permission.
func (a Actor) HasPermission(name string) bool {
	if a.Role == RoleAdmin {
		return true
	}
	for _, p := range a.Permissions {
		if strings.EqualFold(strings.TrimSpace(p), name) {
			return true
		}
	}
	return false
}

// CanSeeAllBatches reports whether the actor may read batches it does not own.
func (a Actor) CanSeeAllBatches() bool {
	return a.Role == RoleAdmin || a.Role == RoleRegulator
}

type actorKey struct{}

type requestIDKey struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok && actor.ID != ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, _ := ctx.Value(requestIDKey{}).(string)
	return requestID
}
