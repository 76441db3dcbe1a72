package ctxutil

import (
	"context"
	"strings"
)

type actorDataKey struct{}

// ActorData is the authenticated caller, attached by the HTTP auth middleware.
// The engine records it (created_by) but never authorizes with it.
type ActorData struct {
	ActorID string
	Role    string
}

func WithActor(ctx context.Context, a *ActorData) context.Context {
	return context.WithValue(ctx, actorDataKey{}, a)
}

func GetActor(ctx context.Context) *ActorData {
	if a, ok := ctx.Value(actorDataKey{}).(*ActorData); ok {
		return a
	}
	return nil
}

// ActorID returns the actor id or def when the context is anonymous.
func ActorID(ctx context.Context, def string) string {
	a := GetActor(ctx)
	if a == nil || strings.TrimSpace(a.ActorID) == "" {
		return def
	}
	return a.ActorID
}
