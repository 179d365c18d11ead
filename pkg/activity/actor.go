package activity

import "context"

// Actor identifies who triggered a persistence operation.
type Actor struct {
	ActorID  string
	UserID   string
	TenantID string
}

type actorKey struct{}

// WithActor returns a context carrying actor for activity events.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by WithActor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// apply fills identity fields the event does not set explicitly.
func (a Actor) apply(event Event) Event {
	if event.ActorID == "" {
		event.ActorID = a.ActorID
	}
	if event.UserID == "" {
		event.UserID = a.UserID
	}
	if event.TenantID == "" {
		event.TenantID = a.TenantID
	}
	return event
}
