package activity

import (
	"context"
	"strings"
)

// DefaultChannel is applied to events emitted without a channel.
const DefaultChannel = "models"

// Config controls activity emission.
type Config struct {
	Enabled bool
	Channel string
}

// Emitter fans out events to hooks while applying defaults. A nil Emitter is
// valid and disabled.
type Emitter struct {
	hooks   Hooks
	channel string
}

// NewEmitter returns an emitter for hooks, or nil when emission is disabled
// or there is nothing to notify.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	hooks = CloneHooks(hooks)
	if !cfg.Enabled || len(hooks) == 0 {
		return nil
	}
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	return &Emitter{hooks: hooks, channel: channel}
}

// Enabled reports whether emissions are attempted.
func (e *Emitter) Enabled() bool {
	return e != nil && len(e.hooks) > 0
}

// Emit stamps the actor carried by ctx and the default channel onto event,
// then notifies every hook.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if actor, ok := ActorFromContext(ctx); ok {
		event = actor.apply(event)
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	return e.hooks.Notify(ctx, event)
}
