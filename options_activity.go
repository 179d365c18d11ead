package models

import "github.com/goliatone/go-models/pkg/activity"

// WithActivityHooks notifies hooks after successful Save and Remove calls.
// Hooks are cloned and nil entries dropped. Emission is enabled unless a later
// WithActivityConfig disables it.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := activity.CloneHooks(hooks)
	return func(cfg *config) {
		cfg.activityHooks = normalized
		cfg.activityConfig.Enabled = len(normalized) > 0
	}
}

// WithActivityConfig overrides activity emission settings such as the channel.
func WithActivityConfig(activityCfg activity.Config) Option {
	return func(cfg *config) {
		cfg.activityConfig = activityCfg
	}
}

// ActivityHooks returns a copy of the hooks the model notifies.
func (m *Model) ActivityHooks() activity.Hooks {
	return activity.CloneHooks(m.cfg.activityHooks)
}
