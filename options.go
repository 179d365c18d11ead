package models

import (
	"log/slog"

	"github.com/goliatone/go-models/pkg/task"
)

// WithStorage configures the persistence backend used by Save, Fetch and Remove.
func WithStorage(storage Storage) Option {
	return func(cfg *config) {
		cfg.storage = storage
	}
}

// WithCollection marks the model as claimed by collection. Only meaningful
// when passed to Schema.New.
func WithCollection(collection *Collection) Option {
	return func(cfg *config) {
		cfg.collection = collection
	}
}

// WithLoop binds models and collections to loop instead of task.DefaultLoop.
// Nested models and collection members inherit the loop of their owner.
func WithLoop(loop *task.Loop) Option {
	return func(cfg *config) {
		cfg.loop = loop
	}
}

// WithMaxCalculations bounds the passes of one settle cycle. Values <= 0
// restore DefaultMaxCalculations.
func WithMaxCalculations(max int) Option {
	return func(cfg *config) {
		cfg.maxCalculations = max
	}
}

// WithSwallowCalculationErrors makes Ready resolve even when a pass fails.
// Failures are still logged.
func WithSwallowCalculationErrors(swallow bool) Option {
	return func(cfg *config) {
		cfg.swallowErrors = swallow
	}
}

// WithEvaluator configures the evaluator used by expression hooks.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *config) {
		cfg.evaluator = e
	}
}

// WithLogger attaches a structured logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithObserver registers an Observer notified about calculation passes.
func WithObserver(observer Observer) Option {
	return func(cfg *config) {
		cfg.observer = observer
	}
}
