package models

import (
	"log/slog"

	"github.com/goliatone/go-models/pkg/activity"
	"github.com/goliatone/go-models/pkg/task"
)

// Branch names a snapshot slot for committed values.
type Branch string

const (
	// DefaultBranch is the durable baseline that Revert restores.
	DefaultBranch Branch = "DEFAULT_BRANCH"
	// PreviousBranch holds the value captured right before the latest change.
	PreviousBranch Branch = "PREVIOUS_BRANCH"
)

func (b Branch) orDefault() Branch {
	if b == "" {
		return DefaultBranch
	}
	return b
}

// DefaultMaxCalculations bounds the number of passes a single settle cycle may take.
const DefaultMaxCalculations = 100

// Option configures a Schema, and per instance a Model or Collection.
type Option func(*config)

type config struct {
	storage         Storage
	collection      *Collection
	loop            *task.Loop
	maxCalculations int
	swallowErrors   bool
	evaluator       Evaluator
	programCache    ProgramCache
	functions       *FunctionRegistry
	evalLogger      EvaluatorLogger
	logger          *slog.Logger
	observer        Observer
	activityHooks   activity.Hooks
	activityConfig  activity.Config
}

func applyOptions(base config, opts []Option) config {
	cfg := base
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (c config) maxPasses() int {
	if c.maxCalculations <= 0 {
		return DefaultMaxCalculations
	}
	return c.maxCalculations
}

func (c config) taskLoop() *task.Loop {
	if c.loop != nil {
		return c.loop
	}
	return task.DefaultLoop()
}

func (c config) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return discardLogger
}

func (c config) evaluatorLogger() EvaluatorLogger {
	if c.evalLogger != nil {
		return c.evalLogger
	}
	return noopEvaluatorLogger{}
}

func (c config) calculationObserver() Observer {
	if c.observer != nil {
		return c.observer
	}
	return noopObserver{}
}

var discardLogger = slog.New(slog.DiscardHandler)
