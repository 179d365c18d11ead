package models

import (
	"context"
	"log/slog"
	"time"
)

// EvaluatorLogEvent describes one expression evaluation.
type EvaluatorLogEvent struct {
	Engine string
	Expr   string
	Schema string
	// Attribute is empty for Model.Evaluate.
	Attribute string
	Duration  time.Duration
	Err       error
}

// EvaluatorLogger records evaluations.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// SlogEvaluatorLogger logs evaluations at debug level and failures at warn.
func SlogEvaluatorLogger(logger *slog.Logger) EvaluatorLogger {
	if logger == nil {
		return noopEvaluatorLogger{}
	}
	return EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		level := slog.LevelDebug
		attrs := []slog.Attr{
			slog.String("engine", event.Engine),
			slog.String("schema", event.Schema),
			slog.String("expr", event.Expr),
			slog.Duration("duration", event.Duration),
		}
		if event.Attribute != "" {
			attrs = append(attrs, slog.String("attribute", event.Attribute))
		}
		if event.Err != nil {
			level = slog.LevelWarn
			attrs = append(attrs, slog.Any("error", event.Err))
		}
		logger.LogAttrs(context.Background(), level, "models: expression evaluated", attrs...)
	})
}

// WithEvaluatorLogger reports every expression evaluation to logger.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *config) {
		if logger == nil {
			logger = noopEvaluatorLogger{}
		}
		cfg.evalLogger = logger
	}
}
