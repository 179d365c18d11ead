package models

import (
	"errors"
	"fmt"
)

// EvaluationError reports a failed expression hook.
type EvaluationError struct {
	Engine string
	Expr   string
	// Attribute is "schema.attribute", or the schema name for Model.Evaluate.
	Attribute string
	// Compile is set when the expression was rejected before it ran.
	Compile bool
	Err     error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	stage := "run"
	if e.Compile {
		stage = "compile"
	}
	return fmt.Sprintf("models: %s: %s %s %q: %v", e.Attribute, e.Engine, stage, e.Expr, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// evaluationError wraps err, filling the blanks of an EvaluationError a
// custom evaluator may already have returned.
func evaluationError(engine, expr, attribute string, compile bool, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Attribute == "" {
			evalErr.Attribute = attribute
		}
		return err
	}
	return &EvaluationError{
		Engine:    engine,
		Expr:      expr,
		Attribute: attribute,
		Compile:   compile,
		Err:       err,
	}
}
