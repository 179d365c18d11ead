//go:build !js_eval

package models

import "fmt"

// NewJSEvaluator needs the js_eval build tag. Without it the returned
// evaluator fails every compilation with ErrUnsupported.
func NewJSEvaluator(...EvaluatorOption) Evaluator {
	return unsupportedEvaluator{engine: "js"}
}

type unsupportedEvaluator struct {
	engine string
}

func (e unsupportedEvaluator) Engine() string { return e.engine }

func (e unsupportedEvaluator) Compile(Declaration, string) (Program, error) {
	return nil, fmt.Errorf("%w: %s evaluator requires the js_eval build tag", ErrUnsupported, e.engine)
}

func jsEvaluatorAvailable() bool { return false }
