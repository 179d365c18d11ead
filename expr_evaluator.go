package models

import (
	"errors"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// NewExprEvaluator returns the default Evaluator, backed by expr-lang/expr.
// Attributes are resolved at run time, so one program serves every model of
// a schema.
func NewExprEvaluator(opts ...EvaluatorOption) Evaluator {
	return &exprEvaluator{cfg: newEvaluatorConfig(opts)}
}

type exprEvaluator struct {
	cfg evaluatorConfig
}

func (e *exprEvaluator) Engine() string { return "expr" }

func (e *exprEvaluator) Compile(decl Declaration, expression string) (Program, error) {
	return e.cfg.compile(decl.cacheKey("expr", expression), func() (Program, error) {
		options := []exprlang.Option{
			exprlang.Env(map[string]any{}),
			exprlang.AllowUndefinedVariables(),
		}
		options = append(options, e.functions()...)
		program, err := exprlang.Compile(expression, options...)
		if err != nil {
			return nil, err
		}
		return exprProgram{program: program}, nil
	})
}

func (e *exprEvaluator) functions() []exprlang.Option {
	if e.cfg.functions == nil {
		return nil
	}
	options := []exprlang.Option{
		exprlang.Function("call", func(params ...any) (any, error) {
			if len(params) == 0 {
				return nil, errors.New("call: function name required")
			}
			name, ok := params[0].(string)
			if !ok {
				return nil, errors.New("call: function name must be a string")
			}
			return e.cfg.call(name, params[1:])
		}),
	}
	for _, name := range e.cfg.functions.Names() {
		options = append(options, exprlang.Function(name, func(params ...any) (any, error) {
			return e.cfg.call(name, params)
		}))
	}
	return options
}

type exprProgram struct {
	program *exprvm.Program
}

func (p exprProgram) Run(scope Scope) (any, error) {
	return exprlang.Run(p.program, scope.Bindings())
}
