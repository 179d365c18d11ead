package models

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// Names bound next to the attributes of a model. An attribute of the same
// name takes precedence.
const (
	// BindValue is the attribute whose hook is running.
	BindValue = "value"
	// BindSelf is a map of every attribute.
	BindSelf = "self"
	BindNow  = "now"
)

var reservedBindings = []string{BindValue, BindSelf, BindNow}

// Scope is the input of a single evaluation.
type Scope struct {
	Schema string
	// Attribute is empty for Model.Evaluate.
	Attribute string
	// Values holds every attribute, internal ones included, as plain data.
	Values map[string]any
	Now    time.Time
}

// Bindings returns the variables visible to the expression.
func (s Scope) Bindings() map[string]any {
	out := make(map[string]any, len(s.Values)+len(reservedBindings))
	out[BindSelf] = s.Values
	out[BindNow] = s.Now
	if s.Attribute != "" {
		out[BindValue] = s.Values[s.Attribute]
	}
	for name, value := range s.Values {
		out[name] = value
	}
	return out
}

func (s Scope) label() string {
	if s.Attribute == "" {
		return s.Schema
	}
	return s.Schema + "." + s.Attribute
}

// Declaration lists the attributes expressions of one schema may reference.
type Declaration struct {
	Schema     string
	Attributes []string
}

// Names returns the attributes followed by the reserved bindings they leave free.
func (d Declaration) Names() []string {
	names := slices.Clone(d.Attributes)
	for _, reserved := range reservedBindings {
		if !slices.Contains(d.Attributes, reserved) {
			names = append(names, reserved)
		}
	}
	return names
}

// Shadows reports whether an attribute hides the reserved binding name.
func (d Declaration) Shadows(name string) bool {
	return slices.Contains(d.Attributes, name)
}

func (d Declaration) cacheKey(engine, expression string) string {
	return engine + "|" + d.Schema + "|" + strings.Join(d.Attributes, ",") + "|" + expression
}

// Evaluator compiles the expressions used by DeriveExpr, AmendExpr and
// ValidateExpr.
type Evaluator interface {
	// Engine names the expression language in errors and logs.
	Engine() string
	Compile(decl Declaration, expression string) (Program, error)
}

// Program is a compiled expression.
type Program interface {
	Run(scope Scope) (any, error)
}

// EvaluatorOption configures the built-in evaluators.
type EvaluatorOption func(*evaluatorConfig)

type evaluatorConfig struct {
	cache     ProgramCache
	functions *FunctionRegistry
}

// EvaluatorCache stores compiled programs in cache.
func EvaluatorCache(cache ProgramCache) EvaluatorOption {
	return func(cfg *evaluatorConfig) {
		cfg.cache = cache
	}
}

// EvaluatorFunctions exposes the functions of registry to expressions, by
// name and through call(name, args...).
func EvaluatorFunctions(registry *FunctionRegistry) EvaluatorOption {
	return func(cfg *evaluatorConfig) {
		cfg.functions = registry.Clone()
	}
}

func newEvaluatorConfig(opts []EvaluatorOption) evaluatorConfig {
	var cfg evaluatorConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (c evaluatorConfig) compile(key string, build func() (Program, error)) (Program, error) {
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			if program, ok := cached.(Program); ok {
				return program, nil
			}
		}
	}
	program, err := build()
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Set(key, program)
	}
	return program, nil
}

func (c evaluatorConfig) call(name string, args []any) (any, error) {
	if c.functions == nil {
		return nil, errors.New("models: no functions registered")
	}
	return c.functions.Call(name, args...)
}

// evaluatorOptions passes the cache and functions of c on to an evaluator.
func (c config) evaluatorOptions() []EvaluatorOption {
	var opts []EvaluatorOption
	if c.programCache != nil {
		opts = append(opts, EvaluatorCache(c.programCache))
	}
	if c.functions != nil {
		opts = append(opts, EvaluatorFunctions(c.functions))
	}
	return opts
}

// Evaluate runs expression against the current values of the model.
func (m *Model) Evaluate(expression string) (any, error) {
	return m.evaluate("", expression)
}

func (m *Model) evaluate(attribute, expression string) (any, error) {
	evaluator := m.resolveEvaluator()
	engine := evaluator.Engine()
	scope := Scope{
		Schema:    m.schema.name,
		Attribute: attribute,
		Values:    m.snapshot(),
		Now:       time.Now(),
	}

	var (
		value    any
		compiled bool
		err      error
	)
	start := time.Now()
	if strings.TrimSpace(expression) == "" {
		err = errors.New("expression must not be empty")
	} else {
		var program Program
		program, err = evaluator.Compile(m.schema.declaration, expression)
		if compiled = err == nil; compiled {
			value, err = program.Run(scope)
		}
	}
	err = evaluationError(engine, expression, scope.label(), !compiled, err)

	m.cfg.evaluatorLogger().LogEvaluation(EvaluatorLogEvent{
		Engine:    engine,
		Expr:      expression,
		Schema:    scope.Schema,
		Attribute: attribute,
		Duration:  time.Since(start),
		Err:       err,
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (m *Model) resolveEvaluator() Evaluator {
	switch {
	case m.evaluator != nil:
	case m.cfg.evaluator != nil:
		m.evaluator = m.cfg.evaluator
	case m.ownEvaluator:
		m.evaluator = NewExprEvaluator(m.cfg.evaluatorOptions()...)
	default:
		m.evaluator = m.schema.sharedEvaluator()
	}
	return m.evaluator
}
