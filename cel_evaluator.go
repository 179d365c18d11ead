package models

import (
	"reflect"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// NewCELEvaluator returns an Evaluator backed by cel-go. Every attribute is
// declared as a dynamic variable and now as a timestamp; attribute names that
// are not CEL identifiers are only reachable through self.
func NewCELEvaluator(opts ...EvaluatorOption) Evaluator {
	return &celEvaluator{cfg: newEvaluatorConfig(opts)}
}

type celEvaluator struct {
	cfg evaluatorConfig
}

func (e *celEvaluator) Engine() string { return "cel" }

func (e *celEvaluator) Compile(decl Declaration, expression string) (Program, error) {
	return e.cfg.compile(decl.cacheKey("cel", expression), func() (Program, error) {
		env, err := celgo.NewEnv(e.envOptions(decl)...)
		if err != nil {
			return nil, err
		}
		ast, issues := env.Compile(expression)
		if issues != nil && issues.Err() != nil {
			return nil, issues.Err()
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, err
		}
		return celProgram{program: program}, nil
	})
}

func (e *celEvaluator) envOptions(decl Declaration) []celgo.EnvOption {
	var opts []celgo.EnvOption
	for _, name := range decl.Names() {
		if !isIdentifier(name) {
			continue
		}
		typ := celgo.DynType
		if name == BindNow && !decl.Shadows(BindNow) {
			typ = celgo.TimestampType
		}
		opts = append(opts, celgo.Variable(name, typ))
	}
	if e.cfg.functions == nil {
		return opts
	}
	for _, name := range e.cfg.functions.Names() {
		if isIdentifier(name) {
			opts = append(opts, e.function(name))
		}
	}
	return opts
}

// function declares name with overloads for zero to three dynamic arguments.
func (e *celEvaluator) function(name string) celgo.EnvOption {
	call := func(args ...ref.Val) ref.Val {
		native := make([]any, len(args))
		for i, arg := range args {
			native[i] = celNative(arg)
		}
		result, err := e.cfg.call(name, native)
		if err != nil {
			return types.NewErr("%s: %v", name, err)
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
	dyn := celgo.DynType
	return celgo.Function(name,
		celgo.Overload(name+"_0", nil, dyn, celgo.FunctionBinding(call)),
		celgo.Overload(name+"_1", []*celgo.Type{dyn}, dyn,
			celgo.UnaryBinding(func(a ref.Val) ref.Val { return call(a) })),
		celgo.Overload(name+"_2", []*celgo.Type{dyn, dyn}, dyn,
			celgo.BinaryBinding(func(a, b ref.Val) ref.Val { return call(a, b) })),
		celgo.Overload(name+"_3", []*celgo.Type{dyn, dyn, dyn}, dyn, celgo.FunctionBinding(call)),
	)
}

type celProgram struct {
	program celgo.Program
}

func (p celProgram) Run(scope Scope) (any, error) {
	out, _, err := p.program.Eval(scope.Bindings())
	if err != nil {
		return nil, err
	}
	return celNative(out), nil
}

var (
	anySliceType = reflect.TypeOf([]any{})
	anyMapType   = reflect.TypeOf(map[string]any{})
)

// celNative converts CEL results into the plain values attributes store.
func celNative(val ref.Val) any {
	switch val.Type() {
	case types.NullType:
		return nil
	case types.ListType:
		if list, err := val.ConvertToNative(anySliceType); err == nil {
			return list
		}
	case types.MapType:
		if obj, err := val.ConvertToNative(anyMapType); err == nil {
			return obj
		}
	}
	return val.Value()
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
