package models

import (
	"slices"
	"strings"
	"testing"

	"github.com/goliatone/go-models/pkg/task"
)

func TestFunctionRegistry(t *testing.T) {
	registry := NewFunctionRegistry()
	double := func(args ...any) (any, error) { return args[0].(float64) * 2, nil }

	if err := registry.Register("Double", double); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("double", double); err == nil {
		t.Fatalf("expected duplicate error")
	}
	for _, name := range []string{"", "call", "value", "now", "self"} {
		if err := registry.Register(name, double); err == nil {
			t.Fatalf("expected %q to be rejected", name)
		}
	}
	if got, err := registry.Call("DOUBLE", 2.0); err != nil || got != 4.0 {
		t.Fatalf("unexpected call result %v, %v", got, err)
	}

	clone := registry.Clone()
	_ = clone.Register("half", double)
	if slices.Contains(registry.Names(), "half") {
		t.Fatalf("clone must not share registrations")
	}
	if _, err := registry.Call("half"); err == nil {
		t.Fatalf("expected missing function error")
	}
}

func TestCustomFunctionsInExpressions(t *testing.T) {
	yell := func(args ...any) (any, error) { return strings.ToUpper(args[0].(string)), nil }
	for _, evaluator := range []Evaluator{nil, NewCELEvaluator(EvaluatorFunctions(functionsWith("yell", yell)))} {
		opts := []Option{WithLoop(task.NewLoop()), WithCustomFunction("yell", yell)}
		if evaluator != nil {
			opts = append(opts, WithEvaluator(evaluator))
		}
		schema := MustDefine("greeting", []Field{
			{Name: "name", Type: Text},
			{Name: "shout", Type: DeriveExpr(Text, `yell(name)`)},
		}, opts...)

		m := schema.MustNew(map[string]any{"name": "ada"})
		settle(t, m)
		if m.Value("shout") != "ADA" {
			t.Fatalf("expected ADA, got %v", m.Value("shout"))
		}
		if evaluator != nil {
			continue
		}
		if got, err := m.Evaluate(`call("yell", name + "!")`); err != nil || got != "ADA!" {
			t.Fatalf("expected call() to reach registry, got %v, %v", got, err)
		}
	}
}

func functionsWith(name string, fn Function) *FunctionRegistry {
	registry := NewFunctionRegistry()
	_ = registry.Register(name, fn)
	return registry
}
