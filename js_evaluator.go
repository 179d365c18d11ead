//go:build js_eval

package models

import "github.com/dop251/goja"

// NewJSEvaluator returns an Evaluator running expressions in goja. Each run
// gets a fresh runtime, so expressions cannot leak state between models.
func NewJSEvaluator(opts ...EvaluatorOption) Evaluator {
	return &jsEvaluator{cfg: newEvaluatorConfig(opts)}
}

type jsEvaluator struct {
	cfg evaluatorConfig
}

func (e *jsEvaluator) Engine() string { return "js" }

func (e *jsEvaluator) Compile(decl Declaration, expression string) (Program, error) {
	return e.cfg.compile(decl.cacheKey("js", expression), func() (Program, error) {
		program, err := goja.Compile(decl.Schema, "(function(){ return ("+expression+"); })()", true)
		if err != nil {
			return nil, err
		}
		return jsProgram{program: program, cfg: e.cfg}, nil
	})
}

type jsProgram struct {
	program *goja.Program
	cfg     evaluatorConfig
}

func (p jsProgram) Run(scope Scope) (any, error) {
	vm := goja.New()
	for name, value := range scope.Bindings() {
		if err := vm.Set(name, value); err != nil {
			return nil, err
		}
	}
	if p.cfg.functions != nil {
		if err := p.bindFunctions(vm); err != nil {
			return nil, err
		}
	}
	value, err := vm.RunProgram(p.program)
	if err != nil {
		return nil, err
	}
	return value.Export(), nil
}

func (p jsProgram) bindFunctions(vm *goja.Runtime) error {
	call := func(name string, args ...any) (any, error) {
		return p.cfg.call(name, args)
	}
	if err := vm.Set("call", call); err != nil {
		return err
	}
	for _, name := range p.cfg.functions.Names() {
		if err := vm.Set(name, func(args ...any) (any, error) { return call(name, args...) }); err != nil {
			return err
		}
	}
	return nil
}

func jsEvaluatorAvailable() bool { return true }

