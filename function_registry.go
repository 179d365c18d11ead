package models

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Function is a Go function callable from expression hooks.
type Function func(args ...any) (any, error)

// FunctionRegistry holds the functions exposed to expressions. Names are
// case-insensitive and stored lower-cased.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry returns an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: map[string]Function{}}
}

// Register adds fn under name. Names must be unique and must not collide with
// the reserved bindings.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	return r.store(name, fn, false)
}

func (r *FunctionRegistry) store(name string, fn Function, replace bool) error {
	key := strings.ToLower(strings.TrimSpace(name))
	switch {
	case key == "":
		return fmt.Errorf("models: function name is required")
	case fn == nil:
		return fmt.Errorf("models: function %q is nil", name)
	case key == "call" || slices.Contains(reservedBindings, key):
		return fmt.Errorf("models: function name %q is reserved", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = map[string]Function{}
	}
	if _, exists := r.functions[key]; exists && !replace {
		return fmt.Errorf("models: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns an independent copy. Registering on the copy leaves r untouched.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &FunctionRegistry{functions: maps.Clone(r.functions)}
}

// Call runs the function registered as name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("models: function %q not registered", name)
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("models: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns the registered names in sorted order.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.functions))
}

// WithFunctionRegistry exposes a copy of registry to expression hooks.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *config) {
		if registry != nil {
			cfg.functions = registry.Clone()
		}
	}
}

// WithCustomFunction exposes fn to expression hooks as name, replacing an
// earlier function of that name. Reserved names are ignored.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *config) {
		registry := cfg.functions.Clone()
		if registry == nil {
			registry = NewFunctionRegistry()
		}
		if registry.store(name, fn, true) == nil {
			cfg.functions = registry
		}
	}
}
