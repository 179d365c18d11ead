package models

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-models/pkg/task"
)

// Derived decorates t with a derive function run on every calculation pass.
// Returning nil leaves the attribute untouched; returning a *task.Future
// defers the assignment until the future settles.
func Derived(t Type, fn func(m *Model) (any, error)) Type {
	return derivedType{base: t, fn: fn}
}

type derivedType struct {
	base Type
	fn   func(m *Model) (any, error)
}

func (d derivedType) ToInternal(value any) (any, error) { return d.base.ToInternal(value) }
func (d derivedType) Unwrap() Type                      { return d.base }
func (d derivedType) Derive(m *Model) (any, error)      { return d.fn(m) }

// DeriveAsync decorates t with a derive function run on its own goroutine.
// fn receives a snapshot of the model values, never the model itself, so it
// may block without racing the calculation engine.
func DeriveAsync(t Type, fn func(ctx context.Context, snapshot map[string]any) (any, error)) Type {
	return Derived(t, func(m *Model) (any, error) {
		snapshot := m.snapshot()
		return task.Go(context.Background(), m.loop, func(ctx context.Context) (any, error) {
			return fn(ctx, snapshot)
		}), nil
	})
}

// Amended decorates t with a function adjusting other attributes whenever the
// decorated attribute changed. A non-nil future blocks the pass until it settles.
func Amended(t Type, fn func(m *Model) (*task.Future, error)) Type {
	return amendedType{base: t, fn: fn}
}

type amendedType struct {
	base Type
	fn   func(m *Model) (*task.Future, error)
}

func (a amendedType) ToInternal(value any) (any, error)     { return a.base.ToInternal(value) }
func (a amendedType) Unwrap() Type                          { return a.base }
func (a amendedType) Amend(m *Model) (*task.Future, error) { return a.fn(m) }

// Validated decorates t with a validation hook. See Validator for how the
// result is interpreted.
func Validated(t Type, fn func(m *Model, value any) any) Type {
	return validatedType{base: t, fn: fn}
}

type validatedType struct {
	base Type
	fn   func(m *Model, value any) any
}

func (v validatedType) ToInternal(value any) (any, error) { return v.base.ToInternal(value) }
func (v validatedType) Unwrap() Type                      { return v.base }
func (v validatedType) ValidationError(m *Model, value any) any {
	return v.fn(m, value)
}

// DeriveExpr derives the attribute from expression, evaluated with the
// model's evaluator. Every attribute is bound by name, the attribute's own
// value as "value".
func DeriveExpr(t Type, expression string) Type {
	return Derived(t, func(m *Model) (any, error) {
		return m.evaluate(m.hookAttr, expression)
	})
}

// AmendExpr evaluates expression whenever the attribute changed and assigns
// the resulting map with SetMany. A nil result changes nothing.
func AmendExpr(t Type, expression string) Type {
	return Amended(t, func(m *Model) (*task.Future, error) {
		result, err := m.evaluate(m.hookAttr, expression)
		if err != nil {
			return nil, err
		}
		switch typed := result.(type) {
		case nil:
			return nil, nil
		case map[string]any:
			return nil, m.SetMany(typed)
		default:
			return nil, fmt.Errorf("models: amend expression %q returned %T, want map", expression, result)
		}
	})
}

// ValidateExpr validates with expression. A true or nil result is valid, a
// false result fails with message and a non-empty string result is used as
// the failure message.
func ValidateExpr(t Type, expression, message string) Type {
	return Validated(t, exprValidation(expression, message))
}

func exprValidation(expression, message string) func(m *Model, value any) any {
	return func(m *Model, _ any) any {
		result, err := m.evaluate(m.hookAttr, expression)
		if err != nil {
			return err
		}
		switch typed := result.(type) {
		case nil:
			return nil
		case bool:
			if typed {
				return nil
			}
			if message == "" {
				return fmt.Sprintf("failed %s", expression)
			}
			return message
		default:
			return typed
		}
	}
}

var (
	tagValidateOnce sync.Once
	tagValidate     *validator.Validate
)

func tagValidator() *validator.Validate {
	tagValidateOnce.Do(func() {
		tagValidate = validator.New()
	})
	return tagValidate
}

// RegisterTagValidation adds a custom validation usable by ValidateTag.
func RegisterTagValidation(tag string, fn validator.Func) error {
	return tagValidator().RegisterValidation(tag, fn)
}

// ValidateTag validates the attribute value with go-playground/validator tags
// such as "required,min=3".
func ValidateTag(t Type, tag string) Type {
	return Validated(t, tagValidation(tag))
}

func tagValidation(tag string) func(m *Model, value any) any {
	return func(_ *Model, value any) any {
		err := tagValidator().Var(value, tag)
		if err == nil {
			return nil
		}
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			msg := fmt.Sprintf("failed %q validation", fe.Tag())
			if fe.Param() != "" {
				msg = fmt.Sprintf("failed %q validation (%s)", fe.Tag(), fe.Param())
			}
			return &AttributeError{Message: msg, Err: err}
		}
		return err
	}
}

// firstFailure chains validation functions, reporting the first failure.
func firstFailure(checks ...func(m *Model, value any) any) func(m *Model, value any) any {
	return func(m *Model, value any) any {
		for _, check := range checks {
			if result := check(m, value); !isFalsy(result) {
				return result
			}
		}
		return nil
	}
}
