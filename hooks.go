package models

import (
	"reflect"

	"github.com/goliatone/go-models/pkg/task"
)

// Type converts external values into an attribute's internal representation.
// It is the only required hook; the optional capabilities below are detected
// by presence, walking Unwrap chains built by Derived, Amended, Validated and
// the expression helpers.
type Type interface {
	ToInternal(value any) (any, error)
}

// Presenter converts the internal representation back into the external value.
// Types without it expose internal values unchanged.
type Presenter interface {
	FromInternal(value any) any
}

// Comparer reports whether two internal values are equal. Types without it
// are compared with reflect.DeepEqual.
type Comparer interface {
	Equal(a, b any) bool
}

// Defaulter supplies the value used for unset attributes.
type Defaulter interface {
	Default() any
}

// Deriver computes an attribute's value from the rest of the model on every
// calculation pass. A nil result leaves the attribute untouched; a
// *task.Future result is awaited and applied together with the other derived
// values of the pass.
type Deriver interface {
	Derive(m *Model) (any, error)
}

// Amender adjusts other attributes when its own attribute changed. A non-nil
// future blocks the pass until it settles.
type Amender interface {
	Amend(m *Model) (*task.Future, error)
}

// Validator computes a validation failure for value. A falsy result (nil,
// false, "") means valid; strings become messages, errors become causes and
// any other value is kept as structured data.
type Validator interface {
	ValidationError(m *Model, value any) any
}

// Readier is implemented by attributes with their own asynchronous settling,
// such as nested models and collections.
type Readier interface {
	Ready() *task.Future
}

// Wrapper is implemented by types decorating another type.
type Wrapper interface {
	Unwrap() Type
}

// lookup finds the first type in the Unwrap chain of t implementing H.
func lookup[H any](t Type) (H, bool) {
	var zero H
	for t != nil {
		if h, ok := t.(H); ok {
			return h, true
		}
		w, ok := t.(Wrapper)
		if !ok {
			break
		}
		t = w.Unwrap()
	}
	return zero, false
}

func fromInternal(t Type, value any) any {
	if p, ok := lookup[Presenter](t); ok {
		return p.FromInternal(value)
	}
	return value
}

func equalInternal(t Type, a, b any) bool {
	if c, ok := lookup[Comparer](t); ok {
		return c.Equal(a, b)
	}
	return reflect.DeepEqual(a, b)
}

func typeDefault(t Type) any {
	if d, ok := lookup[Defaulter](t); ok {
		return d.Default()
	}
	return nil
}

// attributeFactory is implemented by types that build their own attribute
// variant instead of the plain value attribute.
type attributeFactory interface {
	newAttribute(field Field, owner *Model, init any) (Attribute, error)
}

// identityMarker flags the identity attribute type.
type identityMarker interface {
	identity()
}
