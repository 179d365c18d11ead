package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownAttribute is returned when a model has no attribute with the requested name.
	ErrUnknownAttribute = errors.New("models: unknown attribute")
	// ErrNoIdentity is returned when persisting a model whose schema declares no identity attribute.
	ErrNoIdentity = errors.New("models: schema has no identity attribute")
	// ErrNoStorage is returned when persisting a model without a configured Storage.
	ErrNoStorage = errors.New("models: storage is required")
	// ErrDestructed is returned when operating on a destructed model.
	ErrDestructed = errors.New("models: model is destructed")
	// ErrUnsupported is returned by attributes that do not implement an operation.
	ErrUnsupported = errors.New("models: operation not supported")
	// ErrSchemaMismatch is returned when a model of another schema is handed to a collection or nested attribute.
	ErrSchemaMismatch = errors.New("models: schema mismatch")
	// ErrNotImplemented is returned by types that do not implement ToInternal.
	ErrNotImplemented = errors.New("models: not implemented")
	// ErrConversion is returned when a value cannot be converted to an attribute type.
	ErrConversion = errors.New("models: cannot convert value")
)

// AttributeError describes why a single attribute failed validation.
type AttributeError struct {
	Attribute string
	Message   string
	Data      any
	Err       error
}

func (e *AttributeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Attribute, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Attribute, e.Err)
	case e.Data != nil:
		return fmt.Sprintf("%s: invalid (%v)", e.Attribute, e.Data)
	default:
		return fmt.Sprintf("%s: invalid", e.Attribute)
	}
}

func (e *AttributeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError aggregates the attribute failures of one Validate call.
type ValidationError struct {
	Schema string
	Errors []*AttributeError
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, 0, len(e.Errors))
	for _, attrErr := range e.Errors {
		parts = append(parts, attrErr.Error())
	}
	return fmt.Sprintf("models: %s validation failed: %s", e.Schema, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() []error {
	if e == nil {
		return nil
	}
	errs := make([]error, 0, len(e.Errors))
	for _, attrErr := range e.Errors {
		errs = append(errs, attrErr)
	}
	return errs
}

// Attribute returns the failure recorded for name, if any.
func (e *ValidationError) Attribute(name string) (*AttributeError, bool) {
	if e == nil {
		return nil, false
	}
	for _, attrErr := range e.Errors {
		if attrErr.Attribute == name {
			return attrErr, true
		}
	}
	return nil, false
}

// NonConvergenceError reports a settle cycle that still had changes after
// the maximum number of passes.
type NonConvergenceError struct {
	Schema     string
	Max        int
	Attributes []string
}

func (e *NonConvergenceError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("models: %s: after %d calculations fields %s still changed",
		e.Schema, e.Max, strings.Join(e.Attributes, ","))
}

func unknownAttribute(name string) error {
	return fmt.Errorf("%w %q", ErrUnknownAttribute, name)
}

// newAttributeError converts a validation hook result into an AttributeError.
// A string becomes the message, an error the cause, and anything else except
// true is kept as structured data.
func newAttributeError(attribute string, result any) *AttributeError {
	attrErr := &AttributeError{Attribute: attribute}
	switch typed := result.(type) {
	case *AttributeError:
		if typed.Attribute == "" {
			typed.Attribute = attribute
		}
		return typed
	case error:
		attrErr.Err = typed
	case string:
		attrErr.Message = typed
	case bool:
	default:
		attrErr.Data = typed
	}
	return attrErr
}

// isFalsy reports whether a validation hook result means "valid".
func isFalsy(result any) bool {
	switch typed := result.(type) {
	case nil:
		return true
	case bool:
		return !typed
	case string:
		return typed == ""
	case error:
		return typed == nil
	default:
		return false
	}
}
