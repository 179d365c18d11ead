package models

import (
	"fmt"

	"github.com/goliatone/go-models/pkg/task"
)

// Nested declares an attribute holding a model of schema. The nested model is
// always considered set; its changes surface as changes of the attribute and
// its readiness gates the owner's calculation passes.
func Nested(schema *Schema) Type {
	return nestedModelType{schema: schema}
}

type nestedModelType struct {
	schema *Schema
}

func (t nestedModelType) ToInternal(value any) (any, error) {
	switch typed := value.(type) {
	case *Model:
		if typed.schema != t.schema {
			return nil, fmt.Errorf("%w: %s is not %s", ErrSchemaMismatch, typed.schema.name, t.schema.name)
		}
		return typed, nil
	case map[string]any:
		return t.schema.New(typed)
	default:
		return nil, conversionError("model:"+t.schema.name, value)
	}
}

func (t nestedModelType) Equal(a, b any) bool { return a == b }

func (t nestedModelType) kind() string { return "model:" + t.schema.name }

func (t nestedModelType) nestedSchema() *Schema { return t.schema }

func (t nestedModelType) newAttribute(field Field, owner *Model, init any) (Attribute, error) {
	if init == nil {
		init = field.defaultValue()
	}
	var inner *Model
	switch typed := init.(type) {
	case nil:
		m, err := t.schema.New(nil, owner.childOptions()...)
		if err != nil {
			return nil, err
		}
		inner = m
	case *Model:
		if typed.schema != t.schema {
			return nil, fmt.Errorf("models: %s: %w: %s is not %s", field.Name, ErrSchemaMismatch, typed.schema.name, t.schema.name)
		}
		inner = typed
	case map[string]any:
		m, err := t.schema.New(typed, owner.childOptions()...)
		if err != nil {
			return nil, fmt.Errorf("models: %s: %w", field.Name, err)
		}
		inner = m
	default:
		return nil, fmt.Errorf("models: %s: %w", field.Name, conversionError(t.kind(), init))
	}

	attr := &nestedModelAttribute{field: field, owner: owner, events: NewEventBus()}
	attr.bindTo(inner)
	return attr, nil
}

type nestedModelAttribute struct {
	field  Field
	owner  *Model
	events *EventBus
	value  *Model
	unbind func()
}

func (a *nestedModelAttribute) bindTo(inner *Model) {
	a.value = inner
	a.unbind = inner.On(EventCalculate, func(Event) { a.emit(EventChange) })
}

func (a *nestedModelAttribute) unbindInner() {
	if a.unbind != nil {
		a.unbind()
		a.unbind = nil
	}
}

func (a *nestedModelAttribute) Name() string { return a.field.Name }

func (a *nestedModelAttribute) Type() Type { return a.field.Type }

func (a *nestedModelAttribute) Internal() bool { return a.field.Internal }

// Get returns the nested *Model.
func (a *nestedModelAttribute) Get() any { return a.value }

func (a *nestedModelAttribute) JSON() any { return a.value.ToJSON() }

// Set rebinds to a *Model of the same schema, or forwards a partial update
// to the nested model.
func (a *nestedModelAttribute) Set(value any) error {
	switch typed := value.(type) {
	case nil:
		return a.Unset()
	case *Model:
		if typed == a.value {
			return nil
		}
		if typed.schema != a.value.schema {
			return fmt.Errorf("models: %s: %w: %s is not %s", a.field.Name, ErrSchemaMismatch, typed.schema.name, a.value.schema.name)
		}
		a.unbindInner()
		a.bindTo(typed)
		a.emit(EventChange)
		return nil
	case map[string]any:
		return a.value.SetMany(typed)
	default:
		return fmt.Errorf("models: %s: %w", a.field.Name, conversionError(TypeName(a.field.Type), value))
	}
}

func (a *nestedModelAttribute) Unset() error {
	return fmt.Errorf("%w: unset of nested model %q", ErrUnsupported, a.field.Name)
}

func (a *nestedModelAttribute) IsSet() bool { return true }

func (a *nestedModelAttribute) IsEqual(value any) bool {
	inner, ok := value.(*Model)
	return ok && inner == a.value
}

func (a *nestedModelAttribute) IsChanged(branch Branch) bool {
	return a.value.IsChanged(branch)
}

func (a *nestedModelAttribute) Commit(branch Branch) bool {
	changed := a.value.Commit(branch)
	if changed && branch.orDefault() == DefaultBranch {
		a.emit(EventCommit)
	}
	return changed
}

func (a *nestedModelAttribute) Revert() { a.value.Revert() }

func (a *nestedModelAttribute) LastCommitted(branch Branch) any {
	return a.value.LastCommitted(branch)
}

func (a *nestedModelAttribute) Previous() any { return a.value.Previous() }

func (a *nestedModelAttribute) Ready() *task.Future { return a.value.Ready() }

// Validate validates the nested model first; its *ValidationError becomes the
// cause of the attribute failure.
func (a *nestedModelAttribute) Validate() *task.Future {
	return validateNested(a.owner, a.field, a.value.Validate(), a.value)
}

func (a *nestedModelAttribute) On(event string, fn Listener) func() {
	return a.events.On(event, fn)
}

func (a *nestedModelAttribute) Destruct() {
	a.unbindInner()
	a.events.Clear()
}

func (a *nestedModelAttribute) emit(name string) {
	a.events.Emit(Event{Name: name, Model: a.owner, Index: -1})
}

// validateNested wraps an inner validation rejection as an *AttributeError and
// then applies the field's own Validator hook, if any.
func validateNested(owner *Model, field Field, inner *task.Future, value any) *task.Future {
	out := owner.loop.NewFuture()
	inner.OnSettle(func(_ any, err error) {
		if err != nil {
			out.Reject(&AttributeError{Attribute: field.Name, Err: err})
			return
		}
		validateWith(owner, field.Name, field.Type, value).OnSettle(func(v any, err error) {
			if err != nil {
				out.Reject(err)
				return
			}
			out.Resolve(v)
		})
	})
	return out
}

// childOptions are handed to models and collections created on behalf of m.
func (m *Model) childOptions() []Option {
	opts := []Option{WithLoop(m.loop)}
	if m.cfg.logger != nil {
		opts = append(opts, WithLogger(m.cfg.logger))
	}
	if m.cfg.observer != nil {
		opts = append(opts, WithObserver(m.cfg.observer))
	}
	return opts
}
