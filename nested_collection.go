package models

import (
	"fmt"
	"reflect"

	"github.com/goliatone/go-models/pkg/task"
)

// NestedCollection declares an attribute holding a collection of schema
// models. Membership changes and member recalculations surface as changes of
// the attribute.
func NestedCollection(schema *Schema) Type {
	return nestedCollectionType{schema: schema}
}

type nestedCollectionType struct {
	schema *Schema
}

func (t nestedCollectionType) ToInternal(value any) (any, error) {
	if typed, ok := value.(*Collection); ok {
		if typed.schema != t.schema {
			return nil, fmt.Errorf("%w: %s is not %s", ErrSchemaMismatch, typed.schema.name, t.schema.name)
		}
		return typed, nil
	}
	items, err := collectionItems(value, t.kind())
	if err != nil {
		return nil, err
	}
	return NewCollection(t.schema, items)
}

func (t nestedCollectionType) Equal(a, b any) bool { return a == b }

func (t nestedCollectionType) kind() string { return "collection:" + t.schema.name }

func (t nestedCollectionType) nestedSchema() *Schema { return t.schema }

func (t nestedCollectionType) newAttribute(field Field, owner *Model, init any) (Attribute, error) {
	if init == nil {
		init = field.defaultValue()
	}
	var coll *Collection
	if typed, ok := init.(*Collection); ok {
		if typed.schema != t.schema {
			return nil, fmt.Errorf("models: %s: %w: %s is not %s", field.Name, ErrSchemaMismatch, typed.schema.name, t.schema.name)
		}
		coll = typed
	} else {
		items, err := collectionItems(init, t.kind())
		if err != nil {
			return nil, fmt.Errorf("models: %s: %w", field.Name, err)
		}
		coll, err = NewCollection(t.schema, items, owner.childOptions()...)
		if err != nil {
			return nil, fmt.Errorf("models: %s: %w", field.Name, err)
		}
	}

	attr := &nestedCollectionAttribute{field: field, owner: owner, events: NewEventBus()}
	attr.bindTo(coll)
	return attr, nil
}

// collectionItems accepts nil, []any, []*Model, []map[string]any or any other
// slice of those element types.
func collectionItems(value any, kind string) ([]any, error) {
	switch typed := value.(type) {
	case nil:
		return nil, nil
	case []any:
		return typed, nil
	case []*Model:
		return toItems(typed), nil
	case []map[string]any:
		return toItems(typed), nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, conversionError(kind, value)
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, nil
}

type nestedCollectionAttribute struct {
	field  Field
	owner  *Model
	events *EventBus
	value  *Collection
	unbind func()
}

func (a *nestedCollectionAttribute) bindTo(coll *Collection) {
	a.value = coll
	a.unbind = coll.On(AllEvents, func(e Event) {
		switch e.Name {
		case EventAdd, EventRemove, EventReset, EventCalculate:
			a.emit(EventChange)
		}
	})
}

func (a *nestedCollectionAttribute) unbindInner() {
	if a.unbind != nil {
		a.unbind()
		a.unbind = nil
	}
}

func (a *nestedCollectionAttribute) Name() string { return a.field.Name }

func (a *nestedCollectionAttribute) Type() Type { return a.field.Type }

func (a *nestedCollectionAttribute) Internal() bool { return a.field.Internal }

// Get returns the nested *Collection.
func (a *nestedCollectionAttribute) Get() any { return a.value }

func (a *nestedCollectionAttribute) JSON() any { return a.value.ToJSON() }

// Set rebinds to another *Collection of the same schema or replaces the
// membership of the current one with a slice of items.
func (a *nestedCollectionAttribute) Set(value any) error {
	switch typed := value.(type) {
	case nil:
		return a.Unset()
	case *Collection:
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
	}
	items, err := collectionItems(value, TypeName(a.field.Type))
	if err != nil {
		return fmt.Errorf("models: %s: %w", a.field.Name, err)
	}
	return a.value.Set(items)
}

func (a *nestedCollectionAttribute) Unset() error {
	return fmt.Errorf("%w: unset of nested collection %q", ErrUnsupported, a.field.Name)
}

func (a *nestedCollectionAttribute) IsSet() bool { return true }

func (a *nestedCollectionAttribute) IsEqual(value any) bool {
	coll, ok := value.(*Collection)
	return ok && coll == a.value
}

func (a *nestedCollectionAttribute) IsChanged(branch Branch) bool {
	return a.value.IsChanged(branch)
}

func (a *nestedCollectionAttribute) Commit(branch Branch) bool {
	changed := a.value.Commit(branch)
	if changed && branch.orDefault() == DefaultBranch {
		a.emit(EventCommit)
	}
	return changed
}

func (a *nestedCollectionAttribute) Revert() { a.value.Revert() }

func (a *nestedCollectionAttribute) LastCommitted(branch Branch) any {
	return a.value.LastCommitted(branch)
}

func (a *nestedCollectionAttribute) Previous() any { return a.value.Previous() }

func (a *nestedCollectionAttribute) Ready() *task.Future { return a.value.Ready() }

func (a *nestedCollectionAttribute) Validate() *task.Future {
	return validateNested(a.owner, a.field, a.value.Validate(), a.value)
}

func (a *nestedCollectionAttribute) On(event string, fn Listener) func() {
	return a.events.On(event, fn)
}

func (a *nestedCollectionAttribute) Destruct() {
	a.unbindInner()
	a.events.Clear()
}

func (a *nestedCollectionAttribute) emit(name string) {
	a.events.Emit(Event{Name: name, Model: a.owner, Index: -1})
}
