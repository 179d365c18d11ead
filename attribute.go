package models

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-models/pkg/task"
)

// Attribute is a single named value holder owned by a Model.
type Attribute interface {
	Name() string
	Type() Type
	// Get returns the externally visible value.
	Get() any
	// Set converts and stores value. A nil value unsets the attribute.
	Set(value any) error
	// Unset restores the default value and marks the attribute as not set.
	Unset() error
	IsSet() bool
	// IsEqual compares value, converted like Set would, with the current value.
	IsEqual(value any) bool
	IsChanged(branch Branch) bool
	// Commit snapshots the current value into branch, reporting whether it had effect.
	Commit(branch Branch) bool
	// Revert restores the last DefaultBranch snapshot.
	Revert()
	LastCommitted(branch Branch) any
	// Previous returns the value held right before the latest change.
	Previous() any
	// Validate settles with nil or rejects with an *AttributeError.
	Validate() *task.Future
	// JSON returns the serializable value.
	JSON() any
	// Internal reports whether the attribute is left out of Model.ToJSON.
	Internal() bool
	// On subscribes to the attribute's own change and commit notifications.
	On(event string, fn Listener) func()
	Destruct()
}

type snapshot struct {
	value any
	isSet bool
}

// valueAttribute holds plain values: text, numbers, lists, objects, ids.
type valueAttribute struct {
	field    Field
	owner    *Model
	events   *EventBus
	value    any
	isSet    bool
	changed  bool
	branches map[Branch]snapshot
}

func newValueAttribute(field Field, owner *Model, init any) (*valueAttribute, error) {
	attr := &valueAttribute{
		field:    field,
		owner:    owner,
		events:   NewEventBus(),
		branches: map[Branch]snapshot{},
	}

	if init == nil {
		value, err := attr.defaultValue()
		if err != nil {
			return nil, err
		}
		attr.value = value
	} else {
		value, err := attr.convert(init)
		if err != nil {
			return nil, err
		}
		attr.value = value
		attr.isSet = true
	}
	attr.branches[DefaultBranch] = snapshot{value: attr.value, isSet: attr.isSet}
	return attr, nil
}

func (a *valueAttribute) Name() string { return a.field.Name }

func (a *valueAttribute) Type() Type { return a.field.Type }

func (a *valueAttribute) Internal() bool { return a.field.Internal }

func (a *valueAttribute) Get() any {
	return fromInternal(a.field.Type, a.value)
}

func (a *valueAttribute) JSON() any { return a.Get() }

func (a *valueAttribute) IsSet() bool { return a.isSet }

func (a *valueAttribute) Set(value any) error {
	if value == nil {
		return a.Unset()
	}
	internal, err := a.convert(value)
	if err != nil {
		return err
	}
	a.assign(internal, true)
	return nil
}

func (a *valueAttribute) Unset() error {
	value, err := a.defaultValue()
	if err != nil {
		return err
	}
	if !a.assign(value, false) && a.isSet {
		// the value already equals the default; only the set flag changes
		a.store(value, false)
	}
	return nil
}

// assign stores an already converted value, snapshotting the current one into
// PreviousBranch first. Equal values are ignored and leave isSet untouched.
func (a *valueAttribute) assign(value any, isSet bool) bool {
	if equalInternal(a.field.Type, a.value, value) {
		return false
	}
	a.store(value, isSet)
	return true
}

func (a *valueAttribute) store(value any, isSet bool) {
	a.branches[PreviousBranch] = snapshot{value: a.value, isSet: a.isSet}
	a.changed = true
	a.value = value
	a.isSet = isSet
	a.emit(EventChange)
}

func (a *valueAttribute) IsEqual(value any) bool {
	if value == nil {
		return !a.isSet
	}
	internal, err := a.convert(value)
	if err != nil {
		return false
	}
	return equalInternal(a.field.Type, a.value, internal)
}

func (a *valueAttribute) IsChanged(branch Branch) bool {
	branch = branch.orDefault()
	if branch == DefaultBranch {
		return a.changed
	}
	snap, ok := a.branches[branch]
	if !ok {
		return true
	}
	return snap.isSet != a.isSet || !equalInternal(a.field.Type, snap.value, a.value)
}

func (a *valueAttribute) Commit(branch Branch) bool {
	branch = branch.orDefault()
	if !a.IsChanged(branch) {
		return false
	}
	a.branches[branch] = snapshot{value: a.value, isSet: a.isSet}
	if branch == DefaultBranch {
		a.changed = false
		a.emit(EventCommit)
	}
	return true
}

func (a *valueAttribute) Revert() {
	if !a.changed {
		return
	}
	a.branches[PreviousBranch] = snapshot{value: a.value, isSet: a.isSet}
	base := a.branches[DefaultBranch]
	a.value = base.value
	a.isSet = base.isSet
	a.changed = false
	a.emit(EventChange)
}

func (a *valueAttribute) LastCommitted(branch Branch) any {
	snap, ok := a.branches[branch.orDefault()]
	if !ok {
		return nil
	}
	return fromInternal(a.field.Type, snap.value)
}

func (a *valueAttribute) Previous() any {
	return a.LastCommitted(PreviousBranch)
}

func (a *valueAttribute) Validate() *task.Future {
	return validateWith(a.owner, a.field.Name, a.field.Type, a.Get())
}

func (a *valueAttribute) On(event string, fn Listener) func() {
	return a.events.On(event, fn)
}

func (a *valueAttribute) Destruct() {
	a.events.Clear()
}

func (a *valueAttribute) emit(name string) {
	a.events.Emit(Event{Name: name, Model: a.owner, Index: -1})
}

func (a *valueAttribute) convert(value any) (any, error) {
	internal, err := a.field.Type.ToInternal(value)
	if err != nil {
		return nil, fmt.Errorf("models: %s: %w", a.field.Name, err)
	}
	return internal, nil
}

func (a *valueAttribute) defaultValue() (any, error) {
	value := a.field.defaultValue()
	if value == nil {
		return nil, nil
	}
	return a.convert(value)
}

// validateWith runs the Validator hook of t, if any, against value. The hook
// may return a *task.Future whose resolved value is interpreted the same way.
func validateWith(owner *Model, name string, t Type, value any) *task.Future {
	loop := owner.loop
	v, ok := lookup[Validator](t)
	if !ok {
		return loop.Resolved(nil)
	}
	owner.hookAttr = name
	result := v.ValidationError(owner, value)
	owner.hookAttr = ""
	if pending, ok := result.(*task.Future); ok && pending != nil {
		return pending.Then(func(resolved any) (any, error) {
			if isFalsy(resolved) {
				return nil, nil
			}
			return nil, newAttributeError(name, resolved)
		})
	}
	if isFalsy(result) {
		return loop.Resolved(nil)
	}
	return loop.Rejected(newAttributeError(name, result))
}

// asAttributeError tags a validation rejection with the attribute name.
func asAttributeError(name string, err error) *AttributeError {
	var attrErr *AttributeError
	if errors.As(err, &attrErr) {
		if attrErr.Attribute == "" {
			attrErr.Attribute = name
		}
		return attrErr
	}
	return &AttributeError{Attribute: name, Err: err}
}
