package models

import (
	"encoding/json"
	"errors"

	"github.com/goliatone/go-models/pkg/activity"
	"github.com/goliatone/go-models/pkg/task"
)

// Model is an instance of a Schema: an ordered set of attributes kept
// consistent by the calculation engine.
type Model struct {
	schema     *Schema
	cfg        config
	loop       *task.Loop
	events     *EventBus
	attrs      []Attribute
	byName     map[string]Attribute
	identity   Attribute
	unbinders  []func()
	collection *Collection
	activity   *activity.Emitter

	ready       bool
	readyFuture *task.Future
	changed     map[string]struct{}
	notify      []string
	notifySeen  map[string]struct{}
	depth       int
	cycle       cycleStats
	destructed  bool

	evaluator    Evaluator
	ownEvaluator bool
	// hookAttr names the attribute whose hook is running.
	hookAttr string
}

// New builds a model from data. Keys without a matching field are ignored and
// nil values leave the attribute at its default. The first calculation pass is
// scheduled before New returns.
func (s *Schema) New(data map[string]any, opts ...Option) (*Model, error) {
	cfg := applyOptions(s.cfg, opts)
	instance := applyOptions(config{}, opts)
	m := &Model{
		schema:       s,
		cfg:          cfg,
		loop:         cfg.taskLoop(),
		events:       NewEventBus(),
		byName:       make(map[string]Attribute, len(s.fields)),
		collection:   cfg.collection,
		activity:     activity.NewEmitter(cfg.activityHooks, cfg.activityConfig),
		ready:        true,
		changed:      map[string]struct{}{},
		notifySeen:   map[string]struct{}{},
		ownEvaluator: instance.programCache != nil || instance.functions != nil,
	}
	m.readyFuture = m.loop.Resolved(nil)

	for _, field := range s.fields {
		attr, err := m.newAttribute(field, data[field.Name])
		if err != nil {
			for _, built := range m.attrs {
				built.Destruct()
			}
			return nil, err
		}
		m.attrs = append(m.attrs, attr)
		m.byName[field.Name] = attr
		if field.Name == s.identity {
			m.identity = attr
		}
	}
	for _, attr := range m.attrs {
		m.bind(attr)
	}

	m.calculate()
	return m, nil
}

// MustNew is like New but panics on error.
func (s *Schema) MustNew(data map[string]any, opts ...Option) *Model {
	m, err := s.New(data, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Model) newAttribute(field Field, init any) (Attribute, error) {
	if factory, ok := lookup[attributeFactory](field.Type); ok {
		return factory.newAttribute(field, m, init)
	}
	return newValueAttribute(field, m, init)
}

func (m *Model) bind(attr Attribute) {
	name := attr.Name()
	m.unbinders = append(m.unbinders,
		attr.On(EventChange, func(Event) { m.attributeChanged(name) }),
		attr.On(EventCommit, func(Event) { m.emit(CommitEvent(name)) }),
	)
}

// Schema returns the schema the model was built from.
func (m *Model) Schema() *Schema { return m.schema }

// Collection returns the collection currently claiming the model, if any.
func (m *Model) Collection() *Collection { return m.collection }

// Attribute returns the attribute called name.
func (m *Model) Attribute(name string) (Attribute, bool) {
	attr, ok := m.byName[name]
	return attr, ok
}

// Attributes returns the attributes in declaration order.
func (m *Model) Attributes() []Attribute {
	return append([]Attribute(nil), m.attrs...)
}

func (m *Model) attribute(name string) (Attribute, error) {
	attr, ok := m.byName[name]
	if !ok {
		return nil, unknownAttribute(name)
	}
	return attr, nil
}

// Get returns the value of name.
func (m *Model) Get(name string) (any, error) {
	attr, err := m.attribute(name)
	if err != nil {
		return nil, err
	}
	return attr.Get(), nil
}

// Value returns the value of name, or nil for unknown attributes. It is meant
// for derive and amend hooks where the attribute set is known.
func (m *Model) Value(name string) any {
	if attr, ok := m.byName[name]; ok {
		return attr.Get()
	}
	return nil
}

// Set assigns value to name. A nil value unsets the attribute.
func (m *Model) Set(name string, value any) error {
	if m.destructed {
		return ErrDestructed
	}
	attr, err := m.attribute(name)
	if err != nil {
		return err
	}
	return attr.Set(value)
}

// SetMany assigns every known key of data in declaration order. Unknown keys
// are ignored; conversion failures are joined and do not stop the other keys.
func (m *Model) SetMany(data map[string]any) error {
	if m.destructed {
		return ErrDestructed
	}
	var errs []error
	for _, attr := range m.attrs {
		value, ok := data[attr.Name()]
		if !ok {
			continue
		}
		if err := attr.Set(value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Unset restores the default of name.
func (m *Model) Unset(name string) error {
	if m.destructed {
		return ErrDestructed
	}
	attr, err := m.attribute(name)
	if err != nil {
		return err
	}
	return attr.Unset()
}

// IsSet reports whether name was explicitly assigned.
func (m *Model) IsSet(name string) (bool, error) {
	attr, err := m.attribute(name)
	if err != nil {
		return false, err
	}
	return attr.IsSet(), nil
}

// ID returns the identity value, or nil when the schema has no identity field
// or it is unset.
func (m *Model) ID() any {
	if m.identity == nil {
		return nil
	}
	return m.identity.Get()
}

// IsNew reports whether the model has no identity value yet.
func (m *Model) IsNew() bool {
	return m.ID() == nil
}

// IsChanged reports whether any attribute changed relative to branch.
func (m *Model) IsChanged(branch Branch) bool {
	for _, attr := range m.attrs {
		if attr.IsChanged(branch) {
			return true
		}
	}
	return false
}

// Commit commits every attribute to branch. A DefaultBranch commit that had
// effect emits EventCommit. A destructed model commits nothing.
func (m *Model) Commit(branch Branch) bool {
	if m.destructed {
		return false
	}
	branch = branch.orDefault()
	changed := false
	for _, attr := range m.attrs {
		if attr.Commit(branch) {
			changed = true
		}
	}
	if changed && branch == DefaultBranch {
		m.emit(EventCommit)
	}
	return changed
}

// Revert restores every attribute to its last DefaultBranch commit. It is a
// no-op on a destructed model.
func (m *Model) Revert() {
	if m.destructed {
		return
	}
	for _, attr := range m.attrs {
		attr.Revert()
	}
}

// LastCommitted returns the non-internal values stored in branch.
func (m *Model) LastCommitted(branch Branch) map[string]any {
	return m.serialize(func(attr Attribute) any { return attr.LastCommitted(branch) })
}

// Previous returns the non-internal values held before each attribute's latest change.
func (m *Model) Previous() map[string]any {
	return m.serialize(Attribute.Previous)
}

// PreviousValue returns the value name held before its latest change.
func (m *Model) PreviousValue(name string) (any, error) {
	attr, err := m.attribute(name)
	if err != nil {
		return nil, err
	}
	return attr.Previous(), nil
}

// ToJSON returns a plain snapshot of the non-internal attributes.
func (m *Model) ToJSON() map[string]any {
	return m.serialize(Attribute.JSON)
}

// MarshalJSON encodes ToJSON.
func (m *Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.ToJSON())
}

func (m *Model) serialize(value func(Attribute) any) map[string]any {
	out := make(map[string]any, len(m.attrs))
	for _, attr := range m.attrs {
		if attr.Internal() {
			continue
		}
		out[attr.Name()] = value(attr)
	}
	return out
}

// snapshot includes internal attributes; it feeds expression hooks.
func (m *Model) snapshot() map[string]any {
	out := make(map[string]any, len(m.attrs))
	for _, attr := range m.attrs {
		out[attr.Name()] = attr.JSON()
	}
	return out
}

// On subscribes fn to event and returns a function removing the subscription.
func (m *Model) On(event string, fn Listener) func() {
	return m.events.On(event, fn)
}

func (m *Model) emit(name string) {
	m.events.Emit(Event{Name: name, Model: m, Index: -1})
}

// IsDestructed reports whether Destruct was called.
func (m *Model) IsDestructed() bool { return m.destructed }

// Destruct emits EventDestruct, drops every listener and releases the
// attributes. The model is inert afterwards.
func (m *Model) Destruct() {
	if m.destructed {
		return
	}
	m.destructed = true
	m.emit(EventDestruct)
	m.events.Clear()
	for _, unbind := range m.unbinders {
		unbind()
	}
	m.unbinders = nil
	for _, attr := range m.attrs {
		attr.Destruct()
	}
}
