package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/goliatone/go-models/pkg/task"
)

// Collection is an ordered set of models of one schema, indexed by identity
// once members are persisted. It aggregates the change state of its members
// with its own membership snapshots.
type Collection struct {
	schema     *Schema
	opts       []Option
	loop       *task.Loop
	events     *EventBus
	models     []*Model
	byID       map[string]*Model
	bindings   map[*Model]func()
	branches   map[Branch][]*Model
	destructed bool
}

// NewCollection builds a collection from items, each a *Model of schema or a
// map[string]any of initial data. The initial membership is committed.
func NewCollection(schema *Schema, items []any, opts ...Option) (*Collection, error) {
	cfg := applyOptions(schema.cfg, opts)
	c := &Collection{
		schema:   schema,
		opts:     append([]Option(nil), opts...),
		loop:     cfg.taskLoop(),
		events:   NewEventBus(),
		byID:     map[string]*Model{},
		bindings: map[*Model]func(){},
		branches: map[Branch][]*Model{},
	}
	if err := c.Set(items); err != nil {
		return nil, err
	}
	c.Commit(DefaultBranch)
	return c, nil
}

// Schema returns the member schema.
func (c *Collection) Schema() *Schema { return c.schema }

func idKey(id any) string {
	return fmt.Sprint(id)
}

func (c *Collection) memberOptions() []Option {
	opts := append([]Option(nil), c.opts...)
	return append(opts, WithLoop(c.loop), WithCollection(c))
}

// prepare coerces item into a member model. created reports whether the model
// was built here.
func (c *Collection) prepare(item any) (m *Model, created bool, err error) {
	switch typed := item.(type) {
	case *Model:
		if typed.schema != c.schema {
			return nil, false, fmt.Errorf("%w: %s is not %s", ErrSchemaMismatch, typed.schema.name, c.schema.name)
		}
		if typed.destructed {
			return nil, false, ErrDestructed
		}
		return typed, false, nil
	case map[string]any:
		m, err := c.schema.New(typed, c.memberOptions()...)
		return m, err == nil, err
	default:
		return nil, false, conversionError("model:"+c.schema.name, item)
	}
}

type preparedItem struct {
	model   *Model
	created bool
}

// prepareAll coerces every item or none: on failure the models built so far
// are destructed.
func (c *Collection) prepareAll(items []any) ([]preparedItem, error) {
	batch := make([]preparedItem, 0, len(items))
	for _, item := range items {
		m, created, err := c.prepare(item)
		if err != nil {
			for _, p := range batch {
				if p.created {
					p.model.Destruct()
				}
			}
			return nil, err
		}
		batch = append(batch, preparedItem{model: m, created: created})
	}
	return batch, nil
}

func toItems[T any](values []T) []any {
	items := make([]any, len(values))
	for i, v := range values {
		items[i] = v
	}
	return items
}

// Set replaces the whole membership. Every current member is released, then
// items are coerced and claimed in order; repeated references are kept once.
// When an item cannot be coerced the membership is left untouched.
func (c *Collection) Set(items []any) error {
	batch, err := c.prepareAll(items)
	if err != nil {
		return err
	}
	prepared := make([]*Model, 0, len(batch))
	seen := make(map[*Model]bool, len(batch))
	for _, p := range batch {
		if seen[p.model] {
			continue
		}
		seen[p.model] = true
		prepared = append(prepared, p.model)
	}

	c.Commit(PreviousBranch)
	for _, m := range c.models {
		c.unbind(m)
	}
	c.models = prepared
	for _, m := range prepared {
		c.bind(m)
	}
	c.emit(EventReset, nil, -1)
	return nil
}

// SetModels is Set for already built models.
func (c *Collection) SetModels(models ...*Model) error {
	return c.Set(toItems(models))
}

// Add appends items, skipping members already present by reference or by identity.
func (c *Collection) Add(items ...any) error {
	return c.insert(-1, items)
}

// Insert places items starting at index at.
func (c *Collection) Insert(at int, items ...any) error {
	if at < 0 {
		at = 0
	}
	return c.insert(at, items)
}

func (c *Collection) insert(at int, items []any) error {
	batch, err := c.prepareAll(items)
	if err != nil {
		return err
	}
	c.Commit(PreviousBranch)
	for i, p := range batch {
		m, created := p.model, p.created
		if c.contains(m) {
			continue
		}
		if !m.IsNew() {
			if _, exists := c.byID[idKey(m.ID())]; exists {
				if created {
					m.Destruct()
				}
				continue
			}
		}
		pos := len(c.models)
		if at >= 0 && at+i < pos {
			pos = at + i
		}
		c.models = slices.Insert(c.models, pos, m)
		c.bind(m)
		c.emit(EventAdd, m, pos)
	}
	return nil
}

// Remove releases models that are members; others are ignored.
func (c *Collection) Remove(models ...*Model) {
	c.Commit(PreviousBranch)
	for _, m := range models {
		if c.contains(m) {
			c.removeModel(m)
		}
	}
}

func (c *Collection) removeModel(m *Model) {
	at := c.IndexOf(m)
	if at < 0 {
		return
	}
	c.unbind(m)
	c.models = slices.Delete(c.models, at, at+1)
	c.emit(EventRemove, m, at)
}

func (c *Collection) bind(m *Model) {
	if m.collection == nil {
		m.collection = c
	}
	if !m.IsNew() {
		c.byID[idKey(m.ID())] = m
	}
	c.bindings[m] = m.On(AllEvents, func(e Event) { c.onModelEvent(m, e) })
}

func (c *Collection) unbind(m *Model) {
	if off, ok := c.bindings[m]; ok {
		off()
		delete(c.bindings, m)
	}
	if m.collection == c {
		m.collection = nil
	}
	c.dropIndex(m)
}

func (c *Collection) dropIndex(m *Model) {
	for key, indexed := range c.byID {
		if indexed == m {
			delete(c.byID, key)
		}
	}
}

func (c *Collection) onModelEvent(m *Model, e Event) {
	switch {
	case e.Name == EventDestruct:
		c.removeModel(m)
	case m.schema.identity != "" && e.Name == ChangeEvent(m.schema.identity):
		c.dropIndex(m)
		if !m.IsNew() {
			c.byID[idKey(m.ID())] = m
		}
	}
	e.Collection = c
	c.events.Emit(e)
}

func (c *Collection) emit(name string, m *Model, index int) {
	c.events.Emit(Event{Name: name, Model: m, Collection: c, Index: index})
}

// On subscribes fn to collection events and to every event forwarded from members.
func (c *Collection) On(event string, fn Listener) func() {
	return c.events.On(event, fn)
}

// Get returns the member whose identity is id.
func (c *Collection) Get(id any) (*Model, bool) {
	if id == nil {
		return nil, false
	}
	m, ok := c.byID[idKey(id)]
	return m, ok
}

// At returns the member at index, or nil when out of range.
func (c *Collection) At(index int) *Model {
	if index < 0 || index >= len(c.models) {
		return nil
	}
	return c.models[index]
}

// Len returns the number of members.
func (c *Collection) Len() int { return len(c.models) }

// Models returns the members in order.
func (c *Collection) Models() []*Model {
	return append([]*Model(nil), c.models...)
}

// IndexOf returns the position of m, or -1.
func (c *Collection) IndexOf(m *Model) int {
	return slices.Index(c.models, m)
}

func (c *Collection) contains(m *Model) bool {
	return c.IndexOf(m) >= 0
}

// Find returns the first member for which fn reports true.
func (c *Collection) Find(fn func(m *Model, index int) bool) *Model {
	for i, m := range c.models {
		if fn(m, i) {
			return m
		}
	}
	return nil
}

// Where returns the members whose attributes equal every condition.
func (c *Collection) Where(conditions map[string]any) []*Model {
	var out []*Model
	for _, m := range c.models {
		if matches(m, conditions) {
			out = append(out, m)
		}
	}
	return out
}

// FindWhere returns the first member matching every condition.
func (c *Collection) FindWhere(conditions map[string]any) *Model {
	return c.Find(func(m *Model, _ int) bool { return matches(m, conditions) })
}

func matches(m *Model, conditions map[string]any) bool {
	for name, want := range conditions {
		attr, ok := m.byName[name]
		if !ok || !attr.IsEqual(want) {
			return false
		}
	}
	return true
}

// Pluck returns the value of name for every member.
func (c *Collection) Pluck(name string) []any {
	out := make([]any, len(c.models))
	for i, m := range c.models {
		out[i] = m.Value(name)
	}
	return out
}

func (c *Collection) sameMembers(snapshot []*Model) bool {
	return slices.Equal(c.models, snapshot)
}

// IsChanged reports whether a member changed relative to branch or the member
// sequence differs from the branch snapshot.
func (c *Collection) IsChanged(branch Branch) bool {
	branch = branch.orDefault()
	for _, m := range c.models {
		if m.IsChanged(branch) {
			return true
		}
	}
	return !c.sameMembers(c.branches[branch])
}

// Commit commits every member to branch and snapshots the member sequence.
func (c *Collection) Commit(branch Branch) bool {
	branch = branch.orDefault()
	if !c.IsChanged(branch) {
		return false
	}
	changed := false
	for _, m := range c.models {
		if m.Commit(branch) {
			changed = true
		}
	}
	if !c.sameMembers(c.branches[branch]) {
		c.branches[branch] = slices.Clone(c.models)
		changed = true
	}
	if changed && branch == DefaultBranch {
		c.emit(EventCommit, nil, -1)
	}
	return changed
}

// Revert reverts every member and restores the committed member sequence.
func (c *Collection) Revert() {
	if !c.IsChanged(DefaultBranch) {
		return
	}
	for _, m := range c.models {
		m.Revert()
	}
	if base := c.branches[DefaultBranch]; !c.sameMembers(base) {
		// committed members are of the collection schema and cannot fail prepare
		_ = c.SetModels(base...)
	}
}

// LastCommitted returns the committed data of the members stored in branch.
func (c *Collection) LastCommitted(branch Branch) []map[string]any {
	snapshot := c.branches[branch.orDefault()]
	out := make([]map[string]any, len(snapshot))
	for i, m := range snapshot {
		out[i] = m.LastCommitted(branch)
	}
	return out
}

// Previous returns the members and values as they were before the latest change.
func (c *Collection) Previous() []map[string]any {
	return c.LastCommitted(PreviousBranch)
}

// ToJSON returns the ToJSON snapshot of every member.
func (c *Collection) ToJSON() []map[string]any {
	out := make([]map[string]any, len(c.models))
	for i, m := range c.models {
		out[i] = m.ToJSON()
	}
	return out
}

// MarshalJSON encodes ToJSON.
func (c *Collection) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.ToJSON())
}

// Ready settles once every current member is ready.
func (c *Collection) Ready() *task.Future {
	futures := make([]*task.Future, 0, len(c.models))
	for _, m := range c.models {
		if ready := m.Ready(); !ready.IsSettled() || ready.IsRejected() {
			futures = append(futures, ready)
		}
	}
	if len(futures) == 0 {
		return c.loop.Resolved(nil)
	}
	return task.All(c.loop, futures...).Then(func(any) (any, error) { return nil, nil })
}

// Validate validates every member. Failures are reported as a
// *ValidationError whose attribute names are member indexes.
func (c *Collection) Validate() *task.Future {
	members := c.Models()
	futures := make([]*task.Future, len(members))
	for i, m := range members {
		futures[i] = m.Validate()
	}
	return task.AllSettled(c.loop, futures...).Then(func(value any) (any, error) {
		outcomes, _ := value.([]task.Outcome)
		var failures []*AttributeError
		for i, outcome := range outcomes {
			if outcome.Err == nil {
				continue
			}
			failures = append(failures, &AttributeError{Attribute: strconv.Itoa(i), Err: outcome.Err})
		}
		if len(failures) > 0 {
			return nil, &ValidationError{Schema: c.schema.name, Errors: failures}
		}
		return true, nil
	})
}

// IsDestructed reports whether Destruct was called.
func (c *Collection) IsDestructed() bool { return c.destructed }

// Destruct releases every member and drops all listeners. Members themselves
// stay usable.
func (c *Collection) Destruct() {
	if c.destructed {
		return
	}
	c.destructed = true
	for _, m := range c.models {
		c.unbind(m)
	}
	c.emit(EventDestruct, nil, -1)
	c.events.Clear()
}
