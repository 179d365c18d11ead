package models

import "strings"

// Event names emitted by models, attributes and collections.
const (
	EventChange    = "change"
	EventCommit    = "commit"
	EventCalculate = "calculate"
	EventAdd       = "add"
	EventRemove    = "remove"
	EventReset     = "reset"
	EventDestruct  = "destruct"

	// AllEvents subscribes a listener to every event of a bus.
	AllEvents = "*"
)

// ChangeEvent returns the per-attribute change event name ("change:<name>").
func ChangeEvent(attribute string) string {
	return EventChange + ":" + attribute
}

// CommitEvent returns the per-attribute commit event name ("commit:<name>").
func CommitEvent(attribute string) string {
	return EventCommit + ":" + attribute
}

// Event is a notification delivered to listeners.
type Event struct {
	Name       string
	Model      *Model
	Collection *Collection
	// Index is the member position for add and remove events, -1 otherwise.
	Index int
}

// Attribute returns the attribute part of "change:<name>" and "commit:<name>" events.
func (e Event) Attribute() string {
	if _, attr, ok := strings.Cut(e.Name, ":"); ok {
		return attr
	}
	return ""
}

// Listener receives events.
type Listener func(Event)

type subscription struct {
	id int
	fn Listener
}

// EventBus is a per-instance publish/subscribe hub. Listeners run
// synchronously in subscription order; a listener removed during dispatch
// still sees the event being dispatched.
type EventBus struct {
	listeners map[string][]subscription
	seq       int
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{listeners: map[string][]subscription{}}
}

// On subscribes fn to name and returns a function that removes it.
func (b *EventBus) On(name string, fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	if b.listeners == nil {
		b.listeners = map[string][]subscription{}
	}
	b.seq++
	id := b.seq
	b.listeners[name] = append(b.listeners[name], subscription{id: id, fn: fn})
	return func() { b.off(name, id) }
}

func (b *EventBus) off(name string, id int) {
	subs := b.listeners[name]
	for i, sub := range subs {
		if sub.id == id {
			next := make([]subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			if len(next) == 0 {
				delete(b.listeners, name)
			} else {
				b.listeners[name] = next
			}
			return
		}
	}
}

// Emit delivers event to listeners of event.Name, then to AllEvents listeners.
func (b *EventBus) Emit(event Event) {
	if b == nil || len(b.listeners) == 0 {
		return
	}
	for _, sub := range b.listeners[event.Name] {
		sub.fn(event)
	}
	if event.Name == AllEvents {
		return
	}
	for _, sub := range b.listeners[AllEvents] {
		sub.fn(event)
	}
}

// Has reports whether any listener is subscribed to name.
func (b *EventBus) Has(name string) bool {
	return b != nil && len(b.listeners[name]) > 0
}

// Clear removes every listener.
func (b *EventBus) Clear() {
	b.listeners = map[string][]subscription{}
}
