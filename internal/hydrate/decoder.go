// Package hydrate decodes model snapshots into typed Go structs.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Source names the model a snapshot came from; it only feeds error messages
// and hooks.
type Source struct {
	Schema string
	ID     any
}

func (s Source) String() string {
	if s.ID == nil {
		return s.Schema
	}
	return fmt.Sprintf("%s/%v", s.Schema, s.ID)
}

// PreHook may rewrite the snapshot before decoding. Returning nil keeps it.
type PreHook func(Source, map[string]any) (map[string]any, error)

// PostHook adjusts or validates the decoded value.
type PostHook[T any] func(Source, *T) error

// Option configures a Decoder.
type Option[T any] func(*Decoder[T])

// Decoder turns snapshots into T through a JSON round trip.
type Decoder[T any] struct {
	pre       []PreHook
	post      []PostHook[T]
	configure []func(*json.Decoder)
}

func WithPreHook[T any](hook PreHook) Option[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.pre = append(d.pre, hook)
		}
	}
}

func WithPostHook[T any](hook PostHook[T]) Option[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.post = append(d.post, hook)
		}
	}
}

// WithStrict rejects snapshot keys that have no matching struct field.
func WithStrict[T any]() Option[T] {
	return func(d *Decoder[T]) {
		d.configure = append(d.configure, (*json.Decoder).DisallowUnknownFields)
	}
}

// WithUseNumber decodes numbers into interface fields as json.Number.
func WithUseNumber[T any]() Option[T] {
	return func(d *Decoder[T]) {
		d.configure = append(d.configure, (*json.Decoder).UseNumber)
	}
}

func New[T any](opts ...Option[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode runs the pre hooks, decodes snapshot into T and runs the post hooks.
func (d *Decoder[T]) Decode(src Source, snapshot map[string]any) (T, error) {
	var zero T
	if snapshot == nil {
		return zero, fmt.Errorf("hydrate: %s: snapshot is nil", src)
	}

	current := snapshot
	for _, hook := range d.pre {
		next, err := hook(src, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: %s: pre-hook: %w", src, err)
		}
		if next != nil {
			current = next
		}
	}

	raw, err := json.Marshal(current)
	if err != nil {
		return zero, fmt.Errorf("hydrate: %s: encode: %w", src, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	for _, configure := range d.configure {
		configure(dec)
	}
	var out T
	if err := dec.Decode(&out); err != nil {
		return zero, fmt.Errorf("hydrate: %s: decode: %w", src, err)
	}

	for _, hook := range d.post {
		if err := hook(src, &out); err != nil {
			return zero, fmt.Errorf("hydrate: %s: post-hook: %w", src, err)
		}
	}
	return out, nil
}
