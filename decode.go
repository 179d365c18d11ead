package models

import "github.com/goliatone/go-models/internal/hydrate"

// DecodeOption configures Decode.
type DecodeOption[T any] = hydrate.Option[T]

// DecodeStrict makes Decode reject attributes without a matching struct field.
func DecodeStrict[T any]() DecodeOption[T] { return hydrate.WithStrict[T]() }

// DecodeWith runs fn on the decoded value, failing Decode when it errors.
func DecodeWith[T any](fn func(*T) error) DecodeOption[T] {
	return hydrate.WithPostHook[T](func(_ hydrate.Source, out *T) error { return fn(out) })
}

// Decode fills a T from the ToJSON snapshot of m using the encoding/json
// field rules. Internal attributes are not visible.
func Decode[T any](m *Model, opts ...DecodeOption[T]) (T, error) {
	src := hydrate.Source{Schema: m.schema.name, ID: m.ID()}
	return hydrate.New(opts...).Decode(src, m.ToJSON())
}
