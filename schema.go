package models

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Field declares one attribute of a schema.
type Field struct {
	Name string
	Type Type
	// Default is used when no initial value is supplied and on Unset.
	Default any
	// DefaultFunc, when set, takes precedence over Default and is invoked for
	// every default value.
	DefaultFunc func() any
	// Internal attributes are left out of ToJSON.
	Internal    bool
	Description string
}

func (f Field) defaultValue() any {
	if f.DefaultFunc != nil {
		return f.DefaultFunc()
	}
	if f.Default != nil {
		return f.Default
	}
	return typeDefault(f.Type)
}

// Schema is an ordered attribute declaration shared by all models built from it.
type Schema struct {
	name     string
	fields   []Field
	index    map[string]int
	identity string
	cfg      config

	declaration Declaration
	evalOnce    sync.Once
	evaluator   Evaluator
}

// Define declares a schema. Field names must be unique and at most one field
// may use the ID type.
func Define(name string, fields []Field, opts ...Option) (*Schema, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("models: schema name is required")
	}
	schema := &Schema{
		name:   name,
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
		cfg:    applyOptions(config{}, opts),
	}
	for _, field := range fields {
		if field.Name == "" {
			return nil, fmt.Errorf("models: %s: field name is required", name)
		}
		if field.Type == nil {
			return nil, fmt.Errorf("models: %s.%s: field type is required", name, field.Name)
		}
		if _, exists := schema.index[field.Name]; exists {
			return nil, fmt.Errorf("models: %s: duplicate field %q", name, field.Name)
		}
		if _, ok := lookup[identityMarker](field.Type); ok {
			if schema.identity != "" {
				return nil, fmt.Errorf("models: %s: fields %q and %q both declare identity", name, schema.identity, field.Name)
			}
			schema.identity = field.Name
		}
		schema.index[field.Name] = len(schema.fields)
		schema.fields = append(schema.fields, field)
		schema.declaration.Attributes = append(schema.declaration.Attributes, field.Name)
	}
	schema.declaration.Schema = name
	return schema, nil
}

// MustDefine is like Define but panics on error.
func MustDefine(name string, fields []Field, opts ...Option) *Schema {
	schema, err := Define(name, fields, opts...)
	if err != nil {
		panic(err)
	}
	return schema
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// Fields returns a copy of the field declarations in declaration order.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Field returns the declaration of name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Identity returns the name of the identity field, or "" when none is declared.
func (s *Schema) Identity() string { return s.identity }

// sharedEvaluator returns the evaluator used by models of the schema that
// configure none of their own. Without a configured cache it compiles every
// expression once per schema.
func (s *Schema) sharedEvaluator() Evaluator {
	s.evalOnce.Do(func() {
		if s.cfg.evaluator != nil {
			s.evaluator = s.cfg.evaluator
			return
		}
		opts := s.cfg.evaluatorOptions()
		if s.cfg.programCache == nil {
			opts = append(opts, EvaluatorCache(NewMemoryProgramCache()))
		}
		s.evaluator = NewExprEvaluator(opts...)
	})
	return s.evaluator
}

// FieldDescriptor describes a field path and its type.
type FieldDescriptor struct {
	Path     string
	Type     string
	Identity bool
	Internal bool
	Derived  bool
	Amends   bool
	Validate bool
	// Description is copied from the field declaration.
	Description string
}

// Describe lists the fields of the schema, descending into nested schemas
// with dotted paths.
func (s *Schema) Describe() []FieldDescriptor {
	return s.describe("", map[*Schema]bool{})
}

func (s *Schema) describe(prefix string, seen map[*Schema]bool) []FieldDescriptor {
	if seen[s] {
		return nil
	}
	seen[s] = true
	defer delete(seen, s)

	var out []FieldDescriptor
	for _, field := range s.fields {
		path := joinPath(prefix, field.Name)
		_, isIdentity := lookup[identityMarker](field.Type)
		_, derived := lookup[Deriver](field.Type)
		_, amends := lookup[Amender](field.Type)
		_, validates := lookup[Validator](field.Type)
		out = append(out, FieldDescriptor{
			Path:     path,
			Type:     TypeName(field.Type),
			Identity: isIdentity,
			Internal: field.Internal,
			Derived:  derived,
			Amends:   amends,
			Validate: validates,

			Description: field.Description,
		})
		if inner := NestedSchema(field.Type); inner != nil {
			out = append(out, inner.describe(path, seen)...)
		}
	}
	return out
}

type kinder interface {
	kind() string
}

// TypeName returns a short label for t: "text", "number", "boolean", "list",
// "object", "id", "any", "model:<schema>", "collection:<schema>" or the Go
// type name for custom types.
func TypeName(t Type) string {
	if k, ok := lookup[kinder](t); ok {
		return k.kind()
	}
	base := t
	for {
		w, ok := base.(Wrapper)
		if !ok {
			break
		}
		base = w.Unwrap()
	}
	return fmt.Sprintf("%T", base)
}

// NestedSchema returns the schema of a Nested or NestedCollection type, or nil.
func NestedSchema(t Type) *Schema {
	type schemaHolder interface{ nestedSchema() *Schema }
	if h, ok := lookup[schemaHolder](t); ok {
		return h.nestedSchema()
	}
	return nil
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + "." + segment
}
