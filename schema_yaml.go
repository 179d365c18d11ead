package models

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// schemaDocument is the YAML layout read by LoadSchemas:
//
//	schemas:
//	  - name: line
//	    fields:
//	      - {name: qty, type: number, default: 1, validate: "value > 0"}
//	      - {name: price, type: number}
//	      - {name: total, type: number, derive: "qty * price"}
//	  - name: order
//	    evaluator: cel
//	    fields:
//	      - {name: id, type: id}
//	      - {name: lines, type: collection, schema: line}
type schemaDocument struct {
	Schemas []schemaDef `yaml:"schemas"`
}

type schemaDef struct {
	Name            string     `yaml:"name"`
	Evaluator       string     `yaml:"evaluator"`
	MaxCalculations int        `yaml:"max_calculations"`
	SwallowErrors   bool       `yaml:"swallow_errors"`
	Fields          []fieldDef `yaml:"fields"`
}

type fieldDef struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Schema      string `yaml:"schema"`
	Default     any    `yaml:"default"`
	Internal    bool   `yaml:"internal"`
	Description string `yaml:"description"`
	Derive      string `yaml:"derive"`
	Amend       string `yaml:"amend"`
	Validate    string `yaml:"validate"`
	Message     string `yaml:"message"`
	Tag         string `yaml:"tag"`
}

var scalarTypes = map[string]Type{
	"text":    Text,
	"string":  Text,
	"number":  Number,
	"boolean": Boolean,
	"bool":    Boolean,
	"list":    List,
	"object":  Object,
	"id":      ID,
	"any":     Any,
}

// LoadSchemas reads a YAML schema document from r. opts apply to every
// schema; per-schema keys (evaluator, max_calculations, swallow_errors) are
// applied after them. Nested references may point at schemas declared
// anywhere in the document, but not form cycles.
func LoadSchemas(r io.Reader, opts ...Option) (map[string]*Schema, error) {
	var doc schemaDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("models: decode schema document: %w", err)
	}

	defs := make(map[string]schemaDef, len(doc.Schemas))
	order := make([]string, 0, len(doc.Schemas))
	for _, def := range doc.Schemas {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return nil, errors.New("models: schema document: schema name is required")
		}
		if _, dup := defs[name]; dup {
			return nil, fmt.Errorf("models: schema document: duplicate schema %q", name)
		}
		defs[name] = def
		order = append(order, name)
	}

	l := schemaLoader{defs: defs, opts: opts, built: map[string]*Schema{}, building: map[string]bool{}}
	for _, name := range order {
		if _, err := l.build(name); err != nil {
			return nil, err
		}
	}
	return l.built, nil
}

// LoadSchemaFile is LoadSchemas for a file path.
func LoadSchemaFile(path string, opts ...Option) (map[string]*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadSchemas(f, opts...)
}

type schemaLoader struct {
	defs     map[string]schemaDef
	opts     []Option
	built    map[string]*Schema
	building map[string]bool
}

func (l *schemaLoader) build(name string) (*Schema, error) {
	if schema, ok := l.built[name]; ok {
		return schema, nil
	}
	def, ok := l.defs[name]
	if !ok {
		return nil, fmt.Errorf("models: schema document: unknown schema %q", name)
	}
	if l.building[name] {
		return nil, fmt.Errorf("models: schema document: schema %q is part of a reference cycle", name)
	}
	l.building[name] = true
	defer delete(l.building, name)

	fields := make([]Field, 0, len(def.Fields))
	for _, fs := range def.Fields {
		t, err := l.fieldType(fs)
		if err != nil {
			return nil, fmt.Errorf("models: schema document: %s.%s: %w", name, fs.Name, err)
		}
		fields = append(fields, Field{
			Name:        fs.Name,
			Type:        t,
			Default:     fs.Default,
			Internal:    fs.Internal,
			Description: fs.Description,
		})
	}

	opts, err := l.schemaOptions(def)
	if err != nil {
		return nil, fmt.Errorf("models: schema document: %s: %w", name, err)
	}
	schema, err := Define(name, fields, opts...)
	if err != nil {
		return nil, err
	}
	l.built[name] = schema
	return schema, nil
}

func (l *schemaLoader) fieldType(fs fieldDef) (Type, error) {
	kind := strings.ToLower(strings.TrimSpace(fs.Type))
	var t Type
	switch kind {
	case "model", "collection":
		if fs.Schema == "" {
			return nil, fmt.Errorf("%s field requires a schema reference", kind)
		}
		inner, err := l.build(fs.Schema)
		if err != nil {
			return nil, err
		}
		if kind == "model" {
			t = Nested(inner)
		} else {
			t = NestedCollection(inner)
		}
	case "":
		t = Any
	default:
		scalar, ok := scalarTypes[kind]
		if !ok {
			return nil, fmt.Errorf("unknown type %q", fs.Type)
		}
		t = scalar
	}

	if fs.Derive != "" {
		t = DeriveExpr(t, fs.Derive)
	}
	if fs.Amend != "" {
		t = AmendExpr(t, fs.Amend)
	}
	var checks []func(*Model, any) any
	if fs.Tag != "" {
		checks = append(checks, tagValidation(fs.Tag))
	}
	if fs.Validate != "" {
		checks = append(checks, exprValidation(fs.Validate, fs.Message))
	}
	if len(checks) > 0 {
		t = Validated(t, firstFailure(checks...))
	}
	return t, nil
}

func (l *schemaLoader) schemaOptions(def schemaDef) ([]Option, error) {
	opts := append([]Option(nil), l.opts...)
	if def.MaxCalculations > 0 {
		opts = append(opts, WithMaxCalculations(def.MaxCalculations))
	}
	if def.SwallowErrors {
		opts = append(opts, WithSwallowCalculationErrors(true))
	}
	if def.Evaluator == "" {
		return opts, nil
	}
	evaluator, err := namedEvaluator(def.Evaluator, applyOptions(config{}, l.opts))
	if err != nil {
		return nil, err
	}
	return append(opts, WithEvaluator(evaluator)), nil
}

// namedEvaluator builds the evaluator called name, sharing the program cache
// and functions configured in cfg.
func namedEvaluator(name string, cfg config) (Evaluator, error) {
	opts := cfg.evaluatorOptions()
	if cfg.programCache == nil {
		opts = append(opts, EvaluatorCache(NewMemoryProgramCache()))
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "expr":
		return NewExprEvaluator(opts...), nil
	case "cel":
		return NewCELEvaluator(opts...), nil
	case "js", "javascript":
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("%w: js evaluator requires the js_eval build tag", ErrUnsupported)
		}
		return NewJSEvaluator(opts...), nil
	default:
		return nil, fmt.Errorf("unknown evaluator %q", name)
	}
}
