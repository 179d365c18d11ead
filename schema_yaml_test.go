package models

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-models/pkg/task"
)

const shopSchemas = `
schemas:
  - name: order
    evaluator: cel
    fields:
      - {name: id, type: id}
      - {name: lines, type: collection, schema: line}
      - {name: note, type: text, internal: true}
  - name: line
    fields:
      - name: qty
        type: number
        default: 1
        validate: "value > 0"
        message: "qty must be positive"
      - {name: price, type: number, default: 0}
      - {name: total, type: number, derive: "qty * price", description: "qty times price"}
      - {name: sku, type: text, tag: "required,min=3"}
`

func TestLoadSchemas(t *testing.T) {
	loop := task.NewLoop()
	schemas, err := LoadSchemas(strings.NewReader(shopSchemas), WithLoop(loop))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(schemas) != 2 {
		t.Fatalf("expected 2 schemas, got %d", len(schemas))
	}
	order, line := schemas["order"], schemas["line"]

	if order.Identity() != "id" {
		t.Fatalf("expected identity id, got %q", order.Identity())
	}
	lines, _ := order.Field("lines")
	if NestedSchema(lines.Type) != line {
		t.Fatalf("expected lines to reference the line schema")
	}
	if note, _ := order.Field("note"); !note.Internal {
		t.Fatalf("expected note to be internal")
	}
	if total, _ := line.Field("total"); total.Description != "qty times price" {
		t.Fatalf("expected description to be loaded, got %q", total.Description)
	}
	if _, ok := order.cfg.evaluator.(*celEvaluator); !ok {
		t.Fatalf("expected cel evaluator on order, got %T", order.cfg.evaluator)
	}

	m := line.MustNew(map[string]any{"qty": 3, "price": 2.5, "sku": "abc"})
	loop.Drain()
	if got := m.Value("total"); got != 7.5 {
		t.Fatalf("expected derived total 7.5, got %v", got)
	}
	if _, err := m.Validate().Wait(context.Background()); err != nil {
		t.Fatalf("expected valid line, got %v", err)
	}

	if err := m.SetMany(map[string]any{"qty": 0, "sku": "x"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	_, err = m.Validate().Wait(context.Background())
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(validationErr.Errors) != 2 {
		t.Fatalf("expected qty and sku failures, got %v", validationErr.Errors)
	}
	if validationErr.Errors[0].Attribute != "qty" || validationErr.Errors[0].Message != "qty must be positive" {
		t.Fatalf("unexpected qty failure %+v", validationErr.Errors[0])
	}
	if validationErr.Errors[1].Attribute != "sku" {
		t.Fatalf("unexpected sku failure %+v", validationErr.Errors[1])
	}
}

func TestLoadSchemasRejectsInvalidDocuments(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unknown type",
			doc:  "schemas:\n  - name: a\n    fields:\n      - {name: x, type: decimal}\n",
			want: `unknown type "decimal"`,
		},
		{
			name: "missing reference",
			doc:  "schemas:\n  - name: a\n    fields:\n      - {name: b, type: model, schema: b}\n",
			want: `unknown schema "b"`,
		},
		{
			name: "cycle",
			doc: "schemas:\n  - name: a\n    fields:\n      - {name: b, type: model, schema: b}\n" +
				"  - name: b\n    fields:\n      - {name: a, type: model, schema: a}\n",
			want: "reference cycle",
		},
		{
			name: "duplicate schema",
			doc:  "schemas:\n  - name: a\n  - name: a\n",
			want: `duplicate schema "a"`,
		},
		{
			name: "unknown key",
			doc:  "schemas:\n  - name: a\n    colour: red\n",
			want: "colour",
		},
		{
			name: "unknown evaluator",
			doc:  "schemas:\n  - name: a\n    evaluator: lua\n",
			want: `unknown evaluator "lua"`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadSchemas(strings.NewReader(tc.doc))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
