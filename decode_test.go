package models

import (
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-models/pkg/task"
)

type personView struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Age  int      `json:"age"`
	Tags []string `json:"tags"`
}

func TestDecodeIntoStruct(t *testing.T) {
	loop := task.NewLoop()
	m := personSchema(WithLoop(loop)).MustNew(map[string]any{"id": 9, "name": "Ada", "tags": []string{"x"}, "password": "secret"})
	settle(t, m)

	got, err := Decode[personView](m)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "9" || got.Name != "Ada" || got.Age != 18 || len(got.Tags) != 1 {
		t.Fatalf("unexpected decode %+v", got)
	}
}

func TestDecodeStrictRejectsUnknownAttributes(t *testing.T) {
	type nameOnly struct {
		Name string `json:"name"`
	}
	loop := task.NewLoop()
	m := personSchema(WithLoop(loop)).MustNew(map[string]any{"name": "Ada"})
	settle(t, m)

	if _, err := Decode[nameOnly](m); err != nil {
		t.Fatalf("lenient decode: %v", err)
	}
	if _, err := Decode(m, DecodeStrict[nameOnly]()); err == nil || !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestDecodeWithPostHook(t *testing.T) {
	loop := task.NewLoop()
	m := personSchema(WithLoop(loop)).MustNew(map[string]any{"name": "ada"})
	settle(t, m)

	got, err := Decode(m, DecodeWith(func(p *personView) error {
		p.Name = strings.ToUpper(p.Name)
		return nil
	}))
	if err != nil || got.Name != "ADA" {
		t.Fatalf("unexpected result %+v / %v", got, err)
	}

	boom := errors.New("boom")
	if _, err := Decode(m, DecodeWith(func(*personView) error { return boom })); !errors.Is(err, boom) {
		t.Fatalf("expected hook error, got %v", err)
	}
}
