package models

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
)

type label string

func (l label) String() string { return "label:" + string(l) }

func TestBuiltinConversions(t *testing.T) {
	tests := []struct {
		name  string
		typ   Type
		input any
		want  any
	}{
		{"text from string", Text, "hi", "hi"},
		{"text from bytes", Text, []byte("raw"), "raw"},
		{"text from stringer", Text, label("x"), "label:x"},
		{"text from bool", Text, true, "true"},
		{"text from whole float", Text, 3.0, "3"},
		{"text from int", Text, 42, "42"},
		{"number from int", Number, 7, float64(7)},
		{"number from string", Number, " 2.5 ", 2.5},
		{"number from bool", Number, true, float64(1)},
		{"number from json", Number, json.Number("12"), float64(12)},
		{"boolean from string", Boolean, "false", false},
		{"boolean from number", Boolean, 2, true},
		{"list from typed slice", List, []string{"a", "b"}, []any{"a", "b"}},
		{"object from typed map", Object, map[string]int{"a": 1}, map[string]any{"a": 1}},
		{"id from float", ID, float64(12), "12"},
		{"id from fraction", ID, 1.5, "1.5"},
		{"id from string", ID, "abc", "abc"},
		{"any passthrough", Any, struct{}{}, struct{}{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.typ.ToInternal(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestBuiltinConversionFailures(t *testing.T) {
	tests := []struct {
		name  string
		typ   Type
		input any
	}{
		{"text from map", Text, map[string]any{}},
		{"number from word", Number, "many"},
		{"boolean from word", Boolean, "maybe"},
		{"list from scalar", List, 3},
		{"object from slice", Object, []any{1}},
		{"id from bool", ID, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.typ.ToInternal(tt.input); !errors.Is(err, ErrConversion) {
				t.Fatalf("expected ErrConversion, got %v", err)
			}
		})
	}
}

func TestNumberEqualityTreatsNaNAsEqual(t *testing.T) {
	if !equalInternal(Number, math.NaN(), math.NaN()) {
		t.Fatalf("NaN must equal NaN so recalculation converges")
	}
	if equalInternal(Number, 1.0, 2.0) {
		t.Fatalf("distinct numbers must differ")
	}
}

func TestTypeDefaults(t *testing.T) {
	if typeDefault(Text) != "" || typeDefault(Number) != float64(0) || typeDefault(Boolean) != false {
		t.Fatalf("unexpected scalar defaults")
	}
	if typeDefault(ID) != nil {
		t.Fatalf("identity must default to nil")
	}
	list := typeDefault(List).([]any)
	if len(list) != 0 {
		t.Fatalf("unexpected list default %v", list)
	}
}

func TestListValuesAreCopiedOut(t *testing.T) {
	stored, _ := List.ToInternal([]any{"a"})
	out := fromInternal(List, stored).([]any)
	out[0] = "changed"
	if stored.([]any)[0] != "a" {
		t.Fatalf("reading a list must not expose internal storage")
	}
}
