package models

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/goliatone/go-models/internal/clone"
)

// Built-in value types. Each converts external values into a canonical
// internal form so that equality and snapshots behave predictably.
var (
	Text    Type = textType{}
	Number  Type = numberType{}
	Boolean Type = booleanType{}
	List    Type = listType{}
	Object  Type = objectType{}
	// ID marks the identity attribute of a schema. Values are kept as strings;
	// numbers are formatted without a fractional part when they have none.
	ID Type = idType{}
	// Any stores values as given.
	Any Type = anyType{}
)

func conversionError(kind string, value any) error {
	return fmt.Errorf("%w %T to %s", ErrConversion, value, kind)
}

type textType struct{}

func (textType) ToInternal(value any) (any, error) {
	switch typed := value.(type) {
	case string:
		return typed, nil
	case []byte:
		return string(typed), nil
	case fmt.Stringer:
		return typed.String(), nil
	case bool:
		return strconv.FormatBool(typed), nil
	}
	if n, ok := toFloat(value); ok {
		return formatNumber(n), nil
	}
	return nil, conversionError("text", value)
}

func (textType) Default() any { return "" }

type numberType struct{}

func (numberType) ToInternal(value any) (any, error) {
	if n, ok := toFloat(value); ok {
		return n, nil
	}
	switch typed := value.(type) {
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrConversion, typed)
		}
		return n, nil
	case bool:
		if typed {
			return float64(1), nil
		}
		return float64(0), nil
	}
	return nil, conversionError("number", value)
}

func (numberType) Default() any { return float64(0) }

func (numberType) Equal(a, b any) bool {
	x, okA := a.(float64)
	y, okB := b.(float64)
	if !okA || !okB {
		return reflect.DeepEqual(a, b)
	}
	if math.IsNaN(x) && math.IsNaN(y) {
		return true
	}
	return x == y
}

type booleanType struct{}

func (booleanType) ToInternal(value any) (any, error) {
	switch typed := value.(type) {
	case bool:
		return typed, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(typed))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a boolean", ErrConversion, typed)
		}
		return b, nil
	}
	if n, ok := toFloat(value); ok {
		return n != 0, nil
	}
	return nil, conversionError("boolean", value)
}

func (booleanType) Default() any { return false }

type listType struct{}

func (listType) ToInternal(value any) (any, error) {
	kind := reflect.ValueOf(value).Kind()
	if kind != reflect.Slice && kind != reflect.Array {
		return nil, conversionError("list", value)
	}
	list, ok := clone.Normalize(value).([]any)
	if !ok {
		return nil, conversionError("list", value)
	}
	return list, nil
}

func (listType) FromInternal(value any) any {
	return clone.Clone(value)
}

func (listType) Default() any { return []any{} }

type objectType struct{}

func (objectType) ToInternal(value any) (any, error) {
	if reflect.ValueOf(value).Kind() != reflect.Map {
		return nil, conversionError("object", value)
	}
	obj, ok := clone.Normalize(value).(map[string]any)
	if !ok {
		return nil, conversionError("object", value)
	}
	return obj, nil
}

func (objectType) FromInternal(value any) any {
	return clone.Clone(value)
}

func (objectType) Default() any { return map[string]any{} }

type idType struct{}

func (idType) ToInternal(value any) (any, error) {
	switch typed := value.(type) {
	case string:
		return typed, nil
	case fmt.Stringer:
		return typed.String(), nil
	case []byte:
		return string(typed), nil
	}
	if n, ok := toFloat(value); ok {
		return formatNumber(n), nil
	}
	return nil, conversionError("id", value)
}

func (idType) identity() {}

type anyType struct{}

func (anyType) ToInternal(value any) (any, error) { return value, nil }

func toFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int8:
		return float64(typed), true
	case int16:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case uint:
		return float64(typed), true
	case uint8:
		return float64(typed), true
	case uint16:
		return float64(typed), true
	case uint32:
		return float64(typed), true
	case uint64:
		return float64(typed), true
	case json.Number:
		n, err := typed.Float64()
		return n, err == nil
	default:
		return 0, false
	}
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func (textType) kind() string    { return "text" }
func (numberType) kind() string  { return "number" }
func (booleanType) kind() string { return "boolean" }
func (listType) kind() string    { return "list" }
func (objectType) kind() string  { return "object" }
func (idType) kind() string      { return "id" }
func (anyType) kind() string     { return "any" }
