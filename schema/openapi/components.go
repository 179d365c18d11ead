package openapi

import (
	"fmt"
	"regexp"
	"strings"

	models "github.com/goliatone/go-models"
)

// componentRegistry assigns one component name per schema, in registration order.
type componentRegistry struct {
	names     map[*models.Schema]string
	order     []*models.Schema
	usedNames map[string]struct{}
}

func newComponentRegistry() *componentRegistry {
	return &componentRegistry{
		names:     map[*models.Schema]string{},
		usedNames: map[string]struct{}{},
	}
}

// register returns the component name of schema, registering it and every
// schema nested in it on first sight.
func (r *componentRegistry) register(schema *models.Schema) string {
	if name, ok := r.names[schema]; ok {
		return name
	}
	name := r.uniqueName(schema.Name())
	r.names[schema] = name
	r.order = append(r.order, schema)
	for _, field := range schema.Fields() {
		if inner := models.NestedSchema(field.Type); inner != nil {
			r.register(inner)
		}
	}
	return name
}

func (r *componentRegistry) ref(schema *models.Schema) string {
	return fmt.Sprintf("#/components/schemas/%s", r.register(schema))
}

func (r *componentRegistry) uniqueName(name string) string {
	safe := sanitizeComponentName(name)
	if safe == "" {
		safe = "Schema"
	}
	if _, exists := r.usedNames[safe]; !exists {
		r.usedNames[safe] = struct{}{}
		return safe
	}
	suffix := 1
	for {
		candidate := fmt.Sprintf("%s%d", safe, suffix)
		if _, exists := r.usedNames[candidate]; !exists {
			r.usedNames[candidate] = struct{}{}
			return candidate
		}
		suffix++
	}
}

var componentNameRegexp = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

func sanitizeComponentName(name string) string {
	name = componentNameRegexp.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return ""
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}
