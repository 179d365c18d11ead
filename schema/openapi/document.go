// Package openapi publishes model schemas as OpenAPI 3 component schemas.
package openapi

import (
	"fmt"
	"strings"

	models "github.com/goliatone/go-models"
)

// Generator builds OpenAPI documents from schemas.
type Generator struct {
	config generatorConfig
}

// NewGenerator constructs a generator with the provided options.
func NewGenerator(opts ...GeneratorOption) *Generator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Generator{config: cfg}
}

// Components returns the components.schemas map for schemas and every schema
// nested in them. Internal fields are omitted and derived fields are readOnly.
func (g *Generator) Components(schemas ...*models.Schema) map[string]any {
	registry := newComponentRegistry()
	for _, schema := range schemas {
		registry.register(schema)
	}
	return g.components(registry)
}

func (g *Generator) components(registry *componentRegistry) map[string]any {
	out := make(map[string]any, len(registry.order))
	for _, schema := range registry.order {
		out[registry.names[schema]] = g.objectSchema(registry, schema)
	}
	return out
}

// Document returns a full OpenAPI document for schemas.
func (g *Generator) Document(schemas ...*models.Schema) (map[string]any, error) {
	if len(schemas) == 0 {
		return nil, fmt.Errorf("openapi: at least one schema is required")
	}
	registry := newComponentRegistry()
	for _, schema := range schemas {
		if schema == nil {
			return nil, fmt.Errorf("openapi: schema cannot be nil")
		}
		registry.register(schema)
	}

	info := map[string]any{
		"title":   g.config.title,
		"version": g.config.apiVersion,
	}
	if g.config.description != "" {
		info["description"] = g.config.description
	}

	paths := map[string]any{}
	if g.config.withPaths {
		for _, schema := range schemas {
			g.addPaths(paths, registry, schema)
		}
	}

	document := map[string]any{
		"openapi": g.config.version,
		"info":    info,
		"paths":   paths,
		"components": map[string]any{
			"schemas": g.components(registry),
		},
	}
	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

func (g *Generator) objectSchema(registry *componentRegistry, schema *models.Schema) map[string]any {
	descriptors := map[string]models.FieldDescriptor{}
	for _, d := range schema.Describe() {
		if !strings.Contains(d.Path, ".") {
			descriptors[d.Path] = d
		}
	}

	props := map[string]any{}
	for _, field := range schema.Fields() {
		if field.Internal && !g.config.internal {
			continue
		}
		prop := g.fieldSchema(registry, field, descriptors[field.Name])
		if field.Internal {
			prop["writeOnly"] = true
		}
		props[field.Name] = prop
	}
	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if g.config.extensions {
		out["x-models-schema"] = schema.Name()
		if identity := schema.Identity(); identity != "" {
			out["x-models-identity"] = identity
		}
	}
	return out
}

func (g *Generator) fieldSchema(registry *componentRegistry, field models.Field, d models.FieldDescriptor) map[string]any {
	var out map[string]any
	switch kind := d.Type; {
	case kind == "text":
		out = map[string]any{"type": "string"}
	case kind == "number":
		out = map[string]any{"type": "number"}
	case kind == "boolean":
		out = map[string]any{"type": "boolean"}
	case kind == "list":
		out = map[string]any{"type": "array", "items": map[string]any{}}
	case kind == "object":
		out = map[string]any{"type": "object", "additionalProperties": true}
	case kind == "id":
		out = map[string]any{"type": "string", "readOnly": true}
	case strings.HasPrefix(kind, "model:"):
		ref := map[string]any{"$ref": registry.ref(models.NestedSchema(field.Type))}
		// $ref siblings are ignored in 3.0, so annotations go through allOf.
		out = map[string]any{"allOf": []any{ref}}
	case strings.HasPrefix(kind, "collection:"):
		out = map[string]any{
			"type":  "array",
			"items": map[string]any{"$ref": registry.ref(models.NestedSchema(field.Type))},
		}
	default:
		out = map[string]any{}
		if kind != "any" && g.config.extensions {
			out["x-models-type"] = kind
		}
	}

	if d.Description != "" {
		out["description"] = d.Description
	}
	if field.Default != nil && field.DefaultFunc == nil {
		if _, nested := out["allOf"]; !nested {
			out["default"] = field.Default
		}
	}
	if d.Derived {
		out["readOnly"] = true
	}
	hooks := map[string]any{}
	if d.Derived {
		hooks["derived"] = true
	}
	if d.Amends {
		hooks["amends"] = true
	}
	if d.Validate {
		hooks["validated"] = true
	}
	if len(hooks) > 0 && g.config.extensions {
		out["x-models"] = hooks
	}
	return out
}

func (g *Generator) addPaths(paths map[string]any, registry *componentRegistry, schema *models.Schema) {
	ref := map[string]any{"$ref": registry.ref(schema)}
	body := map[string]any{
		"required": true,
		"content": map[string]any{
			g.config.contentType: map[string]any{"schema": ref},
		},
	}
	okResponse := func(description string) map[string]any {
		return map[string]any{
			"description": description,
			"content": map[string]any{
				g.config.contentType: map[string]any{"schema": ref},
			},
		}
	}

	name := schema.Name()
	collectionPath := fmt.Sprintf("%s/%s", g.config.basePath, name)
	paths[collectionPath] = map[string]any{
		"post": map[string]any{
			"operationId": "create_" + name,
			"requestBody": body,
			"responses": map[string]any{
				"201": okResponse("Created"),
				"422": map[string]any{"description": "Validation failed"},
			},
		},
	}

	if schema.Identity() == "" {
		return
	}
	idParam := []any{map[string]any{
		"name":     "id",
		"in":       "path",
		"required": true,
		"schema":   map[string]any{"type": "string"},
	}}
	paths[collectionPath+"/{id}"] = map[string]any{
		"parameters": idParam,
		"get": map[string]any{
			"operationId": "get_" + name,
			"responses": map[string]any{
				"200": okResponse("OK"),
				"404": map[string]any{"description": "Not found"},
			},
		},
		"put": map[string]any{
			"operationId": "update_" + name,
			"requestBody": body,
			"responses": map[string]any{
				"200": okResponse("Updated"),
				"404": map[string]any{"description": "Not found"},
				"422": map[string]any{"description": "Validation failed"},
			},
		},
		"delete": map[string]any{
			"operationId": "delete_" + name,
			"responses": map[string]any{
				"204": map[string]any{"description": "Deleted"},
				"404": map[string]any{"description": "Not found"},
			},
		},
	}
}

func validateDocument(document map[string]any) error {
	if document == nil {
		return fmt.Errorf("openapi: document cannot be nil")
	}
	openapi, _ := document["openapi"].(string)
	if openapi == "" {
		return fmt.Errorf("openapi: document missing version string")
	}
	info, _ := document["info"].(map[string]any)
	if info == nil {
		return fmt.Errorf("openapi: document missing info section")
	}
	if title, _ := info["title"].(string); title == "" {
		return fmt.Errorf("openapi: info.title must be set")
	}
	if version, _ := info["version"].(string); version == "" {
		return fmt.Errorf("openapi: info.version must be set")
	}
	return nil
}
