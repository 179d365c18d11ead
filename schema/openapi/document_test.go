package openapi

import (
	"encoding/json"
	"testing"

	models "github.com/goliatone/go-models"
)

func testSchemas(t *testing.T) (*models.Schema, *models.Schema) {
	t.Helper()
	line := models.MustDefine("order line", []models.Field{
		{Name: "sku", Type: models.Text, Description: "stock keeping unit"},
		{Name: "qty", Type: models.Number, Default: 1},
	})
	order := models.MustDefine("order", []models.Field{
		{Name: "id", Type: models.ID},
		{Name: "customer", Type: models.Text},
		{Name: "lines", Type: models.NestedCollection(line)},
		{Name: "total", Type: models.Derived(models.Number, func(*models.Model) (any, error) { return nil, nil })},
		{Name: "token", Type: models.Text, Internal: true},
	})
	return order, line
}

func TestComponents(t *testing.T) {
	order, _ := testSchemas(t)
	components := NewGenerator().Components(order)

	if len(components) != 2 {
		t.Fatalf("expected 2 components, got %d: %v", len(components), components)
	}
	orderSchema := components["order"].(map[string]any)
	props := orderSchema["properties"].(map[string]any)

	if _, ok := props["token"]; ok {
		t.Fatalf("internal field must not be published")
	}
	if got := orderSchema["x-models-identity"]; got != "id" {
		t.Fatalf("expected identity id, got %v", got)
	}
	total := props["total"].(map[string]any)
	if total["readOnly"] != true || total["type"] != "number" {
		t.Fatalf("expected readOnly number for derived field, got %v", total)
	}
	lines := props["lines"].(map[string]any)
	items := lines["items"].(map[string]any)
	if items["$ref"] != "#/components/schemas/order_line" {
		t.Fatalf("expected collection items to reference order_line, got %v", items)
	}

	lineProps := components["order_line"].(map[string]any)["properties"].(map[string]any)
	sku := lineProps["sku"].(map[string]any)
	if sku["description"] != "stock keeping unit" {
		t.Fatalf("expected description on sku, got %v", sku)
	}
	if qty := lineProps["qty"].(map[string]any); qty["default"] != 1 {
		t.Fatalf("expected default on qty, got %v", qty)
	}
}

func TestDocumentWithPaths(t *testing.T) {
	order, line := testSchemas(t)
	doc, err := NewGenerator(
		WithInfo("Shop", "2.0.0", WithInfoDescription("shop models")),
		WithPaths("/api/"),
	).Document(order, line)
	if err != nil {
		t.Fatalf("document: %v", err)
	}

	if doc["openapi"] != "3.0.3" {
		t.Fatalf("unexpected version %v", doc["openapi"])
	}
	paths := doc["paths"].(map[string]any)
	if _, ok := paths["/api/order"]; !ok {
		t.Fatalf("expected create path, got %v", keys(paths))
	}
	if _, ok := paths["/api/order/{id}"]; !ok {
		t.Fatalf("expected item path for schema with identity, got %v", keys(paths))
	}
	if _, ok := paths["/api/order line/{id}"]; ok {
		t.Fatalf("schema without identity must not get item paths")
	}

	if _, err := json.Marshal(doc); err != nil {
		t.Fatalf("document must be JSON encodable: %v", err)
	}
}

func TestDocumentRequiresSchemas(t *testing.T) {
	if _, err := NewGenerator().Document(); err == nil {
		t.Fatalf("expected error without schemas")
	}
}

func TestSanitizeComponentName(t *testing.T) {
	cases := map[string]string{
		"order line": "order_line",
		"9lives":     "_9lives",
		"__x__":      "x",
		"!!!":        "",
	}
	for in, want := range cases {
		if got := sanitizeComponentName(in); got != want {
			t.Fatalf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestInternalFieldsAndExtensions(t *testing.T) {
	order, _ := testSchemas(t)
	components := NewGenerator(WithInternalFields(), WithoutExtensions()).Components(order)

	orderSchema := components["order"].(map[string]any)
	if _, ok := orderSchema["x-models-schema"]; ok {
		t.Fatalf("extensions must be omitted: %v", orderSchema)
	}
	props := orderSchema["properties"].(map[string]any)
	token, ok := props["token"].(map[string]any)
	if !ok || token["writeOnly"] != true {
		t.Fatalf("expected writeOnly internal field, got %v", props["token"])
	}
	if _, ok := props["total"].(map[string]any)["x-models"]; ok {
		t.Fatalf("hook markers must be omitted")
	}
}
