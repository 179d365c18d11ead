package activity

import (
	"reflect"
	"testing"
)

func TestBuildModelUpdatedEventIncludesChanges(t *testing.T) {
	event := BuildModelUpdatedEvent(ModelEventInput{
		Schema:   " order ",
		ObjectID: " 42 ",
		Changes:  map[string]any{"total": 12.5, "status": "paid"},
		Previous: map[string]any{"total": 10.0, "status": "open"},
		Metadata: map[string]any{"source": "api"},
	})

	if event.Verb != VerbModelUpdated {
		t.Fatalf("expected verb %s got %s", VerbModelUpdated, event.Verb)
	}
	if event.ObjectType != "order" || event.ObjectID != "42" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.Metadata["source"] != "api" {
		t.Fatalf("expected metadata passthrough, got %+v", event.Metadata)
	}
	if !reflect.DeepEqual(event.Metadata["changed_fields"], []string{"status", "total"}) {
		t.Fatalf("expected sorted changed fields, got %v", event.Metadata["changed_fields"])
	}
	previous, ok := event.Metadata["previous"].(map[string]any)
	if !ok || previous["status"] != "open" {
		t.Fatalf("expected previous values, got %v", event.Metadata["previous"])
	}
}

func TestBuildModelDeletedEventDefaultsObjectType(t *testing.T) {
	event := BuildModelDeletedEvent(ModelEventInput{ObjectID: "7"})
	if event.ObjectType != "model" {
		t.Fatalf("expected default object type, got %q", event.ObjectType)
	}
	if event.Metadata != nil {
		t.Fatalf("expected no metadata, got %+v", event.Metadata)
	}
	if BuildModelCreatedEvent(ModelEventInput{}).Verb != VerbModelCreated {
		t.Fatalf("unexpected created verb")
	}
}
