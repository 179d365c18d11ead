package activity

import (
	"slices"
	"strings"
	"time"
)

// Verbs emitted for model persistence.
const (
	VerbModelCreated = "model.created"
	VerbModelUpdated = "model.updated"
	VerbModelDeleted = "model.deleted"
)

// ModelEventInput describes a persistence operation on one model.
type ModelEventInput struct {
	Schema   string
	ObjectID string
	Channel  string
	// Changes maps attribute names to their saved values.
	Changes map[string]any
	// Previous maps the same names to the values last committed before the save.
	Previous   map[string]any
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildModelCreatedEvent builds the event for a first insert.
func BuildModelCreatedEvent(input ModelEventInput) Event {
	return buildModelEvent(VerbModelCreated, input)
}

// BuildModelUpdatedEvent builds the event for an update of a persisted model.
func BuildModelUpdatedEvent(input ModelEventInput) Event {
	return buildModelEvent(VerbModelUpdated, input)
}

// BuildModelDeletedEvent builds the event for a removal.
func BuildModelDeletedEvent(input ModelEventInput) Event {
	return buildModelEvent(VerbModelDeleted, input)
}

func buildModelEvent(verb string, input ModelEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if len(input.Changes) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["changes"] = cloneMap(input.Changes)
		fields := make([]string, 0, len(input.Changes))
		for name := range input.Changes {
			fields = append(fields, name)
		}
		slices.Sort(fields)
		metadata["changed_fields"] = fields
	}
	if len(input.Previous) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["previous"] = cloneMap(input.Previous)
	}

	objectType := strings.TrimSpace(input.Schema)
	if objectType == "" {
		objectType = "model"
	}
	return Event{
		Verb:       verb,
		ObjectType: objectType,
		ObjectID:   strings.TrimSpace(input.ObjectID),
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
