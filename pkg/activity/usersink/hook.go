// Package usersink forwards model activity to a go-users ActivitySink.
package usersink

import (
	"context"
	"maps"
	"strings"

	"github.com/goliatone/go-models/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook records model events as go-users activity.
type Hook struct {
	Sink usertypes.ActivitySink
	// ObjectTypePrefix is prepended to the schema name, e.g. "model." to
	// keep model records apart from other activity in the same sink.
	ObjectTypePrefix string
}

// Notify maps event into an ActivityRecord. Actor, user and tenant ids that
// are not UUIDs are recorded as uuid.Nil and kept in Data under actor_id,
// user_id and tenant_id.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	event = activity.NormalizeEvent(event)
	if event.Verb == "" || event.ObjectType == "" || event.ObjectID == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	data := map[string]any{}
	maps.Copy(data, event.Metadata)
	record := usertypes.ActivityRecord{
		ActorID:    identity(event.ActorID, "actor_id", data),
		UserID:     identity(event.UserID, "user_id", data),
		TenantID:   identity(event.TenantID, "tenant_id", data),
		Verb:       event.Verb,
		ObjectType: h.ObjectTypePrefix + event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		OccurredAt: event.OccurredAt,
	}
	if len(data) > 0 {
		record.Data = data
	}
	return h.Sink.Log(ctx, record)
}

func identity(value, key string, data map[string]any) uuid.UUID {
	value = strings.TrimSpace(value)
	if value == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		data[key] = value
		return uuid.Nil
	}
	return id
}
