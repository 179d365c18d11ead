package usersink_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-models/pkg/activity"
	"github.com/goliatone/go-models/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsModelEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	tenantID := uuid.New()

	event := activity.BuildModelUpdatedEvent(activity.ModelEventInput{
		Schema:     "order",
		ObjectID:   "42",
		Channel:    "models",
		Changes:    map[string]any{"status": "paid"},
		OccurredAt: now,
	})
	event.ActorID = actorID.String()
	event.UserID = "not-a-uuid"
	event.TenantID = tenantID.String()

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID || record.TenantID != tenantID {
		t.Fatalf("unexpected ids: %+v", record)
	}
	if record.UserID != uuid.Nil || record.Data["user_id"] != "not-a-uuid" {
		t.Fatalf("expected unparsable user id kept in data, got %+v", record)
	}
	if record.Verb != activity.VerbModelUpdated || record.ObjectType != "order" || record.ObjectID != "42" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "models" || !record.OccurredAt.Equal(now) {
		t.Fatalf("unexpected channel or time: %+v", record)
	}
	changes, ok := record.Data["changes"].(map[string]any)
	if !ok || changes["status"] != "paid" {
		t.Fatalf("expected changes metadata, got %v", record.Data["changes"])
	}
}

func TestHookNotifySkipsIncompleteEvents(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{Verb: activity.VerbModelCreated})

	if len(sink.records) != 0 {
		t.Fatalf("expected no records for incomplete event, got %d", len(sink.records))
	}
}

func TestHookNotifyDefaultsTimestampAndPrefixesType(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink, ObjectTypePrefix: "model."}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbModelCreated,
		ObjectType: "order",
		ObjectID:   "1",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 || sink.records[0].OccurredAt.IsZero() {
		t.Fatalf("expected one record with occurred_at defaulted, got %+v", sink.records)
	}
	if record := sink.records[0]; record.ObjectType != "model.order" || record.Data != nil {
		t.Fatalf("unexpected record %+v", record)
	}
}
