package calendar

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dukerupert/chorewheel/internal/activity"
	"github.com/dukerupert/chorewheel/internal/apperr"
	"github.com/dukerupert/chorewheel/internal/database"
	"github.com/dukerupert/chorewheel/internal/model"
	"github.com/dukerupert/chorewheel/internal/store"
)

func setupService(t *testing.T) (*Service, *store.ActivityStore, int64, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	h, err := store.NewHouseholdStore(db).Create(ctx, "Home", "hash")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	members := store.NewFamilyMemberStore(db)
	m, err := members.Create(ctx, h.ID, "Dana", "D", "#3B82F6")
	if err != nil {
		t.Fatalf("create member: %v", err)
	}

	activityStore := store.NewActivityStore(db)
	recorder := activity.NewRecorder(activityStore, nil, nil, slog.Default())
	return NewService(store.NewEventStore(db), members, recorder, slog.Default()), activityStore, h.ID, m.ID
}

func TestCreateEventValidation(t *testing.T) {
	svc, _, hh, member := setupService(t)
	ctx := context.Background()
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	before := start.Add(-time.Hour)

	tests := []struct {
		name  string
		in    Input
		field string
	}{
		{"missing title", Input{StartsAt: start, MemberIDs: model.MemberIDs{member}}, "title"},
		{"no members", Input{Title: "Dentist", StartsAt: start}, "member_ids"},
		{"unknown member", Input{Title: "Dentist", StartsAt: start, MemberIDs: model.MemberIDs{999}}, "member_ids"},
		{"ends before start", Input{Title: "Dentist", StartsAt: start, EndsAt: &before, MemberIDs: model.MemberIDs{member}}, "ends_at"},
		{"missing start", Input{Title: "Dentist", MemberIDs: model.MemberIDs{member}}, "starts_at"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, hh, member, tt.in)
			var verr *apperr.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if _, ok := verr.Fields[tt.field]; !ok {
				t.Errorf("fields = %v, want %s", verr.Fields, tt.field)
			}
		})
	}
}

func TestEventLifecycle(t *testing.T) {
	svc, activityStore, hh, member := setupService(t)
	ctx := context.Background()
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	e, err := svc.Create(ctx, hh, member, Input{Title: "Soccer", StartsAt: start, MemberIDs: model.MemberIDs{member}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	notes := "bring water"
	updated, err := svc.Update(ctx, hh, e.ID, member, Patch{Notes: &notes})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Notes != notes || updated.Title != "Soccer" {
		t.Errorf("event = %+v, want only notes changed", updated)
	}

	inRange, err := svc.List(ctx, hh, start.Add(-time.Hour), start.Add(time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(inRange) != 1 {
		t.Errorf("events in range = %d, want 1", len(inRange))
	}
	outOfRange, _ := svc.List(ctx, hh, start.Add(time.Hour), time.Time{})
	if len(outOfRange) != 0 {
		t.Errorf("events after start = %d, want 0", len(outOfRange))
	}

	if err := svc.Delete(ctx, hh, e.ID, member); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, hh, e.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete err = %v, want ErrNotFound", err)
	}

	entries, _ := activityStore.List(ctx, hh, 0, 0)
	want := []model.ActionType{model.ActionEventDeleted, model.ActionEventEdited, model.ActionEventCreated}
	if len(entries) != len(want) {
		t.Fatalf("activity = %d entries, want %d", len(entries), len(want))
	}
	for i, action := range want {
		if entries[i].Action != action {
			t.Errorf("entry %d = %s, want %s", i, entries[i].Action, action)
		}
	}
}
