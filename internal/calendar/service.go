// Package calendar manages household events.
package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/chorewheel/internal/apperr"
	"github.com/dukerupert/chorewheel/internal/model"
)

type Store interface {
	Create(ctx context.Context, e *model.CalendarEvent) (*model.CalendarEvent, error)
	GetByID(ctx context.Context, householdID, id int64) (*model.CalendarEvent, error)
	ListByDateRange(ctx context.Context, householdID int64, start, end time.Time) ([]model.CalendarEvent, error)
	Update(ctx context.Context, e *model.CalendarEvent) (*model.CalendarEvent, error)
	Delete(ctx context.Context, householdID, id int64) error
}

type MemberStore interface {
	Missing(ctx context.Context, householdID int64, ids []int64) ([]int64, error)
}

type Recorder interface {
	Record(ctx context.Context, e model.ActivityEntry) (*model.ActivityEntry, error)
}

type Service struct {
	store    Store
	members  MemberStore
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(st Store, members MemberStore, recorder Recorder, logger *slog.Logger) *Service {
	return &Service{store: st, members: members, recorder: recorder, logger: logger, now: time.Now}
}

type Input struct {
	Title     string
	StartsAt  time.Time
	EndsAt    *time.Time
	AllDay    bool
	MemberIDs model.MemberIDs
	Notes     string
}

type Patch struct {
	Title       *string
	StartsAt    *time.Time
	EndsAt      *time.Time
	ClearEndsAt bool
	AllDay      *bool
	MemberIDs   *model.MemberIDs
	Notes       *string
}

// List returns events starting in [from, to). Either bound may be zero.
func (s *Service) List(ctx context.Context, householdID int64, from, to time.Time) ([]model.CalendarEvent, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, apperr.Invalid("to", "must not be before from")
	}
	events, err := s.store.ListByDateRange(ctx, householdID, from, to)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.CalendarEvent{}
	}
	return events, nil
}

func (s *Service) Get(ctx context.Context, householdID, id int64) (*model.CalendarEvent, error) {
	e, err := s.store.GetByID(ctx, householdID, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperr.NotFound("event")
	}
	return e, nil
}

func (s *Service) Create(ctx context.Context, householdID, actorID int64, in Input) (*model.CalendarEvent, error) {
	now := s.now()
	e := &model.CalendarEvent{
		HouseholdID: householdID,
		Title:       strings.TrimSpace(in.Title),
		StartsAt:    in.StartsAt,
		EndsAt:      in.EndsAt,
		AllDay:      in.AllDay,
		MemberIDs:   model.NormalizeMemberIDs(in.MemberIDs),
		Notes:       strings.TrimSpace(in.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if actorID > 0 {
		e.CreatedBy = &actorID
	}
	if err := s.validate(ctx, e, actorID); err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, e)
	if err != nil {
		return nil, err
	}
	if err := s.record(ctx, actorID, model.ActionEventCreated, created); err != nil {
		return nil, &apperr.PartialFailureError{Op: "create event", Completed: []string{"event created"}, Err: err}
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, householdID, id, actorID int64, p Patch) (*model.CalendarEvent, error) {
	e, err := s.Get(ctx, householdID, id)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		e.Title = strings.TrimSpace(*p.Title)
	}
	if p.StartsAt != nil {
		e.StartsAt = *p.StartsAt
	}
	if p.ClearEndsAt {
		e.EndsAt = nil
	} else if p.EndsAt != nil {
		e.EndsAt = p.EndsAt
	}
	if p.AllDay != nil {
		e.AllDay = *p.AllDay
	}
	if p.MemberIDs != nil {
		e.MemberIDs = model.NormalizeMemberIDs(*p.MemberIDs)
	}
	if p.Notes != nil {
		e.Notes = strings.TrimSpace(*p.Notes)
	}
	if err := s.validate(ctx, e, actorID); err != nil {
		return nil, err
	}
	e.UpdatedAt = s.now()

	updated, err := s.store.Update(ctx, e)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.NotFound("event")
	}
	if err := s.record(ctx, actorID, model.ActionEventEdited, updated); err != nil {
		return nil, &apperr.PartialFailureError{Op: "update event", Completed: []string{"event updated"}, Err: err}
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, householdID, id, actorID int64) error {
	if actorID <= 0 {
		return apperr.Invalid("actor_id", "is required")
	}
	e, err := s.Get(ctx, householdID, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, householdID, id); err != nil {
		return err
	}
	if err := s.record(ctx, actorID, model.ActionEventDeleted, e); err != nil {
		return &apperr.PartialFailureError{Op: "delete event", Completed: []string{"event deleted"}, Err: err}
	}
	s.logger.Info("event deleted", "household_id", householdID, "event_id", id)
	return nil
}

func (s *Service) validate(ctx context.Context, e *model.CalendarEvent, actorID int64) error {
	var v apperr.Validation
	if actorID <= 0 {
		v.Add("actor_id", "is required")
	}
	if e.Title == "" {
		v.Add("title", "is required")
	}
	if e.StartsAt.IsZero() {
		v.Add("starts_at", "is required")
	}
	if e.EndsAt != nil && e.EndsAt.Before(e.StartsAt) {
		v.Add("ends_at", "must not be before starts_at")
	}
	if len(e.MemberIDs) == 0 {
		v.Add("member_ids", "at least one member is required")
	}
	if err := v.Err(); err != nil {
		return err
	}

	missing, err := s.members.Missing(ctx, e.HouseholdID, e.MemberIDs)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return apperr.Invalid("member_ids", fmt.Sprintf("unknown member id %d", missing[0]))
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action model.ActionType, e *model.CalendarEvent) error {
	_, err := s.recorder.Record(ctx, model.ActivityEntry{
		HouseholdID: e.HouseholdID,
		ActorID:     actorID,
		Action:      action,
		EntityType:  model.EntityEvent,
		EntityID:    e.ID,
		Metadata:    map[string]any{"title": e.Title, "starts_at": e.StartsAt.UTC().Format(time.RFC3339)},
	})
	return err
}
