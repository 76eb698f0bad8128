package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/chorewheel/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

func scanEvent(s scanner) (*model.CalendarEvent, error) {
	var e model.CalendarEvent
	var endsAt sql.NullTime
	var allDay int
	var members string
	var createdBy sql.NullInt64

	err := s.Scan(&e.ID, &e.HouseholdID, &e.Title, &e.StartsAt, &endsAt, &allDay, &members, &e.Notes, &createdBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.EndsAt = timePtr(endsAt)
	e.AllDay = allDay != 0
	e.CreatedBy = int64Ptr(createdBy)
	if e.MemberIDs, err = decodeIDs(members); err != nil {
		return nil, err
	}
	return &e, nil
}

const eventCols = `id, household_id, title, starts_at, ends_at, all_day, member_ids, notes, created_by, created_at, updated_at`

func (s *EventStore) Create(ctx context.Context, e *model.CalendarEvent) (*model.CalendarEvent, error) {
	members, err := encodeIDs(e.MemberIDs)
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO calendar_events (household_id, title, starts_at, ends_at, all_day, member_ids, notes, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.HouseholdID, e.Title, e.StartsAt.UTC(), nullTime(e.EndsAt), boolInt(e.AllDay), members, e.Notes,
		nullInt64(e.CreatedBy), e.CreatedAt.UTC(), e.UpdatedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert calendar event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, e.HouseholdID, id)
}

func (s *EventStore) GetByID(ctx context.Context, householdID, id int64) (*model.CalendarEvent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventCols+` FROM calendar_events WHERE household_id = ? AND id = ?`, householdID, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query calendar event: %w", err)
	}
	return e, nil
}

// ListByDateRange returns events starting in [start, end), all-day events
// first then by start time. A zero bound is open.
func (s *EventStore) ListByDateRange(ctx context.Context, householdID int64, start, end time.Time) ([]model.CalendarEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventCols+` FROM calendar_events WHERE household_id = ? ORDER BY all_day DESC, starts_at ASC, id ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("query calendar events: %w", err)
	}
	defer rows.Close()

	var events []model.CalendarEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		if !start.IsZero() && e.StartsAt.Before(start) {
			continue
		}
		if !end.IsZero() && !e.StartsAt.Before(end) {
			continue
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *EventStore) Update(ctx context.Context, e *model.CalendarEvent) (*model.CalendarEvent, error) {
	members, err := encodeIDs(e.MemberIDs)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE calendar_events
		 SET title = ?, starts_at = ?, ends_at = ?, all_day = ?, member_ids = ?, notes = ?, updated_at = ?
		 WHERE household_id = ? AND id = ?`,
		e.Title, e.StartsAt.UTC(), nullTime(e.EndsAt), boolInt(e.AllDay), members, e.Notes, e.UpdatedAt.UTC(),
		e.HouseholdID, e.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update calendar event: %w", err)
	}

	return s.GetByID(ctx, e.HouseholdID, e.ID)
}

func (s *EventStore) Delete(ctx context.Context, householdID, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM calendar_events WHERE household_id = ? AND id = ?", householdID, id)
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}
