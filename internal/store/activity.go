package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/chorewheel/internal/model"
)

// ActivityStore appends to and reads the activity log. There is no update or
// delete path.
type ActivityStore struct {
	db *sql.DB
}

func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

func scanActivity(s scanner) (*model.ActivityEntry, error) {
	var e model.ActivityEntry
	var action, entityType, metadata string

	if err := s.Scan(&e.ID, &e.HouseholdID, &e.ActorID, &action, &entityType, &e.EntityID, &metadata, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Action = model.ActionType(action)
	e.EntityType = model.EntityType(entityType)
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	if e.Metadata == nil {
		e.Metadata = map[string]any{}
	}
	return &e, nil
}

const activityCols = `id, household_id, actor_id, action, entity_type, entity_id, metadata, created_at`

func (s *ActivityStore) Insert(ctx context.Context, e *model.ActivityEntry) (*model.ActivityEntry, error) {
	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_log (household_id, actor_id, action, entity_type, entity_id, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.HouseholdID, e.ActorID, string(e.Action), string(e.EntityType), e.EntityID, string(b), e.CreatedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert activity entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+activityCols+` FROM activity_log WHERE id = ?`, id)
	entry, err := scanActivity(row)
	if err != nil {
		return nil, fmt.Errorf("get activity entry: %w", err)
	}
	return entry, nil
}

// List returns entries newest first. limit <= 0 means no limit.
func (s *ActivityStore) List(ctx context.Context, householdID int64, limit, offset int) ([]model.ActivityEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+activityCols+` FROM activity_log WHERE household_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		householdID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var entries []model.ActivityEntry
	for rows.Next() {
		e, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (s *ActivityStore) Count(ctx context.Context, householdID int64) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_log WHERE household_id = ?`, householdID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count activity: %w", err)
	}
	return n, nil
}
