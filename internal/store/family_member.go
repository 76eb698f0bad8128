package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/chorewheel/internal/model"
)

type FamilyMemberStore struct {
	db *sql.DB
}

func NewFamilyMemberStore(db *sql.DB) *FamilyMemberStore {
	return &FamilyMemberStore{db: db}
}

func scanMember(s scanner) (*model.FamilyMember, error) {
	var m model.FamilyMember
	err := s.Scan(&m.ID, &m.HouseholdID, &m.Name, &m.Initials, &m.Color, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const memberCols = `id, household_id, name, initials, color, created_at`

func (s *FamilyMemberStore) Create(ctx context.Context, householdID int64, name, initials, color string) (*model.FamilyMember, error) {
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO family_members (household_id, name, initials, color) VALUES (?, ?, ?, ?)",
		householdID, name, initials, color,
	)
	if err != nil {
		return nil, fmt.Errorf("insert family member: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, householdID, id)
}

func (s *FamilyMemberStore) List(ctx context.Context, householdID int64) ([]model.FamilyMember, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+memberCols+" FROM family_members WHERE household_id = ? ORDER BY id",
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("query family members: %w", err)
	}
	defer rows.Close()

	var members []model.FamilyMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *FamilyMemberStore) GetByID(ctx context.Context, householdID, id int64) (*model.FamilyMember, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+memberCols+" FROM family_members WHERE household_id = ? AND id = ?",
		householdID, id,
	)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query family member: %w", err)
	}
	return m, nil
}

// Missing returns the ids in ids that are not members of the household.
func (s *FamilyMemberStore) Missing(ctx context.Context, householdID int64, ids []int64) ([]int64, error) {
	members, err := s.List(ctx, householdID)
	if err != nil {
		return nil, err
	}
	known := make(map[int64]struct{}, len(members))
	for _, m := range members {
		known[m.ID] = struct{}{}
	}
	var missing []int64
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (s *FamilyMemberStore) NameExists(ctx context.Context, householdID int64, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM family_members WHERE household_id = ? AND name = ?",
		householdID, name,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check name exists: %w", err)
	}
	return count > 0, nil
}
