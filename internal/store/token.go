package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/chorewheel/internal/model"
)

// TokenStore is the append-only ledger. Entries are never updated; balances
// are sums over a member's entries.
type TokenStore struct {
	db *sql.DB
}

func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

func scanTokenEntry(s scanner) (*model.TokenEntry, error) {
	var e model.TokenEntry
	var linkType sql.NullString
	var linkID sql.NullInt64

	if err := s.Scan(&e.ID, &e.HouseholdID, &e.MemberID, &e.Amount, &e.Reason, &linkType, &linkID, &e.CreatedAt); err != nil {
		return nil, err
	}
	if linkType.Valid {
		e.Link = &model.TokenLink{Type: model.TokenLinkType(linkType.String), ID: linkID.Int64}
	}
	return &e, nil
}

const tokenEntryCols = `id, household_id, member_id, amount, reason, link_type, link_id, created_at`

func (s *TokenStore) Insert(ctx context.Context, householdID, memberID int64, amount int, reason string, link *model.TokenLink, at time.Time) (*model.TokenEntry, error) {
	return insertTokenEntry(ctx, s.db, householdID, memberID, amount, reason, link, at)
}

// insertTokenEntry writes one entry through db or an open transaction.
func insertTokenEntry(ctx context.Context, q querier, householdID, memberID int64, amount int, reason string, link *model.TokenLink, at time.Time) (*model.TokenEntry, error) {
	var linkType sql.NullString
	var linkID sql.NullInt64
	if link != nil {
		linkType = sql.NullString{String: string(link.Type), Valid: true}
		linkID = sql.NullInt64{Int64: link.ID, Valid: true}
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO token_entries (household_id, member_id, amount, reason, link_type, link_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		householdID, memberID, amount, reason, linkType, linkID, at.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert token entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := q.QueryRowContext(ctx, `SELECT `+tokenEntryCols+` FROM token_entries WHERE id = ?`, id)
	e, err := scanTokenEntry(row)
	if err != nil {
		return nil, fmt.Errorf("get token entry: %w", err)
	}
	return e, nil
}

// Balance is the signed sum of a member's entries.
func (s *TokenStore) Balance(ctx context.Context, householdID, memberID int64) (int, error) {
	var balance int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM token_entries WHERE household_id = ? AND member_id = ?`,
		householdID, memberID,
	).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("sum token entries: %w", err)
	}
	return balance, nil
}

// Totals returns the sum of positive entries and the absolute sum of
// negative entries.
func (s *TokenStore) Totals(ctx context.Context, householdID, memberID int64) (earned, spent int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END), 0)
		 FROM token_entries WHERE household_id = ? AND member_id = ?`,
		householdID, memberID,
	).Scan(&earned, &spent)
	if err != nil {
		return 0, 0, fmt.Errorf("total token entries: %w", err)
	}
	return earned, spent, nil
}

// ListByMember returns a member's entries newest first. limit <= 0 means all.
func (s *TokenStore) ListByMember(ctx context.Context, householdID, memberID int64, limit int) ([]model.TokenEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.query(ctx,
		`SELECT `+tokenEntryCols+` FROM token_entries
		 WHERE household_id = ? AND member_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		householdID, memberID, limit,
	)
}

// List returns every entry in the household, oldest first.
func (s *TokenStore) List(ctx context.Context, householdID int64) ([]model.TokenEntry, error) {
	return s.query(ctx,
		`SELECT `+tokenEntryCols+` FROM token_entries WHERE household_id = ? ORDER BY created_at ASC, id ASC`,
		householdID,
	)
}

func (s *TokenStore) query(ctx context.Context, query string, args ...any) ([]model.TokenEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list token entries: %w", err)
	}
	defer rows.Close()

	var entries []model.TokenEntry
	for rows.Next() {
		e, err := scanTokenEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
