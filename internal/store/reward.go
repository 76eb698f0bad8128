package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/chorewheel/internal/model"
)

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

// --- Reward methods ---

func scanReward(s scanner) (*model.Reward, error) {
	var r model.Reward
	var active int

	err := s.Scan(&r.ID, &r.HouseholdID, &r.Title, &r.Description, &r.TokenCost, &active, &r.CreatedAt)
	if err != nil {
		return nil, err
	}

	r.Active = active != 0
	return &r, nil
}

const rewardCols = `id, household_id, title, description, token_cost, active, created_at`

func (s *RewardStore) Create(ctx context.Context, householdID int64, title, description string, tokenCost int, active bool, at time.Time) (*model.Reward, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO rewards (household_id, title, description, token_cost, active, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		householdID, title, description, tokenCost, boolInt(active), at.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, householdID, id)
}

func (s *RewardStore) GetByID(ctx context.Context, householdID, id int64) (*model.Reward, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+rewardCols+` FROM rewards WHERE household_id = ? AND id = ?`, householdID, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

// List returns all rewards, active first, then by title.
func (s *RewardStore) List(ctx context.Context, householdID int64) ([]model.Reward, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+rewardCols+` FROM rewards WHERE household_id = ? ORDER BY active DESC, title ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *RewardStore) Update(ctx context.Context, r *model.Reward) (*model.Reward, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE rewards SET title = ?, description = ?, token_cost = ?, active = ? WHERE household_id = ? AND id = ?`,
		r.Title, r.Description, r.TokenCost, boolInt(r.Active), r.HouseholdID, r.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(ctx, r.HouseholdID, r.ID)
}

func (s *RewardStore) Delete(ctx context.Context, householdID, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rewards WHERE household_id = ? AND id = ?`, householdID, id)
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	return nil
}

// --- Claim methods ---

func scanClaim(s scanner) (*model.RewardClaim, error) {
	var c model.RewardClaim
	var claimedAt sql.NullTime

	err := s.Scan(&c.ID, &c.HouseholdID, &c.RewardID, &c.RewardTitle, &c.MemberID, &c.TokenCost, &c.Status, &c.RedeemedAt, &claimedAt)
	if err != nil {
		return nil, err
	}
	c.ClaimedAt = timePtr(claimedAt)
	return &c, nil
}

const claimCols = `id, household_id, reward_id, reward_title, member_id, token_cost, status, redeemed_at, claimed_at`

// Redeem sums the member's balance, inserts a pending claim and writes the
// linked debit in one transaction. The connection opens transactions with
// BEGIN IMMEDIATE, so concurrent redemptions are serialized and each sees
// the debits committed before it. When the balance does not cover the cost,
// nothing is written and the claim is nil; the balance is returned either way.
func (s *RewardStore) Redeem(ctx context.Context, reward *model.Reward, memberID int64, reason string, at time.Time) (*model.RewardClaim, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin redeem: %w", err)
	}
	defer tx.Rollback()

	var balance int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM token_entries WHERE household_id = ? AND member_id = ?`,
		reward.HouseholdID, memberID,
	).Scan(&balance)
	if err != nil {
		return nil, 0, fmt.Errorf("sum token entries: %w", err)
	}
	if balance < reward.TokenCost {
		return nil, balance, nil
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO reward_claims (household_id, reward_id, reward_title, member_id, token_cost, status, redeemed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		reward.HouseholdID, reward.ID, reward.Title, memberID, reward.TokenCost, string(model.ClaimPending), at.UTC(),
	)
	if err != nil {
		return nil, balance, fmt.Errorf("insert reward claim: %w", err)
	}
	claimID, err := result.LastInsertId()
	if err != nil {
		return nil, balance, fmt.Errorf("last insert id: %w", err)
	}

	link := &model.TokenLink{Type: model.TokenLinkRewardClaim, ID: claimID}
	if _, err := insertTokenEntry(ctx, tx, reward.HouseholdID, memberID, -reward.TokenCost, reason, link, at); err != nil {
		return nil, balance, err
	}

	row := tx.QueryRowContext(ctx, `SELECT `+claimCols+` FROM reward_claims WHERE id = ?`, claimID)
	claim, err := scanClaim(row)
	if err != nil {
		return nil, balance, fmt.Errorf("get reward claim: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, balance, fmt.Errorf("commit redeem: %w", err)
	}
	return claim, balance - reward.TokenCost, nil
}

func (s *RewardStore) GetClaim(ctx context.Context, householdID, id int64) (*model.RewardClaim, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+claimCols+` FROM reward_claims WHERE household_id = ? AND id = ?`, householdID, id)
	c, err := scanClaim(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward claim: %w", err)
	}
	return c, nil
}

type ClaimFilter struct {
	Status   model.ClaimStatus
	MemberID int64
}

// ListClaims returns claims newest first, optionally filtered.
func (s *RewardStore) ListClaims(ctx context.Context, householdID int64, f ClaimFilter) ([]model.RewardClaim, error) {
	where := []string{"household_id = ?"}
	args := []any{householdID}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.MemberID > 0 {
		where = append(where, "member_id = ?")
		args = append(args, f.MemberID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+claimCols+` FROM reward_claims WHERE `+strings.Join(where, " AND ")+` ORDER BY redeemed_at DESC, id DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list reward claims: %w", err)
	}
	defer rows.Close()

	var claims []model.RewardClaim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward claim: %w", err)
		}
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}

// TransitionClaim moves a claim from one status to the next only if it is
// still in from. claimedAt is written when non-nil. It reports whether the
// row changed, so concurrent transitions cannot both succeed.
func (s *RewardStore) TransitionClaim(ctx context.Context, householdID, id int64, from, to model.ClaimStatus, claimedAt *time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE reward_claims SET status = ?, claimed_at = COALESCE(?, claimed_at)
		 WHERE household_id = ? AND id = ? AND status = ?`,
		string(to), nullTime(claimedAt), householdID, id, string(from),
	)
	if err != nil {
		return false, fmt.Errorf("update reward claim: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}
