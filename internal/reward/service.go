// Package reward manages the reward catalogue and turns token balances into
// claims. A redemption is all or nothing: the balance check, the claim and
// its debit commit together or not at all.
package reward

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/chorewheel/internal/apperr"
	"github.com/dukerupert/chorewheel/internal/metrics"
	"github.com/dukerupert/chorewheel/internal/model"
	"github.com/dukerupert/chorewheel/internal/store"
)

type Store interface {
	Create(ctx context.Context, householdID int64, title, description string, tokenCost int, active bool, at time.Time) (*model.Reward, error)
	GetByID(ctx context.Context, householdID, id int64) (*model.Reward, error)
	List(ctx context.Context, householdID int64) ([]model.Reward, error)
	Update(ctx context.Context, r *model.Reward) (*model.Reward, error)
	Delete(ctx context.Context, householdID, id int64) error
	Redeem(ctx context.Context, reward *model.Reward, memberID int64, reason string, at time.Time) (*model.RewardClaim, int, error)
	GetClaim(ctx context.Context, householdID, id int64) (*model.RewardClaim, error)
	ListClaims(ctx context.Context, householdID int64, f store.ClaimFilter) ([]model.RewardClaim, error)
	TransitionClaim(ctx context.Context, householdID, id int64, from, to model.ClaimStatus, claimedAt *time.Time) (bool, error)
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
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(st Store, members MemberStore, recorder Recorder, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:    st,
		members:  members,
		recorder: recorder,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

type Input struct {
	Title       string
	Description string
	TokenCost   int
	Active      bool
}

// Patch carries a partial reward update. Nil fields are left unchanged.
type Patch struct {
	Title       *string
	Description *string
	TokenCost   *int
	Active      *bool
}

// --- Catalogue ---

func (s *Service) List(ctx context.Context, householdID int64) ([]model.Reward, error) {
	rewards, err := s.store.List(ctx, householdID)
	if err != nil {
		return nil, err
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	return rewards, nil
}

func (s *Service) Get(ctx context.Context, householdID, id int64) (*model.Reward, error) {
	r, err := s.store.GetByID(ctx, householdID, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperr.NotFound("reward")
	}
	return r, nil
}

func (s *Service) Create(ctx context.Context, householdID, actorID int64, in Input) (*model.Reward, error) {
	r := &model.Reward{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		TokenCost:   in.TokenCost,
		Active:      in.Active,
	}
	if err := validateReward(r, actorID); err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, householdID, r.Title, r.Description, r.TokenCost, r.Active, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.record(ctx, householdID, actorID, model.ActionRewardCreated, model.EntityReward, created.ID,
		map[string]any{"title": created.Title, "token_cost": created.TokenCost}); err != nil {
		return nil, partial("create reward", err, "reward created")
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, householdID, id, actorID int64, p Patch) (*model.Reward, error) {
	r, err := s.Get(ctx, householdID, id)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		r.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		r.Description = strings.TrimSpace(*p.Description)
	}
	if p.TokenCost != nil {
		r.TokenCost = *p.TokenCost
	}
	if p.Active != nil {
		r.Active = *p.Active
	}
	if err := validateReward(r, actorID); err != nil {
		return nil, err
	}

	updated, err := s.store.Update(ctx, r)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.NotFound("reward")
	}
	if err := s.record(ctx, householdID, actorID, model.ActionRewardEdited, model.EntityReward, id,
		map[string]any{"title": updated.Title, "token_cost": updated.TokenCost, "active": updated.Active}); err != nil {
		return nil, partial("update reward", err, "reward updated")
	}
	return updated, nil
}

// Delete removes the reward. Existing claims keep their snapshot of title
// and cost.
func (s *Service) Delete(ctx context.Context, householdID, id, actorID int64) error {
	if actorID <= 0 {
		return apperr.Invalid("actor_id", "is required")
	}
	r, err := s.Get(ctx, householdID, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, householdID, id); err != nil {
		return err
	}
	if err := s.record(ctx, householdID, actorID, model.ActionRewardDeleted, model.EntityReward, id,
		map[string]any{"title": r.Title}); err != nil {
		return partial("delete reward", err, "reward deleted")
	}
	return nil
}

// --- Redemption ---

// Redeem exchanges tokens for a reward. The balance is re-summed inside the
// write transaction, so two concurrent redemptions can never both spend the
// same tokens. On success the member holds a pending claim and the ledger
// carries one debit of the reward's cost linked to it.
func (s *Service) Redeem(ctx context.Context, householdID, rewardID, memberID int64) (*model.RewardClaim, error) {
	if memberID <= 0 {
		return nil, apperr.Invalid("member_id", "is required")
	}
	missing, err := s.members.Missing(ctx, householdID, []int64{memberID})
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, apperr.NotFound("member")
	}
	r, err := s.Get(ctx, householdID, rewardID)
	if err != nil {
		return nil, err
	}
	if !r.Active {
		return nil, apperr.Invalid("reward_id", "reward is not active")
	}

	claim, balance, err := s.store.Redeem(ctx, r, memberID, "Redeemed: "+r.Title, s.now())
	if err != nil {
		s.metrics.Redemption(metrics.RedeemRolledBack)
		s.logger.Warn("redemption rolled back", "household_id", householdID, "reward_id", rewardID, "member_id", memberID, "error", err)
		return nil, err
	}
	if claim == nil {
		s.metrics.Redemption(metrics.RedeemInsufficient)
		return nil, &apperr.InsufficientBalanceError{Cost: r.TokenCost, Balance: balance}
	}

	s.metrics.Redemption(metrics.RedeemOK)
	if err := s.record(ctx, householdID, memberID, model.ActionRewardRedeemed, model.EntityClaim, claim.ID,
		map[string]any{"title": r.Title, "token_cost": r.TokenCost, "reward_id": r.ID}); err != nil {
		return nil, partial("redeem reward", err, "claim created", "tokens debited")
	}
	s.logger.Info("reward redeemed", "household_id", householdID, "reward_id", rewardID, "member_id", memberID, "cost", r.TokenCost)
	return claim, nil
}

// --- Claims ---

func (s *Service) ListClaims(ctx context.Context, householdID int64, f store.ClaimFilter) ([]model.RewardClaim, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Invalid("status", "must be pending, approved or claimed")
	}
	claims, err := s.store.ListClaims(ctx, householdID, f)
	if err != nil {
		return nil, err
	}
	if claims == nil {
		claims = []model.RewardClaim{}
	}
	return claims, nil
}

// UpdateClaimStatus moves a claim one step forward. Reaching claimed stamps
// claimed_at.
func (s *Service) UpdateClaimStatus(ctx context.Context, householdID, claimID, actorID int64, status model.ClaimStatus) (*model.RewardClaim, error) {
	if actorID <= 0 {
		return nil, apperr.Invalid("actor_id", "is required")
	}
	if !status.Valid() {
		return nil, apperr.Invalid("status", "must be pending, approved or claimed")
	}
	claim, err := s.store.GetClaim(ctx, householdID, claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, apperr.NotFound("claim")
	}
	if !claim.Status.CanTransition(status) {
		return nil, apperr.Transition(string(claim.Status), string(status))
	}

	var claimedAt *time.Time
	if status == model.ClaimClaimed {
		now := s.now()
		claimedAt = &now
	}
	ok, err := s.store.TransitionClaim(ctx, householdID, claimID, claim.Status, status, claimedAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Someone else moved it first.
		return nil, apperr.Transition(string(claim.Status), string(status))
	}

	if err := s.record(ctx, householdID, actorID, model.ActionClaimUpdated, model.EntityClaim, claimID,
		map[string]any{"title": claim.RewardTitle, "from": claim.Status, "to": status, "member_id": claim.MemberID}); err != nil {
		return nil, partial("update claim", err, "claim "+string(status))
	}

	updated, err := s.store.GetClaim(ctx, householdID, claimID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.NotFound("claim")
	}
	return updated, nil
}

func (s *Service) record(ctx context.Context, householdID, actorID int64, action model.ActionType, entity model.EntityType, id int64, meta map[string]any) error {
	_, err := s.recorder.Record(ctx, model.ActivityEntry{
		HouseholdID: householdID,
		ActorID:     actorID,
		Action:      action,
		EntityType:  entity,
		EntityID:    id,
		Metadata:    meta,
	})
	return err
}

func validateReward(r *model.Reward, actorID int64) error {
	var v apperr.Validation
	if actorID <= 0 {
		v.Add("actor_id", "is required")
	}
	if r.Title == "" {
		v.Add("title", "is required")
	}
	if r.TokenCost <= 0 {
		v.Add("token_cost", "must be greater than zero")
	}
	return v.Err()
}

func partial(op string, err error, completed ...string) error {
	return &apperr.PartialFailureError{Op: op, Completed: completed, Err: err}
}
