package model

import "time"

type Reward struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	TokenCost   int       `json:"token_cost"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "pending"
	ClaimApproved ClaimStatus = "approved"
	ClaimClaimed  ClaimStatus = "claimed"
)

func (s ClaimStatus) Valid() bool {
	switch s {
	case ClaimPending, ClaimApproved, ClaimClaimed:
		return true
	}
	return false
}

// CanTransition reports whether a claim may move from s to next. Claims only
// move one step forward: pending -> approved -> claimed.
func (s ClaimStatus) CanTransition(next ClaimStatus) bool {
	switch s {
	case ClaimPending:
		return next == ClaimApproved
	case ClaimApproved:
		return next == ClaimClaimed
	}
	return false
}

type RewardClaim struct {
	ID          int64       `json:"id"`
	HouseholdID int64       `json:"household_id"`
	RewardID    int64       `json:"reward_id"`
	RewardTitle string      `json:"reward_title"`
	MemberID    int64       `json:"member_id"`
	TokenCost   int         `json:"token_cost"`
	Status      ClaimStatus `json:"status"`
	RedeemedAt  time.Time   `json:"redeemed_at"`
	ClaimedAt   *time.Time  `json:"claimed_at"`
}
