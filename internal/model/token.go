package model

import "time"

type TokenLinkType string

const (
	TokenLinkTaskCompletion TokenLinkType = "task_completion"
	TokenLinkRewardClaim    TokenLinkType = "reward_claim"
)

// TokenLink points a ledger entry at whatever produced it.
type TokenLink struct {
	Type TokenLinkType `json:"type"`
	ID   int64         `json:"id"`
}

type TokenEntry struct {
	ID          int64      `json:"id"`
	HouseholdID int64      `json:"household_id"`
	MemberID    int64      `json:"member_id"`
	Amount      int        `json:"amount"`
	Reason      string     `json:"reason"`
	Link        *TokenLink `json:"link,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type TokenSummary struct {
	MemberID    int64        `json:"member_id"`
	TotalEarned int          `json:"total_earned"`
	TotalSpent  int          `json:"total_spent"`
	Balance     int          `json:"balance"`
	Recent      []TokenEntry `json:"recent"`
}
