// Package ledger is the append-only token ledger. A member's balance is
// always summed from entries at the moment it is asked for.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/chorewheel/internal/apperr"
	"github.com/dukerupert/chorewheel/internal/model"
)

const defaultRecent = 10

type Store interface {
	Insert(ctx context.Context, householdID, memberID int64, amount int, reason string, link *model.TokenLink, at time.Time) (*model.TokenEntry, error)
	Balance(ctx context.Context, householdID, memberID int64) (int, error)
	Totals(ctx context.Context, householdID, memberID int64) (earned, spent int, err error)
	ListByMember(ctx context.Context, householdID, memberID int64, limit int) ([]model.TokenEntry, error)
}

type Ledger struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func New(store Store, logger *slog.Logger) *Ledger {
	return &Ledger{store: store, logger: logger, now: time.Now}
}

// Award appends one signed entry. Positive amounts credit, negative amounts
// debit; zero is rejected since it records nothing.
func (l *Ledger) Award(ctx context.Context, householdID, memberID int64, amount int, reason string, link *model.TokenLink) (*model.TokenEntry, error) {
	var v apperr.Validation
	if memberID <= 0 {
		v.Add("member_id", "is required")
	}
	if amount == 0 {
		v.Add("amount", "must not be zero")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	entry, err := l.store.Insert(ctx, householdID, memberID, amount, reason, link, l.now())
	if err != nil {
		return nil, err
	}
	l.logger.Debug("ledger entry", "household_id", householdID, "member_id", memberID, "amount", amount, "reason", reason)
	return entry, nil
}

func (l *Ledger) Balance(ctx context.Context, householdID, memberID int64) (int, error) {
	return l.store.Balance(ctx, householdID, memberID)
}

// Summary returns the derived balance, totals and the most recent entries.
func (l *Ledger) Summary(ctx context.Context, householdID, memberID int64, recent int) (*model.TokenSummary, error) {
	if recent <= 0 {
		recent = defaultRecent
	}
	earned, spent, err := l.store.Totals(ctx, householdID, memberID)
	if err != nil {
		return nil, err
	}
	entries, err := l.store.ListByMember(ctx, householdID, memberID, recent)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.TokenEntry{}
	}
	return &model.TokenSummary{
		MemberID:    memberID,
		TotalEarned: earned,
		TotalSpent:  spent,
		Balance:     earned - spent,
		Recent:      entries,
	}, nil
}
