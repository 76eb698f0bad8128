package stats

import (
	"context"
	"slices"
	"time"

	"github.com/dukerupert/chorewheel/internal/apperr"
	"github.com/dukerupert/chorewheel/internal/model"
)

type MemberStore interface {
	List(ctx context.Context, householdID int64) ([]model.FamilyMember, error)
}

type TokenStore interface {
	List(ctx context.Context, householdID int64) ([]model.TokenEntry, error)
}

type TaskStore interface {
	List(ctx context.Context, householdID int64) ([]model.Task, error)
	ListCompletions(ctx context.Context, householdID int64) ([]model.TaskCompletion, error)
}

type Service struct {
	members MemberStore
	tokens  TokenStore
	tasks   TaskStore
	now     func() time.Time
}

func NewService(members MemberStore, tokens TokenStore, tasks TaskStore) *Service {
	return &Service{members: members, tokens: tokens, tasks: tasks, now: time.Now}
}

type TaskFairness struct {
	TaskID int64  `json:"task_id"`
	Title  string `json:"title"`
	Fairness
}

type FamilyStats struct {
	Window           Window         `json:"timeframe"`
	TotalCompletions int            `json:"total_completions"`
	TotalTokens      int            `json:"total_tokens"`
	Members          []MemberStats  `json:"members"`
	Rotations        []TaskFairness `json:"rotations"`
}

func (s *Service) Leaderboard(ctx context.Context, householdID int64, w Window) ([]LeaderboardEntry, error) {
	members, entries, completions, err := s.load(ctx, householdID)
	if err != nil {
		return nil, err
	}
	return Leaderboard(members, entries, completions, w.Since(s.now())), nil
}

func (s *Service) MemberStats(ctx context.Context, householdID, memberID int64, w Window) (*MemberStats, error) {
	members, entries, completions, err := s.load(ctx, householdID)
	if err != nil {
		return nil, err
	}
	idx := slices.IndexFunc(members, func(m model.FamilyMember) bool { return m.ID == memberID })
	if idx < 0 {
		return nil, apperr.NotFound("member")
	}
	now := s.now()
	st := ComputeMemberStats(members[idx], completions, entries, w.Since(now), now)
	return &st, nil
}

// FamilyStats aggregates every member plus a fairness report for each
// rotating task, counting completions inside the window.
func (s *Service) FamilyStats(ctx context.Context, householdID int64, w Window) (*FamilyStats, error) {
	members, entries, completions, err := s.load(ctx, householdID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.List(ctx, householdID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	since := w.Since(now)
	fs := &FamilyStats{
		Window:    w,
		Members:   make([]MemberStats, 0, len(members)),
		Rotations: []TaskFairness{},
	}
	for _, m := range members {
		fs.Members = append(fs.Members, ComputeMemberStats(m, completions, entries, since, now))
	}
	for _, c := range completions {
		if inWindow(c.CompletedAt, since) {
			fs.TotalCompletions++
		}
	}
	for _, e := range entries {
		if e.Amount > 0 && inWindow(e.CreatedAt, since) {
			fs.TotalTokens += e.Amount
		}
	}

	names := make(map[int64]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}
	for _, t := range tasks {
		if !t.Rotates() {
			continue
		}
		perMember := make(map[int64]int)
		for _, c := range completions {
			if c.TaskID == t.ID && inWindow(c.CompletedAt, since) {
				perMember[c.CompletedBy]++
			}
		}
		counts := make([]MemberCount, 0, len(t.AssigneeIDs))
		for _, id := range t.AssigneeIDs {
			counts = append(counts, MemberCount{MemberID: id, Name: names[id], Count: perMember[id]})
		}
		fs.Rotations = append(fs.Rotations, TaskFairness{TaskID: t.ID, Title: t.Title, Fairness: ComputeFairness(counts)})
	}
	return fs, nil
}

// load returns members, the full ledger, and completions oldest first.
func (s *Service) load(ctx context.Context, householdID int64) ([]model.FamilyMember, []model.TokenEntry, []model.TaskCompletion, error) {
	members, err := s.members.List(ctx, householdID)
	if err != nil {
		return nil, nil, nil, err
	}
	entries, err := s.tokens.List(ctx, householdID)
	if err != nil {
		return nil, nil, nil, err
	}
	completions, err := s.tasks.ListCompletions(ctx, householdID)
	if err != nil {
		return nil, nil, nil, err
	}
	slices.Reverse(completions)
	return members, entries, completions, nil
}
