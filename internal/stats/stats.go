// Package stats derives leaderboards, per-member statistics and rotation
// fairness from the token ledger and the completion history. Nothing here
// writes.
package stats

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/dukerupert/chorewheel/internal/model"
)

type Window string

const (
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
	WindowAll   Window = "all"
)

// FairnessGap is the max-minus-min completion spread above which a fairness
// report carries a suggestion.
const FairnessGap = 2

func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case "":
		return WindowWeek, nil
	case WindowWeek, WindowMonth, WindowAll:
		return Window(s), nil
	}
	return "", fmt.Errorf("unknown timeframe %q", s)
}

// Since returns the earliest instant inside the window ending at now. The
// zero time means unbounded.
func (w Window) Since(now time.Time) time.Time {
	switch w {
	case WindowWeek:
		return now.AddDate(0, 0, -7)
	case WindowMonth:
		return now.AddDate(0, 0, -30)
	}
	return time.Time{}
}

func inWindow(at, since time.Time) bool {
	return since.IsZero() || !at.Before(since)
}

type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	MemberID    int64  `json:"member_id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Tokens      int    `json:"tokens"`
	Completions int    `json:"completions"`
}

// Leaderboard ranks members by tokens earned since the given instant. Only
// positive ledger entries count as earned. Ties keep member id order.
func Leaderboard(members []model.FamilyMember, entries []model.TokenEntry, completions []model.TaskCompletion, since time.Time) []LeaderboardEntry {
	tokens := make(map[int64]int)
	for _, e := range entries {
		if e.Amount > 0 && inWindow(e.CreatedAt, since) {
			tokens[e.MemberID] += e.Amount
		}
	}
	done := make(map[int64]int)
	for _, c := range completions {
		if inWindow(c.CompletedAt, since) {
			done[c.CompletedBy]++
		}
	}

	board := make([]LeaderboardEntry, 0, len(members))
	for _, m := range members {
		board = append(board, LeaderboardEntry{
			MemberID:    m.ID,
			Name:        m.Name,
			Color:       m.Color,
			Tokens:      tokens[m.ID],
			Completions: done[m.ID],
		})
	}
	slices.SortFunc(board, func(a, b LeaderboardEntry) int {
		if a.Tokens != b.Tokens {
			return b.Tokens - a.Tokens
		}
		switch {
		case a.MemberID < b.MemberID:
			return -1
		case a.MemberID > b.MemberID:
			return 1
		}
		return 0
	})
	for i := range board {
		board[i].Rank = i + 1
	}
	return board
}

type MemberStats struct {
	MemberID           int64   `json:"member_id"`
	Name               string  `json:"name"`
	CompletedInWindow  int     `json:"completed_in_window"`
	CompletedThisMonth int     `json:"completed_this_month"`
	CompletedAllTime   int     `json:"completed_all_time"`
	AverageTokens      float64 `json:"average_tokens"`
	CurrentStreak      int     `json:"current_streak"`
	LongestStreak      int     `json:"longest_streak"`
	MostFrequentTask   string  `json:"most_frequent_task"`
	TokensEarned       int     `json:"tokens_earned"`
	Balance            int     `json:"balance"`
}

// ComputeMemberStats summarizes one member's completions. completions must
// be oldest first and may include other members' rows. The window count
// follows since; the monthly count always covers the month window.
func ComputeMemberStats(m model.FamilyMember, completions []model.TaskCompletion, entries []model.TokenEntry, since, now time.Time) MemberStats {
	st := MemberStats{MemberID: m.ID, Name: m.Name}
	monthStart := WindowMonth.Since(now)

	var (
		days       []time.Time
		tokenSum   int
		titleCount = make(map[string]int)
		titleOrder []string
	)
	for _, c := range completions {
		if c.CompletedBy != m.ID {
			continue
		}
		st.CompletedAllTime++
		if inWindow(c.CompletedAt, since) {
			st.CompletedInWindow++
		}
		if inWindow(c.CompletedAt, monthStart) {
			st.CompletedThisMonth++
		}
		tokenSum += c.TokensAwarded
		days = append(days, c.CompletedAt)
		if _, seen := titleCount[c.TaskTitle]; !seen {
			titleOrder = append(titleOrder, c.TaskTitle)
		}
		titleCount[c.TaskTitle]++
	}
	if st.CompletedAllTime > 0 {
		st.AverageTokens = math.Round(float64(tokenSum)/float64(st.CompletedAllTime)*10) / 10
	}
	st.CurrentStreak, st.LongestStreak = Streaks(days, now)

	best := 0
	for _, title := range titleOrder {
		if titleCount[title] > best {
			best = titleCount[title]
			st.MostFrequentTask = title
		}
	}

	for _, e := range entries {
		if e.MemberID != m.ID {
			continue
		}
		st.Balance += e.Amount
		if e.Amount > 0 {
			st.TokensEarned += e.Amount
		}
	}
	return st
}

// Streaks counts runs of consecutive UTC calendar days with at least one
// completion. The current streak ends today, or yesterday when nothing has
// been completed yet today.
func Streaks(times []time.Time, now time.Time) (current, longest int) {
	if len(times) == 0 {
		return 0, 0
	}
	seen := make(map[time.Time]bool, len(times))
	days := make([]time.Time, 0, len(times))
	for _, t := range times {
		d := utcDay(t)
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })

	run := 1
	longest = 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}

	day := utcDay(now)
	if !seen[day] {
		day = day.AddDate(0, 0, -1)
	}
	for seen[day] {
		current++
		day = day.AddDate(0, 0, -1)
	}
	return current, longest
}

func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type MemberCount struct {
	MemberID int64  `json:"member_id"`
	Name     string `json:"name"`
	Count    int    `json:"count"`
}

type Fairness struct {
	Counts     []MemberCount `json:"counts"`
	Score      float64       `json:"score"`
	Suggestion string        `json:"suggestion,omitempty"`
}

// FairnessScore is 100 minus the coefficient of variation as a percentage,
// floored at 0. An empty or all-zero distribution scores 100.
func FairnessScore(counts []int) float64 {
	if len(counts) == 0 {
		return 100
	}
	var sum float64
	for _, c := range counts {
		sum += float64(c)
	}
	mean := sum / float64(len(counts))
	if mean == 0 {
		return 100
	}
	var variance float64
	for _, c := range counts {
		d := float64(c) - mean
		variance += d * d
	}
	stddev := math.Sqrt(variance / float64(len(counts)))
	score := 100 - stddev/mean*100
	if score < 0 {
		return 0
	}
	return math.Round(score*10) / 10
}

// ComputeFairness scores counts and, when the spread exceeds FairnessGap,
// suggests the member with the fewest completions for the next turn.
func ComputeFairness(counts []MemberCount) Fairness {
	f := Fairness{Counts: counts}
	if f.Counts == nil {
		f.Counts = []MemberCount{}
	}
	values := make([]int, len(counts))
	for i, c := range counts {
		values[i] = c.Count
	}
	f.Score = FairnessScore(values)
	if len(counts) == 0 {
		return f
	}

	least, most := counts[0], counts[0]
	for _, c := range counts[1:] {
		if c.Count < least.Count {
			least = c
		}
		if c.Count > most.Count {
			most = c
		}
	}
	if most.Count-least.Count > FairnessGap {
		f.Suggestion = fmt.Sprintf("%s has completed this %d times fewer than %s; consider giving %s the next turn",
			least.Name, most.Count-least.Count, most.Name, least.Name)
	}
	return f
}
