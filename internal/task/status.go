package task

import (
	"time"

	"github.com/dukerupert/chorewheel/internal/model"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
)

// ComputeStatus derives the display status of a task. One-off tasks use the
// completed flag and their due date. Repeating tasks count as completed only
// while their last completion falls inside the current frequency period.
// A rotating task never closes on completion: the turn passes and it is due
// again for the next assignee, so only the completed flag is consulted.
func ComputeStatus(t model.Task, lastCompletion *time.Time, today time.Time) Status {
	today = startOfDay(today.UTC())

	if t.Recurrence != model.RecurrenceRepeating {
		if t.Completed {
			return StatusCompleted
		}
		if t.DueDate != nil && startOfDay(t.DueDate.UTC()).Before(today) {
			return StatusOverdue
		}
		return StatusPending
	}

	if t.Rotates() {
		if t.Completed {
			return StatusCompleted
		}
		return StatusPending
	}

	if lastCompletion != nil && !lastCompletion.UTC().Before(PeriodStart(t.Frequency, today)) {
		return StatusCompleted
	}
	return StatusPending
}

// PeriodStart returns the first instant of the frequency period containing
// day. Weeks start on Monday. An unknown frequency is treated as daily.
func PeriodStart(f model.Frequency, day time.Time) time.Time {
	day = startOfDay(day)
	switch f {
	case model.FrequencyWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case model.FrequencyMonthly:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	default:
		return day
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
