package model

import "time"

type Recurrence string

const (
	RecurrenceOnce      Recurrence = "once"
	RecurrenceRepeating Recurrence = "repeating"
)

func (r Recurrence) Valid() bool {
	return r == RecurrenceOnce || r == RecurrenceRepeating
}

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

type Task struct {
	ID                 int64      `json:"id"`
	HouseholdID        int64      `json:"household_id"`
	Title              string     `json:"title"`
	Notes              string     `json:"notes"`
	Recurrence         Recurrence `json:"recurrence"`
	Frequency          Frequency  `json:"frequency,omitempty"`
	AssigneeIDs        MemberIDs  `json:"assignee_ids"`
	DueDate            *time.Time `json:"due_date"`
	Completed          bool       `json:"completed"`
	CompletedAt        *time.Time `json:"completed_at"`
	CompletedBy        *int64     `json:"completed_by"`
	TokenValue         int        `json:"token_value"`
	RotationEnabled    bool       `json:"rotation_enabled"`
	RotationIndex      int        `json:"rotation_index"`
	RotationExcludeIDs MemberIDs  `json:"rotation_exclude_ids"`
	CreatedBy          *int64     `json:"created_by"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Rotates reports whether completing the task advances responsibility
// instead of closing it.
func (t *Task) Rotates() bool {
	return t.Recurrence == RecurrenceRepeating && t.RotationEnabled && len(t.AssigneeIDs) > 1
}

// TaskCompletion is one completion cycle of a task. The title is a snapshot
// so history outlives the task.
type TaskCompletion struct {
	ID            int64     `json:"id"`
	HouseholdID   int64     `json:"household_id"`
	TaskID        int64     `json:"task_id"`
	TaskTitle     string    `json:"task_title"`
	CompletedBy   int64     `json:"completed_by"`
	TokensAwarded int       `json:"tokens_awarded"`
	Rotating      bool      `json:"rotating"`
	CompletedAt   time.Time `json:"completed_at"`
}

type Subtask struct {
	ID          int64      `json:"id"`
	HouseholdID int64      `json:"household_id"`
	TaskID      int64      `json:"task_id"`
	Title       string     `json:"title"`
	Completed   bool       `json:"completed"`
	CompletedBy *int64     `json:"completed_by"`
	CompletedAt *time.Time `json:"completed_at"`
	OrderIndex  int        `json:"order_index"`
	CreatedAt   time.Time  `json:"created_at"`
}
