package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/chorewheel/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

// --- Task methods ---

func scanTask(s scanner) (*model.Task, error) {
	var t model.Task
	var frequency string
	var assignees, excludes string
	var dueDate, completedAt sql.NullTime
	var completedBy, createdBy sql.NullInt64
	var completed, rotationEnabled int

	err := s.Scan(
		&t.ID, &t.HouseholdID, &t.Title, &t.Notes, &t.Recurrence, &frequency,
		&assignees, &dueDate, &completed, &completedAt, &completedBy,
		&t.TokenValue, &rotationEnabled, &t.RotationIndex, &excludes,
		&createdBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Frequency = model.Frequency(frequency)
	t.Completed = completed != 0
	t.RotationEnabled = rotationEnabled != 0
	t.DueDate = timePtr(dueDate)
	t.CompletedAt = timePtr(completedAt)
	t.CompletedBy = int64Ptr(completedBy)
	t.CreatedBy = int64Ptr(createdBy)

	if t.AssigneeIDs, err = decodeIDs(assignees); err != nil {
		return nil, err
	}
	if t.RotationExcludeIDs, err = decodeIDs(excludes); err != nil {
		return nil, err
	}
	return &t, nil
}

const taskCols = `id, household_id, title, notes, recurrence, frequency, assignee_ids, due_date,
	completed, completed_at, completed_by, token_value, rotation_enabled, rotation_index,
	rotation_exclude_ids, created_by, created_at, updated_at`

func (s *TaskStore) Create(ctx context.Context, t *model.Task) (*model.Task, error) {
	assignees, err := encodeIDs(t.AssigneeIDs)
	if err != nil {
		return nil, err
	}
	excludes, err := encodeIDs(t.RotationExcludeIDs)
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (household_id, title, notes, recurrence, frequency, assignee_ids, due_date,
			token_value, rotation_enabled, rotation_index, rotation_exclude_ids, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.HouseholdID, t.Title, t.Notes, string(t.Recurrence), string(t.Frequency), assignees, nullTime(t.DueDate),
		t.TokenValue, boolInt(t.RotationEnabled), t.RotationIndex, excludes, nullInt64(t.CreatedBy),
		t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, t.HouseholdID, id)
}

func (s *TaskStore) GetByID(ctx context.Context, householdID, id int64) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE household_id = ? AND id = ?`, householdID, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) List(ctx context.Context, householdID int64) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE household_id = ? ORDER BY completed ASC, id ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Update writes every mutable column of t.
func (s *TaskStore) Update(ctx context.Context, t *model.Task) (*model.Task, error) {
	assignees, err := encodeIDs(t.AssigneeIDs)
	if err != nil {
		return nil, err
	}
	excludes, err := encodeIDs(t.RotationExcludeIDs)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, notes = ?, recurrence = ?, frequency = ?, assignee_ids = ?, due_date = ?,
			token_value = ?, rotation_enabled = ?, rotation_index = ?, rotation_exclude_ids = ?, updated_at = ?
		 WHERE household_id = ? AND id = ?`,
		t.Title, t.Notes, string(t.Recurrence), string(t.Frequency), assignees, nullTime(t.DueDate),
		t.TokenValue, boolInt(t.RotationEnabled), t.RotationIndex, excludes, t.UpdatedAt.UTC(),
		t.HouseholdID, t.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(ctx, t.HouseholdID, t.ID)
}

// Delete removes the task and its subtasks in one transaction. Completion
// history, ledger entries and activity rows are left alone.
func (s *TaskStore) Delete(ctx context.Context, householdID, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM subtasks WHERE household_id = ? AND task_id = ?`, householdID, id); err != nil {
		return fmt.Errorf("delete subtasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE household_id = ? AND id = ?`, householdID, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return tx.Commit()
}

// MarkCompleted closes the task. It only touches a task that is still open
// and reports whether it did.
func (s *TaskStore) MarkCompleted(ctx context.Context, householdID, id, completedBy int64, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET completed = 1, completed_at = ?, completed_by = ?, updated_at = ?
		 WHERE household_id = ? AND id = ? AND completed = 0`,
		at.UTC(), completedBy, at.UTC(), householdID, id,
	)
	if err != nil {
		return false, fmt.Errorf("mark task completed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// Reopen clears the completion stamp of a completed task.
func (s *TaskStore) Reopen(ctx context.Context, householdID, id int64, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET completed = 0, completed_at = NULL, completed_by = NULL, updated_at = ?
		 WHERE household_id = ? AND id = ? AND completed = 1`,
		at.UTC(), householdID, id,
	)
	if err != nil {
		return false, fmt.Errorf("reopen task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// AdvanceRotation moves rotation_index from expected to next. The write is a
// compare-and-set so two concurrent completions cannot both advance from the
// same turn; it reports false when the index had already moved.
func (s *TaskStore) AdvanceRotation(ctx context.Context, householdID, id int64, expected, next int, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET rotation_index = ?, completed = 0, completed_at = NULL, completed_by = NULL, updated_at = ?
		 WHERE household_id = ? AND id = ? AND rotation_index = ?`,
		next, at.UTC(), householdID, id, expected,
	)
	if err != nil {
		return false, fmt.Errorf("advance rotation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// --- Completion history ---

func scanCompletion(s scanner) (*model.TaskCompletion, error) {
	var c model.TaskCompletion
	var rotating int
	err := s.Scan(&c.ID, &c.HouseholdID, &c.TaskID, &c.TaskTitle, &c.CompletedBy, &c.TokensAwarded, &rotating, &c.CompletedAt)
	if err != nil {
		return nil, err
	}
	c.Rotating = rotating != 0
	return &c, nil
}

const completionCols = `id, household_id, task_id, task_title, completed_by, tokens_awarded, rotating, completed_at`

func (s *TaskStore) CreateCompletion(ctx context.Context, c model.TaskCompletion) (*model.TaskCompletion, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO task_completions (household_id, task_id, task_title, completed_by, tokens_awarded, rotating, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.HouseholdID, c.TaskID, c.TaskTitle, c.CompletedBy, c.TokensAwarded, boolInt(c.Rotating), c.CompletedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+completionCols+` FROM task_completions WHERE id = ?`, id)
	return scanCompletion(row)
}

func (s *TaskStore) SetCompletionTokens(ctx context.Context, householdID, id int64, tokens int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE task_completions SET tokens_awarded = ? WHERE household_id = ? AND id = ?`,
		tokens, householdID, id,
	)
	if err != nil {
		return fmt.Errorf("set completion tokens: %w", err)
	}
	return nil
}

// ListCompletions returns the household's completion history, newest first.
func (s *TaskStore) ListCompletions(ctx context.Context, householdID int64) ([]model.TaskCompletion, error) {
	return s.queryCompletions(ctx,
		`SELECT `+completionCols+` FROM task_completions WHERE household_id = ? ORDER BY completed_at DESC, id DESC`,
		householdID,
	)
}

func (s *TaskStore) ListCompletionsByTask(ctx context.Context, householdID, taskID int64) ([]model.TaskCompletion, error) {
	return s.queryCompletions(ctx,
		`SELECT `+completionCols+` FROM task_completions WHERE household_id = ? AND task_id = ? ORDER BY completed_at DESC, id DESC`,
		householdID, taskID,
	)
}

// LastCompletionTimes maps task id to its most recent completion time.
func (s *TaskStore) LastCompletionTimes(ctx context.Context, householdID int64) (map[int64]time.Time, error) {
	completions, err := s.ListCompletions(ctx, householdID)
	if err != nil {
		return nil, err
	}
	last := make(map[int64]time.Time)
	for _, c := range completions {
		if _, ok := last[c.TaskID]; !ok {
			last[c.TaskID] = c.CompletedAt
		}
	}
	return last, nil
}

func (s *TaskStore) queryCompletions(ctx context.Context, query string, args ...any) ([]model.TaskCompletion, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var completions []model.TaskCompletion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}
