package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/chorewheel/internal/model"
)

type SubtaskStore struct {
	db *sql.DB
}

func NewSubtaskStore(db *sql.DB) *SubtaskStore {
	return &SubtaskStore{db: db}
}

func scanSubtask(s scanner) (*model.Subtask, error) {
	var st model.Subtask
	var completed int
	var completedBy sql.NullInt64
	var completedAt sql.NullTime

	err := s.Scan(&st.ID, &st.HouseholdID, &st.TaskID, &st.Title, &completed, &completedBy, &completedAt, &st.OrderIndex, &st.CreatedAt)
	if err != nil {
		return nil, err
	}
	st.Completed = completed != 0
	st.CompletedBy = int64Ptr(completedBy)
	st.CompletedAt = timePtr(completedAt)
	return &st, nil
}

const subtaskCols = `id, household_id, task_id, title, completed, completed_by, completed_at, order_index, created_at`

// Create appends a subtask at order_index max+1.
func (s *SubtaskStore) Create(ctx context.Context, householdID, taskID int64, title string, at time.Time) (*model.Subtask, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var maxOrder int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(order_index), -1) FROM subtasks WHERE household_id = ? AND task_id = ?`,
		householdID, taskID,
	).Scan(&maxOrder)
	if err != nil {
		return nil, fmt.Errorf("query max order_index: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO subtasks (household_id, task_id, title, order_index, created_at) VALUES (?, ?, ?, ?, ?)`,
		householdID, taskID, title, maxOrder+1, at.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert subtask: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(ctx, householdID, id)
}

func (s *SubtaskStore) GetByID(ctx context.Context, householdID, id int64) (*model.Subtask, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+subtaskCols+` FROM subtasks WHERE household_id = ? AND id = ?`, householdID, id)
	st, err := scanSubtask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subtask: %w", err)
	}
	return st, nil
}

func (s *SubtaskStore) ListByTask(ctx context.Context, householdID, taskID int64) ([]model.Subtask, error) {
	return s.query(ctx,
		`SELECT `+subtaskCols+` FROM subtasks WHERE household_id = ? AND task_id = ? ORDER BY order_index ASC`,
		householdID, taskID,
	)
}

// ListByHousehold groups every subtask of the household by parent task id.
// The map is a read view over the subtasks table, rebuilt on each call.
func (s *SubtaskStore) ListByHousehold(ctx context.Context, householdID int64) (map[int64][]model.Subtask, error) {
	subtasks, err := s.query(ctx,
		`SELECT `+subtaskCols+` FROM subtasks WHERE household_id = ? ORDER BY task_id ASC, order_index ASC`,
		householdID,
	)
	if err != nil {
		return nil, err
	}
	byTask := make(map[int64][]model.Subtask)
	for _, st := range subtasks {
		byTask[st.TaskID] = append(byTask[st.TaskID], st)
	}
	return byTask, nil
}

func (s *SubtaskStore) UpdateTitle(ctx context.Context, householdID, id int64, title string) (*model.Subtask, error) {
	_, err := s.db.ExecContext(ctx, `UPDATE subtasks SET title = ? WHERE household_id = ? AND id = ?`, title, householdID, id)
	if err != nil {
		return nil, fmt.Errorf("update subtask: %w", err)
	}
	return s.GetByID(ctx, householdID, id)
}

// Complete marks an open subtask done and reports whether it changed.
func (s *SubtaskStore) Complete(ctx context.Context, householdID, id, completedBy int64, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE subtasks SET completed = 1, completed_by = ?, completed_at = ?
		 WHERE household_id = ? AND id = ? AND completed = 0`,
		completedBy, at.UTC(), householdID, id,
	)
	if err != nil {
		return false, fmt.Errorf("complete subtask: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// Delete removes a subtask and closes the gap it leaves in order_index.
func (s *SubtaskStore) Delete(ctx context.Context, householdID, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var taskID int64
	var order int
	err = tx.QueryRowContext(ctx,
		`SELECT task_id, order_index FROM subtasks WHERE household_id = ? AND id = ?`,
		householdID, id,
	).Scan(&taskID, &order)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get subtask: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM subtasks WHERE household_id = ? AND id = ?`, householdID, id); err != nil {
		return fmt.Errorf("delete subtask: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE subtasks SET order_index = order_index - 1 WHERE household_id = ? AND task_id = ? AND order_index > ?`,
		householdID, taskID, order,
	); err != nil {
		return fmt.Errorf("compact order_index: %w", err)
	}
	return tx.Commit()
}

// Reorder assigns order_index 0..n-1 following ids.
func (s *SubtaskStore) Reorder(ctx context.Context, householdID, taskID int64, ids []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE subtasks SET order_index = ? WHERE household_id = ? AND task_id = ? AND id = ?`)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		if _, err := stmt.ExecContext(ctx, i, householdID, taskID, id); err != nil {
			return fmt.Errorf("update order_index for id %d: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *SubtaskStore) query(ctx context.Context, query string, args ...any) ([]model.Subtask, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subtasks: %w", err)
	}
	defer rows.Close()

	var subtasks []model.Subtask
	for rows.Next() {
		st, err := scanSubtask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subtask: %w", err)
		}
		subtasks = append(subtasks, *st)
	}
	return subtasks, rows.Err()
}
