package task

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukerupert/chorewheel/internal/apperr"
	"github.com/dukerupert/chorewheel/internal/model"
)

func (s *Service) ListSubtasks(ctx context.Context, householdID, taskID int64) ([]model.Subtask, error) {
	if _, err := s.load(ctx, householdID, taskID); err != nil {
		return nil, err
	}
	subtasks, err := s.subtasks.ListByTask(ctx, householdID, taskID)
	if err != nil {
		return nil, err
	}
	if subtasks == nil {
		subtasks = []model.Subtask{}
	}
	return subtasks, nil
}

// CreateSubtask appends a subtask to the end of the task's list.
func (s *Service) CreateSubtask(ctx context.Context, householdID, taskID int64, title string, actorID int64) (*model.Subtask, error) {
	title = strings.TrimSpace(title)
	var v apperr.Validation
	if title == "" {
		v.Add("title", "is required")
	}
	if actorID <= 0 {
		v.Add("actor_id", "is required")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	t, err := s.load(ctx, householdID, taskID)
	if err != nil {
		return nil, err
	}

	st, err := s.subtasks.Create(ctx, householdID, taskID, title, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.recordSubtask(ctx, model.ActionSubtaskCreated, st, t.Title, actorID); err != nil {
		return nil, partial("create subtask", err, "subtask created")
	}
	return st, nil
}

func (s *Service) UpdateSubtask(ctx context.Context, householdID, id int64, title string, actorID int64) (*model.Subtask, error) {
	title = strings.TrimSpace(title)
	var v apperr.Validation
	if title == "" {
		v.Add("title", "is required")
	}
	if actorID <= 0 {
		v.Add("actor_id", "is required")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	st, err := s.loadSubtask(ctx, householdID, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.subtasks.UpdateTitle(ctx, householdID, id, title)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.NotFound("subtask")
	}
	if err := s.recordSubtask(ctx, model.ActionSubtaskEdited, updated, s.taskTitle(ctx, householdID, st.TaskID), actorID); err != nil {
		return nil, partial("update subtask", err, "subtask updated")
	}
	return updated, nil
}

func (s *Service) DeleteSubtask(ctx context.Context, householdID, id, actorID int64) error {
	if actorID <= 0 {
		return apperr.Invalid("actor_id", "is required")
	}
	st, err := s.loadSubtask(ctx, householdID, id)
	if err != nil {
		return err
	}
	if err := s.subtasks.Delete(ctx, householdID, id); err != nil {
		return err
	}
	if err := s.recordSubtask(ctx, model.ActionSubtaskDeleted, st, s.taskTitle(ctx, householdID, st.TaskID), actorID); err != nil {
		return partial("delete subtask", err, "subtask deleted")
	}
	return nil
}

// CompleteSubtask marks a subtask done. Completing one that is already done
// returns it unchanged and records nothing. Subtasks never earn tokens.
func (s *Service) CompleteSubtask(ctx context.Context, householdID, id, actorID int64) (*model.Subtask, error) {
	if actorID <= 0 {
		return nil, apperr.Invalid("completed_by", "is required")
	}
	if err := s.checkMembers(ctx, householdID, "completed_by", []int64{actorID}); err != nil {
		return nil, err
	}
	st, err := s.loadSubtask(ctx, householdID, id)
	if err != nil {
		return nil, err
	}
	if st.Completed {
		return st, nil
	}

	changed, err := s.subtasks.Complete(ctx, householdID, id, actorID, s.now())
	if err != nil {
		return nil, err
	}
	updated, err := s.loadSubtask(ctx, householdID, id)
	if err != nil {
		return nil, err
	}
	if !changed {
		return updated, nil
	}
	if err := s.recordSubtask(ctx, model.ActionSubtaskCompleted, updated, s.taskTitle(ctx, householdID, st.TaskID), actorID); err != nil {
		return nil, partial("complete subtask", err, "subtask completed")
	}
	return updated, nil
}

// ReorderSubtasks rewrites the order of a task's subtasks. ids must name
// every subtask of the task exactly once.
func (s *Service) ReorderSubtasks(ctx context.Context, householdID, taskID int64, ids []int64, actorID int64) ([]model.Subtask, error) {
	if actorID <= 0 {
		return nil, apperr.Invalid("actor_id", "is required")
	}
	t, err := s.load(ctx, householdID, taskID)
	if err != nil {
		return nil, err
	}
	current, err := s.subtasks.ListByTask(ctx, householdID, taskID)
	if err != nil {
		return nil, err
	}
	if err := sameSet(current, ids); err != nil {
		return nil, err
	}

	if err := s.subtasks.Reorder(ctx, householdID, taskID, ids); err != nil {
		return nil, err
	}
	if _, err := s.recorder.Record(ctx, model.ActivityEntry{
		HouseholdID: householdID,
		ActorID:     actorID,
		Action:      model.ActionSubtaskReordered,
		EntityType:  model.EntityTask,
		EntityID:    taskID,
		Metadata:    map[string]any{"title": t.Title, "order": ids},
	}); err != nil {
		return nil, partial("reorder subtasks", err, "subtasks reordered")
	}
	return s.subtasks.ListByTask(ctx, householdID, taskID)
}

func (s *Service) loadSubtask(ctx context.Context, householdID, id int64) (*model.Subtask, error) {
	st, err := s.subtasks.GetByID(ctx, householdID, id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, apperr.NotFound("subtask")
	}
	return st, nil
}

// taskTitle is used for activity metadata only, so lookup failures degrade
// to an empty title.
func (s *Service) taskTitle(ctx context.Context, householdID, taskID int64) string {
	t, err := s.tasks.GetByID(ctx, householdID, taskID)
	if err != nil || t == nil {
		return ""
	}
	return t.Title
}

func (s *Service) recordSubtask(ctx context.Context, action model.ActionType, st *model.Subtask, taskTitle string, actorID int64) error {
	_, err := s.recorder.Record(ctx, model.ActivityEntry{
		HouseholdID: st.HouseholdID,
		ActorID:     actorID,
		Action:      action,
		EntityType:  model.EntitySubtask,
		EntityID:    st.ID,
		Metadata:    map[string]any{"title": st.Title, "task_id": st.TaskID, "task_title": taskTitle},
	})
	return err
}

func sameSet(current []model.Subtask, ids []int64) error {
	if len(ids) != len(current) {
		return apperr.Invalid("ids", fmt.Sprintf("expected %d subtask ids, got %d", len(current), len(ids)))
	}
	known := make(map[int64]bool, len(current))
	for _, st := range current {
		known[st.ID] = false
	}
	for _, id := range ids {
		seen, ok := known[id]
		if !ok {
			return apperr.Invalid("ids", fmt.Sprintf("subtask %d does not belong to this task", id))
		}
		if seen {
			return apperr.Invalid("ids", fmt.Sprintf("subtask %d listed twice", id))
		}
		known[id] = true
	}
	return nil
}
