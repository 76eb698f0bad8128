// Package task runs the task lifecycle: create, update, delete and the
// completion transition with its rotation, subtask cascade and token award.
package task

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/chorewheel/internal/apperr"
	"github.com/dukerupert/chorewheel/internal/metrics"
	"github.com/dukerupert/chorewheel/internal/model"
	"github.com/dukerupert/chorewheel/internal/rotation"
)

const (
	DefaultPreview = 5
	MaxPreview     = 20
)

type TaskStore interface {
	Create(ctx context.Context, t *model.Task) (*model.Task, error)
	GetByID(ctx context.Context, householdID, id int64) (*model.Task, error)
	List(ctx context.Context, householdID int64) ([]model.Task, error)
	Update(ctx context.Context, t *model.Task) (*model.Task, error)
	Delete(ctx context.Context, householdID, id int64) error
	MarkCompleted(ctx context.Context, householdID, id, completedBy int64, at time.Time) (bool, error)
	Reopen(ctx context.Context, householdID, id int64, at time.Time) (bool, error)
	AdvanceRotation(ctx context.Context, householdID, id int64, expected, next int, at time.Time) (bool, error)
	CreateCompletion(ctx context.Context, c model.TaskCompletion) (*model.TaskCompletion, error)
	SetCompletionTokens(ctx context.Context, householdID, id int64, tokens int) error
	ListCompletionsByTask(ctx context.Context, householdID, taskID int64) ([]model.TaskCompletion, error)
	LastCompletionTimes(ctx context.Context, householdID int64) (map[int64]time.Time, error)
}

type SubtaskStore interface {
	Create(ctx context.Context, householdID, taskID int64, title string, at time.Time) (*model.Subtask, error)
	GetByID(ctx context.Context, householdID, id int64) (*model.Subtask, error)
	ListByTask(ctx context.Context, householdID, taskID int64) ([]model.Subtask, error)
	ListByHousehold(ctx context.Context, householdID int64) (map[int64][]model.Subtask, error)
	UpdateTitle(ctx context.Context, householdID, id int64, title string) (*model.Subtask, error)
	Complete(ctx context.Context, householdID, id, completedBy int64, at time.Time) (bool, error)
	Delete(ctx context.Context, householdID, id int64) error
	Reorder(ctx context.Context, householdID, taskID int64, ids []int64) error
}

type MemberStore interface {
	Missing(ctx context.Context, householdID int64, ids []int64) ([]int64, error)
}

type Ledger interface {
	Award(ctx context.Context, householdID, memberID int64, amount int, reason string, link *model.TokenLink) (*model.TokenEntry, error)
}

type Recorder interface {
	Record(ctx context.Context, e model.ActivityEntry) (*model.ActivityEntry, error)
}

type Service struct {
	tasks    TaskStore
	subtasks SubtaskStore
	members  MemberStore
	ledger   Ledger
	recorder Recorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(tasks TaskStore, subtasks SubtaskStore, members MemberStore, ledger Ledger, recorder Recorder, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		tasks:    tasks,
		subtasks: subtasks,
		members:  members,
		ledger:   ledger,
		recorder: recorder,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// View is a task as presented to clients: the stored row plus derived
// status, the member whose turn it is, and its subtasks in order.
type View struct {
	model.Task
	Status          Status          `json:"status"`
	CurrentAssignee *int64          `json:"current_assignee"`
	LastCompletedAt *time.Time      `json:"last_completed_at"`
	Subtasks        []model.Subtask `json:"subtasks"`
}

type CreateInput struct {
	Title              string
	Notes              string
	Recurrence         model.Recurrence
	Frequency          model.Frequency
	AssigneeIDs        model.MemberIDs
	DueDate            *time.Time
	TokenValue         int
	RotationEnabled    bool
	RotationExcludeIDs model.MemberIDs
	CreatedBy          int64
}

// Patch carries a partial update. Nil fields are left unchanged.
type Patch struct {
	Title              *string
	Notes              *string
	Recurrence         *model.Recurrence
	Frequency          *model.Frequency
	AssigneeIDs        *model.MemberIDs
	DueDate            *time.Time
	ClearDueDate       bool
	TokenValue         *int
	RotationEnabled    *bool
	RotationExcludeIDs *model.MemberIDs
}

type ListFilter struct {
	AssigneeID int64
}

// CompleteResult describes what a completion did.
type CompleteResult struct {
	Task              *View                 `json:"task"`
	Completion        *model.TaskCompletion `json:"completion,omitempty"`
	TokensAwarded     int                   `json:"tokens_awarded"`
	Rotated           bool                  `json:"rotated"`
	PreviousAssignee  *int64                `json:"previous_assignee,omitempty"`
	NextAssignee      *int64                `json:"next_assignee,omitempty"`
	RotationFrozen    bool                  `json:"rotation_frozen"`
	SubtasksCompleted []int64               `json:"subtasks_completed"`
	AlreadyCompleted  bool                  `json:"already_completed"`
}

// RotateResult describes a skip-turn advance.
type RotateResult struct {
	Task             *View  `json:"task"`
	Rotated          bool   `json:"rotated"`
	PreviousAssignee *int64 `json:"previous_assignee,omitempty"`
	NextAssignee     *int64 `json:"next_assignee,omitempty"`
}

type Preview struct {
	TaskID   int64   `json:"task_id"`
	Current  *int64  `json:"current"`
	Upcoming []int64 `json:"upcoming"`
	Frozen   bool    `json:"frozen"`
}

// --- Reads ---

func (s *Service) Get(ctx context.Context, householdID, id int64) (*View, error) {
	t, err := s.load(ctx, householdID, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, t)
}

// List returns every task with derived fields. When filter.AssigneeID is set
// rotating tasks match only on the member whose turn it is.
func (s *Service) List(ctx context.Context, householdID int64, filter ListFilter) ([]View, error) {
	tasks, err := s.tasks.List(ctx, householdID)
	if err != nil {
		return nil, err
	}
	subtasks, err := s.subtasks.ListByHousehold(ctx, householdID)
	if err != nil {
		return nil, err
	}
	last, err := s.tasks.LastCompletionTimes(ctx, householdID)
	if err != nil {
		return nil, err
	}

	today := s.now()
	views := make([]View, 0, len(tasks))
	for _, t := range tasks {
		v := buildView(t, subtasks[t.ID], lastPtr(last, t.ID), today)
		if filter.AssigneeID > 0 && !matchesAssignee(v, filter.AssigneeID) {
			continue
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *Service) History(ctx context.Context, householdID, id int64) ([]model.TaskCompletion, error) {
	if _, err := s.load(ctx, householdID, id); err != nil {
		return nil, err
	}
	history, err := s.tasks.ListCompletionsByTask(ctx, householdID, id)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []model.TaskCompletion{}
	}
	return history, nil
}

// --- Writes ---

func (s *Service) Create(ctx context.Context, householdID int64, in CreateInput) (*View, error) {
	now := s.now()
	t := &model.Task{
		HouseholdID:        householdID,
		Title:              strings.TrimSpace(in.Title),
		Notes:              strings.TrimSpace(in.Notes),
		Recurrence:         in.Recurrence,
		Frequency:          in.Frequency,
		AssigneeIDs:        model.NormalizeMemberIDs(in.AssigneeIDs),
		DueDate:            in.DueDate,
		TokenValue:         in.TokenValue,
		RotationEnabled:    in.RotationEnabled,
		RotationExcludeIDs: model.NormalizeMemberIDs(in.RotationExcludeIDs),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if t.Recurrence == "" {
		t.Recurrence = model.RecurrenceOnce
	}
	if in.CreatedBy > 0 {
		createdBy := in.CreatedBy
		t.CreatedBy = &createdBy
	}

	normalizeTask(t)

	var v apperr.Validation
	if in.CreatedBy <= 0 {
		v.Add("created_by", "is required")
	}
	validateTask(&v, t)
	if err := v.Err(); err != nil {
		return nil, err
	}
	if err := s.checkMembers(ctx, householdID, "assignee_ids", t.AssigneeIDs); err != nil {
		return nil, err
	}
	if err := s.checkMembers(ctx, householdID, "created_by", []int64{in.CreatedBy}); err != nil {
		return nil, err
	}
	t.RotationIndex = rotation.Normalize(t.AssigneeIDs, 0, t.RotationExcludeIDs)

	created, err := s.tasks.Create(ctx, t)
	if err != nil {
		return nil, err
	}

	if _, err := s.recorder.Record(ctx, model.ActivityEntry{
		HouseholdID: householdID,
		ActorID:     in.CreatedBy,
		Action:      model.ActionTaskCreated,
		EntityType:  model.EntityTask,
		EntityID:    created.ID,
		Metadata:    map[string]any{"title": created.Title},
	}); err != nil {
		return nil, partial("create task", err, "task created")
	}

	s.logger.Info("task created", "household_id", householdID, "task_id", created.ID, "recurrence", created.Recurrence)
	return s.view(ctx, created)
}

// Update applies p. A change to assignees, exclusions or the rotation flag
// re-resolves rotation_index so it points at an eligible member.
func (s *Service) Update(ctx context.Context, householdID, id, actorID int64, p Patch) (*View, error) {
	if actorID <= 0 {
		return nil, apperr.Invalid("actor_id", "is required")
	}
	t, err := s.load(ctx, householdID, id)
	if err != nil {
		return nil, err
	}

	var changed []string
	rotationTouched := false
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
		changed = append(changed, "title")
	}
	if p.Notes != nil {
		t.Notes = strings.TrimSpace(*p.Notes)
		changed = append(changed, "notes")
	}
	if p.Recurrence != nil {
		t.Recurrence = *p.Recurrence
		changed = append(changed, "recurrence")
		rotationTouched = true
	}
	if p.Frequency != nil {
		t.Frequency = *p.Frequency
		changed = append(changed, "frequency")
	}
	if p.AssigneeIDs != nil {
		t.AssigneeIDs = model.NormalizeMemberIDs(*p.AssigneeIDs)
		changed = append(changed, "assignee_ids")
		rotationTouched = true
	}
	if p.ClearDueDate {
		t.DueDate = nil
		changed = append(changed, "due_date")
	} else if p.DueDate != nil {
		t.DueDate = p.DueDate
		changed = append(changed, "due_date")
	}
	if p.TokenValue != nil {
		t.TokenValue = *p.TokenValue
		changed = append(changed, "token_value")
	}
	if p.RotationEnabled != nil {
		t.RotationEnabled = *p.RotationEnabled
		changed = append(changed, "rotation_enabled")
		rotationTouched = true
	}
	if p.RotationExcludeIDs != nil {
		t.RotationExcludeIDs = model.NormalizeMemberIDs(*p.RotationExcludeIDs)
		changed = append(changed, "rotation_exclude_ids")
		rotationTouched = true
	}
	if len(changed) == 0 {
		return s.view(ctx, t)
	}

	normalizeTask(t)

	var v apperr.Validation
	validateTask(&v, t)
	if err := v.Err(); err != nil {
		return nil, err
	}
	if p.AssigneeIDs != nil {
		if err := s.checkMembers(ctx, householdID, "assignee_ids", t.AssigneeIDs); err != nil {
			return nil, err
		}
	}
	if rotationTouched {
		t.RotationIndex = rotation.Normalize(t.AssigneeIDs, t.RotationIndex, t.RotationExcludeIDs)
	}
	t.UpdatedAt = s.now()

	updated, err := s.tasks.Update(ctx, t)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.NotFound("task")
	}

	if _, err := s.recorder.Record(ctx, model.ActivityEntry{
		HouseholdID: householdID,
		ActorID:     actorID,
		Action:      model.ActionTaskEdited,
		EntityType:  model.EntityTask,
		EntityID:    id,
		Metadata:    map[string]any{"title": updated.Title, "changed": changed},
	}); err != nil {
		return nil, partial("update task", err, "task updated")
	}
	return s.view(ctx, updated)
}

// Delete removes the task and its subtasks. Completion history, ledger
// entries and activity entries that mention it are kept.
func (s *Service) Delete(ctx context.Context, householdID, id, actorID int64) error {
	if actorID <= 0 {
		return apperr.Invalid("actor_id", "is required")
	}
	t, err := s.load(ctx, householdID, id)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, householdID, id); err != nil {
		return err
	}

	if _, err := s.recorder.Record(ctx, model.ActivityEntry{
		HouseholdID: householdID,
		ActorID:     actorID,
		Action:      model.ActionTaskDeleted,
		EntityType:  model.EntityTask,
		EntityID:    id,
		Metadata:    map[string]any{"title": t.Title},
	}); err != nil {
		return partial("delete task", err, "task deleted")
	}
	s.logger.Info("task deleted", "household_id", householdID, "task_id", id)
	return nil
}

// Complete runs one completion cycle. Open subtasks are completed first.
// A rotating task then passes the turn to the next eligible assignee and
// stays open; any other task is closed. In both cases the completing member
// is credited the task's token value and a history row is written.
//
// Once a durable write has happened, later failures come back as
// *apperr.PartialFailureError listing the steps that did apply.
func (s *Service) Complete(ctx context.Context, householdID, id, actorID int64) (*CompleteResult, error) {
	if actorID <= 0 {
		return nil, apperr.Invalid("completed_by", "is required")
	}
	if err := s.checkMembers(ctx, householdID, "completed_by", []int64{actorID}); err != nil {
		return nil, err
	}
	t, err := s.load(ctx, householdID, id)
	if err != nil {
		return nil, err
	}

	rotating := t.Rotates()
	if !rotating && t.Completed {
		fresh, err := s.staleRepeatingCompletion(ctx, t)
		if err != nil {
			return nil, err
		}
		if !fresh {
			v, err := s.view(ctx, t)
			if err != nil {
				return nil, err
			}
			return &CompleteResult{Task: v, AlreadyCompleted: true, SubtasksCompleted: []int64{}}, nil
		}
	}

	now := s.now()
	result := &CompleteResult{SubtasksCompleted: []int64{}}
	var done []string
	fail := func(err error) (*CompleteResult, error) {
		if len(done) == 0 {
			return nil, err
		}
		return nil, partial("complete task", err, done...)
	}

	// Subtask cascade.
	subtasks, err := s.subtasks.ListByTask(ctx, householdID, id)
	if err != nil {
		return nil, err
	}
	for _, st := range subtasks {
		if st.Completed {
			continue
		}
		ok, err := s.subtasks.Complete(ctx, householdID, st.ID, actorID, now)
		if err != nil {
			return fail(err)
		}
		if !ok {
			continue
		}
		done = append(done, fmt.Sprintf("subtask %d completed", st.ID))
		result.SubtasksCompleted = append(result.SubtasksCompleted, st.ID)
		if _, err := s.recorder.Record(ctx, model.ActivityEntry{
			HouseholdID: householdID,
			ActorID:     actorID,
			Action:      model.ActionSubtaskCompleted,
			EntityType:  model.EntitySubtask,
			EntityID:    st.ID,
			Metadata:    map[string]any{"title": st.Title, "task_id": id, "task_title": t.Title, "cascade": true},
		}); err != nil {
			return fail(err)
		}
	}

	// Task state transition.
	prevIndex := t.RotationIndex
	nextIndex := prevIndex
	if rotating {
		nextIndex, _ = rotation.Next(t.AssigneeIDs, prevIndex, t.RotationExcludeIDs)
		result.RotationFrozen = rotation.Frozen(t.AssigneeIDs, t.RotationExcludeIDs)
		if nextIndex != prevIndex {
			ok, err := s.tasks.AdvanceRotation(ctx, householdID, id, prevIndex, nextIndex, now)
			if err != nil {
				return fail(err)
			}
			if !ok {
				return fail(apperr.Transition(fmt.Sprintf("rotation index %d", prevIndex), "already advanced"))
			}
			done = append(done, "rotation advanced")
			result.Rotated = true
		}
		if prev, ok := rotation.Current(t.AssigneeIDs, prevIndex); ok {
			result.PreviousAssignee = &prev
		}
		if next, ok := rotation.Current(t.AssigneeIDs, nextIndex); ok {
			result.NextAssignee = &next
		}
	} else {
		ok, err := s.tasks.MarkCompleted(ctx, householdID, id, actorID, now)
		if err != nil {
			return fail(err)
		}
		if !ok {
			if len(done) == 0 {
				v, err := s.Get(ctx, householdID, id)
				if err != nil {
					return nil, err
				}
				return &CompleteResult{Task: v, AlreadyCompleted: true, SubtasksCompleted: []int64{}}, nil
			}
			return fail(apperr.Transition("completed", "completed"))
		}
		done = append(done, "task completed")
	}

	// History row, then the award linked to it.
	completion, err := s.tasks.CreateCompletion(ctx, model.TaskCompletion{
		HouseholdID:   householdID,
		TaskID:        id,
		TaskTitle:     t.Title,
		CompletedBy:   actorID,
		TokensAwarded: t.TokenValue,
		Rotating:      rotating,
		CompletedAt:   now,
	})
	if err != nil {
		return fail(err)
	}
	done = append(done, "completion recorded")
	result.Completion = completion

	if t.TokenValue > 0 {
		link := &model.TokenLink{Type: model.TokenLinkTaskCompletion, ID: completion.ID}
		if _, err := s.ledger.Award(ctx, householdID, actorID, t.TokenValue, "Completed: "+t.Title, link); err != nil {
			if zeroErr := s.tasks.SetCompletionTokens(ctx, householdID, completion.ID, 0); zeroErr != nil {
				s.logger.Error("reset completion tokens", "completion_id", completion.ID, "error", zeroErr)
			} else {
				completion.TokensAwarded = 0
			}
			return fail(err)
		}
		done = append(done, fmt.Sprintf("%d tokens awarded", t.TokenValue))
		result.TokensAwarded = t.TokenValue
		s.metrics.TokensAwarded(t.TokenValue)
	}

	// Activity.
	completedMeta := map[string]any{
		"title":         t.Title,
		"tokens":        result.TokensAwarded,
		"rotating":      rotating,
		"completion_id": completion.ID,
	}
	if len(result.SubtasksCompleted) > 0 {
		completedMeta["subtasks_completed"] = len(result.SubtasksCompleted)
	}
	if _, err := s.recorder.Record(ctx, model.ActivityEntry{
		HouseholdID: householdID,
		ActorID:     actorID,
		Action:      model.ActionTaskCompleted,
		EntityType:  model.EntityTask,
		EntityID:    id,
		Metadata:    completedMeta,
	}); err != nil {
		return fail(err)
	}

	if result.Rotated {
		meta := rotationMetadata(t.Title, result.PreviousAssignee, result.NextAssignee, prevIndex, nextIndex)
		meta["reason"] = "completed"
		if _, err := s.recorder.Record(ctx, model.ActivityEntry{
			HouseholdID: householdID,
			ActorID:     actorID,
			Action:      model.ActionTaskRotated,
			EntityType:  model.EntityTask,
			EntityID:    id,
			Metadata:    meta,
		}); err != nil {
			return fail(err)
		}
		s.metrics.TaskRotated()
	}
	if result.RotationFrozen {
		s.logger.Warn("rotation frozen, no eligible assignee", "household_id", householdID, "task_id", id)
	}

	if rotating {
		s.metrics.TaskCompleted(metrics.PathRotating)
	} else {
		s.metrics.TaskCompleted(metrics.PathSingle)
	}
	s.logger.Info("task completed",
		"household_id", householdID, "task_id", id, "completed_by", actorID,
		"rotating", rotating, "rotated", result.Rotated, "tokens", result.TokensAwarded)

	v, err := s.Get(ctx, householdID, id)
	if err != nil {
		return fail(err)
	}
	result.Task = v
	return result, nil
}

// Reopen clears the completed flag of a closed task. Tokens already awarded
// stay in the ledger.
func (s *Service) Reopen(ctx context.Context, householdID, id, actorID int64) (*View, error) {
	if actorID <= 0 {
		return nil, apperr.Invalid("actor_id", "is required")
	}
	t, err := s.load(ctx, householdID, id)
	if err != nil {
		return nil, err
	}
	if !t.Completed {
		return nil, apperr.Transition("open", "open")
	}
	ok, err := s.tasks.Reopen(ctx, householdID, id, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Transition("open", "open")
	}

	if _, err := s.recorder.Record(ctx, model.ActivityEntry{
		HouseholdID: householdID,
		ActorID:     actorID,
		Action:      model.ActionTaskReopened,
		EntityType:  model.EntityTask,
		EntityID:    id,
		Metadata:    map[string]any{"title": t.Title},
	}); err != nil {
		return nil, partial("reopen task", err, "task reopened")
	}
	return s.Get(ctx, householdID, id)
}

// AdvanceRotation passes the turn without a completion: no tokens and no
// history row.
func (s *Service) AdvanceRotation(ctx context.Context, householdID, id, actorID int64) (*RotateResult, error) {
	if actorID <= 0 {
		return nil, apperr.Invalid("actor_id", "is required")
	}
	t, err := s.load(ctx, householdID, id)
	if err != nil {
		return nil, err
	}
	if !t.Rotates() {
		return nil, apperr.Invalid("rotation_enabled", "rotation is not enabled for this task")
	}
	if rotation.Frozen(t.AssigneeIDs, t.RotationExcludeIDs) {
		return nil, apperr.Invalid("rotation_exclude_ids", "no eligible assignee")
	}

	prevIndex := t.RotationIndex
	nextIndex, _ := rotation.Next(t.AssigneeIDs, prevIndex, t.RotationExcludeIDs)
	result := &RotateResult{}
	if prev, ok := rotation.Current(t.AssigneeIDs, prevIndex); ok {
		result.PreviousAssignee = &prev
	}
	if next, ok := rotation.Current(t.AssigneeIDs, nextIndex); ok {
		result.NextAssignee = &next
	}

	if nextIndex != prevIndex {
		ok, err := s.tasks.AdvanceRotation(ctx, householdID, id, prevIndex, nextIndex, s.now())
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Transition(fmt.Sprintf("rotation index %d", prevIndex), "already advanced")
		}
		result.Rotated = true

		meta := rotationMetadata(t.Title, result.PreviousAssignee, result.NextAssignee, prevIndex, nextIndex)
		meta["reason"] = "skipped"
		if _, err := s.recorder.Record(ctx, model.ActivityEntry{
			HouseholdID: householdID,
			ActorID:     actorID,
			Action:      model.ActionTaskRotated,
			EntityType:  model.EntityTask,
			EntityID:    id,
			Metadata:    meta,
		}); err != nil {
			return nil, partial("advance rotation", err, "rotation advanced")
		}
		s.metrics.TaskRotated()
	}

	v, err := s.Get(ctx, householdID, id)
	if err != nil {
		return nil, err
	}
	result.Task = v
	return result, nil
}

// PreviewRotation lists the next n members in turn order, starting with the
// current one. Nothing is written.
func (s *Service) PreviewRotation(ctx context.Context, householdID, id int64, n int) (*Preview, error) {
	if n == 0 {
		n = DefaultPreview
	}
	if n < 1 || n > MaxPreview {
		return nil, apperr.Invalid("n", fmt.Sprintf("must be between 1 and %d", MaxPreview))
	}
	t, err := s.load(ctx, householdID, id)
	if err != nil {
		return nil, err
	}
	if t.Recurrence != model.RecurrenceRepeating || !t.RotationEnabled {
		return nil, apperr.Invalid("rotation_enabled", "rotation is not enabled for this task")
	}

	p := &Preview{
		TaskID:   id,
		Upcoming: rotation.Preview(t.AssigneeIDs, t.RotationIndex, t.RotationExcludeIDs, n),
		Frozen:   rotation.Frozen(t.AssigneeIDs, t.RotationExcludeIDs),
	}
	if p.Upcoming == nil {
		p.Upcoming = []int64{}
	}
	if !p.Frozen {
		idx := rotation.Normalize(t.AssigneeIDs, t.RotationIndex, t.RotationExcludeIDs)
		if cur, ok := rotation.Current(t.AssigneeIDs, idx); ok {
			p.Current = &cur
		}
	}
	return p, nil
}

// --- helpers ---

func (s *Service) load(ctx context.Context, householdID, id int64) (*model.Task, error) {
	t, err := s.tasks.GetByID(ctx, householdID, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("task")
	}
	return t, nil
}

func (s *Service) view(ctx context.Context, t *model.Task) (*View, error) {
	subtasks, err := s.subtasks.ListByTask(ctx, t.HouseholdID, t.ID)
	if err != nil {
		return nil, err
	}
	history, err := s.tasks.ListCompletionsByTask(ctx, t.HouseholdID, t.ID)
	if err != nil {
		return nil, err
	}
	var last *time.Time
	if len(history) > 0 {
		at := history[0].CompletedAt
		last = &at
	}
	v := buildView(*t, subtasks, last, s.now())
	return &v, nil
}

// staleRepeatingCompletion reopens a repeating task whose completed flag was
// set in an earlier frequency period, so the new period can be completed.
// It reports whether the task is open again.
func (s *Service) staleRepeatingCompletion(ctx context.Context, t *model.Task) (bool, error) {
	if t.Recurrence != model.RecurrenceRepeating {
		return false, nil
	}
	history, err := s.tasks.ListCompletionsByTask(ctx, t.HouseholdID, t.ID)
	if err != nil {
		return false, err
	}
	var last *time.Time
	if len(history) > 0 {
		last = &history[0].CompletedAt
	}
	if ComputeStatus(*t, last, s.now()) == StatusCompleted {
		return false, nil
	}
	if _, err := s.tasks.Reopen(ctx, t.HouseholdID, t.ID, s.now()); err != nil {
		return false, err
	}
	t.Completed = false
	return true, nil
}

func (s *Service) checkMembers(ctx context.Context, householdID int64, field string, ids []int64) error {
	missing, err := s.members.Missing(ctx, householdID, ids)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return apperr.Invalid(field, fmt.Sprintf("unknown member id %d", missing[0]))
	}
	return nil
}

// normalizeTask drops fields that do not apply to the task's recurrence.
func normalizeTask(t *model.Task) {
	switch t.Recurrence {
	case model.RecurrenceRepeating:
		t.DueDate = nil
	case model.RecurrenceOnce:
		t.Frequency = ""
	}
}

func validateTask(v *apperr.Validation, t *model.Task) {
	if t.Title == "" {
		v.Add("title", "is required")
	}
	if len(t.AssigneeIDs) == 0 {
		v.Add("assignee_ids", "at least one assignee is required")
	}
	if t.TokenValue < 0 {
		v.Add("token_value", "must not be negative")
	}
	if !t.Recurrence.Valid() {
		v.Add("recurrence", "must be once or repeating")
		return
	}
	if t.Recurrence == model.RecurrenceRepeating {
		if !t.Frequency.Valid() {
			v.Add("frequency", "must be daily, weekly or monthly")
		}
	} else if t.RotationEnabled {
		v.Add("rotation_enabled", "only repeating tasks rotate")
	}
	for _, id := range t.RotationExcludeIDs {
		if !t.AssigneeIDs.Contains(id) {
			v.Add("rotation_exclude_ids", fmt.Sprintf("member %d is not an assignee", id))
			break
		}
	}
}

func buildView(t model.Task, subtasks []model.Subtask, last *time.Time, today time.Time) View {
	if subtasks == nil {
		subtasks = []model.Subtask{}
	}
	v := View{
		Task:            t,
		Status:          ComputeStatus(t, last, today),
		LastCompletedAt: last,
		Subtasks:        subtasks,
	}
	if t.Recurrence == model.RecurrenceRepeating && t.RotationEnabled {
		if !rotation.Frozen(t.AssigneeIDs, t.RotationExcludeIDs) {
			if cur, ok := rotation.Current(t.AssigneeIDs, t.RotationIndex); ok {
				v.CurrentAssignee = &cur
			}
		}
	} else if len(t.AssigneeIDs) > 0 {
		first := t.AssigneeIDs[0]
		v.CurrentAssignee = &first
	}
	return v
}

func matchesAssignee(v View, memberID int64) bool {
	if v.Rotates() {
		return v.CurrentAssignee != nil && *v.CurrentAssignee == memberID
	}
	return v.AssigneeIDs.Contains(memberID)
}

func lastPtr(m map[int64]time.Time, id int64) *time.Time {
	at, ok := m[id]
	if !ok {
		return nil
	}
	return &at
}

func rotationMetadata(title string, prev, next *int64, prevIndex, nextIndex int) map[string]any {
	meta := map[string]any{
		"title":          title,
		"previous_index": prevIndex,
		"next_index":     nextIndex,
	}
	if prev != nil {
		meta["previous_assignee_id"] = *prev
	}
	if next != nil {
		meta["next_assignee_id"] = *next
	}
	return meta
}

func partial(op string, err error, completed ...string) error {
	return &apperr.PartialFailureError{Op: op, Completed: completed, Err: err}
}
