package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/chorewheel/internal/auth"
	"github.com/dukerupert/chorewheel/internal/model"
	"github.com/dukerupert/chorewheel/internal/task"
)

type TaskHandler struct {
	tasks  *task.Service
	logger *slog.Logger
}

func NewTaskHandler(ts *task.Service, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: ts, logger: logger}
}

// taskRequest serves both create and partial update. Absent fields decode
// to nil and are left unchanged on update.
type taskRequest struct {
	Title              *string           `json:"title"`
	Notes              *string           `json:"notes"`
	Recurrence         *model.Recurrence `json:"recurrence"`
	Frequency          *model.Frequency  `json:"frequency"`
	AssignedTo         *model.MemberIDs  `json:"assigned_to"`
	AssigneeIDs        *model.MemberIDs  `json:"assignee_ids"`
	DueDate            optionalTime      `json:"due_date"`
	TokenValue         *int              `json:"token_value"`
	RotationEnabled    *bool             `json:"rotation_enabled"`
	RotationExcludeIDs *model.MemberIDs  `json:"rotation_exclude_ids"`
	CreatedBy          int64             `json:"created_by"`
	ActorID            int64             `json:"actor_id"`
}

// assignees merges the legacy assigned_to field into assignee_ids. Nil
// means neither was sent.
func (req taskRequest) assignees() *model.MemberIDs {
	if req.AssigneeIDs == nil && req.AssignedTo == nil {
		return nil
	}
	var ids []int64
	if req.AssigneeIDs != nil {
		ids = append(ids, *req.AssigneeIDs...)
	}
	if req.AssignedTo != nil {
		ids = append(ids, *req.AssignedTo...)
	}
	merged := model.NormalizeMemberIDs(ids)
	return &merged
}

func (req taskRequest) createInput() task.CreateInput {
	in := task.CreateInput{
		DueDate:   req.DueDate.t,
		CreatedBy: req.CreatedBy,
	}
	if in.CreatedBy == 0 {
		in.CreatedBy = req.ActorID
	}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.Notes != nil {
		in.Notes = *req.Notes
	}
	if req.Recurrence != nil {
		in.Recurrence = *req.Recurrence
	}
	if req.Frequency != nil {
		in.Frequency = *req.Frequency
	}
	if ids := req.assignees(); ids != nil {
		in.AssigneeIDs = *ids
	}
	if req.TokenValue != nil {
		in.TokenValue = *req.TokenValue
	}
	if req.RotationEnabled != nil {
		in.RotationEnabled = *req.RotationEnabled
	}
	if req.RotationExcludeIDs != nil {
		in.RotationExcludeIDs = *req.RotationExcludeIDs
	}
	return in
}

func (req taskRequest) patch() task.Patch {
	return task.Patch{
		Title:              req.Title,
		Notes:              req.Notes,
		Recurrence:         req.Recurrence,
		Frequency:          req.Frequency,
		AssigneeIDs:        req.assignees(),
		DueDate:            req.DueDate.t,
		ClearDueDate:       req.DueDate.present && req.DueDate.t == nil,
		TokenValue:         req.TokenValue,
		RotationEnabled:    req.RotationEnabled,
		RotationExcludeIDs: req.RotationExcludeIDs,
	}
}

// actorRequest is the body of the action endpoints. completed_by is
// accepted as an alias of actor_id.
type actorRequest struct {
	ActorID     int64 `json:"actor_id"`
	CompletedBy int64 `json:"completed_by"`
}

func (req actorRequest) actor() int64 {
	if req.CompletedBy > 0 {
		return req.CompletedBy
	}
	return req.ActorID
}

// readActor takes the actor from the JSON body, falling back to the
// actor_id query parameter for bodiless requests such as DELETE.
func readActor(r *http.Request) (int64, error) {
	var req actorRequest
	if err := decodeJSON(r, &req); err != nil {
		return 0, err
	}
	if id := req.actor(); id > 0 {
		return id, nil
	}
	return queryID(r, "actor_id")
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	assignee, err := queryID(r, "assignee")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	tasks, err := h.tasks.List(r.Context(), auth.HouseholdID(r.Context()), task.ListFilter{AssigneeID: assignee})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}

	t, err := h.tasks.Get(r.Context(), auth.HouseholdID(r.Context()), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	t, err := h.tasks.Create(r.Context(), auth.HouseholdID(r.Context()), req.createInput())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	t, err := h.tasks.Update(r.Context(), auth.HouseholdID(r.Context()), id, req.ActorID, req.patch())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	actorID, err := readActor(r)
	if err != nil {
		badRequest(w, "invalid actor")
		return
	}

	if err := h.tasks.Delete(r.Context(), auth.HouseholdID(r.Context()), id, actorID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	actorID, err := readActor(r)
	if err != nil {
		badRequest(w, "invalid actor")
		return
	}

	res, err := h.tasks.Complete(r.Context(), auth.HouseholdID(r.Context()), id, actorID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *TaskHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	actorID, err := readActor(r)
	if err != nil {
		badRequest(w, "invalid actor")
		return
	}

	t, err := h.tasks.Reopen(r.Context(), auth.HouseholdID(r.Context()), id, actorID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Rotate skips the current turn without completing the task.
func (h *TaskHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	actorID, err := readActor(r)
	if err != nil {
		badRequest(w, "invalid actor")
		return
	}

	res, err := h.tasks.AdvanceRotation(r.Context(), auth.HouseholdID(r.Context()), id, actorID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *TaskHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	n, err := queryInt(r, "n", 0)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	p, err := h.tasks.PreviewRotation(r.Context(), auth.HouseholdID(r.Context()), id, n)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *TaskHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}

	history, err := h.tasks.History(r.Context(), auth.HouseholdID(r.Context()), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
