package handler

import (
	"net/http"

	"github.com/dukerupert/chorewheel/internal/auth"
)

type subtaskRequest struct {
	Title   string `json:"title"`
	ActorID int64  `json:"actor_id"`
}

func (h *TaskHandler) ListSubtasks(w http.ResponseWriter, r *http.Request) {
	taskID, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}

	subtasks, err := h.tasks.ListSubtasks(r.Context(), auth.HouseholdID(r.Context()), taskID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, subtasks)
}

func (h *TaskHandler) CreateSubtask(w http.ResponseWriter, r *http.Request) {
	taskID, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	var req subtaskRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	st, err := h.tasks.CreateSubtask(r.Context(), auth.HouseholdID(r.Context()), taskID, req.Title, req.ActorID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *TaskHandler) UpdateSubtask(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	var req subtaskRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	st, err := h.tasks.UpdateSubtask(r.Context(), auth.HouseholdID(r.Context()), id, req.Title, req.ActorID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *TaskHandler) DeleteSubtask(w http.ResponseWriter, r *http.Request) {
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

	if err := h.tasks.DeleteSubtask(r.Context(), auth.HouseholdID(r.Context()), id, actorID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *TaskHandler) CompleteSubtask(w http.ResponseWriter, r *http.Request) {
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

	st, err := h.tasks.CompleteSubtask(r.Context(), auth.HouseholdID(r.Context()), id, actorID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *TaskHandler) ReorderSubtasks(w http.ResponseWriter, r *http.Request) {
	taskID, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	var req struct {
		IDs     []int64 `json:"ids"`
		ActorID int64   `json:"actor_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	subtasks, err := h.tasks.ReorderSubtasks(r.Context(), auth.HouseholdID(r.Context()), taskID, req.IDs, req.ActorID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, subtasks)
}
