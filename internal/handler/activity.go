package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/chorewheel/internal/activity"
	"github.com/dukerupert/chorewheel/internal/auth"
)

type ActivityHandler struct {
	recorder *activity.Recorder
	logger   *slog.Logger
}

func NewActivityHandler(rec *activity.Recorder, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{recorder: rec, logger: logger}
}

// List returns the household feed, newest first.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", activity.DefaultLimit)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	entries, err := h.recorder.List(r.Context(), auth.HouseholdID(r.Context()), limit, offset)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
