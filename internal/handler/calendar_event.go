package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/chorewheel/internal/auth"
	"github.com/dukerupert/chorewheel/internal/calendar"
	"github.com/dukerupert/chorewheel/internal/model"
)

type CalendarEventHandler struct {
	events *calendar.Service
	logger *slog.Logger
}

func NewCalendarEventHandler(es *calendar.Service, logger *slog.Logger) *CalendarEventHandler {
	return &CalendarEventHandler{events: es, logger: logger}
}

type eventRequest struct {
	Title     *string          `json:"title"`
	StartsAt  optionalTime     `json:"starts_at"`
	EndsAt    optionalTime     `json:"ends_at"`
	AllDay    *bool            `json:"all_day"`
	MemberIDs *model.MemberIDs `json:"member_ids"`
	Notes     *string          `json:"notes"`
	ActorID   int64            `json:"actor_id"`
}

func (h *CalendarEventHandler) List(w http.ResponseWriter, r *http.Request) {
	var from, to time.Time
	if s := strings.TrimSpace(r.URL.Query().Get("from")); s != "" {
		t, err := parseTime(s)
		if err != nil {
			badRequest(w, "from "+err.Error())
			return
		}
		from = t
	}
	if s := strings.TrimSpace(r.URL.Query().Get("to")); s != "" {
		t, err := parseTime(s)
		if err != nil {
			badRequest(w, "to "+err.Error())
			return
		}
		to = t
	}

	events, err := h.events.List(r.Context(), auth.HouseholdID(r.Context()), from, to)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *CalendarEventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}

	e, err := h.events.Get(r.Context(), auth.HouseholdID(r.Context()), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *CalendarEventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	in := calendar.Input{EndsAt: req.EndsAt.t}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.StartsAt.t != nil {
		in.StartsAt = *req.StartsAt.t
	}
	if req.AllDay != nil {
		in.AllDay = *req.AllDay
	}
	if req.MemberIDs != nil {
		in.MemberIDs = *req.MemberIDs
	}
	if req.Notes != nil {
		in.Notes = *req.Notes
	}

	e, err := h.events.Create(r.Context(), auth.HouseholdID(r.Context()), req.ActorID, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *CalendarEventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	if req.StartsAt.present && req.StartsAt.t == nil {
		badRequest(w, "starts_at cannot be cleared")
		return
	}

	p := calendar.Patch{
		Title:       req.Title,
		StartsAt:    req.StartsAt.t,
		EndsAt:      req.EndsAt.t,
		ClearEndsAt: req.EndsAt.present && req.EndsAt.t == nil,
		AllDay:      req.AllDay,
		MemberIDs:   req.MemberIDs,
		Notes:       req.Notes,
	}
	e, err := h.events.Update(r.Context(), auth.HouseholdID(r.Context()), id, req.ActorID, p)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *CalendarEventHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.events.Delete(r.Context(), auth.HouseholdID(r.Context()), id, actorID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
