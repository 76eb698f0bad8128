package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/chorewheel/internal/auth"
	"github.com/dukerupert/chorewheel/internal/stats"
)

type StatsHandler struct {
	stats  *stats.Service
	logger *slog.Logger
}

func NewStatsHandler(s *stats.Service, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{stats: s, logger: logger}
}

func (h *StatsHandler) window(w http.ResponseWriter, r *http.Request) (stats.Window, bool) {
	win, err := stats.ParseWindow(r.URL.Query().Get("timeframe"))
	if err != nil {
		badRequest(w, err.Error())
		return "", false
	}
	return win, true
}

func (h *StatsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	win, ok := h.window(w, r)
	if !ok {
		return
	}

	board, err := h.stats.Leaderboard(r.Context(), auth.HouseholdID(r.Context()), win)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"timeframe": win, "entries": board})
}

func (h *StatsHandler) Member(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	win, ok := h.window(w, r)
	if !ok {
		return
	}

	st, err := h.stats.MemberStats(r.Context(), auth.HouseholdID(r.Context()), id, win)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *StatsHandler) Family(w http.ResponseWriter, r *http.Request) {
	win, ok := h.window(w, r)
	if !ok {
		return
	}

	st, err := h.stats.FamilyStats(r.Context(), auth.HouseholdID(r.Context()), win)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
