package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/chorewheel/internal/apperr"
	"github.com/dukerupert/chorewheel/internal/auth"
	"github.com/dukerupert/chorewheel/internal/household"
	"github.com/dukerupert/chorewheel/internal/ledger"
	"github.com/dukerupert/chorewheel/internal/store"
)

type FamilyMemberHandler struct {
	households *household.Service
	members    *store.FamilyMemberStore
	ledger     *ledger.Ledger
	logger     *slog.Logger
}

func NewFamilyMemberHandler(hs *household.Service, ms *store.FamilyMemberStore, l *ledger.Ledger, logger *slog.Logger) *FamilyMemberHandler {
	return &FamilyMemberHandler{households: hs, members: ms, ledger: l, logger: logger}
}

func (h *FamilyMemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.households.ListMembers(r.Context(), auth.HouseholdID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *FamilyMemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Initials string `json:"initials"`
		Color    string `json:"color"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	member, err := h.households.CreateMember(r.Context(), auth.HouseholdID(r.Context()), req.Name, req.Initials, req.Color)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

// Tokens returns the member's derived balance, totals and recent entries.
func (h *FamilyMemberHandler) Tokens(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	recent, err := queryInt(r, "recent", 0)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	householdID := auth.HouseholdID(r.Context())
	member, err := h.members.GetByID(r.Context(), householdID, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if member == nil {
		writeError(w, r, h.logger, apperr.NotFound("member"))
		return
	}

	summary, err := h.ledger.Summary(r.Context(), householdID, id, recent)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
