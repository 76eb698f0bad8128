package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/chorewheel/internal/auth"
	"github.com/dukerupert/chorewheel/internal/model"
	"github.com/dukerupert/chorewheel/internal/reward"
	"github.com/dukerupert/chorewheel/internal/store"
)

type RewardHandler struct {
	rewards *reward.Service
	logger  *slog.Logger
}

func NewRewardHandler(rs *reward.Service, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{rewards: rs, logger: logger}
}

type rewardRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	TokenCost   *int    `json:"token_cost"`
	Active      *bool   `json:"active"`
	ActorID     int64   `json:"actor_id"`
}

func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.rewards.List(r.Context(), auth.HouseholdID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	in := reward.Input{Active: true}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.TokenCost != nil {
		in.TokenCost = *req.TokenCost
	}
	if req.Active != nil {
		in.Active = *req.Active
	}

	rw, err := h.rewards.Create(r.Context(), auth.HouseholdID(r.Context()), req.ActorID, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, rw)
}

func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	var req rewardRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	p := reward.Patch{
		Title:       req.Title,
		Description: req.Description,
		TokenCost:   req.TokenCost,
		Active:      req.Active,
	}
	rw, err := h.rewards.Update(r.Context(), auth.HouseholdID(r.Context()), id, req.ActorID, p)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rw)
}

func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.rewards.Delete(r.Context(), auth.HouseholdID(r.Context()), id, actorID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	var req struct {
		MemberID int64 `json:"member_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	claim, err := h.rewards.Redeem(r.Context(), auth.HouseholdID(r.Context()), id, req.MemberID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, claim)
}

func (h *RewardHandler) ListClaims(w http.ResponseWriter, r *http.Request) {
	member, err := queryID(r, "member")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	f := store.ClaimFilter{
		Status:   model.ClaimStatus(r.URL.Query().Get("status")),
		MemberID: member,
	}

	claims, err := h.rewards.ListClaims(r.Context(), auth.HouseholdID(r.Context()), f)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, claims)
}

func (h *RewardHandler) UpdateClaim(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	var req struct {
		Status  model.ClaimStatus `json:"status"`
		ActorID int64             `json:"actor_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	claim, err := h.rewards.UpdateClaimStatus(r.Context(), auth.HouseholdID(r.Context()), id, req.ActorID, req.Status)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}
