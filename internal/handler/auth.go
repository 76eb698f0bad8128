package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/chorewheel/internal/auth"
	"github.com/dukerupert/chorewheel/internal/household"
	"github.com/dukerupert/chorewheel/internal/middleware"
)

type AuthHandler struct {
	households *household.Service
	logger     *slog.Logger
}

func NewAuthHandler(hs *household.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{households: hs, logger: logger}
}

type credentialsRequest struct {
	Household string `json:"household"`
	Name      string `json:"name"`
	Passcode  string `json:"passcode"`
}

// household accepts either field name; creation documents "name", login
// documents "household".
func (req credentialsRequest) household() string {
	if req.Household != "" {
		return req.Household
	}
	return req.Name
}

func (h *AuthHandler) CreateHousehold(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	hh, err := h.households.Create(r.Context(), req.household(), req.Passcode)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, hh)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	sess, err := h.households.Login(r.Context(), req.household(), req.Passcode)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"household_id": sess.HouseholdID,
		"expires_at":   sess.ExpiresAt,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.households.Logout(r.Context(), cookie.Value); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the household the session belongs to.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	hh, err := h.households.Get(r.Context(), auth.HouseholdID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, hh)
}
