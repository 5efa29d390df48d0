package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"media-catalog/internal/database"
	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

const (
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "media_catalog_session"

	minPasswordLength = 8
)

type passwordRequest struct {
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// CheckSetupRequired handles GET /api/auth/setup-required. Setup is
// required until the single account exists.
func (h *Handlers) CheckSetupRequired(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]bool{"setupRequired": !h.db.HasUsers(r.Context())})
}

// Setup handles POST /api/auth/setup. It creates the single account and
// logs the caller in.
func (h *Handlers) Setup(w http.ResponseWriter, r *http.Request) {
	if h.db.HasUsers(r.Context()) {
		writeJSONError(w, "setup already completed", http.StatusConflict)
		return
	}

	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Password) < minPasswordLength {
		writeJSONError(w, "password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	if err := h.db.CreateUser(r.Context(), req.Password); err != nil {
		logging.Error("failed to create user: %v", err)
		writeJSONError(w, "setup failed", http.StatusInternalServerError)
		return
	}

	user, err := h.db.ValidatePassword(r.Context(), req.Password)
	if err != nil {
		writeJSONError(w, "setup failed", http.StatusInternalServerError)
		return
	}
	h.startSession(w, r, user)
}

// Login handles POST /api/auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.db.ValidatePassword(r.Context(), req.Password)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("error").Inc()
		writeJSONError(w, "invalid password", http.StatusUnauthorized)
		return
	}

	metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
	h.startSession(w, r, user)
}

func (h *Handlers) startSession(w http.ResponseWriter, r *http.Request, user *database.User) {
	session, err := h.db.CreateSession(r.Context(), user.ID)
	if err != nil {
		logging.Error("failed to create session: %v", err)
		writeJSONError(w, "login failed", http.StatusInternalServerError)
		return
	}

	metrics.ActiveSessions.Inc()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSONStatus(w, "ok")
}

// Logout handles POST /api/auth/logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.db.DeleteSession(r.Context(), cookie.Value); err != nil {
			logging.Warn("failed to delete session: %v", err)
		} else {
			metrics.ActiveSessions.Dec()
		}
	}

	clearSessionCookie(w)
	writeJSONStatus(w, "ok")
}

// CheckAuth handles GET /api/auth/check.
func (h *Handlers) CheckAuth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		writeJSON(w, map[string]bool{"authenticated": false})
		return
	}

	if _, err := h.db.ValidateSession(r.Context(), cookie.Value); err != nil {
		clearSessionCookie(w)
		writeJSON(w, map[string]bool{"authenticated": false})
		return
	}
	writeJSON(w, map[string]bool{"authenticated": true})
}

// ChangePassword handles POST /api/auth/change-password. All sessions,
// including the caller's, are invalidated.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if _, err := h.db.ValidatePassword(r.Context(), req.CurrentPassword); err != nil {
		writeJSONError(w, "invalid password", http.StatusUnauthorized)
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		writeJSONError(w, "password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	if err := h.db.UpdatePassword(r.Context(), req.NewPassword); err != nil {
		logging.Error("failed to update password: %v", err)
		writeJSONError(w, "password change failed", http.StatusInternalServerError)
		return
	}

	clearSessionCookie(w)
	writeJSONStatus(w, "ok")
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// authSkipPrefixes are request paths that never require a session.
var authSkipPrefixes = []string{
	"/api/auth/",
	"/healthz",
	"/livez",
	"/readyz",
	"/metrics",
	"/static/",
}

// AuthMiddleware guards the API behind the session cookie. The login and
// setup endpoints, health probes and static assets stay reachable, and the
// whole check is skipped until the account exists so first-run setup works.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		skip := !strings.HasPrefix(path, "/api/")
		for _, prefix := range authSkipPrefixes {
			if strings.HasPrefix(path, prefix) {
				skip = true
				break
			}
		}
		if skip || !h.db.HasUsers(r.Context()) {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			writeJSONError(w, "authentication required", http.StatusUnauthorized)
			return
		}
		if _, err := h.db.ValidateSession(r.Context(), cookie.Value); err != nil {
			clearSessionCookie(w)
			writeJSONError(w, "authentication required", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
