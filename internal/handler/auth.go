package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/examportal/examportal/internal/model"
)

const stateCookieName = "oauth_state"

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.google.Enabled() {
		jsonError(w, http.StatusServiceUnavailable, "sign-in is not configured")
		return
	}

	url, state := h.google.BeginAuth()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		jsonError(w, http.StatusUnauthorized, "sign-in was denied: "+errMsg)
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		jsonError(w, http.StatusUnauthorized, "invalid sign-in state")
		return
	}
	clearCookie(w, stateCookieName, h.config.SecureCookies)

	code := r.URL.Query().Get("code")
	if code == "" {
		jsonError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	identity, err := h.google.CompleteAuth(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", "error", err)
		jsonError(w, http.StatusUnauthorized, "sign-in failed")
		return
	}

	user, err := h.store.UpsertUser(identity.Email, identity.Name, identity.Picture)
	if err != nil {
		slog.Error("failed to upsert user", "error", err, "email", identity.Email)
		jsonError(w, http.StatusInternalServerError, "sign-in failed")
		return
	}

	if h.config.AdminEmail(user.Email) && !user.IsAdmin() {
		if err := h.store.SetAdmin(user.Email); err != nil {
			slog.Error("failed to promote admin", "error", err, "email", user.Email)
		} else {
			user.Role = model.UserRoleAdmin
		}
	}

	// Logins are a convenient moment to shed expired sessions.
	if err := h.store.CleanupExpiredSessions(); err != nil {
		slog.Error("failed to clean up expired sessions", "error", err)
	}

	token, err := h.store.CreateAuthSession(user.ID)
	if err != nil {
		slog.Error("failed to create auth session", "error", err)
		jsonError(w, http.StatusInternalServerError, "sign-in failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(24 * time.Hour),
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	slog.Info("user signed in", "email", user.Email, "role", user.Role)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if err := h.store.DeleteAuthSession(cookie.Value); err != nil {
			slog.Error("failed to delete auth session", "error", err)
		}
	}
	clearCookie(w, sessionCookieName, h.config.SecureCookies)
	http.Redirect(w, r, "/", http.StatusFound)
}

func clearCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
