// Package handler wires the HTTP surface of the exam portal: the OAuth
// login flow, the student exam/results/rankings views and the admin panel.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/examportal/examportal/internal/auth"
	"github.com/examportal/examportal/internal/evaluator"
	"github.com/examportal/examportal/internal/model"
	"github.com/examportal/examportal/internal/store"
)

const sessionCookieName = "session"

// Evaluator is the scoring dependency of the admin evaluation loop.
// *evaluator.Client satisfies it; tests substitute a stub.
type Evaluator interface {
	Enabled() bool
	Evaluate(ctx context.Context, questionText, answer string, maxMarks int) evaluator.Result
	EvaluateImage(ctx context.Context, questionText string, image []byte, maxMarks int) evaluator.Result
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	eval   Evaluator
	google *auth.Google
	config model.PortalConfig
}

// New creates a new Handler.
func New(s *store.Store, eval Evaluator, g *auth.Google, cfg model.PortalConfig) *Handler {
	return &Handler{store: s, eval: eval, google: g, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/auth/login", h.handleLogin)
	r.Get("/auth/callback", h.handleCallback)
	r.Post("/auth/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/api/me", h.handleMe)
		r.Get("/api/sessions", h.handleListSessions)
		r.Get("/api/exam", h.handleExam)
		r.Post("/api/exam/submit", h.handleSubmitAnswers)
		r.Get("/api/results", h.handleMyResults)
		r.Get("/api/rankings", h.handleRankings)
		r.Get("/api/submissions/{submissionID}/image", h.handleSubmissionImage)

		r.Route("/api/admin", func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Get("/users", h.handleListUsers)
			r.Post("/sessions", h.handleCreateSession)
			r.Post("/sessions/{sessionID}/close", h.handleCloseSession)
			r.Post("/questions", h.handleAddQuestion)
			r.Delete("/questions/{questionID}", h.handleDeleteQuestion)
			r.Post("/sessions/{sessionID}/evaluate", h.handleEvaluateSession)
			r.Get("/sessions/{sessionID}/export", h.handleExportSession)
		})
	})
}

// requireAuth resolves the session cookie to a user and stores it in the
// request context.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			jsonError(w, http.StatusUnauthorized, "not signed in")
			return
		}

		authSess, err := h.store.GetAuthSession(cookie.Value)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			jsonError(w, http.StatusUnauthorized, "not signed in")
			return
		}
		if authSess == nil {
			jsonError(w, http.StatusUnauthorized, "not signed in")
			return
		}

		user, err := h.store.GetUserByID(authSess.UserID)
		if err != nil || user == nil {
			jsonError(w, http.StatusUnauthorized, "not signed in")
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole returns middleware that checks the user has one of the
// allowed roles.
func requireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				jsonError(w, http.StatusUnauthorized, "not signed in")
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			jsonError(w, http.StatusForbidden, "forbidden")
		})
	}
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.UserFromContext(r.Context()))
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions()
	if err != nil {
		slog.Error("failed to list sessions", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func int64Param(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
