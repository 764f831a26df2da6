package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/examportal/examportal/internal/evaluator"
	"github.com/examportal/examportal/internal/model"
)

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers()
	if err != nil {
		slog.Error("failed to list users", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		jsonError(w, http.StatusBadRequest, "session title is required")
		return
	}

	id, err := h.store.CreateSession(req.Title, strings.TrimSpace(req.Description))
	if err != nil {
		slog.Error("failed to create session", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	slog.Info("session created", "session_id", id, "title", req.Title)
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "sessionID")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := h.store.GetSession(id)
	if err != nil {
		slog.Error("failed to get session", "error", err, "session_id", id)
		jsonError(w, http.StatusInternalServerError, "failed to close session")
		return
	}
	if session == nil {
		jsonError(w, http.StatusNotFound, "session not found")
		return
	}

	if err := h.store.CloseSession(id); err != nil {
		slog.Error("failed to close session", "error", err, "session_id", id)
		jsonError(w, http.StatusInternalServerError, "failed to close session")
		return
	}

	slog.Info("session closed", "session_id", id)
	writeJSON(w, http.StatusOK, map[string]any{"closed": id})
}

func (h *Handler) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text  string `json:"text"`
		Marks int    `json:"marks"`
		Hint  string `json:"hint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		jsonError(w, http.StatusBadRequest, "question text is required")
		return
	}

	session, err := h.store.GetActiveSession()
	if err != nil {
		slog.Error("failed to get active session", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to add question")
		return
	}
	if session == nil {
		jsonError(w, http.StatusConflict, "no active session to add the question to")
		return
	}

	id, err := h.store.AddQuestion(session.ID, req.Text, req.Marks, strings.TrimSpace(req.Hint))
	if err != nil {
		slog.Error("failed to add question", "error", err, "session_id", session.ID)
		jsonError(w, http.StatusInternalServerError, "failed to add question")
		return
	}

	slog.Info("question added", "question_id", id, "session_id", session.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (h *Handler) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "questionID")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid question id")
		return
	}

	question, err := h.store.GetQuestion(id)
	if err != nil {
		slog.Error("failed to get question", "error", err, "question_id", id)
		jsonError(w, http.StatusInternalServerError, "failed to delete question")
		return
	}
	if question == nil {
		jsonError(w, http.StatusNotFound, "question not found")
		return
	}

	if err := h.store.DeleteQuestion(id); err != nil {
		slog.Error("failed to delete question", "error", err, "question_id", id)
		jsonError(w, http.StatusInternalServerError, "failed to delete question")
		return
	}

	slog.Info("question deleted", "question_id", id)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// handleEvaluateSession scores every pending submission in the session,
// one at a time. Each result is persisted immediately so a crash or a
// misbehaving provider midway loses nothing already scored; degraded
// results (score zero with an error feedback) are persisted too and can
// be retried by clearing them upstream.
func (h *Handler) handleEvaluateSession(w http.ResponseWriter, r *http.Request) {
	if !h.eval.Enabled() {
		jsonError(w, http.StatusServiceUnavailable, "evaluation is not configured")
		return
	}

	id, err := int64Param(r, "sessionID")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	pending, err := h.store.UnevaluatedSubmissions(id)
	if err != nil {
		slog.Error("failed to load pending submissions", "error", err, "session_id", id)
		jsonError(w, http.StatusInternalServerError, "failed to evaluate session")
		return
	}

	var evaluated, failed int
	for _, sub := range pending {
		result := h.evaluateOne(r.Context(), sub)
		if err := h.store.SaveEvaluation(sub.ID, result.Score, result.Feedback); err != nil {
			slog.Error("failed to save evaluation", "error", err, "submission_id", sub.ID)
			failed++
			continue
		}
		evaluated++
		slog.Info("submission evaluated", "submission_id", sub.ID,
			"score", result.Score, "max", sub.MaxMarks)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"pending":   len(pending),
		"evaluated": evaluated,
		"failed":    failed,
	})
}

func (h *Handler) evaluateOne(ctx context.Context, sub model.SubmissionView) evaluator.Result {
	if sub.AnswerType == model.AnswerImage && len(sub.AnswerImage) > 0 {
		return h.eval.EvaluateImage(ctx, sub.QuestionText, sub.AnswerImage, sub.MaxMarks)
	}
	return h.eval.Evaluate(ctx, sub.QuestionText, sub.AnswerText, sub.MaxMarks)
}

func (h *Handler) handleExportSession(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "sessionID")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := h.store.GetSession(id)
	if err != nil {
		slog.Error("failed to get session", "error", err, "session_id", id)
		jsonError(w, http.StatusInternalServerError, "failed to export session")
		return
	}
	if session == nil {
		jsonError(w, http.StatusNotFound, "session not found")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"session_%d_submissions.csv\"", id))
	if err := h.store.WriteSessionCSV(id, w); err != nil {
		slog.Error("failed to export session", "error", err, "session_id", id)
	}
}
