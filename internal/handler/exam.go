package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/examportal/examportal/internal/model"
	"github.com/examportal/examportal/internal/store"
)

const (
	maxUploadBytes = 32 << 20
	maxImageBytes  = 5 << 20
)

// examSubmission is the per-question submission state shown on the exam
// page. Image bytes stay server-side; only presence is reported.
type examSubmission struct {
	ID          int64            `json:"id"`
	AnswerType  model.AnswerType `json:"answer_type"`
	AnswerText  string           `json:"answer_text,omitempty"`
	HasImage    bool             `json:"has_image"`
	ImageName   string           `json:"image_name,omitempty"`
	SubmittedAt time.Time        `json:"submitted_at"`
}

func (h *Handler) handleExam(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	session, err := h.store.GetActiveSession()
	if err != nil {
		slog.Error("failed to get active session", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load exam")
		return
	}
	if session == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"session":     nil,
			"questions":   []model.Question{},
			"submissions": map[string]examSubmission{},
		})
		return
	}

	questions, err := h.store.QuestionsForSession(session.ID)
	if err != nil {
		slog.Error("failed to load questions", "error", err, "session_id", session.ID)
		jsonError(w, http.StatusInternalServerError, "failed to load exam")
		return
	}

	subs, err := h.store.UserSubmissions(user.ID, session.ID)
	if err != nil {
		slog.Error("failed to load submissions", "error", err, "user_id", user.ID)
		jsonError(w, http.StatusInternalServerError, "failed to load exam")
		return
	}

	byQuestion := make(map[string]examSubmission, len(subs))
	for _, sub := range subs {
		byQuestion[fmt.Sprintf("%d", sub.QuestionID)] = examSubmission{
			ID:          sub.ID,
			AnswerType:  sub.AnswerType,
			AnswerText:  sub.AnswerText,
			HasImage:    len(sub.AnswerImage) > 0,
			ImageName:   sub.AnswerImageName,
			SubmittedAt: sub.SubmittedAt,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session":     session,
		"questions":   questions,
		"submissions": byQuestion,
	})
}

// pendingAnswer is one validated answer waiting to be written.
type pendingAnswer struct {
	question model.Question
	answer   store.Answer
}

// handleSubmitAnswers accepts the whole exam as one multipart form. Each
// question carries mode_<id> (text or image) plus answer_<id> or
// image_<id>. Validation runs over every question before the first write:
// a partial form is rejected outright rather than saved piecemeal.
func (h *Handler) handleSubmitAnswers(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	session, err := h.store.GetActiveSession()
	if err != nil {
		slog.Error("failed to get active session", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to submit answers")
		return
	}
	if session == nil {
		jsonError(w, http.StatusConflict, "no exam is currently active")
		return
	}

	questions, err := h.store.QuestionsForSession(session.ID)
	if err != nil {
		slog.Error("failed to load questions", "error", err, "session_id", session.ID)
		jsonError(w, http.StatusInternalServerError, "failed to submit answers")
		return
	}
	if len(questions) == 0 {
		jsonError(w, http.StatusConflict, "the active exam has no questions")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	existing := map[int64]model.SubmissionView{}
	if subs, err := h.store.UserSubmissions(user.ID, session.ID); err == nil {
		for _, sub := range subs {
			existing[sub.QuestionID] = sub
		}
	} else {
		slog.Error("failed to load existing submissions", "error", err, "user_id", user.ID)
		jsonError(w, http.StatusInternalServerError, "failed to submit answers")
		return
	}

	var (
		pending []pendingAnswer
		missing []string
	)
	for i, q := range questions {
		label := fmt.Sprintf("Q%d", i+1)

		mode := model.AnswerType(r.FormValue(fmt.Sprintf("mode_%d", q.ID)))
		if mode != model.AnswerImage {
			mode = model.AnswerText
		}

		switch mode {
		case model.AnswerText:
			text := strings.TrimSpace(r.FormValue(fmt.Sprintf("answer_%d", q.ID)))
			if text == "" {
				missing = append(missing, label)
				continue
			}
			pending = append(pending, pendingAnswer{
				question: q,
				answer:   store.Answer{Text: text, Type: model.AnswerText},
			})
		case model.AnswerImage:
			image, name, err := readUploadedImage(r, fmt.Sprintf("image_%d", q.ID))
			if err != nil {
				jsonError(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", label, err))
				return
			}
			if image == nil {
				// No new upload; a previously saved image counts.
				if prev, ok := existing[q.ID]; ok && len(prev.AnswerImage) > 0 {
					continue
				}
				missing = append(missing, label)
				continue
			}
			pending = append(pending, pendingAnswer{
				question: q,
				answer:   store.Answer{Image: image, ImageName: name, Type: model.AnswerImage},
			})
		}
	}

	if len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "please answer all questions before submitting",
			"missing": missing,
		})
		return
	}

	var saved int
	var failed []int64
	for _, p := range pending {
		if err := h.store.SaveAnswer(user.ID, p.question.ID, session.ID, p.answer, p.question.Marks); err != nil {
			slog.Error("failed to save answer", "error", err,
				"user_id", user.ID, "question_id", p.question.ID)
			failed = append(failed, p.question.ID)
			continue
		}
		saved++
	}

	slog.Info("answers submitted", "user_id", user.ID, "session_id", session.ID,
		"saved", saved, "failed", len(failed))
	writeJSON(w, http.StatusOK, map[string]any{
		"saved":  saved,
		"failed": failed,
	})
}

// readUploadedImage reads the named multipart file. A missing part is not
// an error; it returns nil bytes so the caller can fall back to a
// previously saved image.
func readUploadedImage(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("could not read uploaded image")
	}
	defer file.Close()

	if header.Size > maxImageBytes {
		return nil, "", fmt.Errorf("image exceeds the %d MB limit", maxImageBytes>>20)
	}
	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("could not read uploaded image")
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("image exceeds the %d MB limit", maxImageBytes>>20)
	}
	if len(data) == 0 {
		return nil, "", nil
	}
	return data, header.Filename, nil
}

func (h *Handler) handleSubmissionImage(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	id, err := int64Param(r, "submissionID")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid submission id")
		return
	}

	sub, err := h.store.GetSubmission(id)
	if err != nil {
		slog.Error("failed to get submission", "error", err, "submission_id", id)
		jsonError(w, http.StatusInternalServerError, "failed to load image")
		return
	}
	if sub == nil || len(sub.AnswerImage) == 0 {
		jsonError(w, http.StatusNotFound, "image not found")
		return
	}
	if sub.UserID != user.ID && !user.IsAdmin() {
		jsonError(w, http.StatusForbidden, "forbidden")
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(sub.AnswerImage))
	w.Header().Set("Cache-Control", "private, max-age=300")
	if _, err := w.Write(sub.AnswerImage); err != nil {
		slog.Error("failed to write image response", "error", err)
	}
}
