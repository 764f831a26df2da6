package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/examportal/examportal/internal/model"
)

// resultRow is one question's outcome in the caller's result sheet.
type resultRow struct {
	QuestionText string           `json:"question_text"`
	MaxMarks     int              `json:"max_marks"`
	AnswerType   model.AnswerType `json:"answer_type"`
	AnswerText   string           `json:"answer_text,omitempty"`
	ImageURL     string           `json:"image_url,omitempty"`
	Score        *float64         `json:"score"`
	Feedback     string           `json:"feedback,omitempty"`
	SubmittedAt  time.Time        `json:"submitted_at"`
	EvaluatedAt  *time.Time       `json:"evaluated_at,omitempty"`
}

// handleMyResults reports the caller's per-question scores for a session
// (the active one unless ?session= says otherwise) plus aggregate totals.
// The percentage counts evaluated submissions only; pending ones do not
// drag the average down.
func (h *Handler) handleMyResults(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	session, err := h.sessionFromQuery(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if session == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"session": nil,
			"results": []resultRow{},
		})
		return
	}

	subs, err := h.store.UserSubmissions(user.ID, session.ID)
	if err != nil {
		slog.Error("failed to load submissions", "error", err, "user_id", user.ID)
		jsonError(w, http.StatusInternalServerError, "failed to load results")
		return
	}

	var (
		rows       []resultRow
		totalScore float64
		totalMax   int
		evaluated  int
	)
	for _, sub := range subs {
		row := resultRow{
			QuestionText: sub.QuestionText,
			MaxMarks:     sub.MaxMarks,
			AnswerType:   sub.AnswerType,
			Score:        sub.Score,
			Feedback:     sub.Feedback,
			SubmittedAt:  sub.SubmittedAt,
			EvaluatedAt:  sub.EvaluatedAt,
		}
		if sub.AnswerType == model.AnswerImage && len(sub.AnswerImage) > 0 {
			row.ImageURL = fmt.Sprintf("/api/submissions/%d/image", sub.ID)
		} else {
			row.AnswerText = sub.AnswerText
		}
		rows = append(rows, row)

		totalMax += sub.MaxMarks
		if sub.Score != nil {
			totalScore += *sub.Score
			evaluated++
		}
	}

	var percent float64
	if evaluated > 0 && totalMax > 0 {
		percent = totalScore / float64(totalMax) * 100
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session":     session,
		"results":     rows,
		"answered":    len(subs),
		"evaluated":   evaluated,
		"total_score": totalScore,
		"total_max":   totalMax,
		"percent":     percent,
	})
}

// rankingEntry is one leaderboard row with its computed rank.
type rankingEntry struct {
	Rank int `json:"rank"`
	model.RankingRow
	Percent float64 `json:"percent"`
}

func (h *Handler) handleRankings(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionFromQuery(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if session == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"session":  nil,
			"rankings": []rankingEntry{},
		})
		return
	}

	rows, err := h.store.Rankings(session.ID)
	if err != nil {
		slog.Error("failed to load rankings", "error", err, "session_id", session.ID)
		jsonError(w, http.StatusInternalServerError, "failed to load rankings")
		return
	}

	entries := make([]rankingEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, rankingEntry{
			Rank:       i + 1,
			RankingRow: row,
			Percent:    row.Percent(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session":  session,
		"rankings": entries,
	})
}

// sessionFromQuery resolves the ?session= parameter, falling back to the
// active session. A nil session with nil error means there is nothing to
// show yet.
func (h *Handler) sessionFromQuery(r *http.Request) (*model.ExamSession, error) {
	raw := r.URL.Query().Get("session")
	if raw == "" {
		session, err := h.store.GetActiveSession()
		if err != nil {
			slog.Error("failed to get active session", "error", err)
			return nil, fmt.Errorf("failed to resolve session")
		}
		return session, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid session id")
	}
	session, err := h.store.GetSession(id)
	if err != nil {
		slog.Error("failed to get session", "error", err, "session_id", id)
		return nil, fmt.Errorf("failed to resolve session")
	}
	if session == nil {
		return nil, fmt.Errorf("session not found")
	}
	return session, nil
}
