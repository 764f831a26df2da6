package store

import (
	"database/sql"
	"time"

	"github.com/examportal/examportal/internal/model"
)

// AddQuestion creates a question against a session.
func (s *Store) AddQuestion(sessionID int64, text string, marks int, hint string) (int64, error) {
	if marks <= 0 {
		marks = model.DefaultMarks
	}
	var id int64
	err := s.db.QueryRow(
		`INSERT INTO questions (session_id, question_text, marks, hint, is_active, created_at)
		 VALUES ($1, $2, $3, $4, 1, $5) RETURNING id`,
		sessionID, text, marks, hint, time.Now(),
	).Scan(&id)
	return id, err
}

// GetQuestion returns a question by ID, or nil when absent.
func (s *Store) GetQuestion(id int64) (*model.Question, error) {
	var q model.Question
	err := s.db.QueryRow(
		`SELECT id, session_id, question_text, marks, hint, is_active, created_at
		 FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.SessionID, &q.Text, &q.Marks, &q.Hint, &q.Active, &q.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// QuestionsForSession returns the active questions of a session, ordered
// by ID.
func (s *Store) QuestionsForSession(sessionID int64) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, question_text, marks, hint, is_active, created_at
		 FROM questions WHERE session_id = $1 AND is_active = 1 ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.SessionID, &q.Text, &q.Marks, &q.Hint, &q.Active, &q.CreatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// DeleteQuestion removes a question. Submissions against it are left in
// place; the joins that serve results simply stop matching them.
func (s *Store) DeleteQuestion(id int64) error {
	_, err := s.db.Exec(`DELETE FROM questions WHERE id = $1`, id)
	return err
}
