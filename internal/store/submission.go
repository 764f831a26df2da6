package store

import (
	"database/sql"
	"time"

	"github.com/examportal/examportal/internal/model"
)

// Answer is the payload of SaveAnswer: exactly one modality is populated.
type Answer struct {
	Text      string
	Image     []byte
	ImageName string
	Type      model.AnswerType
}

// SaveAnswer upserts a submission keyed on (user, question, session).
// On conflict only the answer fields, the max-score snapshot and
// submitted_at are overwritten; an existing score, feedback and
// evaluated_at survive a resubmission.
func (s *Store) SaveAnswer(userID, questionID, sessionID int64, ans Answer, maxScore int) error {
	_, err := s.db.Exec(
		`INSERT INTO submissions
			(user_id, question_id, session_id, answer_text, answer_image, answer_image_name, answer_type, max_score, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT(user_id, question_id, session_id) DO UPDATE SET
			answer_text = excluded.answer_text,
			answer_image = excluded.answer_image,
			answer_image_name = excluded.answer_image_name,
			answer_type = excluded.answer_type,
			max_score = excluded.max_score,
			submitted_at = excluded.submitted_at`,
		userID, questionID, sessionID,
		ans.Text, ans.Image, ans.ImageName, ans.Type, maxScore, time.Now(),
	)
	return err
}

// SaveEvaluation records the score and feedback for a submission and
// stamps evaluated_at.
func (s *Store) SaveEvaluation(submissionID int64, score float64, feedback string) error {
	_, err := s.db.Exec(
		`UPDATE submissions SET score = $1, feedback = $2, evaluated_at = $3 WHERE id = $4`,
		score, feedback, time.Now(), submissionID,
	)
	return err
}

// GetSubmission returns a submission by ID including its image bytes, or
// nil when absent.
func (s *Store) GetSubmission(id int64) (*model.Submission, error) {
	var sub model.Submission
	var score sql.NullFloat64
	var evaluatedAt sql.NullTime
	err := s.db.QueryRow(
		`SELECT id, user_id, question_id, session_id, answer_text, answer_image,
			answer_image_name, answer_type, score, max_score, feedback, evaluated_at, submitted_at
		 FROM submissions WHERE id = $1`, id,
	).Scan(&sub.ID, &sub.UserID, &sub.QuestionID, &sub.SessionID, &sub.AnswerText, &sub.AnswerImage,
		&sub.AnswerImageName, &sub.AnswerType, &score, &sub.MaxScore, &sub.Feedback, &evaluatedAt, &sub.SubmittedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if score.Valid {
		sub.Score = &score.Float64
	}
	if evaluatedAt.Valid {
		sub.EvaluatedAt = &evaluatedAt.Time
	}
	return &sub, nil
}

// UserSubmissions returns one user's submissions in a session, joined
// with question text and marks, ordered by question ID.
func (s *Store) UserSubmissions(userID, sessionID int64) ([]model.SubmissionView, error) {
	rows, err := s.db.Query(
		`SELECT s.id, s.user_id, s.question_id, s.session_id, s.answer_text, s.answer_image,
			s.answer_image_name, s.answer_type, s.score, s.max_score, s.feedback,
			s.evaluated_at, s.submitted_at, q.question_text, q.marks
		 FROM submissions s
		 JOIN questions q ON s.question_id = q.id
		 WHERE s.user_id = $1 AND s.session_id = $2
		 ORDER BY q.id`, userID, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubmissionViews(rows, false)
}

// SessionSubmissions returns every submission in a session, joined with
// the student and question, ordered by student name then question ID.
func (s *Store) SessionSubmissions(sessionID int64) ([]model.SubmissionView, error) {
	rows, err := s.db.Query(
		`SELECT s.id, s.user_id, s.question_id, s.session_id, s.answer_text, s.answer_image,
			s.answer_image_name, s.answer_type, s.score, s.max_score, s.feedback,
			s.evaluated_at, s.submitted_at, q.question_text, q.marks, u.name, u.email
		 FROM submissions s
		 JOIN users u ON s.user_id = u.id
		 JOIN questions q ON s.question_id = q.id
		 WHERE s.session_id = $1
		 ORDER BY u.name, q.id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubmissionViews(rows, true)
}

// UnevaluatedSubmissions returns submissions in a session that have an
// answer in either modality but no score yet.
func (s *Store) UnevaluatedSubmissions(sessionID int64) ([]model.SubmissionView, error) {
	rows, err := s.db.Query(
		`SELECT s.id, s.user_id, s.question_id, s.session_id, s.answer_text, s.answer_image,
			s.answer_image_name, s.answer_type, s.score, s.max_score, s.feedback,
			s.evaluated_at, s.submitted_at, q.question_text, q.marks, u.name, u.email
		 FROM submissions s
		 JOIN users u ON s.user_id = u.id
		 JOIN questions q ON s.question_id = q.id
		 WHERE s.session_id = $1
		   AND s.score IS NULL
		   AND (s.answer_text <> '' OR s.answer_image IS NOT NULL)
		 ORDER BY s.id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubmissionViews(rows, true)
}

// Rankings aggregates submissions per student within a session: summed
// score, summed max marks, answered and evaluated counts, ordered by
// total score descending with unevaluated students last. Ties keep
// insertion order.
func (s *Store) Rankings(sessionID int64) ([]model.RankingRow, error) {
	rows, err := s.db.Query(
		`SELECT u.name, u.email, u.picture,
			SUM(s.score) AS total_score,
			SUM(q.marks) AS total_max,
			COUNT(s.id) AS answered,
			COUNT(CASE WHEN s.score IS NOT NULL THEN 1 END) AS evaluated
		 FROM users u
		 JOIN submissions s ON u.id = s.user_id
		 JOIN questions q ON s.question_id = q.id
		 WHERE s.session_id = $1
		   AND (s.answer_text <> '' OR s.answer_image IS NOT NULL)
		 GROUP BY u.id, u.name, u.email, u.picture
		 ORDER BY total_score DESC NULLS LAST, u.id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rankings []model.RankingRow
	for rows.Next() {
		var r model.RankingRow
		var total sql.NullFloat64
		if err := rows.Scan(&r.Name, &r.Email, &r.Picture, &total, &r.TotalMax, &r.Answered, &r.Evaluated); err != nil {
			return nil, err
		}
		if total.Valid {
			r.TotalScore = &total.Float64
		}
		rankings = append(rankings, r)
	}
	return rankings, rows.Err()
}

func scanSubmissionViews(rows *sql.Rows, withStudent bool) ([]model.SubmissionView, error) {
	var views []model.SubmissionView
	for rows.Next() {
		var v model.SubmissionView
		var score sql.NullFloat64
		var evaluatedAt sql.NullTime
		dest := []any{
			&v.ID, &v.UserID, &v.QuestionID, &v.SessionID, &v.AnswerText, &v.AnswerImage,
			&v.AnswerImageName, &v.AnswerType, &score, &v.MaxScore, &v.Feedback,
			&evaluatedAt, &v.SubmittedAt, &v.QuestionText, &v.MaxMarks,
		}
		if withStudent {
			dest = append(dest, &v.StudentName, &v.StudentEmail)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if score.Valid {
			v.Score = &score.Float64
		}
		if evaluatedAt.Valid {
			v.EvaluatedAt = &evaluatedAt.Time
		}
		views = append(views, v)
	}
	return views, rows.Err()
}
