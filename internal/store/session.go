package store

import (
	"database/sql"
	"time"

	"github.com/examportal/examportal/internal/model"
)

// CreateSession inserts a new active session, deactivating all others in
// the same transaction so that at most one session is active.
func (s *Store) CreateSession(title, description string) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE exam_sessions SET is_active = 0`); err != nil {
		return 0, err
	}

	var id int64
	err = tx.QueryRow(
		`INSERT INTO exam_sessions (title, description, is_active, created_at)
		 VALUES ($1, $2, 1, $3) RETURNING id`,
		title, description, time.Now(),
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, tx.Commit()
}

// GetActiveSession returns the active session, or nil when none is active.
func (s *Store) GetActiveSession() (*model.ExamSession, error) {
	var sess model.ExamSession
	var closedAt sql.NullTime
	err := s.db.QueryRow(
		`SELECT id, title, description, is_active, created_at, closed_at
		 FROM exam_sessions WHERE is_active = 1`,
	).Scan(&sess.ID, &sess.Title, &sess.Description, &sess.Active, &sess.CreatedAt, &closedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if closedAt.Valid {
		sess.ClosedAt = &closedAt.Time
	}
	return &sess, nil
}

// GetSession returns a session by ID, or nil when absent.
func (s *Store) GetSession(id int64) (*model.ExamSession, error) {
	var sess model.ExamSession
	var closedAt sql.NullTime
	err := s.db.QueryRow(
		`SELECT id, title, description, is_active, created_at, closed_at
		 FROM exam_sessions WHERE id = $1`, id,
	).Scan(&sess.ID, &sess.Title, &sess.Description, &sess.Active, &sess.CreatedAt, &closedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if closedAt.Valid {
		sess.ClosedAt = &closedAt.Time
	}
	return &sess, nil
}

// CloseSession deactivates a session and stamps closed_at.
func (s *Store) CloseSession(id int64) error {
	_, err := s.db.Exec(
		`UPDATE exam_sessions SET is_active = 0, closed_at = $1 WHERE id = $2`,
		time.Now(), id,
	)
	return err
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions() ([]model.ExamSession, error) {
	rows, err := s.db.Query(
		`SELECT id, title, description, is_active, created_at, closed_at
		 FROM exam_sessions ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []model.ExamSession
	for rows.Next() {
		var sess model.ExamSession
		var closedAt sql.NullTime
		if err := rows.Scan(&sess.ID, &sess.Title, &sess.Description, &sess.Active, &sess.CreatedAt, &closedAt); err != nil {
			return nil, err
		}
		if closedAt.Valid {
			sess.ClosedAt = &closedAt.Time
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
