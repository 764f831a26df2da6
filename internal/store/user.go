package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/examportal/examportal/internal/model"
)

// UpsertUser inserts a user or, on email conflict, refreshes name and
// picture. Role and created_at are untouched on update. Returns the
// current row.
func (s *Store) UpsertUser(email, name, picture string) (*model.User, error) {
	_, err := s.db.Exec(
		`INSERT INTO users (email, name, picture, role, created_at)
		 VALUES ($1, $2, $3, 'student', $4)
		 ON CONFLICT(email) DO UPDATE SET name = excluded.name, picture = excluded.picture`,
		email, name, picture, time.Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return s.GetUserByEmail(email)
}

// GetUserByEmail returns a user by email, or nil when absent.
func (s *Store) GetUserByEmail(email string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRow(
		`SELECT id, email, name, picture, role, created_at FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Picture, &u.Role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByID returns a user by ID, or nil when absent.
func (s *Store) GetUserByID(id int64) (*model.User, error) {
	var u model.User
	err := s.db.QueryRow(
		`SELECT id, email, name, picture, role, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Picture, &u.Role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SetAdmin promotes the user with the given email to the admin role.
func (s *Store) SetAdmin(email string) error {
	_, err := s.db.Exec(`UPDATE users SET role = 'admin' WHERE email = $1`, email)
	if err != nil {
		slog.Error("failed to promote user", "email", email, "error", err)
		return err
	}
	return nil
}

// ListUsers returns all users ordered by name.
func (s *Store) ListUsers() ([]model.User, error) {
	rows, err := s.db.Query(
		`SELECT id, email, name, picture, role, created_at FROM users ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Picture, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UserCount returns the total number of users.
func (s *Store) UserCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
