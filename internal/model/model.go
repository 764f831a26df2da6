package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is the default role for anyone who signs in.
	UserRoleStudent UserRole = "student"
	// UserRoleAdmin is granted to emails on the configured allowlist.
	UserRoleAdmin UserRole = "admin"
)

// User represents a portal user, created on first successful login.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Picture   string    `json:"picture,omitempty"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == UserRoleAdmin
}

// AuthSession represents a logged-in browser session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores the authenticated user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// ExamSession is a time-boxed container for one set of questions.
// At most one session is active at any time.
type ExamSession struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

// DefaultMarks is used when an admin does not specify marks for a question.
const DefaultMarks = 4

// Question is a descriptive question posted against a session.
type Question struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	Text      string    `json:"text"`
	Marks     int       `json:"marks"`
	Hint      string    `json:"hint,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// AnswerType discriminates between a typed answer and an uploaded image.
type AnswerType string

const (
	AnswerText  AnswerType = "text"
	AnswerImage AnswerType = "image"
)

// Submission is one student's answer to one question within one session.
// Exactly one row exists per (user, question, session); resubmitting
// overwrites the answer fields but never clears an existing score.
type Submission struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	QuestionID      int64      `json:"question_id"`
	SessionID       int64      `json:"session_id"`
	AnswerText      string     `json:"answer_text,omitempty"`
	AnswerImage     []byte     `json:"-"`
	AnswerImageName string     `json:"answer_image_name,omitempty"`
	AnswerType      AnswerType `json:"answer_type"`
	Score           *float64   `json:"score,omitempty"`
	MaxScore        int        `json:"max_score"`
	Feedback        string     `json:"feedback,omitempty"`
	EvaluatedAt     *time.Time `json:"evaluated_at,omitempty"`
	SubmittedAt     time.Time  `json:"submitted_at"`
}

// HasAnswer reports whether either answer modality is populated.
func (s Submission) HasAnswer() bool {
	return s.AnswerText != "" || len(s.AnswerImage) > 0
}

// SubmissionView is a submission joined with its question and student.
type SubmissionView struct {
	Submission
	QuestionText string `json:"question_text"`
	MaxMarks     int    `json:"max_marks"`
	StudentName  string `json:"student_name,omitempty"`
	StudentEmail string `json:"student_email,omitempty"`
}

// RankingRow is one leaderboard entry, derived by aggregating a student's
// submissions within a session. TotalScore is nil when nothing has been
// evaluated yet.
type RankingRow struct {
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Picture    string   `json:"picture,omitempty"`
	TotalScore *float64 `json:"total_score"`
	TotalMax   int      `json:"total_max"`
	Answered   int      `json:"answered"`
	Evaluated  int      `json:"evaluated"`
}

// Percent returns the score percentage, defensively zero when nothing is
// evaluated or the denominator is zero.
func (r RankingRow) Percent() float64 {
	if r.TotalScore == nil || r.TotalMax == 0 {
		return 0
	}
	return *r.TotalScore / float64(r.TotalMax) * 100
}

// PortalConfig holds runtime parameters set via CLI flags.
type PortalConfig struct {
	AdminEmails   []string // emails promoted to admin on login
	SecureCookies bool     // Set Secure flag on cookies (disable for local dev)
}

// AdminEmail reports whether email is on the configured admin allowlist.
func (c PortalConfig) AdminEmail(email string) bool {
	for _, e := range c.AdminEmails {
		if e == email {
			return true
		}
	}
	return false
}
