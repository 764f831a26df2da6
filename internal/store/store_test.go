package store

import (
	"testing"

	"github.com/examportal/examportal/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s *Store, email, name string) *model.User {
	t.Helper()
	u, err := s.UpsertUser(email, name, "")
	if err != nil {
		t.Fatalf("createTestUser: %v", err)
	}
	return u
}

func createTestSession(t *testing.T, s *Store, title string) int64 {
	t.Helper()
	id, err := s.CreateSession(title, "")
	if err != nil {
		t.Fatalf("createTestSession: %v", err)
	}
	return id
}

func addTestQuestion(t *testing.T, s *Store, sessionID int64, text string, marks int) int64 {
	t.Helper()
	id, err := s.AddQuestion(sessionID, text, marks, "")
	if err != nil {
		t.Fatalf("addTestQuestion: %v", err)
	}
	return id
}

func TestUpsertUser(t *testing.T) {
	s := newTestStore(t)

	u := createTestUser(t, s, "alice@example.com", "Alice")
	if u.ID == 0 {
		t.Fatal("expected non-zero user ID")
	}
	if u.Role != model.UserRoleStudent {
		t.Errorf("expected role student, got %q", u.Role)
	}

	// Second login updates profile fields but keeps identity and role.
	u2, err := s.UpsertUser("alice@example.com", "Alice Liddell", "https://example.com/a.png")
	if err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if u2.ID != u.ID {
		t.Errorf("expected same user ID %d, got %d", u.ID, u2.ID)
	}
	if u2.Name != "Alice Liddell" {
		t.Errorf("expected updated name, got %q", u2.Name)
	}
	if u2.Picture != "https://example.com/a.png" {
		t.Errorf("expected updated picture, got %q", u2.Picture)
	}

	count, err := s.UserCount()
	if err != nil {
		t.Fatalf("UserCount: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 user, got %d", count)
	}
}

func TestSetAdmin(t *testing.T) {
	s := newTestStore(t)
	createTestUser(t, s, "boss@example.com", "Boss")

	if err := s.SetAdmin("boss@example.com"); err != nil {
		t.Fatalf("SetAdmin: %v", err)
	}
	// Promoting twice is harmless.
	if err := s.SetAdmin("boss@example.com"); err != nil {
		t.Fatalf("SetAdmin again: %v", err)
	}

	u, err := s.GetUserByEmail("boss@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if !u.IsAdmin() {
		t.Errorf("expected admin role, got %q", u.Role)
	}

	// Re-login must not demote.
	u2, err := s.UpsertUser("boss@example.com", "Boss", "")
	if err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if !u2.IsAdmin() {
		t.Errorf("expected admin role to survive re-login, got %q", u2.Role)
	}
}

func TestGetUserNotFound(t *testing.T) {
	s := newTestStore(t)

	u, err := s.GetUserByEmail("ghost@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil user, got %+v", u)
	}

	u, err = s.GetUserByID(9999)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil user, got %+v", u)
	}
}

func TestSingleActiveSession(t *testing.T) {
	s := newTestStore(t)

	first := createTestSession(t, s, "Round 1")
	active, err := s.GetActiveSession()
	if err != nil {
		t.Fatalf("GetActiveSession: %v", err)
	}
	if active == nil || active.ID != first {
		t.Fatalf("expected session %d active, got %+v", first, active)
	}

	// Creating a second session deactivates the first.
	second := createTestSession(t, s, "Round 2")
	active, err = s.GetActiveSession()
	if err != nil {
		t.Fatalf("GetActiveSession: %v", err)
	}
	if active == nil || active.ID != second {
		t.Fatalf("expected session %d active, got %+v", second, active)
	}

	old, err := s.GetSession(first)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if old.Active {
		t.Error("expected first session to be deactivated")
	}

	// Closing the active session leaves none active and stamps closed_at.
	if err := s.CloseSession(second); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	active, err = s.GetActiveSession()
	if err != nil {
		t.Fatalf("GetActiveSession: %v", err)
	}
	if active != nil {
		t.Errorf("expected no active session, got %+v", active)
	}
	closed, err := s.GetSession(second)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if closed.ClosedAt == nil {
		t.Error("expected closed_at to be set")
	}

	sessions, err := s.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
}

func TestQuestionLifecycle(t *testing.T) {
	s := newTestStore(t)
	sid := createTestSession(t, s, "Round 1")

	q1 := addTestQuestion(t, s, sid, "Explain goroutines.", 5)
	q2 := addTestQuestion(t, s, sid, "Explain channels.", 0) // default marks

	got, err := s.GetQuestion(q2)
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	if got.Marks != model.DefaultMarks {
		t.Errorf("expected default marks %d, got %d", model.DefaultMarks, got.Marks)
	}

	questions, err := s.QuestionsForSession(sid)
	if err != nil {
		t.Fatalf("QuestionsForSession: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if questions[0].ID != q1 || questions[1].ID != q2 {
		t.Errorf("expected questions ordered by ID, got %d then %d", questions[0].ID, questions[1].ID)
	}

	if err := s.DeleteQuestion(q1); err != nil {
		t.Fatalf("DeleteQuestion: %v", err)
	}
	questions, err = s.QuestionsForSession(sid)
	if err != nil {
		t.Fatalf("QuestionsForSession: %v", err)
	}
	if len(questions) != 1 || questions[0].ID != q2 {
		t.Fatalf("expected only question %d left, got %+v", q2, questions)
	}

	missing, err := s.GetQuestion(q1)
	if err != nil {
		t.Fatalf("GetQuestion after delete: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for deleted question, got %+v", missing)
	}
}

func TestAuthSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	u := createTestUser(t, s, "alice@example.com", "Alice")

	token, err := s.CreateAuthSession(u.ID)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("expected 64-char hex token, got %d chars", len(token))
	}

	sess, err := s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess == nil || sess.UserID != u.ID {
		t.Fatalf("expected session for user %d, got %+v", u.ID, sess)
	}

	if err := s.DeleteAuthSession(token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	sess, err = s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession after delete: %v", err)
	}
	if sess != nil {
		t.Errorf("expected nil session after delete, got %+v", sess)
	}

	// Unknown tokens are not an error.
	sess, err = s.GetAuthSession("deadbeef")
	if err != nil {
		t.Fatalf("GetAuthSession unknown: %v", err)
	}
	if sess != nil {
		t.Errorf("expected nil session for unknown token, got %+v", sess)
	}
}
