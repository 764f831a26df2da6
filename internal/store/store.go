package store

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

// Driver selects the persistence backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Store provides CRUD access to users, sessions, questions and submissions.
// Query text uses $N placeholders, which both drivers accept, so callers
// never see a dialect difference.
type Store struct {
	db     *sql.DB
	driver Driver
}

// New opens the database for the given driver and ensures the schema exists.
func New(driver Driver, dsn string) (*Store, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite"
		if dsn == "" {
			dsn = "examportal.db"
		}
		dsn += "?_journal_mode=WAL&_busy_timeout=5000"
	case DriverPostgres:
		drvName = "pgx"
		if dsn == "" {
			return nil, fmt.Errorf("postgres driver requires a DSN")
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db, driver: driver}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := schemaSQLite
	if s.driver == DriverPostgres {
		schema = schemaPostgres
	}
	_, err := s.db.Exec(schema)
	return err
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT UNIQUE NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	picture TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'student',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS exam_sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	is_active INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	closed_at DATETIME
);

CREATE TABLE IF NOT EXISTS questions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id INTEGER NOT NULL,
	question_text TEXT NOT NULL,
	marks INTEGER NOT NULL DEFAULT 4,
	hint TEXT NOT NULL DEFAULT '',
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (session_id) REFERENCES exam_sessions(id)
);

CREATE TABLE IF NOT EXISTS submissions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	question_id INTEGER NOT NULL,
	session_id INTEGER NOT NULL,
	answer_text TEXT NOT NULL DEFAULT '',
	answer_image BLOB,
	answer_image_name TEXT NOT NULL DEFAULT '',
	answer_type TEXT NOT NULL DEFAULT 'text',
	score REAL,
	max_score INTEGER NOT NULL DEFAULT 4,
	feedback TEXT NOT NULL DEFAULT '',
	evaluated_at DATETIME,
	submitted_at DATETIME NOT NULL,
	FOREIGN KEY (user_id) REFERENCES users(id),
	FOREIGN KEY (question_id) REFERENCES questions(id),
	UNIQUE(user_id, question_id, session_id)
);

CREATE TABLE IF NOT EXISTS auth_sessions (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL,
	FOREIGN KEY (user_id) REFERENCES users(id)
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
	id SERIAL PRIMARY KEY,
	email TEXT UNIQUE NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	picture TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'student',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS exam_sessions (
	id SERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	is_active INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	closed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS questions (
	id SERIAL PRIMARY KEY,
	session_id INTEGER NOT NULL REFERENCES exam_sessions(id),
	question_text TEXT NOT NULL,
	marks INTEGER NOT NULL DEFAULT 4,
	hint TEXT NOT NULL DEFAULT '',
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS submissions (
	id SERIAL PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users(id),
	question_id INTEGER NOT NULL REFERENCES questions(id),
	session_id INTEGER NOT NULL,
	answer_text TEXT NOT NULL DEFAULT '',
	answer_image BYTEA,
	answer_image_name TEXT NOT NULL DEFAULT '',
	answer_type TEXT NOT NULL DEFAULT 'text',
	score DOUBLE PRECISION,
	max_score INTEGER NOT NULL DEFAULT 4,
	feedback TEXT NOT NULL DEFAULT '',
	evaluated_at TIMESTAMPTZ,
	submitted_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS submissions_user_question_session
	ON submissions (user_id, question_id, session_id);

CREATE TABLE IF NOT EXISTS auth_sessions (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users(id),
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);
`
