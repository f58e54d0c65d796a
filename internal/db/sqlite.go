package db

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT UNIQUE,
    email TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS resumes (
    id TEXT PRIMARY KEY,
    title TEXT,
    content BLOB,
    md_content_hash TEXT,
    author TEXT,
    tags TEXT,
    user_id TEXT,
    created_at DATETIME,
    modified_at DATETIME,
    shared_at DATETIME
);

CREATE TABLE IF NOT EXISTS shares (
    token TEXT PRIMARY KEY,
    resume_id TEXT NOT NULL,
    created_at DATETIME,
    FOREIGN KEY(resume_id) REFERENCES resumes(id) ON DELETE CASCADE
);

CREATE UNIQUE INDEX IF NOT EXISTS shares_resume_id ON shares(resume_id);`

type SQLite struct {
	path string
	conn *sql.DB
}

// NewSQLite returns an unopened database at path. Use ":memory:" for tests.
func NewSQLite(path string) *SQLite {
	return &SQLite{
		path: path,
		conn: nil,
	}
}

func (s *SQLite) InitDB() error {
	dsn := s.path
	if dsn != ":memory:" && !strings.Contains(dsn, "?") {
		// Every pooled connection needs these, not just the one that ran
		// the schema. Concurrent sessions wait for the write lock instead of
		// failing with SQLITE_BUSY.
		dsn += "?_busy_timeout=5000&_foreign_keys=1"
	}

	var err error
	s.conn, err = sql.Open("sqlite3", dsn)
	if err != nil {
		return err
	}

	// go-sqlite3 gives every pooled connection its own in-memory database.
	if s.path == ":memory:" {
		s.conn.SetMaxOpenConns(1)
	}

	if _, err := s.conn.Exec(schema); err != nil {
		return err
	}

	dbLogger.Info().Str("path", s.path).Msg("Database initialized")
	return nil
}

func (s *SQLite) Get() *sql.DB {
	return s.conn
}

func (s *SQLite) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *SQLite) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	dbLogger.Debug().Str("query", query).Msg("Query")
	return s.conn.QueryContext(ctx, query, args...)
}

func (s *SQLite) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	dbLogger.Debug().Str("query", query).Msg("QueryRow")
	return s.conn.QueryRowContext(ctx, query, args...)
}

func (s *SQLite) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	dbLogger.Debug().Str("query", query).Msg("Exec")
	return s.conn.ExecContext(ctx, query, args...)
}
