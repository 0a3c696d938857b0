// Package audit keeps a local SQLite record of every tool invocation.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Tool names stored in the tool column
const (
	ToolHWReport  = "hwreport"
	ToolGuestExec = "guestexec"
)

// Entry is one recorded invocation
type Entry struct {
	ID        int64
	Timestamp time.Time
	SessionID string
	Tool      string
	Target    string // hostname for hwreport, domain for guestexec
	Argument  string
	Success   bool
	ExitCode  int
	Message   string
}

// Store is an SQLite-backed invocation log
type Store struct {
	db *sql.DB
}

// NewSessionID returns a fresh id for one process run
func NewSessionID() string {
	return uuid.NewString()
}

// Open opens (creating if needed) the database at dbPath and ensures the schema
func Open(ctx context.Context, dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.Initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Initialize creates the invocations table and its indexes
func (s *Store) Initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS invocations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		session_id TEXT NOT NULL,
		tool TEXT NOT NULL,
		target TEXT NOT NULL,
		argument TEXT NOT NULL,
		success BOOLEAN NOT NULL,
		exit_code INTEGER NOT NULL,
		message TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_invocations_session ON invocations(session_id);
	CREATE INDEX IF NOT EXISTS idx_invocations_tool ON invocations(tool, timestamp);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize invocations table: %w", err)
	}
	return nil
}

// Record inserts e; a zero Timestamp is set to now
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	query := `
		INSERT INTO invocations (timestamp, session_id, tool, target, argument, success, exit_code, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query,
		e.Timestamp.UTC(), e.SessionID, e.Tool, e.Target, e.Argument, e.Success, e.ExitCode, e.Message); err != nil {
		return fmt.Errorf("failed to record invocation: %w", err)
	}
	return nil
}

// Recent lists up to limit entries, newest first. An empty tool matches all tools.
func (s *Store) Recent(ctx context.Context, tool string, limit int) ([]Entry, error) {
	query := `
		SELECT id, timestamp, session_id, tool, target, argument, success, exit_code, message
		FROM invocations
		WHERE (? = '' OR tool = ?)
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, tool, tool, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query invocations: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var message sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.SessionID, &e.Tool, &e.Target,
			&e.Argument, &e.Success, &e.ExitCode, &message); err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}
		e.Message = message.String
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
