package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaot623/leetmentor/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db       *sql.DB
	maxTurns int
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string, maxTurns int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite has a single writer, and in-memory databases and pragmas are
	// per connection, so the pool holds one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db, maxTurns: maxTurns}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			problem_reference TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS turns (
			turn_id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, turn_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create creates a new session with its seed turns in one transaction.
func (s *SQLiteStore) Create(ctx context.Context, problemReference string, seed []domain.Turn) (*domain.Session, error) {
	if problemReference == "" {
		return nil, fmt.Errorf("problem reference is required: %w", domain.ErrInvalidInput)
	}

	session := &domain.Session{
		SessionID:        uuid.NewString(),
		ProblemReference: problemReference,
		Turns:            append([]domain.Turn(nil), seed...),
		CreatedAt:        time.Now(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (session_id, problem_reference, created_at) VALUES (?, ?, ?)`,
		session.SessionID, session.ProblemReference, session.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	for _, turn := range seed {
		if err := insertTurn(ctx, tx, session.SessionID, turn); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return session, nil
}

// Get retrieves a session and its turns in insertion order.
func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, problem_reference, created_at FROM sessions WHERE session_id = ?`,
		sessionID).Scan(&session.SessionID, &session.ProblemReference, &session.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %q: %w", sessionID, domain.ErrSessionNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM turns WHERE session_id = ? ORDER BY turn_id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	session.Turns = []domain.Turn{}
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, err
		}
		session.Turns = append(session.Turns, domain.Turn{Role: domain.Role(role), Content: content})
	}
	return &session, rows.Err()
}

// AppendTurn appends a turn and applies the retention cap.
func (s *SQLiteStore) AppendTurn(ctx context.Context, sessionID string, turn domain.Turn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := sessionExists(ctx, tx, sessionID); err != nil {
		return err
	}
	if err := insertTurn(ctx, tx, sessionID, turn); err != nil {
		return err
	}
	if s.maxTurns > 0 {
		// LIMIT -1 OFFSET n selects every visible turn past the newest n.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM turns WHERE turn_id IN (
				SELECT turn_id FROM turns WHERE session_id = ? AND role != ?
				ORDER BY turn_id DESC LIMIT -1 OFFSET ?
			)`, sessionID, string(domain.RoleDirector), s.maxTurns); err != nil {
			return fmt.Errorf("failed to trim turns: %w", err)
		}
	}

	return tx.Commit()
}

// BindProblemReferenceIfAbsent binds ref once.
func (s *SQLiteStore) BindProblemReferenceIfAbsent(ctx context.Context, sessionID, ref string, turn domain.Turn) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if err := sessionExists(ctx, tx, sessionID); err != nil {
		return false, err
	}
	if ref == "" {
		return false, nil
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET problem_reference = ? WHERE session_id = ? AND problem_reference = ''`,
		ref, sessionID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if err := insertTurn(ctx, tx, sessionID, turn); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

func sessionExists(ctx context.Context, tx *sql.Tx, sessionID string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE session_id = ?`, sessionID).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("session %q: %w", sessionID, domain.ErrSessionNotFound)
	}
	return err
}

func insertTurn(ctx context.Context, tx *sql.Tx, sessionID string, turn domain.Turn) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO turns (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, string(turn.Role), turn.Content, time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}
	return nil
}
