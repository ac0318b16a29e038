package repository

import (
	"path/filepath"
	"testing"

	"github.com/xiaot623/leetmentor/internal/domain"
)

func newTestSQLiteStore(t *testing.T, maxTurns int) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(":memory:", maxTurns)
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// fileDSN is the DATABASE_URL shape shipped as the default, pointed at a
// temp file.
func fileDSN(t *testing.T) string {
	return "file:" + filepath.Join(t.TempDir(), "mentor.db") +
		"?mode=rwc&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"
}

func newTestSQLiteFileStore(t *testing.T, dsn string, maxTurns int) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(dsn, maxTurns)
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// put inserts a session verbatim, including shapes Create refuses to build.
func (s *MemoryStore) put(session domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.SessionID] = &memoryEntry{session: session}
}

// backends runs fn against every Store implementation.
func backends(t *testing.T, maxTurns int, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore(maxTurns))
	})
	t.Run("sqlite", func(t *testing.T) {
		fn(t, newTestSQLiteStore(t, maxTurns))
	})
	t.Run("sqlite-file", func(t *testing.T) {
		fn(t, newTestSQLiteFileStore(t, fileDSN(t), maxTurns))
	})
}
