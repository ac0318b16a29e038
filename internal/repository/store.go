// Package repository defines the session storage interface and implementations.
package repository

import (
	"context"
	"fmt"

	"github.com/xiaot623/leetmentor/internal/domain"
)

// Store defines the interface for session persistence.
//
// Implementations must be safe for concurrent use and apply every mutation
// atomically per session. Returned sessions are copies.
type Store interface {
	// Create stores a new session seeded with the given turns and returns it.
	Create(ctx context.Context, problemReference string, seed []domain.Turn) (*domain.Session, error)
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	AppendTurn(ctx context.Context, sessionID string, turn domain.Turn) error
	// BindProblemReferenceIfAbsent sets the reference and appends turn only
	// when the session has no reference yet. It reports whether it bound.
	BindProblemReferenceIfAbsent(ctx context.Context, sessionID, ref string, turn domain.Turn) (bool, error)

	// Lifecycle
	Close() error
}

// trimTurns drops the oldest non-director turns until at most max remain.
// max <= 0 disables trimming.
func trimTurns(turns []domain.Turn, max int) []domain.Turn {
	if max <= 0 {
		return turns
	}
	excess := -max
	for _, t := range turns {
		if t.Role != domain.RoleDirector {
			excess++
		}
	}
	if excess <= 0 {
		return turns
	}

	kept := turns[:0]
	for _, t := range turns {
		if t.Role != domain.RoleDirector && excess > 0 {
			excess--
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

// Open creates the store named by backend ("memory" or "sqlite").
func Open(backend, dsn string, maxTurns int) (Store, error) {
	switch backend {
	case "", "memory":
		return NewMemoryStore(maxTurns), nil
	case "sqlite":
		s, err := NewSQLiteStore(dsn, maxTurns)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
