package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/leetmentor/internal/domain"
)

// MemoryStore keeps sessions in process memory. Sessions live until the
// process exits.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memoryEntry
	maxTurns int
}

type memoryEntry struct {
	mu      sync.Mutex
	session domain.Session
}

// NewMemoryStore creates an in-memory store. maxTurns caps the number of
// user and assistant turns kept per session; 0 keeps all of them.
func NewMemoryStore(maxTurns int) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memoryEntry),
		maxTurns: maxTurns,
	}
}

// Create creates a new session.
func (s *MemoryStore) Create(ctx context.Context, problemReference string, seed []domain.Turn) (*domain.Session, error) {
	if problemReference == "" {
		return nil, fmt.Errorf("problem reference is required: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	for _, exists := s.sessions[id]; exists; _, exists = s.sessions[id] {
		id = uuid.NewString()
	}

	entry := &memoryEntry{session: domain.Session{
		SessionID:        id,
		ProblemReference: problemReference,
		Turns:            append([]domain.Turn(nil), seed...),
		CreatedAt:        time.Now(),
	}}
	s.sessions[id] = entry

	out := entry.session.Clone()
	return &out, nil
}

// Get retrieves a session by ID.
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	out := entry.session.Clone()
	return &out, nil
}

// AppendTurn appends a turn to the session history.
func (s *MemoryStore) AppendTurn(ctx context.Context, sessionID string, turn domain.Turn) error {
	entry, err := s.entry(sessionID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.session.Turns = trimTurns(append(entry.session.Turns, turn), s.maxTurns)
	return nil
}

// BindProblemReferenceIfAbsent binds ref once.
func (s *MemoryStore) BindProblemReferenceIfAbsent(ctx context.Context, sessionID, ref string, turn domain.Turn) (bool, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return false, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.session.ProblemReference != "" || ref == "" {
		return false, nil
	}
	entry.session.ProblemReference = ref
	entry.session.Turns = append(entry.session.Turns, turn)
	return true, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) entry(sessionID string) (*memoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", sessionID, domain.ErrSessionNotFound)
	}
	return entry, nil
}
