package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xiaot623/leetmentor/internal/adapter/llm"
	"github.com/xiaot623/leetmentor/internal/domain"
	"github.com/xiaot623/leetmentor/internal/history"
	"github.com/xiaot623/leetmentor/internal/policy"
	"github.com/xiaot623/leetmentor/internal/repository"
)

const twoSum = "https://leetcode.com/problems/two-sum"

// fakeGateway records payloads and replies from a script.
type fakeGateway struct {
	mu       sync.Mutex
	payloads []history.Payload
	reply    string
	err      error
	hook     func()
}

func (g *fakeGateway) Send(ctx context.Context, payload history.Payload, sampling llm.SamplingConfig) (string, error) {
	if g.hook != nil {
		g.hook()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payloads = append(g.payloads, payload)
	if g.err != nil {
		return "", g.err
	}
	if g.reply != "" {
		return g.reply, nil
	}
	return fmt.Sprintf("reply-%d", len(g.payloads)), nil
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.payloads)
}

func (g *fakeGateway) last() history.Payload {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.payloads[len(g.payloads)-1]
}

// mapStore is a Store that also accepts sessions without a reference, which
// the service never creates itself.
type mapStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	writes   int
}

func newMapStore() *mapStore {
	return &mapStore{sessions: make(map[string]*domain.Session)}
}

func (m *mapStore) Create(ctx context.Context, ref string, seed []domain.Turn) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	id := fmt.Sprintf("s%d", len(m.sessions)+1)
	m.sessions[id] = &domain.Session{SessionID: id, ProblemReference: ref, Turns: append([]domain.Turn(nil), seed...)}
	out := m.sessions[id].Clone()
	return &out, nil
}

func (m *mapStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
	}
	out := s.Clone()
	return &out, nil
}

func (m *mapStore) AppendTurn(ctx context.Context, id string, turn domain.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
	}
	m.writes++
	s.Turns = append(s.Turns, turn)
	return nil
}

func (m *mapStore) BindProblemReferenceIfAbsent(ctx context.Context, id, ref string, turn domain.Turn) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return false, fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
	}
	if s.ProblemReference != "" || ref == "" {
		return false, nil
	}
	m.writes++
	s.ProblemReference = ref
	s.Turns = append(s.Turns, turn)
	return true, nil
}

func (m *mapStore) Close() error { return nil }

// putBlank inserts a session that has no problem reference yet.
func (m *mapStore) putBlank(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = &domain.Session{SessionID: id}
}

func (m *mapStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

var _ repository.Store = (*mapStore)(nil)

func newTestService(t *testing.T, store repository.Store, gw llm.Gateway, opts Options) *Service {
	t.Helper()
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)
	return New(store, history.New(history.DefaultWindow, false), gw, engine, opts)
}
