package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/xiaot623/leetmentor/internal/domain"
	"github.com/xiaot623/leetmentor/internal/observability"
	"github.com/xiaot623/leetmentor/internal/policy"
	"github.com/xiaot623/leetmentor/internal/prompt"
)

// StartResult is returned by StartSession.
type StartResult struct {
	SessionID    string
	FirstMessage string
}

// Progress is the derived progress view of a session.
type Progress struct {
	Label            domain.ProgressLabel
	MessageCount     int
	ProblemReference string
}

// History is the user-visible transcript of a session.
type History struct {
	Turns            []domain.Turn
	ProblemReference string
}

// StartSession creates a session bound to problemReference and records the
// fixed opening message.
func (s *Service) StartSession(ctx context.Context, problemReference string) (*StartResult, error) {
	if problemReference == "" {
		return nil, fmt.Errorf("leetCodeUrl is required: %w", domain.ErrInvalidInput)
	}
	if err := s.admit(ctx, policy.Input{
		Action:           policy.ActionStart,
		ProblemReference: problemReference,
	}); err != nil {
		return nil, err
	}

	session, err := s.store.Create(ctx, problemReference, prompt.SeedTurns(problemReference))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	opening := domain.Turn{Role: domain.RoleAssistant, Content: prompt.OpeningMessage}
	if err := s.store.AppendTurn(ctx, session.SessionID, opening); err != nil {
		return nil, fmt.Errorf("failed to save opening message: %w", err)
	}

	observability.LoggerFromContext(ctx).Info("session started",
		"session_id", session.SessionID,
		"problem", problemReference,
	)

	return &StartResult{SessionID: session.SessionID, FirstMessage: prompt.OpeningMessage}, nil
}

// PostMessage records message, asks the upstream for a reply and records
// the reply. An upstream failure keeps the user turn and returns the
// *domain.UpstreamError unchanged. Calls on one session run one at a time.
func (s *Service) PostMessage(ctx context.Context, sessionID, message, problemReferenceFallback string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("sessionId is required: %w", domain.ErrSessionNotFound)
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	logger := observability.LoggerFromContext(ctx).With("session_id", sessionID)

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}

	ref := session.ProblemReference
	if ref == "" {
		ref = problemReferenceFallback
	}
	if err := s.admit(ctx, policy.Input{
		Action:           policy.ActionMessage,
		ProblemReference: ref,
		Message:          message,
		MessageChars:     utf8.RuneCountInString(message),
		MaxMessageChars:  s.maxChars,
	}); err != nil {
		return "", err
	}

	if session.ProblemReference == "" && problemReferenceFallback != "" {
		bound, err := s.store.BindProblemReferenceIfAbsent(ctx, sessionID, problemReferenceFallback,
			prompt.LateBindingTurn(problemReferenceFallback))
		if err != nil {
			return "", fmt.Errorf("failed to bind problem reference: %w", err)
		}
		if bound {
			logger.Info("problem reference bound", "problem", problemReferenceFallback)
		}
	}

	if err := s.store.AppendTurn(ctx, sessionID, domain.Turn{Role: domain.RoleUser, Content: message}); err != nil {
		return "", fmt.Errorf("failed to save user message: %w", err)
	}

	// Re-read so the payload includes the user turn and any bound reference.
	session, err = s.store.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	payload := s.assembler.Assemble(session)

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := s.gateway.Send(callCtx, payload, s.sampling)
	latency := time.Since(start)
	if err != nil {
		var upErr *domain.UpstreamError
		if !errors.As(err, &upErr) {
			err = &domain.UpstreamError{Message: err.Error()}
		}
		logger.Error("upstream call failed", "error", err, "latency_ms", latency.Milliseconds())
		return "", err
	}

	if err := s.store.AppendTurn(ctx, sessionID, domain.Turn{Role: domain.RoleAssistant, Content: reply}); err != nil {
		return "", fmt.Errorf("failed to save assistant message: %w", err)
	}

	logger.Info("message answered",
		"blocks", len(payload),
		"latency_ms", latency.Milliseconds(),
	)
	return reply, nil
}

// GetProgress returns the progress label and the number of user turns.
func (s *Service) GetProgress(ctx context.Context, sessionID string) (*Progress, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	count := session.CountRole(domain.RoleUser)
	return &Progress{
		Label:            domain.ProgressFor(count),
		MessageCount:     count,
		ProblemReference: session.ProblemReference,
	}, nil
}

// GetHistory returns the session's user and assistant turns in order.
func (s *Service) GetHistory(ctx context.Context, sessionID string) (*History, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &History{
		Turns:            session.VisibleTurns(),
		ProblemReference: session.ProblemReference,
	}, nil
}

func (s *Service) admit(ctx context.Context, input policy.Input) error {
	if s.policyEngine == nil {
		return nil
	}
	res, err := s.policyEngine.Evaluate(ctx, input)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("policy evaluation failed, allowing", "error", err)
		return nil
	}
	if !res.Allowed() {
		reason := res.Reason
		if reason == "" {
			reason = "rejected by policy"
		}
		return fmt.Errorf("%s: %w", reason, domain.ErrInvalidInput)
	}
	return nil
}
