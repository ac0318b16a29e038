package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/xiaot623/leetmentor/internal/domain"
)

// ErrorReply is shown locally when a message exchange fails. It is never
// sent to the server.
const ErrorReply = "Sorry, I encountered an error. Please try again."

var (
	// ErrNoSession is returned by Send before a session is started or
	// restored.
	ErrNoSession = errors.New("no active session")
	// ErrInvalidURL rejects references that are not LeetCode problem URLs.
	ErrInvalidURL = errors.New("please enter a valid LeetCode URL")
)

var leetCodeURL = regexp.MustCompile(`(?i)^https?://(www\.)?leetcode\.com/(problems|contest|explore)/[\w-]+`)

// ValidURL reports whether url looks like a LeetCode problem page.
func ValidURL(url string) bool {
	return leetCodeURL.MatchString(url)
}

// Controller owns the local mirror of one session.
type Controller struct {
	api   API
	store Persistence

	mu    sync.Mutex
	state State
}

// NewController creates a controller with an empty mirror.
func NewController(api API, store Persistence) *Controller {
	return &Controller{api: api, store: store}
}

// Restore loads the saved mirror verbatim. It reports whether a session
// was found.
func (c *Controller) Restore() (bool, error) {
	st, err := c.store.Load()
	if err != nil {
		return false, err
	}
	if st == nil || st.SessionID == "" {
		return false, nil
	}

	c.mu.Lock()
	c.state = *st
	c.mu.Unlock()
	return true, nil
}

// Start creates a session and replaces the mirror with its opening message.
func (c *Controller) Start(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("please enter a LeetCode problem URL: %w", ErrInvalidURL)
	}
	if !ValidURL(url) {
		return "", ErrInvalidURL
	}

	resp, err := c.api.StartSession(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}

	c.mu.Lock()
	c.state = State{
		SessionID:   resp.SessionID,
		LeetCodeURL: url,
		Messages:    []domain.Turn{{Role: domain.RoleAssistant, Content: resp.FirstMessage}},
	}
	st := c.snapshot()
	c.mu.Unlock()

	c.persist(st)
	return resp.FirstMessage, nil
}

// Send posts text and records both sides of the exchange. On failure the
// mirror gets ErrorReply in place of the reply and the error is returned.
func (c *Controller) Send(ctx context.Context, text string) (string, error) {
	c.mu.Lock()
	if c.state.SessionID == "" {
		c.mu.Unlock()
		return "", ErrNoSession
	}
	c.state.Messages = append(c.state.Messages, domain.Turn{Role: domain.RoleUser, Content: text})
	req := domain.MessageRequest{
		SessionID:   c.state.SessionID,
		Message:     text,
		LeetCodeURL: c.state.LeetCodeURL,
	}
	c.mu.Unlock()

	reply, err := c.api.SendMessage(ctx, req)

	c.mu.Lock()
	if err != nil {
		c.state.Messages = append(c.state.Messages, domain.Turn{Role: domain.RoleAssistant, Content: ErrorReply})
	} else {
		c.state.Messages = append(c.state.Messages, domain.Turn{Role: domain.RoleAssistant, Content: reply})
	}
	st := c.snapshot()
	c.mu.Unlock()

	c.persist(st)
	if err != nil {
		return ErrorReply, err
	}
	return reply, nil
}

// Progress asks the server for the session's progress.
func (c *Controller) Progress(ctx context.Context) (*domain.ProgressResponse, error) {
	c.mu.Lock()
	id := c.state.SessionID
	c.mu.Unlock()
	if id == "" {
		return nil, ErrNoSession
	}
	return c.api.Progress(ctx, id)
}

// Reset forgets the session locally and clears persistence.
func (c *Controller) Reset() error {
	c.mu.Lock()
	c.state = State{}
	c.mu.Unlock()
	return c.store.Clear()
}

// State returns a copy of the mirror.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// snapshot copies the state. Caller must hold mu.
func (c *Controller) snapshot() State {
	st := c.state
	st.Messages = append([]domain.Turn(nil), c.state.Messages...)
	return st
}

func (c *Controller) persist(st State) {
	if st.SessionID == "" || len(st.Messages) == 0 {
		return
	}
	if err := c.store.Save(st); err != nil {
		slog.Error("failed to save session", "session_id", st.SessionID, "error", err)
	}
}
