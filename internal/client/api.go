// Package client drives tutoring sessions from the user side and mirrors
// them into local persistence.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xiaot623/leetmentor/internal/domain"
)

// API is the server surface the controller needs.
type API interface {
	StartSession(ctx context.Context, leetCodeURL string) (*domain.StartSessionResponse, error)
	SendMessage(ctx context.Context, req domain.MessageRequest) (string, error)
	Progress(ctx context.Context, sessionID string) (*domain.ProgressResponse, error)
}

// APIError is a non-success answer from the server.
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("server error [%d]: %s (%s)", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("server error [%d]: %s", e.Status, e.Message)
}

// HTTPAPI calls the REST endpoints.
type HTTPAPI struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPAPI creates a REST client for the server at baseURL.
func NewHTTPAPI(baseURL string, timeout time.Duration) *HTTPAPI {
	return &HTTPAPI{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// StartSession calls POST /start-session.
func (a *HTTPAPI) StartSession(ctx context.Context, leetCodeURL string) (*domain.StartSessionResponse, error) {
	var resp domain.StartSessionResponse
	if err := a.do(ctx, http.MethodPost, "/start-session", domain.StartSessionRequest{LeetCodeURL: leetCodeURL}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendMessage calls POST /message.
func (a *HTTPAPI) SendMessage(ctx context.Context, req domain.MessageRequest) (string, error) {
	var resp domain.MessageResponse
	if err := a.do(ctx, http.MethodPost, "/message", req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// Progress calls GET /progress/:sessionId.
func (a *HTTPAPI) Progress(ctx context.Context, sessionID string) (*domain.ProgressResponse, error) {
	var resp domain.ProgressResponse
	if err := a.do(ctx, http.MethodGet, "/progress/"+sessionID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *HTTPAPI) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: string(data)}
		var errResp domain.ErrorResponse
		if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error != "" {
			apiErr.Message = errResp.Error
			apiErr.Details = errResp.Details
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// IsAPIError reports whether err came back from the server rather than
// the transport.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
