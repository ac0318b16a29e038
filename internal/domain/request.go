package domain

// StartSessionRequest is the body of POST /start-session.
type StartSessionRequest struct {
	LeetCodeURL string `json:"leetCodeUrl"`
}

// StartSessionResponse is returned after a session is created.
type StartSessionResponse struct {
	SessionID    string `json:"sessionId"`
	FirstMessage string `json:"firstMessage"`
}

// MessageRequest is the body of POST /message.
type MessageRequest struct {
	SessionID   string `json:"sessionId"`
	Message     string `json:"message"`
	LeetCodeURL string `json:"leetCodeUrl,omitempty"`
}

// MessageResponse carries the assistant reply.
type MessageResponse struct {
	Response string `json:"response"`
}

// ProgressRequest identifies a session for progress queries over RPC.
type ProgressRequest struct {
	SessionID string `json:"sessionId"`
}

// ProgressResponse is returned by GET /progress/:sessionId.
type ProgressResponse struct {
	Progress     ProgressLabel `json:"progress"`
	MessageCount int           `json:"messageCount"`
	LeetCodeURL  string        `json:"leetCodeUrl"`
}

// HistoryRequest identifies a session for history queries over RPC.
type HistoryRequest struct {
	SessionID string `json:"sessionId"`
}

// HistoryResponse is returned by GET /history/:sessionId.
type HistoryResponse struct {
	History     []Turn `json:"history"`
	LeetCodeURL string `json:"leetCodeUrl"`
}

// ErrorResponse is the error body shared by all endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
