package llm

import (
	"context"
	"fmt"

	"github.com/xiaot623/leetmentor/internal/domain"
	"github.com/xiaot623/leetmentor/internal/history"
)

// MockClient is a Gateway that answers without any network call.
type MockClient struct{}

// NewMockClient creates a new mock gateway.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Send returns a canned reply built from the latest user turn.
func (m *MockClient) Send(ctx context.Context, payload history.Payload, sampling SamplingConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &domain.UpstreamError{Message: err.Error()}
	}
	return m.generateMockResponse(payload), nil
}

// generateMockResponse generates a mock response based on the payload.
func (m *MockClient) generateMockResponse(payload history.Payload) string {
	var lastUserMessage string
	conv := payload.Conversation()
	for i := len(conv) - 1; i >= 0; i-- {
		if conv[i].Role == domain.RoleUser {
			lastUserMessage = conv[i].Text
			break
		}
	}

	if lastUserMessage == "" {
		return "[MOCK] This is a mock response from the tutor."
	}

	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUserMessage, 100))
}

// truncate keeps at most maxLen runes of s.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
