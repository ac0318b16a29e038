// Package llm provides the gateways that deliver assembled payloads to a
// generative-text API.
package llm

import (
	"context"

	"github.com/xiaot623/leetmentor/internal/history"
)

// SamplingConfig is forwarded unchanged with every request.
type SamplingConfig struct {
	Temperature     float64
	TopK            int
	TopP            float64
	MaxOutputTokens int
}

// Gateway defines the interface for upstream generation.
type Gateway interface {
	// Send delivers payload and returns the first candidate's text. An empty
	// or malformed success yields prompt.Fallback; transport failures and
	// non-success statuses return *domain.UpstreamError. One attempt only.
	Send(ctx context.Context, payload history.Payload, sampling SamplingConfig) (string, error)
}

// Ensure the gateways implement Gateway.
var (
	_ Gateway = (*Client)(nil)
	_ Gateway = (*GeminiClient)(nil)
	_ Gateway = (*MockClient)(nil)
)
