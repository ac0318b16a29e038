package llm

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
	"github.com/xiaot623/leetmentor/internal/history"
	"github.com/xiaot623/leetmentor/internal/prompt"
)

// Client talks to any OpenAI-compatible chat completion endpoint
// (LiteLLM, vLLM, OpenAI itself).
type Client struct {
	baseURL      string
	apiKey       string
	model        string
	nativeSystem bool
	httpClient   *http.Client
}

// NewClient creates a new OpenAI-compatible client.
func NewClient(baseURL, apiKey, model string, nativeSystem bool, timeout time.Duration) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		apiKey:       apiKey,
		model:        model,
		nativeSystem: nativeSystem,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ChatCompletionRequest represents the OpenAI chat completion request.
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	TopK        *int          `json:"top_k,omitempty"`
}

// ChatMessage represents a chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse represents the OpenAI chat completion response.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice represents a completion choice.
type Choice struct {
	Index        int          `json:"index"`
	Message      *ChatMessage `json:"message,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// APIError represents the error details.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// errMalformedResponse marks a success status whose body does not decode.
var errMalformedResponse = errors.New("malformed response")

// Send implements Gateway.
func (c *Client) Send(ctx context.Context, payload history.Payload, sampling SamplingConfig) (string, error) {
	req := c.buildRequest(payload, sampling)

	resp, err := c.CreateChatCompletion(ctx, req)
	if errors.Is(err, errMalformedResponse) {
		return prompt.Fallback, nil
	}
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Message == nil || resp.Choices[0].Message.Content == "" {
		return prompt.Fallback, nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) buildRequest(payload history.Payload, sampling SamplingConfig) *ChatCompletionRequest {
	messages := make([]ChatMessage, 0, len(payload))
	for _, b := range payload {
		role := string(b.Role)
		if c.nativeSystem && b.Kind == history.KindInstruction {
			role = "system"
		}
		messages = append(messages, ChatMessage{Role: role, Content: b.Text})
	}

	temperature := sampling.Temperature
	topP := sampling.TopP
	topK := sampling.TopK
	maxTokens := sampling.MaxOutputTokens
	return &ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: &temperature,
		TopP:        &topP,
		TopK:        &topK,
		MaxTokens:   &maxTokens,
	}
}

// CreateChatCompletion sends a chat completion request (non-streaming).
func (c *Client) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.UpstreamError{Message: fmt.Sprintf("failed to send request: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.UpstreamError{Status: resp.StatusCode, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
			return nil, &domain.UpstreamError{Status: resp.StatusCode, Message: errResp.Error.Message}
		}
		return nil, &domain.UpstreamError{Status: resp.StatusCode, Message: string(respBody)}
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w: %v", errMalformedResponse, err)
	}

	return &result, nil
}

// setHeaders sets common request headers.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
