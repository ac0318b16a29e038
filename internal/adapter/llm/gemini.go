package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/xiaot623/leetmentor/internal/domain"
	"github.com/xiaot623/leetmentor/internal/history"
	"github.com/xiaot623/leetmentor/internal/prompt"
)

// GeminiClient sends payloads to the Gemini API through the genai SDK.
type GeminiClient struct {
	client       *genai.Client
	modelName    string
	nativeSystem bool
}

// NewGeminiClient creates a Gateway backed by the Gemini developer API.
// baseURL overrides the API endpoint and may be empty.
func NewGeminiClient(ctx context.Context, apiKey, modelName, baseURL string, nativeSystem bool, timeout time.Duration) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY must be set")
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GeminiClient{
		client:       client,
		modelName:    modelName,
		nativeSystem: nativeSystem,
	}, nil
}

// Send implements Gateway.
func (g *GeminiClient) Send(ctx context.Context, payload history.Payload, sampling SamplingConfig) (string, error) {
	contents, system := g.contents(payload)

	temp := float32(sampling.Temperature)
	topP := float32(sampling.TopP)
	topK := float32(sampling.TopK)

	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		TopP:            &topP,
		TopK:            &topK,
		MaxOutputTokens: int32(sampling.MaxOutputTokens),
	}
	if system != nil {
		cfg.SystemInstruction = system
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return "", upstreamError(err)
	}

	if text := firstText(res); text != "" {
		return text, nil
	}
	return prompt.Fallback, nil
}

// contents maps payload blocks onto Gemini roles. Gemini only knows user
// and model, so assistant turns become model turns.
func (g *GeminiClient) contents(payload history.Payload) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var system []string
	for _, b := range payload {
		if g.nativeSystem && b.Kind == history.KindInstruction {
			system = append(system, b.Text)
			continue
		}
		role := genai.Role(genai.RoleUser)
		if b.Role == domain.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(b.Text, role))
	}

	if len(system) == 0 {
		return contents, nil
	}
	return contents, genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
}

func firstText(res *genai.GenerateContentResponse) string {
	if res == nil || len(res.Candidates) == 0 {
		return ""
	}
	c := res.Candidates[0]
	if c == nil || c.Content == nil || len(c.Content.Parts) == 0 || c.Content.Parts[0] == nil {
		return ""
	}
	return c.Content.Parts[0].Text
}

func upstreamError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &domain.UpstreamError{Status: apiErr.Code, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &domain.UpstreamError{Status: apiErrPtr.Code, Message: apiErrPtr.Message}
	}
	return &domain.UpstreamError{Message: err.Error()}
}
