package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/leetmentor/internal/domain"
	"github.com/xiaot623/leetmentor/internal/prompt"
)

type geminiRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	SystemInstruction *struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"systemInstruction"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		TopK            float64 `json:"topK"`
		TopP            float64 `json:"topP"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

func newGeminiServer(t *testing.T, status int, body string, got *geminiRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestGemini(t *testing.T, url string, native bool) *GeminiClient {
	t.Helper()
	client, err := NewGeminiClient(context.Background(), "test-key", "gemini-test", url, native, 5*time.Second)
	require.NoError(t, err)
	return client
}

func TestGeminiSend(t *testing.T) {
	var got geminiRequest
	server := newGeminiServer(t, http.StatusOK,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"what does the input look like?"}]}}]}`, &got)

	text, err := newTestGemini(t, server.URL, false).Send(context.Background(), testPayload(), testSampling)
	require.NoError(t, err)
	assert.Equal(t, "what does the input look like?", text)

	require.Len(t, got.Contents, 5)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "[SYSTEM INSTRUCTION]: rules", got.Contents[0].Parts[0].Text)
	assert.Equal(t, "model", got.Contents[2].Role)
	assert.Equal(t, "user", got.Contents[4].Role)
	assert.Nil(t, got.SystemInstruction)
	assert.InDelta(t, 0.7, got.GenerationConfig.Temperature, 1e-6)
	assert.InDelta(t, 40, got.GenerationConfig.TopK, 1e-6)
	assert.InDelta(t, 0.95, got.GenerationConfig.TopP, 1e-6)
	assert.Equal(t, 8192, got.GenerationConfig.MaxOutputTokens)
}

func TestGeminiSendNativeSystemRole(t *testing.T) {
	var got geminiRequest
	server := newGeminiServer(t, http.StatusOK,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]}}]}`, &got)

	_, err := newTestGemini(t, server.URL, true).Send(context.Background(), testPayload(), testSampling)
	require.NoError(t, err)

	require.Len(t, got.Contents, 4)
	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "[SYSTEM INSTRUCTION]: rules", got.SystemInstruction.Parts[0].Text)
}

func TestGeminiSendFallback(t *testing.T) {
	for name, body := range map[string]string{
		"no candidates": `{"candidates":[]}`,
		"no parts":      `{"candidates":[{"content":{"role":"model","parts":[]}}]}`,
		"empty text":    `{"candidates":[{"content":{"role":"model","parts":[{"text":""}]}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			server := newGeminiServer(t, http.StatusOK, body, nil)

			text, err := newTestGemini(t, server.URL, false).Send(context.Background(), testPayload(), testSampling)
			require.NoError(t, err)
			assert.Equal(t, prompt.Fallback, text)
		})
	}
}

func TestGeminiSendUpstreamError(t *testing.T) {
	server := newGeminiServer(t, http.StatusBadRequest,
		`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`, nil)

	_, err := newTestGemini(t, server.URL, false).Send(context.Background(), testPayload(), testSampling)

	var upErr *domain.UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusBadRequest, upErr.Status)
	assert.Contains(t, upErr.Message, "API key not valid")
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), "", "gemini-test", "", false, time.Second)
	require.Error(t, err)
}
