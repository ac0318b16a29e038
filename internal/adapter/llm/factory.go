package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/xiaot623/leetmentor/internal/config"
)

const (
	// EnvMode is the environment variable name for mode selection.
	EnvMode = "LEETMENTOR_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// Provider names accepted in LLM_PROVIDER.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// NewGateway creates a gateway from cfg.LLMProvider.
// LEETMENTOR_MODE=MOCK forces the mock regardless of provider.
func NewGateway(ctx context.Context, cfg *config.Config) (Gateway, error) {
	provider := strings.ToLower(cfg.LLMProvider)
	if os.Getenv(EnvMode) == ModeMock {
		slog.Info("LEETMENTOR_MODE=MOCK detected, using mock gateway")
		provider = ProviderMock
	}

	switch provider {
	case ProviderMock:
		return NewMockClient(), nil
	case ProviderOpenAI:
		return NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.NativeSystem, cfg.LLMTimeout), nil
	case ProviderGemini, "":
		return NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL, cfg.NativeSystem, cfg.LLMTimeout)
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}
