// Package config provides configuration for the mentor server.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the server configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Session storage
	StoreBackend       string // "memory" or "sqlite"
	DatabaseURL        string
	MaxTurnsPerSession int // 0 keeps every turn

	// Upstream LLM
	LLMProvider    string // "gemini", "openai" or "mock"
	GeminiAPIKey   string
	GeminiModel    string
	GeminiBaseURL  string
	OpenAIBaseURL  string
	OpenAIAPIKey   string
	OpenAIModel    string
	LLMTimeout     time.Duration
	NativeSystem   bool
	Sampling       Sampling
	HistoryWindow  int
	MaxMessageSize int

	// Policy
	PolicyFile string

	// Logging
	LogLevel  string
	LogFormat string
}

// Sampling mirrors the generation options forwarded to the upstream API.
type Sampling struct {
	Temperature     float64
	TopK            int
	TopP            float64
	MaxOutputTokens int
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:           getEnvInt("PORT", 5000),
		StoreBackend:       getEnv("STORE_BACKEND", "memory"),
		DatabaseURL:        getEnv("DATABASE_URL", "file:mentor.db?mode=rwc&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"),
		MaxTurnsPerSession: getEnvInt("MAX_TURNS_PER_SESSION", 0),
		LLMProvider:        getEnv("LLM_PROVIDER", "gemini"),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", ""),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", "http://localhost:4000"),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		LLMTimeout:         time.Duration(getEnvInt("LLM_TIMEOUT_MS", 60000)) * time.Millisecond,
		NativeSystem:       getEnvBool("LLM_NATIVE_SYSTEM_ROLE", false),
		Sampling: Sampling{
			Temperature:     getEnvFloat("LLM_TEMPERATURE", 0.7),
			TopK:            getEnvInt("LLM_TOP_K", 40),
			TopP:            getEnvFloat("LLM_TOP_P", 0.95),
			MaxOutputTokens: getEnvInt("LLM_MAX_OUTPUT_TOKENS", 8192),
		},
		HistoryWindow:  getEnvInt("HISTORY_WINDOW", 10),
		MaxMessageSize: getEnvInt("MAX_MESSAGE_CHARS", 0),
		PolicyFile:     getEnv("POLICY_FILE", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
