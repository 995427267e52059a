package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	// Backend configuration
	Provider        string // "openai" or "anthropic"
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	// Market data API
	MarketAPIBaseURL string
	MarketAPIKey     string
	// Optional Postgres conversation store; empty means in-memory only
	DatabaseURL string
	// System prompt prepended to every conversation
	SystemPrompt string
	// Translate Cyrillic user messages to English before knowledge search
	TranslateQueries bool
	// Budget overrides
	MaxHistoryMessages int
	MaxPromptChars     int
	RAGContextMaxChars int
	ResponseMaxTokens  int
	RetryMaxAttempts   int
	RetryBaseDelay     time.Duration
	RPMLimit           int
	TPMLimit           int
	SummaryMaxChars    int
	// Debug enables debug-level logging
	Debug bool
	// LogDir writes logs to timestamped files in addition to stdout;
	// empty disables file logging
	LogDir string
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),

		Provider:        getEnv("PROVIDER", "openai"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4-turbo-preview"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-haiku-4-5-20251001"),

		MarketAPIBaseURL: getEnv("LUNARCRUSH_API_BASE_URL", ""),
		MarketAPIKey:     getEnv("LUNARCRUSH_API_KEY", ""),

		DatabaseURL:  getEnv("DATABASE_URL", ""),
		SystemPrompt: getEnv("SYSTEM_PROMPT", ""),

		TranslateQueries: getEnv("TRANSLATE_QUERIES", "true") == "true",

		MaxHistoryMessages: getEnvInt("MAX_HISTORY_MESSAGES", DefaultMaxHistoryMessages),
		MaxPromptChars:     getEnvInt("MAX_PROMPT_CHARS", DefaultMaxPromptChars),
		RAGContextMaxChars: getEnvInt("RAG_CONTEXT_MAX_CHARS", DefaultRAGContextMaxChars),
		ResponseMaxTokens:  getEnvInt("RESPONSE_MAX_TOKENS", DefaultResponseMaxTokens),
		RetryMaxAttempts:   getEnvInt("RETRY_MAX_ATTEMPTS", DefaultRetryMaxAttempts),
		RetryBaseDelay:     getEnvDuration("RETRY_BASE_DELAY", DefaultRetryBaseDelay),
		RPMLimit:           getEnvInt("RPM_LIMIT", 0),
		TPMLimit:           getEnvInt("TPM_LIMIT", 0),
		SummaryMaxChars:    getEnvInt("SUMMARY_MAX_CHARS", DefaultSummaryMaxChars),

		Debug:  getEnv("DEBUG", getDefaultDebug(env)) == "true",
		LogDir: getEnv("LOG_DIR", ""),
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
