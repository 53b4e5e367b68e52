package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// LLM provider selection: "gemini" or "bedrock".
	LLMProvider    string
	GeminiAPIKey   string
	GeminiModelID  string
	BedrockModelID string
	AWSRegion      string
	LLMTimeout     time.Duration
	LLMMaxTokens   int
	LLMTemperature float64

	// Calendar seed: JSON of date -> list of times. Empty uses the built-in seed.
	CalendarSeedJSON string

	// Ledger: Postgres when DATABASE_URL is set, CSV file otherwise.
	DatabaseURL string
	LedgerPath  string

	// Conversation history (optional).
	RedisAddr     string
	RedisPassword string
	HistoryTTL    time.Duration

	// Booking confirmation email (optional).
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	CORSAllowedOrigins []string

	// Per-IP rate limit on the chat surfaces. Zero disables it.
	ChatRatePerSecond float64
	ChatBurst         int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		LLMProvider:    strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "gemini"))),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:  getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		LLMTimeout:     getEnvAsDuration("LLM_TIMEOUT", 10*time.Second),
		LLMMaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 500),
		LLMTemperature: getEnvAsFloat("LLM_TEMPERATURE", 0.7),

		CalendarSeedJSON: getEnv("CALENDAR_SEED_JSON", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		LedgerPath:  getEnv("LEDGER_PATH", "meeting_bookings.csv"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		HistoryTTL:    getEnvAsDuration("HISTORY_TTL", 24*time.Hour),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "AorySoft"),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),

		ChatRatePerSecond: getEnvAsFloat("CHAT_RATE_LIMIT", 5),
		ChatBurst:         getEnvAsInt("CHAT_BURST", 10),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
