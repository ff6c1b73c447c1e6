package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	UseMemoryQueue bool
	WorkerCount    int
	DatabaseURL    string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	TurnQueueURL        string

	BedrockModelID          string
	BedrockGuardrailModelID string
	BedrockFallbackModelID  string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	SessionTTL    time.Duration

	// Guardrail input caps. A gate truncates the message it sends to the
	// classifier, never the message stored in state.
	GuardrailMaxInput          int
	GuardrailMaxInputRelevance int
	GuardrailMaxInputSecurity  int

	DefaultProjectID   string
	CatalogResultLimit int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", false),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 2),
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		TurnQueueURL:        getEnv("TURN_QUEUE_URL", ""),

		BedrockModelID:          getEnv("BEDROCK_MODEL_ID", ""),
		BedrockGuardrailModelID: getEnv("BEDROCK_GUARDRAIL_MODEL_ID", ""),
		BedrockFallbackModelID:  getEnv("BEDROCK_FALLBACK_MODEL_ID", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", time.Hour),

		GuardrailMaxInput:          getEnvAsInt("GUARDRAIL_MAX_INPUT", 500),
		GuardrailMaxInputRelevance: getEnvAsInt("GUARDRAIL_MAX_INPUT_RELEVANCE", 300),
		GuardrailMaxInputSecurity:  getEnvAsInt("GUARDRAIL_MAX_INPUT_SECURITY", 400),

		DefaultProjectID:   strings.TrimSpace(getEnv("DEFAULT_PROJECT_ID", "WEB001")),
		CatalogResultLimit: getEnvAsInt("CATALOG_RESULT_LIMIT", 5),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
