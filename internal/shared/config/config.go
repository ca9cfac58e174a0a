package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	DatabaseURL     string
	Env             string

	// Entitlement.
	FreeTierLimit int

	// Rate limiting (fixed windows over a shared counter backend).
	RateGlobalMax    int
	RateGlobalWindow time.Duration
	RateAuthMax      int
	RateAuthWindow   time.Duration
	RateAIFreeMax    int
	RateAIProMax     int
	RateAIWindow     time.Duration

	// Analysis pipeline.
	AIModels         []string
	GeminiAPIKey     string
	OpenAIAPIKey     string
	MaxUploadBytes   int64
	PromptCharBudget int
	MaxAttempts      int
	AnalysisTimeout  time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		DatabaseURL:     dbURL,
		Env:             env,

		FreeTierLimit: getEnvInt("FREE_TIER_LIMIT", 3),

		RateGlobalMax:    getEnvInt("RATE_GLOBAL_MAX", 100),
		RateGlobalWindow: getEnvDuration("RATE_GLOBAL_WINDOW", 15*time.Minute),
		RateAuthMax:      getEnvInt("RATE_AUTH_MAX", 10),
		RateAuthWindow:   getEnvDuration("RATE_AUTH_WINDOW", time.Hour),
		RateAIFreeMax:    getEnvInt("RATE_AI_FREE_MAX", 5),
		RateAIProMax:     getEnvInt("RATE_AI_PRO_MAX", 50),
		RateAIWindow:     getEnvDuration("RATE_AI_WINDOW", time.Hour),

		AIModels:         splitAndTrim(getEnv("AI_MODELS", "gemini:gemini-2.0-flash,gemini:gemini-1.5-pro,gemini:gemini-1.5-flash")),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		MaxUploadBytes:   getEnvInt64("MAX_UPLOAD_BYTES", 10<<20),
		PromptCharBudget: getEnvInt("PROMPT_CHAR_BUDGET", 15000),
		MaxAttempts:      getEnvInt("ANALYSIS_MAX_ATTEMPTS", 3),
		AnalysisTimeout:  getEnvDuration("ANALYSIS_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config %s invalid int %q, using default %d", key, raw, def)
		return def
	}
	return val
}

func getEnvInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("config %s invalid int %q, using default %d", key, raw, def)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	// Accept either a Go duration string or a bare number of seconds.
	if val, err := time.ParseDuration(raw); err == nil && val > 0 {
		return val
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	log.Printf("config %s invalid duration %q, using default %s", key, raw, def)
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
