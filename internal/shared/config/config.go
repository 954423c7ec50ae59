package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"report-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowOrigin    []string
	ObjectStoreType    string
	LocalStoreDir      string
	AWSRegion          string
	S3Bucket           string
	S3Prefix           string
	SSEKMSKeyID        string
	LLMProvider        string
	LLMModel           string
	OpenAIAPIKey       string
	DatabaseURL        string
	APIKeys            []string
	RateLimitPerMinute int
	RateLimitBurst     int
	NarrativeTimeout   time.Duration
	VariantsFile       string
	SQSQueueURL        string
	WorkerConcurrency  int
}

var defaults = map[string]any{
	"PORT":               "8080",
	"ENV":                "dev",
	"LOG_LEVEL":          "info",
	"CORS_ALLOW_ORIGINS": "http://localhost:5173",
	"OBJECT_STORE":       "local",
	"LOCAL_STORE_DIR":    "./data",
	"LLM_PROVIDER":       "openai",
	"LLM_MODEL":          "gpt-4o-mini",
	"RATE_LIMIT_RPM":     60,
	"RATE_LIMIT_BURST":   10,
	"NARRATIVE_TIMEOUT":  "45s",
	"WORKER_CONCURRENCY": 2,
}

var keys = []string{
	"AWS_REGION", "S3_BUCKET", "S3_PREFIX", "SSE_KMS_KEY_ID", "OPENAI_API_KEY",
	"DATABASE_URL", "API_KEYS", "REPORT_VARIANTS_FILE", "SQS_QUEUE_URL",
}

// Load reads configuration from the environment, falling back to .env files
// and defaults.
func Load() Config {
	return load(newViper(".env", "cmd/.env"))
}

func newViper(envFiles ...string) *viper.Viper {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	for _, key := range keys {
		v.SetDefault(key, "")
	}
	// Best-effort load of local env files for dev convenience.
	for _, path := range envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.MergeInConfig(); err != nil {
			telemetry.Warn("config.env_file_unreadable", map[string]any{"path": path, "error": err})
		}
	}
	v.AutomaticEnv()
	return v
}

func load(v *viper.Viper) Config {
	env := normalizeEnv(v.GetString("ENV"))
	dbURL := strings.TrimSpace(v.GetString("DATABASE_URL"))
	if env == "production" && dbURL == "" {
		telemetry.Warn("config.database_url_missing", map[string]any{"env": env})
	}

	timeout := v.GetDuration("NARRATIVE_TIMEOUT")
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	return Config{
		Port:               v.GetString("PORT"),
		Env:                env,
		LogLevel:           v.GetString("LOG_LEVEL"),
		CORSAllowOrigin:    splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),
		ObjectStoreType:    normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:      v.GetString("LOCAL_STORE_DIR"),
		AWSRegion:          v.GetString("AWS_REGION"),
		S3Bucket:           v.GetString("S3_BUCKET"),
		S3Prefix:           v.GetString("S3_PREFIX"),
		SSEKMSKeyID:        v.GetString("SSE_KMS_KEY_ID"),
		LLMProvider:        strings.ToLower(strings.TrimSpace(v.GetString("LLM_PROVIDER"))),
		LLMModel:           v.GetString("LLM_MODEL"),
		OpenAIAPIKey:       v.GetString("OPENAI_API_KEY"),
		DatabaseURL:        dbURL,
		APIKeys:            splitAndTrim(v.GetString("API_KEYS")),
		RateLimitPerMinute: positive(v.GetInt("RATE_LIMIT_RPM"), 60),
		RateLimitBurst:     positive(v.GetInt("RATE_LIMIT_BURST"), 10),
		NarrativeTimeout:   timeout,
		VariantsFile:       strings.TrimSpace(v.GetString("REPORT_VARIANTS_FILE")),
		SQSQueueURL:        strings.TrimSpace(v.GetString("SQS_QUEUE_URL")),
		WorkerConcurrency:  positive(v.GetInt("WORKER_CONCURRENCY"), 2),
	}
}

func positive(val, def int) int {
	if val > 0 {
		return val
	}
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
