// Package config loads Numa's runtime configuration the same way the
// teacher does: godotenv.Load() best-effort, then os.Getenv with defaults.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-driven knob named in spec.md §9's
// configuration surface.
type Config struct {
	DatabaseURL             string
	OpenAIAPIKey            string
	STTLanguage             string
	STTModel                string
	ReasoningModel          string
	IntentConfidenceThreshold float64
	AntExpenseThreshold     float64
	RequestDeadline         time.Duration
}

// Load reads .env (if present) then the process environment, applying the
// defaults from spec.md §9. Missing OPENAI_API_KEY logs a warning rather
// than failing — matching the teacher's cmd/app/main.go, which starts with
// a degraded agent rather than refusing to boot.
func Load() (Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Println("Warning: OPENAI_API_KEY is not set")
	}

	cfg := Config{
		DatabaseURL:               dbURL,
		OpenAIAPIKey:              apiKey,
		STTLanguage:               getEnvDefault("STT_LANGUAGE", "es"),
		STTModel:                  getEnvDefault("STT_MODEL", "whisper-1"),
		ReasoningModel:            getEnvDefault("REASONING_MODEL", "gpt-4o"),
		IntentConfidenceThreshold: getEnvFloatDefault("INTENT_CONFIDENCE_THRESHOLD", 0.7),
		AntExpenseThreshold:       getEnvFloatDefault("ANT_EXPENSE_THRESHOLD", 200),
		RequestDeadline:           time.Duration(getEnvIntDefault("REQUEST_DEADLINE_MS", 8000)) * time.Millisecond,
	}
	return cfg, nil
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloatDefault(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("config: invalid float for %s=%q, using default %v", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvIntDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: invalid int for %s=%q, using default %v", key, v, fallback)
		return fallback
	}
	return n
}
