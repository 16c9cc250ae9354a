package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	Port           string
	LogMode        string
	ModelKey       string
	ModelEndpoint  string
	ModelName      string
	ModelTimeout   time.Duration
	MaxPromptChars int
	Database       string
	UploadDir      string
}

// Load reads configuration from the environment, providing sensible defaults.
func Load() (Config, error) {
	// Load .env file if it exists (useful for development)
	_ = godotenv.Load()

	key := os.Getenv("OPENROUTER_API_KEY")
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}

	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		LogMode:        getEnv("LOG_MODE", "dev"),
		ModelKey:       key,
		ModelEndpoint:  getEnv("MODEL_ENDPOINT", "https://openrouter.ai/api/v1"),
		ModelName:      getEnv("MODEL_NAME", "deepseek/deepseek-chat-v3-0324:free"),
		ModelTimeout:   getDuration("MODEL_TIMEOUT", 30*time.Second),
		MaxPromptChars: getInt("MAX_PROMPT_CHARS", 12000),
		Database:       getEnv("DATABASE_PATH", "./data/quizgen.db"),
		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return cfg, fmt.Errorf("ensure upload dir %s: %w", cfg.UploadDir, err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o755); err != nil {
		return cfg, fmt.Errorf("ensure database dir %s: %w", cfg.Database, err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
