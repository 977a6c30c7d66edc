package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port           string
	Env            string
	HistoryFile    string
	PreviewEnabled bool
}

// Load reads configuration from environment variables.
// In development, it loads from a .env file if present.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "3000"),
		Env:            getEnv("ENV", "development"),
		HistoryFile:    getEnv("HISTORY_FILE", "history.json"),
		PreviewEnabled: getEnv("PREVIEW_ENABLED", "true") == "true",
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
