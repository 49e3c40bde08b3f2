package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
)

type Config struct {
	DBFile         string
	AdminAddr      string
	APIAddr        string
	UploadsPath    string
	AdminUser      string
	AdminPassword  string
	MaxUploadSize  int64
	AllowedOrigins []string
}

// Load reads configuration from the environment. A .env file in the working
// directory, if present, fills in variables that are not already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	maxUpload, err := humanize.ParseBytes(getEnv("MAX_UPLOAD_SIZE", "64MB"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_SIZE: %w", err)
	}

	cfg := &Config{
		DBFile:         getEnv("CHANNEL_DB", "channel.db"),
		AdminAddr:      getEnv("ADMIN_ADDR", "localhost:8081"),
		APIAddr:        getEnv("API_ADDR", ":8080"),
		UploadsPath:    getEnv("UPLOADS_PATH", "uploads"),
		AdminUser:      getEnv("ADMIN_USER", "admin"),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		MaxUploadSize:  int64(maxUpload),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required")
	}

	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be greater than 0")
	}

	if c.UploadsPath == "" {
		return fmt.Errorf("UPLOADS_PATH cannot be empty")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
