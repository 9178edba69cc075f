package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	HTTPTimeout time.Duration
	LogLevel    slog.Level

	DatabaseURL   string
	EncryptionKey string

	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectURL   string

	AdsAPIBaseURL     string
	AdsDeveloperToken string
	DefaultCustomerID string

	AnthropicAPIKey string
	AnthropicModel  string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

func FromEnv() Config {
	to := 15 * time.Second
	if v := os.Getenv("HTTP_TIMEOUT_SECONDS"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			to = d
		}
	}
	lvl := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		lvl = slog.LevelDebug
	}
	return Config{
		Port:        envOr("PORT", "8080"),
		HTTPTimeout: to,
		LogLevel:    lvl,

		DatabaseURL:   os.Getenv("DATABASE_URL"),
		EncryptionKey: os.Getenv("SECRET_ENCRYPTION_KEY"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		OAuthRedirectURL:   os.Getenv("OAUTH_REDIRECT_URL"),

		AdsAPIBaseURL:     envOr("ADS_API_BASE_URL", "https://googleads.googleapis.com"),
		AdsDeveloperToken: os.Getenv("GOOGLE_ADS_DEVELOPER_TOKEN"),
		DefaultCustomerID: envOr("GOOGLE_ADS_CUSTOMER_ID", "6207912456"),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  envOr("ANTHROPIC_MODEL", "claude-haiku-4-5-20251001"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     envInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		FromEmail:    os.Getenv("FROM_EMAIL"),
		FromName:     envOr("FROM_NAME", "SparkData Analytics"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}
