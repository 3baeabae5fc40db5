// Package config loads settings for the taskboard server (environment) and
// the taskedit client (YAML file plus environment).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Server struct {
	Addr           string
	LogLevel       slog.Level
	DBPath         string // empty keeps tasks in memory
	AuthMode       string
	APIKey         string
	BearerToken    string
	RateLimitRPS   float64
	RateLimitBurst int
	OTelExporter   string // none, stdout or otlp
	AllowedOrigins []string
	RequestTimeout time.Duration
}

func LoadServer() (Server, error) {
	cfg := Server{
		Addr:           getEnv("ADDR", ":8080"),
		LogLevel:       ParseLevel(os.Getenv("LOG_LEVEL")),
		DBPath:         strings.TrimSpace(os.Getenv("DB_PATH")),
		AuthMode:       getEnv("AUTH_MODE", "none"),
		APIKey:         os.Getenv("API_KEY"),
		BearerToken:    os.Getenv("BEARER_TOKEN"),
		OTelExporter:   strings.ToLower(getEnv("OTEL_EXPORTER", "none")),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}

	var err error
	if cfg.RateLimitRPS, err = strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "0"), 64); err != nil {
		return Server{}, fmt.Errorf("RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(getEnv("RATE_LIMIT_BURST", "20")); err != nil {
		return Server{}, fmt.Errorf("RATE_LIMIT_BURST: %w", err)
	}
	if cfg.RequestTimeout, err = time.ParseDuration(getEnv("REQUEST_TIMEOUT", "15s")); err != nil {
		return Server{}, fmt.Errorf("REQUEST_TIMEOUT: %w", err)
	}

	switch cfg.OTelExporter {
	case "none", "stdout", "otlp":
	default:
		return Server{}, fmt.Errorf("OTEL_EXPORTER: unknown exporter %q", cfg.OTelExporter)
	}
	return cfg, nil
}

// ParseLevel maps LOG_LEVEL values onto slog levels; anything unknown is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
