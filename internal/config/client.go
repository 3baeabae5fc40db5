package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Client struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Token     string        `yaml:"token"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second, 0 disables pacing
	LogFile   string        `yaml:"log_file"`
	LogLevel  string        `yaml:"log_level"`
}

func DefaultClient() Client {
	return Client{
		BaseURL: "http://localhost:8080",
		Timeout: 10 * time.Second,
	}
}

// DefaultClientPath is ~/.config/taskedit/config.yaml (or the OS equivalent).
func DefaultClientPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "taskedit", "config.yaml")
}

// LoadClient reads path (a missing file is not an error) and then applies
// TASKBOARD_URL, TASKBOARD_API_KEY, TASKBOARD_TOKEN and TASKEDIT_LOG.
func LoadClient(path string) (Client, error) {
	cfg := DefaultClient()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Client{}, fmt.Errorf("read client config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Client{}, fmt.Errorf("parse client config %s: %w", path, err)
			}
		}
	}

	cfg.BaseURL = getEnv("TASKBOARD_URL", cfg.BaseURL)
	cfg.APIKey = getEnv("TASKBOARD_API_KEY", cfg.APIKey)
	cfg.Token = getEnv("TASKBOARD_TOKEN", cfg.Token)
	cfg.LogFile = getEnv("TASKEDIT_LOG", cfg.LogFile)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultClient().Timeout
	}
	if cfg.BaseURL == "" {
		return Client{}, errors.New("client config: base_url is required")
	}
	return cfg, nil
}
