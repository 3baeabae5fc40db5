package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/s1natex/taskboard-GO/internal/config"
	"github.com/s1natex/taskboard-GO/internal/taskapi"
)

var (
	configPath string
	baseURL    string
	rootCmd    *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:           "taskedit",
		Short:         "Edit taskboard tasks from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultClientPath(), "client config file")
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "", "taskboard server URL (overrides config)")

	rootCmd.AddCommand(boardCmd, newBoardCmd, newTaskCmd, listCmd, renameCmd, contentCmd, timerCmd, deleteCmd)
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// env is what every subcommand needs once flags are parsed.
type env struct {
	cfg    config.Client
	client *taskapi.Client
	logger *slog.Logger
	close  func()
}

// setup loads config and builds the API client. When interactive is set,
// logs never go to the terminal.
func setup(interactive bool) (*env, error) {
	cfg, err := config.LoadClient(configPath)
	if err != nil {
		return nil, err
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	logger, closeLog, err := newLogger(cfg, interactive)
	if err != nil {
		return nil, err
	}

	opts := []taskapi.Option{
		taskapi.WithTimeout(cfg.Timeout),
		taskapi.WithLogger(logger),
	}
	if cfg.APIKey != "" {
		opts = append(opts, taskapi.WithAPIKey(cfg.APIKey))
	}
	if cfg.Token != "" {
		opts = append(opts, taskapi.WithBearerToken(cfg.Token))
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, taskapi.WithLimiter(rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)))
	}
	client, err := taskapi.New(cfg.BaseURL, opts...)
	if err != nil {
		closeLog()
		return nil, err
	}
	return &env{cfg: cfg, client: client, logger: logger, close: closeLog}, nil
}

func newLogger(cfg config.Client, interactive bool) (*slog.Logger, func(), error) {
	var (
		w       io.Writer = os.Stderr
		closeFn           = func() {}
	)
	switch {
	case cfg.LogFile != "":
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	case interactive:
		w = io.Discard
	}

	level := config.ParseLevel(cfg.LogLevel)
	if cfg.LogLevel == "" {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, closeFn, nil
}
