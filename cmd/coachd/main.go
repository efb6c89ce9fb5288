package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/sandeepkv93/coachd/internal/app"
	"github.com/sandeepkv93/coachd/internal/chat"
	"github.com/sandeepkv93/coachd/internal/storage"
	"github.com/sandeepkv93/coachd/internal/update"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "coachd failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg := update.RuntimeConfigFromEnv(update.DefaultRuntimeConfig())

	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logger := log.NewWithOptions(logFile, log.Options{ReportTimestamp: true, Prefix: "coachd"})
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	repo, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer repo.Close()
	if err := storage.MigrateUp(repo.DB()); err != nil {
		return err
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}
	logger.Info("starting", "db", cfg.DBPath, "provider", provider.Name())

	appCfg := app.DefaultConfig()
	appCfg.Chat = cfg.ChatConfig()
	appCfg.SeedDemo = cfg.SeedDemo
	a := app.New(appCfg, app.Deps{Repo: repo, Provider: provider, Logger: logger})
	defer a.Close()
	if err := a.Load(context.Background()); err != nil {
		return err
	}

	var notifier update.DesktopNotifier = update.NoopDesktopNotifier{}
	if cfg.DesktopNotifications {
		notifier = update.ExecDesktopNotifier{}
	}
	program := tea.NewProgram(update.NewModelWithConfig(a, notifier, cfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}

func newProvider(cfg update.RuntimeConfig) (chat.Provider, error) {
	switch cfg.Provider {
	case "", "canned":
		return chat.NewCannedProvider(), nil
	case "openai":
		return chat.NewOpenAIProvider(chat.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
	case "ollama":
		return chat.NewOllamaProvider(cfg.OllamaModel)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
