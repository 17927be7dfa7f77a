package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vbonduro/ingredia/internal/config"
	"github.com/vbonduro/ingredia/internal/db"
	"github.com/vbonduro/ingredia/internal/imagestore/local"
	"github.com/vbonduro/ingredia/internal/llm"
	"github.com/vbonduro/ingredia/internal/llm/claude"
	"github.com/vbonduro/ingredia/internal/llm/gemini"
	"github.com/vbonduro/ingredia/internal/llm/ollama"
	"github.com/vbonduro/ingredia/internal/llm/openai"
	"github.com/vbonduro/ingredia/internal/logging"
	"github.com/vbonduro/ingredia/internal/service"
	"github.com/vbonduro/ingredia/internal/spreadsheet"
	"github.com/vbonduro/ingredia/internal/store"
)

// app holds everything a command needs once the startup gates have passed.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	svc     *service.AssistantService
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp wires the application. The credential and the spreadsheet are
// checked before anything else so that no remote call is made without them.
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	logger, cleanupLog, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, closers: []func(){cleanupLog}}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if err := cfg.RequireCredential(); err != nil {
		logger.Error("missing credential", "backend", cfg.ModelBackend, "var", cfg.CredentialVar())
		return nil, &userError{msg: cfg.MissingCredentialMessage(), err: err}
	}

	loader, err := spreadsheet.NewLoader(spreadsheet.Options{
		MaxFileBytes: cfg.MaxSpreadsheetBytes,
		MaxTextChars: cfg.MaxSpreadsheetChars,
	})
	if err != nil {
		return nil, err
	}
	sheet, err := loader.Load(ctx, cfg.SpreadsheetPath)
	if err != nil {
		if errors.Is(err, spreadsheet.ErrFileNotFound) {
			logger.Error("spreadsheet not found", "path", cfg.SpreadsheetPath)
			return nil, &userError{
				msg: fmt.Sprintf("Error: %s not found. Please make sure the file exists.", cfg.SpreadsheetPath),
				err: err,
			}
		}
		return nil, fmt.Errorf("failed to load spreadsheet: %w", err)
	}
	logger.Info("spreadsheet loaded",
		"path", cfg.SpreadsheetPath, "rows", sheet.Rows, "chars", len(sheet.Text), "truncated", sheet.Truncated)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	})

	images, err := local.New(cfg.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize image store: %w", err)
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("using model backend", "backend", provider.Name())

	a.svc, err = service.NewAssistantService(
		store.NewProductStore(database),
		store.NewAnswerStore(database),
		loader,
		provider,
		images,
		logger,
		service.Options{
			SpreadsheetPath:      cfg.SpreadsheetPath,
			MaxQuestionChars:     cfg.MaxQuestionChars,
			MaxPromptChars:       cfg.MaxPromptChars,
			DescriptionCacheSize: cfg.CacheSize,
		},
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func newProvider(cfg *config.Config) (llm.Provider, error) {
	switch cfg.ModelBackend {
	case "gemini":
		return gemini.New(llm.ProviderConfig{
			APIKey:  cfg.GoogleAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiEndpoint,
			Timeout: cfg.ModelTimeout,
		}), nil
	case "claude":
		return claude.New(llm.ProviderConfig{
			APIKey:  cfg.ClaudeAPIKey,
			Model:   cfg.ClaudeModel,
			Timeout: cfg.ModelTimeout,
		}), nil
	case "openai":
		return openai.New(llm.ProviderConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.ModelTimeout,
		}), nil
	case "ollama":
		return ollama.New(llm.ProviderConfig{
			Model:   cfg.OllamaModel,
			BaseURL: cfg.OllamaHost,
			Timeout: cfg.ModelTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.ModelBackend)
	}
}
