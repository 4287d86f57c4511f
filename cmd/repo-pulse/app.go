package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"repo-pulse/internal/analysis"
	"repo-pulse/internal/config"
	"repo-pulse/internal/github"
	"repo-pulse/internal/llm"
	"repo-pulse/internal/notify"
	"repo-pulse/internal/storage"
	"repo-pulse/internal/telemetry"
	"repo-pulse/internal/tools"
	"repo-pulse/internal/tracker"
)

type app struct {
	logger   *zap.Logger
	store    *storage.Store
	metrics  *telemetry.Metrics
	tracker  *tracker.Tracker
	narrator *analysis.Narrator
	tools    *tools.Server
	closers  []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{logger: logger, metrics: telemetry.New()}

	backend, err := a.newBackend(cfg)
	if err != nil {
		return nil, err
	}
	a.store = storage.NewStore(backend, cfg.FallbackDir, logger.Named("store"))

	fetcher, err := github.NewClient(ctx, cfg.GitHubToken, cfg.GitHubAPI)
	if err != nil {
		return nil, err
	}

	sender, err := newSender(cfg)
	if err != nil {
		return nil, err
	}

	client, err := llm.NewFactory(cfg).CreateClient(string(cfg.LLMProvider), cfg.OpenAIModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	prompt, err := analysis.NewPrompt(analysis.Style(cfg.PromptStyle), cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}

	a.tracker = tracker.New(a.store, fetcher, sender, a.metrics, logger.Named("tracker"), tracker.Options{
		Repos:          cfg.Repos,
		DeliverOnDaily: cfg.DeliverOnDaily,
		WindowDays:     cfg.WindowDays,
	})
	a.narrator = analysis.NewNarrator(client, prompt, sender, logger.Named("analysis"))
	a.tools = tools.New(a.tracker, a.narrator, logger.Named("tools"))

	logger.Info("repo-pulse configured",
		zap.Strings("repos", cfg.Repos),
		zap.String("history_backend", cfg.HistoryBackend),
		zap.String("delivery", cfg.DeliveryChannel),
		zap.String("llm_provider", string(cfg.LLMProvider)))
	return a, nil
}

func (a *app) newBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.HistoryBackend {
	case "redis":
		b, err := storage.NewRedisBackend(cfg.RedisURL, cfg.RedisKey)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, b.Close)
		return b, nil
	default:
		return storage.NewFileBackend(cfg.DataFilePath), nil
	}
}

func newSender(cfg *config.Config) (notify.Sender, error) {
	switch cfg.DeliveryChannel {
	case "telegram":
		return notify.NewTelegramSender(cfg.TelegramToken, cfg.TelegramChatID)
	case "none":
		return notify.Nop{}, nil
	default:
		format, err := notify.ParseFormat(cfg.MessageFormat)
		if err != nil {
			return nil, err
		}
		return notify.NewWebhookSender(cfg.WebhookURL, format), nil
	}
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
}
