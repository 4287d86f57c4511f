package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"repo-pulse/internal/config"
	"repo-pulse/internal/history"
	"repo-pulse/internal/scheduler"
	"repo-pulse/internal/server"
)

const usage = "usage: repo-pulse <daily|weekly|analysis|mcp|serve>"

func main() {
	if err := run(os.Args[1:]); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "repo-pulse: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) != 1 {
		return errors.New(usage)
	}
	mode := strings.ToLower(strings.TrimSpace(args[0]))

	// .env is optional; real environment wins.
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = zap.NewAtomicLevelAt(logLevel(cfg.LogLevel))
	logger, err := loggerConfig.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	switch mode {
	case "daily":
		report, err := a.tracker.RunDaily(ctx)
		if report != nil {
			fmt.Print(report.Text())
		}
		return err
	case "weekly":
		report, err := a.tracker.RunWeekly(ctx)
		if errors.Is(err, history.ErrNoData) {
			logger.Warn("no recorded data yet, run daily first")
		}
		if report != nil {
			fmt.Print(report.Text())
		}
		return err
	case "analysis":
		return a.runAnalysis(ctx)
	case "mcp":
		return a.tools.ServeStdio(ctx)
	case "serve":
		return a.serve(ctx, cfg)
	default:
		return fmt.Errorf("unknown mode %q; %s", mode, usage)
	}
}

// runAnalysis delivers the weekly report followed by a narrative of the same window.
func (a *app) runAnalysis(ctx context.Context) error {
	report, err := a.tracker.RunWeekly(ctx)
	if err != nil {
		return err
	}
	fmt.Print(report.Text())

	text, err := a.narrator.Generate(ctx, report.Data, "")
	if err != nil {
		return err
	}
	fmt.Printf("\n%s\n", text)
	return a.narrator.Deliver(ctx, text)
}

func (a *app) serve(ctx context.Context, cfg *config.Config) error {
	sched := scheduler.New(a.logger)
	if err := sched.Add("daily", cfg.DailyCron, func(ctx context.Context) error {
		_, err := a.tracker.RunDaily(ctx)
		return err
	}); err != nil {
		return err
	}
	if err := sched.Add("weekly", cfg.WeeklyCron, func(ctx context.Context) error {
		_, err := a.tracker.RunWeekly(ctx)
		return err
	}); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	a.metrics.ExposeSnapshots(func() map[string]history.Snapshot {
		_, day, _ := a.store.Load(context.Background()).Latest()
		return day
	})

	srv := server.New(a.tracker, a.narrator, server.Options{
		Metrics: a.metrics.Handler(),
		MCP:     a.tools.SSEHandler(),
		Logger:  a.logger,
	})
	return srv.ListenAndServe(ctx, cfg.HTTPAddr)
}

func logLevel(raw string) zapcore.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
