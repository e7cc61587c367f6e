package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/spacesedan/buzzdigest/config"
	"github.com/spacesedan/buzzdigest/internal/logging"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)

	settings, err := config.Load()
	if err != nil {
		slog.Error("[Main] Failed to load settings", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logging.InitLogger(settings.LogLevel)

	if err := run(settings); err != nil {
		slog.Error("[Main] Exiting", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(settings config.Settings) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(settings)
	if err != nil {
		return err
	}
	defer a.Close()

	if settings.Schedule == "" {
		a.runOnce(ctx)
		return nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(settings.Schedule, func() { a.runOnce(ctx) }); err != nil {
		return err
	}
	c.Start()
	slog.Info("[Main] Digest scheduled", slog.String("schedule", settings.Schedule))

	<-ctx.Done()
	slog.Info("[Main] Shutting down, waiting for the running digest")
	<-c.Stop().Done()
	return nil
}
