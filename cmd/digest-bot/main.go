package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/channel-snapshot-bot/internal/app"
	"github.com/lueurxax/channel-snapshot-bot/internal/platform/config"
)

func main() {
	mode := flag.String("mode", "bot", "Service mode (bot, run, login)")
	once := flag.Bool("once", false, "Run a single report cycle and exit (for run mode)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)

	sources, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load sources")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, sources, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := runMode(ctx, application, *mode, *once); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Fatal().Err(err).Msg("application error")
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func runMode(ctx context.Context, application *app.App, mode string, once bool) error {
	switch mode {
	case "bot":
		return application.RunBot(ctx)
	case "run":
		return application.RunScheduler(ctx, once)
	case "login":
		return application.RunLogin(ctx, os.Stdin, os.Stdout)
	default:
		log.Fatalf("Usage: %s --mode=[bot|run|login] [--once]", os.Args[0])

		return nil
	}
}
