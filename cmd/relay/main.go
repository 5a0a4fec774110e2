package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"

	"release_relay/internal/config"
	"release_relay/internal/feed"
	"release_relay/internal/pipeline"
	"release_relay/internal/secrets"
	"release_relay/internal/store"
	"release_relay/internal/webhook"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	seen, err := openStore(ctx, cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = seen.Close() }()

	runner := pipeline.New(pipeline.Deps{
		Fetcher:      feed.NewFetcher(http.DefaultClient),
		Parser:       feed.NewParser(cfg.SiteBaseURL),
		Seen:         seen,
		Dispatcher:   webhook.NewDispatcher(http.DefaultClient),
		Destinations: destinationProvider(cfg),
		SearchAPIURL: cfg.SearchAPIURL,
		FeedURL:      cfg.FeedURL,
		Log:          log,
	})

	log.Info("starting relay", "interval", cfg.PollInterval, "once", *once)

	runCycle(ctx, runner, cfg.RunTimeout, log)
	if *once {
		return
	}

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("relay stopped")
			return
		case <-ticker.C:
			runCycle(ctx, runner, cfg.RunTimeout, log)
		}
	}
}

func runCycle(ctx context.Context, runner *pipeline.Runner, timeout time.Duration, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sum, err := runner.Run(ctx)
	if err != nil {
		log.Error("cycle failed", "error", err)
		return
	}
	log.Info("cycle done",
		"delivered", sum.Delivered, "skipped", sum.Skipped, "failed", sum.Failed)
}

// openStore retries transient open failures with Fibonacci backoff so
// a briefly locked database does not kill the process at startup.
func openStore(ctx context.Context, path string) (*store.SQLite, error) {
	var seen *store.SQLite
	backoff := retry.WithMaxRetries(5, retry.NewFibonacci(time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		s, err := store.NewSQLite(path)
		if err != nil {
			return retry.RetryableError(err)
		}
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return retry.RetryableError(err)
		}
		seen = s
		return nil
	})
	return seen, err
}

func destinationProvider(cfg *config.Config) secrets.Provider {
	if cfg.WebhookURLsFile != "" {
		return secrets.FileProvider{Path: cfg.WebhookURLsFile}
	}
	return secrets.EnvProvider{Raw: cfg.WebhookURLs}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
