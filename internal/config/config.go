// Package config handles application configuration from environment variables.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds the application configuration. It is loaded once at
// startup and treated as immutable afterwards.
type Config struct {
	// SearchAPIURL is the vendor's announcement search endpoint,
	// tried first on every cycle.
	SearchAPIURL string `env:"WHATS_NEW_SEARCH_API, required"`

	// FeedURL is the RSS feed used as a fallback when the search API
	// is unavailable or returns something unparseable.
	FeedURL string `env:"WHATS_NEW_RSS_FEED, required"`

	// SiteBaseURL resolves relative entry links returned by the
	// search API.
	SiteBaseURL string `env:"SITE_BASE_URL, default=https://aws.amazon.com"`

	// Exactly the webhook destination document {"urls": [...]}, either
	// inline or in a mounted secret file. At least one must be set.
	WebhookURLs     string `env:"WEBHOOK_URLS"`
	WebhookURLsFile string `env:"WEBHOOK_URLS_FILE"`

	DatabasePath string        `env:"DATABASE_PATH, default=./data/relay.db"`
	PollInterval time.Duration `env:"POLL_INTERVAL, default=5m"`
	RunTimeout   time.Duration `env:"RUN_TIMEOUT, default=2m"`
	LogLevel     string        `env:"LOG_LEVEL, default=info"`
}

// Load reads configuration from environment variables.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if cfg.WebhookURLs == "" && cfg.WebhookURLsFile == "" {
		return nil, fmt.Errorf("one of WEBHOOK_URLS or WEBHOOK_URLS_FILE is required")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive, got %s", cfg.PollInterval)
	}
	if cfg.RunTimeout <= 0 {
		return nil, fmt.Errorf("RUN_TIMEOUT must be positive, got %s", cfg.RunTimeout)
	}

	return &cfg, nil
}
