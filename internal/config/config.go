// Package config packages the environment-variable surface from the
// router's external interface into a single struct. It deliberately stays
// a thin getenv-with-defaults layer: the router's env surface is a flat
// table of eight scalars, not nested configuration that would justify a
// tagged-struct loader.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the fully-resolved set of environment knobs documented in
// spec.md §6.
type Config struct {
	N8NAPIKey           string
	N8NAPIURL           string
	ListenAddr          string
	RefreshInterval     time.Duration
	EndpointWebhook     string
	EndpointWebhookTest string
	GitHubWebhookSecret string
	DatabasePath        string
}

// Load resolves Config from the process environment, applying the defaults
// from spec.md §6. It returns an error only when a required variable is
// missing or a variable with a constrained type fails to parse.
func Load() (Config, error) {
	apiKey := os.Getenv("N8N_API_KEY")
	if apiKey == "" {
		return Config{}, fmt.Errorf("N8N_API_KEY is required")
	}

	refreshSecs, err := parseIntEnv("REFRESH_INTERVAL_SECS", 60)
	if err != nil {
		return Config{}, err
	}

	return Config{
		N8NAPIKey:           apiKey,
		N8NAPIURL:           getenv("N8N_API_URL", "http://localhost:5678"),
		ListenAddr:          getenv("LISTEN_ADDR", "0.0.0.0:3000"),
		RefreshInterval:     time.Duration(refreshSecs) * time.Second,
		EndpointWebhook:     getenv("N8N_ENDPOINT_WEBHOOK", "webhook"),
		EndpointWebhookTest: getenv("N8N_ENDPOINT_WEBHOOK_TEST", "webhook-test"),
		GitHubWebhookSecret: os.Getenv("GITHUB_WEBHOOK_SECRET"),
		DatabasePath:        getenv("DATABASE_PATH", "unihook.db"),
	}, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseIntEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, v, err)
	}
	return n, nil
}
