package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("N8N_API_KEY", "")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("N8N_API_KEY", "token")
	for _, k := range []string{"N8N_API_URL", "LISTEN_ADDR", "REFRESH_INTERVAL_SECS", "N8N_ENDPOINT_WEBHOOK", "N8N_ENDPOINT_WEBHOOK_TEST", "GITHUB_WEBHOOK_SECRET", "DATABASE_PATH"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:5678", cfg.N8NAPIURL)
	require.Equal(t, "0.0.0.0:3000", cfg.ListenAddr)
	require.Equal(t, 60*time.Second, cfg.RefreshInterval)
	require.Equal(t, "webhook", cfg.EndpointWebhook)
	require.Equal(t, "webhook-test", cfg.EndpointWebhookTest)
	require.Equal(t, "", cfg.GitHubWebhookSecret)
	require.Equal(t, "unihook.db", cfg.DatabasePath)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("N8N_API_KEY", "token")
	t.Setenv("REFRESH_INTERVAL_SECS", "15")
	t.Setenv("DATABASE_PATH", ":memory:")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 15*time.Second, cfg.RefreshInterval)
	require.Equal(t, ":memory:", cfg.DatabasePath)
}

func TestLoadRejectsInvalidRefreshInterval(t *testing.T) {
	t.Setenv("N8N_API_KEY", "token")
	t.Setenv("REFRESH_INTERVAL_SECS", "not-a-number")
	_, err := Load()
	require.Error(t, err)
}
