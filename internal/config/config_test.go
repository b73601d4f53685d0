package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"PORT", "PAGE_ACCESS_TOKEN", "VERIFY_TOKEN", "GRAPH_API_URL", "BOT_NAME", "STORE_BACKEND",
	"REDIS_URL", "DATABASE_URL", "SQLITE_PATH", "SESSION_TTL_SEC", "EGRESS_MODE", "RELAY_WS_URL",
	"MESSAGES_DIR", "HISTORY_LIMIT", "SEND_TIMEOUT_SEC",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAGE_ACCESS_TOKEN", "tok")
	t.Setenv("VERIFY_TOKEN", "verify")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, ":5000", cfg.Addr())
	assert.Equal(t, "https://graph.facebook.com/v19.0", cfg.GraphAPIURL)
	assert.Equal(t, "bot", cfg.BotName)
	assert.Equal(t, StoreRedis, cfg.StoreBackend)
	assert.Equal(t, EgressGraph, cfg.EgressMode)
	assert.Equal(t, 5, cfg.HistoryLimit)
	assert.Equal(t, 10*time.Second, cfg.SendTimeout())
	assert.Zero(t, cfg.SessionTTL())
}

func TestVerifyTokenRequired(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAGE_ACCESS_TOKEN", "tok")
	t.Setenv("STORE_BACKEND", "memory")
	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VerifyToken")
}

func TestPageTokenOptionalForDryRun(t *testing.T) {
	clearEnv(t)
	t.Setenv("VERIFY_TOKEN", "verify")
	t.Setenv("STORE_BACKEND", "memory")
	_, err := FromEnv()
	require.Error(t, err)

	t.Setenv("EGRESS_MODE", "DryRun")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, EgressDryRun, cfg.EgressMode)
}

func TestBackendSpecificRequirements(t *testing.T) {
	cases := []struct {
		backend string
		env     map[string]string
		ok      bool
	}{
		{"postgres", nil, false},
		{"postgres", map[string]string{"DATABASE_URL": "postgres://x"}, true},
		{"redis", nil, false},
		{"sqlite", nil, true},
		{"memory", nil, true},
		{"mongo", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.backend, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("PAGE_ACCESS_TOKEN", "tok")
			t.Setenv("VERIFY_TOKEN", "verify")
			t.Setenv("STORE_BACKEND", tc.backend)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRelayNeedsURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAGE_ACCESS_TOKEN", "tok")
	t.Setenv("VERIFY_TOKEN", "verify")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("EGRESS_MODE", "relay")
	_, err := FromEnv()
	require.Error(t, err)

	t.Setenv("RELAY_WS_URL", "ws://relay.local/ws")
	_, err = FromEnv()
	require.NoError(t, err)
}

func TestBadNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAGE_ACCESS_TOKEN", "tok")
	t.Setenv("VERIFY_TOKEN", "verify")
	t.Setenv("STORE_BACKEND", "memory")

	t.Setenv("HISTORY_LIMIT", "abc")
	_, err := FromEnv()
	require.Error(t, err)

	t.Setenv("HISTORY_LIMIT", "500")
	_, err = FromEnv()
	require.Error(t, err)

	t.Setenv("HISTORY_LIMIT", "3")
	t.Setenv("SESSION_TTL_SEC", "-1")
	_, err = FromEnv()
	require.Error(t, err)

	t.Setenv("SESSION_TTL_SEC", "3600")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.SessionTTL())
}
