package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("ASSISTANT_PROVIDER", "")
	t.Setenv("LIFECYCLE_REOPEN_WINDOW_HOURS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Postgres.DSN)
	assert.Equal(t, "none", cfg.Assistant.Provider)
	assert.Equal(t, "NextLayer Assistant", cfg.Assistant.DisplayName)
	assert.Equal(t, 72*time.Hour, cfg.Lifecycle.ReopenWindow())
	assert.Equal(t, "history", cfg.Assignment.Strategy)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ASSISTANT_PROVIDER", "Gemini")
	t.Setenv("GEMINI_PROJECT_ID", "helpdesk-prod")
	t.Setenv("LIFECYCLE_REOPEN_WINDOW_HOURS", "24")
	t.Setenv("ASSIGNMENT_STRATEGY", "counter")
	t.Setenv("LOCK_BACKEND", "redis")
	t.Setenv("LOCK_TTL_SECONDS", "15")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Assistant.Provider)
	assert.Equal(t, "helpdesk-prod", cfg.Assistant.Gemini.ProjectID)
	assert.Equal(t, 24*time.Hour, cfg.Lifecycle.ReopenWindow())
	assert.Equal(t, "counter", cfg.Assignment.Strategy)
	assert.Equal(t, 15*time.Second, cfg.Lock.TTL())
}

func TestLoadAcceptsAssistantTimeoutWithoutRequestTimeout(t *testing.T) {
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")
	t.Setenv("ASSISTANT_TIMEOUT_SECONDS", "45")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.App.RequestTimeout())
	assert.Equal(t, 45, cfg.Assistant.TimeoutSeconds)
}

func TestLoadRejectsInvalidCombinations(t *testing.T) {
	cases := map[string]map[string]string{
		"gemini without project":     {"ASSISTANT_PROVIDER": "gemini", "GEMINI_PROJECT_ID": ""},
		"unknown provider":           {"ASSISTANT_PROVIDER": "eliza"},
		"gcs without bucket":         {"STORAGE_BACKEND": "gcs", "STORAGE_GCS_BUCKET": ""},
		"unknown strategy":           {"ASSIGNMENT_STRATEGY": "random"},
		"bad redis db":               {"REDIS_DB": "zero"},
		"assistant outlives request": {"ASSISTANT_TIMEOUT_SECONDS": "30", "HTTP_REQUEST_TIMEOUT_SECONDS": "30"},
		"assistant without timeout":  {"ASSISTANT_TIMEOUT_SECONDS": "-1"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
