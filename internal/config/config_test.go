package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("DATABRICKS_WORKSPACE_URL", "https://example.cloud.databricks.com/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "http://localhost:3000", cfg.FrontendOrigin)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 30*time.Second, cfg.Databricks.UpstreamTimeout)

	// Trailing slash is stripped so path joins stay clean.
	assert.Equal(t, "https://example.cloud.databricks.com", cfg.Databricks.WorkspaceURL)
}

func TestLoadRequiresSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}

func TestGetDurationFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SESSION_TTL", "not-a-duration")
	t.Setenv("SESSION_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
}
