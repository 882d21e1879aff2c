package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults_WhenNoEnvAndNoFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.LLMEnabled)
	assert.Equal(t, 0.80, cfg.Confidence.MatchRetry)
	assert.Equal(t, 5, cfg.Agent.MaxIterations)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REQUIRE_AUTH", "false")
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.RequireAuth)
}

func TestGetPortInt_ParsesPort(t *testing.T) {
	cfg := &Config{Port: "9090"}
	assert.Equal(t, 9090, cfg.GetPortInt())
}

func TestGetPortInt_Unparsable_ReturnsZero(t *testing.T) {
	cfg := &Config{Port: "not-a-port"}
	assert.Equal(t, 0, cfg.GetPortInt())
}

func TestApplyFileOverlay_OverridesOnlyPositiveFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("confidence:\n  match_retry: 0.9\nagent:\n  max_iterations: 8\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg := defaults()
	applyFileOverlay(&cfg, path)

	assert.Equal(t, 0.9, cfg.Confidence.MatchRetry)
	assert.Equal(t, 8, cfg.Agent.MaxIterations)
	assert.Equal(t, 0.50, cfg.Confidence.MatchHuman, "fields absent from the overlay keep their defaults")
}

func TestApplyFileOverlay_LLMEnabled_ExplicitFalseIsHonored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm_enabled: false\n"), 0o644))

	cfg := defaults()
	applyFileOverlay(&cfg, path)

	assert.False(t, cfg.LLMEnabled)
}

func TestApplyFileOverlay_MissingFile_LeavesDefaultsUntouched(t *testing.T) {
	cfg := defaults()
	applyFileOverlay(&cfg, filepath.Join(t.TempDir(), "nope.yaml"))

	assert.Equal(t, defaults(), cfg)
}
