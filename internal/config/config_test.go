package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
}

func TestLoad_Defaults(t *testing.T) {
	setupEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.telegram.org/bottest-token", cfg.TelegramAPIBase)
	assert.Equal(t, "https://api.telegram.org/file/bottest-token", cfg.TelegramFileBase)
	assert.Equal(t, "test-key", cfg.AnthropicAPIKey)
	assert.Equal(t, "file", cfg.SnapshotBackend)
	assert.Equal(t, 12, cfg.RetentionHours)
	assert.Equal(t, "wtf", cfg.TriggerWord)
	assert.Equal(t, 10, cfg.MinTotalBeforeBackfill)
	assert.Equal(t, 5, cfg.MinTotalToCompile)
	assert.Equal(t, 50, cfg.MaxBatch)
	assert.Equal(t, 20, cfg.KeepHead)
	assert.Equal(t, 30, cfg.KeepTail)
	assert.Equal(t, 5, cfg.SaveIntervalMinutes)
	assert.True(t, cfg.DropPending)
	assert.False(t, cfg.Debug)
}

func TestLoad_RequiresTelegramToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")
}

func TestLoad_RequiresAnthropicKey(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestLoad_RejectsUnknownSnapshotBackend(t *testing.T) {
	setupEnv(t)
	t.Setenv("STORYBOT_SNAPSHOT_BACKEND", "redis")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORYBOT_SNAPSHOT_BACKEND")
}

func TestLoad_Overrides(t *testing.T) {
	setupEnv(t)
	t.Setenv("STORYBOT_SNAPSHOT_BACKEND", "sqlite")
	t.Setenv("STORYBOT_SNAPSHOT_PATH", "/tmp/snap.db")
	t.Setenv("STORYBOT_TRIGGER_WORD", "story")
	t.Setenv("STORYBOT_RETENTION_HOURS", "24")
	t.Setenv("STORYBOT_DEBUG", "true")
	t.Setenv("TG_DROP_PENDING", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.SnapshotBackend)
	assert.Equal(t, "/tmp/snap.db", cfg.SnapshotPath)
	assert.Equal(t, "story", cfg.TriggerWord)
	assert.Equal(t, 24, cfg.RetentionHours)
	assert.True(t, cfg.Debug)
	assert.False(t, cfg.DropPending)
}

func TestEnvIntOrDefault_IgnoresGarbage(t *testing.T) {
	t.Setenv("STORYBOT_TEST_INT", "not-a-number")
	assert.Equal(t, 7, envIntOrDefault("STORYBOT_TEST_INT", 7))
}
