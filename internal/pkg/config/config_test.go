package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fullYAML представляет конфигурацию webhook-режима с удаленным индексом.
const fullYAML = `
bot:
  token: "123:abc"
  mode: "webhook"
  follow_edits: false
  send_rate_per_second: 5
  send_burst: 2
  profile_indexing: true
webhook:
  host: "127.0.0.1"
  port: 9090
  update_token: "secret"
  shutdown_timeout_seconds: 3
directory:
  size: 50
  ttl_minutes: 30
index:
  text_backend: "remote"
  image_backend: "remote"
  remote_url: "http://index:8000"
  http_timeout_seconds: 7
  search_limit: 5
queue:
  idle_timeout_seconds: 20
logging:
  level: "debug"
  format: "text"
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"BOT_TOKEN", "BOT_MODE", "UPDATE_TOKEN", "INDEX_REMOTE_URL", "INDEX_SQLITE_PATH", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestLoadFromYAML(t *testing.T) {
	t.Run("FullConfiguration", func(t *testing.T) {
		path := createTempConfigFile(t, fullYAML)
		cfg := defaultConfig()
		require.NoError(t, loadFromYAML(path, cfg))

		assert.Equal(t, "123:abc", cfg.Bot.Token)
		assert.Equal(t, ModeWebhook, cfg.Bot.Mode)
		assert.False(t, cfg.Bot.FollowEdits)
		assert.True(t, cfg.Bot.ProfileIndexing)
		assert.Equal(t, 5.0, cfg.Bot.SendRatePerSecond)
		assert.Equal(t, "127.0.0.1:9090", cfg.Address())
		assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout())
		assert.Equal(t, 50, cfg.Directory.Size)
		assert.Equal(t, 30*time.Minute, cfg.DirectoryTTL())
		assert.Equal(t, BackendRemote, cfg.Index.TextBackend)
		assert.Equal(t, 7*time.Second, cfg.HTTPTimeout())
		assert.Equal(t, 20*time.Second, cfg.QueueIdleTimeout())
		assert.Equal(t, "text", cfg.Logging.Format)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("PartialFileKeepsDefaults", func(t *testing.T) {
		path := createTempConfigFile(t, "bot:\n  token: \"1:x\"\n")
		cfg := defaultConfig()
		require.NoError(t, loadFromYAML(path, cfg))

		assert.Equal(t, ModePolling, cfg.Bot.Mode)
		assert.True(t, cfg.Bot.FollowEdits)
		assert.Equal(t, DefaultSQLitePath, cfg.Index.SQLitePath)
		assert.Equal(t, DefaultSearchLimit, cfg.Index.SearchLimit)
		assert.Equal(t, DefaultDirectoryTTL, cfg.DirectoryTTL())
	})

	t.Run("MissingFileIsNotAnError", func(t *testing.T) {
		cfg := defaultConfig()
		err := loadFromYAML(filepath.Join(t.TempDir(), "absent.yml"), cfg)
		assert.NoError(t, err)
	})

	t.Run("MalformedYaml", func(t *testing.T) {
		path := createTempConfigFile(t, "bot: [unclosed")
		err := loadFromYAML(path, defaultConfig())
		assert.Error(t, err)
	})
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := createTempConfigFile(t, fullYAML)

	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("UPDATE_TOKEN", "env-secret")
	t.Setenv("INDEX_REMOTE_URL", "http://other:1")
	t.Setenv("LOG_LEVEL", "WARN")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Bot.Token)
	assert.Equal(t, "env-secret", cfg.Webhook.UpdateToken)
	assert.Equal(t, "http://other:1", cfg.Index.RemoteURL)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, ModeWebhook, cfg.Bot.Mode)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Bot.Token = "1:abc"
		return cfg
	}

	require.NoError(t, valid().Validate())

	testCases := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"EmptyToken", func(c *Config) { c.Bot.Token = "" }, "bot.token"},
		{"PlaceholderToken", func(c *Config) { c.Bot.Token = "YOUR_TELEGRAM_BOT_TOKEN" }, "bot.token"},
		{"UnknownMode", func(c *Config) { c.Bot.Mode = "push" }, "bot.mode"},
		{"WebhookWithoutSecret", func(c *Config) { c.Bot.Mode = ModeWebhook }, "update_token"},
		{"WebhookBadPort", func(c *Config) {
			c.Bot.Mode = ModeWebhook
			c.Webhook.UpdateToken = "s"
			c.Webhook.Port = 70000
		}, "webhook.port"},
		{"ZeroSendRate", func(c *Config) { c.Bot.SendRatePerSecond = 0 }, "send_rate_per_second"},
		{"ZeroDirectorySize", func(c *Config) { c.Directory.Size = 0 }, "directory.size"},
		{"UnknownTextBackend", func(c *Config) { c.Index.TextBackend = "elastic" }, "text_backend"},
		{"UnknownImageBackend", func(c *Config) { c.Index.ImageBackend = "s3" }, "image_backend"},
		{"RemoteWithoutURL", func(c *Config) { c.Index.ImageBackend = BackendRemote }, "remote_url"},
		{"PebbleWithoutPath", func(c *Config) {
			c.Index.ImageBackend = BackendPebble
			c.Index.PebblePath = ""
		}, "pebble_path"},
		{"ZeroSearchLimit", func(c *Config) { c.Index.SearchLimit = 0 }, "search_limit"},
		{"ZeroQueueTimeout", func(c *Config) { c.Queue.IdleTimeoutSeconds = 0 }, "idle_timeout_seconds"},
		{"BadLogLevel", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"BadLogFormat", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"PollingZeroShutdownTimeout", func(c *Config) {
			c.Bot.Mode = ModePolling
			c.Webhook.ShutdownTimeoutSeconds = 0
		}, "shutdown_timeout_seconds"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestValidate_LogLevelCaseInsensitive(t *testing.T) {
	for _, level := range []string{"INFO", "Debug", "warn"} {
		cfg := defaultConfig()
		cfg.Bot.Token = "1:abc"
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), level)
	}
}
