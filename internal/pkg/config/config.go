// Package config предоставляет управление конфигурацией приложения
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Режимы получения обновлений.
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// Бэкенды индексов.
const (
	BackendSQLite = "sqlite"
	BackendRemote = "remote"
	BackendPebble = "pebble"
	BackendNone   = "none"
)

// Bot содержит настройки Telegram-бота
type Bot struct {
	Token                 string  `yaml:"token"`
	Mode                  string  `yaml:"mode"`
	FollowEdits           bool    `yaml:"follow_edits"`
	PollingTimeoutSeconds int     `yaml:"polling_timeout_seconds"`
	SendRatePerSecond     float64 `yaml:"send_rate_per_second"`
	SendBurst             int     `yaml:"send_burst"`
	ProfileIndexing       bool    `yaml:"profile_indexing"`
}

// Webhook содержит настройки HTTP-сервера для приема обновлений
type Webhook struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	UpdateToken            string `yaml:"update_token"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

// Directory содержит настройки справочника пользователей
type Directory struct {
	Size       int `yaml:"size"`
	TTLMinutes int `yaml:"ttl_minutes"`
}

// Index содержит настройки индексов и поиска
type Index struct {
	TextBackend        string `yaml:"text_backend"`
	ImageBackend       string `yaml:"image_backend"`
	SQLitePath         string `yaml:"sqlite_path"`
	PebblePath         string `yaml:"pebble_path"`
	RemoteURL          string `yaml:"remote_url"`
	HTTPTimeoutSeconds int    `yaml:"http_timeout_seconds"`
	SearchLimit        int    `yaml:"search_limit"`
}

// Queue содержит настройки очереди событий по чатам
type Queue struct {
	IdleTimeoutSeconds int `yaml:"idle_timeout_seconds"`
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Config содержит конфигурацию приложения
type Config struct {
	Bot       Bot       `yaml:"bot"`
	Webhook   Webhook   `yaml:"webhook"`
	Directory Directory `yaml:"directory"`
	Index     Index     `yaml:"index"`
	Queue     Queue     `yaml:"queue"`
	Logging   Logging   `yaml:"logging"`
}

// LoadConfig загружает конфигурацию из YAML-файла и переменных окружения.
// Переменные окружения (в том числе из .env) имеют приоритет над файлом.
// Отсутствие файла не является ошибкой.
func LoadConfig(filename string) (*Config, error) {
	// .env необязателен, переменные могут прийти из окружения
	_ = godotenv.Load()

	cfg := defaultConfig()
	if err := loadFromYAML(filename, cfg); err != nil {
		return nil, err
	}
	applyEnv(cfg)

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Bot: Bot{
			Mode:                  DefaultBotMode,
			FollowEdits:           true,
			PollingTimeoutSeconds: DefaultPollingTimeout,
			SendRatePerSecond:     DefaultSendRatePerSecond,
			SendBurst:             DefaultSendBurst,
		},
		Webhook: Webhook{
			Host:                   DefaultWebhookHost,
			Port:                   DefaultWebhookPort,
			ShutdownTimeoutSeconds: int(DefaultWebhookShutdownTimeout / time.Second),
		},
		Directory: Directory{
			Size:       DefaultDirectorySize,
			TTLMinutes: int(DefaultDirectoryTTL / time.Minute),
		},
		Index: Index{
			TextBackend:        DefaultTextBackend,
			ImageBackend:       DefaultImageBackend,
			SQLitePath:         DefaultSQLitePath,
			PebblePath:         DefaultPebblePath,
			HTTPTimeoutSeconds: int(DefaultHTTPTimeout / time.Second),
			SearchLimit:        DefaultSearchLimit,
		},
		Queue: Queue{
			IdleTimeoutSeconds: DefaultQueueIdleTimeoutSec,
		},
		Logging: Logging{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// loadFromYAML накладывает значения из YAML-файла поверх cfg
func loadFromYAML(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

// applyEnv переопределяет секреты и адреса из переменных окружения
func applyEnv(cfg *Config) {
	cfg.Bot.Token = getEnv("BOT_TOKEN", cfg.Bot.Token)
	cfg.Bot.Mode = getEnv("BOT_MODE", cfg.Bot.Mode)
	cfg.Webhook.UpdateToken = getEnv("UPDATE_TOKEN", cfg.Webhook.UpdateToken)
	cfg.Index.RemoteURL = getEnv("INDEX_REMOTE_URL", cfg.Index.RemoteURL)
	cfg.Index.SQLitePath = getEnv("INDEX_SQLITE_PATH", cfg.Index.SQLitePath)
	cfg.Logging.Level = strings.ToLower(getEnv("LOG_LEVEL", cfg.Logging.Level))
}

// Address возвращает адрес webhook-сервера в формате "host:port"
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Webhook.Host, c.Webhook.Port)
}

// DirectoryTTL возвращает время жизни записи справочника.
func (c *Config) DirectoryTTL() time.Duration {
	return time.Duration(c.Directory.TTLMinutes) * time.Minute
}

// HTTPTimeout возвращает таймаут запросов к удаленным сервисам.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Index.HTTPTimeoutSeconds) * time.Second
}

// ShutdownTimeout возвращает время на корректное завершение в любом режиме.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Webhook.ShutdownTimeoutSeconds) * time.Second
}

// QueueIdleTimeout возвращает время простоя, после которого воркер чата завершается.
func (c *Config) QueueIdleTimeout() time.Duration {
	return time.Duration(c.Queue.IdleTimeoutSeconds) * time.Second
}

// Validate проверяет, являются ли значения конфигурации допустимыми
func (c *Config) Validate() error {
	if c.Bot.Token == "" || c.Bot.Token == "YOUR_TELEGRAM_BOT_TOKEN" {
		return fmt.Errorf("bot.token is not configured")
	}

	switch c.Bot.Mode {
	case ModePolling:
		if c.Bot.PollingTimeoutSeconds <= 0 {
			return fmt.Errorf("bot.polling_timeout_seconds must be positive")
		}
	case ModeWebhook:
		if strings.TrimSpace(c.Webhook.UpdateToken) == "" {
			return fmt.Errorf("webhook.update_token is required in webhook mode")
		}
		if c.Webhook.Port <= 0 || c.Webhook.Port > 65535 {
			return fmt.Errorf("webhook.port must be a valid port number (1-65535)")
		}
	default:
		return fmt.Errorf("bot.mode must be one of: polling, webhook")
	}

	// таймаут завершения нужен в обоих режимах
	if c.Webhook.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("webhook.shutdown_timeout_seconds must be positive")
	}

	if c.Bot.SendRatePerSecond <= 0 {
		return fmt.Errorf("bot.send_rate_per_second must be positive")
	}
	if c.Bot.SendBurst <= 0 {
		return fmt.Errorf("bot.send_burst must be positive")
	}

	if c.Directory.Size <= 0 {
		return fmt.Errorf("directory.size must be positive")
	}
	if c.Directory.TTLMinutes < 0 {
		return fmt.Errorf("directory.ttl_minutes must be non-negative (0 disables expiry)")
	}

	switch c.Index.TextBackend {
	case BackendSQLite:
		if c.Index.SQLitePath == "" {
			return fmt.Errorf("index.sqlite_path cannot be empty")
		}
	case BackendRemote:
	default:
		return fmt.Errorf("index.text_backend must be one of: sqlite, remote")
	}

	switch c.Index.ImageBackend {
	case BackendRemote, BackendNone:
	case BackendPebble:
		if c.Index.PebblePath == "" {
			return fmt.Errorf("index.pebble_path cannot be empty")
		}
	default:
		return fmt.Errorf("index.image_backend must be one of: remote, pebble, none")
	}

	if (c.Index.TextBackend == BackendRemote || c.Index.ImageBackend == BackendRemote) && c.Index.RemoteURL == "" {
		return fmt.Errorf("index.remote_url is required for the remote backend")
	}
	if c.Index.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("index.http_timeout_seconds must be positive")
	}
	if c.Index.SearchLimit <= 0 {
		return fmt.Errorf("index.search_limit must be positive")
	}

	if c.Queue.IdleTimeoutSeconds <= 0 {
		return fmt.Errorf("queue.idle_timeout_seconds must be positive")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
		// all good
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// getEnv извлекает значение переменной окружения или возвращает значение по умолчанию, если она не установлена
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
