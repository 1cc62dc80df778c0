package config

import "time"

// Значения конфигурации по умолчанию.
const (
	// Bot defaults
	DefaultBotMode             = ModePolling
	DefaultPollingTimeout      = 60
	DefaultSendRatePerSecond   = 20.0
	DefaultSendBurst           = 5
	DefaultQueueIdleTimeoutSec = 60

	// Webhook defaults
	DefaultWebhookHost            = "0.0.0.0"
	DefaultWebhookPort            = 8080
	DefaultWebhookShutdownTimeout = 15 * time.Second

	// Directory defaults
	DefaultDirectorySize = 10000
	DefaultDirectoryTTL  = 7 * 24 * time.Hour

	// Index defaults
	DefaultTextBackend  = BackendSQLite
	DefaultImageBackend = BackendNone
	DefaultSQLitePath   = "search.db"
	DefaultPebblePath   = "images"
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultSearchLimit  = 10

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)
