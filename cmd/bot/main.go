package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"tg-search-relay/internal/bot"
	"tg-search-relay/internal/cache"
	"tg-search-relay/internal/core/services"
	"tg-search-relay/internal/index/pebble"
	"tg-search-relay/internal/index/remote"
	"tg-search-relay/internal/index/sqlite"
	"tg-search-relay/internal/log"
	"tg-search-relay/internal/metrics"
	"tg-search-relay/internal/pkg/config"
	"tg-search-relay/internal/ports"
	"tg-search-relay/internal/server"
)

// indexes - выбранные бэкенды и функции их закрытия.
type indexes struct {
	text    ports.TextIndex
	search  ports.Searcher
	images  ports.ImageIndex
	health  server.HealthCheck
	closers []func() error
}

func (ix *indexes) Close() {
	for _, c := range ix.closers {
		if err := c(); err != nil {
			slog.Error("failed to close index", slog.String("error", err.Error()))
		}
	}
}

func openIndexes(cfg *config.Config) (*indexes, error) {
	ix := &indexes{}

	var remoteClient *remote.Client
	if cfg.Index.TextBackend == config.BackendRemote || cfg.Index.ImageBackend == config.BackendRemote {
		remoteClient = remote.NewClient(cfg.Index.RemoteURL, cfg.HTTPTimeout())
	}

	switch cfg.Index.TextBackend {
	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.Index.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite index: %w", err)
		}
		ix.text, ix.search, ix.health = db, db, db.Ping
		ix.closers = append(ix.closers, db.Close)
	case config.BackendRemote:
		ix.text, ix.search = remoteClient, remoteClient
	}

	switch cfg.Index.ImageBackend {
	case config.BackendPebble:
		store, err := pebble.Open(cfg.Index.PebblePath)
		if err != nil {
			ix.Close()
			return nil, fmt.Errorf("failed to open pebble image store: %w", err)
		}
		ix.images = store
		ix.closers = append(ix.closers, store.Close)
	case config.BackendRemote:
		ix.images = remoteClient
	}

	return ix, nil
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.LoadConfig("config.yml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to validate config: %v\n", err)
		os.Exit(1)
	}

	// Логгер маскирует токен бота и секрет webhook
	logger := log.New(os.Stdout, cfg.Logging.Level, cfg.Logging.Format, cfg.Webhook.UpdateToken)
	slog.SetDefault(logger)

	api, err := bot.NewBotAPI(cfg.Bot.Token, &log.TGBotAPIAdapter{Logger: logger})
	if err != nil {
		slog.Error("failed to create bot api", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ix, err := openIndexes(cfg)
	if err != nil {
		slog.Error("failed to open indexes", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer ix.Close()

	// Инициализация компонентов
	reg := metrics.New()
	directory := cache.NewUserDirectory(cfg.Directory.Size, cfg.DirectoryTTL())
	platform := bot.NewPlatform(api, bot.PlatformConfig{
		SendRatePerSecond: cfg.Bot.SendRatePerSecond,
		SendBurst:         cfg.Bot.SendBurst,
		DownloadTimeout:   cfg.HTTPTimeout(),
	}, reg, logger)

	normalizerOpts := []services.NormalizerOption{
		services.WithNormalizerMetrics(reg),
		services.WithNormalizerLogger(logger.With(slog.String("component", "normalizer"))),
	}
	if ix.images != nil {
		normalizerOpts = append(normalizerOpts, services.WithImageIndex(ix.images, platform))
		if cfg.Bot.ProfileIndexing {
			normalizerOpts = append(normalizerOpts,
				services.WithProfileIndexer(services.NewProfileIndexer(platform, ix.images, logger.With(slog.String("component", "profiles")))))
		}
	}
	normalizer := services.NewMessageNormalizer(directory, ix.text, normalizerOpts...)

	runner := services.NewSearchQueryRunner(services.NewMentionResolver(directory), ix.search, platform,
		services.WithSearchLimit(cfg.Index.SearchLimit),
		services.WithSearchMetrics(reg),
		services.WithSearchLogger(logger.With(slog.String("component", "search"))),
	)

	queue := bot.NewChatQueue(cfg.QueueIdleTimeout())
	b := bot.NewBot(api, cfg.Bot, normalizer, runner, queue, logger)

	// Ожидание сигналов для graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP-сервер поднимается в обоих режимах ради /health и /metrics;
	// в режиме polling пустой секрет не пропускает ни одного обновления.
	tokens := services.NewUpdateTokenChecker("")
	if cfg.Bot.Mode == config.ModeWebhook {
		tokens = services.NewUpdateTokenChecker(cfg.Webhook.UpdateToken)
	}
	srv := server.New(ctx, cfg.Address(), b, tokens,
		server.WithMetrics(reg),
		server.WithHealthCheck(ix.health),
		server.WithLogger(logger),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("webhook server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	pollingDone := make(chan struct{})
	if cfg.Bot.Mode == config.ModePolling {
		slog.Info("Starting long polling...")
		go func() {
			defer close(pollingDone)
			b.Start(ctx)
		}()
	} else {
		close(pollingDone)
	}

	<-ctx.Done() // Ожидаем сигнал завершения
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shut down webhook server", slog.String("error", err.Error()))
	}
	<-pollingDone

	// Дожидаемся уже принятых обновлений, затем закрываем индексы (defer)
	queue.Close()

	slog.Info("Relay stopped gracefully")
}
