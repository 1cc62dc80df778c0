// Package bot связывает Telegram Bot API с ядром: принимает обновления,
// переводит их в доменные события и раздает обработчикам.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-search-relay/internal/domain"
	"tg-search-relay/internal/pkg/config"
)

const searchCommandName = "search"

// MessageHandler обрабатывает обычные сообщения чата.
type MessageHandler interface {
	Handle(ctx context.Context, msg *domain.Message) error
}

// SearchHandler выполняет команду поиска.
type SearchHandler interface {
	Handle(ctx context.Context, cmd domain.SearchCommand) error
}

// Bot представляет собой основной объект Telegram-бота.
type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      config.Bot
	username string
	messages MessageHandler
	search   SearchHandler
	queue    *ChatQueue
	logger   *slog.Logger
}

// NewBotAPI авторизует бота по токену и направляет логи библиотеки в logger.
func NewBotAPI(token string, libLogger tgbotapi.BotLogger) (*tgbotapi.BotAPI, error) {
	if libLogger != nil {
		if err := tgbotapi.SetLogger(libLogger); err != nil {
			return nil, fmt.Errorf("failed to set bot api logger: %w", err)
		}
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}
	return api, nil
}

// NewBot создает бота. api может быть nil, если обновления приходят через webhook
// и long polling не используется (например, в тестах).
func NewBot(api *tgbotapi.BotAPI, cfg config.Bot, messages MessageHandler, search SearchHandler, queue *ChatQueue, logger *slog.Logger) *Bot {
	b := &Bot{
		api:      api,
		cfg:      cfg,
		messages: messages,
		search:   search,
		queue:    queue,
		logger:   logger.With(slog.String("component", "bot")),
	}
	if api != nil {
		b.username = api.Self.UserName
		b.logger.Info("Authorized on account", slog.String("username", b.username))
	}
	return b
}

// Start запускает long polling и обрабатывает обновления до отмены ctx.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollingTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Context cancelled, stopping bot...")
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate ставит обновление в очередь его чата. Обновления без сообщения
// или чата отбрасываются. Правки сообщений обрабатываются, только если включен follow_edits.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg, edited := update.Message, false
	if msg == nil && b.cfg.FollowEdits && update.EditedMessage != nil {
		msg, edited = update.EditedMessage, true
	}
	if msg == nil || msg.Chat == nil {
		b.logger.Debug("dropping update without message", slog.Int("update_id", update.UpdateID))
		return
	}

	chatID := msg.Chat.ID
	err := b.queue.Submit(chatID, func() {
		b.route(ctx, msg, edited)
	})
	if err != nil {
		b.logger.Warn("failed to enqueue update",
			slog.Int("update_id", update.UpdateID),
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}
}

// route передает сообщение обработчику сообщений, а команду /search еще и
// поиску. Команды не индексируются, но их авторы попадают в справочник.
// Ошибки обработчиков только логируются, чтобы одно сообщение не
// останавливало цикл обновлений.
func (b *Bot) route(ctx context.Context, m *tgbotapi.Message, edited bool) {
	logger := b.logger.With(slog.Int64("chat_id", m.Chat.ID), slog.Int("message_id", m.MessageID))
	msg := toDomainMessage(m, edited)

	if err := b.messages.Handle(ctx, msg); err != nil {
		logger.Error("failed to handle message", slog.String("error", err.Error()))
	}

	if args, ok := searchCommand(m, b.username); ok && !edited {
		cmd := domain.SearchCommand{Message: msg, Args: args}
		if err := b.search.Handle(ctx, cmd); err != nil {
			logger.Error("search command failed", slog.String("error", err.Error()))
		}
	}
}
