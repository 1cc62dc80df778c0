package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"tg-search-relay/internal/domain"
	"tg-search-relay/internal/ports"
)

// Bot API отдает ботам файлы размером не более 20 МБ.
const maxDownloadSize = 20 << 20

// ReplyObserver получает результат каждой отправки ответа.
type ReplyObserver interface {
	ReplySent(err error)
}

// Platform реализует ports.Platform поверх Telegram Bot API.
type Platform struct {
	limiter    *rate.Limiter
	httpClient *http.Client
	logger     *slog.Logger
	observer   ReplyObserver

	// Поля-функции позволяют подменять вызовы Bot API в тестах.
	sendMessageFunc          func(c tgbotapi.Chattable) (tgbotapi.Message, error)
	getChatMemberFunc        func(c tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	getUserProfilePhotosFunc func(c tgbotapi.UserProfilePhotosConfig) (tgbotapi.UserProfilePhotos, error)
	getFileDirectURLFunc     func(fileID string) (string, error)
}

// PlatformConfig задает ограничения на исходящие вызовы.
type PlatformConfig struct {
	SendRatePerSecond float64
	SendBurst         int
	DownloadTimeout   time.Duration
}

// NewPlatform создает адаптер для api. observer может быть nil.
func NewPlatform(api *tgbotapi.BotAPI, cfg PlatformConfig, observer ReplyObserver, logger *slog.Logger) *Platform {
	return &Platform{
		limiter:                  rate.NewLimiter(rate.Limit(cfg.SendRatePerSecond), cfg.SendBurst),
		httpClient:               &http.Client{Timeout: cfg.DownloadTimeout},
		logger:                   logger.With(slog.String("component", "platform")),
		observer:                 observer,
		sendMessageFunc:          api.Send,
		getChatMemberFunc:        api.GetChatMember,
		getUserProfilePhotosFunc: api.GetUserProfilePhotos,
		getFileDirectURLFunc:     api.GetFileDirectURL,
	}
}

// ChatMember возвращает статус пользователя в чате.
func (p *Platform) ChatMember(ctx context.Context, chatID, userID int64) (ports.MemberStatus, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	member, err := p.getChatMemberFunc(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		return "", fmt.Errorf("get chat member %d in %d: %w", userID, chatID, mapAPIError(err))
	}
	return ports.MemberStatus(member.Status), nil
}

// ProfilePhotos возвращает фотографии профиля пользователя, новые первыми.
func (p *Platform) ProfilePhotos(ctx context.Context, userID int64) ([][]domain.PhotoVariant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	photos, err := p.getUserProfilePhotosFunc(tgbotapi.UserProfilePhotosConfig{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("get profile photos of %d: %w", userID, mapAPIError(err))
	}

	out := make([][]domain.PhotoVariant, 0, len(photos.Photos))
	for _, sizes := range photos.Photos {
		out = append(out, toPhotoVariants(sizes))
	}
	return out, nil
}

// DownloadFile получает прямую ссылку на файл и скачивает его содержимое.
func (p *Platform) DownloadFile(ctx context.Context, fileRef string) ([]byte, error) {
	fileURL, err := p.getFileDirectURLFunc(fileRef)
	if err != nil {
		return nil, fmt.Errorf("failed to get file direct url: %w", mapAPIError(err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file body: %w", err)
	}
	if len(data) > maxDownloadSize {
		return nil, fmt.Errorf("file exceeds %d bytes", maxDownloadSize)
	}
	p.logger.Debug("file downloaded", slog.Int("bytes", len(data)))
	return data, nil
}

// SendReply отправляет ответ в Markdown, привязанный к исходному сообщению,
// без превью ссылок. Отправка ограничена по частоте.
func (p *Platform) SendReply(ctx context.Context, reply ports.Reply) error {
	err := p.sendReply(ctx, reply)
	if p.observer != nil {
		p.observer.ReplySent(err)
	}
	return err
}

func (p *Platform) sendReply(ctx context.Context, reply ports.Reply) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("reply rate limit: %w", err)
	}

	msg := tgbotapi.NewMessage(reply.ChatID, reply.Text)
	msg.ReplyToMessageID = reply.ReplyToMessageID
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	if _, err := p.sendMessageFunc(msg); err != nil {
		return fmt.Errorf("failed to send reply to %d: %w", reply.ChatID, mapAPIError(err))
	}
	return nil
}

// mapAPIError переводит ответ Bot API "user not found" в ports.ErrUserNotFound.
func mapAPIError(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && strings.Contains(strings.ToLower(apiErr.Message), "user not found") {
		return fmt.Errorf("%w: %s", ports.ErrUserNotFound, apiErr.Message)
	}
	if strings.Contains(strings.ToLower(err.Error()), "user not found") {
		return fmt.Errorf("%w: %v", ports.ErrUserNotFound, err)
	}
	return err
}
