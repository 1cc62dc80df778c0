package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"tg-search-relay/internal/domain"
	"tg-search-relay/internal/ports"
)

const avatarRecordPrefix = "avatar__"

// ProfileIndexer отправляет в индекс изображений текущий аватар участника чата.
type ProfileIndexer struct {
	platform ports.Platform
	images   ports.ImageIndex
	clock    func() time.Time
	logger   *slog.Logger
}

// NewProfileIndexer создает индексатор аватаров.
func NewProfileIndexer(platform ports.Platform, images ports.ImageIndex, logger *slog.Logger) *ProfileIndexer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ProfileIndexer{
		platform: platform,
		images:   images,
		clock:    time.Now,
		logger:   logger,
	}
}

// Index проверяет, что пользователь состоит в чате, и индексирует самый
// маленький вариант его текущей фотографии профиля.
func (p *ProfileIndexer) Index(ctx context.Context, chat domain.Chat, user domain.User) error {
	logger := p.logger.With(slog.Int64("chat_id", chat.ID), slog.Int64("user_id", user.ID))

	status, err := p.platform.ChatMember(ctx, chat.ID, user.ID)
	if err != nil {
		return fmt.Errorf("get chat member %d: %w", user.ID, err)
	}
	if !status.IsPresent() {
		logger.Debug("user is not a chat member, skipping avatar", slog.String("status", string(status)))
		return nil
	}

	photos, err := p.platform.ProfilePhotos(ctx, user.ID)
	if err != nil {
		if !errors.Is(err, ports.ErrUserNotFound) {
			return fmt.Errorf("list profile photos of %d: %w", user.ID, err)
		}
		photos = nil
	}
	if len(photos) == 0 {
		logger.Debug("user has no profile photos")
		return nil
	}

	variant, ok := domain.Smallest(photos[0])
	if !ok {
		return nil
	}

	data, err := p.platform.DownloadFile(ctx, variant.FileRef)
	if err != nil {
		return fmt.Errorf("download avatar %s: %w", variant.FileRef, err)
	}

	record := domain.IndexRecord{
		ID:          avatarRecordPrefix + user.FromID(),
		ChatID:      chat.Identifier().String(),
		FromID:      user.FromID(),
		FromName:    user.DisplayName(),
		From:        domain.IndexRecordSource,
		TimestampMs: p.clock().UnixMilli(),
	}
	if err := p.images.IndexImage(ctx, [][]byte{data}, record); err != nil {
		return fmt.Errorf("index avatar of %d: %w", user.ID, err)
	}

	logger.Info("avatar indexed", slog.Int("width", variant.Width))
	return nil
}
