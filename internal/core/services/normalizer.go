package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"tg-search-relay/internal/domain"
	"tg-search-relay/internal/ports"
)

// FileDownloader скачивает файл платформы по его ссылке.
type FileDownloader interface {
	DownloadFile(ctx context.Context, fileRef string) ([]byte, error)
}

// MessageNormalizer превращает входящие сообщения супергрупп в записи индекса.
type MessageNormalizer struct {
	directory ports.UserDirectory
	text      ports.TextIndex
	images    ports.ImageIndex
	files     FileDownloader
	profiles  *ProfileIndexer
	metrics   Metrics
	logger    *slog.Logger

	// pending - пользователи, чей аватар еще не удалось проиндексировать.
	pendingMu sync.Mutex
	pending   map[int64]struct{}
}

// NormalizerOption - функциональная опция для MessageNormalizer.
type NormalizerOption func(*MessageNormalizer)

// WithImageIndex включает индексацию фотографий.
func WithImageIndex(images ports.ImageIndex, files FileDownloader) NormalizerOption {
	return func(n *MessageNormalizer) {
		n.images = images
		n.files = files
	}
}

// WithProfileIndexer включает индексацию аватаров впервые увиденных пользователей.
func WithProfileIndexer(p *ProfileIndexer) NormalizerOption {
	return func(n *MessageNormalizer) {
		n.profiles = p
	}
}

// WithNormalizerMetrics задает сборщик метрик.
func WithNormalizerMetrics(m Metrics) NormalizerOption {
	return func(n *MessageNormalizer) {
		if m != nil {
			n.metrics = m
		}
	}
}

// WithNormalizerLogger задает логгер.
func WithNormalizerLogger(l *slog.Logger) NormalizerOption {
	return func(n *MessageNormalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

// NewMessageNormalizer создает нормализатор с обязательными зависимостями.
func NewMessageNormalizer(directory ports.UserDirectory, text ports.TextIndex, opts ...NormalizerOption) *MessageNormalizer {
	n := &MessageNormalizer{
		directory: directory,
		text:      text,
		metrics:   noopMetrics{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		pending:   make(map[int64]struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Handle обрабатывает одно входящее событие. События без чата или отправителя
// и сообщения не из супергрупп отбрасываются без ошибки.
func (n *MessageNormalizer) Handle(ctx context.Context, msg *domain.Message) error {
	if msg == nil || msg.Chat == nil || msg.From == nil {
		n.logger.Debug("dropping event without required context")
		n.metrics.EventHandled(OutcomeDropped)
		return nil
	}

	logger := n.logger.With(slog.Int64("chat_id", msg.Chat.ID), slog.Int("message_id", msg.ID))

	if msg.Chat.Kind != domain.ChatKindSupergroup {
		logger.Debug("chat is not a supergroup, skipping", slog.String("kind", string(msg.Chat.Kind)))
		n.metrics.EventHandled(OutcomeIneligible)
		return nil
	}

	if msg.From.Username != "" && n.directory.Remember(msg.From.Username, msg.From.ID) && n.profiles != nil {
		n.markPending(msg.From.ID)
	}

	payload := msg.Payload()
	if payload == "" || strings.HasPrefix(payload, "/") {
		logger.Debug("no searchable payload, skipping")
		n.metrics.EventHandled(OutcomeSkipped)
		return n.indexProfile(ctx, msg)
	}

	record := buildRecord(msg, payload)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := n.text.QueueMessage(gctx, record)
		n.metrics.IndexDispatched(TargetText, err)
		if err != nil {
			return fmt.Errorf("queue message %s: %w", record.ID, err)
		}
		return nil
	})

	if len(msg.Photos) > 0 && n.images != nil && n.files != nil {
		g.Go(func() error {
			err := n.indexPhoto(gctx, msg.Photos, record)
			n.metrics.IndexDispatched(TargetImage, err)
			return err
		})
	}

	// аватар не зависит от судьбы самого сообщения
	dispatchErr := g.Wait()
	if dispatchErr == nil {
		logger.Debug("message indexed", slog.String("record_id", record.ID), slog.Bool("edited", msg.Edited))
		n.metrics.EventHandled(OutcomeIndexed)
	}

	return errors.Join(dispatchErr, n.indexProfile(ctx, msg))
}

func (n *MessageNormalizer) indexPhoto(ctx context.Context, photos []domain.PhotoVariant, record domain.IndexRecord) error {
	largest, ok := domain.Largest(photos)
	if !ok {
		return nil
	}
	data, err := n.files.DownloadFile(ctx, largest.FileRef)
	if err != nil {
		return fmt.Errorf("download photo %s: %w", largest.FileRef, err)
	}
	if err := n.images.IndexImage(ctx, [][]byte{data}, record); err != nil {
		return fmt.Errorf("index image %s: %w", record.ID, err)
	}
	return nil
}

// indexProfile индексирует аватар, если он ожидает индексации. После ошибки
// пользователь остается в ожидании, и попытка повторится на его следующем сообщении.
func (n *MessageNormalizer) indexProfile(ctx context.Context, msg *domain.Message) error {
	if n.profiles == nil || !n.takePending(msg.From.ID) {
		return nil
	}
	err := n.profiles.Index(ctx, *msg.Chat, *msg.From)
	n.metrics.IndexDispatched(TargetProfile, err)
	if err != nil {
		n.markPending(msg.From.ID)
		return fmt.Errorf("index profile of %d: %w", msg.From.ID, err)
	}
	return nil
}

func (n *MessageNormalizer) markPending(userID int64) {
	n.pendingMu.Lock()
	defer n.pendingMu.Unlock()
	n.pending[userID] = struct{}{}
}

// takePending снимает пользователя с ожидания, чтобы параллельные сообщения
// не индексировали один аватар дважды.
func (n *MessageNormalizer) takePending(userID int64) bool {
	n.pendingMu.Lock()
	defer n.pendingMu.Unlock()
	if _, ok := n.pending[userID]; !ok {
		return false
	}
	delete(n.pending, userID)
	return true
}

func buildRecord(msg *domain.Message, payload string) domain.IndexRecord {
	chatID := msg.Chat.Identifier().String()
	return domain.IndexRecord{
		ID:          domain.RecordID(chatID, msg.ID),
		MessageID:   msg.ID,
		ChatID:      chatID,
		FromID:      msg.From.FromID(),
		FromName:    msg.From.DisplayName(),
		Text:        payload,
		Raw:         msg.Raw,
		From:        domain.IndexRecordSource,
		TimestampMs: msg.Date * 1000,
	}
}
