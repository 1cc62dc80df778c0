package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"tg-search-relay/internal/domain"
	"tg-search-relay/internal/ports"
)

// Области поиска, используются в метриках и логах.
const (
	ScopeSelf = "self"
	ScopeChat = "chat"
	ScopeUser = "chat_user"
)

// Replier отправляет ответ в чат.
type Replier interface {
	SendReply(ctx context.Context, reply ports.Reply) error
}

// SearchQueryRunner выполняет команду /search и отвечает результатами.
type SearchQueryRunner struct {
	resolver *MentionResolver
	searcher ports.Searcher
	replier  Replier
	limit    int
	metrics  Metrics
	logger   *slog.Logger
}

// SearchOption - функциональная опция для SearchQueryRunner.
type SearchOption func(*SearchQueryRunner)

// WithSearchLimit ограничивает количество результатов.
func WithSearchLimit(limit int) SearchOption {
	return func(r *SearchQueryRunner) {
		if limit > 0 {
			r.limit = limit
		}
	}
}

// WithSearchMetrics задает сборщик метрик.
func WithSearchMetrics(m Metrics) SearchOption {
	return func(r *SearchQueryRunner) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithSearchLogger задает логгер.
func WithSearchLogger(l *slog.Logger) SearchOption {
	return func(r *SearchQueryRunner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewSearchQueryRunner создает обработчик команды поиска.
func NewSearchQueryRunner(resolver *MentionResolver, searcher ports.Searcher, replier Replier, opts ...SearchOption) *SearchQueryRunner {
	r := &SearchQueryRunner{
		resolver: resolver,
		searcher: searcher,
		replier:  replier,
		metrics:  noopMetrics{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle выполняет поиск. Команда без запроса молча игнорируется.
func (r *SearchQueryRunner) Handle(ctx context.Context, cmd domain.SearchCommand) error {
	msg := cmd.Message
	if msg == nil || msg.Chat == nil || msg.From == nil {
		return nil
	}
	if strings.TrimSpace(cmd.Args) == "" {
		r.logger.Debug("empty search query, ignoring", slog.Int64("chat_id", msg.Chat.ID))
		return nil
	}

	query, scope := r.buildQuery(msg, cmd.Args)

	logger := r.logger.With(
		slog.Int64("chat_id", msg.Chat.ID),
		slog.Int("message_id", msg.ID),
		slog.String("scope", scope),
	)

	result, err := r.searcher.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("search %q: %w", query.Text, err)
	}
	r.metrics.SearchExecuted(scope, len(result.Hits))
	logger.Info("search executed", slog.Int("hits", len(result.Hits)))

	reply := ports.Reply{
		ChatID:           msg.Chat.ID,
		ReplyToMessageID: msg.ID,
		Text:             FormatReply(result.Hits),
	}
	if err := r.replier.SendReply(ctx, reply); err != nil {
		return fmt.Errorf("send search reply: %w", err)
	}
	return nil
}

// buildQuery применяет политику областей поиска: в личке ищутся только свои
// сообщения, в группах - сообщения чата, а при упоминании - еще и автора.
func (r *SearchQueryRunner) buildQuery(msg *domain.Message, args string) (domain.SearchQuery, string) {
	query := domain.SearchQuery{
		Text:  strings.TrimSpace(args),
		Limit: r.limit,
	}

	if msg.Chat.Kind == domain.ChatKindPrivate {
		query.UserID = msg.From.FromID()
		return query, ScopeSelf
	}

	query.ChatID = msg.Chat.Identifier().String()

	mention, ok := r.resolver.Resolve(msg.Text, msg.Entities)
	if !ok {
		return query, ScopeChat
	}

	query.UserID = domain.UserFilter(mention.UserID)
	if mention.Span != "" {
		query.Text = strings.Join(strings.Fields(removeMention(msg.Text, args, mention)), " ")
	}
	return query, ScopeUser
}

// removeMention вырезает из аргументов команды именно тот фрагмент, на который
// указывает entity. Аргументы - хвост текста сообщения, поэтому смещение
// entity переводится в смещение внутри args.
func removeMention(text, args string, mention Mention) string {
	if strings.HasSuffix(text, args) {
		argsStart := utf16Len(text) - utf16Len(args)
		if cut, ok := utf16Cut(args, mention.Offset-argsStart, mention.Length); ok {
			return cut
		}
		// упоминание внутри самой команды в аргументы не входит
		return args
	}
	return strings.Replace(args, mention.Span, "", 1)
}
