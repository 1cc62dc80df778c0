package log

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

const secretMask = "***masked***"

// TokenMaskerHandler - обертка для slog.Handler, которая маскирует токен бота
// и прочие известные секреты (например, секрет пути webhook) в логах
type TokenMaskerHandler struct {
	handler slog.Handler
	secrets *strings.Replacer
}

// NewTokenMaskerHandler создает новый обработчик с маскировкой токенов.
// secrets - дополнительные строки, которые не должны попадать в логи; пустые игнорируются.
func NewTokenMaskerHandler(handler slog.Handler, secrets ...string) *TokenMaskerHandler {
	var pairs []string
	for _, s := range secrets {
		if s != "" {
			pairs = append(pairs, s, secretMask)
		}
	}

	h := &TokenMaskerHandler{handler: handler}
	if len(pairs) > 0 {
		h.secrets = strings.NewReplacer(pairs...)
	}
	return h
}

// токены Telegram в формате botID:token встречаются в URL запросов к Bot API
var telegramTokenRegex = regexp.MustCompile(`(\bbot\d+:[A-Za-z0-9_-]{35,})`)

// mask заменяет найденные токены и секреты на маску
func (h *TokenMaskerHandler) mask(text string) string {
	text = telegramTokenRegex.ReplaceAllString(text, "bot***:***masked-token***")
	if h.secrets != nil {
		text = h.secrets.Replace(text)
	}
	return text
}

// Enabled реализует интерфейс slog.Handler
func (h *TokenMaskerHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle реализует интерфейс slog.Handler
func (h *TokenMaskerHandler) Handle(ctx context.Context, record slog.Record) error {
	// Clone не копирует атрибуты в новую запись, поэтому добавляем их заново уже маскированными.
	// Оригинальную запись slog может переиспользовать, ее не трогаем.
	r := slog.NewRecord(record.Time, record.Level, h.mask(record.Message), record.PC)

	record.Attrs(func(a slog.Attr) bool {
		r.AddAttrs(h.maskAttr(a))
		return true
	})

	return h.handler.Handle(ctx, r)
}

// WithAttrs реализует интерфейс slog.Handler
func (h *TokenMaskerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		masked[i] = h.maskAttr(attr)
	}
	return &TokenMaskerHandler{
		handler: h.handler.WithAttrs(masked),
		secrets: h.secrets,
	}
}

// WithGroup реализует интерфейс slog.Handler
func (h *TokenMaskerHandler) WithGroup(name string) slog.Handler {
	return &TokenMaskerHandler{
		handler: h.handler.WithGroup(name),
		secrets: h.secrets,
	}
}

func (h *TokenMaskerHandler) maskAttr(a slog.Attr) slog.Attr {
	return slog.Attr{Key: a.Key, Value: h.maskValue(a.Value)}
}

// maskValue рекурсивно маскирует значения атрибутов
func (h *TokenMaskerHandler) maskValue(value slog.Value) slog.Value {
	value = value.Resolve()
	switch value.Kind() {
	case slog.KindString:
		return slog.StringValue(h.mask(value.String()))
	case slog.KindAny:
		// ошибки net/http содержат полный URL запроса вместе с токеном
		if err, ok := value.Any().(error); ok {
			return slog.StringValue(h.mask(err.Error()))
		}
		return value
	case slog.KindGroup:
		group := value.Group()
		masked := make([]slog.Attr, len(group))
		for i, attr := range group {
			masked[i] = h.maskAttr(attr)
		}
		return slog.GroupValue(masked...)
	default:
		return value
	}
}

// NewMaskedLogger создает новый экземпляр slog.Logger с маскировкой токенов
func NewMaskedLogger(handler slog.Handler, secrets ...string) *slog.Logger {
	return slog.New(NewTokenMaskerHandler(handler, secrets...))
}
