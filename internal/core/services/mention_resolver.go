package services

import (
	"strings"

	"tg-search-relay/internal/domain"
	"tg-search-relay/internal/ports"
)

// Mention - упоминание, разрешенное в числовой id пользователя.
type Mention struct {
	UserID int64
	// Span - фрагмент исходного текста, занятый упоминанием.
	Span string
	// Offset и Length - границы Span в тексте в UTF-16 code units.
	Offset int
	Length int
}

// MentionResolver находит в сообщении упомянутого пользователя.
type MentionResolver struct {
	directory ports.UserDirectory
}

// NewMentionResolver создает резолвер поверх справочника пользователей.
func NewMentionResolver(directory ports.UserDirectory) *MentionResolver {
	return &MentionResolver{directory: directory}
}

// Resolve возвращает упомянутого пользователя. text_mention с явным id всегда
// важнее @username. Username, которого нет в справочнике, равносилен отсутствию упоминания.
func (r *MentionResolver) Resolve(text string, entities []domain.Entity) (Mention, bool) {
	for _, e := range entities {
		if e.Kind == domain.EntityTextMention && e.UserID != 0 {
			span, _ := utf16Slice(text, e.Offset, e.Length)
			return Mention{UserID: e.UserID, Span: span, Offset: e.Offset, Length: e.Length}, true
		}
	}

	for _, e := range entities {
		if e.Kind != domain.EntityMention {
			continue
		}
		span, ok := utf16Slice(text, e.Offset, e.Length)
		if !ok {
			return Mention{}, false
		}
		userID, found := r.directory.Lookup(strings.TrimPrefix(span, "@"))
		if !found {
			return Mention{}, false
		}
		return Mention{UserID: userID, Span: span, Offset: e.Offset, Length: e.Length}, true
	}

	return Mention{}, false
}
