package bot

import (
	"encoding/json"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-search-relay/internal/domain"
)

// toDomainMessage переводит сообщение Bot API в доменную модель.
// Отсутствующие чат или отправитель остаются nil, решение о них принимает ядро.
func toDomainMessage(m *tgbotapi.Message, edited bool) *domain.Message {
	if m == nil {
		return nil
	}

	msg := &domain.Message{
		ID:       m.MessageID,
		Date:     int64(m.Date),
		Text:     m.Text,
		Caption:  m.Caption,
		Entities: toDomainEntities(m.Entities),
		Photos:   toPhotoVariants(m.Photo),
		Edited:   edited,
	}

	if m.Chat != nil {
		msg.Chat = &domain.Chat{
			ID:    m.Chat.ID,
			Kind:  domain.ChatKind(m.Chat.Type),
			Title: m.Chat.Title,
		}
	}
	if m.From != nil {
		msg.From = toDomainUser(m.From)
	}

	if raw, err := json.Marshal(m); err == nil {
		msg.Raw = raw
	}

	return msg
}

func toDomainUser(u *tgbotapi.User) *domain.User {
	return &domain.User{
		ID:        u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsBot:     u.IsBot,
	}
}

func toDomainEntities(entities []tgbotapi.MessageEntity) []domain.Entity {
	if len(entities) == 0 {
		return nil
	}
	out := make([]domain.Entity, 0, len(entities))
	for _, e := range entities {
		entity := domain.Entity{
			Kind:   domain.EntityKind(e.Type),
			Offset: e.Offset,
			Length: e.Length,
		}
		if e.User != nil {
			entity.UserID = e.User.ID
		}
		out = append(out, entity)
	}
	return out
}

func toPhotoVariants(sizes []tgbotapi.PhotoSize) []domain.PhotoVariant {
	if len(sizes) == 0 {
		return nil
	}
	out := make([]domain.PhotoVariant, 0, len(sizes))
	for _, s := range sizes {
		out = append(out, domain.PhotoVariant{Width: s.Width, FileRef: s.FileID})
	}
	return out
}

// searchCommand проверяет, является ли сообщение командой поиска, адресованной этому боту.
// Команды вида /search@other_bot принадлежат другому боту и не обрабатываются.
func searchCommand(m *tgbotapi.Message, botUsername string) (string, bool) {
	if m == nil || !m.IsCommand() || m.Command() != searchCommandName {
		return "", false
	}

	withAt := m.CommandWithAt()
	if i := strings.IndexByte(withAt, '@'); i >= 0 && botUsername != "" {
		if !strings.EqualFold(withAt[i+1:], botUsername) {
			return "", false
		}
	}

	return m.CommandArguments(), true
}
