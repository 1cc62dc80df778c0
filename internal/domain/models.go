package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ChatKind - тип чата платформы в том виде, в каком его присылает Bot API.
type ChatKind string

const (
	ChatKindPrivate    ChatKind = "private"
	ChatKindGroup      ChatKind = "group"
	ChatKindSupergroup ChatKind = "supergroup"
	ChatKindChannel    ChatKind = "channel"
)

// EntityKind - тип разметки внутри текста сообщения.
type EntityKind string

const (
	// EntityMention - упоминание вида @username, требует поиска по справочнику.
	EntityMention EntityKind = "mention"
	// EntityTextMention - упоминание пользователя без username, id передается явно.
	EntityTextMention EntityKind = "text_mention"
	EntityBotCommand  EntityKind = "bot_command"
)

// IndexRecordSource - значение поля from у всех записей, созданных ботом.
const IndexRecordSource = "bot"

// Chat описывает чат, из которого пришло событие.
type Chat struct {
	ID    int64
	Kind  ChatKind
	Title string
}

// Identifier возвращает тегированный идентификатор чата.
func (c Chat) Identifier() ChatIdentifier {
	return NewChatIdentifier(c.Kind, c.ID)
}

// User описывает отправителя сообщения.
type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	IsBot     bool
}

// DisplayName склеивает имя и фамилию пользователя.
func (u User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// FromID возвращает идентификатор отправителя в формате индекса ("user" + id).
func (u User) FromID() string {
	return UserFilter(u.ID)
}

// UserFilter формирует значение fromId для фильтра поиска.
func UserFilter(userID int64) string {
	return "user" + strconv.FormatInt(userID, 10)
}

// Entity - размеченный фрагмент текста. Offset и Length заданы в UTF-16 code units,
// как их отдает платформа.
type Entity struct {
	Kind   EntityKind
	Offset int
	Length int
	// UserID заполнен только для EntityTextMention.
	UserID int64
}

// Message - нормализованное входящее событие чата (новое или отредактированное сообщение).
type Message struct {
	ID       int
	Chat     *Chat
	From     *User
	Date     int64 // секунды Unix
	Text     string
	Caption  string
	Entities []Entity
	Photos   []PhotoVariant
	Edited   bool
	// Raw - исходный JSON сообщения платформы.
	Raw json.RawMessage
}

// Payload возвращает текст для индексации: text, а если его нет - caption.
func (m *Message) Payload() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

// SearchCommand - разобранная команда /search.
type SearchCommand struct {
	Message *Message
	// Args - все, что идет после команды.
	Args string
}

// IndexRecord - запись текстового индекса. Создается один раз на сообщение
// и сразу передается индексу.
type IndexRecord struct {
	ID          string          `json:"id"`
	MessageID   int             `json:"messageId"`
	ChatID      string          `json:"chatId"`
	FromID      string          `json:"fromId"`
	FromName    string          `json:"fromName"`
	Text        string          `json:"text"`
	Raw         json.RawMessage `json:"raw,omitempty"`
	From        string          `json:"from"`
	TimestampMs int64           `json:"timestamp"`
}

// RecordID строит уникальный ключ записи: chatId + "__" + messageId.
func RecordID(chatID string, messageID int) string {
	return chatID + "__" + strconv.Itoa(messageID)
}

// SearchQuery - запрос к поисковому сервису. Пустые фильтры не применяются.
type SearchQuery struct {
	Text   string
	ChatID string
	UserID string
	Limit  int
}

// SearchHit - одно совпадение, возвращенное поисковым сервисом.
type SearchHit struct {
	FromName  string `json:"fromName"`
	Text      string `json:"text"`
	ChatID    string `json:"chatId"`
	MessageID int    `json:"messageId"`
}

// SearchResult - ответ поискового сервиса.
type SearchResult struct {
	Hits []SearchHit `json:"hits"`
}
