package domain

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	supergroupWireMarker = "-100"
	groupWireMarker      = "-"
)

// ChatIdentifier - стабильный идентификатор чата: тип плюс числовая часть без
// маркера платформы. В строку сериализуется только на границе индекса.
type ChatIdentifier struct {
	Kind      ChatKind
	NumericID string
}

// NewChatIdentifier строит идентификатор из типа чата и его wire id.
func NewChatIdentifier(kind ChatKind, wireID int64) ChatIdentifier {
	raw := strconv.FormatInt(wireID, 10)
	return ChatIdentifier{Kind: kind, NumericID: stripWireMarker(kind, raw)}
}

// String возвращает каноническую строковую форму, например "supergroup1234567".
func (id ChatIdentifier) String() string {
	return string(id.Kind) + id.NumericID
}

// WireID возвращает числовой идентификатор в формате платформы.
func (id ChatIdentifier) WireID() (int64, error) {
	return ToWireID(id.String())
}

// ToStableID убирает маркер платформы из rawNumericID и приписывает тип чата.
// Для неизвестных типов числовая часть не меняется.
func ToStableID(kind ChatKind, rawNumericID string) string {
	return string(kind) + stripWireMarker(kind, rawNumericID)
}

// ToWireID восстанавливает числовой id платформы из стабильной формы.
// Обратное преобразование определено только для supergroup и group,
// остальные значения разбираются как есть.
func ToWireID(stableID string) (int64, error) {
	raw := stableID
	switch {
	case strings.HasPrefix(stableID, string(ChatKindSupergroup)):
		raw = supergroupWireMarker + strings.TrimPrefix(stableID, string(ChatKindSupergroup))
	case strings.HasPrefix(stableID, string(ChatKindGroup)):
		raw = groupWireMarker + strings.TrimPrefix(stableID, string(ChatKindGroup))
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid stable chat id %q: %w", stableID, err)
	}
	return id, nil
}

// DeepLinkChatID оставляет в стабильном id только числовую часть.
func DeepLinkChatID(stableID string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return -1
		}
		return r
	}, stableID)
}

func stripWireMarker(kind ChatKind, raw string) string {
	switch kind {
	case ChatKindSupergroup:
		return strings.TrimPrefix(raw, supergroupWireMarker)
	case ChatKindGroup:
		return strings.TrimPrefix(raw, groupWireMarker)
	default:
		return raw
	}
}
