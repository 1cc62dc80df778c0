package ports

import (
	"context"
	"errors"

	"tg-search-relay/internal/domain"
)

// ErrUserNotFound возвращается платформой, если пользователь ей неизвестен.
var ErrUserNotFound = errors.New("user not found")

// MemberStatus - статус участника чата.
type MemberStatus string

const (
	MemberStatusCreator       MemberStatus = "creator"
	MemberStatusAdministrator MemberStatus = "administrator"
	MemberStatusMember        MemberStatus = "member"
	MemberStatusRestricted    MemberStatus = "restricted"
	MemberStatusLeft          MemberStatus = "left"
	MemberStatusKicked        MemberStatus = "kicked"
)

// IsPresent сообщает, состоит ли пользователь в чате.
func (s MemberStatus) IsPresent() bool {
	switch s {
	case MemberStatusLeft, MemberStatusKicked, "":
		return false
	default:
		return true
	}
}

// Reply - ответ бота, привязанный к сообщению.
type Reply struct {
	ChatID           int64
	ReplyToMessageID int
	Text             string
}

// Platform - поверхность чат-платформы, которой пользуется ядро.
type Platform interface {
	ChatMember(ctx context.Context, chatID, userID int64) (MemberStatus, error)
	// ProfilePhotos возвращает фотографии профиля, каждая - набор размеров.
	ProfilePhotos(ctx context.Context, userID int64) ([][]domain.PhotoVariant, error)
	DownloadFile(ctx context.Context, fileRef string) ([]byte, error)
	SendReply(ctx context.Context, reply Reply) error
}
