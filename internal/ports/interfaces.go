package ports

import (
	"context"

	"tg-search-relay/internal/domain"
)

// TextIndex принимает записи для текстового индекса.
type TextIndex interface {
	// QueueMessage ставит запись в индекс. Повторная запись с тем же ID перезаписывает старую.
	QueueMessage(ctx context.Context, record domain.IndexRecord) error
}

// ImageIndex принимает изображения вместе с базовой записью сообщения.
type ImageIndex interface {
	IndexImage(ctx context.Context, buffers [][]byte, record domain.IndexRecord) error
}

// Searcher выполняет поиск по индексу.
type Searcher interface {
	Search(ctx context.Context, query domain.SearchQuery) (domain.SearchResult, error)
}

// UserDirectory - кэш соответствия username → id пользователя.
type UserDirectory interface {
	// Remember сохраняет соответствие и сообщает, был ли username неизвестен до этого.
	Remember(username string, userID int64) bool
	Lookup(username string) (int64, bool)
}
