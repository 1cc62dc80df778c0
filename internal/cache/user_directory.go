package cache

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// UserDirectory - ограниченный по размеру кэш username → id пользователя.
// Заполняется по мере наблюдения сообщений и живет только в памяти процесса:
// записи вытесняются по LRU и по истечении TTL, последняя запись побеждает.
type UserDirectory struct {
	entries *expirable.LRU[string, int64]
}

// NewUserDirectory создает справочник на size записей. ttl <= 0 отключает устаревание.
func NewUserDirectory(size int, ttl time.Duration) *UserDirectory {
	if size <= 0 {
		size = 1
	}
	if ttl < 0 {
		ttl = 0
	}
	return &UserDirectory{
		entries: expirable.NewLRU[string, int64](size, nil, ttl),
	}
}

// Remember безусловно перезаписывает соответствие. Возвращает true,
// если username не было в справочнике.
func (d *UserDirectory) Remember(username string, userID int64) bool {
	key := normalizeUsername(username)
	if key == "" {
		return false
	}
	_, known := d.entries.Peek(key)
	d.entries.Add(key, userID)
	return !known
}

// Lookup ищет id по username. Регистр и ведущий @ не учитываются.
func (d *UserDirectory) Lookup(username string) (int64, bool) {
	key := normalizeUsername(username)
	if key == "" {
		return 0, false
	}
	return d.entries.Get(key)
}

// Len возвращает текущее количество записей.
func (d *UserDirectory) Len() int {
	return d.entries.Len()
}

// Usernames в Telegram нечувствительны к регистру.
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}
