package services

import "crypto/subtle"

// UpdateTokenChecker сверяет секрет, пришедший вместе с обновлением, с настроенным.
type UpdateTokenChecker struct {
	token []byte
}

// NewUpdateTokenChecker создает проверку для токена token.
func NewUpdateTokenChecker(token string) *UpdateTokenChecker {
	return &UpdateTokenChecker{token: []byte(token)}
}

// CheckToken сравнивает candidate с настроенным токеном за время, не зависящее
// от позиции первого несовпадения. Пустой настроенный токен не совпадает ни с чем.
func (c *UpdateTokenChecker) CheckToken(candidate string) bool {
	if len(c.token) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(c.token, []byte(candidate)) == 1
}
