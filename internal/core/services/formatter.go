package services

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-search-relay/internal/domain"
)

const (
	// NotFoundReply отправляется, если поиск ничего не нашел.
	NotFoundReply = "Nothing found."
	// ResultsHeader - первая строка ответа с результатами.
	ResultsHeader = "Search results:"

	hitPreviewLength = 30
	deepLinkBase     = "https://t.me/c/"
)

// FormatReply собирает текст ответа на /search в порядке выдачи индекса.
func FormatReply(hits []domain.SearchHit) string {
	if len(hits) == 0 {
		return NotFoundReply
	}

	lines := make([]string, 0, len(hits)+1)
	lines = append(lines, ResultsHeader)
	for _, hit := range hits {
		lines = append(lines, FormatHit(hit))
	}
	return strings.Join(lines, "\n")
}

// FormatHit форматирует одно совпадение в строку Markdown со ссылкой на сообщение.
// Имя и превью экранируются, ответ уходит с ParseMode Markdown.
func FormatHit(hit domain.SearchHit) string {
	return fmt.Sprintf("*%s*：%s [jump](%s)",
		escapeMarkdown(hit.FromName),
		escapeMarkdown(previewText(hit.Text)),
		DeepLink(hit.ChatID, hit.MessageID),
	)
}

func escapeMarkdown(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

// DeepLink строит ссылку, открывающую сообщение в клиенте.
func DeepLink(chatID string, messageID int) string {
	return fmt.Sprintf("%s%s/%d", deepLinkBase, domain.DeepLinkChatID(chatID), messageID)
}

// @ вырезается, чтобы ответ не упоминал пользователей повторно.
func previewText(text string) string {
	cleaned := strings.ReplaceAll(text, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "@", "")

	runes := []rune(cleaned)
	if len(runes) > hitPreviewLength {
		return string(runes[:hitPreviewLength]) + "..."
	}
	return cleaned
}
