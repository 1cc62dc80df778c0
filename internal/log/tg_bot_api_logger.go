package log

import (
	"fmt"
	"log/slog"
	"strings"
)

// TGBotAPIAdapter адаптирует slog.Logger под интерфейс логгера,
// который ожидает библиотека go-telegram-bot-api/v5 (tgbotapi.BotLogger).
type TGBotAPIAdapter struct {
	Logger *slog.Logger
}

// Println реализует метод интерфейса tgbotapi.BotLogger.
func (a *TGBotAPIAdapter) Println(v ...interface{}) {
	// Библиотека пишет сюда в основном ошибки long polling, они проходят через маскировщик.
	a.Logger.Warn(strings.TrimSpace(fmt.Sprintln(v...)), "component", "tgbotapi")
}

// Printf реализует метод интерфейса tgbotapi.BotLogger.
func (a *TGBotAPIAdapter) Printf(format string, v ...interface{}) {
	a.Logger.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "tgbotapi")
}
