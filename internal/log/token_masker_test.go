package log

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testToken = "bot8462697481:AAEJSXuTcb2F1Js2sWiK0TVWvxbHL9xX05Q"

func TestTokenMaskerHandler_Handle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "mask telegram token in message",
			input:    `Post "https://api.telegram.org/` + testToken + `/getUpdates": net/http: request canceled`,
			expected: `Post "https://api.telegram.org/bot***:***masked-token***/getUpdates": net/http: request canceled`,
		},
		{
			name:     "no token in message",
			input:    "This is a normal log message without tokens",
			expected: "This is a normal log message without tokens",
		},
		{
			name:     "multiple tokens in message",
			input:    "Token1: bot123456789:AAABCdEfGhIjKlMnOpQrStUvWxYz1234567, Token2: bot987654321:AAzZzYyXxWwVvUuTtSsRrQqPpOnNmLlKkJjI",
			expected: "Token1: bot***:***masked-token***, Token2: bot***:***masked-token***",
		},
		{
			name:     "mask webhook secret",
			input:    "POST /updates/hook-secret-42 rejected",
			expected: "POST /updates/***masked*** rejected",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel() // параллельный запуск выявляет гонки на общей записи
			var buf bytes.Buffer
			logger := NewMaskedLogger(slog.NewJSONHandler(&buf, nil), "hook-secret-42")

			logger.Info(tt.input)

			expectedEscaped := strings.ReplaceAll(tt.expected, "\"", "\\\"")
			assert.Contains(t, buf.String(), expectedEscaped)
		})
	}
}

func TestTokenMaskerHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewMaskedLogger(slog.NewJSONHandler(&buf, nil))

	logger = logger.With(slog.String("token", testToken))
	logger.Info("message with token in attr")

	output := buf.String()
	assert.NotContains(t, output, testToken)
	assert.Contains(t, output, "***masked-token***")
}

func TestTokenMaskerHandler_ErrorsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := NewMaskedLogger(slog.NewJSONHandler(&buf, nil), "s3cr3t")

	err := errors.New(`Get "https://api.telegram.org/` + testToken + `/getMe": timeout`)
	logger.WithGroup("req").Error("request failed",
		"error", err,
		slog.Group("webhook", slog.String("path", "/updates/s3cr3t")),
	)

	output := buf.String()
	assert.NotContains(t, output, testToken)
	assert.NotContains(t, output, "s3cr3t")
	assert.Contains(t, output, "/updates/***masked***")
}

func TestTokenMaskerHandler_EmptySecretsIgnored(t *testing.T) {
	var buf bytes.Buffer
	logger := NewMaskedLogger(slog.NewJSONHandler(&buf, nil), "", "")

	logger.Info("plain message")

	assert.Contains(t, buf.String(), "plain message")
}

func TestMask(t *testing.T) {
	h := NewTokenMaskerHandler(slog.NewTextHandler(&bytes.Buffer{}, nil))

	tests := []struct {
		input    string
		expected string
	}{
		{
			input:    `Post "https://api.telegram.org/` + testToken + `/getUpdates"`,
			expected: `Post "https://api.telegram.org/bot***:***masked-token***/getUpdates"`,
		},
		{input: "No token here", expected: "No token here"},
		{input: "bot123456789:AAABCdEfGhIjKlMnOpQrStUvWxYz1234567", expected: "bot***:***masked-token***"},
		{input: "bot123:short", expected: "bot123:short"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, h.mask(tt.input))
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNew_TextFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "text", "topsecret")

	logger.Info("hidden")
	logger.Warn("shown", "value", "topsecret")

	output := buf.String()
	assert.NotContains(t, output, "hidden")
	assert.Contains(t, output, "level=WARN")
	assert.Contains(t, output, "value=***masked***")
}

func TestTGBotAPIAdapter(t *testing.T) {
	var buf bytes.Buffer
	adapter := &TGBotAPIAdapter{Logger: New(&buf, "debug", "json")}

	adapter.Printf("Failed to get updates, retrying: %s", `Post "https://api.telegram.org/`+testToken+`/getUpdates"`)
	adapter.Println("second", "line")

	output := buf.String()
	assert.NotContains(t, output, testToken)
	assert.Contains(t, output, "second line")
	assert.Contains(t, output, `"component":"tgbotapi"`)
}
