// Package sqlite реализует локальный текстовый индекс и поиск поверх SQLite FTS5.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"tg-search-relay/internal/domain"
)

// Триграммный токенизатор ищет подстроки, но только от трех символов.
const minMatchRunes = 3

const defaultLimit = 10

const schema = `
CREATE TABLE IF NOT EXISTS messages (
  id TEXT PRIMARY KEY,
  message_id INTEGER NOT NULL,
  chat_id TEXT NOT NULL,
  from_id TEXT NOT NULL,
  from_name TEXT NOT NULL DEFAULT '',
  text TEXT NOT NULL,
  raw_json TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT '',
  ts INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS messages_chat_ts ON messages (chat_id, ts);
CREATE INDEX IF NOT EXISTS messages_from_ts ON messages (from_id, ts);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
  text,
  content='messages',
  content_rowid='rowid',
  tokenize='trigram'
);

CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
  INSERT INTO messages_fts(rowid, text) VALUES (new.rowid, new.text);
END;
CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
  INSERT INTO messages_fts(messages_fts, rowid, text) VALUES ('delete', old.rowid, old.text);
END;
CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages BEGIN
  INSERT INTO messages_fts(messages_fts, rowid, text) VALUES ('delete', old.rowid, old.text);
  INSERT INTO messages_fts(rowid, text) VALUES (new.rowid, new.text);
END;`

// Index хранит сообщения в SQLite и отвечает на поисковые запросы.
// Реализует ports.TextIndex и ports.Searcher.
type Index struct {
	db *sql.DB
}

// Open открывает (или создает) базу по пути path и применяет схему.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// одно соединение: запись в SQLite все равно сериализуется
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=wal;`); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "set WAL")
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "set busy timeout")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "apply schema")
	}
	return &Index{db: db}, nil
}

// Close закрывает базу.
func (i *Index) Close() error { return i.db.Close() }

// Ping проверяет доступность базы.
func (i *Index) Ping(ctx context.Context) error {
	return errors.Wrap(i.db.PingContext(ctx), "ping sqlite")
}

// QueueMessage сохраняет запись. Запись с существующим ID заменяется целиком,
// так отредактированное сообщение вытесняет прежний текст.
func (i *Index) QueueMessage(ctx context.Context, record domain.IndexRecord) error {
	const q = `INSERT INTO messages (id, message_id, chat_id, from_id, from_name, text, raw_json, source, ts)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  message_id = excluded.message_id,
  chat_id = excluded.chat_id,
  from_id = excluded.from_id,
  from_name = excluded.from_name,
  text = excluded.text,
  raw_json = excluded.raw_json,
  source = excluded.source,
  ts = excluded.ts;`

	_, err := i.db.ExecContext(ctx, q,
		record.ID, record.MessageID, record.ChatID, record.FromID, record.FromName,
		record.Text, string(record.Raw), record.From, record.TimestampMs)
	return errors.Wrap(err, "upsert message")
}

// Search возвращает сообщения, содержащие query.Text, от новых к старым.
// Пустой текст означает выборку только по фильтрам чата и пользователя.
func (i *Index) Search(ctx context.Context, query domain.SearchQuery) (domain.SearchResult, error) {
	q, args := buildSearchQuery(query)

	rows, err := i.db.QueryContext(ctx, q, args...)
	if err != nil {
		return domain.SearchResult{}, errors.Wrap(err, "search messages")
	}
	defer rows.Close()

	result := domain.SearchResult{Hits: []domain.SearchHit{}}
	for rows.Next() {
		var hit domain.SearchHit
		if err := rows.Scan(&hit.FromName, &hit.Text, &hit.ChatID, &hit.MessageID); err != nil {
			return domain.SearchResult{}, errors.Wrap(err, "scan hit")
		}
		result.Hits = append(result.Hits, hit)
	}
	if err := rows.Err(); err != nil {
		return domain.SearchResult{}, errors.Wrap(err, "iterate hits")
	}
	return result, nil
}

func buildSearchQuery(query domain.SearchQuery) (string, []any) {
	var (
		builder    strings.Builder
		conditions []string
		args       []any
	)
	builder.WriteString("SELECT m.from_name, m.text, m.chat_id, m.message_id FROM messages m")

	text := strings.TrimSpace(query.Text)
	switch {
	case text == "":
	case utf8.RuneCountInString(text) >= minMatchRunes:
		conditions = append(conditions, "m.rowid IN (SELECT rowid FROM messages_fts WHERE messages_fts MATCH ?)")
		args = append(args, phrase(text))
	default:
		conditions = append(conditions, `m.text LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(text)+"%")
	}

	if query.ChatID != "" {
		conditions = append(conditions, "m.chat_id = ?")
		args = append(args, query.ChatID)
	}
	if query.UserID != "" {
		conditions = append(conditions, "m.from_id = ?")
		args = append(args, query.UserID)
	}

	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	builder.WriteString(fmt.Sprintf(" ORDER BY m.ts DESC, m.message_id DESC LIMIT %d", limit))

	return builder.String(), args
}

// phrase превращает пользовательский ввод в одну фразу FTS5, чтобы операторы
// и кавычки в запросе не интерпретировались как синтаксис.
func phrase(text string) string {
	return `"` + strings.ReplaceAll(text, `"`, `""`) + `"`
}

func escapeLike(text string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(text)
}
