// Package remote содержит HTTP-клиент внешнего сервиса индексации и поиска.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tg-search-relay/internal/domain"
)

// Client реализует ports.TextIndex, ports.ImageIndex и ports.Searcher поверх HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создает клиент с общим таймаутом запросов timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// StatusError описывает ответ сервиса с неожиданным кодом.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status code: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.Code, e.Body)
}

// QueueMessage отправляет текстовую запись в индекс.
func (c *Client) QueueMessage(ctx context.Context, record domain.IndexRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, nil)
}

// IndexImage отправляет изображения одним multipart-запросом: поле record с JSON записи
// и по одной части files на каждое изображение.
func (c *Client) IndexImage(ctx context.Context, buffers [][]byte, record domain.IndexRecord) error {
	meta, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	if err := w.WriteField("record", string(meta)); err != nil {
		return fmt.Errorf("failed to write record field: %w", err)
	}
	for n, buf := range buffers {
		name := fmt.Sprintf("%s_%d.jpg", record.ID, n)
		fw, err := w.CreateFormFile("files", name)
		if err != nil {
			return fmt.Errorf("failed to create form file for %s: %w", name, err)
		}
		if _, err := fw.Write(buf); err != nil {
			return fmt.Errorf("failed to copy file content for %s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/images", &b)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return c.do(req, nil)
}

// Search выполняет поиск. Пустые фильтры в запрос не попадают.
func (c *Client) Search(ctx context.Context, query domain.SearchQuery) (domain.SearchResult, error) {
	params := url.Values{}
	params.Set("q", query.Text)
	if query.ChatID != "" {
		params.Set("chat_id", query.ChatID)
	}
	if query.UserID != "" {
		params.Set("user_id", query.UserID)
	}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/search?"+params.Encode(), nil)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("failed to create request: %w", err)
	}

	var result domain.SearchResult
	if err := c.do(req, &result); err != nil {
		return domain.SearchResult{}, err
	}
	return result, nil
}

// do выполняет запрос и, если out не nil, декодирует в него JSON-ответ.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
