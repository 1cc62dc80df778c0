// Package server реализует HTTP-сервер для приема обновлений Telegram через webhook.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Обновления Telegram заметно меньше, это лишь верхняя граница тела запроса.
const maxUpdateSize = 1 << 20

// UpdateHandler принимает разобранное обновление.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// TokenChecker проверяет секрет из пути запроса.
type TokenChecker interface {
	CheckToken(candidate string) bool
}

// HealthCheck сообщает о готовности зависимостей (например, локального индекса).
type HealthCheck func(ctx context.Context) error

// Metrics принимает сведения о запросах и отдает эндпоинт /metrics.
type Metrics interface {
	ObserveRequest(route, method string, status int, dur time.Duration)
	Handler() http.Handler
}

// Server представляет HTTP-сервер
type Server struct {
	HTTPServer *http.Server
	baseCtx    context.Context
	updates    UpdateHandler
	tokens     TokenChecker
	health     HealthCheck
	metrics    Metrics
	logger     *slog.Logger
}

// Option настраивает Server.
type Option func(*Server)

// WithHealthCheck добавляет проверку зависимостей в /health.
func WithHealthCheck(check HealthCheck) Option {
	return func(s *Server) { s.health = check }
}

// WithMetrics включает учет запросов и эндпоинт /metrics.
func WithMetrics(m Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger задает логгер сервера.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New создает сервер на адресе addr. Обновления передаются в updates с контекстом
// baseCtx, а не с контекстом запроса: обработка продолжается после ответа Telegram.
func New(baseCtx context.Context, addr string, updates UpdateHandler, tokens TokenChecker, opts ...Option) *Server {
	s := &Server{
		baseCtx: baseCtx,
		updates: updates,
		tokens:  tokens,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "server"))

	chiRouter := chi.NewRouter()

	// Промежуточное ПО
	chiRouter.Use(requestID)
	chiRouter.Use(s.observe)
	chiRouter.Use(middleware.Recoverer)

	chiRouter.Get("/health", s.handleHealth)
	if s.metrics != nil {
		chiRouter.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	chiRouter.Post("/updates/{token}", s.handleUpdate)

	s.HTTPServer = &http.Server{
		Addr:              addr,
		Handler:           chiRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe запускает HTTP-сервер
func (s *Server) ListenAndServe() error {
	s.logger.Info("Starting webhook server", slog.String("address", s.HTTPServer.Addr))
	return s.HTTPServer.ListenAndServe()
}

// Shutdown корректно останавливает HTTP-сервер
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down webhook server")
	return s.HTTPServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.Warn("health check failed", slog.String("error", err.Error()))
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	// неверный секрет неотличим от несуществующего маршрута
	if !s.tokens.CheckToken(chi.URLParam(r, "token")) {
		http.NotFound(w, r)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateSize)).Decode(&update); err != nil {
		s.logger.Warn("failed to decode update",
			slog.String("request_id", requestIDFrom(r.Context())),
			slog.String("error", err.Error()),
		)
		http.Error(w, "invalid update", http.StatusBadRequest)
		return
	}

	s.logger.Debug("update received",
		slog.String("request_id", requestIDFrom(r.Context())),
		slog.Int("update_id", update.UpdateID),
	)
	s.updates.HandleUpdate(s.baseCtx, update)
	w.WriteHeader(http.StatusOK)
}

// observe пишет в лог и метрики шаблон маршрута, а не путь: в пути лежит секрет.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		dur := time.Since(start)

		if s.metrics != nil {
			s.metrics.ObserveRequest(route, r.Method, status, dur)
		}
		s.logger.Debug("request served",
			slog.String("request_id", requestIDFrom(r.Context())),
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("duration", dur),
		)
	})
}
