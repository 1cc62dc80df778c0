// Package metrics собирает счетчики Prometheus для обработки событий, индексации и поиска.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tg_search_relay"

// Registry объединяет коллекторы приложения в собственном реестре.
// Методы безопасны для nil-получателя, что позволяет отключить метрики.
type Registry struct {
	registry        *prometheus.Registry
	events          *prometheus.CounterVec
	dispatches      *prometheus.CounterVec
	searches        *prometheus.CounterVec
	searchHits      *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	replies         *prometheus.CounterVec
}

// New создает реестр и регистрирует в нем все коллекторы.
func New() *Registry {
	registry := prometheus.NewRegistry()
	m := &Registry{
		registry: registry,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Chat events by handling outcome",
		}, []string{"outcome"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_dispatches_total",
			Help:      "Index submissions by target and result",
		}, []string{"target", "result"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Executed search commands by scope",
		}, []string{"scope"}),
		searchHits: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_hits",
			Help:      "Number of hits returned per search",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		}, []string{"scope"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests received",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Replies sent to chats by result",
		}, []string{"result"}),
	}

	registry.MustRegister(
		m.events,
		m.dispatches,
		m.searches,
		m.searchHits,
		m.requestsTotal,
		m.requestDuration,
		m.replies,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler возвращает HTTP-обработчик для эндпоинта /metrics.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// EventHandled учитывает итог обработки одного события чата.
func (m *Registry) EventHandled(outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(outcome).Inc()
}

// IndexDispatched учитывает отправку записи в индекс.
func (m *Registry) IndexDispatched(target string, err error) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(target, result(err)).Inc()
}

// SearchExecuted учитывает выполненный поиск и число найденных сообщений.
func (m *Registry) SearchExecuted(scope string, hits int) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(scope).Inc()
	m.searchHits.WithLabelValues(scope).Observe(float64(hits))
}

// ReplySent учитывает отправку ответа в чат.
func (m *Registry) ReplySent(err error) {
	if m == nil {
		return
	}
	m.replies.WithLabelValues(result(err)).Inc()
}

// ObserveRequest записывает длительность и статус HTTP-запроса.
func (m *Registry) ObserveRequest(route, method string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(dur.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
