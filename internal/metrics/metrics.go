// Package metrics собирает Prometheus-метрики сервиса: HTTP-запросы,
// операции учёта и запуски фоновых задач.
// Все методы безопасны для nil-получателя, поэтому сервисы и тесты
// могут работать без метрик.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "brusliste"

// Metrics держит собственный реестр, а не глобальный prometheus.DefaultRegisterer:
// так в тестах можно создавать сколько угодно экземпляров.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	ledgerTransactions *prometheus.CounterVec
	ledgerUnits        *prometheus.CounterVec
	ledgerAmount       *prometheus.CounterVec
	ledgerRejections   *prometheus.CounterVec

	keysIssued prometheus.Counter

	jobRuns     *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
}

// New создаёт и регистрирует все коллекторы.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms .. ~5s
		}, []string{"method", "route"}),
		ledgerTransactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transactions_total",
			Help:      "Ledger transactions recorded, by kind.",
		}, []string{"kind"}),
		ledgerUnits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "beverage_units_total",
			Help:      "Absolute beverage units moved by ledger transactions, by kind.",
		}, []string{"kind"}),
		ledgerAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "amount_minor_units_total",
			Help:      "Sum of transaction amounts in minor currency units, by kind.",
		}, []string{"kind"}),
		ledgerRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "rejections_total",
			Help:      "Ledger operations rejected before commit, by reason.",
		}, []string{"reason"}),
		keysIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "access",
			Name:      "keys_issued_total",
			Help:      "API keys issued.",
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Scheduled job runs, by job and outcome.",
		}, []string{"job", "success"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "run_duration_seconds",
			Help:      "Duration of scheduled job runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}, []string{"job"}),
	}

	m.registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.ledgerTransactions,
		m.ledgerUnits,
		m.ledgerAmount,
		m.ledgerRejections,
		m.keysIssued,
		m.jobRuns,
		m.jobDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// Registry нужен тестам и /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler отдаёт метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// GinMiddleware считает запросы и их длительность.
// Метка route берётся из шаблона маршрута (/api/people/:id), а не из URL,
// чтобы число серий не росло с каждым id.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := strings.ToUpper(c.Request.Method)
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordTransaction учитывает записанную транзакцию журнала.
func (m *Metrics) RecordTransaction(kind string, units int64, amountMinor int64) {
	if m == nil {
		return
	}
	if units < 0 {
		units = -units
	}
	m.ledgerTransactions.WithLabelValues(kind).Inc()
	m.ledgerUnits.WithLabelValues(kind).Add(float64(units))
	m.ledgerAmount.WithLabelValues(kind).Add(float64(amountMinor))
}

// RecordRejection учитывает отказ (возврат больше долга, удаление должника, ...).
func (m *Metrics) RecordRejection(reason string) {
	if m == nil {
		return
	}
	m.ledgerRejections.WithLabelValues(reason).Inc()
}

// RecordKeyIssued учитывает выданный API-ключ.
func (m *Metrics) RecordKeyIssued() {
	if m == nil {
		return
	}
	m.keysIssued.Inc()
}

// RecordJobRun учитывает запуск фоновой задачи.
func (m *Metrics) RecordJobRun(job string, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	if job == "" {
		job = "unknown"
	}
	m.jobRuns.WithLabelValues(job, strconv.FormatBool(success)).Inc()
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}
