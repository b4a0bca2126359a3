package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used across the API and the batch
// lifecycle flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	batchTransitionsTotal *prometheus.CounterVec
	stockRejectionsTotal  *prometheus.CounterVec
	alertsRaisedTotal     *prometheus.CounterVec
	eventsPublishedTotal  *prometheus.CounterVec
	lockContentionTotal   prometheus.Counter
	lifecycleOpDuration   *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "factory_engine",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "factory_engine",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		batchTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "factory_engine",
				Name:      "batch_transitions_total",
				Help:      "Total number of committed batch status transitions.",
			},
			[]string{"to_status"},
		),
		stockRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "factory_engine",
				Name:      "stock_rejections_total",
				Help:      "Total number of reservations rejected for insufficient stock.",
			},
			[]string{"operation"},
		),
		alertsRaisedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "factory_engine",
				Name:      "alerts_raised_total",
				Help:      "Total number of alerts persisted, grouped by type.",
			},
			[]string{"type"},
		),
		eventsPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "factory_engine",
				Name:      "events_published_total",
				Help:      "Total number of events published to the broker, grouped by outcome.",
			},
			[]string{"event_type", "outcome"},
		),
		lockContentionTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "factory_engine",
				Name:      "lock_contention_total",
				Help:      "Total number of operations aborted on lock contention.",
			},
		),
		lifecycleOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "factory_engine",
				Name:      "lifecycle_op_duration_seconds",
				Help:      "Batch lifecycle operation duration in seconds grouped by operation.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"operation"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.batchTransitionsTotal,
		m.stockRejectionsTotal,
		m.alertsRaisedTotal,
		m.eventsPublishedTotal,
		m.lockContentionTotal,
		m.lifecycleOpDuration,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncBatchTransition(toStatus string) {
	if m == nil {
		return
	}
	m.batchTransitionsTotal.WithLabelValues(normalizeLabel(toStatus)).Inc()
}

func (m *Metrics) IncStockRejection(operation string) {
	if m == nil {
		return
	}
	m.stockRejectionsTotal.WithLabelValues(normalizeLabel(operation)).Inc()
}

func (m *Metrics) IncAlertRaised(alertType string) {
	if m == nil {
		return
	}
	m.alertsRaisedTotal.WithLabelValues(normalizeLabel(alertType)).Inc()
}

func (m *Metrics) IncEventPublished(eventType string, outcome string) {
	if m == nil {
		return
	}
	m.eventsPublishedTotal.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncLockContention() {
	if m == nil {
		return
	}
	m.lockContentionTotal.Inc()
}

func (m *Metrics) ObserveLifecycleOp(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.lifecycleOpDuration.WithLabelValues(normalizeLabel(operation)).Observe(seconds)
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
