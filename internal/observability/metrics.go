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

// Metrics stores Prometheus collectors for the batch pipeline and the ops surface.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec
	classifyAttemptsTotal  *prometheus.CounterVec
	classifyRetriesTotal   prometheus.Counter
	classifyDuration       prometheus.Histogram
	batchOutcomesTotal     *prometheus.CounterVec
	batchRunsTotal         *prometheus.CounterVec
	batchRunDuration       prometheus.Histogram
	batchInProgress        prometheus.Gauge
	batchProgressRatio     prometheus.Gauge
	predictedCategoryTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feedback_batch",
				Name:      "http_requests_total",
				Help:      "Total number of ops HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "feedback_batch",
				Name:      "http_request_duration_seconds",
				Help:      "Ops HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		classifyAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feedback_batch",
				Name:      "classify_attempts_total",
				Help:      "Classification attempts grouped by result.",
			},
			[]string{"result"},
		),
		classifyRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "feedback_batch",
				Name:      "classify_retries_total",
				Help:      "Total number of classification retries scheduled.",
			},
		),
		classifyDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "feedback_batch",
				Name:      "classify_duration_seconds",
				Help:      "Duration of a single classification attempt in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		batchOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feedback_batch",
				Name:      "batch_outcomes_total",
				Help:      "Per-item batch outcomes grouped by status.",
			},
			[]string{"status"},
		),
		batchRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feedback_batch",
				Name:      "batch_runs_total",
				Help:      "Finished batch runs grouped by final status.",
			},
			[]string{"status"},
		),
		batchRunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "feedback_batch",
				Name:      "batch_run_duration_seconds",
				Help:      "Wall-clock duration of finished batch runs in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
			},
		),
		batchInProgress: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "feedback_batch",
				Name:      "batch_in_progress",
				Help:      "1 while a batch run is processing.",
			},
		),
		batchProgressRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "feedback_batch",
				Name:      "batch_progress_ratio",
				Help:      "Fraction of items attempted in the current batch run.",
			},
		),
		predictedCategoryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feedback_batch",
				Name:      "predicted_category_total",
				Help:      "Successful predictions grouped by category label.",
			},
			[]string{"category"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.classifyAttemptsTotal,
		m.classifyRetriesTotal,
		m.classifyDuration,
		m.batchOutcomesTotal,
		m.batchRunsTotal,
		m.batchRunDuration,
		m.batchInProgress,
		m.batchProgressRatio,
		m.predictedCategoryTotal,
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

func (m *Metrics) IncClassifyAttempt(result string) {
	if m == nil {
		return
	}
	m.classifyAttemptsTotal.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *Metrics) IncClassifyRetry() {
	if m == nil {
		return
	}
	m.classifyRetriesTotal.Inc()
}

func (m *Metrics) ObserveClassifyDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.classifyDuration.Observe(seconds)
}

func (m *Metrics) IncBatchOutcome(status string, category string) {
	if m == nil {
		return
	}
	m.batchOutcomesTotal.WithLabelValues(normalizeLabel(status)).Inc()
	if strings.TrimSpace(category) != "" {
		m.predictedCategoryTotal.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) SetBatchProgress(current int, total int) {
	if m == nil || total <= 0 {
		return
	}
	m.batchProgressRatio.Set(float64(current) / float64(total))
}

func (m *Metrics) BatchStarted() {
	if m == nil {
		return
	}
	m.batchInProgress.Set(1)
	m.batchProgressRatio.Set(0)
}

func (m *Metrics) BatchFinished(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.batchInProgress.Set(0)
	m.batchRunsTotal.WithLabelValues(normalizeLabel(status)).Inc()
	m.batchRunDuration.Observe(duration.Seconds())
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
