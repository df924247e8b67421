package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the engine's prometheus instruments.
type Metrics struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	eventsAppended    *prometheus.CounterVec
	complianceChecks  *prometheus.CounterVec
	ledgerSubmissions *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		httpRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "herbtrace_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "herbtrace_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		eventsAppended: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "herbtrace_events_appended_total",
			Help: "Supply-chain events appended by type.",
		}, []string{"event_type"}),
		complianceChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "herbtrace_compliance_checks_total",
			Help: "Compliance evaluations by overall verdict.",
		}, []string{"verdict"}),
		ledgerSubmissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "herbtrace_ledger_submissions_total",
			Help: "Ledger anchor submissions by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}
}

func (m *Metrics) RecordEventAppended(eventType string) {
	if m == nil {
		return
	}
	m.eventsAppended.WithLabelValues(eventType).Inc()
}

func (m *Metrics) RecordComplianceCheck(passed bool) {
	if m == nil {
		return
	}
	verdict := "fail"
	if passed {
		verdict = "pass"
	}
	m.complianceChecks.WithLabelValues(verdict).Inc()
}

func (m *Metrics) RecordLedgerSubmission(operation, outcome string) {
	if m == nil {
		return
	}
	m.ledgerSubmissions.WithLabelValues(operation, outcome).Inc()
}

// GinMiddleware records request counters and latency per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
