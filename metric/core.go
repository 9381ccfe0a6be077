package metric

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the gateway-wide instruments. All of them live on a
// private registry so tests can assert on values without process-global
// state bleeding between cases.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	ResponsesTotal     *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec
	ThrottleRejections *prometheus.CounterVec
	InFlight           prometheus.Gauge
	BodyBytesRead      prometheus.Counter

	NATSConnected prometheus.Gauge
	RedisHealthy  prometheus.Gauge
}

// NewMetrics creates all gateway instruments, unregistered.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "actiongate",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total web action requests received",
			},
			[]string{"surface", "method"},
		),

		ResponsesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "actiongate",
				Subsystem: "http",
				Name:      "responses_total",
				Help:      "Total responses written, by status class",
			},
			[]string{"surface", "class"},
		),

		InvocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "actiongate",
				Subsystem: "invoke",
				Name:      "duration_seconds",
				Help:      "Blocking invocation wall time in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"namespace", "outcome"},
		),

		ThrottleRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "actiongate",
				Subsystem: "throttle",
				Name:      "rejections_total",
				Help:      "Requests rejected by the entitlement layer",
			},
			[]string{"kind"},
		),

		InFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "actiongate",
				Subsystem: "http",
				Name:      "in_flight",
				Help:      "Requests currently being handled",
			},
		),

		BodyBytesRead: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "actiongate",
				Subsystem: "http",
				Name:      "body_bytes_read_total",
				Help:      "Total request body bytes read",
			},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "actiongate",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		RedisHealthy: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "actiongate",
				Subsystem: "redis",
				Name:      "healthy",
				Help:      "Redis throttle store configured at startup (0=not configured, 1=configured); reachability is not re-probed",
			},
		),
	}
}

// ObserveInvocation records one completed invocation. It satisfies the
// pipeline's Metrics dependency.
func (m *Metrics) ObserveInvocation(namespace, outcome string, seconds float64) {
	m.InvocationDuration.WithLabelValues(namespace, outcome).Observe(seconds)
}

// CountRequest records an incoming request on a surface.
func (m *Metrics) CountRequest(surface, method string) {
	m.RequestsTotal.WithLabelValues(surface, method).Inc()
}

// CountResponse records a written response bucketed by status class,
// e.g. 404 counts under "4xx".
func (m *Metrics) CountResponse(surface string, status int) {
	m.ResponsesTotal.WithLabelValues(surface, statusClass(status)).Inc()
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
