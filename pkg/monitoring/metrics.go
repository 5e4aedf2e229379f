package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts total requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	// RequestDuration measures request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method", "path"},
	)

	// AdmissionDecisions counts admission pipeline outcomes.
	AdmissionDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_decisions_total",
			Help: "Admission pipeline decisions by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	// ReplayFailOpen counts replay guard fail-open events.
	ReplayFailOpen = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "replay_guard_fail_open_total",
			Help: "Replay guard store failures handled by failing open",
		},
	)

	// QuotaBurned counts reserved quota units per tenant.
	QuotaBurned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_units_burned_total",
			Help: "Daily quota units reserved per tenant",
		},
		[]string{"tenant_id", "tier"},
	)

	// QuotaRejections counts over-quota rejections per tenant.
	QuotaRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_rejections_total",
			Help: "Reservations rejected for exceeding the daily ceiling",
		},
		[]string{"tenant_id", "tier"},
	)

	// BackpressureMode exposes the latest sampled backpressure mode.
	BackpressureMode = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backpressure_mode",
			Help: "Current backpressure mode (0=normal 1=light 2=moderate 3=severe)",
		},
	)

	// QueueDepth exposes the latest queue depth sample.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pending_queue_depth",
			Help: "Latest pending outbound queue depth sample",
		},
	)

	// CircuitBreakerState exposes breaker state per vendor.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state per vendor (0=closed 1=half-open 2=open)",
		},
		[]string{"vendor"},
	)

	// VendorCalls counts vendor egress calls by result.
	VendorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendor_calls_total",
			Help: "Vendor egress calls by vendor and result",
		},
		[]string{"vendor", "result"},
	)

	// AuditQueueDepth exposes the audit recorder queue depth.
	AuditQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audit_queue_depth",
			Help: "Buffered audit records awaiting persistence",
		},
	)

	// AuditDropped counts audit records dropped on overflow or store failure.
	AuditDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_records_dropped_total",
			Help: "Audit records dropped by reason",
		},
		[]string{"reason"},
	)
)
