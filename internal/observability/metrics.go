package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Control record outcomes.
const (
	OutcomeHandled  = "handled"
	OutcomeIgnored  = "ignored"
	OutcomeRejected = "rejected"
	OutcomeUnknown  = "unknown"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "diagctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"server", "method", "route", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "diagctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"server", "method", "route", "status"},
	)
	cntlRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "diagctl",
			Subsystem: "cntl",
			Name:      "records_total",
			Help:      "Inbound control records by command and outcome.",
		},
		[]string{"peripheral", "command", "outcome"},
	)
	cntlTruncated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "diagctl",
			Subsystem: "cntl",
			Name:      "truncated_total",
			Help:      "Control buffers abandoned at a truncated record.",
		},
		[]string{"peripheral"},
	)
	cntlQueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "diagctl",
			Subsystem: "cntl",
			Name:      "queued_total",
			Help:      "Outbound control records queued to peripherals.",
		},
		[]string{"peripheral", "command"},
	)
	routeEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "diagctl",
			Subsystem: "routes",
			Name:      "entries",
			Help:      "Route entries currently held by the routing table.",
		},
	)
	diagIDs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "diagctl",
			Subsystem: "diag_ids",
			Name:      "registered",
			Help:      "Diag-source ids assigned this session.",
		},
	)
	hwAccelRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "diagctl",
			Subsystem: "hw_accel",
			Name:      "requests_total",
			Help:      "Hardware-acceleration arbiter requests.",
		},
		[]string{"operation", "success"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			cntlRecords, cntlTruncated, cntlQueued,
			routeEntries, diagIDs, hwAccelRequests,
		)
	})
}

func RecordHTTPRequest(server, method, route string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(server, method, route, statusLabel).Inc()
	httpDuration.WithLabelValues(server, method, route, statusLabel).Observe(duration.Seconds())
}

func RecordControlRecord(peripheral, command, outcome string) {
	RegisterMetrics()
	cntlRecords.WithLabelValues(peripheral, command, outcome).Inc()
}

func RecordTruncated(peripheral string) {
	RegisterMetrics()
	cntlTruncated.WithLabelValues(peripheral).Inc()
}

func RecordQueued(peripheral, command string) {
	RegisterMetrics()
	cntlQueued.WithLabelValues(peripheral, command).Inc()
}

func SetRouteEntries(n int) {
	RegisterMetrics()
	routeEntries.Set(float64(n))
}

func SetDiagIDs(n int) {
	RegisterMetrics()
	diagIDs.Set(float64(n))
}

func RecordHWAccelRequest(operation string, success bool) {
	RegisterMetrics()
	hwAccelRequests.WithLabelValues(operation, strconv.FormatBool(success)).Inc()
}
