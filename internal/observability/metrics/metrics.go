package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "device_insight_"

	resultSuccess = "success"
	resultError   = "error"

	outcomeHit  = "hit"
	outcomeMiss = "miss"
)

var (
	registerOnce sync.Once

	snapshotLoadTotal   *prometheus.CounterVec
	snapshotLoadLatency *prometheus.HistogramVec
	snapshotCacheTotal  *prometheus.CounterVec

	apiRequestTotal   *prometheus.CounterVec
	apiRequestLatency *prometheus.HistogramVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	compareTotal   *prometheus.CounterVec
	compareDevices prometheus.Histogram

	tierMemoTotal *prometheus.CounterVec
)

// Option configures Init.
type Option func(*config)

type config struct {
	devicesTable string
	sensorsTable string
}

// WithTables names the tables the DB-backed gauges count.
func WithTables(devicesTable, sensorsTable string) Option {
	return func(c *config) {
		if devicesTable != "" {
			c.devicesTable = devicesTable
		}
		if sensorsTable != "" {
			c.sensorsTable = sensorsTable
		}
	}
}

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger, opts ...Option) {
	registerOnce.Do(func() {
		cfg := config{devicesTable: "devices", sensorsTable: "sensors"}
		for _, opt := range opts {
			opt(&cfg)
		}

		snapshotLoadTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "snapshot_load_total",
				Help: "Total fleet snapshot loads by result",
			},
			[]string{"result"},
		)
		snapshotLoadLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "snapshot_load_latency_seconds",
				Help:    "Fleet snapshot load latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		snapshotCacheTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "snapshot_cache_lookups_total",
				Help: "Snapshot cache lookups by outcome",
			},
			[]string{"outcome"},
		)

		apiRequestTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "api_requests_total",
				Help: "Total API requests by route and status class",
			},
			[]string{"route", "status"},
		)
		apiRequestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "api_request_latency_seconds",
				Help:    "API request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		compareTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "compare_total",
				Help: "Total device comparisons by result",
			},
			[]string{"result"},
		)
		compareDevices = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "compare_devices",
				Help:    "Number of devices per comparison",
				Buckets: []float64{1, 2, 3, 4},
			},
		)

		tierMemoTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "tier_memo_lookups_total",
				Help: "Tier score memo lookups by outcome",
			},
			[]string{"outcome"},
		)

		prometheus.MustRegister(
			snapshotLoadTotal,
			snapshotLoadLatency,
			snapshotCacheTotal,
			apiRequestTotal,
			apiRequestLatency,
			exportTotal,
			exportLatency,
			compareTotal,
			compareDevices,
			tierMemoTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger, cfg)
		}
	})
}

// ObserveSnapshotLoad records snapshot load duration and result.
func ObserveSnapshotLoad(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if snapshotLoadTotal != nil {
		snapshotLoadTotal.WithLabelValues(result).Inc()
	}
	if snapshotLoadLatency != nil {
		snapshotLoadLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveSnapshotCache counts a snapshot cache lookup.
func ObserveSnapshotCache(hit bool) {
	if snapshotCacheTotal != nil {
		snapshotCacheTotal.WithLabelValues(outcome(hit)).Inc()
	}
}

// ObserveAPIRequest records an API request.
func ObserveAPIRequest(route string, status int, duration time.Duration) {
	if route == "" {
		route = "unknown"
	}
	if apiRequestTotal != nil {
		apiRequestTotal.WithLabelValues(route, statusClass(status)).Inc()
	}
	if apiRequestLatency != nil {
		apiRequestLatency.WithLabelValues(route).Observe(duration.Seconds())
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// ObserveCompare records a comparison and its device count.
func ObserveCompare(result string, devices int) {
	if result == "" {
		result = resultSuccess
	}
	if compareTotal != nil {
		compareTotal.WithLabelValues(result).Inc()
	}
	if compareDevices != nil && result == resultSuccess {
		compareDevices.Observe(float64(devices))
	}
}

// ObserveTierMemo counts a tier memo lookup.
func ObserveTierMemo(hit bool) {
	if tierMemoTotal != nil {
		tierMemoTotal.WithLabelValues(outcome(hit)).Inc()
	}
}

func outcome(hit bool) string {
	if hit {
		return outcomeHit
	}
	return outcomeMiss
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "unknown"
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
