package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ==================== Business Metrics ====================

	ActiveChargingSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "station_active_charging_sessions",
		Help: "Number of piles currently in the CHARGING state",
	})

	EnergyDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "station_energy_delivered_kwh_total",
		Help: "Total energy delivered across all completed sessions, in kWh",
	})

	RevenueTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "station_revenue_total",
		Help: "Total billed revenue across all completed bills",
	})

	BillsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "station_bills_total",
		Help: "Total bills produced, by mode",
	}, []string{"mode"})

	ChargingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "station_charging_duration_seconds",
		Help:    "Duration of completed charging sessions in seconds",
		Buckets: []float64{60, 300, 600, 1800, 3600, 7200, 14400},
	})

	MainQueueLength = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "station_main_queue_length",
		Help: "Current length of the main waiting-area queue, by mode",
	}, []string{"mode"})

	PileState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "station_pile_state",
		Help: "1 if the pile is currently in the given state, else 0",
	}, []string{"pile_id", "state"})

	SchedulerTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "station_scheduler_ticks_total",
		Help: "Total scheduler tick invocations",
	})

	// ==================== Infrastructure Metrics ====================

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "station_http_request_duration_seconds",
		Help:    "Admin HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "station_http_requests_total",
		Help: "Total admin HTTP requests",
	}, []string{"method", "path", "status"})

	PersistenceLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "station_persistence_latency_seconds",
		Help:    "Latency of JSON-file persistence flushes",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
	}, []string{"table"})

	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "station_cache_hits_total",
		Help: "Total admin-dashboard cache hits and misses",
	}, []string{"result"})

	EventBusMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "station_eventbus_messages_total",
		Help: "Total domain events published or consumed",
	}, []string{"topic", "status"})
)

// RecordSessionStarted increments metrics when a charging session starts.
func RecordSessionStarted() {
	ActiveChargingSessions.Inc()
}

// RecordBillProduced updates metrics when a bill is produced for a
// completed session.
func RecordBillProduced(mode string, energyKWh, totalFee, durationSeconds float64) {
	ActiveChargingSessions.Dec()
	BillsTotal.WithLabelValues(mode).Inc()
	EnergyDeliveredTotal.Add(energyKWh)
	RevenueTotal.Add(totalFee)
	ChargingDuration.Observe(durationSeconds)
}

// RecordHTTPRequest records an admin HTTP request metric.
func RecordHTTPRequest(method, path string, status int, durationSeconds float64) {
	statusStr := fmt.Sprintf("%d", status)
	HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, statusStr).Observe(durationSeconds)
}

// RecordCacheAccess records a cache access metric.
func RecordCacheAccess(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheHitsTotal.WithLabelValues(result).Inc()
}
