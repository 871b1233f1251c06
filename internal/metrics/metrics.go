package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Provider metrics
var (
	// FetchTotal tracks provider calls by endpoint and outcome
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_fetch_total",
			Help: "Total number of weather provider calls",
		},
		[]string{"endpoint", "status"},
	)

	// FetchDuration tracks the duration of provider calls
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weather_fetch_duration_seconds",
			Help:    "Duration of weather provider calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// CircuitState is 0 closed, 1 half-open, 2 open
	CircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "provider_circuit_state",
			Help: "Circuit breaker state per provider (0 closed, 1 half-open, 2 open)",
		},
		[]string{"provider"},
	)
)

// Refresh metrics
var (
	RefreshCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refresh_cycles_total",
			Help: "Completed refresh cycles by outcome",
		},
		[]string{"outcome"},
	)

	// RefreshTriggersDropped counts triggers ignored because a cycle was in flight
	RefreshTriggersDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refresh_triggers_dropped_total",
			Help: "Refresh triggers ignored while another cycle was in flight",
		},
		[]string{"trigger"},
	)

	LastSuccessfulRefresh = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "refresh_last_success_time_seconds",
			Help: "Unix timestamp of the last refresh cycle without fallbacks",
		},
	)
)

var (
	// AppInfo provides static information about the application
	AppInfo = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weather_glance_app_info",
			Help: "Application information (always 1)",
		},
	)

	// AppStartTime records when the application started
	AppStartTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weather_glance_app_start_time_seconds",
			Help: "Unix timestamp of when the application started",
		},
	)
)

func init() {
	AppInfo.Set(1)
	AppStartTime.SetToCurrentTime()
}

// RecordFetch records a provider call
func RecordFetch(endpoint string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	FetchTotal.WithLabelValues(endpoint, status).Inc()
	FetchDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordCycle records the outcome of a refresh cycle
func RecordCycle(outcome string) {
	RefreshCyclesTotal.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		LastSuccessfulRefresh.SetToCurrentTime()
	}
}

// RecordDroppedTrigger records a trigger ignored by the in-flight guard
func RecordDroppedTrigger(trigger string) {
	RefreshTriggersDropped.WithLabelValues(trigger).Inc()
}

// SetCircuitState updates the breaker gauge for a provider
func SetCircuitState(provider string, state float64) {
	CircuitState.WithLabelValues(provider).Set(state)
}
