// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the timer sync engine:
// - control surface latency and throughput
// - per-channel sync outcomes and push counts
// - video-server and graphics API latency
// - circuit breaker state
// - websocket and event bus activity

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of requests rejected by rate limiting",
		},
		[]string{"endpoint"},
	)

	// Sync Metrics
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timersync_pass_duration_seconds",
			Help:    "Duration of a sync pass over all channels",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"trigger"}, // "auto", "manual"
	)

	SyncChannelOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timersync_channel_outcomes_total",
			Help: "Channel sync outcomes by channel and result",
		},
		[]string{"channel", "outcome"}, // pushed, skipped, not_loaded, failed
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timersync_errors_total",
			Help: "Channel sync errors by category",
		},
		[]string{"error_type"},
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timersync_last_success_timestamp",
			Help: "Unix timestamp of the last completed auto-sync tick",
		},
	)

	AutoSyncRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timersync_autosync_running",
			Help: "1 while the auto-sync scheduler is running",
		},
	)

	AutoSyncInterval = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timersync_autosync_interval_seconds",
			Help: "Configured auto-sync tick interval",
		},
	)

	AuthFailureStreak = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timersync_auth_failure_streak",
			Help: "Consecutive graphics API authentication failures",
		},
	)

	TimerActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timersync_timer_actions_total",
			Help: "Timer actions sent to the graphics API",
		},
		[]string{"action", "result"},
	)

	// Upstream Metrics
	VideoServerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tricaster_request_duration_seconds",
			Help:    "TriCaster request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 6},
		},
		[]string{"endpoint", "status"},
	)

	GraphicsRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "singular_request_duration_seconds",
			Help:    "Singular control API request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation", "status"},
	)

	FieldMapCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "singular_field_map_cache_hits_total",
			Help: "Field map lookups served from cache",
		},
	)

	FieldMapCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "singular_field_map_cache_misses_total",
			Help: "Field map lookups that fetched the control app model",
		},
	)

	FieldMapCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "singular_field_map_cache_entries",
			Help: "Field maps currently cached",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Realtime Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Current number of websocket clients",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Sync events published to the event bus",
		},
		[]string{"type", "result"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordSyncPass records the duration of a pass over all channels.
// Auto passes also refresh the last-success timestamp.
func RecordSyncPass(trigger string, duration time.Duration) {
	SyncDuration.WithLabelValues(trigger).Observe(duration.Seconds())
	if trigger == "auto" {
		SyncLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordChannelOutcome records one channel sync result.
func RecordChannelOutcome(channel, outcome string, err error) {
	SyncChannelOutcomes.WithLabelValues(channel, outcome).Inc()
	if err != nil {
		SyncErrors.WithLabelValues(ErrorType(err)).Inc()
	}
}

// ErrorType buckets an error message into a low-cardinality label.
func ErrorType(err error) string {
	if err == nil {
		return "none"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "circuit breaker"):
		return "circuit_open"
	case strings.Contains(msg, "timecode"):
		return "parse"
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "rejected credentials"):
		return "auth"
	case strings.Contains(msg, "tricaster"):
		return "tricaster_api"
	case strings.Contains(msg, "singular"):
		return "singular_api"
	default:
		return "other"
	}
}

// RecordTimerAction records a timer command result.
func RecordTimerAction(action string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	TimerActions.WithLabelValues(action, result).Inc()
}

// SetAutoSyncState updates the scheduler gauges.
func SetAutoSyncState(running bool, interval time.Duration) {
	if running {
		AutoSyncRunning.Set(1)
	} else {
		AutoSyncRunning.Set(0)
	}
	AutoSyncInterval.Set(interval.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
