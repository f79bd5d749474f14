// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered on the default registry through promauto and
exposed at /metrics by the API router.

# Available Metrics

API Metrics:
  - api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
  - api_active_requests: In-flight requests (gauge)

Sync Metrics:
  - timersync_pass_duration_seconds: Duration of a pass over all channels
    Labels: trigger (auto, manual)
  - timersync_channel_outcomes_total: Per-channel results
    Labels: channel, outcome (pushed, skipped, not_loaded, failed)
  - timersync_errors_total: Errors by category
  - timersync_autosync_running, timersync_autosync_interval_seconds
  - timersync_auth_failure_streak: Consecutive graphics API auth failures

Upstream Metrics:
  - tricaster_request_duration_seconds
    Labels: endpoint, status
  - singular_request_duration_seconds
    Labels: operation, status
  - singular_field_map_cache_hits_total / _misses_total

Circuit Breaker Metrics:
  - circuit_breaker_state: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total, circuit_breaker_consecutive_failures,
    circuit_breaker_state_transitions_total

Example PromQL:

	# Push rate per channel
	rate(timersync_channel_outcomes_total{outcome="pushed"}[5m])

	# Singular p95 latency
	histogram_quantile(0.95, rate(singular_request_duration_seconds_bucket[5m]))

# Thread Safety

All recording functions are safe for concurrent use.
*/
package metrics
