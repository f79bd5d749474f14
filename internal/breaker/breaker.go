// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

// Package breaker wraps sony/gobreaker with the settings, logging and
// Prometheus metrics shared by the upstream API clients.
//
// DETERMINISM NOTE: gobreaker uses real time for its interval and timeout.
// Tests exercise the wrapped clients directly or trip the breaker with
// enough failures inside one interval.
package breaker

import (
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/timerbridge/internal/logging"
	"github.com/tomtom215/timerbridge/internal/metrics"
)

// Settings tune one breaker. Zero values take the defaults below.
type Settings struct {
	MaxRequests  uint32        // concurrent probes allowed while half-open
	Interval     time.Duration // closed-state counting window
	Timeout      time.Duration // open duration before half-open
	MinRequests  uint32        // requests needed before the ratio is considered
	FailureRatio float64

	// IsSuccessful reports whether err should count as a success.
	// Expected outcomes such as "no clip loaded" belong here so they
	// never trip the circuit.
	IsSuccessful func(err error) bool
}

// Default breaker configuration:
//   - Max 3 concurrent requests in half-open state
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - Opens after 60% failure rate with minimum 10 requests
const (
	DefaultMaxRequests  = 3
	DefaultInterval     = time.Minute
	DefaultTimeout      = 2 * time.Minute
	DefaultMinRequests  = 10
	DefaultFailureRatio = 0.6
)

// Breaker is a named circuit breaker reporting to the shared metrics.
type Breaker struct {
	cb           *gobreaker.CircuitBreaker[any]
	name         string
	isSuccessful func(error) bool
}

// New creates a breaker named name (used as the metrics label).
func New(name string, s Settings) *Breaker {
	if s.MaxRequests == 0 {
		s.MaxRequests = DefaultMaxRequests
	}
	if s.Interval <= 0 {
		s.Interval = DefaultInterval
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}
	if s.MinRequests == 0 {
		s.MinRequests = DefaultMinRequests
	}
	if s.FailureRatio <= 0 {
		s.FailureRatio = DefaultFailureRatio
	}
	if s.IsSuccessful == nil {
		s.IsSuccessful = func(err error) bool { return err == nil }
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0) // 0 = closed
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	minRequests := s.MinRequests
	ratio := s.FailureRatio

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:         name,
		MaxRequests:  s.MaxRequests,
		Interval:     s.Interval,
		Timeout:      s.Timeout,
		IsSuccessful: s.IsSuccessful,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= ratio
			if shouldTrip {
				logging.Warn().Str("breaker", name).Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := StateToString(from)
			toStr := StateToString(to)

			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()

			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &Breaker{cb: cb, name: name, isSuccessful: s.IsSuccessful}
}

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.name }

// State returns "closed", "half-open" or "open".
func (b *Breaker) State() string { return StateToString(b.cb.State()) }

// IsRejected reports whether err came from an open or saturated breaker
// rather than from the wrapped call.
func IsRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// execute runs fn under the breaker and records the outcome.
func (b *Breaker) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)

	switch {
	case err == nil || (!IsRejected(err) && b.isSuccessful(err)):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)
	case IsRejected(err):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		logging.Warn().Str("breaker", b.name).Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		counts := b.cb.Counts()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(counts.ConsecutiveFailures))
	}

	if err != nil && IsRejected(err) {
		return nil, fmt.Errorf("%s: %w", b.name, err)
	}
	return result, err
}

// Do runs a call that only returns an error.
func (b *Breaker) Do(fn func() error) error {
	_, err := b.execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

// Run runs fn under b and returns its typed result.
func Run[T any](b *Breaker, fn func() (T, error)) (T, error) {
	return castResult[T](b.execute(func() (any, error) {
		return fn()
	}))
}

// castResult type-checks the breaker result. The error is returned as is.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// StateToString converts circuit breaker state to string for logging
func StateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
