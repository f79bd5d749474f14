// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

// Package middleware provides HTTP middleware shared by the control surface:
// request id propagation into the logging context and Prometheus request
// instrumentation labeled by chi route pattern.
package middleware
