// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

// Package cache provides a generic, thread-safe LRU cache with TTL expiry.
//
// The Singular client keeps resolved field-to-subcomposition maps here so
// the control app model is not refetched on every push.
package cache
