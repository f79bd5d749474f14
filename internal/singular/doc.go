// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

// Package singular is the graphics-control client for Singular control apps.
//
// Push sends one batched PATCH per call so a channel's minutes and seconds
// land together. A 401 or 403 becomes *AuthError; anything else that fails
// in transit becomes *NetworkError.
package singular
