// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

// Package tricaster is the video server client: DDR clip durations,
// connection tests, tally, raw dictionaries and shortcut commands.
package tricaster
