// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

/*
Package websocket streams timer sync activity to connected operator consoles.

The Hub owns the client set and runs as a supervised service. Every message
is a JSON envelope:

	{"type": "timersync.event", "data": {...}}

Message types:
  - status: a full status snapshot, sent to each client on connect
  - timersync.event: one engine event (push, failure, timer action, ...)
  - ping / pong: client keepalive

Slow clients whose send buffer fills are dropped rather than blocking the
broadcast. Clients are iterated in connection order so delivery is
deterministic in tests.
*/
package websocket
