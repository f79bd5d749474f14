// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

/*
Package services adapts long-running components to suture.Service.

Components that already implement Serve(ctx) error and String() (the
timer sync engine, the websocket hub and the event bus) are added to the
tree directly. This package covers the rest:

  - HTTPServerService: runs ListenAndServe and shuts down gracefully on
    cancellation
  - ConfigWatchService: reloads the config file on change and hands the
    new timer sync mapping to the engine

Return values drive the supervisor:

	nil         -> stopped cleanly, not restarted
	error       -> crashed, restarted with backoff
	ctx.Err()   -> shutdown requested
*/
package services
