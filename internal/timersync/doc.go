// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

/*
Package timersync keeps Singular timer fields in step with TriCaster DDR
clip durations.

# Components

  - Engine: owns the sync session, the last-pushed value per DDR and the
    per-DDR locks. All shared state is reached through its methods.
  - Channel sync: fetch, split, compare with the cached value, push on change.
  - Scheduler: a single goroutine that syncs every mapped DDR each tick.
  - Timer actions: start, pause, reset and restart of the Singular timer.

# Channel Sync States

	Idle -> Fetching -> Skip    -> Idle
	                 -> Pushing -> Idle
	                 -> Failed  -> Idle

A DDR with no clip loaded returns to Idle without touching the cache or the
last error. The cache is written only after a push succeeds, so a failed
push is retried by the next tick.

# Concurrency

Manual syncs, timer actions and scheduler ticks for the same DDR are
serialized by a per-DDR mutex. Different DDRs within one tick run in
parallel. Session state and the value cache share one mutex, and Status
returns a copy taken under it.

# Usage

	engine := timersync.New(settings, tricasterClient, singularClient)
	result, err := engine.SyncChannel(ctx, 1, timersync.SyncOptions{})
	_ = engine.EnableAutoSync(3)
	defer engine.DisableAutoSync()
*/
package timersync
