// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

/*
Command server runs TimerBridge: it reads clip durations from a TriCaster's
DDRs and keeps Singular minutes/seconds timer fields in step with them.

# Process layout

	RootSupervisor ("timerbridge")
	├── "sync-layer"
	│   ├── timersync engine (auto-sync scheduler)
	│   └── config-watch (when a config file is in use)
	├── "messaging-layer"
	│   ├── websocket-hub
	│   └── event-bus (watermill, fans engine events out to the hub)
	└── "api-layer"
	    └── http-server (chi control surface and /metrics)

# Configuration

Defaults, then config.yaml (CONFIG_PATH or ./config.yaml or
/etc/timerbridge/config.yaml), then environment variables:

	TRICASTER_ENABLED=true
	TRICASTER_HOST=192.168.1.50
	TRICASTER_USER=admin
	TRICASTER_PASS=secret
	SINGULAR_TOKEN=app-token
	TIMER_ROUND_MODE=frames
	AUTO_SYNC=true
	AUTO_SYNC_INTERVAL=3

Channel mappings live in the config file:

	timersync:
	  channels:
	    "1": {min: ddr1_min, sec: ddr1_sec, timer: ddr1_timer}
	    "2": {min: ddr2_min, sec: ddr2_sec}

Edits to the file are applied without a restart.

# Signals

SIGINT and SIGTERM stop the scheduler, let in-flight pushes finish, close
websocket clients and drain the HTTP server.
*/
package main
