// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

/*
Package config provides centralized configuration management for TimerBridge.

Configuration is layered with koanf: built-in defaults, then an optional YAML
file, then environment variables. Later layers win.

# Configuration Structure

  - TriCasterConfig: video server host and basic auth credentials
  - SingularConfig: control API base, control app token, request pacing
  - TimerSyncConfig: rounding mode, auto-sync schedule, DDR field mappings
  - ServerConfig: HTTP listener
  - SecurityConfig: inbound rate limiting and CORS
  - LoggingConfig: zerolog level and output format

# Example YAML

	tricaster:
	  enabled: true
	  host: 10.0.0.20
	  user: admin
	  password: secret
	singular:
	  token: abc123
	timersync:
	  round_mode: frames
	  auto_sync: true
	  auto_sync_interval: 3
	  channels:
	    "1": {min: DDR1_Min, sec: DDR1_Sec, timer: DDR1_Timer}
	    "2": {min: DDR2_Min, sec: DDR2_Sec}

# Environment Variables

Commonly used variables are TRICASTER_HOST, TRICASTER_USER, TRICASTER_PASS,
SINGULAR_TOKEN, TIMER_ROUND_MODE, AUTO_SYNC and AUTO_SYNC_INTERVAL. The full
list lives in envMappings. Channel mappings are only read from the file.

# Reloading

WatchConfigFile notifies a callback when the file changes. The caller reloads
with LoadFile and applies the result; an invalid file is rejected and the
running configuration is kept.
*/
package config
