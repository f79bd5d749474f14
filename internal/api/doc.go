// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

/*
Package api is the HTTP control surface of TimerBridge.

Routes are served by chi with request ids, panic recovery, CORS, per-group
rate limits (go-chi/httprate) and Prometheus instrumentation.

Timer sync (/api/v1/timersync):

	POST /sync/{channel}              sync one DDR (?force=true pushes unchanged values)
	POST /sync                        sync every mapped DDR
	POST /autosync                    {"enabled": bool, "interval": seconds}
	GET  /status                      session status and per-DDR state
	POST /timer/{channel}/{action}    start, pause, reset or restart a timer
	POST /timer/all/restart           restart every mapped timer
	GET  /config                      current mapping (token presence only)
	PUT  /config                      replace the mapping at runtime

Video server passthroughs (/api/v1/tricaster):

	GET  /test                        connection test, returns the version
	GET  /ddr                         DDR 1-4 clip info
	GET  /tally                       program and preview sources
	GET  /dictionary/{key}            raw dictionary XML
	GET  /shortcut/{name}             run a shortcut, ?value= and ?index= optional
	POST /shortcut/{name}             run a shortcut with {"params": {...}}

Graphics (/api/v1/singular):

	GET  /fields                      control app fields (?token= overrides the configured one)

Other:

	GET  /api/v1/health[/live|/ready]
	GET  /api/v1/ws                   websocket event stream
	GET  /metrics                     Prometheus metrics

Every JSON response uses the APIResponse envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "UNKNOWN_CHANNEL", "message": "..."}}
*/
package api
