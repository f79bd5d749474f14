// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

/*
Package supervisor provides process supervision using suture v4.

Services are grouped into layers so a failure restarts only its own layer:

	RootSupervisor ("timerbridge")
	├── "sync-layer"
	│   ├── timersync engine (auto-sync scheduler)
	│   └── ConfigWatchService (when a config file is in use)
	├── "messaging-layer"
	│   ├── websocket Hub
	│   └── events Bus (watermill router)
	└── "api-layer"
	    └── HTTPServerService

Supervisor events (starts, failures, backoff) are logged through
sutureslog into the zerolog sink:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	err = tree.Install(supervisor.Services{
		Engine: engine,
		Hub:    hub,
		Bus:    bus,
		HTTP:   services.NewHTTPServerService(server, 10*time.Second),
	})
	err = tree.Serve(ctx)

The engine keeps its desired auto-sync state across a restart, so a
supervisor restart resumes scheduling.
*/
package supervisor
