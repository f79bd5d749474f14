// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

// Package events fans timer sync events out to consumers over an in-process
// Watermill bus.
//
// The Bus implements timersync.Publisher. Each event is JSON encoded into a
// Watermill message on the "timersync.events" topic of a gochannel pub/sub.
// Consumers register as sinks before the bus starts; Serve runs a Watermill
// router that delivers every message to every sink with panic recovery and
// a short retry.
//
//	bus := events.NewBus(events.DefaultBusConfig(), logging.NewWatermillLogger())
//	bus.AddSink("websocket", hub.BroadcastRaw)
//	engine.SetPublisher(bus)
//	supervisor.AddMessagingService(bus)
package events
