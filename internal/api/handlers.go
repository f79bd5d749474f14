// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/timerbridge/internal/logging"
	"github.com/tomtom215/timerbridge/internal/singular"
	"github.com/tomtom215/timerbridge/internal/timersync"
	"github.com/tomtom215/timerbridge/internal/tricaster"
	ws "github.com/tomtom215/timerbridge/internal/websocket"
)

// SyncEngine is the timer sync session driven by the control surface.
type SyncEngine interface {
	SyncChannel(ctx context.Context, ch int, opts timersync.SyncOptions) (timersync.ChannelResult, error)
	SyncAll(ctx context.Context, opts timersync.SyncOptions) ([]timersync.ChannelResult, error)
	EnableAutoSync(intervalSeconds int) error
	DisableAutoSync()
	Status() timersync.Status
	TimerAction(ctx context.Context, ch int, action timersync.Action) error
	RestartAll(ctx context.Context) ([]timersync.ActionResult, error)
	Mapping() timersync.Mapping
	Reconfigure(m timersync.Mapping)
}

var _ SyncEngine = (*timersync.Engine)(nil)

// StateReporter exposes a circuit breaker state ("closed", "open", ...).
type StateReporter interface {
	State() string
}

// Dependencies wires a Handler.
type Dependencies struct {
	Engine   SyncEngine
	Video    tricaster.Client
	Graphics singular.Client
	Hub      *ws.Hub

	// Breakers are reported by the health endpoints, keyed by name.
	Breakers map[string]StateReporter

	TriCasterEnabled bool
	CORSOrigins      []string
	Version          string
}

// Handler serves the control surface.
//
// Handler methods are split across files:
//   - handlers_timersync.go: sync, auto-sync, status, timer actions, config
//   - handlers_tricaster.go: video server passthroughs
//   - handlers_singular.go: field discovery
//   - handlers_health.go: health and readiness
type Handler struct {
	engine   SyncEngine
	video    tricaster.Client
	graphics singular.Client
	wsHub    *ws.Hub
	breakers map[string]StateReporter

	tricasterEnabled bool
	corsOrigins      []string
	version          string
	startTime        time.Time
}

// NewHandler creates a handler from its dependencies.
func NewHandler(deps Dependencies) *Handler {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	return &Handler{
		engine:           deps.Engine,
		video:            deps.Video,
		graphics:         deps.Graphics,
		wsHub:            deps.Hub,
		breakers:         deps.Breakers,
		tricasterEnabled: deps.TriCasterEnabled,
		corsOrigins:      deps.CORSOrigins,
		version:          version,
		startTime:        time.Now(),
	}
}

// WebSocket upgrades the connection and streams engine events.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		NewResponseWriter(w, r).ServiceUnavailable("WebSocket service unavailable")
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	h.wsHub.Register <- client
	client.Start()
}

// checkWebSocketOrigin allows same-host requests without an Origin header
// (OBS browser sources omit it) and otherwise checks the CORS list.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.corsOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Ctx(r.Context()).Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
