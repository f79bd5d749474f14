// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the full health report.
type HealthStatus struct {
	Status           string            `json:"status"` // healthy or degraded
	Version          string            `json:"version"`
	TriCasterEnabled bool              `json:"tricaster_enabled"`
	AutoSync         bool              `json:"auto_sync"`
	LastSync         *time.Time        `json:"last_sync"`
	AuthFailure      bool              `json:"auth_failure"`
	Breakers         map[string]string `json:"breakers"`
	WebSocketClients int               `json:"websocket_clients"`
	Uptime           float64           `json:"uptime_seconds"`
}

// Health reports component state. It always answers 200; Status is
// "degraded" when a breaker is open or graphics auth is failing.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	st := h.engine.Status()

	health := HealthStatus{
		Status:           "healthy",
		Version:          h.version,
		TriCasterEnabled: h.tricasterEnabled,
		AutoSync:         st.Enabled,
		LastSync:         st.LastSync,
		AuthFailure:      st.AuthFailure,
		Breakers:         make(map[string]string, len(h.breakers)),
		Uptime:           time.Since(h.startTime).Seconds(),
	}
	for name, b := range h.breakers {
		state := b.State()
		health.Breakers[name] = state
		if state == "open" {
			health.Status = "degraded"
		}
	}
	if st.AuthFailure {
		health.Status = "degraded"
	}
	if h.wsHub != nil {
		health.WebSocketClients = h.wsHub.GetClientCount()
	}

	WriteSuccess(w, r, health)
}

// HealthLive is the liveness probe.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]interface{}{
		"alive":          true,
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady is the readiness probe. It fails while the video server is
// enabled and its circuit is open.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.tricasterEnabled {
		if b, ok := h.breakers["tricaster"]; ok && b.State() == "open" {
			NewResponseWriter(w, r).ServiceUnavailable("TriCaster circuit breaker is open")
			return
		}
	}
	WriteSuccess(w, r, map[string]interface{}{"ready": true})
}
