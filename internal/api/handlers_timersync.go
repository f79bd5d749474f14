// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package api

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/timerbridge/internal/timecode"
	"github.com/tomtom215/timerbridge/internal/timersync"
)

// SyncAllResponse reports a sync pass over every configured channel.
type SyncAllResponse struct {
	Results []timersync.ChannelResult `json:"results"`
	Pushed  int                       `json:"pushed"`
	Failed  int                       `json:"failed"`
}

// RestartAllResponse reports a restart of every channel with a timer field.
type RestartAllResponse struct {
	Results []timersync.ActionResult `json:"results"`
	Failed  int                      `json:"failed"`
}

// TimerSyncConfigResponse is the current mapping. The token is never echoed.
type TimerSyncConfigResponse struct {
	TokenConfigured bool                              `json:"token_configured"`
	RoundMode       string                            `json:"round_mode"`
	Channels        map[string]timersync.FieldMapping `json:"channels"`
	AutoSync        bool                              `json:"auto_sync"`
	Interval        int                               `json:"interval"`
}

// SyncChannel pushes one DDR's duration to its timer fields.
func (h *Handler) SyncChannel(w http.ResponseWriter, r *http.Request) {
	ch, err := channelParam(r)
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}

	res, err := h.engine.SyncChannel(r.Context(), ch, timersync.SyncOptions{Force: boolQuery(r, "force")})
	if err != nil {
		var details interface{}
		if res.Outcome == timersync.OutcomeFailed {
			details = res
		}
		respondDomainError(w, r, err, details)
		return
	}
	WriteSuccess(w, r, res)
}

// SyncAll pushes every configured DDR. Channel failures are reported in
// the results and do not fail the request.
func (h *Handler) SyncAll(w http.ResponseWriter, r *http.Request) {
	results, err := h.engine.SyncAll(r.Context(), timersync.SyncOptions{Force: boolQuery(r, "force")})
	if err != nil {
		respondDomainError(w, r, err, nil)
		return
	}

	resp := SyncAllResponse{Results: results}
	for i := range results {
		switch results[i].Outcome {
		case timersync.OutcomePushed:
			resp.Pushed++
		case timersync.OutcomeFailed:
			resp.Failed++
		}
	}
	WriteSuccess(w, r, resp)
}

// AutoSync enables or disables the scheduler. The interval is clamped to
// the supported range.
func (h *Handler) AutoSync(w http.ResponseWriter, r *http.Request) {
	var req AutoSyncRequest
	if err := decodeJSON(w, r, &req); err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	if *req.Enabled {
		interval := req.Interval
		if interval == 0 {
			interval = h.engine.Status().Interval
		}
		if err := h.engine.EnableAutoSync(clampInterval(interval)); err != nil {
			respondDomainError(w, r, err, nil)
			return
		}
	} else {
		h.engine.DisableAutoSync()
	}
	WriteSuccess(w, r, h.engine.Status())
}

func clampInterval(seconds int) int {
	switch {
	case seconds < timersync.MinInterval:
		return timersync.MinInterval
	case seconds > timersync.MaxInterval:
		return timersync.MaxInterval
	default:
		return seconds
	}
}

// Status returns the sync session snapshot.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, h.engine.Status())
}

// TimerAction sends start, pause, reset or restart to one DDR's timer.
func (h *Handler) TimerAction(w http.ResponseWriter, r *http.Request) {
	ch, err := channelParam(r)
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	req := TimerActionRequest{Action: strings.ToLower(chi.URLParam(r, "action"))}
	if !validateRequest(w, r, &req) {
		return
	}
	action, err := timersync.ParseAction(req.Action)
	if err != nil {
		respondDomainError(w, r, err, nil)
		return
	}

	if err := h.engine.TimerAction(r.Context(), ch, action); err != nil {
		respondDomainError(w, r, err, nil)
		return
	}
	WriteSuccess(w, r, timersync.ActionResult{Channel: ch, Action: action})
}

// RestartAll restarts every channel with a timer field.
func (h *Handler) RestartAll(w http.ResponseWriter, r *http.Request) {
	results, err := h.engine.RestartAll(r.Context())
	if err != nil {
		respondDomainError(w, r, err, nil)
		return
	}
	resp := RestartAllResponse{Results: results}
	for i := range results {
		if results[i].Err != nil {
			resp.Failed++
		}
	}
	WriteSuccess(w, r, resp)
}

// GetConfig returns the current mapping.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, h.configResponse())
}

func (h *Handler) configResponse() TimerSyncConfigResponse {
	m := h.engine.Mapping()
	st := h.engine.Status()

	channels := make(map[string]timersync.FieldMapping, len(m.Channels))
	for ch, f := range m.Channels {
		channels[strconv.Itoa(ch)] = f
	}
	return TimerSyncConfigResponse{
		TokenConfigured: m.Token != "",
		RoundMode:       m.Policy.String(),
		Channels:        channels,
		AutoSync:        st.Enabled,
		Interval:        st.Interval,
	}
}

// PutConfig replaces the mapping at runtime. Cached values of channels
// whose fields changed are dropped. The change is not written back to the
// config file.
func (h *Handler) PutConfig(w http.ResponseWriter, r *http.Request) {
	var req TimerSyncConfigRequest
	if err := decodeJSON(w, r, &req); err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	m, err := mappingFromRequest(&req, h.engine.Mapping())
	if err != nil {
		NewResponseWriter(w, r).ValidationError(err.Error(), nil)
		return
	}

	h.engine.Reconfigure(m)
	WriteSuccess(w, r, h.configResponse())
}

var errChannelKey = errors.New("channel keys must be DDR numbers starting at 1")

// mappingFromRequest builds a Mapping, keeping current values for
// omitted token and round mode.
func mappingFromRequest(req *TimerSyncConfigRequest, current timersync.Mapping) (timersync.Mapping, error) {
	m := timersync.Mapping{
		Token:    current.Token,
		Policy:   current.Policy,
		Channels: make(map[int]timersync.FieldMapping, len(req.Channels)),
	}
	if req.Token != nil {
		m.Token = strings.TrimSpace(*req.Token)
	}
	if req.RoundMode != "" {
		policy, err := timecode.ParseRoundingPolicy(req.RoundMode)
		if err != nil {
			return timersync.Mapping{}, err
		}
		m.Policy = policy
	}

	keys := make([]string, 0, len(req.Channels))
	for key := range req.Channels {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		ch, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || ch < 1 {
			return timersync.Mapping{}, errChannelKey
		}
		if _, dup := m.Channels[ch]; dup {
			return timersync.Mapping{}, errChannelKey
		}
		f := req.Channels[key]
		m.Channels[ch] = timersync.FieldMapping{
			Minutes: strings.TrimSpace(f.Min),
			Seconds: strings.TrimSpace(f.Sec),
			Timer:   strings.TrimSpace(f.Timer),
		}
	}
	return m, nil
}
