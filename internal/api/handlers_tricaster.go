// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// TriCasterTestResponse reports a reachability probe.
type TriCasterTestResponse struct {
	Connected bool   `json:"connected"`
	Version   string `json:"version"`
}

// TriCasterTest checks that the video server answers.
func (h *Handler) TriCasterTest(w http.ResponseWriter, r *http.Request) {
	version, err := h.video.Version(r.Context())
	if err != nil {
		respondDomainError(w, r, err, nil)
		return
	}
	WriteSuccess(w, r, TriCasterTestResponse{Connected: true, Version: version})
}

// TriCasterDDR returns raw clip metadata for every DDR.
func (h *Handler) TriCasterDDR(w http.ResponseWriter, r *http.Request) {
	info, err := h.video.DDRInfo(r.Context())
	if err != nil {
		respondDomainError(w, r, err, nil)
		return
	}
	WriteSuccess(w, r, info)
}

// TriCasterTally returns the sources on program and preview.
func (h *Handler) TriCasterTally(w http.ResponseWriter, r *http.Request) {
	tally, err := h.video.Tally(r.Context())
	if err != nil {
		respondDomainError(w, r, err, nil)
		return
	}
	WriteSuccess(w, r, tally)
}

// DictionaryResponse carries a raw dictionary document.
type DictionaryResponse struct {
	Key string `json:"key"`
	XML string `json:"xml"`
}

// TriCasterDictionary returns the raw XML of one dictionary key.
func (h *Handler) TriCasterDictionary(w http.ResponseWriter, r *http.Request) {
	req := DictionaryRequest{Key: chi.URLParam(r, "key")}
	if !validateRequest(w, r, &req) {
		return
	}
	doc, err := h.video.Dictionary(r.Context(), req.Key)
	if err != nil {
		respondDomainError(w, r, err, nil)
		return
	}
	WriteSuccess(w, r, DictionaryResponse{Key: req.Key, XML: doc})
}

// ShortcutResponse echoes an executed shortcut.
type ShortcutResponse struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params,omitempty"`
}

// TriCasterShortcutGet runs a shortcut named in the path. The value and
// index query parameters are passed through, which is what most single
// value shortcuts expect.
func (h *Handler) TriCasterShortcutGet(w http.ResponseWriter, r *http.Request) {
	req := ShortcutRequest{Name: chi.URLParam(r, "name")}
	q := r.URL.Query()
	for _, key := range []string{"value", "index"} {
		if v := q.Get(key); v != "" {
			if req.Params == nil {
				req.Params = make(map[string]string, 2)
			}
			req.Params[key] = v
		}
	}
	h.runShortcut(w, r, &req)
}

// TriCasterShortcutPost runs a shortcut with parameters from a JSON body.
// An empty body runs it without parameters.
func (h *Handler) TriCasterShortcutPost(w http.ResponseWriter, r *http.Request) {
	var req ShortcutRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	req.Name = chi.URLParam(r, "name")
	h.runShortcut(w, r, &req)
}

func (h *Handler) runShortcut(w http.ResponseWriter, r *http.Request, req *ShortcutRequest) {
	if !validateRequest(w, r, req) {
		return
	}
	if err := h.video.Shortcut(r.Context(), req.Name, req.Params); err != nil {
		respondDomainError(w, r, err, nil)
		return
	}
	WriteSuccess(w, r, ShortcutResponse{Name: req.Name, Params: req.Params})
}
