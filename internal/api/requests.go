// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/timerbridge/internal/validation"
)

// maxBodyBytes bounds request bodies; mappings are small.
const maxBodyBytes = 64 * 1024

// AutoSyncRequest toggles the scheduler. Interval is clamped to the
// allowed range; zero keeps the current interval.
type AutoSyncRequest struct {
	Enabled  *bool `json:"enabled" validate:"required"`
	Interval int   `json:"interval" validate:"omitempty,gte=1,lte=3600"`
}

// ChannelFieldsRequest is one DDR's field mapping.
type ChannelFieldsRequest struct {
	Min   string `json:"min" validate:"required,max=128"`
	Sec   string `json:"sec" validate:"required,max=128"`
	Timer string `json:"timer" validate:"omitempty,max=128"`
}

// TimerSyncConfigRequest replaces the mapping. A nil Token keeps the
// current token; an empty string clears it.
type TimerSyncConfigRequest struct {
	Token     *string                         `json:"token"`
	RoundMode string                          `json:"round_mode" validate:"omitempty,oneof=frames none"`
	Channels  map[string]ChannelFieldsRequest `json:"channels" validate:"required,dive"`
}

// ShortcutRequest names a video server shortcut and its parameters.
type ShortcutRequest struct {
	Name   string            `json:"name" validate:"required,shortcut"`
	Params map[string]string `json:"params" validate:"omitempty,max=16,dive,keys,shortcut,endkeys,max=256"`
}

// TimerActionRequest is the path-derived input of a timer action.
type TimerActionRequest struct {
	Action string `json:"action" validate:"required,timeraction"`
}

// DictionaryRequest is the path-derived input of a dictionary read.
type DictionaryRequest struct {
	Key string `json:"key" validate:"required,shortcut"`
}

var errEmptyBody = errors.New("request body is required")

// decodeJSON reads a bounded JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// validateRequest writes a VALIDATION_ERROR and returns false on failure.
func validateRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if verr := validation.ValidateStruct(v); verr != nil {
		apiErr := verr.ToAPIError()
		NewResponseWriter(w, r).ValidationError(apiErr.Message, apiErr.Details)
		return false
	}
	return true
}

// channelParam parses the {channel} path segment as a DDR number.
func channelParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "channel")
	ch, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || ch < 1 {
		return 0, fmt.Errorf("channel must be a DDR number starting at 1, got %q", raw)
	}
	return ch, nil
}

// boolQuery reports whether a query flag is set to a true value.
func boolQuery(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}
