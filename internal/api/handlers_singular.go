// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package api

import (
	"net/http"
	"strings"

	"github.com/tomtom215/timerbridge/internal/singular"
)

// FieldsResponse lists a control app's fields.
type FieldsResponse struct {
	Fields []singular.Field `json:"fields"`
	Count  int              `json:"count"`
}

// SingularFields lists the fields of a control app so operators can pick
// timer field ids. The token query parameter overrides the configured
// timer sync token.
func (h *Handler) SingularFields(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		token = h.engine.Mapping().Token
	}
	if token == "" {
		respondDomainError(w, r, singular.ErrNoToken, nil)
		return
	}

	fields, err := h.graphics.Fields(r.Context(), token)
	if err != nil {
		respondDomainError(w, r, err, nil)
		return
	}
	if fields == nil {
		fields = []singular.Field{}
	}
	WriteSuccess(w, r, FieldsResponse{Fields: fields, Count: len(fields)})
}
