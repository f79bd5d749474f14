// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tomtom215/timerbridge/internal/breaker"
	"github.com/tomtom215/timerbridge/internal/logging"
	"github.com/tomtom215/timerbridge/internal/singular"
	"github.com/tomtom215/timerbridge/internal/timecode"
	"github.com/tomtom215/timerbridge/internal/timersync"
	"github.com/tomtom215/timerbridge/internal/tricaster"
)

// errorStatus maps a domain error to an HTTP status and error code.
// Upstream failures are 502 so operators can tell them from their own
// mistakes; a rejected Singular token is not the caller's 401.
func errorStatus(err error) (int, string) {
	var tcNet *tricaster.NetworkError
	var sgNet *singular.NetworkError

	switch {
	case errors.Is(err, timersync.ErrUnknownChannel):
		return http.StatusNotFound, ErrCodeUnknownChannel
	case errors.Is(err, timersync.ErrMissingField):
		return http.StatusBadRequest, ErrCodeMissingField
	case errors.Is(err, timersync.ErrNotConfigured), errors.Is(err, singular.ErrNoToken):
		return http.StatusBadRequest, ErrCodeNotConfigured
	case errors.Is(err, timersync.ErrInvalidAction):
		return http.StatusBadRequest, ErrCodeInvalidAction
	case errors.Is(err, timersync.ErrInvalidInterval):
		return http.StatusBadRequest, ErrCodeInvalidInterval
	case errors.Is(err, tricaster.ErrDisabled), errors.Is(err, tricaster.ErrNoHost):
		return http.StatusServiceUnavailable, ErrCodeTriCasterDisabled
	case breaker.IsRejected(err):
		return http.StatusServiceUnavailable, ErrCodeCircuitOpen
	case singular.IsAuthError(err):
		return http.StatusBadGateway, ErrCodeSingularAuth
	case errors.Is(err, singular.ErrUnknownField):
		return http.StatusUnprocessableEntity, ErrCodeUnknownField
	case errors.Is(err, timecode.ErrParse):
		return http.StatusBadGateway, ErrCodeParseError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrCodeTimeout
	case errors.As(err, &tcNet):
		return http.StatusBadGateway, ErrCodeTriCasterError
	case errors.As(err, &sgNet):
		return http.StatusBadGateway, ErrCodeSingularError
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}

// respondDomainError writes err with its mapped status. details, when not
// nil, is attached to the error body.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error, details interface{}) {
	status, code := errorStatus(err)

	ev := logging.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusServiceUnavailable {
		ev = logging.Ctx(r.Context()).Error()
	}
	ev.Err(err).Str("code", code).Str("path", sanitizeLogValue(r.URL.Path)).Msg("API request failed")

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	NewResponseWriter(w, r).ErrorWithDetails(status, code, message, details)
}

// sanitizeLogValue escapes control characters to prevent log injection.
func sanitizeLogValue(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, c := range s {
		if c < 0x20 || c == 0x7F {
			sb.WriteString(fmt.Sprintf("\\x%02x", c))
		} else {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}
