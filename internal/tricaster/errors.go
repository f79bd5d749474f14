// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package tricaster

import (
	"errors"
	"fmt"

	"github.com/tomtom215/timerbridge/internal/timecode"
)

var (
	// ErrNotLoaded means the server answered but the DDR has no clip.
	// It is an expected state, not a failure.
	ErrNotLoaded = errors.New("tricaster: no clip loaded")

	// ErrDisabled is returned by every call while the module is off.
	ErrDisabled = errors.New("tricaster: module is disabled")

	// ErrNoHost is returned when no host is configured.
	ErrNoHost = errors.New("tricaster: host not configured")
)

// NetworkError is a retryable transport, status or response-shape failure.
type NetworkError struct {
	Op         string // dictionary, version, shortcut
	StatusCode int    // 0 when no response was received
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("tricaster %s returned status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("tricaster %s failed: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsExpected reports whether err is an outcome the breaker should not
// count against the server: nothing loaded, a bad timecode string, or a
// disabled module.
func IsExpected(err error) bool {
	return err == nil ||
		errors.Is(err, ErrNotLoaded) ||
		errors.Is(err, ErrDisabled) ||
		errors.Is(err, ErrNoHost) ||
		errors.Is(err, timecode.ErrParse)
}
