// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package singular

import (
	"errors"
	"fmt"
)

var (
	// ErrNoToken is returned when no control app token is configured.
	ErrNoToken = errors.New("singular: no control app token configured")

	// ErrUnknownField means a field id is not in the control app model.
	ErrUnknownField = errors.New("singular: field not found in control app")
)

// AuthError means the control API rejected the app token.
type AuthError struct {
	Op         string
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("singular %s rejected credentials (status %d)", e.Op, e.StatusCode)
}

// NetworkError is a retryable transport, status or decoding failure.
type NetworkError struct {
	Op         string // model, control
	StatusCode int    // 0 when no response was received
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("singular %s returned status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("singular %s failed: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsAuthError reports whether err carries an *AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsExpected reports whether err says nothing about the API's health:
// credentials, configuration and unknown fields are operator problems.
func IsExpected(err error) bool {
	return err == nil ||
		IsAuthError(err) ||
		errors.Is(err, ErrNoToken) ||
		errors.Is(err, ErrUnknownField)
}
