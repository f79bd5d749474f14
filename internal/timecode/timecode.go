// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

// Package timecode converts video-server duration strings into seconds and
// splits seconds into the minutes/seconds pair shown by graphics timers.
//
// Accepted duration formats, chosen by separator count:
//
//	HH:MM:SS.ff   hours, minutes, seconds with fractional seconds
//	MM:SS.ff      minutes and seconds
//	123.45        bare seconds
//
// The fractional part is decimal seconds, never a frame count. Once a format
// is chosen by its shape, a numeric failure inside it is a ParseError; there
// is no fallback to the next format.
package timecode

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrParse is the sentinel matched by every ParseError.
var ErrParse = errors.New("timecode: parse error")

// ParseError describes a timecode string that could not be converted.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("timecode: cannot parse %q: %s", e.Input, e.Reason)
}

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Parse converts a duration string into non-negative seconds.
func Parse(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, &ParseError{Input: s, Reason: "empty timecode"}
	}

	parts := strings.Split(trimmed, ":")
	var total float64
	switch len(parts) {
	case 3:
		h, err := parseWhole(parts[0])
		if err != nil {
			return 0, &ParseError{Input: s, Reason: "hours: " + err.Error()}
		}
		m, err := parseWhole(parts[1])
		if err != nil {
			return 0, &ParseError{Input: s, Reason: "minutes: " + err.Error()}
		}
		sec, err := parseSeconds(parts[2])
		if err != nil {
			return 0, &ParseError{Input: s, Reason: "seconds: " + err.Error()}
		}
		total = float64(h)*3600 + float64(m)*60 + sec
	case 2:
		m, err := parseWhole(parts[0])
		if err != nil {
			return 0, &ParseError{Input: s, Reason: "minutes: " + err.Error()}
		}
		sec, err := parseSeconds(parts[1])
		if err != nil {
			return 0, &ParseError{Input: s, Reason: "seconds: " + err.Error()}
		}
		total = float64(m)*60 + sec
	case 1:
		sec, err := parseSeconds(parts[0])
		if err != nil {
			return 0, &ParseError{Input: s, Reason: err.Error()}
		}
		total = sec
	default:
		return 0, &ParseError{Input: s, Reason: fmt.Sprintf("unexpected %d separators", len(parts)-1)}
	}

	if total < 0 {
		return 0, &ParseError{Input: s, Reason: "negative duration"}
	}
	return total, nil
}

func parseWhole(field string) (int64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, errors.New("empty field")
	}
	v, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return 0, errors.New("not an integer")
	}
	if v < 0 {
		return 0, errors.New("negative field")
	}
	return v, nil
}

func parseSeconds(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, errors.New("empty field")
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, errors.New("not a number")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not a finite number")
	}
	return v, nil
}
