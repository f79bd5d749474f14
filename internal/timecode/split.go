// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package timecode

import (
	"fmt"
	"math"
	"strings"
)

// RoundingPolicy selects how durations are snapped before splitting.
type RoundingPolicy int

const (
	// RoundNone splits the raw duration.
	RoundNone RoundingPolicy = iota
	// RoundFrames snaps the duration to the nearest frame boundary first.
	RoundFrames
)

// String returns the configuration spelling of the policy.
func (p RoundingPolicy) String() string {
	switch p {
	case RoundFrames:
		return "frames"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p RoundingPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *RoundingPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseRoundingPolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParseRoundingPolicy accepts "frames" (or "frame-accurate") and "none".
func ParseRoundingPolicy(s string) (RoundingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "frames", "frame", "frame-accurate":
		return RoundFrames, nil
	case "none", "":
		return RoundNone, nil
	default:
		return RoundNone, fmt.Errorf("unknown rounding policy %q (want frames or none)", s)
	}
}

// Split is a duration expressed as whole minutes plus seconds.
// Seconds is always rounded to two decimal places and lies in [0, 60).
type Split struct {
	Minutes int     `json:"minutes"`
	Seconds float64 `json:"seconds"`
}

// Equal reports whether two splits show the same value on a timer.
func (s Split) Equal(other Split) bool {
	return s.Minutes == other.Minutes && Round2(s.Seconds) == Round2(other.Seconds)
}

func (s Split) String() string {
	return fmt.Sprintf("%dm %.2fs", s.Minutes, s.Seconds)
}

// Round2 rounds seconds to hundredths. The small bias keeps values such as
// 30.005 stored as 30.00499999 from rounding down.
func Round2(v float64) float64 {
	return math.Round((v+1e-9)*100) / 100
}

// SplitDuration converts total seconds into minutes and seconds.
// A frameRate <= 0 disables frame snapping regardless of policy.
func SplitDuration(totalSeconds, frameRate float64, policy RoundingPolicy) Split {
	ts := totalSeconds
	if ts < 0 || math.IsNaN(ts) {
		ts = 0
	}

	if policy == RoundFrames && frameRate > 0 && !math.IsInf(frameRate, 0) {
		ts = math.Round(ts*frameRate) / frameRate
	}

	minutes := math.Floor(ts / 60)
	seconds := Round2(ts - minutes*60)
	if seconds >= 60 {
		minutes++
		seconds = 0
	}
	return Split{Minutes: int(minutes), Seconds: seconds}
}
