// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package timersync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/timerbridge/internal/config"
	"github.com/tomtom215/timerbridge/internal/timecode"
)

// Auto-sync interval bounds in seconds.
const (
	MinInterval     = config.MinAutoSyncInterval
	MaxInterval     = config.MaxAutoSyncInterval
	DefaultInterval = 3
)

var (
	// ErrUnknownChannel means the DDR has no field mapping.
	ErrUnknownChannel = errors.New("timersync: no timer fields configured for channel")

	// ErrMissingField means the mapping lacks a field the operation needs.
	ErrMissingField = errors.New("timersync: field not configured")

	// ErrNotConfigured means no Singular token is set for timer sync.
	ErrNotConfigured = errors.New("timersync: no Singular token configured for timer sync")

	// ErrInvalidInterval rejects auto-sync intervals outside MinInterval..MaxInterval.
	ErrInvalidInterval = fmt.Errorf("timersync: interval must be between %d and %d seconds", MinInterval, MaxInterval)

	// ErrInvalidAction rejects unknown timer actions.
	ErrInvalidAction = errors.New("timersync: action must be start, pause, reset or restart")
)

// Action is a momentary timer command.
type Action string

const (
	ActionStart   Action = "start"
	ActionPause   Action = "pause"
	ActionReset   Action = "reset"
	ActionRestart Action = "restart" // pause then reset, no auto-start
)

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionStart, ActionPause, ActionReset, ActionRestart:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
}

// Outcome is the result of one channel sync attempt.
type Outcome string

const (
	OutcomePushed    Outcome = "pushed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeNotLoaded Outcome = "not_loaded"
	OutcomeFailed    Outcome = "failed"
)

// Trigger names what started a sync, for logs and metrics.
type Trigger string

const (
	TriggerAuto   Trigger = "auto"
	TriggerManual Trigger = "manual"
)

// FieldMapping names the Singular fields fed by one DDR.
type FieldMapping struct {
	Minutes string `json:"min"`
	Seconds string `json:"sec"`
	Timer   string `json:"timer,omitempty"`
}

// Mapping is the complete timer sync configuration. It is replaced
// wholesale by Reconfigure and never edited in place.
type Mapping struct {
	Token    string                  `json:"-"`
	Policy   timecode.RoundingPolicy `json:"round_mode"`
	Channels map[int]FieldMapping    `json:"channels"`
}

func (m Mapping) clone() Mapping {
	out := Mapping{Token: m.Token, Policy: m.Policy, Channels: make(map[int]FieldMapping, len(m.Channels))}
	for ch, f := range m.Channels {
		out.Channels[ch] = f
	}
	return out
}

// MappingFromConfig builds a Mapping from loaded configuration.
func MappingFromConfig(cfg *config.Config) (Mapping, error) {
	policy, err := timecode.ParseRoundingPolicy(cfg.TimerSync.RoundMode)
	if err != nil {
		return Mapping{}, err
	}

	m := Mapping{
		Token:    cfg.Singular.Token,
		Policy:   policy,
		Channels: make(map[int]FieldMapping, len(cfg.TimerSync.Channels)),
	}
	for key, f := range cfg.TimerSync.Channels {
		ch, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || ch < 1 {
			return Mapping{}, fmt.Errorf("invalid channel key %q", key)
		}
		m.Channels[ch] = FieldMapping{Minutes: f.Min, Seconds: f.Sec, Timer: f.Timer}
	}
	return m, nil
}

// SyncOptions adjust a manual sync.
type SyncOptions struct {
	// Force pushes even when the value matches the cache.
	Force bool
}

// ChannelResult reports one channel sync attempt.
type ChannelResult struct {
	Channel         int             `json:"channel"`
	Outcome         Outcome         `json:"outcome"`
	Value           *timecode.Split `json:"value,omitempty"`
	DurationSeconds float64         `json:"duration_seconds,omitempty"`
	FrameRate       float64         `json:"frame_rate,omitempty"`
	Error           string          `json:"error,omitempty"`
	Err             error           `json:"-"`
}

// ActionResult reports one timer action.
type ActionResult struct {
	Channel int    `json:"channel"`
	Action  Action `json:"action"`
	Error   string `json:"error,omitempty"`
	Err     error  `json:"-"`
}

// ChannelStatus is the operator-facing state of one DDR.
type ChannelStatus struct {
	LastValue     *timecode.Split `json:"last_value,omitempty"`
	LastPushedAt  *time.Time      `json:"last_pushed_at,omitempty"`
	LastCheckedAt *time.Time      `json:"last_checked_at,omitempty"`
	LastError     string          `json:"last_error,omitempty"`
	LastErrorAt   *time.Time      `json:"last_error_at,omitempty"`
}

// Status is a snapshot of the sync session.
type Status struct {
	Enabled           bool                      `json:"enabled"`
	Running           bool                      `json:"running"`
	Interval          int                       `json:"interval"`
	LastSync          *time.Time                `json:"last_sync"`
	Error             string                    `json:"error,omitempty"`
	AuthFailure       bool                      `json:"auth_failure"`
	AuthFailureStreak int                       `json:"auth_failure_streak"`
	RoundMode         string                    `json:"round_mode"`
	CachedValues      map[string]timecode.Split `json:"cached_values"`
	Channels          map[string]ChannelStatus  `json:"channels"`
}

// EventType classifies engine events.
type EventType string

const (
	EventChannelPushed   EventType = "channel.pushed"
	EventChannelFailed   EventType = "channel.failed"
	EventTimerAction     EventType = "timer.action"
	EventAutoSyncStarted EventType = "autosync.started"
	EventAutoSyncStopped EventType = "autosync.stopped"
	EventAuthFailing     EventType = "auth.failing"
	EventReconfigured    EventType = "config.reloaded"
)

// Event describes a state change worth streaming to operators.
type Event struct {
	Type      EventType       `json:"type"`
	Channel   int             `json:"channel,omitempty"`
	Action    Action          `json:"action,omitempty"`
	Value     *timecode.Split `json:"value,omitempty"`
	Interval  int             `json:"interval,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Publisher receives engine events. Publishing must not block for long;
// failures are logged and otherwise ignored.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

func timePtr(t time.Time) *time.Time { return &t }

func splitPtr(s timecode.Split) *timecode.Split { return &s }
