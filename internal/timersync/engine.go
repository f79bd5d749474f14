// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package timersync

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/tomtom215/timerbridge/internal/logging"
	"github.com/tomtom215/timerbridge/internal/metrics"
	"github.com/tomtom215/timerbridge/internal/singular"
	"github.com/tomtom215/timerbridge/internal/timecode"
	"github.com/tomtom215/timerbridge/internal/tricaster"
)

// DefaultRestartDelay separates the pause and reset of a restart.
const DefaultRestartDelay = 50 * time.Millisecond

// DefaultAuthFailureThreshold is how many consecutive auth failures
// raise the session's auth failure flag.
const DefaultAuthFailureThreshold = 3

// Settings configure a new Engine.
type Settings struct {
	Mapping Mapping

	// AutoSync starts the scheduler when Serve runs.
	AutoSync bool
	Interval int // seconds

	AuthFailureThreshold int
	RestartDelay         time.Duration
	Publisher            Publisher
}

// channelState is the mutable per-DDR status, guarded by Engine.mu.
type channelState struct {
	lastPushedAt  time.Time
	lastCheckedAt time.Time
	lastError     string
	lastErrorAt   time.Time
}

// Engine owns the sync session: the mapping, the last pushed value per
// DDR, per-DDR status and the auto-sync scheduler.
type Engine struct {
	video    tricaster.Client
	graphics singular.Client

	publisher     Publisher
	authThreshold int
	restartDelay  time.Duration
	now           func() time.Time

	// mu guards everything below
	mu          sync.Mutex
	mapping     Mapping
	generation  uint64 // bumped by Reconfigure
	cache       map[int]timecode.Split
	channels    map[int]*channelState
	lastSyncAt  time.Time
	tickErr     string
	authStreak  int
	interval    time.Duration
	autoEnabled bool
	loop        *schedulerLoop
	intervalCh  chan struct{}
	baseCtx     context.Context

	locksMu sync.Mutex
	locks   map[int]*sync.Mutex
}

// New creates an engine in the disabled state.
func New(s Settings, video tricaster.Client, graphics singular.Client) *Engine {
	interval := s.Interval
	if interval < MinInterval || interval > MaxInterval {
		interval = DefaultInterval
	}
	threshold := s.AuthFailureThreshold
	if threshold < 1 {
		threshold = DefaultAuthFailureThreshold
	}
	delay := s.RestartDelay
	if delay <= 0 {
		delay = DefaultRestartDelay
	}

	e := &Engine{
		video:         video,
		graphics:      graphics,
		publisher:     s.Publisher,
		authThreshold: threshold,
		restartDelay:  delay,
		now:           time.Now,
		mapping:       s.Mapping.clone(),
		cache:         make(map[int]timecode.Split),
		channels:      make(map[int]*channelState),
		interval:      time.Duration(interval) * time.Second,
		autoEnabled:   s.AutoSync,
		intervalCh:    make(chan struct{}, 1),
		baseCtx:       context.Background(),
		locks:         make(map[int]*sync.Mutex),
	}
	metrics.SetAutoSyncState(false, e.interval)
	return e
}

// SetPublisher replaces the event publisher. Nil disables events.
func (e *Engine) SetPublisher(p Publisher) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.publisher = p
}

// Mapping returns a copy of the current mapping.
func (e *Engine) Mapping() Mapping {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mapping.clone()
}

// Channels returns the mapped DDR numbers in ascending order.
func (e *Engine) Channels() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channelIDsLocked()
}

func (e *Engine) channelIDsLocked() []int {
	ids := make([]int, 0, len(e.mapping.Channels))
	for ch := range e.mapping.Channels {
		ids = append(ids, ch)
	}
	sort.Ints(ids)
	return ids
}

// Reconfigure replaces the mapping wholesale. Cached values are dropped
// for DDRs whose fields changed, or for all DDRs when the token or rounding
// policy changed, so the next sync pushes to the new fields. Cached field
// maps in the Singular client are cleared.
func (e *Engine) Reconfigure(m Mapping) {
	next := m.clone()

	e.mu.Lock()
	prev := e.mapping
	e.mapping = next
	e.generation++

	if prev.Token != next.Token || prev.Policy != next.Policy {
		e.cache = make(map[int]timecode.Split)
	} else {
		for ch, f := range prev.Channels {
			if nf, ok := next.Channels[ch]; !ok || nf != f {
				delete(e.cache, ch)
			}
		}
	}
	for ch := range e.channels {
		if _, ok := next.Channels[ch]; !ok {
			delete(e.channels, ch)
		}
	}
	e.mu.Unlock()

	e.graphics.InvalidateFieldMaps("")

	logging.Info().Int("channels", len(next.Channels)).Str("round_mode", next.Policy.String()).Msg("[TIMER-SYNC] Configuration replaced")
	e.publish(context.Background(), Event{Type: EventReconfigured})
}

// Status returns a snapshot of the session.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Status{
		Enabled:           e.autoEnabled,
		Running:           e.loop != nil,
		Interval:          int(e.interval / time.Second),
		Error:             e.tickErr,
		AuthFailure:       e.authStreak >= e.authThreshold,
		AuthFailureStreak: e.authStreak,
		RoundMode:         e.mapping.Policy.String(),
		CachedValues:      make(map[string]timecode.Split, len(e.cache)),
		Channels:          make(map[string]ChannelStatus, len(e.mapping.Channels)),
	}
	if !e.lastSyncAt.IsZero() {
		st.LastSync = timePtr(e.lastSyncAt)
	}

	for ch, v := range e.cache {
		st.CachedValues[strconv.Itoa(ch)] = v
	}

	for _, ch := range e.channelIDsLocked() {
		cs := ChannelStatus{}
		if v, ok := e.cache[ch]; ok {
			cs.LastValue = splitPtr(v)
		}
		if s, ok := e.channels[ch]; ok {
			if !s.lastPushedAt.IsZero() {
				cs.LastPushedAt = timePtr(s.lastPushedAt)
			}
			if !s.lastCheckedAt.IsZero() {
				cs.LastCheckedAt = timePtr(s.lastCheckedAt)
			}
			cs.LastError = s.lastError
			if !s.lastErrorAt.IsZero() {
				cs.LastErrorAt = timePtr(s.lastErrorAt)
			}
		}
		st.Channels[strconv.Itoa(ch)] = cs
	}

	return st
}

// CachedValue returns the last pushed value for a DDR.
func (e *Engine) CachedValue(ch int) (timecode.Split, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.cache[ch]
	return v, ok
}

// channelLock returns the mutex serializing work on one DDR.
func (e *Engine) channelLock(ch int) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	l, ok := e.locks[ch]
	if !ok {
		l = &sync.Mutex{}
		e.locks[ch] = l
	}
	return l
}

// stateLocked returns the status slot for ch. Caller holds e.mu.
func (e *Engine) stateLocked(ch int) *channelState {
	s, ok := e.channels[ch]
	if !ok {
		s = &channelState{}
		e.channels[ch] = s
	}
	return s
}

// noteAuthResult tracks consecutive graphics auth failures and flags the
// session once the threshold is reached.
func (e *Engine) noteAuthResult(ctx context.Context, err error) {
	e.mu.Lock()
	if err == nil {
		e.authStreak = 0
		e.mu.Unlock()
		metrics.AuthFailureStreak.Set(0)
		return
	}
	if !singular.IsAuthError(err) {
		e.mu.Unlock()
		return
	}
	e.authStreak++
	streak := e.authStreak
	crossed := streak == e.authThreshold
	e.mu.Unlock()

	metrics.AuthFailureStreak.Set(float64(streak))
	if crossed {
		logging.Ctx(ctx).Error().Err(err).Int("consecutive_failures", streak).Msg("[TIMER-SYNC] Singular is rejecting the control app token")
		e.publish(ctx, Event{Type: EventAuthFailing, Error: err.Error()})
	}
}

func (e *Engine) publish(ctx context.Context, ev Event) {
	e.mu.Lock()
	p := e.publisher
	e.mu.Unlock()
	if p == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = e.now()
	}
	if err := p.Publish(ctx, ev); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("event", string(ev.Type)).Msg("[TIMER-SYNC] Failed to publish event")
	}
}
