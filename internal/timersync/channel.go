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
	"sync"
	"time"

	"github.com/tomtom215/timerbridge/internal/logging"
	"github.com/tomtom215/timerbridge/internal/metrics"
	"github.com/tomtom215/timerbridge/internal/singular"
	"github.com/tomtom215/timerbridge/internal/timecode"
	"github.com/tomtom215/timerbridge/internal/tricaster"
)

// SyncChannel runs one manual sync for a DDR. The returned error is
// non-nil for configuration problems and for a Failed outcome.
func (e *Engine) SyncChannel(ctx context.Context, ch int, opts SyncOptions) (ChannelResult, error) {
	start := time.Now()
	ctx = withRunID(ctx)

	res, err := e.syncChannel(ctx, ch, TriggerManual, opts.Force)
	metrics.RecordSyncPass(string(TriggerManual), time.Since(start))
	if err != nil {
		return res, err
	}
	return res, res.Err
}

// SyncAll runs a manual sync for every mapped DDR concurrently. One DDR's
// failure never stops the others. Results are in DDR order.
func (e *Engine) SyncAll(ctx context.Context, opts SyncOptions) ([]ChannelResult, error) {
	if err := e.checkConfigured(); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx = withRunID(ctx)
	results := e.syncChannels(ctx, e.Channels(), TriggerManual, opts.Force)
	metrics.RecordSyncPass(string(TriggerManual), time.Since(start))
	return results, nil
}

func (e *Engine) checkConfigured() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mapping.Token == "" {
		return ErrNotConfigured
	}
	return nil
}

// syncChannels runs ids in parallel and returns results in input order.
func (e *Engine) syncChannels(ctx context.Context, ids []int, trigger Trigger, force bool) []ChannelResult {
	results := make([]ChannelResult, len(ids))
	var wg sync.WaitGroup
	for i, ch := range ids {
		wg.Add(1)
		go func(i, ch int) {
			defer wg.Done()
			res, err := e.syncChannel(ctx, ch, trigger, force)
			if err != nil {
				// mapping removed mid-pass
				res = ChannelResult{Channel: ch, Outcome: OutcomeFailed, Err: err, Error: err.Error()}
			}
			results[i] = res
		}(i, ch)
	}
	wg.Wait()
	return results
}

// syncChannel is the per-DDR state machine:
//
//	Idle -> Fetching -> (Skip | Pushing | Failed) -> Idle
//
// The error return is reserved for requests that never reach Fetching.
func (e *Engine) syncChannel(ctx context.Context, ch int, trigger Trigger, force bool) (ChannelResult, error) {
	lock := e.channelLock(ch)
	lock.Lock()
	defer lock.Unlock()

	// Snapshot after taking the lock so a sync queued behind a
	// reconfiguration uses the new mapping.
	e.mu.Lock()
	fields, ok := e.mapping.Channels[ch]
	token := e.mapping.Token
	policy := e.mapping.Policy
	generation := e.generation
	e.mu.Unlock()

	if !ok {
		return ChannelResult{Channel: ch}, fmt.Errorf("%w: %d", ErrUnknownChannel, ch)
	}
	if fields.Minutes == "" || fields.Seconds == "" {
		return ChannelResult{Channel: ch}, fmt.Errorf("%w: channel %d needs min and sec fields", ErrMissingField, ch)
	}
	if token == "" {
		return ChannelResult{Channel: ch}, ErrNotConfigured
	}

	log := logging.Ctx(ctx).With().Int("channel", ch).Str("trigger", string(trigger)).Logger()
	label := strconv.Itoa(ch)

	// Fetching
	sample, err := e.video.FetchDuration(ctx, ch)
	if errors.Is(err, tricaster.ErrNotLoaded) {
		e.touch(ch, generation)
		metrics.RecordChannelOutcome(label, string(OutcomeNotLoaded), nil)
		log.Debug().Msg("[TIMER-SYNC] No clip loaded")
		return ChannelResult{Channel: ch, Outcome: OutcomeNotLoaded}, nil
	}
	if err != nil {
		return e.fail(ctx, ch, generation, err, ChannelResult{Channel: ch}), nil
	}

	split := timecode.SplitDuration(sample.TotalSeconds, sample.FrameRate, policy)
	res := ChannelResult{
		Channel:         ch,
		Value:           splitPtr(split),
		DurationSeconds: sample.TotalSeconds,
		FrameRate:       sample.FrameRate,
	}

	e.mu.Lock()
	cached, hasCached := e.cache[ch]
	e.mu.Unlock()

	// Skip
	if hasCached && cached.Equal(split) && !force {
		e.touch(ch, generation)
		metrics.RecordChannelOutcome(label, string(OutcomeSkipped), nil)
		res.Outcome = OutcomeSkipped
		return res, nil
	}

	// Pushing
	err = e.graphics.Push(ctx, token, []singular.FieldUpdate{
		{FieldID: fields.Minutes, Value: split.Minutes},
		{FieldID: fields.Seconds, Value: split.Seconds},
	})
	e.noteAuthResult(ctx, err)
	if err != nil {
		return e.fail(ctx, ch, generation, err, res), nil
	}

	now := e.now()
	e.mu.Lock()
	if e.generation == generation {
		e.cache[ch] = split
		st := e.stateLocked(ch)
		st.lastPushedAt = now
		st.lastCheckedAt = now
		st.lastError = ""
		st.lastErrorAt = time.Time{}
	}
	e.mu.Unlock()

	metrics.RecordChannelOutcome(label, string(OutcomePushed), nil)
	log.Info().Str("value", split.String()).Float64("duration_seconds", sample.TotalSeconds).Float64("fps", sample.FrameRate).Msg("[TIMER-SYNC] Pushed duration")
	e.publish(ctx, Event{Type: EventChannelPushed, Channel: ch, Value: splitPtr(split)})

	res.Outcome = OutcomePushed
	return res, nil
}

// touch records a check that changed nothing.
func (e *Engine) touch(ch int, generation uint64) {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation == generation {
		e.stateLocked(ch).lastCheckedAt = now
	}
}

// fail records err as the DDR's last error and returns a Failed result.
// The cached value is left alone so the next attempt retries the delta.
func (e *Engine) fail(ctx context.Context, ch int, generation uint64, err error, res ChannelResult) ChannelResult {
	now := e.now()
	e.mu.Lock()
	if e.generation == generation {
		st := e.stateLocked(ch)
		st.lastCheckedAt = now
		st.lastError = err.Error()
		st.lastErrorAt = now
	}
	e.mu.Unlock()

	metrics.RecordChannelOutcome(strconv.Itoa(ch), string(OutcomeFailed), err)

	ev := logging.Ctx(ctx).Warn()
	if errors.Is(err, timecode.ErrParse) {
		ev = logging.Ctx(ctx).Info()
	}
	ev.Err(err).Int("channel", ch).Str("error_type", metrics.ErrorType(err)).Msg("[TIMER-SYNC] Channel sync failed")
	e.publish(ctx, Event{Type: EventChannelFailed, Channel: ch, Error: err.Error()})

	res.Outcome = OutcomeFailed
	res.Err = err
	res.Error = err.Error()
	return res
}

func withRunID(ctx context.Context) context.Context {
	if logging.SyncRunIDFromContext(ctx) != "" {
		return ctx
	}
	return logging.ContextWithSyncRunID(ctx, logging.GenerateSyncRunID())
}
