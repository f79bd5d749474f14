// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package timersync

import (
	"context"
	"time"

	"github.com/tomtom215/timerbridge/internal/logging"
	"github.com/tomtom215/timerbridge/internal/metrics"
)

// schedulerLoop is one run of the auto-sync goroutine.
type schedulerLoop struct {
	stop chan struct{}
	done chan struct{}
}

// EnableAutoSync starts the scheduler, or updates the interval of a
// running one. Intervals outside MinInterval..MaxInterval are rejected.
func (e *Engine) EnableAutoSync(intervalSeconds int) error {
	if intervalSeconds < MinInterval || intervalSeconds > MaxInterval {
		return ErrInvalidInterval
	}
	interval := time.Duration(intervalSeconds) * time.Second

	e.mu.Lock()
	changed := e.interval != interval
	e.interval = interval
	e.autoEnabled = true

	if e.loop != nil {
		e.mu.Unlock()
		if changed {
			select {
			case e.intervalCh <- struct{}{}:
			default:
			}
			metrics.SetAutoSyncState(true, interval)
			logging.Info().Dur("interval", interval).Msg("[AUTO-SYNC] Interval updated")
		}
		return nil
	}

	l := &schedulerLoop{stop: make(chan struct{}), done: make(chan struct{})}
	e.loop = l
	ctx := e.baseCtx
	e.mu.Unlock()

	metrics.SetAutoSyncState(true, interval)
	logging.Info().Dur("interval", interval).Msg("[AUTO-SYNC] Started")
	e.publish(ctx, Event{Type: EventAutoSyncStarted, Interval: intervalSeconds})

	go e.runLoop(ctx, l)
	return nil
}

// DisableAutoSync stops scheduling new ticks and waits for an in-flight
// tick to finish. Calling it while stopped is a no-op.
func (e *Engine) DisableAutoSync() {
	e.mu.Lock()
	e.autoEnabled = false
	l := e.loop
	e.loop = nil
	interval := e.interval
	e.mu.Unlock()

	if l == nil {
		return
	}

	close(l.stop)
	<-l.done

	metrics.SetAutoSyncState(false, interval)
	logging.Info().Msg("[AUTO-SYNC] Stopped")
	e.publish(context.Background(), Event{Type: EventAutoSyncStopped})
}

// Serve runs the engine until ctx is canceled, starting the scheduler
// first when auto-sync is enabled in settings. It implements suture.Service.
func (e *Engine) Serve(ctx context.Context) error {
	e.mu.Lock()
	e.baseCtx = ctx
	start := e.autoEnabled && e.loop == nil
	interval := int(e.interval / time.Second)
	e.mu.Unlock()

	if start {
		if err := e.EnableAutoSync(interval); err != nil {
			return err
		}
	}

	<-ctx.Done()

	// Keep the desired state so a supervisor restart resumes scheduling.
	e.mu.Lock()
	wanted := e.autoEnabled
	e.mu.Unlock()
	e.DisableAutoSync()
	e.mu.Lock()
	e.autoEnabled = wanted
	e.baseCtx = context.Background()
	e.mu.Unlock()

	return ctx.Err()
}

// String names the engine in supervisor logs.
func (e *Engine) String() string { return "timersync-engine" }

func (e *Engine) runLoop(ctx context.Context, l *schedulerLoop) {
	defer close(l.done)
	defer func() {
		// Exit through ctx cancellation leaves e.loop pointing here.
		e.mu.Lock()
		if e.loop == l {
			e.loop = nil
		}
		e.mu.Unlock()
	}()

	ticker := time.NewTicker(e.currentInterval())
	defer ticker.Stop()

	e.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return
		case <-e.intervalCh:
			ticker.Reset(e.currentInterval())
		case <-ticker.C:
			// Stop may have been requested while the ticker fired.
			select {
			case <-l.stop:
				return
			default:
			}
			e.tick(ctx)
		}
	}
}

func (e *Engine) currentInterval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interval
}

// tick syncs every mapped DDR once and records the pass.
func (e *Engine) tick(ctx context.Context) {
	ctx = logging.ContextWithSyncRunID(ctx, logging.GenerateSyncRunID())

	if err := e.checkConfigured(); err != nil {
		e.mu.Lock()
		e.tickErr = err.Error()
		e.mu.Unlock()
		logging.Ctx(ctx).Debug().Err(err).Msg("[AUTO-SYNC] Skipping tick")
		return
	}

	ids := e.Channels()
	if len(ids) == 0 {
		return
	}

	start := time.Now()
	results := e.syncChannels(ctx, ids, TriggerAuto, false)

	pushed, failed := 0, 0
	for _, r := range results {
		switch r.Outcome {
		case OutcomePushed:
			pushed++
		case OutcomeFailed:
			failed++
		}
	}

	e.mu.Lock()
	e.lastSyncAt = e.now()
	e.tickErr = ""
	e.mu.Unlock()

	metrics.RecordSyncPass(string(TriggerAuto), time.Since(start))
	if pushed > 0 || failed > 0 {
		logging.Ctx(ctx).Debug().Int("channels", len(ids)).Int("pushed", pushed).Int("failed", failed).Dur("took", time.Since(start)).Msg("[AUTO-SYNC] Tick complete")
	}
}
