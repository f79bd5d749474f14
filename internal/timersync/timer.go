// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package timersync

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/timerbridge/internal/logging"
	"github.com/tomtom215/timerbridge/internal/metrics"
	"github.com/tomtom215/timerbridge/internal/singular"
)

// TimerAction sends a start, pause, reset or restart to a DDR's timer
// field. Restart is pause followed by reset; a failed pause aborts it.
// Trigger fields are only ever written here, never by duration sync.
func (e *Engine) TimerAction(ctx context.Context, ch int, action Action) error {
	if _, err := ParseAction(string(action)); err != nil {
		return err
	}

	lock := e.channelLock(ch)
	lock.Lock()
	defer lock.Unlock()

	e.mu.Lock()
	fields, ok := e.mapping.Channels[ch]
	token := e.mapping.Token
	e.mu.Unlock()

	if token == "" {
		return ErrNotConfigured
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownChannel, ch)
	}
	if fields.Timer == "" {
		return fmt.Errorf("%w: channel %d has no timer field", ErrMissingField, ch)
	}

	var err error
	if action == ActionRestart {
		err = e.restart(ctx, token, fields.Timer)
	} else {
		err = e.sendCommand(ctx, token, fields.Timer, action)
	}

	metrics.RecordTimerAction(string(action), err)
	log := logging.Ctx(ctx).With().Int("channel", ch).Str("action", string(action)).Logger()
	ev := Event{Type: EventTimerAction, Channel: ch, Action: action}
	if err != nil {
		log.Warn().Err(err).Msg("[TIMER-SYNC] Timer action failed")
		ev.Error = err.Error()
	} else {
		log.Info().Msg("[TIMER-SYNC] Timer action sent")
	}
	e.publish(ctx, ev)

	return err
}

// RestartAll restarts every mapped DDR's timer in DDR order and collects
// per-DDR results. One failure does not stop the rest.
func (e *Engine) RestartAll(ctx context.Context) ([]ActionResult, error) {
	if err := e.checkConfigured(); err != nil {
		return nil, err
	}

	ids := e.Channels()
	results := make([]ActionResult, 0, len(ids))
	for _, ch := range ids {
		res := ActionResult{Channel: ch, Action: ActionRestart}
		if err := e.TimerAction(ctx, ch, ActionRestart); err != nil {
			res.Err = err
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Engine) restart(ctx context.Context, token, field string) error {
	if err := e.sendCommand(ctx, token, field, ActionPause); err != nil {
		return fmt.Errorf("restart aborted, pause failed: %w", err)
	}

	timer := time.NewTimer(e.restartDelay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return fmt.Errorf("restart aborted before reset: %w", ctx.Err())
	case <-timer.C:
	}

	if err := e.sendCommand(ctx, token, field, ActionReset); err != nil {
		return fmt.Errorf("restart: reset failed: %w", err)
	}
	return nil
}

func (e *Engine) sendCommand(ctx context.Context, token, field string, action Action) error {
	err := e.graphics.Push(ctx, token, []singular.FieldUpdate{
		{FieldID: field, Value: map[string]string{"command": string(action)}},
	})
	e.noteAuthResult(ctx, err)
	return err
}
