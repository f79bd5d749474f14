// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package timersync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/timerbridge/internal/singular"
	"github.com/tomtom215/timerbridge/internal/timecode"
	"github.com/tomtom215/timerbridge/internal/tricaster"
)

// fakeVideo returns a scripted sample or error per channel.
type fakeVideo struct {
	mu      sync.Mutex
	samples map[int]*tricaster.DurationSample
	errs    map[int]error
	calls   map[int]int
}

func newFakeVideo() *fakeVideo {
	return &fakeVideo{
		samples: make(map[int]*tricaster.DurationSample),
		errs:    make(map[int]error),
		calls:   make(map[int]int),
	}
}

func (f *fakeVideo) set(ch int, total, fps float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples[ch] = &tricaster.DurationSample{Channel: ch, TotalSeconds: total, FrameRate: fps, FetchedAt: time.Now()}
	delete(f.errs, ch)
}

func (f *fakeVideo) fail(ch int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[ch] = err
}

func (f *fakeVideo) FetchDuration(_ context.Context, ch int) (*tricaster.DurationSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[ch]++
	if err, ok := f.errs[ch]; ok {
		return nil, err
	}
	s, ok := f.samples[ch]
	if !ok {
		return nil, tricaster.ErrNotLoaded
	}
	cp := *s
	return &cp, nil
}

func (f *fakeVideo) Version(context.Context) (string, error) { return "test", nil }

func (f *fakeVideo) DDRInfo(context.Context) (map[string]tricaster.DDRInfo, error) {
	return map[string]tricaster.DDRInfo{}, nil
}

func (f *fakeVideo) Tally(context.Context) (*tricaster.Tally, error) { return &tricaster.Tally{}, nil }

func (f *fakeVideo) Dictionary(context.Context, string) (string, error) { return "", nil }

func (f *fakeVideo) Shortcut(context.Context, string, map[string]string) error { return nil }

// push is one recorded Singular call.
type push struct {
	token   string
	updates []singular.FieldUpdate
}

// fakeGraphics records pushes and can fail or block them.
type fakeGraphics struct {
	mu          sync.Mutex
	pushes      []push
	err         error
	failOn      map[string]error // field id -> error
	delay       time.Duration
	gate        chan struct{} // when non-nil, Push waits for it to close
	started     chan struct{} // receives once per Push call, if non-nil
	invalidated int
}

func (f *fakeGraphics) Push(ctx context.Context, token string, updates []singular.FieldUpdate) error {
	f.mu.Lock()
	gate, started, delay := f.gate, f.started, f.delay
	f.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		<-gate
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range updates {
		if err, ok := f.failOn[u.FieldID+":"+commandOf(u)]; ok {
			return err
		}
	}
	if f.err != nil {
		return f.err
	}
	f.pushes = append(f.pushes, push{token: token, updates: updates})
	return nil
}

func commandOf(u singular.FieldUpdate) string {
	if m, ok := u.Value.(map[string]string); ok {
		return m["command"]
	}
	return ""
}

func (f *fakeGraphics) Model(context.Context, string) ([]singular.Composition, error) { return nil, nil }

func (f *fakeGraphics) Fields(context.Context, string) ([]singular.Field, error) { return nil, nil }

func (f *fakeGraphics) InvalidateFieldMaps(string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
}

func (f *fakeGraphics) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushes)
}

func (f *fakeGraphics) last() push {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pushes[len(f.pushes)-1]
}

func (f *fakeGraphics) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// recordingPublisher keeps every event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func testMapping(policy timecode.RoundingPolicy) Mapping {
	return Mapping{
		Token:  "tok",
		Policy: policy,
		Channels: map[int]FieldMapping{
			1: {Minutes: "DDR1_Min", Seconds: "DDR1_Sec", Timer: "DDR1_Timer"},
			2: {Minutes: "DDR2_Min", Seconds: "DDR2_Sec", Timer: "DDR2_Timer"},
			3: {Minutes: "DDR3_Min", Seconds: "DDR3_Sec"},
		},
	}
}

func newTestEngine(t *testing.T, policy timecode.RoundingPolicy) (*Engine, *fakeVideo, *fakeGraphics) {
	t.Helper()
	video := newFakeVideo()
	graphics := &fakeGraphics{}
	e := New(Settings{
		Mapping:      testMapping(policy),
		Interval:     2,
		RestartDelay: time.Millisecond,
	}, video, graphics)
	return e, video, graphics
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
