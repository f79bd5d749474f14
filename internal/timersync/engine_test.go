// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package timersync

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/timerbridge/internal/config"
	"github.com/tomtom215/timerbridge/internal/timecode"
)

func TestReconfigure_DropsChangedChannels(t *testing.T) {
	t.Parallel()

	e, video, graphics := newTestEngine(t, timecode.RoundNone)
	video.set(1, 10, 0)
	video.set(2, 20, 0)
	if _, err := e.SyncAll(context.Background(), SyncOptions{}); err != nil {
		t.Fatal(err)
	}

	m := testMapping(timecode.RoundNone)
	m.Channels[2] = FieldMapping{Minutes: "Clip2_Min", Seconds: "Clip2_Sec"}
	e.Reconfigure(m)

	if _, ok := e.CachedValue(1); !ok {
		t.Error("unchanged channel 1 should keep its cached value")
	}
	if _, ok := e.CachedValue(2); ok {
		t.Error("remapped channel 2 should lose its cached value")
	}
	if graphics.invalidated != 1 {
		t.Errorf("expected field maps to be invalidated once, got %d", graphics.invalidated)
	}

	before := graphics.count()
	if _, err := e.SyncAll(context.Background(), SyncOptions{}); err != nil {
		t.Fatal(err)
	}
	if graphics.count() != before+1 {
		t.Fatalf("expected only channel 2 to push, got %d new pushes", graphics.count()-before)
	}
	if p := graphics.last(); p.updates[0].FieldID != "Clip2_Min" {
		t.Errorf("push should target the new field, got %+v", p.updates)
	}
}

func TestReconfigure_TokenChangeClearsCache(t *testing.T) {
	t.Parallel()

	e, video, _ := newTestEngine(t, timecode.RoundNone)
	video.set(1, 10, 0)
	_, _ = e.SyncChannel(context.Background(), 1, SyncOptions{})

	m := testMapping(timecode.RoundNone)
	m.Token = "other"
	e.Reconfigure(m)

	if st := e.Status(); len(st.CachedValues) != 0 {
		t.Errorf("token change should clear the cache, got %v", st.CachedValues)
	}
}

func TestReconfigure_RemovesChannelStatus(t *testing.T) {
	t.Parallel()

	e, video, _ := newTestEngine(t, timecode.RoundNone)
	video.set(3, 5, 0)
	_, _ = e.SyncChannel(context.Background(), 3, SyncOptions{})

	m := testMapping(timecode.RoundNone)
	delete(m.Channels, 3)
	e.Reconfigure(m)

	st := e.Status()
	if _, ok := st.Channels["3"]; ok {
		t.Error("removed channel should not appear in status")
	}
	if got := e.Channels(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("Channels() = %v", got)
	}
}

func TestReconfigure_CopiesMapping(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEngine(t, timecode.RoundNone)
	m := testMapping(timecode.RoundFrames)
	e.Reconfigure(m)
	m.Channels[1] = FieldMapping{Minutes: "mutated"}

	if got := e.Mapping().Channels[1].Minutes; got != "DDR1_Min" {
		t.Errorf("engine mapping changed through caller's map: %q", got)
	}
	if e.Status().RoundMode != "frames" {
		t.Errorf("round mode = %q", e.Status().RoundMode)
	}
}

func TestStatus_ChannelDetails(t *testing.T) {
	t.Parallel()

	e, video, _ := newTestEngine(t, timecode.RoundNone)
	fixed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }
	video.set(1, 125.5, 0)
	_, _ = e.SyncChannel(context.Background(), 1, SyncOptions{})

	st := e.Status()
	if st.Enabled || st.Running || st.LastSync != nil {
		t.Errorf("manual sync should not touch scheduler fields: %+v", st)
	}
	cs := st.Channels["1"]
	if cs.LastValue == nil || !cs.LastValue.Equal(timecode.Split{Minutes: 2, Seconds: 5.5}) {
		t.Errorf("last value = %v", cs.LastValue)
	}
	if cs.LastPushedAt == nil || !cs.LastPushedAt.Equal(fixed) {
		t.Errorf("last pushed at = %v", cs.LastPushedAt)
	}
	if _, ok := st.Channels["2"]; !ok {
		t.Error("mapped channels appear in status before their first sync")
	}
	if got := st.CachedValues["1"]; !got.Equal(timecode.Split{Minutes: 2, Seconds: 5.5}) {
		t.Errorf("cached_values[1] = %v", got)
	}
}

func TestMappingFromConfig(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Singular: config.SingularConfig{Token: "abc"},
		TimerSync: config.TimerSyncConfig{
			RoundMode: "none",
			Channels: map[string]config.ChannelFields{
				"1": {Min: "m1", Sec: "s1", Timer: "t1"},
				"4": {Min: "m4", Sec: "s4"},
			},
		},
	}

	m, err := MappingFromConfig(cfg)
	if err != nil {
		t.Fatalf("MappingFromConfig: %v", err)
	}
	if m.Token != "abc" || m.Policy != timecode.RoundNone {
		t.Errorf("mapping = %+v", m)
	}
	if m.Channels[1] != (FieldMapping{Minutes: "m1", Seconds: "s1", Timer: "t1"}) {
		t.Errorf("channel 1 = %+v", m.Channels[1])
	}
	if m.Channels[4].Timer != "" {
		t.Errorf("channel 4 should have no timer field")
	}

	cfg.TimerSync.Channels["x"] = config.ChannelFields{Min: "a", Sec: "b"}
	if _, err := MappingFromConfig(cfg); err == nil {
		t.Error("expected error for non-numeric channel key")
	}

	cfg.TimerSync.RoundMode = "nearest"
	if _, err := MappingFromConfig(cfg); err == nil {
		t.Error("expected error for unknown round mode")
	}
}
