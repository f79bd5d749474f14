// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package singular

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/timerbridge/internal/cache"
	"github.com/tomtom215/timerbridge/internal/config"
)

const testModel = `[
  {"id": "comp-root", "name": "Main", "model": [{"id": "Title", "title": "Headline", "type": "text"}],
   "subcompositions": [
     {"id": "sub-ddr", "name": "DDR Timers", "model": [
        {"id": "DDR1_Min", "title": "DDR 1 Minutes", "type": "number"},
        {"id": "DDR1_Sec", "name": "DDR 1 Seconds", "type": "number"},
        {"id": "DDR1_Timer", "type": "timecontrol"}
     ]},
     {"id": "sub-lower", "model": [{"id": "Name"}, {"id": ""}]}
   ]}
]`

// fakeSingular records control requests and serves a fixed model.
type fakeSingular struct {
	mu           sync.Mutex
	model        string
	modelCalls   int
	controlCalls int
	bodies       [][]controlItem
	status       int
	paths        []string
}

func (f *fakeSingular) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.Method+" "+r.URL.Path)

	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, `{"error":"nope"}`)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/apiv2/controlapps/tok/model":
		f.modelCalls++
		_, _ = io.WriteString(w, f.model)
	case r.Method == http.MethodPatch && r.URL.Path == "/apiv2/controlapps/tok/control":
		f.controlCalls++
		var items []controlItem
		if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.bodies = append(f.bodies, items)
		_, _ = io.WriteString(w, `{"success":true}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, f *fakeSingular) *HTTPClient {
	t.Helper()
	if f.model == "" {
		f.model = testModel
	}
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)

	return NewClient(&config.SingularConfig{
		APIBase:     server.URL + "/apiv2/",
		Timeout:     2 * time.Second,
		FieldMapTTL: time.Minute,
	})
}

func TestPush_GroupsBySubcomposition(t *testing.T) {
	t.Parallel()

	f := &fakeSingular{}
	c := newTestClient(t, f)

	err := c.Push(context.Background(), "tok", []FieldUpdate{
		{FieldID: "DDR1_Min", Value: 1},
		{FieldID: "Title", Value: "Hello"},
		{FieldID: "DDR1_Sec", Value: 30.5},
	})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.controlCalls != 1 {
		t.Fatalf("expected one PATCH, got %d", f.controlCalls)
	}
	items := f.bodies[0]
	if len(items) != 2 {
		t.Fatalf("expected 2 subcomposition items, got %+v", items)
	}
	if items[0].SubCompositionID != "sub-ddr" || items[1].SubCompositionID != "comp-root" {
		t.Errorf("unexpected grouping order: %+v", items)
	}
	if items[0].Payload["DDR1_Min"] != float64(1) || items[0].Payload["DDR1_Sec"] != 30.5 {
		t.Errorf("ddr payload = %v", items[0].Payload)
	}
	if items[1].Payload["Title"] != "Hello" {
		t.Errorf("root payload = %v", items[1].Payload)
	}
}

func TestPush_TimerCommandPayload(t *testing.T) {
	t.Parallel()

	f := &fakeSingular{}
	c := newTestClient(t, f)

	err := c.Push(context.Background(), "tok", []FieldUpdate{
		{FieldID: "DDR1_Timer", Value: map[string]string{"command": "pause"}},
	})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	cmd, ok := f.bodies[0][0].Payload["DDR1_Timer"].(map[string]any)
	if !ok || cmd["command"] != "pause" {
		t.Errorf("timer payload = %#v", f.bodies[0][0].Payload)
	}
}

func TestPush_CachesFieldMap(t *testing.T) {
	t.Parallel()

	f := &fakeSingular{}
	c := newTestClient(t, f)
	ctx := context.Background()
	updates := []FieldUpdate{{FieldID: "DDR1_Min", Value: 0}, {FieldID: "DDR1_Sec", Value: 5.0}}

	for i := 0; i < 3; i++ {
		if err := c.Push(ctx, "tok", updates); err != nil {
			t.Fatalf("Push %d: %v", i, err)
		}
	}
	// Same set in a different order shares the cache entry
	if err := c.Push(ctx, "tok", []FieldUpdate{updates[1], updates[0]}); err != nil {
		t.Fatalf("Push reordered: %v", err)
	}

	f.mu.Lock()
	modelCalls := f.modelCalls
	f.mu.Unlock()
	if modelCalls != 1 {
		t.Errorf("expected model fetched once, got %d", modelCalls)
	}

	c.InvalidateFieldMaps("tok")
	if err := c.Push(ctx, "tok", updates); err != nil {
		t.Fatalf("Push after invalidate: %v", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.modelCalls != 2 {
		t.Errorf("expected model refetch after invalidation, got %d", f.modelCalls)
	}
}

func TestPush_ReclaimsExpiredFieldMaps(t *testing.T) {
	t.Parallel()

	f := &fakeSingular{}
	c := newTestClient(t, f)
	c.fieldMaps = cache.NewLRU[string, map[string]string](fieldMapCapacity, 20*time.Millisecond)
	ctx := context.Background()

	if err := c.Push(ctx, "tok", []FieldUpdate{{FieldID: "DDR1_Min", Value: 1}}); err != nil {
		t.Fatalf("first Push: %v", err)
	}
	if err := c.Push(ctx, "tok", []FieldUpdate{{FieldID: "DDR1_Sec", Value: 2.0}}); err != nil {
		t.Fatalf("second Push: %v", err)
	}
	if _, _, size := c.FieldMapStats(); size != 2 {
		t.Fatalf("expected 2 cached maps, got %d", size)
	}

	time.Sleep(40 * time.Millisecond)
	if err := c.Push(ctx, "tok", []FieldUpdate{{FieldID: "Name", Value: "x"}}); err != nil {
		t.Fatalf("third Push: %v", err)
	}

	hits, misses, size := c.FieldMapStats()
	if size != 1 {
		t.Errorf("expired maps should be reclaimed on fetch, size = %d", size)
	}
	if hits != 0 || misses != 3 {
		t.Errorf("stats = %d hits, %d misses; want 0, 3", hits, misses)
	}

	c.InvalidateFieldMaps("")
	if _, _, size := c.FieldMapStats(); size != 0 {
		t.Errorf("size after invalidate = %d", size)
	}
}

func TestPush_UnknownField(t *testing.T) {
	t.Parallel()

	f := &fakeSingular{}
	c := newTestClient(t, f)

	err := c.Push(context.Background(), "tok", []FieldUpdate{{FieldID: "Missing", Value: 1}})
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.controlCalls != 0 {
		t.Error("no PATCH should be sent for an unknown field")
	}
}

func TestPush_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"unauthorized", http.StatusUnauthorized, IsAuthError},
		{"forbidden", http.StatusForbidden, IsAuthError},
		{"server error", http.StatusBadGateway, func(err error) bool {
			var ne *NetworkError
			return errors.As(err, &ne) && ne.StatusCode == http.StatusBadGateway
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, &fakeSingular{status: tt.status})
			err := c.Push(context.Background(), "tok", []FieldUpdate{{FieldID: "DDR1_Min", Value: 1}})
			if err == nil || !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestPush_NoToken(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, &fakeSingular{})
	if err := c.Push(context.Background(), "", []FieldUpdate{{FieldID: "a", Value: 1}}); !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
	if err := c.Push(context.Background(), "tok", nil); err != nil {
		t.Errorf("empty update list should be a no-op, got %v", err)
	}
}

func TestModel_MalformedJSON(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, &fakeSingular{model: `{"not": "a list"`})
	_, err := c.Model(context.Background(), "tok")

	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestFields_Sorted(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, &fakeSingular{})
	fields, err := c.Fields(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Fields: %v", err)
	}

	want := []Field{
		{ID: "DDR1_Min", Name: "DDR 1 Minutes", Subcomposition: "DDR Timers", Type: "number"},
		{ID: "DDR1_Sec", Name: "DDR 1 Seconds", Subcomposition: "DDR Timers", Type: "number"},
		{ID: "DDR1_Timer", Name: "DDR1_Timer", Subcomposition: "DDR Timers", Type: "timecontrol"},
		{ID: "Title", Name: "Headline", Subcomposition: "Main", Type: "text"},
		{ID: "Name", Name: "Name", Subcomposition: "sub-lower", Type: "unknown"},
	}
	if len(fields) != len(want) {
		t.Fatalf("got %d fields: %+v", len(fields), fields)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("field %d = %+v, want %+v", i, fields[i], want[i])
		}
	}
}

func TestClient_RateLimited(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(&fakeSingular{model: testModel})
	t.Cleanup(server.Close)

	c := NewClient(&config.SingularConfig{
		APIBase:           server.URL + "/apiv2",
		RequestsPerSecond: 1,
		Burst:             1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if _, err := c.Model(ctx, "tok"); err != nil {
		t.Fatalf("first request within burst: %v", err)
	}
	_, err := c.Model(ctx, "tok")
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected limiter wait to fail under the deadline, got %v", err)
	}
}

func TestCircuitBreaker_AuthErrorsDoNotTrip(t *testing.T) {
	t.Parallel()

	c := NewCircuitBreakerClient(newTestClient(t, &fakeSingular{status: http.StatusUnauthorized}))
	for i := 0; i < 15; i++ {
		err := c.Push(context.Background(), "tok", []FieldUpdate{{FieldID: "DDR1_Min", Value: 1}})
		if !IsAuthError(err) {
			t.Fatalf("expected AuthError, got %v", err)
		}
	}
	if c.State() != "closed" {
		t.Errorf("breaker state = %s, want closed", c.State())
	}
}

func TestCircuitBreaker_PassesThrough(t *testing.T) {
	t.Parallel()

	f := &fakeSingular{}
	c := NewCircuitBreakerClient(newTestClient(t, f))

	fields, err := c.Fields(context.Background(), "tok")
	if err != nil || len(fields) == 0 {
		t.Fatalf("Fields = %v, %v", fields, err)
	}
	if err := c.Push(context.Background(), "tok", []FieldUpdate{{FieldID: "Name", Value: "x"}}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	c.InvalidateFieldMaps("")
}
