// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/timerbridge/internal/singular"
	"github.com/tomtom215/timerbridge/internal/timecode"
	"github.com/tomtom215/timerbridge/internal/timersync"
	"github.com/tomtom215/timerbridge/internal/tricaster"
)

type fakeVideo struct {
	mu        sync.Mutex
	samples   map[int]float64
	errs      map[int]error
	versionEr error
	shortcuts []ShortcutResponse
}

func (f *fakeVideo) FetchDuration(_ context.Context, ch int) (*tricaster.DurationSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[ch]; err != nil {
		return nil, err
	}
	total, ok := f.samples[ch]
	if !ok {
		return nil, tricaster.ErrNotLoaded
	}
	return &tricaster.DurationSample{Channel: ch, TotalSeconds: total, FrameRate: 25, FetchedAt: time.Now()}, nil
}

func (f *fakeVideo) Version(context.Context) (string, error) {
	if f.versionEr != nil {
		return "", f.versionEr
	}
	return "TC1-8.2", nil
}

func (f *fakeVideo) DDRInfo(context.Context) (map[string]tricaster.DDRInfo, error) {
	return map[string]tricaster.DDRInfo{"ddr1": {Duration: "00:01:30.00", Playing: true}}, nil
}

func (f *fakeVideo) Tally(context.Context) (*tricaster.Tally, error) {
	return &tricaster.Tally{Program: []string{"input1"}, Preview: []string{"ddr2"}}, nil
}

func (f *fakeVideo) Dictionary(_ context.Context, key string) (string, error) {
	return "<" + key + "/>", nil
}

func (f *fakeVideo) Shortcut(_ context.Context, name string, params map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shortcuts = append(f.shortcuts, ShortcutResponse{Name: name, Params: params})
	return nil
}

type fakeGraphics struct {
	mu      sync.Mutex
	pushes  [][]singular.FieldUpdate
	pushErr error
	fields  []singular.Field
}

func (f *fakeGraphics) Push(_ context.Context, _ string, updates []singular.FieldUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushes = append(f.pushes, updates)
	return nil
}

func (f *fakeGraphics) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushes)
}

func (f *fakeGraphics) Model(context.Context, string) ([]singular.Composition, error) {
	return nil, nil
}

func (f *fakeGraphics) Fields(_ context.Context, token string) ([]singular.Field, error) {
	if token == "bad" {
		return nil, &singular.AuthError{Op: "model", StatusCode: http.StatusUnauthorized}
	}
	return f.fields, nil
}

func (f *fakeGraphics) InvalidateFieldMaps(string) {}

type fakeBreaker string

func (b fakeBreaker) State() string { return string(b) }

type testEnv struct {
	engine   *timersync.Engine
	video    *fakeVideo
	graphics *fakeGraphics
	breakers map[string]StateReporter
	server   http.Handler
}

func newTestEnv(t *testing.T, token string) *testEnv {
	t.Helper()

	video := &fakeVideo{samples: map[int]float64{1: 90, 2: 605.5}, errs: map[int]error{}}
	graphics := &fakeGraphics{fields: []singular.Field{{ID: "ddr1_min", Name: "DDR 1 Min", Subcomposition: "Clock", Type: "text"}}}
	engine := timersync.New(timersync.Settings{
		Mapping: timersync.Mapping{
			Token:    token,
			Policy:   timecode.RoundFrames,
			Channels: map[int]timersync.FieldMapping{
				1: {Minutes: "ddr1_min", Seconds: "ddr1_sec", Timer: "ddr1_timer"},
				2: {Minutes: "ddr2_min", Seconds: "ddr2_sec"},
			},
		},
		Interval:     3,
		RestartDelay: time.Millisecond,
	}, video, graphics)
	t.Cleanup(engine.DisableAutoSync)

	env := &testEnv{
		engine:   engine,
		video:    video,
		graphics: graphics,
		breakers: map[string]StateReporter{"tricaster": fakeBreaker("closed"), "singular": fakeBreaker("closed")},
	}
	env.rebuild(true)
	return env
}

func (env *testEnv) rebuild(tricasterEnabled bool) {
	h := NewHandler(Dependencies{
		Engine:           env.engine,
		Video:            env.video,
		Graphics:         env.graphics,
		Breakers:         env.breakers,
		TriCasterEnabled: tricasterEnabled,
		CORSOrigins:      []string{"http://console.local"},
		Version:          "test",
	})
	env.server = NewRouter(h, NewChiMiddleware(&ChiMiddlewareConfig{RateLimitDisabled: true})).SetupChi()
}

type decoded struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func (env *testEnv) do(t *testing.T, method, path, body string) (int, decoded) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	var out decoded
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: invalid JSON response %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, out
}

func expectError(t *testing.T, status int, resp decoded, wantStatus int, wantCode string) {
	t.Helper()
	if status != wantStatus {
		t.Errorf("status = %d, want %d", status, wantStatus)
	}
	if resp.Success || resp.Error == nil {
		t.Fatalf("expected error response, got %+v", resp)
	}
	if resp.Error.Code != wantCode {
		t.Errorf("code = %s, want %s (%s)", resp.Error.Code, wantCode, resp.Error.Message)
	}
}

func TestSyncChannel(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "tok")

	status, resp := env.do(t, http.MethodPost, "/api/v1/timersync/sync/1", "")
	if status != http.StatusOK || !resp.Success {
		t.Fatalf("status = %d, resp = %+v", status, resp)
	}
	var res timersync.ChannelResult
	if err := json.Unmarshal(resp.Data, &res); err != nil {
		t.Fatal(err)
	}
	if res.Outcome != timersync.OutcomePushed || res.Value == nil || res.Value.Minutes != 1 || res.Value.Seconds != 30 {
		t.Errorf("unexpected result %+v", res)
	}

	// Unchanged value is skipped unless forced
	_, resp = env.do(t, http.MethodPost, "/api/v1/timersync/sync/1", "")
	_ = json.Unmarshal(resp.Data, &res)
	if res.Outcome != timersync.OutcomeSkipped {
		t.Errorf("second sync outcome = %s, want skipped", res.Outcome)
	}
	_, resp = env.do(t, http.MethodPost, "/api/v1/timersync/sync/1?force=true", "")
	_ = json.Unmarshal(resp.Data, &res)
	if res.Outcome != timersync.OutcomePushed {
		t.Errorf("forced sync outcome = %s, want pushed", res.Outcome)
	}
	if got := env.graphics.pushCount(); got != 2 {
		t.Errorf("pushes = %d, want 2", got)
	}
}

func TestSyncChannel_Errors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "tok")

	status, resp := env.do(t, http.MethodPost, "/api/v1/timersync/sync/9", "")
	expectError(t, status, resp, http.StatusNotFound, ErrCodeUnknownChannel)

	status, resp = env.do(t, http.MethodPost, "/api/v1/timersync/sync/abc", "")
	expectError(t, status, resp, http.StatusBadRequest, ErrCodeBadRequest)

	env.video.mu.Lock()
	env.video.errs[2] = &tricaster.NetworkError{Op: "dictionary", Err: errors.New("connection refused")}
	env.video.mu.Unlock()
	status, resp = env.do(t, http.MethodPost, "/api/v1/timersync/sync/2", "")
	expectError(t, status, resp, http.StatusBadGateway, ErrCodeTriCasterError)
	if resp.Error.Details == nil {
		t.Error("failed sync should carry the channel result as details")
	}
}

func TestSyncChannel_NotConfigured(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "")

	status, resp := env.do(t, http.MethodPost, "/api/v1/timersync/sync/1", "")
	expectError(t, status, resp, http.StatusBadRequest, ErrCodeNotConfigured)

	status, resp = env.do(t, http.MethodPost, "/api/v1/timersync/sync", "")
	expectError(t, status, resp, http.StatusBadRequest, ErrCodeNotConfigured)
}

func TestSyncAll(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "tok")
	env.video.mu.Lock()
	delete(env.video.samples, 2)
	env.video.mu.Unlock()

	status, resp := env.do(t, http.MethodPost, "/api/v1/timersync/sync", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var out SyncAllResponse
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != 2 || out.Pushed != 1 || out.Failed != 0 {
		t.Fatalf("unexpected summary %+v", out)
	}
	if out.Results[0].Channel != 1 || out.Results[1].Outcome != timersync.OutcomeNotLoaded {
		t.Errorf("unexpected results %+v", out.Results)
	}
}

func TestAutoSync(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "tok")

	status, resp := env.do(t, http.MethodPost, "/api/v1/timersync/autosync", `{"enabled": true, "interval": 30}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d, resp = %+v", status, resp)
	}
	var st timersync.Status
	if err := json.Unmarshal(resp.Data, &st); err != nil {
		t.Fatal(err)
	}
	if !st.Enabled || st.Interval != timersync.MaxInterval {
		t.Errorf("expected enabled with clamped interval, got %+v", st)
	}

	// Interval omitted keeps the current one
	_, resp = env.do(t, http.MethodPost, "/api/v1/timersync/autosync", `{"enabled": true}`)
	_ = json.Unmarshal(resp.Data, &st)
	if st.Interval != timersync.MaxInterval {
		t.Errorf("interval = %d, want %d", st.Interval, timersync.MaxInterval)
	}

	_, resp = env.do(t, http.MethodPost, "/api/v1/timersync/autosync", `{"enabled": false}`)
	_ = json.Unmarshal(resp.Data, &st)
	if st.Enabled {
		t.Error("expected auto-sync disabled")
	}
}

func TestAutoSync_InvalidBody(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "tok")

	status, resp := env.do(t, http.MethodPost, "/api/v1/timersync/autosync", `{"interval": 5}`)
	expectError(t, status, resp, http.StatusBadRequest, ErrCodeValidationFailed)

	status, resp = env.do(t, http.MethodPost, "/api/v1/timersync/autosync", `{"enabled": true, "bogus": 1}`)
	expectError(t, status, resp, http.StatusBadRequest, ErrCodeBadRequest)

	status, resp = env.do(t, http.MethodPost, "/api/v1/timersync/autosync", "")
	expectError(t, status, resp, http.StatusBadRequest, ErrCodeBadRequest)
}

func TestTimerAction(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "tok")

	status, resp := env.do(t, http.MethodPost, "/api/v1/timersync/timer/1/START", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d, resp = %+v", status, resp)
	}
	if env.graphics.pushCount() != 1 {
		t.Errorf("expected one command push, got %d", env.graphics.pushCount())
	}

	status, resp = env.do(t, http.MethodPost, "/api/v1/timersync/timer/2/pause", "")
	expectError(t, status, resp, http.StatusBadRequest, ErrCodeMissingField)

	status, resp = env.do(t, http.MethodPost, "/api/v1/timersync/timer/1/rewind", "")
	expectError(t, status, resp, http.StatusBadRequest, ErrCodeValidationFailed)

	env.graphics.mu.Lock()
	env.graphics.pushErr = &singular.AuthError{Op: "control", StatusCode: http.StatusForbidden}
	env.graphics.mu.Unlock()
	status, resp = env.do(t, http.MethodPost, "/api/v1/timersync/timer/1/reset", "")
	expectError(t, status, resp, http.StatusBadGateway, ErrCodeSingularAuth)
}

func TestRestartAll(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "tok")

	status, resp := env.do(t, http.MethodPost, "/api/v1/timersync/timer/all/restart", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d, resp = %+v", status, resp)
	}
	var out RestartAllResponse
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != 2 || out.Failed != 1 {
		t.Errorf("expected one restart and one missing timer field, got %+v", out)
	}
	// pause and reset for channel 1
	if env.graphics.pushCount() != 2 {
		t.Errorf("pushes = %d, want 2", env.graphics.pushCount())
	}
}

func TestConfig_GetAndPut(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "secret-token")

	status, resp := env.do(t, http.MethodGet, "/api/v1/timersync/config", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if strings.Contains(string(resp.Data), "secret-token") {
		t.Error("config response must not echo the token")
	}
	var cfg TimerSyncConfigResponse
	if err := json.Unmarshal(resp.Data, &cfg); err != nil {
		t.Fatal(err)
	}
	if !cfg.TokenConfigured || cfg.RoundMode != "frames" || len(cfg.Channels) != 2 {
		t.Errorf("unexpected config %+v", cfg)
	}

	body := `{"round_mode": "none", "channels": {"3": {"min": "m3", "sec": "s3", "timer": "t3"}}}`
	status, resp = env.do(t, http.MethodPut, "/api/v1/timersync/config", body)
	if status != http.StatusOK {
		t.Fatalf("put status = %d, resp = %+v", status, resp)
	}
	_ = json.Unmarshal(resp.Data, &cfg)
	if cfg.RoundMode != "none" || len(cfg.Channels) != 1 || cfg.Channels["3"].Timer != "t3" {
		t.Errorf("unexpected config after put %+v", cfg)
	}
	if m := env.engine.Mapping(); m.Token != "secret-token" {
		t.Error("omitted token should be kept")
	}

	status, resp = env.do(t, http.MethodPut, "/api/v1/timersync/config", `{"token": "", "channels": {}}`)
	if status != http.StatusOK {
		t.Fatalf("clear status = %d", status)
	}
	_ = json.Unmarshal(resp.Data, &cfg)
	if cfg.TokenConfigured {
		t.Error("empty token should clear it")
	}
}

func TestConfig_PutInvalid(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "tok")

	tests := []struct {
		name string
		body string
	}{
		{"non numeric key", `{"channels": {"one": {"min": "a", "sec": "b"}}}`},
		{"zero key", `{"channels": {"0": {"min": "a", "sec": "b"}}}`},
		{"duplicate key", `{"channels": {"1": {"min": "a", "sec": "b"}, "01": {"min": "c", "sec": "d"}}}`},
		{"missing sec", `{"channels": {"1": {"min": "a"}}}`},
		{"bad round mode", `{"round_mode": "ceil", "channels": {}}`},
		{"missing channels", `{"round_mode": "none"}`},
	}
	for _, tt := range tests {
		status, resp := env.do(t, http.MethodPut, "/api/v1/timersync/config", tt.body)
		if status != http.StatusBadRequest || resp.Error == nil || resp.Error.Code != ErrCodeValidationFailed {
			t.Errorf("%s: status = %d, resp = %+v", tt.name, status, resp.Error)
		}
	}
	if len(env.engine.Mapping().Channels) != 2 {
		t.Error("rejected config must not change the mapping")
	}
}

func TestTriCasterPassthroughs(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "tok")

	status, resp := env.do(t, http.MethodGet, "/api/v1/tricaster/test", "")
	if status != http.StatusOK || !strings.Contains(string(resp.Data), "TC1-8.2") {
		t.Errorf("test: status = %d, data = %s", status, resp.Data)
	}
	status, resp = env.do(t, http.MethodGet, "/api/v1/tricaster/ddr", "")
	if status != http.StatusOK || !strings.Contains(string(resp.Data), "ddr1") {
		t.Errorf("ddr: status = %d, data = %s", status, resp.Data)
	}
	status, resp = env.do(t, http.MethodGet, "/api/v1/tricaster/tally", "")
	if status != http.StatusOK || !strings.Contains(string(resp.Data), "input1") {
		t.Errorf("tally: status = %d, data = %s", status, resp.Data)
	}
	status, resp = env.do(t, http.MethodGet, "/api/v1/tricaster/dictionary/tally", "")
	if status != http.StatusOK || !strings.Contains(string(resp.Data), "<tally/>") {
		t.Errorf("dictionary: status = %d, data = %s", status, resp.Data)
	}
}

func TestTriCasterShortcut(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "tok")

	status, _ := env.do(t, http.MethodGet, "/api/v1/tricaster/shortcut/ddr1_play?value=1", "")
	if status != http.StatusOK {
		t.Fatalf("get status = %d", status)
	}
	status, _ = env.do(t, http.MethodPost, "/api/v1/tricaster/shortcut/record_toggle", "")
	if status != http.StatusOK {
		t.Fatalf("empty post status = %d", status)
	}
	status, _ = env.do(t, http.MethodPost, "/api/v1/tricaster/shortcut/main_a_row_named_input", `{"params": {"value": "ddr1"}}`)
	if status != http.StatusOK {
		t.Fatalf("post status = %d", status)
	}

	env.video.mu.Lock()
	got := env.video.shortcuts
	env.video.mu.Unlock()
	if len(got) != 3 {
		t.Fatalf("shortcuts = %+v", got)
	}
	if got[0].Name != "ddr1_play" || got[0].Params["value"] != "1" {
		t.Errorf("unexpected GET shortcut %+v", got[0])
	}
	if got[1].Params != nil {
		t.Errorf("empty body should send no params, got %+v", got[1].Params)
	}
	if got[2].Params["value"] != "ddr1" {
		t.Errorf("unexpected POST shortcut %+v", got[2])
	}

	status, resp := env.do(t, http.MethodGet, "/api/v1/tricaster/shortcut/bad%20name", "")
	expectError(t, status, resp, http.StatusBadRequest, ErrCodeValidationFailed)
}

func TestTriCasterDisabled(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "tok")
	env.video.versionEr = tricaster.ErrDisabled

	status, resp := env.do(t, http.MethodGet, "/api/v1/tricaster/test", "")
	expectError(t, status, resp, http.StatusServiceUnavailable, ErrCodeTriCasterDisabled)
}

func TestSingularFields(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "tok")

	status, resp := env.do(t, http.MethodGet, "/api/v1/singular/fields", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var out FieldsResponse
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Count != 1 || out.Fields[0].ID != "ddr1_min" {
		t.Errorf("unexpected fields %+v", out)
	}

	status, resp = env.do(t, http.MethodGet, "/api/v1/singular/fields?token=bad", "")
	expectError(t, status, resp, http.StatusBadGateway, ErrCodeSingularAuth)
}

func TestSingularFields_NoToken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "")

	status, resp := env.do(t, http.MethodGet, "/api/v1/singular/fields", "")
	expectError(t, status, resp, http.StatusBadRequest, ErrCodeNotConfigured)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "tok")

	status, resp := env.do(t, http.MethodGet, "/api/v1/health", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var health HealthStatus
	if err := json.Unmarshal(resp.Data, &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "healthy" || health.Version != "test" || health.Breakers["tricaster"] != "closed" {
		t.Errorf("unexpected health %+v", health)
	}

	status, _ = env.do(t, http.MethodGet, "/api/v1/health/live", "")
	if status != http.StatusOK {
		t.Errorf("live status = %d", status)
	}
	status, _ = env.do(t, http.MethodGet, "/api/v1/health/ready", "")
	if status != http.StatusOK {
		t.Errorf("ready status = %d", status)
	}
}

func TestHealth_BreakerOpen(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "tok")
	env.breakers["tricaster"] = fakeBreaker("open")

	status, resp := env.do(t, http.MethodGet, "/api/v1/health/ready", "")
	expectError(t, status, resp, http.StatusServiceUnavailable, ErrCodeServiceUnavailable)

	_, resp = env.do(t, http.MethodGet, "/api/v1/health", "")
	if !strings.Contains(string(resp.Data), `"degraded"`) {
		t.Errorf("expected degraded health, got %s", resp.Data)
	}

	// Readiness ignores the video server breaker when the module is off
	env.rebuild(false)
	status, _ = env.do(t, http.MethodGet, "/api/v1/health/ready", "")
	if status != http.StatusOK {
		t.Errorf("ready status with module disabled = %d", status)
	}
}

func TestRouter_NotFoundAndMethod(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "tok")

	status, resp := env.do(t, http.MethodGet, "/api/v1/nope", "")
	expectError(t, status, resp, http.StatusNotFound, ErrCodeNotFound)

	status, resp = env.do(t, http.MethodGet, "/api/v1/timersync/sync", "")
	expectError(t, status, resp, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed)
}

func TestRouter_SecurityHeadersAndRequestID(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "tok")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/timersync/status", nil)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing X-Content-Type-Options")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("API responses must not be cached")
	}
}

func TestRouter_RateLimit(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "tok")
	h := NewHandler(Dependencies{Engine: env.engine, Video: env.video, Graphics: env.graphics})
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitRequests = 2
	server := NewRouter(h, NewChiMiddleware(cfg)).SetupChi()

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/singular/fields", nil)
		req.RemoteAddr = "10.0.0.9:5000"
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", last)
	}
}

func TestCheckWebSocketOrigin(t *testing.T) {
	t.Parallel()
	h := NewHandler(Dependencies{CORSOrigins: []string{"http://console.local"}})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://console.local", true},
		{"http://evil.example", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := h.checkWebSocketOrigin(req); got != tt.want {
			t.Errorf("origin %q: got %v, want %v", tt.origin, got, tt.want)
		}
	}

	wildcard := NewHandler(Dependencies{CORSOrigins: []string{"*"}})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil)
	req.Header.Set("Origin", "http://anything")
	if !wildcard.checkWebSocketOrigin(req) {
		t.Error("wildcard should allow any origin")
	}
}

func TestWebSocket_NoHub(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "tok")

	status, resp := env.do(t, http.MethodGet, "/api/v1/ws", "")
	expectError(t, status, resp, http.StatusServiceUnavailable, ErrCodeServiceUnavailable)
}
