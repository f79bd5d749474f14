// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

/*
client.go - TriCaster REST API Client

Reads DDR clip metadata from the TriCaster dictionary endpoint, tests the
connection through /v1/version and posts shortcut commands. Every request
carries basic auth when credentials are set and is bounded by the configured
timeout.
*/

package tricaster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/timerbridge/internal/config"
	"github.com/tomtom215/timerbridge/internal/logging"
	"github.com/tomtom215/timerbridge/internal/metrics"
	"github.com/tomtom215/timerbridge/internal/timecode"
)

// Dictionary keys searched for DDR timecodes, in order.
var timecodeKeys = []string{"ddr_timecode", "timecode"}

// InfoChannels is how many DDRs DDRInfo reports.
const InfoChannels = 4

const maxBodyBytes = 1 << 20

// Client defines the TriCaster operations used by the sync engine and API.
// Both HTTPClient and CircuitBreakerClient implement this interface.
type Client interface {
	FetchDuration(ctx context.Context, channel int) (*DurationSample, error)
	Version(ctx context.Context) (string, error)
	DDRInfo(ctx context.Context) (map[string]DDRInfo, error)
	Tally(ctx context.Context) (*Tally, error)
	Dictionary(ctx context.Context, key string) (string, error)
	Shortcut(ctx context.Context, name string, params map[string]string) error
}

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)

// DurationSample is one fetch of a DDR's clip length.
type DurationSample struct {
	Channel      int       `json:"channel"`
	TotalSeconds float64   `json:"total_seconds"`
	FrameRate    float64   `json:"frame_rate"` // 0 when the server did not report one
	FetchedAt    time.Time `json:"fetched_at"`
}

// HTTPClient talks to one TriCaster over HTTP.
type HTTPClient struct {
	enabled    bool
	baseURL    string
	user       string
	password   string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a TriCaster client from configuration.
func NewClient(cfg *config.TriCasterConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 6 * time.Second
	}

	return &HTTPClient{
		enabled:  cfg.Enabled,
		baseURL:  cfg.BaseURL(),
		user:     cfg.User,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

// FetchDuration returns the loaded clip length for a DDR.
//
// Outcomes:
//   - a sample when the duration is present (zero is a valid duration)
//   - ErrNotLoaded when the server answers but the DDR has no clip
//   - a timecode.ParseError when the duration string is malformed
//   - *NetworkError when no dictionary key produced a readable document
func (c *HTTPClient) FetchDuration(ctx context.Context, channel int) (*DurationSample, error) {
	var lastErr, parseErr error
	answered := false

	for _, key := range timecodeKeys {
		root, err := c.dictionaryDocument(ctx, key)
		if err != nil {
			if !tryNextKey(err) {
				return nil, err
			}
			lastErr = err
			continue
		}
		answered = true

		el := root.findDDR(channel)
		if el == nil {
			continue
		}

		// A malformed value under one key still lets the next key answer.
		total, ok, err := durationOf(el)
		if err != nil {
			parseErr = fmt.Errorf("tricaster ddr%d: %w", channel, err)
			continue
		}
		if !ok {
			continue
		}

		return &DurationSample{
			Channel:      channel,
			TotalSeconds: total,
			FrameRate:    frameRateOf(el),
			FetchedAt:    c.now(),
		}, nil
	}

	if parseErr != nil {
		return nil, parseErr
	}
	if !answered && lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNotLoaded
}

// durationOf reads file_duration|duration, falling back to
// elapsed + remaining. ok is false when the element carries neither.
func durationOf(el *node) (float64, bool, error) {
	if raw := el.attr("file_duration", "duration"); raw != "" {
		total, err := timecode.Parse(raw)
		if err != nil {
			return 0, false, err
		}
		return total, true, nil
	}

	elapsed := el.attr("clip_seconds_elapsed")
	remaining := el.attr("clip_seconds_remaining")
	if elapsed == "" || remaining == "" {
		return 0, false, nil
	}
	e, err := timecode.Parse(elapsed)
	if err != nil {
		return 0, false, err
	}
	r, err := timecode.Parse(remaining)
	if err != nil {
		return 0, false, err
	}
	return e + r, true, nil
}

// frameRateOf returns clip_framerate, or 0 if absent or unparseable.
func frameRateOf(el *node) float64 {
	raw := el.attr("clip_framerate")
	if raw == "" {
		return 0
	}
	fps, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || fps <= 0 {
		logging.Debug().Str("clip_framerate", raw).Msg("Ignoring unusable TriCaster frame rate")
		return 0
	}
	return fps
}

// Version returns the /v1/version response text.
func (c *HTTPClient) Version(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodGet, "version", "/v1/version", "")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// DDRInfo returns raw clip metadata for DDRs 1 through InfoChannels.
// DDRs absent from the dictionary are omitted.
func (c *HTTPClient) DDRInfo(ctx context.Context) (map[string]DDRInfo, error) {
	root, err := c.dictionaryDocument(ctx, timecodeKeys[0])
	if err != nil {
		return nil, err
	}

	info := make(map[string]DDRInfo, InfoChannels)
	for i := 1; i <= InfoChannels; i++ {
		if el := root.findDDR(i); el != nil {
			info["ddr"+strconv.Itoa(i)] = ddrInfoFrom(el)
		}
	}
	return info, nil
}

// Tally returns the sources flagged on program and preview.
func (c *HTTPClient) Tally(ctx context.Context) (*Tally, error) {
	root, err := c.dictionaryDocument(ctx, "tally")
	if err != nil {
		return nil, err
	}
	t := tallyFrom(root)
	return &t, nil
}

// Dictionary returns the raw XML for a dictionary key.
func (c *HTTPClient) Dictionary(ctx context.Context, key string) (string, error) {
	body, err := c.do(ctx, http.MethodGet, "dictionary", "/v1/dictionary?key="+url.QueryEscape(key), "")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Shortcut executes a named shortcut with optional entry parameters.
func (c *HTTPClient) Shortcut(ctx context.Context, name string, params map[string]string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("tricaster: shortcut name is required")
	}
	_, err := c.do(ctx, http.MethodPost, "shortcut", "/v1/shortcut", shortcutXML(name, params))
	return err
}

func (c *HTTPClient) dictionaryDocument(ctx context.Context, key string) (*node, error) {
	body, err := c.do(ctx, http.MethodGet, "dictionary", "/v1/dictionary?key="+url.QueryEscape(key), "")
	if err != nil {
		return nil, err
	}
	root, err := parseDocument(body)
	if err != nil {
		return nil, &NetworkError{Op: "dictionary", Err: &shapeError{err}}
	}
	return root, nil
}

// shapeError marks a NetworkError caused by an unreadable response body.
type shapeError struct{ err error }

func (e *shapeError) Error() string { return e.err.Error() }
func (e *shapeError) Unwrap() error { return e.err }

// tryNextKey reports whether a dictionary failure is specific to the key:
// an error status or an unreadable document. Transport failures and
// configuration errors are not.
func tryNextKey(err error) bool {
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		return false
	}
	var se *shapeError
	return netErr.StatusCode != 0 || errors.As(err, &se)
}

// do performs a request and returns the body of a 2xx response.
func (c *HTTPClient) do(ctx context.Context, method, op, path, xmlBody string) ([]byte, error) {
	if !c.enabled {
		return nil, ErrDisabled
	}
	if c.baseURL == "" {
		return nil, ErrNoHost
	}

	var body io.Reader = http.NoBody
	if xmlBody != "" {
		body = strings.NewReader(xmlBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	req.Close = true
	req.Header.Set("Connection", "close")
	req.Header.Set("Accept", "application/xml")
	if xmlBody != "" {
		req.Header.Set("Content-Type", "text/xml")
	}
	if c.user != "" && c.password != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.VideoServerRequestDuration.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.VideoServerRequestDuration.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if readErr != nil {
			return nil, &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read body")}
		}
		return nil, &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(truncate(string(data), 200))}
	}
	if readErr != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("failed to read body: %w", readErr)}
	}

	return data, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
