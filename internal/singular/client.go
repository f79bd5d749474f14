// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

/*
client.go - Singular Control App API Client

Pushes field values to a Singular control app. The control API addresses
fields by subcomposition, so the client resolves field ids against the app
model and caches the result per token and field set.
*/

package singular

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/timerbridge/internal/cache"
	"github.com/tomtom215/timerbridge/internal/config"
	"github.com/tomtom215/timerbridge/internal/metrics"
)

const (
	fieldMapCapacity = 128
	maxBodyBytes     = 4 << 20
)

// Client defines the Singular operations used by the sync engine and API.
// Both HTTPClient and CircuitBreakerClient implement this interface.
type Client interface {
	Push(ctx context.Context, token string, updates []FieldUpdate) error
	Model(ctx context.Context, token string) ([]Composition, error)
	Fields(ctx context.Context, token string) ([]Field, error)
	InvalidateFieldMaps(token string)
}

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)

// HTTPClient talks to the Singular control API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter // nil disables pacing
	fieldMaps  *cache.LRU[string, map[string]string]
}

// NewClient creates a Singular client from configuration.
func NewClient(cfg *config.SingularConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &HTTPClient{
		baseURL: strings.TrimSuffix(cfg.APIBase, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:   limiter,
		fieldMaps: cache.NewLRU[string, map[string]string](fieldMapCapacity, cfg.FieldMapTTL),
	}
}

// Push sends all updates in one PATCH, grouped by subcomposition.
func (c *HTTPClient) Push(ctx context.Context, token string, updates []FieldUpdate) error {
	if token == "" {
		return ErrNoToken
	}
	if len(updates) == 0 {
		return nil
	}

	fieldIDs := make([]string, 0, len(updates))
	for _, u := range updates {
		fieldIDs = append(fieldIDs, u.FieldID)
	}

	mapping, err := c.resolveFields(ctx, token, fieldIDs)
	if err != nil {
		return err
	}

	body, err := json.Marshal(groupUpdates(updates, mapping))
	if err != nil {
		return fmt.Errorf("singular: encode control body: %w", err)
	}

	_, err = c.do(ctx, http.MethodPatch, "control", c.appURL(token, "control"), body)
	return err
}

// Model fetches the control app model.
func (c *HTTPClient) Model(ctx context.Context, token string) ([]Composition, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	data, err := c.do(ctx, http.MethodGet, "model", c.appURL(token, "model"), nil)
	if err != nil {
		return nil, err
	}

	var comps []Composition
	if err := json.Unmarshal(data, &comps); err != nil {
		return nil, &NetworkError{Op: "model", Err: fmt.Errorf("failed to decode model: %w", err)}
	}
	return comps, nil
}

// Fields lists the app's fields sorted by subcomposition then name.
func (c *HTTPClient) Fields(ctx context.Context, token string) ([]Field, error) {
	comps, err := c.Model(ctx, token)
	if err != nil {
		return nil, err
	}
	return listFields(comps), nil
}

// InvalidateFieldMaps drops cached field maps for token, or all when token is "".
func (c *HTTPClient) InvalidateFieldMaps(token string) {
	if token == "" {
		c.fieldMaps.Clear()
	} else {
		prefix := token + ":"
		c.fieldMaps.RemoveFunc(func(k string) bool { return strings.HasPrefix(k, prefix) })
	}
	c.recordFieldMapSize()
}

// FieldMapStats reports field-map cache hits, misses and live entries.
func (c *HTTPClient) FieldMapStats() (hits, misses int64, size int) {
	return c.fieldMaps.Stats()
}

func (c *HTTPClient) recordFieldMapSize() {
	_, _, size := c.fieldMaps.Stats()
	metrics.FieldMapCacheEntries.Set(float64(size))
}

// resolveFields returns field -> subcomposition for fieldIDs. Only
// complete maps are cached so a field added later is picked up.
func (c *HTTPClient) resolveFields(ctx context.Context, token string, fieldIDs []string) (map[string]string, error) {
	key := fieldMapKey(token, fieldIDs)
	if mapping, ok := c.fieldMaps.Get(key); ok {
		metrics.FieldMapCacheHits.Inc()
		return mapping, nil
	}
	metrics.FieldMapCacheMisses.Inc()

	comps, err := c.Model(ctx, token)
	if err != nil {
		return nil, err
	}

	mapping := fieldMap(comps, fieldIDs)
	for _, id := range fieldIDs {
		if _, ok := mapping[id]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, id)
		}
	}

	// Expired maps are only reclaimed here, on a model fetch.
	c.fieldMaps.CleanupExpired()
	c.fieldMaps.Add(key, mapping)
	c.recordFieldMapSize()
	return mapping, nil
}

func (c *HTTPClient) appURL(token, resource string) string {
	return c.baseURL + "/controlapps/" + url.PathEscape(token) + "/" + resource
}

// do performs a request and returns the body of a 2xx response.
func (c *HTTPClient) do(ctx context.Context, method, op, target string, payload []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &NetworkError{Op: op, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.GraphicsRequestDuration.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.GraphicsRequestDuration.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{Op: op, StatusCode: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		if readErr != nil {
			return nil, &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: errors.New("failed to read body")}
		}
		return nil, &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(truncate(string(data), 200))}
	case readErr != nil:
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
