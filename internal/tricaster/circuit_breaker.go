// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package tricaster

import (
	"context"

	"github.com/tomtom215/timerbridge/internal/breaker"
)

// BreakerName labels the TriCaster breaker in metrics and logs.
const BreakerName = "tricaster-api"

// CircuitBreakerClient wraps a Client with circuit breaker protection.
// NotLoaded, timecode parse errors and a disabled module pass through
// without counting as failures.
type CircuitBreakerClient struct {
	client Client
	cb     *breaker.Breaker
}

// Ensure CircuitBreakerClient implements Client
var _ Client = (*CircuitBreakerClient)(nil)

// NewCircuitBreakerClient wraps client with the default breaker settings.
func NewCircuitBreakerClient(client Client) *CircuitBreakerClient {
	return &CircuitBreakerClient{
		client: client,
		cb:     breaker.New(BreakerName, breaker.Settings{IsSuccessful: IsExpected}),
	}
}

// State returns the breaker state name.
func (c *CircuitBreakerClient) State() string { return c.cb.State() }

// FetchDuration fetches a DDR duration with circuit breaker protection
func (c *CircuitBreakerClient) FetchDuration(ctx context.Context, channel int) (*DurationSample, error) {
	return breaker.Run(c.cb, func() (*DurationSample, error) {
		return c.client.FetchDuration(ctx, channel)
	})
}

// Version tests the connection with circuit breaker protection
func (c *CircuitBreakerClient) Version(ctx context.Context) (string, error) {
	return breaker.Run(c.cb, func() (string, error) {
		return c.client.Version(ctx)
	})
}

// DDRInfo retrieves DDR metadata with circuit breaker protection
func (c *CircuitBreakerClient) DDRInfo(ctx context.Context) (map[string]DDRInfo, error) {
	return breaker.Run(c.cb, func() (map[string]DDRInfo, error) {
		return c.client.DDRInfo(ctx)
	})
}

// Tally retrieves tally state with circuit breaker protection
func (c *CircuitBreakerClient) Tally(ctx context.Context) (*Tally, error) {
	return breaker.Run(c.cb, func() (*Tally, error) {
		return c.client.Tally(ctx)
	})
}

// Dictionary retrieves a raw dictionary with circuit breaker protection
func (c *CircuitBreakerClient) Dictionary(ctx context.Context, key string) (string, error) {
	return breaker.Run(c.cb, func() (string, error) {
		return c.client.Dictionary(ctx, key)
	})
}

// Shortcut executes a shortcut with circuit breaker protection
func (c *CircuitBreakerClient) Shortcut(ctx context.Context, name string, params map[string]string) error {
	return c.cb.Do(func() error {
		return c.client.Shortcut(ctx, name, params)
	})
}
