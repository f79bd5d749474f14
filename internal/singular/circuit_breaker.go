// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package singular

import (
	"context"

	"github.com/tomtom215/timerbridge/internal/breaker"
)

// BreakerName labels the Singular breaker in metrics and logs.
const BreakerName = "singular-api"

// CircuitBreakerClient wraps a Client with circuit breaker protection.
// Auth and configuration errors pass through without counting as failures
// so they keep reaching the operator.
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

// Push sends field updates with circuit breaker protection
func (c *CircuitBreakerClient) Push(ctx context.Context, token string, updates []FieldUpdate) error {
	return c.cb.Do(func() error {
		return c.client.Push(ctx, token, updates)
	})
}

// Model fetches the control app model with circuit breaker protection
func (c *CircuitBreakerClient) Model(ctx context.Context, token string) ([]Composition, error) {
	return breaker.Run(c.cb, func() ([]Composition, error) {
		return c.client.Model(ctx, token)
	})
}

// Fields lists control app fields with circuit breaker protection
func (c *CircuitBreakerClient) Fields(ctx context.Context, token string) ([]Field, error) {
	return breaker.Run(c.cb, func() ([]Field, error) {
		return c.client.Fields(ctx, token)
	})
}

// InvalidateFieldMaps is local and bypasses the breaker.
func (c *CircuitBreakerClient) InvalidateFieldMaps(token string) {
	c.client.InvalidateFieldMaps(token)
}
