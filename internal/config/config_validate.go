// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/timerbridge/internal/timecode"
)

// Auto-sync interval bounds in seconds.
const (
	MinAutoSyncInterval = 2
	MaxAutoSyncInterval = 10
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateTriCaster(); err != nil {
		return err
	}

	if err := c.validateSingular(); err != nil {
		return err
	}

	if err := c.validateTimerSync(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateTriCaster only checks the host when the module is enabled.
func (c *Config) validateTriCaster() error {
	if !c.TriCaster.Enabled {
		return nil
	}
	if strings.TrimSpace(c.TriCaster.Host) == "" {
		return fmt.Errorf("TRICASTER_HOST is required when TRICASTER_ENABLED=true")
	}
	if err := validateHTTPURL(c.TriCaster.BaseURL(), "TRICASTER_HOST"); err != nil {
		return fmt.Errorf("TRICASTER_HOST is invalid: %w", err)
	}
	if c.TriCaster.Timeout <= 0 || c.TriCaster.Timeout > time.Minute {
		return fmt.Errorf("tricaster.timeout must be between 0 and 1m, got %v", c.TriCaster.Timeout)
	}
	return nil
}

func (c *Config) validateSingular() error {
	if err := validateHTTPBase(c.Singular.APIBase, "SINGULAR_API_BASE"); err != nil {
		return fmt.Errorf("SINGULAR_API_BASE is invalid: %w", err)
	}
	if c.Singular.Timeout <= 0 || c.Singular.Timeout > time.Minute {
		return fmt.Errorf("singular.timeout must be between 0 and 1m, got %v", c.Singular.Timeout)
	}
	if c.Singular.RequestsPerSecond < 0 {
		return fmt.Errorf("singular.requests_per_second must not be negative")
	}
	if c.Singular.RequestsPerSecond > 0 && c.Singular.Burst < 1 {
		return fmt.Errorf("singular.burst must be at least 1 when pacing is enabled")
	}
	return nil
}

func (c *Config) validateTimerSync() error {
	ts := &c.TimerSync
	if _, err := timecode.ParseRoundingPolicy(ts.RoundMode); err != nil {
		return fmt.Errorf("TIMER_ROUND_MODE is invalid: %w", err)
	}
	if ts.AutoSyncInterval < MinAutoSyncInterval || ts.AutoSyncInterval > MaxAutoSyncInterval {
		return fmt.Errorf("AUTO_SYNC_INTERVAL must be between %d and %d seconds, got %d",
			MinAutoSyncInterval, MaxAutoSyncInterval, ts.AutoSyncInterval)
	}
	if ts.AuthFailureThreshold < 1 {
		return fmt.Errorf("timersync.auth_failure_threshold must be at least 1")
	}

	for key, fields := range ts.Channels {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || id < 1 {
			return fmt.Errorf("timersync.channels key %q must be a DDR number starting at 1", key)
		}
		if fields.Min == "" || fields.Sec == "" {
			return fmt.Errorf("timersync.channels.%s requires both min and sec field ids", key)
		}
	}

	if ts.AutoSync && len(ts.Channels) > 0 && c.Singular.Token == "" {
		return fmt.Errorf("SINGULAR_TOKEN is required when auto sync is enabled")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQS must be at least 1")
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console; got %q", c.Logging.Format)
	}
	return nil
}
