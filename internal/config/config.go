// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package config

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	TriCaster TriCasterConfig `koanf:"tricaster"`
	Singular  SingularConfig  `koanf:"singular"`
	TimerSync TimerSyncConfig `koanf:"timersync"`
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// TriCasterConfig holds video server connection settings.
type TriCasterConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Host     string        `koanf:"host"` // host[:port] or http(s) base URL
	User     string        `koanf:"user"`
	Password string        `koanf:"password"`
	Timeout  time.Duration `koanf:"timeout"`
}

// BaseURL returns Host as an http base URL, adding the scheme when missing.
func (t TriCasterConfig) BaseURL() string {
	host := strings.TrimSpace(t.Host)
	if host == "" {
		return ""
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return strings.TrimSuffix(host, "/")
}

// SingularConfig holds graphics-control API settings.
type SingularConfig struct {
	APIBase string        `koanf:"api_base"`
	Token   string        `koanf:"token"` // control app token used for timer sync
	Timeout time.Duration `koanf:"timeout"`

	// FieldMapTTL bounds how long a field-to-subcomposition map is reused
	// before the control app model is fetched again.
	FieldMapTTL time.Duration `koanf:"field_map_ttl"`

	// RequestsPerSecond paces outgoing control requests; 0 disables pacing.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

// TimerSyncConfig holds the DDR-to-timer mapping and scheduling settings.
type TimerSyncConfig struct {
	RoundMode string `koanf:"round_mode"` // "frames" or "none"

	AutoSync         bool `koanf:"auto_sync"`
	AutoSyncInterval int  `koanf:"auto_sync_interval"` // seconds, 2..10

	// AuthFailureThreshold is how many consecutive graphics API auth
	// failures mark the session as failing.
	AuthFailureThreshold int `koanf:"auth_failure_threshold"`

	// Channels maps a DDR number ("1".."N") to its timer fields.
	Channels map[string]ChannelFields `koanf:"channels"`
}

// ChannelFields names the control app fields fed by one DDR.
type ChannelFields struct {
	Min   string `koanf:"min" json:"min"`
	Sec   string `koanf:"sec" json:"sec"`
	Timer string `koanf:"timer" json:"timer,omitempty"`
}

// ChannelIDs returns the configured DDR numbers in ascending order.
// Keys that are not positive integers are skipped; Validate rejects them.
func (t TimerSyncConfig) ChannelIDs() []int {
	ids := make([]int, 0, len(t.Channels))
	for key := range t.Channels {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || id < 1 {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Fields returns the mapping for a DDR number.
func (t TimerSyncConfig) Fields(id int) (ChannelFields, bool) {
	f, ok := t.Channels[strconv.Itoa(id)]
	return f, ok
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port    int           `koanf:"port"`
	Host    string        `koanf:"host"`
	Timeout time.Duration `koanf:"timeout"`
}

// SecurityConfig holds inbound request protection settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
