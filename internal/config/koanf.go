// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/timerbridge/config.yaml",
	"/etc/timerbridge/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultSingularAPIBase is the public Singular control API root.
const DefaultSingularAPIBase = "https://app.singular.live/apiv2"

func defaultConfig() *Config {
	return &Config{
		TriCaster: TriCasterConfig{
			Enabled: false,
			User:    "admin",
			Timeout: 6 * time.Second,
		},
		Singular: SingularConfig{
			APIBase:           DefaultSingularAPIBase,
			Timeout:           10 * time.Second,
			FieldMapTTL:       30 * time.Minute,
			RequestsPerSecond: 10,
			Burst:             5,
		},
		TimerSync: TimerSyncConfig{
			RoundMode:            "frames",
			AutoSync:             false,
			AutoSyncInterval:     3,
			AuthFailureThreshold: 3,
		},
		Server: ServerConfig{
			Port:    3113,
			Host:    "0.0.0.0",
			Timeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration with layered sources:
//  1. Defaults
//  2. Optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment variables
//
// Precedence is ENV > File > Defaults. The result is validated.
func Load() (*Config, error) {
	return LoadFile(FindConfigFile())
}

// LoadFile is Load with an explicit config file path; "" skips the file layer.
func LoadFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// FindConfigFile returns the first existing config file, or "".
func FindConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"tricaster_enabled":  "tricaster.enabled",
	"enable_tricaster":   "tricaster.enabled",
	"tricaster_host":     "tricaster.host",
	"tricaster_user":     "tricaster.user",
	"tricaster_pass":     "tricaster.password",
	"tricaster_password": "tricaster.password",
	"tricaster_timeout":  "tricaster.timeout",

	"singular_api_base":            "singular.api_base",
	"singular_token":               "singular.token",
	"tricaster_singular_token":     "singular.token",
	"singular_timeout":             "singular.timeout",
	"singular_field_map_ttl":       "singular.field_map_ttl",
	"singular_requests_per_second": "singular.requests_per_second",
	"singular_burst":               "singular.burst",

	"timer_round_mode":             "timersync.round_mode",
	"tricaster_round_mode":         "timersync.round_mode",
	"auto_sync":                    "timersync.auto_sync",
	"auto_sync_interval":           "timersync.auto_sync_interval",
	"auth_failure_threshold":       "timersync.auth_failure_threshold",
	"tricaster_auto_sync":          "timersync.auto_sync",
	"tricaster_auto_sync_interval": "timersync.auto_sync_interval",

	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",

	"rate_limit_reqs":    "security.rate_limit_reqs",
	"rate_limit_window":  "security.rate_limit_window",
	"disable_rate_limit": "security.rate_limit_disabled",
	"cors_origins":       "security.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - TRICASTER_HOST -> tricaster.host
//   - SINGULAR_TOKEN -> singular.token
//   - AUTO_SYNC_INTERVAL -> timersync.auto_sync_interval
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// WatchConfigFile calls callback whenever the file at path changes.
// The caller is responsible for reloading and applying the new config.
func WatchConfigFile(path string, callback func()) (*file.File, error) {
	provider := file.Provider(path)
	err := provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	return provider, nil
}
