// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/timerbridge/internal/config"
	"github.com/tomtom215/timerbridge/internal/logging"
	"github.com/tomtom215/timerbridge/internal/timersync"
)

// Reconfigurer accepts a replacement timer sync mapping.
// Satisfied by *timersync.Engine.
type Reconfigurer interface {
	Reconfigure(m timersync.Mapping)
}

// ConfigWatchService reloads the config file when it changes and applies
// the timer sync mapping to the engine. An invalid file is logged and the
// running mapping is kept.
type ConfigWatchService struct {
	path     string
	target   Reconfigurer
	debounce time.Duration

	// load and watch are replaced in tests
	load  func(path string) (*config.Config, error)
	watch func(path string, onChange func()) (stop func() error, err error)
}

// NewConfigWatchService watches path and reconfigures target on change.
func NewConfigWatchService(path string, target Reconfigurer) *ConfigWatchService {
	return &ConfigWatchService{
		path:     path,
		target:   target,
		debounce: 250 * time.Millisecond,
		load:     config.LoadFile,
		watch:    watchFile,
	}
}

func watchFile(path string, onChange func()) (func() error, error) {
	provider, err := config.WatchConfigFile(path, onChange)
	if err != nil {
		return nil, err
	}
	return provider.Unwatch, nil
}

// Serve implements suture.Service.
func (s *ConfigWatchService) Serve(ctx context.Context) error {
	changed := make(chan struct{}, 1)
	stop, err := s.watch(s.path, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("config watch: %w", err)
	}
	defer func() { _ = stop() }()

	logger := logging.WithComponent("config-watch")
	logger.Info().Str("path", s.path).Msg("Watching config file")

	// Editors write a file in several steps; wait for the writes to settle.
	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
			settle = time.After(s.debounce)
		case <-settle:
			settle = nil
			s.reload()
		}
	}
}

func (s *ConfigWatchService) reload() {
	logger := logging.WithComponent("config-watch")

	cfg, err := s.load(s.path)
	if err != nil {
		logger.Warn().Err(err).Str("path", s.path).Msg("Config reload rejected, keeping current mapping")
		return
	}
	m, err := timersync.MappingFromConfig(cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("Config reload rejected, keeping current mapping")
		return
	}
	s.target.Reconfigure(m)
	logger.Info().Int("channels", len(m.Channels)).Msg("Timer sync mapping reloaded")
}

func (s *ConfigWatchService) String() string { return "config-watch" }
