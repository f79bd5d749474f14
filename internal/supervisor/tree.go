// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	// Default: 5
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay in seconds.
	// Default: 30
	FailureDecay float64

	// FailureBackoff is the duration to wait when threshold is exceeded.
	// Default: 15s
	FailureBackoff time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns suture's documented defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// SupervisorTree is the process supervision hierarchy:
//   - sync: the timer sync engine and the config file watcher
//   - messaging: websocket hub and event bus
//   - api: HTTP server
//
// A crashed event bus restarts without interrupting auto-sync, and the
// control surface keeps answering while the engine restarts.
type SupervisorTree struct {
	root      *suture.Supervisor
	sync      *suture.Supervisor
	messaging *suture.Supervisor
	api       *suture.Supervisor
	logger    *slog.Logger
	config    TreeConfig

	mu        sync.Mutex
	installed map[string]suture.ServiceToken
}

// Services are the process's long-running parts. Engine and HTTP are
// required; a nil ConfigWatch, Hub or Bus is skipped.
type Services struct {
	Engine      suture.Service
	ConfigWatch suture.Service
	Hub         suture.Service
	Bus         suture.Service
	HTTP        suture.Service
}

// ErrMissingService is returned by Install when a required service is nil.
var ErrMissingService = errors.New("supervisor: required service missing")

// NewSupervisorTree creates a tree; zero config values take the defaults.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) (*SupervisorTree, error) {
	defaults := DefaultTreeConfig()
	if config.FailureThreshold == 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = defaults.FailureDecay
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = defaults.FailureBackoff
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}

	// MustHook has a pointer receiver.
	handler := &sutureslog.Handler{Logger: logger}

	rootSpec := suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	// Children inherit the EventHook when added to the root.
	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	root := suture.New("timerbridge", rootSpec)
	syncLayer := suture.New("sync-layer", childSpec)
	messaging := suture.New("messaging-layer", childSpec)
	api := suture.New("api-layer", childSpec)

	root.Add(syncLayer)
	root.Add(messaging)
	root.Add(api)

	return &SupervisorTree{
		root:      root,
		sync:      syncLayer,
		messaging: messaging,
		api:       api,
		logger:    logger,
		config:    config,
		installed: make(map[string]suture.ServiceToken),
	}, nil
}

// Install places each service in its layer: engine and config watcher under
// sync, hub and event bus under messaging, HTTP under api. It can be called
// once per tree.
func (t *SupervisorTree) Install(s Services) error {
	if s.Engine == nil {
		return fmt.Errorf("%w: engine", ErrMissingService)
	}
	if s.HTTP == nil {
		return fmt.Errorf("%w: http server", ErrMissingService)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.installed) > 0 {
		return errors.New("supervisor: services already installed")
	}

	t.installed["engine"] = t.AddSyncService(s.Engine)
	if s.ConfigWatch != nil {
		t.installed["config-watch"] = t.AddSyncService(s.ConfigWatch)
	}
	if s.Hub != nil {
		t.installed["websocket-hub"] = t.AddMessagingService(s.Hub)
	}
	if s.Bus != nil {
		t.installed["event-bus"] = t.AddMessagingService(s.Bus)
	}
	t.installed["http-server"] = t.AddAPIService(s.HTTP)

	t.logger.Info("supervisor services installed", "services", len(t.installed))
	return nil
}

// Installed lists the slots filled by Install, sorted.
func (t *SupervisorTree) Installed() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.installed))
	for name := range t.installed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Root returns the root supervisor.
func (t *SupervisorTree) Root() *suture.Supervisor {
	return t.root
}

// AddSyncService adds the engine or the config watcher.
func (t *SupervisorTree) AddSyncService(svc suture.Service) suture.ServiceToken {
	return t.sync.Add(svc)
}

// AddMessagingService adds the websocket hub or the event bus.
func (t *SupervisorTree) AddMessagingService(svc suture.Service) suture.ServiceToken {
	return t.messaging.Add(svc)
}

// AddAPIService adds the HTTP server.
func (t *SupervisorTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve runs the tree until ctx is canceled.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine. The channel receives the
// result when it stops.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that missed the shutdown timeout.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
