// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/timerbridge/internal/api"
	"github.com/tomtom215/timerbridge/internal/config"
	"github.com/tomtom215/timerbridge/internal/events"
	"github.com/tomtom215/timerbridge/internal/logging"
	"github.com/tomtom215/timerbridge/internal/singular"
	"github.com/tomtom215/timerbridge/internal/supervisor"
	"github.com/tomtom215/timerbridge/internal/supervisor/services"
	"github.com/tomtom215/timerbridge/internal/timersync"
	"github.com/tomtom215/timerbridge/internal/tricaster"
	ws "github.com/tomtom215/timerbridge/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := config.FindConfigFile()
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("version", version).
		Str("config_file", configPath).
		Bool("tricaster_enabled", cfg.TriCaster.Enabled).
		Str("tricaster_host", cfg.TriCaster.Host).
		Bool("singular_token_set", cfg.Singular.Token != "").
		Ints("channels", cfg.TimerSync.ChannelIDs()).
		Msg("Starting TimerBridge")

	if !cfg.TriCaster.Enabled {
		logging.Warn().Msg("TriCaster module disabled (TRICASTER_ENABLED=false); syncs will fail until it is enabled")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	mapping, err := timersync.MappingFromConfig(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid timer sync mapping")
	}

	video := tricaster.NewCircuitBreakerClient(tricaster.NewClient(&cfg.TriCaster))
	graphics := singular.NewCircuitBreakerClient(singular.NewClient(&cfg.Singular))

	engine := timersync.New(timersync.Settings{
		Mapping:              mapping,
		AutoSync:             cfg.TimerSync.AutoSync,
		Interval:             cfg.TimerSync.AutoSyncInterval,
		AuthFailureThreshold: cfg.TimerSync.AuthFailureThreshold,
	}, video, graphics)

	wsHub := ws.NewHub()
	wsHub.SetSnapshot(func() interface{} { return engine.Status() })

	bus := events.NewBus(events.DefaultBusConfig(), logging.NewWatermillLogger())
	bus.AddSink("websocket", wsHub.BroadcastRaw)
	engine.SetPublisher(bus)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	handler := api.NewHandler(api.Dependencies{
		Engine:   engine,
		Video:    video,
		Graphics: graphics,
		Hub:      wsHub,
		Breakers: map[string]api.StateReporter{
			"tricaster": video,
			"singular":  graphics,
		},
		TriCasterEnabled: cfg.TriCaster.Enabled,
		CORSOrigins:      cfg.Security.CORSOrigins,
		Version:          version,
	})
	chiMw := api.NewChiMiddlewareFromSecurity(
		cfg.Security.CORSOrigins,
		cfg.Security.RateLimitReqs,
		cfg.Security.RateLimitWindow,
		cfg.Security.RateLimitDisabled,
	)
	router := api.NewRouter(handler, chiMw)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	svcs := supervisor.Services{
		Engine: engine,
		Hub:    wsHub,
		Bus:    bus,
		HTTP:   services.NewHTTPServerService(server, 10*time.Second),
	}
	if configPath != "" {
		svcs.ConfigWatch = services.NewConfigWatchService(configPath, engine)
	}
	if err := tree.Install(svcs); err != nil {
		logging.Fatal().Err(err).Msg("Failed to install supervisor services")
	}
	logging.Info().Str("addr", server.Addr).Strs("services", tree.Installed()).Msg("Supervisor services installed")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	var serveErr error
	errCh := tree.ServeBackground(ctx)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
		serveErr = <-errCh
	case serveErr = <-errCh:
	}
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logging.Error().Err(serveErr).Msg("Supervisor tree error")
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	logging.Info().Msg("TimerBridge stopped")
}
