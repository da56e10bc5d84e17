// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/absmach/mqttsn/bridge"
	"github.com/absmach/mqttsn/config"
	"github.com/absmach/mqttsn/internal/wiring"
	"github.com/absmach/mqttsn/ratelimit"
	"github.com/absmach/mqttsn/server/health"
	"github.com/absmach/mqttsn/server/otel"
	"github.com/absmach/mqttsn/session"
	"github.com/absmach/mqttsn/transport"
	"github.com/absmach/mqttsn/transport/memory"
	"github.com/absmach/mqttsn/transport/udp"
	oteltrace "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := wiring.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	slog.Info("Starting MQTT-SN gateway", "version", cfg.Otel.ServiceVersion)
	slog.Info("Configuration loaded",
		"gw_id", cfg.Gateway.GatewayID,
		"transport", cfg.Transport.Type,
		"udp_bind", cfg.Transport.UDP.BindAddr,
		"storage", cfg.Storage.Type,
		"bridge_enabled", cfg.Bridge.Enabled,
		"ratelimit_enabled", cfg.RateLimit.Enabled,
		"health_enabled", cfg.Health.Enabled,
		"log_level", cfg.Log.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var otelShutdown func(context.Context) error
	var metrics *otel.Metrics
	var tracer trace.Tracer

	if cfg.Otel.MetricsEnabled || cfg.Otel.TracesEnabled {
		shutdown, err := otel.InitProvider(ctx, cfg.Otel, fmt.Sprintf("gw-%d", cfg.Gateway.GatewayID))
		if err != nil {
			slog.Error("Failed to initialize OpenTelemetry", "error", err)
			os.Exit(1)
		}
		otelShutdown = shutdown
		slog.Info("OpenTelemetry initialized", "endpoint", cfg.Otel.Endpoint)

		if cfg.Otel.MetricsEnabled {
			m, err := otel.NewMetrics()
			if err != nil {
				slog.Error("Failed to create metrics", "error", err)
				os.Exit(1)
			}
			metrics = m
		}
		if cfg.Otel.TracesEnabled {
			tracer = oteltrace.Tracer("mqttsn-gateway")
			slog.Info("Distributed tracing enabled", "sample_rate", cfg.Otel.TraceSampleRate)
		}
	}

	table, err := wiring.OpenAddressTable(cfg.Storage, logger)
	if err != nil {
		slog.Error("Failed to open address table", "error", err)
		os.Exit(1)
	}
	defer table.Close()

	var mesh transport.GatewayMesh
	var hub *memory.Hub
	switch cfg.Transport.Type {
	case "udp":
		udpGW, err := udp.NewGateway(udp.GatewayConfig{
			BindAddr:   cfg.Transport.UDP.BindAddr,
			AckTimeout: cfg.Transport.UDP.AckTimeout,
			Logger:     logger,
		}, table)
		if err != nil {
			slog.Error("Failed to start UDP mesh", "error", err)
			os.Exit(1)
		}
		mesh = udpGW
	case "memory":
		hub = memory.NewHub()
		mesh = hub.Gateway()
		slog.Info("Using in-process mesh with a loopback node", "node_id", cfg.Node.ID)
	default:
		slog.Error("Unknown transport type", "type", cfg.Transport.Type)
		os.Exit(1)
	}
	defer mesh.Close()

	opts := wiring.SessionOptions(cfg.Session, logger, metrics, tracer)
	gw := session.NewGateway(mesh, opts...)
	if err := gw.Setup(); err != nil {
		slog.Error("Failed to set up gateway session", "error", err)
		os.Exit(1)
	}

	limiter := ratelimit.NewManager(cfg.RateLimit)
	defer limiter.Stop()

	var uplink session.GatewayHandler
	if cfg.Bridge.Enabled {
		broker, err := bridge.Connect(cfg.Bridge, logger)
		if err != nil {
			slog.Error("Failed to connect bridge", "error", err)
			os.Exit(1)
		}
		br := bridge.New(cfg.Bridge, broker, gw,
			bridge.WithLogger(logger),
			bridge.WithMetrics(metrics),
			bridge.WithRateLimiter(limiter))
		if err := br.Start(ctx); err != nil {
			slog.Error("Failed to start bridge", "error", err)
			os.Exit(1)
		}
		defer br.Close()
		uplink = br
	} else {
		slog.Info("Bridge disabled")
	}

	mux := wiring.ReleaseOnDisconnect(wiring.GatewayMux(ctx, gw, uplink, logger), limiter)

	var wg sync.WaitGroup
	serverErr := make(chan error, 3)

	adv := &session.Advertiser{
		GatewayID: cfg.Gateway.GatewayID,
		Duration:  cfg.Gateway.AdvertiseDuration,
		Interval:  cfg.Gateway.AdvertiseInterval,
		Logger:    logger,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := adv.Run(ctx, gw, mux); err != nil && !errors.Is(err, context.Canceled) {
			serverErr <- err
		}
	}()

	if cfg.Health.Enabled {
		healthServer := health.New(health.Config{
			Address:         cfg.Health.Addr,
			ShutdownTimeout: cfg.Health.ShutdownTimeout,
		}, gw, table, logger)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := healthServer.Listen(ctx); err != nil {
				serverErr <- err
			}
		}()
	}

	if hub != nil {
		node := session.NewNode(hub.Node(), opts...)
		if err := node.Setup(cfg.Node.ID); err != nil {
			slog.Error("Failed to set up loopback node", "error", err)
			os.Exit(1)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := wiring.RunNode(ctx, node, cfg.Node, wiring.NodeMux(logger), logger); err != nil {
				serverErr <- err
			}
		}()
	}

	slog.Info("MQTT-SN gateway started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig)
	case err := <-serverErr:
		slog.Error("Gateway error", "error", err)
	}

	cancel()
	wg.Wait()

	if otelShutdown != nil {
		otelShutdownCtx, otelCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer otelCancel()
		if err := otelShutdown(otelShutdownCtx); err != nil {
			slog.Error("Failed to shutdown OpenTelemetry", "error", err)
		} else {
			slog.Info("OpenTelemetry shutdown complete")
		}
	}

	slog.Info("MQTT-SN gateway stopped")
}
