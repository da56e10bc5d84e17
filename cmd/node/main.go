// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/absmach/mqttsn/config"
	"github.com/absmach/mqttsn/internal/wiring"
	"github.com/absmach/mqttsn/server/otel"
	"github.com/absmach/mqttsn/session"
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

	slog.Info("Starting MQTT-SN node",
		"node_id", cfg.Node.ID,
		"client_id", cfg.Node.ClientID,
		"gateway", cfg.Transport.UDP.GatewayAddr,
		"log_level", cfg.Log.Level)

	if cfg.Transport.Type != "udp" {
		slog.Error("Node requires the udp transport; use the gateway's memory mode for a loopback node",
			"type", cfg.Transport.Type)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var otelShutdown func(context.Context) error
	var metrics *otel.Metrics
	var tracer trace.Tracer

	if cfg.Otel.MetricsEnabled || cfg.Otel.TracesEnabled {
		shutdown, err := otel.InitProvider(ctx, cfg.Otel, fmt.Sprintf("node-%d", cfg.Node.ID))
		if err != nil {
			slog.Error("Failed to initialize OpenTelemetry", "error", err)
			os.Exit(1)
		}
		otelShutdown = shutdown

		if cfg.Otel.MetricsEnabled {
			m, err := otel.NewMetrics()
			if err != nil {
				slog.Error("Failed to create metrics", "error", err)
				os.Exit(1)
			}
			metrics = m
		}
		if cfg.Otel.TracesEnabled {
			tracer = oteltrace.Tracer("mqttsn-node")
		}
	}

	mesh, err := udp.NewNode(udp.NodeConfig{
		GatewayAddr: cfg.Transport.UDP.GatewayAddr,
		BindAddr:    cfg.Transport.UDP.BindAddr,
		JoinTimeout: cfg.Transport.UDP.JoinTimeout,
		PingTimeout: cfg.Transport.UDP.PingTimeout,
		AckTimeout:  cfg.Transport.UDP.AckTimeout,
		Logger:      logger,
	})
	if err != nil {
		slog.Error("Failed to open UDP mesh", "error", err)
		os.Exit(1)
	}
	defer mesh.Close()

	node := session.NewNode(mesh, wiring.SessionOptions(cfg.Session, logger, metrics, tracer)...)
	if err := node.Setup(cfg.Node.ID); err != nil {
		slog.Error("Failed to join mesh", "error", err)
		os.Exit(1)
	}

	done := make(chan error, 1)
	go func() {
		done <- wiring.RunNode(ctx, node, cfg.Node, wiring.NodeMux(logger), logger)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig)
		cancel()
		<-done
	case err := <-done:
		if err != nil {
			slog.Error("Node stopped", "error", err)
		}
	}

	if otelShutdown != nil {
		otelShutdownCtx, otelCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer otelCancel()
		if err := otelShutdown(otelShutdownCtx); err != nil {
			slog.Error("Failed to shutdown OpenTelemetry", "error", err)
		}
	}

	slog.Info("MQTT-SN node stopped")
}
