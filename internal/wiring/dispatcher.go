// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package wiring assembles sessions, handlers and storage for the gateway
// and node processes.
package wiring

import (
	"context"
	"log/slog"

	"github.com/absmach/mqttsn/config"
	"github.com/absmach/mqttsn/packets"
	"github.com/absmach/mqttsn/packets/codec"
	"github.com/absmach/mqttsn/ratelimit"
	"github.com/absmach/mqttsn/server/otel"
	"github.com/absmach/mqttsn/session"
	"github.com/absmach/mqttsn/transport"
	"go.opentelemetry.io/otel/trace"
)

// SessionOptions converts the session section of the configuration.
func SessionOptions(cfg config.SessionConfig, logger *slog.Logger, metrics *otel.Metrics, tracer trace.Tracer) []session.Option {
	return []session.Option{
		session.WithConfig(session.Config{
			MaxRetries:   cfg.MaxRetries,
			RetryDelay:   cfg.RetryDelay,
			BufferSize:   cfg.BufferSize,
			PollInterval: cfg.PollInterval,
		}),
		session.WithLogger(logger),
		session.WithMetrics(metrics),
		session.WithTracer(tracer),
	}
}

// GatewayMux routes inbound gateway traffic. CONNECT is accepted, PINGREQ,
// DISCONNECT, SUBSCRIBE, UNSUBSCRIBE and REGISTER get their single-shot
// replies and PUBLISH goes to uplink. A nil uplink logs and drops PUBLISH.
// Replies stop retrying once ctx is done.
func GatewayMux(ctx context.Context, r session.Replier, uplink session.GatewayHandler, logger *slog.Logger) *session.Mux {
	if logger == nil {
		logger = slog.Default()
	}

	mux := session.NewMux()
	mux.Handle(packets.ConnectType, session.NewAcceptor(ctx, r, logger))
	mux.Handle(packets.PingReqType, session.PingResponder(ctx, r, logger))
	mux.Handle(packets.DisconnectType, session.DisconnectResponder(ctx, r, logger))
	mux.Handle(packets.SubscribeType, session.SubscribeResponder(ctx, r, logger))
	mux.Handle(packets.UnsubscribeType, session.UnsubscribeResponder(ctx, r, logger))
	mux.Handle(packets.RegisterType, session.RegisterResponder(ctx, r, logger))

	if uplink == nil {
		uplink = session.GatewayHandlerFunc(func(_ byte, data []byte, from transport.Address) {
			var pub packets.Publish
			if err := packets.Unmarshal(data, &pub); err != nil {
				logger.Warn("malformed PUBLISH", slog.String("from", from.String()), "error", err)
				return
			}
			logger.Info("PUBLISH received",
				slog.String("from", from.String()),
				slog.Int("topic_id", int(pub.TopicID)),
				slog.String("data", string(codec.TrimFixed(pub.Data))))
		})
	}
	mux.Handle(packets.PublishType, uplink)

	mux.Fallback(session.GatewayHandlerFunc(func(msgType byte, _ []byte, from transport.Address) {
		logger.Debug("unhandled message",
			slog.String("type", packets.PacketNames[msgType]),
			slog.String("from", from.String()))
	}))

	return mux
}

// ReleaseOnDisconnect forgets the rate limiter state of a peer once its
// DISCONNECT has been handled by next.
func ReleaseOnDisconnect(next session.GatewayHandler, limiter *ratelimit.Manager) session.GatewayHandler {
	return session.GatewayHandlerFunc(func(msgType byte, data []byte, from transport.Address) {
		next.HandleMessage(msgType, data, from)
		if msgType == packets.DisconnectType {
			limiter.OnDisconnect(from)
		}
	})
}

// NodeMux logs what a demo node receives from its gateway.
func NodeMux(logger *slog.Logger) *session.NodeMux {
	if logger == nil {
		logger = slog.Default()
	}

	mux := session.NewNodeMux()
	mux.HandleFunc(packets.ConnAckType, func(_ byte, data []byte) {
		var ack packets.ConnAck
		if err := packets.Unmarshal(data, &ack); err != nil {
			logger.Warn("malformed CONNACK", "error", err)
			return
		}
		logger.Info("CONNACK received", slog.String("return_code", packets.ReturnCodeNames[ack.ReturnCode]))
	})
	mux.HandleFunc(packets.AdvertiseType, func(_ byte, data []byte) {
		var adv packets.Advertise
		if err := packets.Unmarshal(data, &adv); err != nil {
			logger.Warn("malformed ADVERTISE", "error", err)
			return
		}
		logger.Info("ADVERTISE received",
			slog.Int("gw_id", int(adv.GatewayID)),
			slog.Int("duration", int(adv.Duration)))
	})
	mux.HandleFunc(packets.PubAckType, func(_ byte, data []byte) {
		var ack packets.PubAck
		if err := packets.Unmarshal(data, &ack); err != nil {
			logger.Warn("malformed PUBACK", "error", err)
			return
		}
		logger.Info("PUBACK received",
			slog.Int("msg_id", int(ack.MsgID)),
			slog.String("return_code", packets.ReturnCodeNames[ack.ReturnCode]))
	})
	mux.HandleFunc(packets.PublishType, func(_ byte, data []byte) {
		var pub packets.Publish
		if err := packets.Unmarshal(data, &pub); err != nil {
			logger.Warn("malformed PUBLISH", "error", err)
			return
		}
		logger.Info("PUBLISH received",
			slog.Int("topic_id", int(pub.TopicID)),
			slog.String("data", string(codec.TrimFixed(pub.Data))))
	})
	mux.Fallback(session.NodeHandlerFunc(func(msgType byte, _ []byte) {
		logger.Debug("unhandled message", slog.String("type", packets.PacketNames[msgType]))
	}))

	return mux
}
