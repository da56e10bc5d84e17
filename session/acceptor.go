// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"log/slog"

	"github.com/absmach/mqttsn/packets"
	"github.com/absmach/mqttsn/transport"
)

// Replier sends a message to a single node. *Gateway implements it.
type Replier interface {
	SendTo(ctx context.Context, msg packets.Message, to transport.Address) error
}

var _ Replier = (*Gateway)(nil)

// Acceptor answers every well-formed CONNECT with exactly one CONNACK
// carrying packets.Accepted. It keeps no per-client state.
type Acceptor struct {
	ctx     context.Context
	replier Replier
	logger  *slog.Logger
}

// NewAcceptor creates an Acceptor replying through r. Replies give up once
// ctx is done.
func NewAcceptor(ctx context.Context, r Replier, logger *slog.Logger) *Acceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Acceptor{ctx: ctx, replier: r, logger: logger}
}

// HandleMessage implements GatewayHandler.
func (a *Acceptor) HandleMessage(msgType byte, data []byte, from transport.Address) {
	if msgType != packets.ConnectType {
		return
	}

	var conn packets.Connect
	if err := packets.Unmarshal(data, &conn); err != nil {
		a.logger.Warn("malformed CONNECT",
			slog.String("from", from.String()),
			slog.String("error", err.Error()))
		return
	}

	a.logger.Info("client connected",
		slog.String("client_id", conn.ClientID),
		slog.String("from", from.String()),
		slog.Int("duration", int(conn.Duration)),
		slog.Bool("clean_session", conn.Flags.CleanSession()))

	ack := &packets.ConnAck{ReturnCode: packets.Accepted}
	if err := a.replier.SendTo(a.ctx, ack, from); err != nil {
		a.logger.Warn("failed to send CONNACK",
			slog.String("client_id", conn.ClientID),
			slog.String("to", from.String()),
			slog.String("error", err.Error()))
	}
}
