// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"log/slog"

	"github.com/absmach/mqttsn/packets"
	"github.com/absmach/mqttsn/transport"
)

// Stateless single-shot responders. Each decodes the request with
// packets.Unmarshal and answers with the matching acknowledgement. Replies
// give up once the ctx given at construction is done.

// PingResponder answers PINGREQ with PINGRESP.
func PingResponder(ctx context.Context, r Replier, logger *slog.Logger) GatewayHandler {
	return respond(ctx, r, logger, func() packets.Message { return &packets.PingReq{} },
		func(packets.Message) packets.Message { return &packets.PingResp{} })
}

// DisconnectResponder echoes DISCONNECT back to the sender.
func DisconnectResponder(ctx context.Context, r Replier, logger *slog.Logger) GatewayHandler {
	return respond(ctx, r, logger, func() packets.Message { return &packets.Disconnect{} },
		func(packets.Message) packets.Message { return &packets.Disconnect{} })
}

// SubscribeResponder accepts every SUBSCRIBE, echoing its topic id, message
// id and flags.
func SubscribeResponder(ctx context.Context, r Replier, logger *slog.Logger) GatewayHandler {
	return respond(ctx, r, logger, func() packets.Message { return &packets.Subscribe{} },
		func(m packets.Message) packets.Message {
			sub := m.(*packets.Subscribe)
			return &packets.SubAck{Flags: sub.Flags, TopicID: sub.TopicID, MsgID: sub.MsgID, ReturnCode: packets.Accepted}
		})
}

// UnsubscribeResponder answers UNSUBSCRIBE with UNSUBACK.
func UnsubscribeResponder(ctx context.Context, r Replier, logger *slog.Logger) GatewayHandler {
	return respond(ctx, r, logger, func() packets.Message { return &packets.Unsubscribe{} },
		func(m packets.Message) packets.Message {
			return &packets.UnsubAck{MsgID: m.(*packets.Unsubscribe).MsgID}
		})
}

// RegisterResponder accepts every REGISTER.
func RegisterResponder(ctx context.Context, r Replier, logger *slog.Logger) GatewayHandler {
	return respond(ctx, r, logger, func() packets.Message { return &packets.Register{} },
		func(m packets.Message) packets.Message {
			reg := m.(*packets.Register)
			return &packets.RegAck{TopicID: reg.TopicID, MsgID: reg.MsgID, ReturnCode: packets.Accepted}
		})
}

func respond(ctx context.Context, r Replier, logger *slog.Logger, newReq func() packets.Message, reply func(packets.Message) packets.Message) GatewayHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return GatewayHandlerFunc(func(msgType byte, data []byte, from transport.Address) {
		req := newReq()
		if msgType != req.Type() {
			return
		}
		if err := packets.Unmarshal(data, req); err != nil {
			logger.Warn("malformed request",
				slog.String("type", packets.PacketNames[msgType]),
				slog.String("from", from.String()),
				slog.String("error", err.Error()))
			return
		}

		resp := reply(req)
		if err := r.SendTo(ctx, resp, from); err != nil {
			logger.Warn("failed to send reply",
				slog.String("type", packets.PacketNames[resp.Type()]),
				slog.String("to", from.String()),
				slog.String("error", err.Error()))
		}
	})
}
