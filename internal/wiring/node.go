// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package wiring

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/absmach/mqttsn/config"
	"github.com/absmach/mqttsn/packets"
	"github.com/absmach/mqttsn/session"
)

// NodeSession is the part of a node session the demo flow drives.
type NodeSession interface {
	LoopFor(ctx context.Context, h session.NodeHandler, block time.Duration) error
	Send(ctx context.Context, msg packets.Message) error
}

var _ NodeSession = (*session.Node)(nil)

// RunNode serves inbound traffic for cfg.LoopBlock, then sends CONNECT, and
// repeats until ctx is done. When a publish topic is configured a PUBLISH
// follows the CONNECT once every cfg.PublishInterval.
func RunNode(ctx context.Context, n NodeSession, cfg config.NodeConfig, h session.NodeHandler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	connect := &packets.Connect{
		Flags:    packets.NewFlags(packets.FlagOptions{CleanSession: true}),
		Duration: uint16(cfg.KeepAlive / time.Second),
		ClientID: cfg.ClientID,
	}

	var (
		msgID       uint16
		lastPublish time.Time
	)
	for {
		if err := n.LoopFor(ctx, h, cfg.LoopBlock); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		if err := n.Send(ctx, connect); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("CONNECT not delivered", slog.String("client_id", cfg.ClientID), "error", err)
			continue
		}
		logger.Debug("CONNECT sent", slog.String("client_id", cfg.ClientID))

		if cfg.PublishTopicID == 0 || time.Since(lastPublish) < cfg.PublishInterval {
			continue
		}
		msgID++
		if msgID == 0 {
			msgID = 1
		}
		pub := &packets.Publish{
			Flags:   packets.NewFlags(packets.FlagOptions{QoS: packets.QoS1, TopicIDType: packets.TopicPredefined}),
			TopicID: cfg.PublishTopicID,
			MsgID:   msgID,
			Data:    []byte(cfg.PublishPayload),
		}
		if err := n.Send(ctx, pub); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("PUBLISH not delivered", slog.Int("topic_id", int(cfg.PublishTopicID)), "error", err)
			continue
		}
		lastPublish = time.Now()
	}
}
