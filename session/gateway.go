// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/absmach/mqttsn/packets"
	"github.com/absmach/mqttsn/transport"
)

// GatewayNodeID is the identity the gateway joins the mesh with.
const GatewayNodeID uint8 = 0

// Gateway is the mesh root. It addresses nodes individually and services
// the mesh's address assignment on every housekeeping step.
type Gateway struct {
	mesh  transport.GatewayMesh
	opts  options
	recv  *receiver
	ready atomic.Bool
}

// NewGateway creates a gateway session on mesh.
func NewGateway(mesh transport.GatewayMesh, opts ...Option) *Gateway {
	o := newOptions(opts)
	return &Gateway{
		mesh: mesh,
		opts: o,
		recv: newReceiver(o.cfg.BufferSize),
	}
}

// Setup joins the mesh as its root.
func (g *Gateway) Setup() error {
	if err := g.mesh.Begin(GatewayNodeID); err != nil {
		g.opts.logger.Error("mesh join failed", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", ErrJoinFailed, err)
	}
	g.Update()
	g.ready.Store(true)

	g.opts.logger.Info("gateway joined mesh")
	return nil
}

// SendTo encodes msg and delivers it to one node.
func (g *Gateway) SendTo(ctx context.Context, msg packets.Message, to transport.Address) error {
	return g.SendBytesTo(ctx, msg.Encode(), to)
}

// SendBytesTo delivers an encoded message to one node. Unlike Node, the
// gateway never attempts to repair its own attachment.
func (g *Gateway) SendBytesTo(ctx context.Context, data []byte, to transport.Address) error {
	if !g.ready.Load() {
		return ErrNotSetup
	}

	g.Update()
	return g.opts.send(ctx, data,
		func() error { return g.mesh.WriteTo(data, transport.KindMQTTSN, to) },
		nil,
		slog.String("to", to.String()))
}

// SendToAll delivers msg to every known node, one after another. A node
// that exhausts its retries is logged and skipped; the broadcast only stops
// early if ctx is done.
func (g *Gateway) SendToAll(ctx context.Context, msg packets.Message) {
	g.SendBytesToAll(ctx, msg.Encode())
}

// SendBytesToAll is SendToAll for an encoded message.
func (g *Gateway) SendBytesToAll(ctx context.Context, data []byte) {
	if !g.ready.Load() {
		g.opts.logger.Warn("broadcast before setup", slog.String("type", typeName(data)))
		return
	}

	g.Update()
	addrs := g.mesh.KnownAddresses()
	if g.opts.metrics != nil {
		g.opts.metrics.RecordPeers(len(addrs))
	}

	for _, addr := range addrs {
		if ctx.Err() != nil {
			return
		}
		if err := g.SendBytesTo(ctx, data, addr); err != nil {
			g.opts.logger.Warn("broadcast to peer failed",
				slog.String("to", addr.String()),
				slog.String("type", typeName(data)),
				slog.String("error", err.Error()))
		}
	}
}

// KnownAddresses returns the addresses currently assigned to nodes.
func (g *Gateway) KnownAddresses() []transport.Address {
	return g.mesh.KnownAddresses()
}

// Ready reports whether Setup succeeded.
func (g *Gateway) Ready() bool {
	return g.ready.Load()
}

// Loop dispatches inbound messages to h until ctx is done.
func (g *Gateway) Loop(ctx context.Context, h GatewayHandler) error {
	return g.run(ctx, h, time.Time{})
}

// LoopFor dispatches inbound messages to h for roughly block.
func (g *Gateway) LoopFor(ctx context.Context, h GatewayHandler, block time.Duration) error {
	return g.run(ctx, h, time.Now().Add(block))
}

func (g *Gateway) run(ctx context.Context, h GatewayHandler, deadline time.Time) error {
	if !g.ready.Load() {
		return ErrNotSetup
	}

	g.recv.mu.Lock()
	defer g.recv.mu.Unlock()

	return g.opts.loop(ctx, deadline, func() int {
		g.Update()
		return g.opts.drain(g.mesh, g.recv, true, h.HandleMessage)
	})
}

// Update runs mesh housekeeping and address assignment.
func (g *Gateway) Update() {
	g.mesh.Update()
	g.mesh.DHCP()
}
