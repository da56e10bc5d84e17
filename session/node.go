// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/absmach/mqttsn/packets"
	"github.com/absmach/mqttsn/transport"
)

// Node is the client role. It sends to the mesh root without addressing and
// repairs its mesh attachment when writes keep failing.
type Node struct {
	mesh transport.NodeMesh
	opts options
	recv *receiver

	mu     sync.RWMutex
	nodeID uint8
	ready  bool
}

// NewNode creates a node session on mesh.
func NewNode(mesh transport.NodeMesh, opts ...Option) *Node {
	o := newOptions(opts)
	return &Node{
		mesh: mesh,
		opts: o,
		recv: newReceiver(o.cfg.BufferSize),
	}
}

// Setup joins the mesh under nodeID. It does not retry.
func (n *Node) Setup(nodeID uint8) error {
	if nodeID < MinNodeID || nodeID > MaxNodeID {
		return fmt.Errorf("%w: %d", ErrInvalidNodeID, nodeID)
	}
	if err := n.mesh.Begin(nodeID); err != nil {
		n.opts.logger.Error("mesh join failed",
			slog.Int("node_id", int(nodeID)),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", ErrJoinFailed, err)
	}
	n.mesh.Update()

	n.mu.Lock()
	n.nodeID = nodeID
	n.ready = true
	n.mu.Unlock()

	n.opts.logger.Info("node joined mesh", slog.Int("node_id", int(nodeID)))
	return nil
}

// NodeID returns the id given to Setup.
func (n *Node) NodeID() uint8 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.nodeID
}

// Send encodes msg and delivers it to the gateway.
func (n *Node) Send(ctx context.Context, msg packets.Message) error {
	return n.SendBytes(ctx, msg.Encode())
}

// SendBytes delivers an encoded message to the gateway. Between attempts
// it checks the mesh connection and, if broken, renews the node's address,
// falling back to a full rejoin.
func (n *Node) SendBytes(ctx context.Context, data []byte) error {
	n.mu.RLock()
	id, ready := n.nodeID, n.ready
	n.mu.RUnlock()
	if !ready {
		return ErrNotSetup
	}

	n.mesh.Update()
	return n.opts.send(ctx, data,
		func() error { return n.mesh.Write(data, transport.KindMQTTSN) },
		func() { n.repair(id) },
		slog.Int("node_id", int(id)))
}

func (n *Node) repair(id uint8) {
	if n.mesh.CheckConnection() {
		return
	}

	err := n.mesh.RenewAddress()
	if n.opts.metrics != nil {
		n.opts.metrics.RecordRepair("renew", err == nil)
	}
	if err == nil {
		n.opts.logger.Info("mesh address renewed", slog.Int("node_id", int(id)))
		return
	}
	n.opts.logger.Warn("mesh address renewal failed, rejoining",
		slog.Int("node_id", int(id)),
		slog.String("error", err.Error()))

	err = n.mesh.Begin(id)
	if n.opts.metrics != nil {
		n.opts.metrics.RecordRepair("rejoin", err == nil)
	}
	if err != nil {
		n.opts.logger.Warn("mesh rejoin failed",
			slog.Int("node_id", int(id)),
			slog.String("error", err.Error()))
	}
}

// Loop dispatches inbound messages to h until ctx is done. With
// context.Background it never returns.
func (n *Node) Loop(ctx context.Context, h NodeHandler) error {
	return n.run(ctx, h, time.Time{})
}

// LoopFor dispatches inbound messages to h for roughly block. The deadline
// is checked between bursts, so a burst in progress is never cut short.
func (n *Node) LoopFor(ctx context.Context, h NodeHandler, block time.Duration) error {
	return n.run(ctx, h, time.Now().Add(block))
}

func (n *Node) run(ctx context.Context, h NodeHandler, deadline time.Time) error {
	n.mu.RLock()
	ready := n.ready
	n.mu.RUnlock()
	if !ready {
		return ErrNotSetup
	}

	n.recv.mu.Lock()
	defer n.recv.mu.Unlock()

	return n.opts.loop(ctx, deadline, func() int {
		n.mesh.Update()
		return n.opts.drain(n.mesh, n.recv, false, func(msgType byte, data []byte, _ transport.Address) {
			h.HandleMessage(msgType, data)
		})
	})
}

// Update runs mesh housekeeping for callers that drive their own timing.
func (n *Node) Update() {
	n.mesh.Update()
}
