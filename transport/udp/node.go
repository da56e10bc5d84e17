// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package udp

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/absmach/mqttsn/packets/codec"
	"github.com/absmach/mqttsn/transport"
)

var _ transport.NodeMesh = (*Node)(nil)

// NodeConfig holds the node endpoint configuration.
type NodeConfig struct {
	GatewayAddr string
	BindAddr    string
	JoinTimeout time.Duration
	PingTimeout time.Duration
	// AckTimeout bounds how long Write waits for the gateway's ack.
	AckTimeout time.Duration
	QueueSize  int
	Logger     *slog.Logger
}

// Node is a leaf endpoint talking to a single gateway.
type Node struct {
	cfg  NodeConfig
	conn *net.UDPConn
	gw   *net.UDPAddr

	opMu   sync.Mutex // serializes join, renew and ping round trips
	mu     sync.Mutex
	addr   transport.Address
	nodeID uint8
	joined bool

	acks     *acks
	inbox    chan transport.Packet
	assigned chan transport.Address
	pong     chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewNode binds a UDP socket and starts reading from it.
func NewNode(cfg NodeConfig) (*Node, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.BindAddr == "" {
		cfg.BindAddr = ":0"
	}
	if cfg.JoinTimeout == 0 {
		cfg.JoinTimeout = 2 * time.Second
	}
	if cfg.PingTimeout == 0 {
		cfg.PingTimeout = 500 * time.Millisecond
	}
	if cfg.AckTimeout == 0 {
		cfg.AckTimeout = defaultAckTimeout
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 64
	}

	gw, err := net.ResolveUDPAddr("udp", cfg.GatewayAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve gateway %s: %w", cfg.GatewayAddr, err)
	}
	local, err := net.ResolveUDPAddr("udp", cfg.BindAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bind address %s: %w", cfg.BindAddr, err)
	}
	conn, err := net.ListenUDP("udp", local)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.BindAddr, err)
	}

	n := &Node{
		cfg:      cfg,
		conn:     conn,
		gw:       gw,
		acks:     newAcks(),
		inbox:    make(chan transport.Packet, cfg.QueueSize),
		assigned: make(chan transport.Address, 1),
		pong:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	n.wg.Add(1)
	go n.readLoop()

	return n, nil
}

// Begin joins the mesh, keeping the address previously assigned to nodeID.
func (n *Node) Begin(nodeID uint8) error {
	return n.join(nodeID, false)
}

// RenewAddress requests a fresh address for the current node id.
func (n *Node) RenewAddress() error {
	n.mu.Lock()
	id, joined := n.nodeID, n.joined
	n.mu.Unlock()
	if !joined {
		return transport.ErrNotJoined
	}
	return n.join(id, true)
}

func (n *Node) join(nodeID uint8, renew bool) error {
	n.opMu.Lock()
	defer n.opMu.Unlock()

	select {
	case <-n.assigned:
	default:
	}

	if err := n.send(kindJoin, 0, []byte{nodeID, codec.EncodeBool(renew)}); err != nil {
		return err
	}

	timer := time.NewTimer(n.cfg.JoinTimeout)
	defer timer.Stop()

	select {
	case addr := <-n.assigned:
		n.mu.Lock()
		n.addr, n.nodeID, n.joined = addr, nodeID, true
		n.mu.Unlock()
		n.cfg.Logger.Debug("mesh address assigned",
			slog.Int("node_id", int(nodeID)),
			slog.String("address", addr.String()),
			slog.Bool("renew", renew))
		return nil
	case <-timer.C:
		return ErrJoinTimeout
	case <-n.done:
		return transport.ErrClosed
	}
}

// Update is a no-op; the read loop services the socket.
func (n *Node) Update() {}

// Write sends data to the gateway and waits for its ack. The gateway only
// acks frames from the holder of a current assignment.
func (n *Node) Write(data []byte, kind transport.Kind) error {
	if reserved(kind) {
		return ErrReservedKind
	}
	if len(data) > transport.MaxPayload {
		return transport.ErrPayloadTooBig
	}
	n.mu.Lock()
	from, joined := n.addr, n.joined
	n.mu.Unlock()
	if !joined {
		return transport.ErrNotJoined
	}
	return n.acks.sendAcked(n.conn, n.gw, kind, from, data, n.cfg.AckTimeout, n.done)
}

// CheckConnection pings the gateway and waits for the answer. The gateway
// answers only while it still holds this node's assignment.
func (n *Node) CheckConnection() bool {
	n.opMu.Lock()
	defer n.opMu.Unlock()

	select {
	case <-n.pong:
	default:
	}
	if err := n.send(kindPing, 0, nil); err != nil {
		return false
	}

	timer := time.NewTimer(n.cfg.PingTimeout)
	defer timer.Stop()

	select {
	case <-n.pong:
		return true
	case <-timer.C:
		return false
	case <-n.done:
		return false
	}
}

// Poll returns the next queued datagram.
func (n *Node) Poll() (transport.Packet, bool) {
	select {
	case p := <-n.inbox:
		return p, true
	default:
		return transport.Packet{}, false
	}
}

// Address returns the current mesh address.
func (n *Node) Address() transport.Address {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.addr
}

// Close stops the read loop and releases the socket.
func (n *Node) Close() error {
	select {
	case <-n.done:
		return nil
	default:
	}
	close(n.done)
	err := n.conn.Close()
	n.wg.Wait()
	return err
}

// send writes a control frame to the gateway.
func (n *Node) send(kind transport.Kind, seq uint16, payload []byte) error {
	n.mu.Lock()
	from := n.addr
	n.mu.Unlock()

	return writeFrame(n.conn, n.gw, kind, from, seq, payload)
}

func (n *Node) readLoop() {
	defer n.wg.Done()

	buf := make([]byte, maxFrameSize)
	for {
		size, _, err := n.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-n.done:
				return
			default:
			}
			n.cfg.Logger.Warn("udp read failed", slog.String("error", err.Error()))
			continue
		}

		f, err := decodeFrame(buf[:size])
		if err != nil {
			continue
		}

		switch f.kind {
		case kindAssign:
			if len(f.payload) < 2 {
				continue
			}
			addr := transport.Address(uint16(f.payload[0])<<8 | uint16(f.payload[1]))
			select {
			case n.assigned <- addr:
			default:
			}
		case kindPong:
			select {
			case n.pong <- struct{}{}:
			default:
			}
		case kindAck:
			n.acks.resolve(f.seq)
		case kindJoin, kindPing:
		default:
			p := transport.Packet{Kind: f.kind, From: f.from, Data: append([]byte(nil), f.payload...)}
			select {
			case n.inbox <- p:
				if err := n.send(kindAck, f.seq, nil); err != nil {
					n.cfg.Logger.Debug("failed to ack datagram", slog.String("error", err.Error()))
				}
			default:
				n.cfg.Logger.Warn("node inbox full, dropping datagram", slog.Int("size", len(p.Data)))
			}
		}
	}
}
