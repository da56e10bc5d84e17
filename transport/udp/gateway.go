// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package udp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/absmach/mqttsn/packets/codec"
	"github.com/absmach/mqttsn/storage"
	"github.com/absmach/mqttsn/transport"
)

var _ transport.GatewayMesh = (*Gateway)(nil)

// ErrAddressSpaceFull is returned when every mesh address is taken.
var ErrAddressSpaceFull = errors.New("udp: no free mesh address")

const maxAddress = 0xFFFE

// GatewayConfig holds the gateway endpoint configuration.
type GatewayConfig struct {
	BindAddr  string
	QueueSize int
	// AckTimeout bounds how long WriteTo waits for the node's ack.
	AckTimeout time.Duration
	Logger     *slog.Logger
}

type joinRequest struct {
	nodeID uint8
	renew  bool
	from   *net.UDPAddr
}

// Gateway is the mesh root. Nodes join by sending a join frame; DHCP
// answers pending joins and records the assignments in an address table.
type Gateway struct {
	cfg   GatewayConfig
	conn  *net.UDPConn
	table storage.AddressTable

	ctx    context.Context
	cancel context.CancelFunc

	joinMu sync.Mutex
	joins  []joinRequest

	acks  *acks
	inbox chan transport.Packet
	wg    sync.WaitGroup
}

// NewGateway binds the gateway socket and starts reading from it.
func NewGateway(cfg GatewayConfig, table storage.AddressTable) (*Gateway, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 256
	}
	if cfg.AckTimeout == 0 {
		cfg.AckTimeout = defaultAckTimeout
	}

	local, err := net.ResolveUDPAddr("udp", cfg.BindAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bind address %s: %w", cfg.BindAddr, err)
	}
	conn, err := net.ListenUDP("udp", local)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.BindAddr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g := &Gateway{
		cfg:    cfg,
		conn:   conn,
		table:  table,
		ctx:    ctx,
		cancel: cancel,
		acks:   newAcks(),
		inbox:  make(chan transport.Packet, cfg.QueueSize),
	}
	g.wg.Add(1)
	go g.readLoop()

	cfg.Logger.Info("UDP mesh gateway started", slog.String("address", conn.LocalAddr().String()))
	return g, nil
}

// LocalAddr returns the bound socket address.
func (g *Gateway) LocalAddr() net.Addr {
	return g.conn.LocalAddr()
}

// Begin is a no-op for the root; it always holds transport.RootAddress.
func (g *Gateway) Begin(uint8) error {
	if g.ctx.Err() != nil {
		return transport.ErrClosed
	}
	return nil
}

// Update is a no-op; the read loop services the socket.
func (g *Gateway) Update() {}

// DHCP answers every join request received since the previous call.
func (g *Gateway) DHCP() {
	g.joinMu.Lock()
	pending := g.joins
	g.joins = nil
	g.joinMu.Unlock()

	for _, req := range pending {
		addr, err := g.assign(req)
		if err != nil {
			g.cfg.Logger.Error("address assignment failed",
				slog.Int("node_id", int(req.nodeID)),
				slog.String("endpoint", req.from.String()),
				slog.String("error", err.Error()))
			continue
		}
		payload := codec.EncodeUint16(uint16(addr))
		if err := writeFrame(g.conn, req.from, kindAssign, transport.RootAddress, 0, payload); err != nil {
			g.cfg.Logger.Warn("failed to send address assignment",
				slog.Int("node_id", int(req.nodeID)),
				slog.String("error", err.Error()))
		}
	}
}

func (g *Gateway) assign(req joinRequest) (transport.Address, error) {
	prev, err := g.table.ByNode(g.ctx, req.nodeID)
	switch {
	case err == nil && !req.renew:
		if prev.Endpoint != req.from.String() {
			prev.Endpoint = req.from.String()
			prev.UpdatedAt = time.Now()
			if err := g.table.Put(g.ctx, *prev); err != nil {
				return 0, err
			}
		}
		return transport.Address(prev.Address), nil
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return 0, err
	}

	all, err := g.table.List(g.ctx)
	if err != nil {
		return 0, err
	}
	used := make(map[uint16]struct{}, len(all))
	for _, a := range all {
		used[a.Address] = struct{}{}
	}

	for addr := uint16(1); addr <= maxAddress; addr++ {
		if _, ok := used[addr]; ok {
			continue
		}
		a := storage.Assignment{
			NodeID:    req.nodeID,
			Address:   addr,
			Endpoint:  req.from.String(),
			UpdatedAt: time.Now(),
		}
		if err := g.table.Put(g.ctx, a); err != nil {
			return 0, err
		}
		return transport.Address(addr), nil
	}
	return 0, ErrAddressSpaceFull
}

// KnownAddresses lists the addresses in the address table.
func (g *Gateway) KnownAddresses() []transport.Address {
	all, err := g.table.List(g.ctx)
	if err != nil {
		g.cfg.Logger.Error("failed to list address table", slog.String("error", err.Error()))
		return nil
	}
	addrs := make([]transport.Address, 0, len(all))
	for _, a := range all {
		addrs = append(addrs, transport.Address(a.Address))
	}
	return addrs
}

// WriteTo sends data to the node holding addr and waits for its ack.
func (g *Gateway) WriteTo(data []byte, kind transport.Kind, to transport.Address) error {
	if reserved(kind) {
		return ErrReservedKind
	}
	if len(data) > transport.MaxPayload {
		return transport.ErrPayloadTooBig
	}

	a, err := g.table.ByAddress(g.ctx, uint16(to))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return transport.ErrUnknownAddress
		}
		return err
	}
	ep, err := net.ResolveUDPAddr("udp", a.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to resolve endpoint of %s: %w", to, err)
	}

	return g.acks.sendAcked(g.conn, ep, kind, transport.RootAddress, data, g.cfg.AckTimeout, g.ctx.Done())
}

// Poll returns the next queued datagram.
func (g *Gateway) Poll() (transport.Packet, bool) {
	select {
	case p := <-g.inbox:
		return p, true
	default:
		return transport.Packet{}, false
	}
}

// Close stops the read loop and releases the socket. The address table is
// owned by the caller.
func (g *Gateway) Close() error {
	if g.ctx.Err() != nil {
		return nil
	}
	g.cancel()
	err := g.conn.Close()
	g.wg.Wait()
	return err
}

func (g *Gateway) readLoop() {
	defer g.wg.Done()

	buf := make([]byte, maxFrameSize)
	for {
		size, from, err := g.conn.ReadFromUDP(buf)
		if err != nil {
			if g.ctx.Err() != nil {
				return
			}
			g.cfg.Logger.Warn("udp read failed", slog.String("error", err.Error()))
			continue
		}

		f, err := decodeFrame(buf[:size])
		if err != nil {
			continue
		}

		switch f.kind {
		case kindJoin:
			if len(f.payload) < 2 {
				continue
			}
			g.joinMu.Lock()
			g.joins = append(g.joins, joinRequest{nodeID: f.payload[0], renew: f.payload[1] != 0, from: from})
			g.joinMu.Unlock()
		case kindPing:
			if g.assigned(f.from, from) {
				g.reply(from, kindPong, 0)
			}
		case kindAck:
			g.acks.resolve(f.seq)
		case kindAssign, kindPong:
		default:
			g.receive(f, from)
		}
	}
}

// receive queues an application frame and acks it. Frames from senders
// without a matching assignment are dropped unacknowledged so the sender
// sees a failed write and repairs its address.
func (g *Gateway) receive(f frame, from *net.UDPAddr) {
	if !g.assigned(f.from, from) {
		g.cfg.Logger.Debug("dropping datagram from unassigned sender",
			slog.String("from", f.from.String()),
			slog.String("endpoint", from.String()))
		return
	}

	p := transport.Packet{Kind: f.kind, From: f.from, Data: append([]byte(nil), f.payload...)}
	select {
	case g.inbox <- p:
		g.reply(from, kindAck, f.seq)
	default:
		g.cfg.Logger.Warn("gateway inbox full, dropping datagram",
			slog.String("from", f.from.String()))
	}
}

// assigned reports whether addr is currently assigned to the endpoint from.
func (g *Gateway) assigned(addr transport.Address, from *net.UDPAddr) bool {
	a, err := g.table.ByAddress(g.ctx, uint16(addr))
	return err == nil && a.Endpoint == from.String()
}

func (g *Gateway) reply(to *net.UDPAddr, kind transport.Kind, seq uint16) {
	if err := writeFrame(g.conn, to, kind, transport.RootAddress, seq, nil); err != nil {
		g.cfg.Logger.Debug("failed to send control frame",
			slog.String("kind", string(rune(kind))),
			slog.String("error", err.Error()))
	}
}
