// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package memory provides an in-process mesh. A Hub connects one gateway
// endpoint with any number of node endpoints and lets tests inject faults.
package memory

import (
	"errors"
	"sort"
	"sync"

	"github.com/absmach/mqttsn/transport"
)

var (
	_ transport.NodeMesh    = (*Node)(nil)
	_ transport.GatewayMesh = (*Gateway)(nil)
)

// Injected failures.
var (
	ErrWriteFailed = errors.New("memory: write failed")
	ErrBeginFailed = errors.New("memory: begin failed")
	ErrRenewFailed = errors.New("memory: renew failed")
)

// Hub routes datagrams between endpoints.
type Hub struct {
	mu       sync.Mutex
	gateway  *Gateway
	nodes    map[transport.Address]*Node
	byID     map[uint8]transport.Address
	nextAddr transport.Address

	// faults
	writeFailures map[transport.Address]int // remaining failures; -1 = always
	unhealthy     bool
	failRenew     bool
	failBegin     bool
}

// NewHub creates an empty mesh.
func NewHub() *Hub {
	h := &Hub{
		nodes:         make(map[transport.Address]*Node),
		byID:          make(map[uint8]transport.Address),
		nextAddr:      1,
		writeFailures: make(map[transport.Address]int),
	}
	h.gateway = &Gateway{endpoint: endpoint{hub: h}}
	return h
}

// Gateway returns the root endpoint.
func (h *Hub) Gateway() *Gateway {
	return h.gateway
}

// Node returns a new, not yet joined, node endpoint.
func (h *Hub) Node() *Node {
	return &Node{endpoint: endpoint{hub: h}}
}

// SetWriteFailures makes the next n datagrams destined to addr fail.
// Node writes are destined to transport.RootAddress.
func (h *Hub) SetWriteFailures(addr transport.Address, n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writeFailures[addr] = n
}

// FailWrites makes every datagram destined to addr fail until cleared.
func (h *Hub) FailWrites(addr transport.Address, fail bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if fail {
		h.writeFailures[addr] = -1
		return
	}
	delete(h.writeFailures, addr)
}

// SetHealthy sets the result of every node's CheckConnection.
func (h *Hub) SetHealthy(healthy bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unhealthy = !healthy
}

// FailRenew makes RenewAddress fail.
func (h *Hub) FailRenew(fail bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failRenew = fail
}

// FailBegin makes Begin fail for every endpoint.
func (h *Hub) FailBegin(fail bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failBegin = fail
}

// Inject queues p on the endpoint holding addr, bypassing fault injection.
func (h *Hub) Inject(to transport.Address, p transport.Packet) error {
	h.mu.Lock()
	ep, err := h.lookup(to)
	h.mu.Unlock()
	if err != nil {
		return err
	}
	ep.push(p)
	return nil
}

// deliver must be called with h.mu held.
func (h *Hub) deliver(from, to transport.Address, kind transport.Kind, data []byte) error {
	if len(data) > transport.MaxPayload {
		return transport.ErrPayloadTooBig
	}
	if n, ok := h.writeFailures[to]; ok {
		switch {
		case n < 0:
			return ErrWriteFailed
		case n > 0:
			h.writeFailures[to] = n - 1
			return ErrWriteFailed
		}
	}
	ep, err := h.lookup(to)
	if err != nil {
		return err
	}
	ep.push(transport.Packet{Kind: kind, From: from, Data: append([]byte(nil), data...)})
	return nil
}

func (h *Hub) lookup(addr transport.Address) (*endpoint, error) {
	if addr == transport.RootAddress {
		if !h.gateway.joined {
			return nil, transport.ErrUnknownAddress
		}
		return &h.gateway.endpoint, nil
	}
	n, ok := h.nodes[addr]
	if !ok {
		return nil, transport.ErrUnknownAddress
	}
	return &n.endpoint, nil
}

// assign must be called with h.mu held.
func (h *Hub) assign(n *Node, nodeID uint8, fresh bool) {
	if n.joined {
		delete(h.nodes, n.addr)
	}
	addr, ok := h.byID[nodeID]
	if !ok || fresh {
		addr = h.nextAddr
		h.nextAddr++
		if h.nextAddr == 0 {
			h.nextAddr = 1
		}
	}
	h.byID[nodeID] = addr
	h.nodes[addr] = n
	n.addr = addr
	n.nodeID = nodeID
	n.joined = true
}

type endpoint struct {
	hub *Hub

	mu      sync.Mutex
	inbox   []transport.Packet
	updates int

	// guarded by hub.mu
	joined bool
	closed bool
}

func (e *endpoint) push(p transport.Packet) {
	e.mu.Lock()
	e.inbox = append(e.inbox, p)
	e.mu.Unlock()
}

// Poll returns the oldest queued datagram.
func (e *endpoint) Poll() (transport.Packet, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.inbox) == 0 {
		return transport.Packet{}, false
	}
	p := e.inbox[0]
	e.inbox = e.inbox[1:]
	return p, true
}

// Update counts housekeeping calls.
func (e *endpoint) Update() {
	e.mu.Lock()
	e.updates++
	e.mu.Unlock()
}

// Updates returns how many times Update was called.
func (e *endpoint) Updates() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.updates
}

// Pending returns the number of queued datagrams.
func (e *endpoint) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.inbox)
}

// Node is a leaf endpoint.
type Node struct {
	endpoint

	addr   transport.Address
	nodeID uint8

	begins int
	renews int
	checks int
	writes int
}

// Begin joins the mesh, reusing the address previously held by nodeID.
func (n *Node) Begin(nodeID uint8) error {
	h := n.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	n.begins++
	if n.closed {
		return transport.ErrClosed
	}
	if h.failBegin {
		return ErrBeginFailed
	}
	h.assign(n, nodeID, false)
	return nil
}

// Write sends data to the gateway.
func (n *Node) Write(data []byte, kind transport.Kind) error {
	h := n.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	n.writes++
	if n.closed {
		return transport.ErrClosed
	}
	if !n.joined {
		return transport.ErrNotJoined
	}
	return h.deliver(n.addr, transport.RootAddress, kind, data)
}

// CheckConnection reports the health set with Hub.SetHealthy.
func (n *Node) CheckConnection() bool {
	h := n.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	n.checks++
	return n.joined && !h.unhealthy
}

// RenewAddress moves the node to a fresh address.
func (n *Node) RenewAddress() error {
	h := n.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	n.renews++
	if n.closed {
		return transport.ErrClosed
	}
	if h.failRenew || !n.joined {
		return ErrRenewFailed
	}
	h.assign(n, n.nodeID, true)
	return nil
}

// Close detaches the node from the mesh.
func (n *Node) Close() error {
	h := n.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	if n.joined {
		delete(h.nodes, n.addr)
	}
	n.joined = false
	n.closed = true
	return nil
}

// Address returns the node's current address.
func (n *Node) Address() transport.Address {
	n.hub.mu.Lock()
	defer n.hub.mu.Unlock()
	return n.addr
}

// Stats returns how many times Begin, RenewAddress, CheckConnection and
// Write were called.
func (n *Node) Stats() (begins, renews, checks, writes int) {
	n.hub.mu.Lock()
	defer n.hub.mu.Unlock()
	return n.begins, n.renews, n.checks, n.writes
}

// Gateway is the root endpoint.
type Gateway struct {
	endpoint

	dhcp   int
	writes map[transport.Address]int
}

// Begin joins the mesh as the root. The node id is ignored.
func (g *Gateway) Begin(uint8) error {
	h := g.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	if g.closed {
		return transport.ErrClosed
	}
	if h.failBegin {
		return ErrBeginFailed
	}
	g.joined = true
	return nil
}

// WriteTo sends data to a node.
func (g *Gateway) WriteTo(data []byte, kind transport.Kind, to transport.Address) error {
	h := g.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	if g.writes == nil {
		g.writes = make(map[transport.Address]int)
	}
	g.writes[to]++
	if g.closed {
		return transport.ErrClosed
	}
	if !g.joined {
		return transport.ErrNotJoined
	}
	return h.deliver(transport.RootAddress, to, kind, data)
}

// KnownAddresses returns the addresses of joined nodes in ascending order.
func (g *Gateway) KnownAddresses() []transport.Address {
	h := g.hub
	h.mu.Lock()
	addrs := make([]transport.Address, 0, len(h.nodes))
	for a := range h.nodes {
		addrs = append(addrs, a)
	}
	h.mu.Unlock()

	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// DHCP counts address maintenance calls. Addresses are assigned
// synchronously by Begin.
func (g *Gateway) DHCP() {
	g.hub.mu.Lock()
	g.dhcp++
	g.hub.mu.Unlock()
}

// DHCPCalls returns how many times DHCP was called.
func (g *Gateway) DHCPCalls() int {
	g.hub.mu.Lock()
	defer g.hub.mu.Unlock()
	return g.dhcp
}

// WriteAttempts returns how many writes were attempted to addr.
func (g *Gateway) WriteAttempts(addr transport.Address) int {
	g.hub.mu.Lock()
	defer g.hub.mu.Unlock()
	return g.writes[addr]
}

// Close detaches the gateway.
func (g *Gateway) Close() error {
	g.hub.mu.Lock()
	defer g.hub.mu.Unlock()
	g.joined = false
	g.closed = true
	return nil
}
