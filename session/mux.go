// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package session

import "github.com/absmach/mqttsn/transport"

var (
	_ GatewayHandler = (*Mux)(nil)
	_ NodeHandler    = (*NodeMux)(nil)
)

// Mux routes gateway messages to a handler per message type. Handlers must
// be registered before the mux is passed to Loop.
type Mux struct {
	handlers [256]GatewayHandler
	fallback GatewayHandler
}

// NewMux creates an empty Mux.
func NewMux() *Mux {
	return &Mux{}
}

// Handle registers h for msgType, replacing any previous handler.
func (m *Mux) Handle(msgType byte, h GatewayHandler) {
	m.handlers[msgType] = h
}

// HandleFunc registers f for msgType.
func (m *Mux) HandleFunc(msgType byte, f func(msgType byte, data []byte, from transport.Address)) {
	m.Handle(msgType, GatewayHandlerFunc(f))
}

// Fallback sets the handler for types with no registered handler.
func (m *Mux) Fallback(h GatewayHandler) {
	m.fallback = h
}

// HandleMessage dispatches to the handler registered for msgType.
func (m *Mux) HandleMessage(msgType byte, data []byte, from transport.Address) {
	if h := m.handlers[msgType]; h != nil {
		h.HandleMessage(msgType, data, from)
		return
	}
	if m.fallback != nil {
		m.fallback.HandleMessage(msgType, data, from)
	}
}

// NodeMux is Mux for nodes.
type NodeMux struct {
	handlers [256]NodeHandler
	fallback NodeHandler
}

// NewNodeMux creates an empty NodeMux.
func NewNodeMux() *NodeMux {
	return &NodeMux{}
}

// Handle registers h for msgType, replacing any previous handler.
func (m *NodeMux) Handle(msgType byte, h NodeHandler) {
	m.handlers[msgType] = h
}

// HandleFunc registers f for msgType.
func (m *NodeMux) HandleFunc(msgType byte, f func(msgType byte, data []byte)) {
	m.Handle(msgType, NodeHandlerFunc(f))
}

// Fallback sets the handler for types with no registered handler.
func (m *NodeMux) Fallback(h NodeHandler) {
	m.fallback = h
}

// HandleMessage dispatches to the handler registered for msgType.
func (m *NodeMux) HandleMessage(msgType byte, data []byte) {
	if h := m.handlers[msgType]; h != nil {
		h.HandleMessage(msgType, data)
		return
	}
	if m.fallback != nil {
		m.fallback.HandleMessage(msgType, data)
	}
}
