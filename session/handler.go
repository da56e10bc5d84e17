// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package session

import "github.com/absmach/mqttsn/transport"

// NodeHandler receives messages dispatched by Node.Loop. data holds the
// whole message, Length and MsgType included, and must not be retained.
type NodeHandler interface {
	HandleMessage(msgType byte, data []byte)
}

// NodeHandlerFunc adapts a function to NodeHandler.
type NodeHandlerFunc func(msgType byte, data []byte)

// HandleMessage calls f.
func (f NodeHandlerFunc) HandleMessage(msgType byte, data []byte) {
	f(msgType, data)
}

// GatewayHandler receives messages dispatched by Gateway.Loop together with
// the sender's mesh address.
type GatewayHandler interface {
	HandleMessage(msgType byte, data []byte, from transport.Address)
}

// GatewayHandlerFunc adapts a function to GatewayHandler.
type GatewayHandlerFunc func(msgType byte, data []byte, from transport.Address)

// HandleMessage calls f.
func (f GatewayHandlerFunc) HandleMessage(msgType byte, data []byte, from transport.Address) {
	f(msgType, data, from)
}
