// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package transport defines the mesh network contract the MQTT-SN sessions
// run on. A mesh gives every participant a 16-bit address, delivers tagged
// datagrams and repairs its own topology when asked.
package transport

import (
	"errors"
	"fmt"
)

// Address is a logical mesh address. The gateway is the mesh root and
// always holds RootAddress.
type Address uint16

// RootAddress is the address of the gateway.
const RootAddress Address = 0

// MaxPayload is the largest payload a single mesh datagram carries.
const MaxPayload = 144

func (a Address) String() string {
	return fmt.Sprintf("0%o", uint16(a))
}

// Kind is the one-octet application tag carried by every mesh datagram.
type Kind byte

// KindMQTTSN tags MQTT-SN traffic. Datagrams of other kinds are ignored by
// the sessions.
const KindMQTTSN Kind = 'M'

// Packet is a datagram taken from the mesh.
type Packet struct {
	Kind Kind
	From Address
	Data []byte
}

// Common errors.
var (
	ErrClosed         = errors.New("mesh closed")
	ErrNotJoined      = errors.New("not joined to the mesh")
	ErrUnknownAddress = errors.New("unknown mesh address")
	ErrPayloadTooBig  = errors.New("payload exceeds mesh frame size")
)

// Mesh is the part of the contract shared by nodes and the gateway.
type Mesh interface {
	// Begin joins the mesh under nodeID. Calling it again rejoins.
	Begin(nodeID uint8) error

	// Update performs housekeeping. It must be called regularly and never
	// blocks for long.
	Update()

	// Poll returns the next pending datagram, if any, without blocking.
	Poll() (Packet, bool)

	// Close releases the mesh.
	Close() error
}

// NodeMesh is the mesh as seen from a leaf node.
type NodeMesh interface {
	Mesh

	// Write sends data towards the mesh root.
	Write(data []byte, kind Kind) error

	// CheckConnection reports whether the node is still reachable from
	// the root.
	CheckConnection() bool

	// RenewAddress asks the root for a fresh address.
	RenewAddress() error
}

// GatewayMesh is the mesh as seen from the root.
type GatewayMesh interface {
	Mesh

	// WriteTo sends data to a single address.
	WriteTo(data []byte, kind Kind, to Address) error

	// KnownAddresses returns the addresses currently assigned to nodes.
	KnownAddresses() []Address

	// DHCP services pending address requests.
	DHCP()
}
