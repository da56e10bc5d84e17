// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package storage defines the gateway's address table: the record of which
// mesh address and network endpoint each node id currently holds.
package storage

import (
	"context"
	"errors"
	"time"
)

// Common errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrAddressInUse = errors.New("address already assigned to another node")
)

// Assignment binds a node id to a mesh address.
type Assignment struct {
	UpdatedAt time.Time `json:"updated_at"`
	// Endpoint is the transport-level location of the node, e.g. a UDP
	// host:port. It is empty for in-process meshes.
	Endpoint string `json:"endpoint,omitempty"`
	Address  uint16 `json:"address"`
	NodeID   uint8  `json:"node_id"`
}

// AddressTable stores address assignments.
type AddressTable interface {
	// Put creates or replaces the assignment for a.NodeID. It fails with
	// ErrAddressInUse if a.Address is held by a different node.
	Put(ctx context.Context, a Assignment) error

	// ByNode returns the assignment of a node id.
	ByNode(ctx context.Context, nodeID uint8) (*Assignment, error)

	// ByAddress returns the assignment holding a mesh address.
	ByAddress(ctx context.Context, addr uint16) (*Assignment, error)

	// List returns every assignment ordered by address.
	List(ctx context.Context) ([]Assignment, error)

	// Delete removes the assignment of a node id. Deleting an unknown node
	// id is not an error.
	Delete(ctx context.Context, nodeID uint8) error

	// Close releases the table's resources.
	Close() error
}
