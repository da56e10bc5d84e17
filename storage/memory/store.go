// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/absmach/mqttsn/storage"
)

var _ storage.AddressTable = (*AddressTable)(nil)

// AddressTable is an in-memory implementation of storage.AddressTable.
type AddressTable struct {
	mu     sync.RWMutex
	nodes  map[uint8]storage.Assignment // nodeID -> assignment
	byAddr map[uint16]uint8             // address -> nodeID
}

// New creates a new in-memory address table.
func New() *AddressTable {
	return &AddressTable{
		nodes:  make(map[uint8]storage.Assignment),
		byAddr: make(map[uint16]uint8),
	}
}

// Put creates or replaces the assignment of a node.
func (t *AddressTable) Put(ctx context.Context, a storage.Assignment) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if owner, ok := t.byAddr[a.Address]; ok && owner != a.NodeID {
		return storage.ErrAddressInUse
	}
	if old, ok := t.nodes[a.NodeID]; ok {
		delete(t.byAddr, old.Address)
	}
	t.nodes[a.NodeID] = a
	t.byAddr[a.Address] = a.NodeID
	return nil
}

// ByNode returns the assignment of a node id.
func (t *AddressTable) ByNode(ctx context.Context, nodeID uint8) (*storage.Assignment, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	a, ok := t.nodes[nodeID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &a, nil
}

// ByAddress returns the assignment holding addr.
func (t *AddressTable) ByAddress(ctx context.Context, addr uint16) (*storage.Assignment, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	id, ok := t.byAddr[addr]
	if !ok {
		return nil, storage.ErrNotFound
	}
	a := t.nodes[id]
	return &a, nil
}

// List returns all assignments ordered by address.
func (t *AddressTable) List(ctx context.Context) ([]storage.Assignment, error) {
	t.mu.RLock()
	out := make([]storage.Assignment, 0, len(t.nodes))
	for _, a := range t.nodes {
		out = append(out, a)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

// Delete removes the assignment of a node id.
func (t *AddressTable) Delete(ctx context.Context, nodeID uint8) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if a, ok := t.nodes[nodeID]; ok {
		delete(t.byAddr, a.Address)
		delete(t.nodes, nodeID)
	}
	return nil
}

// Close is a no-op for the in-memory table.
func (t *AddressTable) Close() error {
	return nil
}
