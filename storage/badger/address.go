// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/absmach/mqttsn/storage"
	"github.com/dgraph-io/badger/v4"
)

var _ storage.AddressTable = (*AddressTable)(nil)

const (
	nodePrefix = "node:"
	addrPrefix = "addr:"
)

// AddressTable implements storage.AddressTable using BadgerDB.
//
// Key format: node:{nodeID} -> JSON assignment, addr:{address} -> nodeID.
type AddressTable struct {
	db    *badger.DB
	close func() error
}

func nodeKey(id uint8) []byte {
	return []byte(fmt.Sprintf("%s%d", nodePrefix, id))
}

func addrKey(addr uint16) []byte {
	return []byte(fmt.Sprintf("%s%d", addrPrefix, addr))
}

// Put creates or replaces the assignment of a node.
func (t *AddressTable) Put(ctx context.Context, a storage.Assignment) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal assignment: %w", err)
	}

	return t.db.Update(func(txn *badger.Txn) error {
		owner, err := getOwner(txn, a.Address)
		switch {
		case err == nil && owner != a.NodeID:
			return storage.ErrAddressInUse
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return err
		}

		old, err := getAssignment(txn, a.NodeID)
		switch {
		case err == nil && old.Address != a.Address:
			if err := txn.Delete(addrKey(old.Address)); err != nil {
				return err
			}
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return err
		}

		if err := txn.Set(nodeKey(a.NodeID), data); err != nil {
			return err
		}
		return txn.Set(addrKey(a.Address), []byte{a.NodeID})
	})
}

// ByNode returns the assignment of a node id.
func (t *AddressTable) ByNode(ctx context.Context, nodeID uint8) (*storage.Assignment, error) {
	var a *storage.Assignment
	err := t.db.View(func(txn *badger.Txn) error {
		var err error
		a, err = getAssignment(txn, nodeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ByAddress returns the assignment holding addr.
func (t *AddressTable) ByAddress(ctx context.Context, addr uint16) (*storage.Assignment, error) {
	var a *storage.Assignment
	err := t.db.View(func(txn *badger.Txn) error {
		id, err := getOwner(txn, addr)
		if err != nil {
			return err
		}
		a, err = getAssignment(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// List returns all assignments ordered by address.
func (t *AddressTable) List(ctx context.Context) ([]storage.Assignment, error) {
	var out []storage.Assignment

	err := t.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(nodePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var a storage.Assignment
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &a)
			}); err != nil {
				return err
			}
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

// Delete removes the assignment of a node id.
func (t *AddressTable) Delete(ctx context.Context, nodeID uint8) error {
	return t.db.Update(func(txn *badger.Txn) error {
		a, err := getAssignment(txn, nodeID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := txn.Delete(addrKey(a.Address)); err != nil {
			return err
		}
		return txn.Delete(nodeKey(nodeID))
	})
}

// Close closes the underlying store.
func (t *AddressTable) Close() error {
	if t.close == nil {
		return nil
	}
	return t.close()
}

func getAssignment(txn *badger.Txn, nodeID uint8) (*storage.Assignment, error) {
	item, err := txn.Get(nodeKey(nodeID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	a := &storage.Assignment{}
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, a)
	}); err != nil {
		return nil, err
	}
	return a, nil
}

func getOwner(txn *badger.Txn, addr uint16) (uint8, error) {
	item, err := txn.Get(addrKey(addr))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, storage.ErrNotFound
		}
		return 0, err
	}

	var id uint8
	err = item.Value(func(val []byte) error {
		if len(val) != 1 {
			return fmt.Errorf("corrupt address entry for %d", addr)
		}
		id = val[0]
		return nil
	})
	return id, err
}
