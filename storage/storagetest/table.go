// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package storagetest holds behaviour tests shared by every
// storage.AddressTable implementation.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/absmach/mqttsn/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunAddressTable exercises an address table created fresh for every
// subtest by newTable.
func RunAddressTable(t *testing.T, newTable func(t *testing.T) storage.AddressTable) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()

	t.Run("put and get", func(t *testing.T) {
		tbl := newTable(t)
		a := storage.Assignment{NodeID: 7, Address: 3, Endpoint: "10.0.0.7:4000", UpdatedAt: now}
		require.NoError(t, tbl.Put(ctx, a))

		got, err := tbl.ByNode(ctx, 7)
		require.NoError(t, err)
		assertAssignment(t, a, *got)

		got, err = tbl.ByAddress(ctx, 3)
		require.NoError(t, err)
		assertAssignment(t, a, *got)
	})

	t.Run("not found", func(t *testing.T) {
		tbl := newTable(t)
		_, err := tbl.ByNode(ctx, 1)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = tbl.ByAddress(ctx, 1)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("reassign moves address", func(t *testing.T) {
		tbl := newTable(t)
		require.NoError(t, tbl.Put(ctx, storage.Assignment{NodeID: 7, Address: 3, UpdatedAt: now}))
		require.NoError(t, tbl.Put(ctx, storage.Assignment{NodeID: 7, Address: 9, UpdatedAt: now}))

		_, err := tbl.ByAddress(ctx, 3)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		got, err := tbl.ByAddress(ctx, 9)
		require.NoError(t, err)
		assert.Equal(t, uint8(7), got.NodeID)
	})

	t.Run("address in use", func(t *testing.T) {
		tbl := newTable(t)
		require.NoError(t, tbl.Put(ctx, storage.Assignment{NodeID: 1, Address: 5, UpdatedAt: now}))
		err := tbl.Put(ctx, storage.Assignment{NodeID: 2, Address: 5, UpdatedAt: now})
		assert.ErrorIs(t, err, storage.ErrAddressInUse)
	})

	t.Run("list sorted by address", func(t *testing.T) {
		tbl := newTable(t)
		for _, a := range []storage.Assignment{
			{NodeID: 1, Address: 30},
			{NodeID: 2, Address: 10},
			{NodeID: 3, Address: 20},
		} {
			a.UpdatedAt = now
			require.NoError(t, tbl.Put(ctx, a))
		}

		list, err := tbl.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []uint16{10, 20, 30}, []uint16{list[0].Address, list[1].Address, list[2].Address})
	})

	t.Run("delete", func(t *testing.T) {
		tbl := newTable(t)
		require.NoError(t, tbl.Put(ctx, storage.Assignment{NodeID: 4, Address: 8, UpdatedAt: now}))
		require.NoError(t, tbl.Delete(ctx, 4))
		require.NoError(t, tbl.Delete(ctx, 4))

		_, err := tbl.ByNode(ctx, 4)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = tbl.ByAddress(ctx, 8)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		list, err := tbl.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func assertAssignment(t *testing.T, want, got storage.Assignment) {
	t.Helper()
	assert.Equal(t, want.NodeID, got.NodeID)
	assert.Equal(t, want.Address, got.Address)
	assert.Equal(t, want.Endpoint, got.Endpoint)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updated_at: want %v, got %v", want.UpdatedAt, got.UpdatedAt)
}
