// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package badger

import (
	"context"
	"testing"
	"time"

	"github.com/absmach/mqttsn/storage"
	"github.com/absmach/mqttsn/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := New(Config{Dir: dir})
	require.NoError(t, err)
	return s
}

func TestAddressTable(t *testing.T) {
	storagetest.RunAddressTable(t, func(t *testing.T) storage.AddressTable {
		s := setupStore(t, t.TempDir())
		t.Cleanup(func() { _ = s.Close() })
		return s.Addresses()
	})
}

func TestAssignmentsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := setupStore(t, dir)
	a := storage.Assignment{NodeID: 12, Address: 40, Endpoint: "192.168.1.12:1884", UpdatedAt: time.Now()}
	require.NoError(t, s.Addresses().Put(ctx, a))
	require.NoError(t, s.Close())

	s = setupStore(t, dir)
	defer s.Close()

	got, err := s.Addresses().ByAddress(ctx, 40)
	require.NoError(t, err)
	assert.Equal(t, a.NodeID, got.NodeID)
	assert.Equal(t, a.Endpoint, got.Endpoint)
}

func TestCloseIdempotent(t *testing.T) {
	s := setupStore(t, t.TempDir())
	require.NoError(t, s.Close())
	require.NoError(t, s.Addresses().Close())
}
