// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"testing"

	"github.com/absmach/mqttsn/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMesh(t *testing.T, nodes int) (*Hub, *Gateway, []*Node) {
	t.Helper()
	h := NewHub()
	gw := h.Gateway()
	require.NoError(t, gw.Begin(0))

	var ns []*Node
	for i := 1; i <= nodes; i++ {
		n := h.Node()
		require.NoError(t, n.Begin(uint8(i)))
		ns = append(ns, n)
	}
	return h, gw, ns
}

func TestNodeToGateway(t *testing.T) {
	_, gw, nodes := setupMesh(t, 1)

	require.NoError(t, nodes[0].Write([]byte{2, 0x16}, transport.KindMQTTSN))

	p, ok := gw.Poll()
	require.True(t, ok)
	assert.Equal(t, transport.KindMQTTSN, p.Kind)
	assert.Equal(t, nodes[0].Address(), p.From)
	assert.Equal(t, []byte{2, 0x16}, p.Data)

	_, ok = gw.Poll()
	assert.False(t, ok)
}

func TestGatewayToNode(t *testing.T) {
	_, gw, nodes := setupMesh(t, 2)

	assert.Equal(t, []transport.Address{1, 2}, gw.KnownAddresses())
	require.NoError(t, gw.WriteTo([]byte("x"), 'T', 2))

	assert.Equal(t, 0, nodes[0].Pending())
	p, ok := nodes[1].Poll()
	require.True(t, ok)
	assert.Equal(t, transport.Kind('T'), p.Kind)
	assert.Equal(t, transport.RootAddress, p.From)

	assert.ErrorIs(t, gw.WriteTo([]byte("x"), 'T', 9), transport.ErrUnknownAddress)
	assert.Equal(t, 1, gw.WriteAttempts(9))
}

func TestWriteFaults(t *testing.T) {
	h, gw, nodes := setupMesh(t, 1)

	h.SetWriteFailures(transport.RootAddress, 2)
	assert.ErrorIs(t, nodes[0].Write([]byte{1}, transport.KindMQTTSN), ErrWriteFailed)
	assert.ErrorIs(t, nodes[0].Write([]byte{1}, transport.KindMQTTSN), ErrWriteFailed)
	assert.NoError(t, nodes[0].Write([]byte{1}, transport.KindMQTTSN))

	h.FailWrites(1, true)
	assert.ErrorIs(t, gw.WriteTo([]byte{1}, transport.KindMQTTSN, 1), ErrWriteFailed)
	h.FailWrites(1, false)
	assert.NoError(t, gw.WriteTo([]byte{1}, transport.KindMQTTSN, 1))
}

func TestRejoinKeepsAddressRenewChangesIt(t *testing.T) {
	h, gw, nodes := setupMesh(t, 1)
	n := nodes[0]
	first := n.Address()

	require.NoError(t, n.Begin(1))
	assert.Equal(t, first, n.Address())

	require.NoError(t, n.RenewAddress())
	assert.NotEqual(t, first, n.Address())
	assert.Equal(t, []transport.Address{n.Address()}, gw.KnownAddresses())

	h.FailRenew(true)
	assert.ErrorIs(t, n.RenewAddress(), ErrRenewFailed)

	h.FailBegin(true)
	assert.ErrorIs(t, h.Node().Begin(5), ErrBeginFailed)
}

func TestHealthAndUnjoined(t *testing.T) {
	h, _, nodes := setupMesh(t, 1)
	assert.True(t, nodes[0].CheckConnection())
	h.SetHealthy(false)
	assert.False(t, nodes[0].CheckConnection())

	fresh := h.Node()
	assert.False(t, fresh.CheckConnection())
	assert.ErrorIs(t, fresh.Write([]byte{1}, transport.KindMQTTSN), transport.ErrNotJoined)

	begins, renews, checks, writes := fresh.Stats()
	assert.Equal(t, []int{0, 0, 1, 1}, []int{begins, renews, checks, writes})
}

func TestPayloadLimitAndInject(t *testing.T) {
	h, gw, nodes := setupMesh(t, 1)
	big := make([]byte, transport.MaxPayload+1)
	assert.ErrorIs(t, nodes[0].Write(big, transport.KindMQTTSN), transport.ErrPayloadTooBig)

	require.NoError(t, h.Inject(transport.RootAddress, transport.Packet{Kind: 'X', From: 7, Data: big}))
	p, ok := gw.Poll()
	require.True(t, ok)
	assert.Len(t, p.Data, transport.MaxPayload+1)
}

func TestClose(t *testing.T) {
	_, gw, nodes := setupMesh(t, 1)
	require.NoError(t, nodes[0].Close())
	assert.Empty(t, gw.KnownAddresses())
	assert.ErrorIs(t, nodes[0].Write([]byte{1}, transport.KindMQTTSN), transport.ErrClosed)

	gw.Update()
	gw.DHCP()
	assert.Equal(t, 1, gw.Updates())
	assert.Equal(t, 1, gw.DHCPCalls())
}
