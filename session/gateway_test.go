// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/absmach/mqttsn/packets"
	"github.com/absmach/mqttsn/transport"
	"github.com/absmach/mqttsn/transport/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupGateway(t *testing.T, nodes int, opts ...Option) (*memory.Hub, *memory.Gateway, []*memory.Node, *Gateway) {
	t.Helper()
	hub := memory.NewHub()
	mesh := hub.Gateway()

	opts = append([]Option{WithRetryDelay(testDelay), WithMaxRetries(4), WithPollInterval(time.Millisecond)}, opts...)
	g := NewGateway(mesh, opts...)
	require.NoError(t, g.Setup())

	var ns []*memory.Node
	for i := 1; i <= nodes; i++ {
		n := hub.Node()
		require.NoError(t, n.Begin(uint8(i)))
		ns = append(ns, n)
	}
	return hub, mesh, ns, g
}

type replierStub struct {
	mu    sync.Mutex
	calls []recordedReply
	err   error
}

type recordedReply struct {
	msg packets.Message
	to  transport.Address
}

func (r *replierStub) SendTo(_ context.Context, msg packets.Message, to transport.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedReply{msg: msg, to: to})
	return r.err
}

func TestGatewaySetup(t *testing.T) {
	hub := memory.NewHub()
	hub.FailBegin(true)
	g := NewGateway(hub.Gateway())
	assert.ErrorIs(t, g.Setup(), ErrJoinFailed)
	assert.False(t, g.Ready())
	assert.ErrorIs(t, g.SendTo(context.Background(), &packets.PingResp{}, 1), ErrNotSetup)
	assert.ErrorIs(t, g.LoopFor(context.Background(), NewMux(), time.Millisecond), ErrNotSetup)

	hub.FailBegin(false)
	require.NoError(t, g.Setup())
	assert.True(t, g.Ready())
	assert.Equal(t, 1, hub.Gateway().DHCPCalls())
}

func TestGatewaySendToRetryBound(t *testing.T) {
	hub, mesh, nodes, g := setupGateway(t, 1)
	addr := nodes[0].Address()
	hub.FailWrites(addr, true)

	start := time.Now()
	err := g.SendTo(context.Background(), &packets.ConnAck{}, addr)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 4, mesh.WriteAttempts(addr))
	assert.GreaterOrEqual(t, elapsed, 4*testDelay)

	begins, renews, checks, _ := nodes[0].Stats()
	assert.Equal(t, []int{1, 0, 0}, []int{begins, renews, checks})
}

func TestGatewaySendToAllCompleteness(t *testing.T) {
	hub, mesh, nodes, g := setupGateway(t, 3)
	hub.FailWrites(nodes[1].Address(), true)

	start := time.Now()
	g.SendToAll(context.Background(), &packets.Advertise{GatewayID: 0xfe, Duration: 5})
	elapsed := time.Since(start)

	assert.Equal(t, 1, mesh.WriteAttempts(nodes[0].Address()))
	assert.Equal(t, 4, mesh.WriteAttempts(nodes[1].Address()))
	assert.Equal(t, 1, mesh.WriteAttempts(nodes[2].Address()))
	assert.GreaterOrEqual(t, elapsed, 4*testDelay)

	for _, i := range []int{0, 2} {
		p, ok := nodes[i].Poll()
		require.True(t, ok, "node %d", i+1)
		assert.Equal(t, packets.AdvertiseType, p.Data[1])
	}
	assert.Equal(t, 0, nodes[1].Pending())
}

func TestGatewaySendToAllStopsOnCancel(t *testing.T) {
	hub, mesh, nodes, g := setupGateway(t, 2, WithRetryDelay(time.Second))
	hub.FailWrites(nodes[0].Address(), true)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	g.SendToAll(ctx, &packets.Advertise{})

	assert.Equal(t, 0, mesh.WriteAttempts(nodes[1].Address()))
}

func TestGatewayLoopDispatchesSender(t *testing.T) {
	hub, mesh, nodes, g := setupGateway(t, 2)

	require.NoError(t, nodes[1].Write((&packets.Connect{ClientID: "b"}).Encode(), transport.KindMQTTSN))
	require.NoError(t, nodes[0].Write((&packets.PingReq{}).Encode(), transport.KindMQTTSN))
	require.NoError(t, nodes[0].Write([]byte("not mqtt-sn"), 'X'))
	require.NoError(t, hub.Inject(transport.RootAddress, transport.Packet{Kind: transport.KindMQTTSN, From: 9, Data: []byte{1}}))

	var got []recorded
	mux := NewMux()
	mux.Fallback(GatewayHandlerFunc(func(msgType byte, data []byte, from transport.Address) {
		got = append(got, recorded{msgType: msgType, from: from})
	}))
	dhcpBefore := mesh.DHCPCalls()
	require.NoError(t, g.LoopFor(context.Background(), mux, 20*time.Millisecond))

	require.Len(t, got, 2)
	assert.Equal(t, recorded{msgType: packets.ConnectType, from: nodes[1].Address()}, got[0])
	assert.Equal(t, recorded{msgType: packets.PingReqType, from: nodes[0].Address()}, got[1])
	assert.Greater(t, mesh.DHCPCalls(), dhcpBefore)
}

func TestGatewayLoopBounded(t *testing.T) {
	_, _, _, g := setupGateway(t, 0)

	start := time.Now()
	require.NoError(t, g.LoopFor(context.Background(), NewMux(), 200*time.Millisecond))
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	assert.Less(t, elapsed, 400*time.Millisecond)
}

func TestAcceptor(t *testing.T) {
	r := &replierStub{}
	a := NewAcceptor(context.Background(), r, nil)

	a.HandleMessage(packets.ConnectType, (&packets.Connect{ClientID: "hello node!"}).Encode(), 5)
	require.Len(t, r.calls, 1)
	assert.Equal(t, transport.Address(5), r.calls[0].to)
	assert.Equal(t, &packets.ConnAck{ReturnCode: packets.Accepted}, r.calls[0].msg)

	a.HandleMessage(packets.PingReqType, (&packets.PingReq{}).Encode(), 5)
	a.HandleMessage(packets.ConnectType, (&packets.Connect{}).Encode()[:10], 5)
	assert.Len(t, r.calls, 1)
}

func TestAcceptorOverMesh(t *testing.T) {
	hub, _, _, g := setupGateway(t, 0)
	n := NewNode(hub.Node(), WithRetryDelay(testDelay), WithPollInterval(time.Millisecond))
	require.NoError(t, n.Setup(1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Loop(ctx, NewAcceptor(ctx, g, nil)) }()
	defer func() {
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	}()

	require.NoError(t, n.Send(ctx, &packets.Connect{ClientID: "hello node!", Duration: 10}))

	var ack packets.ConnAck
	got := false
	h := NodeHandlerFunc(func(msgType byte, data []byte) {
		if msgType == packets.ConnAckType && packets.Unmarshal(data, &ack) == nil {
			got = true
		}
	})
	require.Eventually(t, func() bool {
		_ = n.LoopFor(ctx, h, 10*time.Millisecond)
		return got
	}, time.Second, time.Millisecond)
	assert.Equal(t, packets.Accepted, ack.ReturnCode)
}

func TestRepliesStopOnCancel(t *testing.T) {
	hub, _, nodes, g := setupGateway(t, 1, WithRetryDelay(time.Second))
	from := nodes[0].Address()
	hub.FailWrites(from, true)

	cases := []struct {
		name    string
		handler func(ctx context.Context) GatewayHandler
		req     packets.Message
	}{
		{
			name:    "acceptor",
			handler: func(ctx context.Context) GatewayHandler { return NewAcceptor(ctx, g, nil) },
			req:     &packets.Connect{ClientID: "n1"},
		},
		{
			name:    "responder",
			handler: func(ctx context.Context) GatewayHandler { return PingResponder(ctx, g, nil) },
			req:     &packets.PingReq{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			start := time.Now()
			tc.handler(ctx).HandleMessage(tc.req.Type(), tc.req.Encode(), from)
			assert.Less(t, time.Since(start), 500*time.Millisecond)
		})
	}
}

func TestResponders(t *testing.T) {
	r := &replierStub{}
	mux := NewMux()
	mux.Handle(packets.PingReqType, PingResponder(context.Background(), r, nil))
	mux.Handle(packets.DisconnectType, DisconnectResponder(context.Background(), r, nil))
	mux.Handle(packets.SubscribeType, SubscribeResponder(context.Background(), r, nil))
	mux.Handle(packets.UnsubscribeType, UnsubscribeResponder(context.Background(), r, nil))
	mux.Handle(packets.RegisterType, RegisterResponder(context.Background(), r, nil))

	qos1 := packets.NewFlags(packets.FlagOptions{QoS: packets.QoS1})
	in := []packets.Message{
		&packets.PingReq{},
		&packets.Disconnect{Duration: 3},
		&packets.Subscribe{Flags: qos1, MsgID: 7, TopicID: 9},
		&packets.Unsubscribe{MsgID: 8, TopicID: 9},
		&packets.Register{TopicID: 4, MsgID: 5},
		&packets.WillMsgReq{},
	}
	for _, m := range in {
		mux.HandleMessage(m.Type(), m.Encode(), 3)
	}

	want := []packets.Message{
		&packets.PingResp{},
		&packets.Disconnect{},
		&packets.SubAck{Flags: qos1, TopicID: 9, MsgID: 7, ReturnCode: packets.Accepted},
		&packets.UnsubAck{MsgID: 8},
		&packets.RegAck{TopicID: 4, MsgID: 5, ReturnCode: packets.Accepted},
	}
	require.Len(t, r.calls, len(want))
	for i, w := range want {
		assert.Equal(t, w, r.calls[i].msg)
		assert.Equal(t, transport.Address(3), r.calls[i].to)
	}

	// A responder registered under the wrong type ignores the message.
	PingResponder(context.Background(), r, nil).HandleMessage(packets.ConnectType, (&packets.Connect{}).Encode(), 3)
	assert.Len(t, r.calls, len(want))
}

func TestMux(t *testing.T) {
	var hits []string
	mux := NewMux()
	mux.HandleFunc(packets.ConnectType, func(byte, []byte, transport.Address) { hits = append(hits, "connect") })
	mux.HandleMessage(packets.PingReqType, nil, 1)
	mux.Fallback(GatewayHandlerFunc(func(byte, []byte, transport.Address) { hits = append(hits, "fallback") }))
	mux.HandleMessage(packets.ConnectType, nil, 1)
	mux.HandleMessage(packets.PingReqType, nil, 1)
	assert.Equal(t, []string{"connect", "fallback"}, hits)

	hits = nil
	nmux := NewNodeMux()
	nmux.HandleFunc(packets.ConnAckType, func(byte, []byte) { hits = append(hits, "connack") })
	nmux.HandleMessage(packets.AdvertiseType, nil)
	nmux.Fallback(NodeHandlerFunc(func(byte, []byte) { hits = append(hits, "fallback") }))
	nmux.HandleMessage(packets.ConnAckType, nil)
	nmux.HandleMessage(packets.AdvertiseType, nil)
	assert.Equal(t, []string{"connack", "fallback"}, hits)
}

type advertisedStub struct {
	loops     int
	failAfter int
	sent      []packets.Message
}

func (a *advertisedStub) LoopFor(ctx context.Context, _ GatewayHandler, _ time.Duration) error {
	a.loops++
	if a.loops > a.failAfter {
		return context.Canceled
	}
	return nil
}

func (a *advertisedStub) SendToAll(_ context.Context, msg packets.Message) {
	a.sent = append(a.sent, msg)
}

func TestAdvertiser(t *testing.T) {
	stub := &advertisedStub{failAfter: 2}
	adv := &Advertiser{GatewayID: 0xfe, Duration: 5, Interval: time.Millisecond}

	err := adv.Run(context.Background(), stub, NewMux())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, stub.loops)
	require.Len(t, stub.sent, 2)
	assert.Equal(t, &packets.Advertise{GatewayID: 0xfe, Duration: 5}, stub.sent[0])
}
