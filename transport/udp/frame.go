// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package udp carries the mesh over UDP. Every datagram is a frame:
//
//	kind (1) | from (2, big-endian) | seq (2, big-endian) | payload
//
// Application kinds are passed through untouched and acknowledged by the
// receiver with an ack frame echoing their seq, so a write only succeeds
// once the peer has the frame. The kinds below are reserved for mesh
// control traffic.
package udp

import (
	"bytes"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/absmach/mqttsn/internal/bufpool"
	"github.com/absmach/mqttsn/packets/codec"
	"github.com/absmach/mqttsn/transport"
)

// Control frame kinds.
const (
	kindJoin   transport.Kind = 'J' // payload: node id, renew flag
	kindAssign transport.Kind = 'A' // payload: address
	kindPing   transport.Kind = 'P'
	kindPong   transport.Kind = 'p'
	kindAck    transport.Kind = 'K' // seq: acknowledged frame
)

const (
	frameHeaderSize = 5
	maxFrameSize    = frameHeaderSize + transport.MaxPayload

	defaultAckTimeout = 250 * time.Millisecond
)

// Frame errors.
var (
	ErrShortFrame   = errors.New("udp: frame shorter than header")
	ErrReservedKind = errors.New("udp: kind is reserved for mesh control")
	ErrJoinTimeout  = errors.New("udp: no address assignment received")
	ErrAckTimeout   = errors.New("udp: frame not acknowledged")
)

type frame struct {
	kind    transport.Kind
	from    transport.Address
	seq     uint16
	payload []byte
}

func reserved(k transport.Kind) bool {
	switch k {
	case kindJoin, kindAssign, kindPing, kindPong, kindAck:
		return true
	}
	return false
}

func encodeFrame(buf *bytes.Buffer, kind transport.Kind, from transport.Address, seq uint16, payload []byte) {
	buf.Grow(frameHeaderSize + len(payload))
	buf.WriteByte(byte(kind))
	buf.Write(codec.EncodeUint16(uint16(from)))
	buf.Write(codec.EncodeUint16(seq))
	buf.Write(payload)
}

// writeFrame encodes a frame into a pooled buffer and sends it to addr.
func writeFrame(conn *net.UDPConn, addr *net.UDPAddr, kind transport.Kind, from transport.Address, seq uint16, payload []byte) error {
	buf := bufpool.Get()
	defer bufpool.Put(buf)

	encodeFrame(buf, kind, from, seq, payload)
	_, err := conn.WriteToUDP(buf.Bytes(), addr)
	return err
}

// acks tracks application frames waiting for their ack.
type acks struct {
	mu      sync.Mutex
	next    uint16
	pending map[uint16]chan struct{}
}

func newAcks() *acks {
	return &acks{pending: make(map[uint16]chan struct{})}
}

// register reserves a non-zero seq and returns the channel its ack closes.
func (a *acks) register() (uint16, chan struct{}) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.next++
	if a.next == 0 {
		a.next = 1
	}
	ch := make(chan struct{})
	a.pending[a.next] = ch
	return a.next, ch
}

func (a *acks) resolve(seq uint16) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ch, ok := a.pending[seq]; ok {
		close(ch)
		delete(a.pending, seq)
	}
}

func (a *acks) forget(seq uint16) {
	a.mu.Lock()
	delete(a.pending, seq)
	a.mu.Unlock()
}

// sendAcked writes an application frame and waits for its ack, the timeout
// or done, whichever comes first.
func (a *acks) sendAcked(conn *net.UDPConn, addr *net.UDPAddr, kind transport.Kind, from transport.Address, payload []byte, timeout time.Duration, done <-chan struct{}) error {
	seq, acked := a.register()
	defer a.forget(seq)

	if err := writeFrame(conn, addr, kind, from, seq, payload); err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-acked:
		return nil
	case <-timer.C:
		return ErrAckTimeout
	case <-done:
		return transport.ErrClosed
	}
}

// decodeFrame returns a frame whose payload aliases b.
func decodeFrame(b []byte) (frame, error) {
	r := codec.NewReader(b)
	kind, err := r.ReadByte()
	if err != nil {
		return frame{}, ErrShortFrame
	}
	from, err := r.ReadUint16()
	if err != nil {
		return frame{}, ErrShortFrame
	}
	seq, err := r.ReadUint16()
	if err != nil {
		return frame{}, ErrShortFrame
	}
	payload, _ := r.ReadN(r.Remaining())
	return frame{kind: transport.Kind(kind), from: transport.Address(from), seq: seq, payload: payload}, nil
}
