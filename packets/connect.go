// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"errors"
	"fmt"
	"io"

	"github.com/absmach/mqttsn/packets/codec"
)

// ConnectLen is the encoded size of CONNECT.
const ConnectLen = 6 + ClientIDSize

// ErrProtocolID is returned when a CONNECT carries a protocol id other than 0x01.
var ErrProtocolID = errors.New("invalid protocol id")

// Connect is sent by a client to set up a connection.
type Connect struct {
	Flags Flags
	// Duration is the keep-alive period in seconds.
	Duration uint16
	// ClientID is written padded to ClientIDSize octets.
	ClientID string
}

func (pkt *Connect) Type() byte { return ConnectType }
func (pkt *Connect) Len() int   { return ConnectLen }

func (pkt *Connect) String() string {
	return fmt.Sprintf("%s\nflags: %s\nduration: %d\nclient_id: %s\n",
		headerString(pkt), pkt.Flags, pkt.Duration, pkt.ClientID)
}

func (pkt *Connect) Encode() []byte {
	b := header(pkt)
	b = append(b, byte(pkt.Flags), ProtocolID)
	b = codec.AppendUint16(b, pkt.Duration)
	return codec.AppendFixed(b, pkt.ClientID, ClientIDSize)
}

func (pkt *Connect) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *Connect) Unpack(r *codec.Reader) error {
	flags, err := r.ReadByte()
	if err != nil {
		return err
	}
	pkt.Flags = Flags(flags)

	pid, err := r.ReadByte()
	if err != nil {
		return err
	}
	if pid != ProtocolID {
		return fmt.Errorf("%w: 0x%02x", ErrProtocolID, pid)
	}

	if pkt.Duration, err = r.ReadUint16(); err != nil {
		return err
	}
	pkt.ClientID, err = r.ReadFixed(ClientIDSize)
	return err
}
