// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"
	"io"

	"github.com/absmach/mqttsn/packets/codec"
)

// PublishLen is the encoded size of PUBLISH.
const PublishLen = 7 + PublishSize

// Publish carries application data for a topic id.
type Publish struct {
	Flags   Flags
	TopicID uint16
	MsgID   uint16
	// Data occupies PublishSize octets on the wire. Shorter values are
	// zero-padded and decoding returns the whole block.
	Data []byte
}

func (pkt *Publish) Type() byte { return PublishType }
func (pkt *Publish) Len() int   { return PublishLen }

func (pkt *Publish) String() string {
	return fmt.Sprintf("%s\nflags: %s\ntopic_id: %d\nmsg_id: %d\ndata: %q\n",
		headerString(pkt), pkt.Flags, pkt.TopicID, pkt.MsgID, pkt.Data)
}

func (pkt *Publish) Encode() []byte {
	b := append(header(pkt), byte(pkt.Flags))
	b = codec.AppendUint16(b, pkt.TopicID)
	b = codec.AppendUint16(b, pkt.MsgID)
	return codec.AppendFixedBytes(b, pkt.Data, PublishSize)
}

func (pkt *Publish) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *Publish) Unpack(r *codec.Reader) error {
	flags, err := r.ReadByte()
	if err != nil {
		return err
	}
	pkt.Flags = Flags(flags)
	if pkt.TopicID, err = r.ReadUint16(); err != nil {
		return err
	}
	if pkt.MsgID, err = r.ReadUint16(); err != nil {
		return err
	}
	pkt.Data, err = r.ReadFixedBytes(PublishSize)
	return err
}

func (pkt *Publish) Details() Details {
	return Details{Type: PublishType, ID: pkt.MsgID, QoS: pkt.Flags.QoS()}
}
