// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"
	"io"

	"github.com/absmach/mqttsn/packets/codec"
)

// SubAckLen is the encoded size of SUBACK.
const SubAckLen = 8

// SubAck answers SUBSCRIBE with the granted QoS in its flags.
type SubAck struct {
	Flags      Flags
	TopicID    uint16
	MsgID      uint16
	ReturnCode byte
}

func (pkt *SubAck) Type() byte { return SubAckType }
func (pkt *SubAck) Len() int   { return SubAckLen }

func (pkt *SubAck) String() string {
	return fmt.Sprintf("%s\nflags: %s\ntopic_id: %d\nmsg_id: %d\nreturn_code: %d\n",
		headerString(pkt), pkt.Flags, pkt.TopicID, pkt.MsgID, pkt.ReturnCode)
}

func (pkt *SubAck) Encode() []byte {
	b := append(header(pkt), byte(pkt.Flags))
	b = codec.AppendUint16(b, pkt.TopicID)
	b = codec.AppendUint16(b, pkt.MsgID)
	return append(b, pkt.ReturnCode)
}

func (pkt *SubAck) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *SubAck) Unpack(r *codec.Reader) error {
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
	pkt.ReturnCode, err = r.ReadByte()
	return err
}

func (pkt *SubAck) Details() Details {
	return Details{Type: SubAckType, ID: pkt.MsgID, QoS: pkt.Flags.QoS()}
}
