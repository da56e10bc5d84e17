// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"
	"io"

	"github.com/absmach/mqttsn/packets/codec"
)

// PubAckLen is the encoded size of PUBACK. Unlike the OASIS layout, PUBACK
// carries a flags octet on this network.
const PubAckLen = 8

// PubAck acknowledges a QoS 1 PUBLISH.
type PubAck struct {
	Flags      Flags
	TopicID    uint16
	MsgID      uint16
	ReturnCode byte
}

func (pkt *PubAck) Type() byte { return PubAckType }
func (pkt *PubAck) Len() int   { return PubAckLen }

func (pkt *PubAck) String() string {
	return fmt.Sprintf("%s\nflags: %s\ntopic_id: %d\nmsg_id: %d\nreturn_code: %d\n",
		headerString(pkt), pkt.Flags, pkt.TopicID, pkt.MsgID, pkt.ReturnCode)
}

func (pkt *PubAck) Encode() []byte {
	b := append(header(pkt), byte(pkt.Flags))
	b = codec.AppendUint16(b, pkt.TopicID)
	b = codec.AppendUint16(b, pkt.MsgID)
	return append(b, pkt.ReturnCode)
}

func (pkt *PubAck) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *PubAck) Unpack(r *codec.Reader) error {
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

func (pkt *PubAck) Details() Details {
	return Details{Type: PubAckType, ID: pkt.MsgID, QoS: QoS1}
}
