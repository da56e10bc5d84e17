// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"
	"io"

	"github.com/absmach/mqttsn/packets/codec"
)

// UnsubAckLen is the encoded size of UNSUBACK.
const UnsubAckLen = 4

// UnsubAck answers UNSUBSCRIBE.
type UnsubAck struct {
	MsgID uint16
}

func (pkt *UnsubAck) Type() byte { return UnsubAckType }
func (pkt *UnsubAck) Len() int   { return UnsubAckLen }

func (pkt *UnsubAck) String() string {
	return fmt.Sprintf("%s\nmsg_id: %d\n", headerString(pkt), pkt.MsgID)
}

func (pkt *UnsubAck) Encode() []byte {
	return codec.AppendUint16(header(pkt), pkt.MsgID)
}

func (pkt *UnsubAck) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *UnsubAck) Unpack(r *codec.Reader) error {
	var err error
	pkt.MsgID, err = r.ReadUint16()
	return err
}

func (pkt *UnsubAck) Details() Details {
	return Details{Type: UnsubAckType, ID: pkt.MsgID}
}
