// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"
	"io"

	"github.com/absmach/mqttsn/packets/codec"
)

// RegAckLen is the encoded size of REGACK.
const RegAckLen = 7

// RegAck answers REGISTER.
type RegAck struct {
	TopicID    uint16
	MsgID      uint16
	ReturnCode byte
}

func (pkt *RegAck) Type() byte { return RegAckType }
func (pkt *RegAck) Len() int   { return RegAckLen }

func (pkt *RegAck) String() string {
	return fmt.Sprintf("%s\ntopic_id: %d\nmsg_id: %d\nreturn_code: %d\n",
		headerString(pkt), pkt.TopicID, pkt.MsgID, pkt.ReturnCode)
}

func (pkt *RegAck) Encode() []byte {
	b := codec.AppendUint16(header(pkt), pkt.TopicID)
	b = codec.AppendUint16(b, pkt.MsgID)
	return append(b, pkt.ReturnCode)
}

func (pkt *RegAck) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *RegAck) Unpack(r *codec.Reader) error {
	var err error
	if pkt.TopicID, err = r.ReadUint16(); err != nil {
		return err
	}
	if pkt.MsgID, err = r.ReadUint16(); err != nil {
		return err
	}
	pkt.ReturnCode, err = r.ReadByte()
	return err
}

func (pkt *RegAck) Details() Details {
	return Details{Type: RegAckType, ID: pkt.MsgID}
}
