// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"
	"io"

	"github.com/absmach/mqttsn/packets/codec"
)

// RegisterLen is the encoded size of REGISTER.
const RegisterLen = 6

// Register asks the peer to associate a topic id.
type Register struct {
	TopicID uint16
	MsgID   uint16
}

func (pkt *Register) Type() byte { return RegisterType }
func (pkt *Register) Len() int   { return RegisterLen }

func (pkt *Register) String() string {
	return fmt.Sprintf("%s\ntopic_id: %d\nmsg_id: %d\n", headerString(pkt), pkt.TopicID, pkt.MsgID)
}

func (pkt *Register) Encode() []byte {
	b := codec.AppendUint16(header(pkt), pkt.TopicID)
	return codec.AppendUint16(b, pkt.MsgID)
}

func (pkt *Register) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *Register) Unpack(r *codec.Reader) error {
	var err error
	if pkt.TopicID, err = r.ReadUint16(); err != nil {
		return err
	}
	pkt.MsgID, err = r.ReadUint16()
	return err
}

func (pkt *Register) Details() Details {
	return Details{Type: RegisterType, ID: pkt.MsgID}
}
