// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"
	"io"

	"github.com/absmach/mqttsn/packets/codec"
)

// PubCompLen is the encoded size of PUBCOMP.
const PubCompLen = 4

// PubComp completes the QoS 2 exchange.
type PubComp struct {
	MsgID uint16
}

func (pkt *PubComp) Type() byte { return PubCompType }
func (pkt *PubComp) Len() int   { return PubCompLen }

func (pkt *PubComp) String() string {
	return fmt.Sprintf("%s\nmsg_id: %d\n", headerString(pkt), pkt.MsgID)
}

func (pkt *PubComp) Encode() []byte {
	return codec.AppendUint16(header(pkt), pkt.MsgID)
}

func (pkt *PubComp) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *PubComp) Unpack(r *codec.Reader) error {
	var err error
	pkt.MsgID, err = r.ReadUint16()
	return err
}

func (pkt *PubComp) Details() Details {
	return Details{Type: PubCompType, ID: pkt.MsgID, QoS: QoS2}
}
