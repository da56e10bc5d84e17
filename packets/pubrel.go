// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"
	"io"

	"github.com/absmach/mqttsn/packets/codec"
)

// PubRelLen is the encoded size of PUBREL.
const PubRelLen = 4

// PubRel answers PUBREC in the QoS 2 exchange.
type PubRel struct {
	MsgID uint16
}

func (pkt *PubRel) Type() byte { return PubRelType }
func (pkt *PubRel) Len() int   { return PubRelLen }

func (pkt *PubRel) String() string {
	return fmt.Sprintf("%s\nmsg_id: %d\n", headerString(pkt), pkt.MsgID)
}

func (pkt *PubRel) Encode() []byte {
	return codec.AppendUint16(header(pkt), pkt.MsgID)
}

func (pkt *PubRel) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *PubRel) Unpack(r *codec.Reader) error {
	var err error
	pkt.MsgID, err = r.ReadUint16()
	return err
}

func (pkt *PubRel) Details() Details {
	return Details{Type: PubRelType, ID: pkt.MsgID, QoS: QoS2}
}
