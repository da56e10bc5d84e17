// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"
	"io"

	"github.com/absmach/mqttsn/packets/codec"
)

// PubRecLen is the encoded size of PUBREC.
const PubRecLen = 4

// PubRec is sent in response to a QoS 2 PUBLISH.
type PubRec struct {
	MsgID uint16
}

func (pkt *PubRec) Type() byte { return PubRecType }
func (pkt *PubRec) Len() int   { return PubRecLen }

func (pkt *PubRec) String() string {
	return fmt.Sprintf("%s\nmsg_id: %d\n", headerString(pkt), pkt.MsgID)
}

func (pkt *PubRec) Encode() []byte {
	return codec.AppendUint16(header(pkt), pkt.MsgID)
}

func (pkt *PubRec) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *PubRec) Unpack(r *codec.Reader) error {
	var err error
	pkt.MsgID, err = r.ReadUint16()
	return err
}

func (pkt *PubRec) Details() Details {
	return Details{Type: PubRecType, ID: pkt.MsgID, QoS: QoS2}
}
