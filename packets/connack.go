// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"
	"io"

	"github.com/absmach/mqttsn/packets/codec"
)

// ConnAckLen is the encoded size of CONNACK.
const ConnAckLen = 3

// ConnAck is the gateway's answer to CONNECT.
type ConnAck struct {
	ReturnCode byte
}

func (pkt *ConnAck) Type() byte { return ConnAckType }
func (pkt *ConnAck) Len() int   { return ConnAckLen }

func (pkt *ConnAck) String() string {
	return fmt.Sprintf("%s\nreturn_code: %d\n", headerString(pkt), pkt.ReturnCode)
}

func (pkt *ConnAck) Encode() []byte {
	return append(header(pkt), pkt.ReturnCode)
}

func (pkt *ConnAck) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *ConnAck) Unpack(r *codec.Reader) error {
	var err error
	pkt.ReturnCode, err = r.ReadByte()
	return err
}
