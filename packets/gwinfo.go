// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"
	"io"

	"github.com/absmach/mqttsn/packets/codec"
)

// GWInfoLen is the encoded size of GWINFO.
const GWInfoLen = 5

// GWInfo answers a SEARCHGW. The gateway address is a two-octet mesh address.
type GWInfo struct {
	GatewayID      byte
	GatewayAddress uint16
}

func (pkt *GWInfo) Type() byte { return GWInfoType }
func (pkt *GWInfo) Len() int   { return GWInfoLen }

func (pkt *GWInfo) String() string {
	return fmt.Sprintf("%s\ngw_id: %d\ngw_address: %d\n", headerString(pkt), pkt.GatewayID, pkt.GatewayAddress)
}

func (pkt *GWInfo) Encode() []byte {
	b := append(header(pkt), pkt.GatewayID)
	return codec.AppendUint16(b, pkt.GatewayAddress)
}

func (pkt *GWInfo) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *GWInfo) Unpack(r *codec.Reader) error {
	var err error
	if pkt.GatewayID, err = r.ReadByte(); err != nil {
		return err
	}
	pkt.GatewayAddress, err = r.ReadUint16()
	return err
}
