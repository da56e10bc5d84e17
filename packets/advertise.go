// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"
	"io"

	"github.com/absmach/mqttsn/packets/codec"
)

// AdvertiseLen is the encoded size of ADVERTISE.
const AdvertiseLen = 5

// Advertise is broadcast periodically by a gateway to announce its presence.
type Advertise struct {
	GatewayID byte
	// Duration is the time in seconds until the next ADVERTISE.
	Duration uint16
}

func (pkt *Advertise) Type() byte { return AdvertiseType }
func (pkt *Advertise) Len() int   { return AdvertiseLen }

func (pkt *Advertise) String() string {
	return fmt.Sprintf("%s\ngw_id: %d\nduration: %d\n", headerString(pkt), pkt.GatewayID, pkt.Duration)
}

func (pkt *Advertise) Encode() []byte {
	b := header(pkt)
	b = append(b, pkt.GatewayID)
	return codec.AppendUint16(b, pkt.Duration)
}

func (pkt *Advertise) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *Advertise) Unpack(r *codec.Reader) error {
	var err error
	if pkt.GatewayID, err = r.ReadByte(); err != nil {
		return err
	}
	pkt.Duration, err = r.ReadUint16()
	return err
}
