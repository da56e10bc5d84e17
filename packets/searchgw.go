// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"
	"io"

	"github.com/absmach/mqttsn/packets/codec"
)

// SearchGWLen is the encoded size of SEARCHGW.
const SearchGWLen = 3

// SearchGW is broadcast by a client looking for a gateway.
type SearchGW struct {
	// Radius is the broadcast radius; 0x00 means the whole network.
	Radius byte
}

func (pkt *SearchGW) Type() byte { return SearchGWType }
func (pkt *SearchGW) Len() int   { return SearchGWLen }

func (pkt *SearchGW) String() string {
	return fmt.Sprintf("%s\nradius: %d\n", headerString(pkt), pkt.Radius)
}

func (pkt *SearchGW) Encode() []byte {
	return append(header(pkt), pkt.Radius)
}

func (pkt *SearchGW) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *SearchGW) Unpack(r *codec.Reader) error {
	var err error
	pkt.Radius, err = r.ReadByte()
	return err
}
