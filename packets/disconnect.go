// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"
	"io"

	"github.com/absmach/mqttsn/packets/codec"
)

// DisconnectLen is the encoded size of DISCONNECT.
const DisconnectLen = 4

// Disconnect closes a connection. A non-zero Duration announces a sleep
// period in seconds.
type Disconnect struct {
	Duration uint16
}

func (pkt *Disconnect) Type() byte { return DisconnectType }
func (pkt *Disconnect) Len() int   { return DisconnectLen }

func (pkt *Disconnect) String() string {
	return fmt.Sprintf("%s\nduration: %d\n", headerString(pkt), pkt.Duration)
}

func (pkt *Disconnect) Encode() []byte {
	return codec.AppendUint16(header(pkt), pkt.Duration)
}

func (pkt *Disconnect) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *Disconnect) Unpack(r *codec.Reader) error {
	var err error
	pkt.Duration, err = r.ReadUint16()
	return err
}
