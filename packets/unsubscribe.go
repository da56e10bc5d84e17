// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"
	"io"

	"github.com/absmach/mqttsn/packets/codec"
)

// UnsubscribeLen is the encoded size of UNSUBSCRIBE.
const UnsubscribeLen = 7

// Unsubscribe removes a subscription. It shares the SUBSCRIBE layout.
type Unsubscribe struct {
	Flags   Flags
	MsgID   uint16
	TopicID uint16
}

func (pkt *Unsubscribe) Type() byte { return UnsubscribeType }
func (pkt *Unsubscribe) Len() int   { return UnsubscribeLen }

func (pkt *Unsubscribe) String() string {
	return fmt.Sprintf("%s\nflags: %s\nmsg_id: %d\ntopic_id: %d\n",
		headerString(pkt), pkt.Flags, pkt.MsgID, pkt.TopicID)
}

func (pkt *Unsubscribe) Encode() []byte {
	return encodeSubscription(header(pkt), pkt.Flags, pkt.MsgID, pkt.TopicID)
}

func (pkt *Unsubscribe) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *Unsubscribe) Unpack(r *codec.Reader) error {
	var err error
	pkt.Flags, pkt.MsgID, pkt.TopicID, err = decodeSubscription(r)
	return err
}

func (pkt *Unsubscribe) Details() Details {
	return Details{Type: UnsubscribeType, ID: pkt.MsgID}
}
