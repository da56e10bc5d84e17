// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"
	"io"

	"github.com/absmach/mqttsn/packets/codec"
)

// SubscribeLen is the encoded size of SUBSCRIBE.
const SubscribeLen = 7

// Subscribe requests a subscription to a topic id. The flags carry the
// requested QoS and the topic id type.
type Subscribe struct {
	Flags   Flags
	MsgID   uint16
	TopicID uint16
}

func (pkt *Subscribe) Type() byte { return SubscribeType }
func (pkt *Subscribe) Len() int   { return SubscribeLen }

func (pkt *Subscribe) String() string {
	return fmt.Sprintf("%s\nflags: %s\nmsg_id: %d\ntopic_id: %d\n",
		headerString(pkt), pkt.Flags, pkt.MsgID, pkt.TopicID)
}

func (pkt *Subscribe) Encode() []byte {
	return encodeSubscription(header(pkt), pkt.Flags, pkt.MsgID, pkt.TopicID)
}

func (pkt *Subscribe) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *Subscribe) Unpack(r *codec.Reader) error {
	var err error
	pkt.Flags, pkt.MsgID, pkt.TopicID, err = decodeSubscription(r)
	return err
}

func (pkt *Subscribe) Details() Details {
	return Details{Type: SubscribeType, ID: pkt.MsgID, QoS: pkt.Flags.QoS()}
}

func encodeSubscription(b []byte, flags Flags, msgID, topicID uint16) []byte {
	b = append(b, byte(flags))
	b = codec.AppendUint16(b, msgID)
	return codec.AppendUint16(b, topicID)
}

func decodeSubscription(r *codec.Reader) (Flags, uint16, uint16, error) {
	flags, err := r.ReadByte()
	if err != nil {
		return 0, 0, 0, err
	}
	msgID, err := r.ReadUint16()
	if err != nil {
		return 0, 0, 0, err
	}
	topicID, err := r.ReadUint16()
	if err != nil {
		return 0, 0, 0, err
	}
	return Flags(flags), msgID, topicID, nil
}
