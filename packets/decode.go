// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"

	"github.com/absmach/mqttsn/packets/codec"
)

var constructors = map[byte]func() Message{
	AdvertiseType:     func() Message { return &Advertise{} },
	SearchGWType:      func() Message { return &SearchGW{} },
	GWInfoType:        func() Message { return &GWInfo{} },
	ConnectType:       func() Message { return &Connect{} },
	ConnAckType:       func() Message { return &ConnAck{} },
	WillTopicReqType:  func() Message { return &WillTopicReq{} },
	WillTopicType:     func() Message { return &WillTopic{} },
	WillMsgReqType:    func() Message { return &WillMsgReq{} },
	WillMsgType:       func() Message { return &WillMsg{} },
	RegisterType:      func() Message { return &Register{} },
	RegAckType:        func() Message { return &RegAck{} },
	PublishType:       func() Message { return &Publish{} },
	PubAckType:        func() Message { return &PubAck{} },
	PubCompType:       func() Message { return &PubComp{} },
	PubRecType:        func() Message { return &PubRec{} },
	PubRelType:        func() Message { return &PubRel{} },
	SubscribeType:     func() Message { return &Subscribe{} },
	SubAckType:        func() Message { return &SubAck{} },
	UnsubscribeType:   func() Message { return &Unsubscribe{} },
	UnsubAckType:      func() Message { return &UnsubAck{} },
	PingReqType:       func() Message { return &PingReq{} },
	PingRespType:      func() Message { return &PingResp{} },
	DisconnectType:    func() Message { return &Disconnect{} },
	WillTopicUpdType:  func() Message { return &WillTopicUpd{} },
	WillTopicRespType: func() Message { return &WillTopicResp{} },
	WillMsgUpdType:    func() Message { return &WillMsgUpd{} },
	WillMsgRespType:   func() Message { return &WillMsgResp{} },
}

// NewMessage creates an empty message of the given type.
func NewMessage(t byte) (Message, error) {
	c, ok := constructors[t]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownType, t)
	}
	return c(), nil
}

// Decode parses a complete message from data. Bytes past the declared
// length are ignored, so data may be a whole receive buffer.
func Decode(data []byte) (Message, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	msg, err := NewMessage(h.MsgType)
	if err != nil {
		return nil, err
	}
	if err := Unmarshal(data, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Unmarshal decodes data into msg, a message the caller has already chosen
// from the MsgType octet.
func Unmarshal(data []byte, msg Message) error {
	h, err := DecodeHeader(data)
	if err != nil {
		return err
	}
	if h.MsgType != msg.Type() {
		return fmt.Errorf("%w: got %s, want %s", ErrTypeMismatch, name(h.MsgType), name(msg.Type()))
	}
	if int(h.Length) != msg.Len() {
		return fmt.Errorf("%w: %s declares %d octets, got %d", ErrLengthMismatch, name(h.MsgType), msg.Len(), h.Length)
	}
	if len(data) < msg.Len() {
		return fmt.Errorf("%w: %s needs %d octets, got %d", ErrBufferTooShort, name(h.MsgType), msg.Len(), len(data))
	}
	return msg.Unpack(codec.NewReader(data[2:msg.Len()]))
}
