// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package packets implements the MQTT-SN message set and its wire codec.
//
// Every message is encoded as a one-octet Length, a one-octet MsgType and the
// variant's fields packed in declaration order. Two-octet integers are
// big-endian. String fields occupy their full configured capacity on the wire
// regardless of the logical value, so each variant has a constant length.
package packets

import (
	"errors"
	"fmt"
	"io"

	"github.com/absmach/mqttsn/packets/codec"
)

// Field capacities and limits. They are fixed at build time and shared by
// every peer on the network.
const (
	ClientIDSize  = 23
	WillTopicSize = 32
	WillMsgSize   = 32
	PublishSize   = 32

	// MaxPacketSize is the largest payload the mesh carries in one frame.
	MaxPacketSize = 144

	// ProtocolID is the only valid CONNECT protocol id.
	ProtocolID byte = 0x01

	// extendedLengthMarker flags the 3-octet length form, which is never
	// produced by this implementation.
	extendedLengthMarker byte = 0x01
)

// Message type constants.
const (
	AdvertiseType     byte = 0x00
	SearchGWType      byte = 0x01
	GWInfoType        byte = 0x02
	ConnectType       byte = 0x04
	ConnAckType       byte = 0x05
	WillTopicReqType  byte = 0x06
	WillTopicType     byte = 0x07
	WillMsgReqType    byte = 0x08
	WillMsgType       byte = 0x09
	RegisterType      byte = 0x0A
	RegAckType        byte = 0x0B
	PublishType       byte = 0x0C
	PubAckType        byte = 0x0D
	PubCompType       byte = 0x0E
	PubRecType        byte = 0x0F
	PubRelType        byte = 0x10
	SubscribeType     byte = 0x12
	SubAckType        byte = 0x13
	UnsubscribeType   byte = 0x14
	UnsubAckType      byte = 0x15
	PingReqType       byte = 0x16
	PingRespType      byte = 0x17
	DisconnectType    byte = 0x18
	WillTopicUpdType  byte = 0x1A
	WillTopicRespType byte = 0x1B
	WillMsgUpdType    byte = 0x1C
	WillMsgRespType   byte = 0x1D
)

// Return codes carried by acknowledgements.
const (
	Accepted               byte = 0x00
	RejectedCongestion     byte = 0x01
	RejectedInvalidTopicID byte = 0x02
	RejectedNotSupported   byte = 0x03
)

// PacketNames maps message type constants to string names.
var PacketNames = map[byte]string{
	AdvertiseType:     "ADVERTISE",
	SearchGWType:      "SEARCHGW",
	GWInfoType:        "GWINFO",
	ConnectType:       "CONNECT",
	ConnAckType:       "CONNACK",
	WillTopicReqType:  "WILLTOPICREQ",
	WillTopicType:     "WILLTOPIC",
	WillMsgReqType:    "WILLMSGREQ",
	WillMsgType:       "WILLMSG",
	RegisterType:      "REGISTER",
	RegAckType:        "REGACK",
	PublishType:       "PUBLISH",
	PubAckType:        "PUBACK",
	PubCompType:       "PUBCOMP",
	PubRecType:        "PUBREC",
	PubRelType:        "PUBREL",
	SubscribeType:     "SUBSCRIBE",
	SubAckType:        "SUBACK",
	UnsubscribeType:   "UNSUBSCRIBE",
	UnsubAckType:      "UNSUBACK",
	PingReqType:       "PINGREQ",
	PingRespType:      "PINGRESP",
	DisconnectType:    "DISCONNECT",
	WillTopicUpdType:  "WILLTOPICUPD",
	WillTopicRespType: "WILLTOPICRESP",
	WillMsgUpdType:    "WILLMSGUPD",
	WillMsgRespType:   "WILLMSGRESP",
}

// ReturnCodeNames maps return codes to string names.
var ReturnCodeNames = map[byte]string{
	Accepted:               "accepted",
	RejectedCongestion:     "rejected: congestion",
	RejectedInvalidTopicID: "rejected: invalid topic id",
	RejectedNotSupported:   "rejected: not supported",
}

// Decoding errors.
var (
	ErrBufferTooShort = codec.ErrBufferTooShort
	ErrUnknownType    = errors.New("unknown message type")
	ErrTypeMismatch   = errors.New("message type mismatch")
	ErrLengthMismatch = errors.New("length field does not match message type")
	ErrExtendedLength = errors.New("3-octet length form is not supported")
)

// Message is the interface implemented by every MQTT-SN message.
type Message interface {
	// Type returns the message type constant.
	Type() byte

	// Len returns the total encoded size including the length octet.
	Len() int

	// Encode serializes the message to exactly Len() bytes.
	Encode() []byte

	// Pack writes the encoded message to the writer.
	Pack(w io.Writer) error

	// Unpack deserializes the fields that follow Length and MsgType.
	Unpack(r *codec.Reader) error

	// String returns a human-readable representation.
	String() string
}

// Details contains message metadata useful for delivery tracking.
type Details struct {
	Type byte
	ID   uint16
	QoS  QoS
}

// Detailer is implemented by messages that carry a message id.
type Detailer interface {
	Details() Details
}

// header returns the two leading octets of a message, with room for the
// rest of the body already reserved.
func header(m Message) []byte {
	b := make([]byte, 0, m.Len())
	return append(b, byte(m.Len()), m.Type())
}

func pack(w io.Writer, m Message) error {
	_, err := w.Write(m.Encode())
	return err
}

func name(t byte) string {
	if n, ok := PacketNames[t]; ok {
		return n
	}
	return fmt.Sprintf("UNKNOWN(0x%02x)", t)
}
