// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/absmach/mqttsn/packets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// block pads p to a full PUBLISH payload block.
func block(p string) []byte {
	b := make([]byte, packets.PublishSize)
	copy(b, p)
	return b
}

func allMessages() []packets.Message {
	qos1 := packets.NewFlags(packets.FlagOptions{QoS: packets.QoS1})
	return []packets.Message{
		&packets.Advertise{GatewayID: 0xfe, Duration: 900},
		&packets.SearchGW{Radius: 3},
		&packets.GWInfo{GatewayID: 7, GatewayAddress: 0x0102},
		&packets.Connect{Flags: packets.NewFlags(packets.FlagOptions{CleanSession: true}), Duration: 60, ClientID: "hello node!"},
		&packets.ConnAck{ReturnCode: packets.RejectedCongestion},
		&packets.WillTopicReq{},
		&packets.WillTopic{Flags: qos1, Topic: "sensors/offline"},
		&packets.WillMsgReq{},
		&packets.WillMsg{Message: "gone"},
		&packets.Register{TopicID: 12, MsgID: 34},
		&packets.RegAck{TopicID: 12, MsgID: 34, ReturnCode: packets.Accepted},
		&packets.Publish{Flags: qos1, TopicID: 5, MsgID: 6, Data: block("21.5C")},
		&packets.PubAck{Flags: qos1, TopicID: 5, MsgID: 6, ReturnCode: packets.RejectedInvalidTopicID},
		&packets.PubComp{MsgID: 9},
		&packets.PubRec{MsgID: 10},
		&packets.PubRel{MsgID: 11},
		&packets.Subscribe{Flags: qos1, MsgID: 1, TopicID: 2},
		&packets.SubAck{Flags: qos1, TopicID: 2, MsgID: 1, ReturnCode: packets.Accepted},
		&packets.Unsubscribe{Flags: qos1, MsgID: 3, TopicID: 2},
		&packets.UnsubAck{MsgID: 3},
		&packets.PingReq{ClientID: "sleepy"},
		&packets.PingResp{},
		&packets.Disconnect{Duration: 30},
		&packets.WillTopicUpd{Flags: qos1, Topic: "sensors/gone"},
		&packets.WillTopicResp{ReturnCode: packets.RejectedNotSupported},
		&packets.WillMsgUpd{Message: "bye"},
		&packets.WillMsgResp{ReturnCode: packets.Accepted},
	}
}

func TestRoundTrip(t *testing.T) {
	msgs := allMessages()
	require.Len(t, msgs, len(packets.PacketNames))

	for _, msg := range msgs {
		t.Run(packets.PacketNames[msg.Type()], func(t *testing.T) {
			data := msg.Encode()
			require.Len(t, data, msg.Len())
			assert.Equal(t, byte(msg.Len()), data[0])
			assert.Equal(t, msg.Type(), data[1])

			got, err := packets.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, msg, got)
		})
	}
}

func TestDecodeIgnoresTrailingBuffer(t *testing.T) {
	msg := &packets.ConnAck{ReturnCode: packets.Accepted}
	buf := make([]byte, packets.MaxPacketSize)
	copy(buf, msg.Encode())
	buf[msg.Len()] = 0xAA

	got, err := packets.Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestPack(t *testing.T) {
	msg := &packets.Register{TopicID: 0x0102, MsgID: 0x0304}
	var buf bytes.Buffer
	require.NoError(t, msg.Pack(&buf))
	assert.Equal(t, []byte{6, packets.RegisterType, 0x01, 0x02, 0x03, 0x04}, buf.Bytes())
}

func TestConnectFixedLayout(t *testing.T) {
	msg := &packets.Connect{
		Flags:    packets.NewFlags(packets.FlagOptions{CleanSession: true}),
		Duration: 0x0102,
		ClientID: "a",
	}
	data := msg.Encode()
	require.Len(t, data, 29)

	want := []byte{29, packets.ConnectType, packets.CleanSessionFlag, packets.ProtocolID, 0x01, 0x02, 'a'}
	want = append(want, make([]byte, packets.ClientIDSize-1)...)
	assert.Equal(t, want, data)
}

func TestFixedFieldTruncation(t *testing.T) {
	msg := &packets.Connect{ClientID: strings.Repeat("x", 40)}
	data := msg.Encode()
	require.Len(t, data, packets.ConnectLen)

	got, err := packets.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", packets.ClientIDSize), got.(*packets.Connect).ClientID)
}

func TestPublishPayloadZeros(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"little endian value", []byte{0x01, 0x00}},
		{"all zeros", []byte{0x00, 0x00}},
		{"trailing zeros", []byte{0x2a, 0x00, 0x00, 0x00}},
		{"empty", nil},
		{"full block", bytes.Repeat([]byte{0x00, 0x7f}, packets.PublishSize/2)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := &packets.Publish{TopicID: 1, Data: tc.data}
			data := msg.Encode()

			got, err := packets.Decode(data)
			require.NoError(t, err)
			pub := got.(*packets.Publish)
			require.Len(t, pub.Data, packets.PublishSize)
			assert.Equal(t, tc.data, pub.Data[:len(tc.data)])
			assert.Equal(t, data, pub.Encode())
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	connack := (&packets.ConnAck{}).Encode()
	badLength := append([]byte(nil), connack...)
	badLength[0] = 4
	badProto := (&packets.Connect{ClientID: "c"}).Encode()
	badProto[3] = 0x02

	cases := []struct {
		name string
		data []byte
		err  error
	}{
		{"empty", nil, packets.ErrBufferTooShort},
		{"length only", []byte{3}, packets.ErrBufferTooShort},
		{"extended length", []byte{0x01, 0x00, 0x20, packets.ConnAckType}, packets.ErrExtendedLength},
		{"unknown type", []byte{2, 0x03}, packets.ErrUnknownType},
		{"reserved type", []byte{2, 0xFE}, packets.ErrUnknownType},
		{"length mismatch", badLength, packets.ErrLengthMismatch},
		{"truncated body", connack[:2], packets.ErrBufferTooShort},
		{"truncated connect", badProto[:10], packets.ErrBufferTooShort},
		{"protocol id", badProto, packets.ErrProtocolID},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := packets.Decode(tc.data)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestUnmarshalTypeMismatch(t *testing.T) {
	data := (&packets.PingResp{}).Encode()
	err := packets.Unmarshal(data, &packets.WillTopicReq{})
	assert.ErrorIs(t, err, packets.ErrTypeMismatch)
}

func TestPeekType(t *testing.T) {
	typ, err := packets.PeekType((&packets.Advertise{}).Encode())
	require.NoError(t, err)
	assert.Equal(t, packets.AdvertiseType, typ)

	_, err = packets.PeekType([]byte{5})
	assert.ErrorIs(t, err, packets.ErrBufferTooShort)
}

func TestDetails(t *testing.T) {
	qos2 := packets.NewFlags(packets.FlagOptions{QoS: packets.QoS2})
	cases := []struct {
		msg  packets.Message
		want packets.Details
	}{
		{&packets.Publish{Flags: qos2, MsgID: 7}, packets.Details{Type: packets.PublishType, ID: 7, QoS: packets.QoS2}},
		{&packets.PubRel{MsgID: 8}, packets.Details{Type: packets.PubRelType, ID: 8, QoS: packets.QoS2}},
		{&packets.Subscribe{Flags: qos2, MsgID: 9}, packets.Details{Type: packets.SubscribeType, ID: 9, QoS: packets.QoS2}},
	}
	for _, tc := range cases {
		d, ok := tc.msg.(packets.Detailer)
		require.True(t, ok)
		assert.Equal(t, tc.want, d.Details())
	}

	_, ok := packets.Message(&packets.PingResp{}).(packets.Detailer)
	assert.False(t, ok)
}

func TestString(t *testing.T) {
	s := (&packets.Connect{ClientID: "node-1"}).String()
	assert.Contains(t, s, "CONNECT")
	assert.Contains(t, s, "node-1")

	h := packets.Header{Length: 2, MsgType: 0x7F}
	assert.Contains(t, h.String(), "UNKNOWN(0x7f)")
}
