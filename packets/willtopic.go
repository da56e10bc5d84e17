// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"
	"io"

	"github.com/absmach/mqttsn/packets/codec"
)

// Encoded sizes of the will topic messages.
const (
	WillTopicReqLen  = 2
	WillTopicLen     = 3 + WillTopicSize
	WillTopicUpdLen  = 3 + WillTopicSize
	WillTopicRespLen = 3
)

// WillTopicReq asks the client for its will topic.
type WillTopicReq struct{}

func (pkt *WillTopicReq) Type() byte                   { return WillTopicReqType }
func (pkt *WillTopicReq) Len() int                     { return WillTopicReqLen }
func (pkt *WillTopicReq) String() string               { return headerString(pkt) }
func (pkt *WillTopicReq) Encode() []byte               { return header(pkt) }
func (pkt *WillTopicReq) Pack(w io.Writer) error       { return pack(w, pkt) }
func (pkt *WillTopicReq) Unpack(r *codec.Reader) error { return nil }

// WillTopic carries the will flags (QoS, retain) and topic.
type WillTopic struct {
	Flags Flags
	Topic string
}

func (pkt *WillTopic) Type() byte { return WillTopicType }
func (pkt *WillTopic) Len() int   { return WillTopicLen }

func (pkt *WillTopic) String() string {
	return fmt.Sprintf("%s\nflags: %s\nwill_topic: %s\n", headerString(pkt), pkt.Flags, pkt.Topic)
}

func (pkt *WillTopic) Encode() []byte {
	return encodeWillTopic(header(pkt), pkt.Flags, pkt.Topic)
}

func (pkt *WillTopic) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *WillTopic) Unpack(r *codec.Reader) error {
	var err error
	pkt.Flags, pkt.Topic, err = decodeWillTopic(r)
	return err
}

// WillTopicUpd updates a stored will topic.
type WillTopicUpd struct {
	Flags Flags
	Topic string
}

func (pkt *WillTopicUpd) Type() byte { return WillTopicUpdType }
func (pkt *WillTopicUpd) Len() int   { return WillTopicUpdLen }

func (pkt *WillTopicUpd) String() string {
	return fmt.Sprintf("%s\nflags: %s\nwill_topic: %s\n", headerString(pkt), pkt.Flags, pkt.Topic)
}

func (pkt *WillTopicUpd) Encode() []byte {
	return encodeWillTopic(header(pkt), pkt.Flags, pkt.Topic)
}

func (pkt *WillTopicUpd) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *WillTopicUpd) Unpack(r *codec.Reader) error {
	var err error
	pkt.Flags, pkt.Topic, err = decodeWillTopic(r)
	return err
}

// WillTopicResp acknowledges WILLTOPICUPD.
type WillTopicResp struct {
	ReturnCode byte
}

func (pkt *WillTopicResp) Type() byte { return WillTopicRespType }
func (pkt *WillTopicResp) Len() int   { return WillTopicRespLen }

func (pkt *WillTopicResp) String() string {
	return fmt.Sprintf("%s\nreturn_code: %d\n", headerString(pkt), pkt.ReturnCode)
}

func (pkt *WillTopicResp) Encode() []byte {
	return append(header(pkt), pkt.ReturnCode)
}

func (pkt *WillTopicResp) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *WillTopicResp) Unpack(r *codec.Reader) error {
	var err error
	pkt.ReturnCode, err = r.ReadByte()
	return err
}

func encodeWillTopic(b []byte, flags Flags, topic string) []byte {
	b = append(b, byte(flags))
	return codec.AppendFixed(b, topic, WillTopicSize)
}

func decodeWillTopic(r *codec.Reader) (Flags, string, error) {
	flags, err := r.ReadByte()
	if err != nil {
		return 0, "", err
	}
	topic, err := r.ReadFixed(WillTopicSize)
	if err != nil {
		return 0, "", err
	}
	return Flags(flags), topic, nil
}
