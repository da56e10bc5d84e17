// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"
	"io"

	"github.com/absmach/mqttsn/packets/codec"
)

// Encoded sizes of the will message messages.
const (
	WillMsgReqLen  = 2
	WillMsgLen     = 2 + WillMsgSize
	WillMsgUpdLen  = 2 + WillMsgSize
	WillMsgRespLen = 3
)

// WillMsgReq asks the client for its will message.
type WillMsgReq struct{}

func (pkt *WillMsgReq) Type() byte                   { return WillMsgReqType }
func (pkt *WillMsgReq) Len() int                     { return WillMsgReqLen }
func (pkt *WillMsgReq) String() string               { return headerString(pkt) }
func (pkt *WillMsgReq) Encode() []byte               { return header(pkt) }
func (pkt *WillMsgReq) Pack(w io.Writer) error       { return pack(w, pkt) }
func (pkt *WillMsgReq) Unpack(r *codec.Reader) error { return nil }

// WillMsg carries the will message.
type WillMsg struct {
	Message string
}

func (pkt *WillMsg) Type() byte { return WillMsgType }
func (pkt *WillMsg) Len() int   { return WillMsgLen }

func (pkt *WillMsg) String() string {
	return fmt.Sprintf("%s\nwill_msg: %s\n", headerString(pkt), pkt.Message)
}

func (pkt *WillMsg) Encode() []byte {
	return codec.AppendFixed(header(pkt), pkt.Message, WillMsgSize)
}

func (pkt *WillMsg) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *WillMsg) Unpack(r *codec.Reader) error {
	var err error
	pkt.Message, err = r.ReadFixed(WillMsgSize)
	return err
}

// WillMsgUpd updates a stored will message.
type WillMsgUpd struct {
	Message string
}

func (pkt *WillMsgUpd) Type() byte { return WillMsgUpdType }
func (pkt *WillMsgUpd) Len() int   { return WillMsgUpdLen }

func (pkt *WillMsgUpd) String() string {
	return fmt.Sprintf("%s\nwill_msg: %s\n", headerString(pkt), pkt.Message)
}

func (pkt *WillMsgUpd) Encode() []byte {
	return codec.AppendFixed(header(pkt), pkt.Message, WillMsgSize)
}

func (pkt *WillMsgUpd) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *WillMsgUpd) Unpack(r *codec.Reader) error {
	var err error
	pkt.Message, err = r.ReadFixed(WillMsgSize)
	return err
}

// WillMsgResp acknowledges WILLMSGUPD.
type WillMsgResp struct {
	ReturnCode byte
}

func (pkt *WillMsgResp) Type() byte { return WillMsgRespType }
func (pkt *WillMsgResp) Len() int   { return WillMsgRespLen }

func (pkt *WillMsgResp) String() string {
	return fmt.Sprintf("%s\nreturn_code: %d\n", headerString(pkt), pkt.ReturnCode)
}

func (pkt *WillMsgResp) Encode() []byte {
	return append(header(pkt), pkt.ReturnCode)
}

func (pkt *WillMsgResp) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *WillMsgResp) Unpack(r *codec.Reader) error {
	var err error
	pkt.ReturnCode, err = r.ReadByte()
	return err
}
