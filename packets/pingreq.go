// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"
	"io"

	"github.com/absmach/mqttsn/packets/codec"
)

// PingReqLen is the encoded size of PINGREQ.
const PingReqLen = 2 + ClientIDSize

// PingReq is a keep-alive request. A sleeping client sets its client id.
type PingReq struct {
	ClientID string
}

func (pkt *PingReq) Type() byte { return PingReqType }
func (pkt *PingReq) Len() int   { return PingReqLen }

func (pkt *PingReq) String() string {
	return fmt.Sprintf("%s\nclient_id: %s\n", headerString(pkt), pkt.ClientID)
}

func (pkt *PingReq) Encode() []byte {
	return codec.AppendFixed(header(pkt), pkt.ClientID, ClientIDSize)
}

func (pkt *PingReq) Pack(w io.Writer) error {
	return pack(w, pkt)
}

func (pkt *PingReq) Unpack(r *codec.Reader) error {
	var err error
	pkt.ClientID, err = r.ReadFixed(ClientIDSize)
	return err
}
