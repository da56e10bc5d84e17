// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"io"

	"github.com/absmach/mqttsn/packets/codec"
)

// PingRespLen is the encoded size of PINGRESP.
const PingRespLen = 2

// PingResp answers PINGREQ.
type PingResp struct{}

func (pkt *PingResp) Type() byte                   { return PingRespType }
func (pkt *PingResp) Len() int                     { return PingRespLen }
func (pkt *PingResp) String() string               { return headerString(pkt) }
func (pkt *PingResp) Encode() []byte               { return header(pkt) }
func (pkt *PingResp) Pack(w io.Writer) error       { return pack(w, pkt) }
func (pkt *PingResp) Unpack(r *codec.Reader) error { return nil }
