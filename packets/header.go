// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"

	"github.com/absmach/mqttsn/packets/codec"
)

const headerFormat = "type: %s length: %d"

// Header holds the two leading octets shared by every message.
type Header struct {
	Length  byte
	MsgType byte
}

func (h Header) String() string {
	return fmt.Sprintf(headerFormat, name(h.MsgType), h.Length)
}

// DecodeHeader reads Length and MsgType from the start of data.
func DecodeHeader(data []byte) (Header, error) {
	r := codec.NewReader(data)
	length, err := r.ReadByte()
	if err != nil {
		return Header{}, err
	}
	if length == extendedLengthMarker {
		return Header{}, ErrExtendedLength
	}
	t, err := r.ReadByte()
	if err != nil {
		return Header{}, err
	}
	return Header{Length: length, MsgType: t}, nil
}

// PeekType returns the MsgType octet at offset 1 without interpreting the
// rest of the message.
func PeekType(data []byte) (byte, error) {
	r := codec.NewReader(data)
	if _, err := r.ReadByte(); err != nil {
		return 0, err
	}
	return r.PeekByte()
}

func headerString(m Message) string {
	return Header{Length: byte(m.Len()), MsgType: m.Type()}.String()
}
