// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec

// Encode helpers append to a caller-owned buffer so a whole message can be
// built with a single allocation sized to its declared length.

// AppendUint16 appends num most-significant octet first.
func AppendUint16(b []byte, num uint16) []byte {
	return append(b, byte(num>>8), byte(num))
}

// EncodeUint16 returns num as two big-endian octets.
func EncodeUint16(num uint16) []byte {
	return []byte{byte(num >> 8), byte(num)}
}

// AppendFixed appends s as exactly size octets. Shorter values are padded
// with zeros and longer values are truncated.
func AppendFixed(b []byte, s string, size int) []byte {
	n := len(s)
	if n > size {
		n = size
	}
	b = append(b, s[:n]...)
	for i := n; i < size; i++ {
		b = append(b, 0)
	}
	return b
}

// AppendFixedBytes is AppendFixed for binary payloads.
func AppendFixedBytes(b []byte, p []byte, size int) []byte {
	n := len(p)
	if n > size {
		n = size
	}
	b = append(b, p[:n]...)
	for i := n; i < size; i++ {
		b = append(b, 0)
	}
	return b
}

// EncodeBool returns 1 for true and 0 for false.
func EncodeBool(b bool) byte {
	if b {
		return 1
	}
	return 0
}
