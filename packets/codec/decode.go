// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// ErrBufferTooShort is returned when a read runs past the end of the buffer.
var ErrBufferTooShort = errors.New("buffer too short")

// Reader reads MQTT-SN fields from a byte slice without copying.
// Every read is bounds-checked against the slice it was created with.
type Reader struct {
	data   []byte
	offset int
}

// NewReader creates a new reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.offset
}

// ReadByte reads a single octet.
func (r *Reader) ReadByte() (byte, error) {
	if r.offset >= len(r.data) {
		return 0, ErrBufferTooShort
	}
	b := r.data[r.offset]
	r.offset++
	return b, nil
}

// ReadUint16 reads a big-endian uint16.
func (r *Reader) ReadUint16() (uint16, error) {
	if r.offset+2 > len(r.data) {
		return 0, ErrBufferTooShort
	}
	v := binary.BigEndian.Uint16(r.data[r.offset:])
	r.offset += 2
	return v, nil
}

// ReadN reads exactly n bytes and returns a slice pointing into the
// original data. The slice is only valid while the data is not modified.
func (r *Reader) ReadN(n int) ([]byte, error) {
	if n < 0 || r.offset+n > len(r.data) {
		return nil, ErrBufferTooShort
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b, nil
}

// ReadFixed reads a fixed-capacity string field of size octets and returns
// its logical value: everything up to the first NUL.
func (r *Reader) ReadFixed(size int) (string, error) {
	b, err := r.ReadN(size)
	if err != nil {
		return "", err
	}
	return string(TrimFixed(b)), nil
}

// ReadFixedBytes reads a fixed-capacity binary field of size octets. The
// whole block is returned, padding included, since zero octets may be data.
// The result is a copy.
func (r *Reader) ReadFixedBytes(size int) ([]byte, error) {
	b, err := r.ReadN(size)
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, b)
	return out, nil
}

// PeekByte returns the next byte without advancing.
func (r *Reader) PeekByte() (byte, error) {
	if r.offset >= len(r.data) {
		return 0, ErrBufferTooShort
	}
	return r.data[r.offset], nil
}

// TrimFixed cuts a fixed-capacity field at its first NUL.
func TrimFixed(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}
