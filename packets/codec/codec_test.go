// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec_test

import (
	"testing"

	"github.com/absmach/mqttsn/packets/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint16BigEndian(t *testing.T) {
	tests := []struct {
		name  string
		input uint16
		want  []byte
	}{
		{"zero", 0, []byte{0x00, 0x00}},
		{"max", 0xFFFF, []byte{0xFF, 0xFF}},
		{"arbitrary", 0x1234, []byte{0x12, 0x34}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codec.EncodeUint16(tt.input))
			assert.Equal(t, tt.want, codec.AppendUint16(nil, tt.input))

			v, err := codec.NewReader(tt.want).ReadUint16()
			require.NoError(t, err)
			assert.Equal(t, tt.input, v)
		})
	}
}

func TestAppendFixed(t *testing.T) {
	assert.Equal(t, []byte{'a', 'b', 0, 0}, codec.AppendFixed(nil, "ab", 4))
	assert.Equal(t, []byte{'a', 'b'}, codec.AppendFixed(nil, "abcdef", 2))
	assert.Equal(t, []byte{0, 0, 0}, codec.AppendFixed(nil, "", 3))
	assert.Equal(t, []byte{1, 2, 0}, codec.AppendFixedBytes(nil, []byte{1, 2}, 3))
}

func TestReadFixed(t *testing.T) {
	r := codec.NewReader([]byte{'h', 'i', 0, 'x', 'y', 0xFF})
	s, err := r.ReadFixed(5)
	require.NoError(t, err)
	assert.Equal(t, "hi", s)
	assert.Equal(t, 1, r.Remaining())

	_, err = r.ReadFixed(2)
	assert.ErrorIs(t, err, codec.ErrBufferTooShort)
}

func TestReadFixedBytesKeepsBlock(t *testing.T) {
	data := []byte{1, 0, 0, 0, 0xFF}
	r := codec.NewReader(data)
	b, err := r.ReadFixedBytes(4)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 0, 0}, b)
	assert.Equal(t, 1, r.Remaining())

	data[0] = 9
	assert.Equal(t, byte(1), b[0])
}

func TestEncodeBool(t *testing.T) {
	assert.Equal(t, byte(1), codec.EncodeBool(true))
	assert.Equal(t, byte(0), codec.EncodeBool(false))
}

func TestReaderBounds(t *testing.T) {
	r := codec.NewReader([]byte{0x01})

	p, err := r.PeekByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), p)
	assert.Equal(t, 1, r.Remaining())

	_, err = r.ReadUint16()
	assert.ErrorIs(t, err, codec.ErrBufferTooShort)

	b, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), b)

	_, err = r.ReadByte()
	assert.ErrorIs(t, err, codec.ErrBufferTooShort)
	_, err = r.PeekByte()
	assert.ErrorIs(t, err, codec.ErrBufferTooShort)
	_, err = r.ReadN(-1)
	assert.ErrorIs(t, err, codec.ErrBufferTooShort)
}
