// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlagsPacking(t *testing.T) {
	tests := []struct {
		name string
		opts FlagOptions
		want Flags
	}{
		{"zero", FlagOptions{}, 0},
		{"dup", FlagOptions{Dup: true}, 0b00000001},
		{"qos1", FlagOptions{QoS: QoS1}, 0b00000100},
		{"qos2 will clean", FlagOptions{QoS: QoS2, Will: true, CleanSession: true}, 0b00110110},
		{"qos minus one", FlagOptions{QoS: QoSMinusOne}, 0b00000010},
		{"retain", FlagOptions{Retain: true}, 0b00001000},
		{"predefined", FlagOptions{TopicIDType: TopicPredefined}, 0b01000000},
		{"short name", FlagOptions{TopicIDType: TopicShortName}, 0b10000000},
		{"reserved", FlagOptions{TopicIDType: TopicReserved}, 0b11000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFlags(tt.opts)
			assert.Equal(t, tt.want, f)
			assert.Equal(t, tt.opts, f.Options())
		})
	}
}

func TestFlagsSettersLeaveOtherBits(t *testing.T) {
	f := NewFlags(FlagOptions{Dup: true, Retain: true, TopicIDType: TopicShortName})

	f = f.SetQoS(QoS2)
	assert.True(t, f.Dup())
	assert.True(t, f.Retain())
	assert.Equal(t, TopicShortName, f.TopicIDType())

	f = f.SetQoS(QoS0).SetRetain(false).SetTopicIDType(TopicNormal)
	assert.Equal(t, Flags(DupFlag), f)
}

func TestTopicIDTypeString(t *testing.T) {
	assert.Equal(t, "normal", TopicNormal.String())
	assert.Equal(t, "predefined", TopicPredefined.String())
	assert.Equal(t, "short_name", TopicShortName.String())
	assert.Equal(t, "reserved", TopicReserved.String())
}
