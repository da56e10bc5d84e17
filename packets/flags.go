// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import "fmt"

// Flag bits as laid out in the flags octet.
const (
	DupFlag          byte = 0b00000001
	QoS1Flag         byte = 0b00000100
	QoS2Flag         byte = 0b00000110
	QoSMinusOneFlag  byte = 0b00000010
	RetainFlag       byte = 0b00001000
	WillFlag         byte = 0b00010000
	CleanSessionFlag byte = 0b00100000
	PredefinedFlag   byte = 0b01000000
	ShortNameFlag    byte = 0b10000000

	qosMask         byte = 0b00000110
	topicIDTypeMask byte = 0b11000000
)

// QoS is a delivery level: 0, 1, 2 or the publish-without-connection
// level -1.
type QoS int8

// QoS levels.
const (
	QoS0        QoS = 0
	QoS1        QoS = 1
	QoS2        QoS = 2
	QoSMinusOne QoS = -1
)

// TopicIDType tells how the topic field of a message is to be interpreted.
type TopicIDType byte

// Topic id types, stored in bits 6 and 7 of the flags octet.
const (
	TopicNormal     TopicIDType = 0b00
	TopicPredefined TopicIDType = 0b01
	TopicShortName  TopicIDType = 0b10
	TopicReserved   TopicIDType = 0b11
)

func (t TopicIDType) String() string {
	switch t {
	case TopicNormal:
		return "normal"
	case TopicPredefined:
		return "predefined"
	case TopicShortName:
		return "short_name"
	default:
		return "reserved"
	}
}

// Flags is the one-octet bit-field carried by CONNECT, WILLTOPIC,
// WILLTOPICUPD, the PUBLISH family, SUBSCRIBE, UNSUBSCRIBE and SUBACK.
type Flags byte

// FlagOptions describes a flags octet field by field.
type FlagOptions struct {
	Dup          bool
	QoS          QoS
	Retain       bool
	Will         bool
	CleanSession bool
	TopicIDType  TopicIDType
}

// NewFlags packs opts into a flags octet.
func NewFlags(opts FlagOptions) Flags {
	var f Flags
	f = f.SetDup(opts.Dup)
	f = f.SetQoS(opts.QoS)
	f = f.SetRetain(opts.Retain)
	f = f.SetWill(opts.Will)
	f = f.SetCleanSession(opts.CleanSession)
	f = f.SetTopicIDType(opts.TopicIDType)
	return f
}

// Options unpacks the flags octet.
func (f Flags) Options() FlagOptions {
	return FlagOptions{
		Dup:          f.Dup(),
		QoS:          f.QoS(),
		Retain:       f.Retain(),
		Will:         f.Will(),
		CleanSession: f.CleanSession(),
		TopicIDType:  f.TopicIDType(),
	}
}

func (f Flags) has(bit byte) bool {
	return byte(f)&bit != 0
}

func (f Flags) set(bit byte, on bool) Flags {
	if on {
		return f | Flags(bit)
	}
	return f &^ Flags(bit)
}

func (f Flags) Dup() bool                     { return f.has(DupFlag) }
func (f Flags) SetDup(on bool) Flags          { return f.set(DupFlag, on) }
func (f Flags) Retain() bool                  { return f.has(RetainFlag) }
func (f Flags) SetRetain(on bool) Flags       { return f.set(RetainFlag, on) }
func (f Flags) Will() bool                    { return f.has(WillFlag) }
func (f Flags) SetWill(on bool) Flags         { return f.set(WillFlag, on) }
func (f Flags) CleanSession() bool            { return f.has(CleanSessionFlag) }
func (f Flags) SetCleanSession(on bool) Flags { return f.set(CleanSessionFlag, on) }

// QoS decodes the two QoS bits.
func (f Flags) QoS() QoS {
	switch byte(f) & qosMask {
	case QoS1Flag:
		return QoS1
	case QoS2Flag:
		return QoS2
	case QoSMinusOneFlag:
		return QoSMinusOne
	default:
		return QoS0
	}
}

// SetQoS replaces the two QoS bits. Values outside {-1, 0, 1, 2} clear them.
func (f Flags) SetQoS(q QoS) Flags {
	f &^= Flags(qosMask)
	switch q {
	case QoS1:
		f |= Flags(QoS1Flag)
	case QoS2:
		f |= Flags(QoS2Flag)
	case QoSMinusOne:
		f |= Flags(QoSMinusOneFlag)
	}
	return f
}

// TopicIDType decodes bits 6 and 7: bit 6 marks a predefined id and bit 7 a
// short topic name.
func (f Flags) TopicIDType() TopicIDType {
	var t TopicIDType
	if f.has(PredefinedFlag) {
		t |= TopicPredefined
	}
	if f.has(ShortNameFlag) {
		t |= TopicShortName
	}
	return t
}

// SetTopicIDType replaces bits 6 and 7.
func (f Flags) SetTopicIDType(t TopicIDType) Flags {
	f &^= Flags(topicIDTypeMask)
	f = f.set(PredefinedFlag, t&TopicPredefined != 0)
	return f.set(ShortNameFlag, t&TopicShortName != 0)
}

func (f Flags) String() string {
	return fmt.Sprintf("dup: %t qos: %d retain: %t will: %t clean_session: %t topic_id_type: %s",
		f.Dup(), f.QoS(), f.Retain(), f.Will(), f.CleanSession(), f.TopicIDType())
}
