// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/absmach/mqttsn/packets"
	"github.com/absmach/mqttsn/transport"
)

// Topic errors.
var (
	ErrInvalidTopicName = errors.New("bridge: topic name contains wildcards or illegal characters")
	ErrInvalidTopicID   = errors.New("bridge: topic id has no broker topic")
	ErrDownlinkTopic    = errors.New("bridge: malformed downlink topic")
)

const downSegment = "down"

// ValidateTopicName checks that topic can be published to: non-empty valid
// UTF-8 without wildcards or NUL.
func ValidateTopicName(topic string) error {
	if topic == "" || !utf8.ValidString(topic) {
		return ErrInvalidTopicName
	}
	if strings.ContainsAny(topic, "+#\x00") {
		return ErrInvalidTopicName
	}
	return nil
}

// UplinkTopic returns the broker topic for a node PUBLISH.
func UplinkTopic(prefix string, t packets.TopicIDType, topicID uint16) (string, error) {
	name, err := topicName(t, topicID)
	if err != nil {
		return "", err
	}
	return prefix + "/" + name, nil
}

func topicName(t packets.TopicIDType, topicID uint16) (string, error) {
	switch t {
	case packets.TopicNormal, packets.TopicPredefined:
		return strconv.Itoa(int(topicID)), nil
	case packets.TopicShortName:
		name := string([]byte{byte(topicID >> 8), byte(topicID)})
		if err := ValidateTopicName(name); err != nil || strings.Contains(name, "/") {
			return "", ErrInvalidTopicID
		}
		return name, nil
	default:
		return "", ErrInvalidTopicID
	}
}

// ParseDownlinkTopic splits a downlink topic into its destination and topic
// id. unicast is false for broadcast topics, in which case to is zero.
func ParseDownlinkTopic(prefix, topic string) (to transport.Address, topicID uint16, t packets.TopicIDType, unicast bool, err error) {
	rest, ok := strings.CutPrefix(topic, prefix+"/"+downSegment+"/")
	if !ok || rest == "" {
		return 0, 0, 0, false, ErrDownlinkTopic
	}

	parts := strings.Split(rest, "/")
	switch len(parts) {
	case 1:
	case 2:
		a, perr := strconv.ParseUint(parts[0], 8, 16)
		if perr != nil {
			return 0, 0, 0, false, fmt.Errorf("%w: address %q", ErrDownlinkTopic, parts[0])
		}
		to, unicast = transport.Address(a), true
	default:
		return 0, 0, 0, false, ErrDownlinkTopic
	}

	name := parts[len(parts)-1]
	if id, perr := strconv.ParseUint(name, 10, 16); perr == nil {
		return to, uint16(id), packets.TopicPredefined, unicast, nil
	}
	if len(name) == 2 && ValidateTopicName(name) == nil {
		return to, uint16(name[0])<<8 | uint16(name[1]), packets.TopicShortName, unicast, nil
	}
	return 0, 0, 0, false, fmt.Errorf("%w: topic %q", ErrDownlinkTopic, name)
}
