// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/absmach/mqttsn/config"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientID(t *testing.T) {
	assert.Equal(t, "gw-1", ClientID(config.BridgeConfig{ClientID: "gw-1"}))

	a := ClientID(config.BridgeConfig{})
	b := ClientID(config.BridgeConfig{})
	assert.True(t, strings.HasPrefix(a, "mqttsn-gw-"))
	assert.NotEqual(t, a, b)
}

func TestClientOptions(t *testing.T) {
	b := &PahoBroker{logger: slog.Default(), subs: make(map[string]subscription)}
	opts := b.clientOptions(config.BridgeConfig{
		Broker:   "tcp://broker.local:1883",
		ClientID: "gw-1",
		Username: "user",
		Password: "secret",
	})

	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "tcp://broker.local:1883", opts.Servers[0].String())
	assert.Equal(t, "gw-1", opts.ClientID)
	assert.Equal(t, "user", opts.Username)
	assert.Equal(t, "secret", opts.Password)
	assert.True(t, opts.CleanSession)
	assert.True(t, opts.AutoReconnect)
}

func TestPahoBrokerValidation(t *testing.T) {
	b := &PahoBroker{timeout: time.Second, logger: slog.Default(), subs: make(map[string]subscription)}
	b.client = mqtt.NewClient(b.clientOptions(config.BridgeConfig{Broker: "tcp://127.0.0.1:1"}))

	assert.ErrorIs(t, b.Publish("", 0, nil), ErrInvalidTopic)
	assert.ErrorIs(t, b.Publish("t", 3, nil), ErrInvalidQoS)
	assert.ErrorIs(t, b.Publish("t", 1, nil), ErrNotConnected)

	assert.ErrorIs(t, b.Subscribe("", 0, func(string, []byte) {}), ErrInvalidTopic)
	assert.ErrorIs(t, b.Subscribe("t", 3, func(string, []byte) {}), ErrInvalidQoS)
	assert.ErrorIs(t, b.Subscribe("t", 0, nil), ErrSubscribeFailed)
	assert.ErrorIs(t, b.Subscribe("t", 0, func(string, []byte) {}), ErrNotConnected)
	assert.Empty(t, b.subs)
}
