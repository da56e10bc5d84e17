// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/absmach/mqttsn/config"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	connectTimeout    = 10 * time.Second
	keepAlive         = 60 * time.Second
	disconnectQuiesce = 250 // milliseconds
	maxQoS            = 2
)

// Broker errors.
var (
	ErrNotConnected     = errors.New("bridge: broker not connected")
	ErrConnectionFailed = errors.New("bridge: broker connection failed")
	ErrPublishFailed    = errors.New("bridge: publish failed")
	ErrSubscribeFailed  = errors.New("bridge: subscribe failed")
	ErrInvalidQoS       = errors.New("bridge: invalid QoS level (must be 0, 1, or 2)")
	ErrInvalidTopic     = errors.New("bridge: topic cannot be empty")
)

// MessageHandler receives messages delivered by the broker.
type MessageHandler func(topic string, payload []byte)

// Broker is the MQTT broker connection used by the bridge.
type Broker interface {
	Publish(topic string, qos byte, payload []byte) error
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Close()
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// PahoBroker is a Broker backed by the Eclipse Paho client.
type PahoBroker struct {
	client  mqtt.Client
	timeout time.Duration
	logger  *slog.Logger

	subMu sync.Mutex
	subs  map[string]subscription
}

var _ Broker = (*PahoBroker)(nil)

// ClientID returns cfg.ClientID, or a random one when it is empty.
func ClientID(cfg config.BridgeConfig) string {
	if cfg.ClientID != "" {
		return cfg.ClientID
	}
	return "mqttsn-gw-" + uuid.NewString()
}

// Connect dials the broker named in cfg and waits for the session.
func Connect(cfg config.BridgeConfig, logger *slog.Logger) (*PahoBroker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b := &PahoBroker{
		timeout: cfg.PublishTimeout,
		logger:  logger,
		subs:    make(map[string]subscription),
	}
	b.client = mqtt.NewClient(b.clientOptions(cfg))

	token := b.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	logger.Info("bridge connected to broker", slog.String("broker", cfg.Broker))
	return b, nil
}

func (b *PahoBroker) clientOptions(cfg config.BridgeConfig) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(ClientID(cfg))
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)
	opts.SetOnConnectHandler(b.onConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		b.logger.Warn("bridge lost broker connection", "error", err)
	})
	return opts
}

// onConnect restores subscriptions after a reconnect.
func (b *PahoBroker) onConnect(c mqtt.Client) {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	for topic, sub := range b.subs {
		token := c.Subscribe(topic, sub.qos, wrap(sub.handler))
		if token.WaitTimeout(b.timeout) && token.Error() != nil {
			b.logger.Error("bridge resubscribe failed", slog.String("topic", topic), "error", token.Error())
		}
	}
}

// Publish sends payload to topic and waits for the broker acknowledgement.
func (b *PahoBroker) Publish(topic string, qos byte, payload []byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if !b.client.IsConnected() {
		return ErrNotConnected
	}

	token := b.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(b.timeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, b.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Subscribe registers handler for topic. The subscription survives
// reconnects.
func (b *PahoBroker) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !b.client.IsConnected() {
		return ErrNotConnected
	}

	b.subMu.Lock()
	b.subs[topic] = subscription{qos: qos, handler: handler}
	b.subMu.Unlock()

	token := b.client.Subscribe(topic, qos, wrap(handler))
	if !token.WaitTimeout(b.timeout) {
		b.forget(topic)
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, b.timeout)
	}
	if err := token.Error(); err != nil {
		b.forget(topic)
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	return nil
}

func (b *PahoBroker) forget(topic string) {
	b.subMu.Lock()
	delete(b.subs, topic)
	b.subMu.Unlock()
}

// Close disconnects from the broker.
func (b *PahoBroker) Close() {
	b.client.Disconnect(disconnectQuiesce)
}

func wrap(h MessageHandler) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		h(msg.Topic(), msg.Payload())
	}
}
