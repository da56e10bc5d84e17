// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package bridge connects the mesh to an MQTT broker. Node PUBLISH messages
// are forwarded upstream, and broker messages on the downlink topics are
// delivered to nodes.
//
// Topics are derived from the MQTT-SN topic id:
//
//	uplink:    {prefix}/{topic}
//	broadcast: {prefix}/down/{topic}
//	unicast:   {prefix}/down/{address}/{topic}
//
// where {topic} is the decimal id for normal and predefined ids, or the two
// characters of a short topic name, and {address} is the octal mesh address.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/absmach/mqttsn/config"
	"github.com/absmach/mqttsn/packets"
	"github.com/absmach/mqttsn/ratelimit"
	"github.com/absmach/mqttsn/server/otel"
	"github.com/absmach/mqttsn/transport"
	"github.com/sony/gobreaker"
)

// ErrPayloadTooLarge is reported for downlink payloads that do not fit a
// PUBLISH.
var ErrPayloadTooLarge = errors.New("bridge: payload exceeds publish capacity")

// Downlink delivers messages to nodes. *session.Gateway implements it.
type Downlink interface {
	SendTo(ctx context.Context, msg packets.Message, to transport.Address) error
	SendToAll(ctx context.Context, msg packets.Message)
}

// Bridge forwards PUBLISH traffic between the mesh and a broker.
type Bridge struct {
	cfg     config.BridgeConfig
	broker  Broker
	down    Downlink
	breaker *gobreaker.CircuitBreaker
	limiter *ratelimit.Manager
	logger  *slog.Logger
	metrics *otel.Metrics

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMetrics records bridge outcomes on m.
func WithMetrics(m *otel.Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

// WithRateLimiter throttles uplink PUBLISH per sender.
func WithRateLimiter(l *ratelimit.Manager) Option {
	return func(b *Bridge) { b.limiter = l }
}

// New creates a bridge publishing through broker and delivering downlink
// messages through down.
func New(cfg config.BridgeConfig, broker Broker, down Downlink, opts ...Option) *Bridge {
	b := &Bridge{
		cfg:    cfg,
		broker: broker,
		down:   down,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "bridge",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     cfg.CircuitBreaker.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.CircuitBreaker.FailureThreshold)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			b.logger.Warn("bridge circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	return b
}

// State returns the circuit breaker state.
func (b *Bridge) State() gobreaker.State {
	return b.breaker.State()
}

// Start subscribes to the downlink topics. Deliveries stop when ctx is done
// or Close is called.
func (b *Bridge) Start(ctx context.Context) error {
	if err := ValidateTopicName(b.cfg.TopicPrefix); err != nil {
		return fmt.Errorf("topic prefix %q: %w", b.cfg.TopicPrefix, err)
	}

	b.mu.Lock()
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.mu.Unlock()

	topic := b.cfg.TopicPrefix + "/" + downSegment + "/#"
	if err := b.broker.Subscribe(topic, b.cfg.QoS, b.handleDownlink); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	b.logger.Info("bridge started", slog.String("downlink", topic))
	return nil
}

// Close stops downlink delivery and disconnects from the broker.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.mu.Unlock()
	b.broker.Close()
}

// HandleMessage forwards a node PUBLISH to the broker. It implements
// session.GatewayHandler. QoS 1 publishes are acknowledged with a PUBACK
// carrying the outcome.
func (b *Bridge) HandleMessage(msgType byte, data []byte, from transport.Address) {
	if msgType != packets.PublishType {
		return
	}

	var pub packets.Publish
	if err := packets.Unmarshal(data, &pub); err != nil {
		b.logger.Warn("malformed PUBLISH", slog.String("from", from.String()), "error", err)
		return
	}

	rc := b.uplink(&pub, from)
	if pub.Flags.QoS() != packets.QoS1 {
		return
	}

	ack := &packets.PubAck{TopicID: pub.TopicID, MsgID: pub.MsgID, ReturnCode: rc}
	if err := b.down.SendTo(b.context(), ack, from); err != nil {
		b.logger.Warn("failed to send PUBACK",
			slog.String("to", from.String()),
			slog.Int("msg_id", int(pub.MsgID)),
			"error", err)
	}
}

func (b *Bridge) uplink(pub *packets.Publish, from transport.Address) byte {
	if !b.limiter.Allow(from) {
		b.logger.Debug("uplink rate limited", slog.String("from", from.String()))
		if b.metrics != nil {
			b.metrics.RecordRateLimited()
		}
		return packets.RejectedCongestion
	}

	topic, err := UplinkTopic(b.cfg.TopicPrefix, pub.Flags.TopicIDType(), pub.TopicID)
	if err != nil {
		b.record("rejected")
		return packets.RejectedInvalidTopicID
	}

	_, err = b.breaker.Execute(func() (interface{}, error) {
		return nil, b.broker.Publish(topic, b.cfg.QoS, pub.Data)
	})
	switch {
	case err == nil:
		b.record("ok")
		b.logger.Debug("uplink published",
			slog.String("from", from.String()),
			slog.String("topic", topic),
			slog.Int("size", len(pub.Data)))
		return packets.Accepted
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		b.record("open")
		return packets.RejectedCongestion
	default:
		b.record("error")
		b.logger.Warn("uplink publish failed",
			slog.String("from", from.String()),
			slog.String("topic", topic),
			"error", err)
		return packets.RejectedCongestion
	}
}

func (b *Bridge) handleDownlink(topic string, payload []byte) {
	to, topicID, idType, unicast, err := ParseDownlinkTopic(b.cfg.TopicPrefix, topic)
	if err != nil {
		b.record("downlink_dropped")
		b.logger.Warn("dropping downlink message", slog.String("topic", topic), "error", err)
		return
	}
	if len(payload) > packets.PublishSize {
		b.record("downlink_dropped")
		b.logger.Warn("dropping downlink message",
			slog.String("topic", topic),
			slog.Int("size", len(payload)),
			"error", ErrPayloadTooLarge)
		return
	}

	pub := &packets.Publish{
		Flags:   packets.NewFlags(packets.FlagOptions{QoS: packets.QoS0, TopicIDType: idType}),
		TopicID: topicID,
		Data:    payload,
	}

	ctx := b.context()
	if !unicast {
		b.down.SendToAll(ctx, pub)
		b.record("downlink")
		return
	}
	if err := b.down.SendTo(ctx, pub, to); err != nil {
		b.record("downlink_failed")
		b.logger.Warn("downlink delivery failed", slog.String("to", to.String()), "error", err)
		return
	}
	b.record("downlink")
}

func (b *Bridge) context() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx == nil {
		return context.Background()
	}
	return b.ctx
}

func (b *Bridge) record(outcome string) {
	if b.metrics != nil {
		b.metrics.RecordBridgePublish(outcome)
	}
}
