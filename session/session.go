// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package session implements the two MQTT-SN roles on top of a mesh:
// a Node, which talks to the mesh root, and a Gateway, which is the root and
// addresses nodes individually.
//
// Both roles deliver outbound messages with a bounded retry and dispatch
// inbound messages from a single receive buffer owned by the session. A
// handler sees the message type and the raw bytes; decoding the variant is
// left to the handler (see packets.Unmarshal). The bytes are only valid for
// the duration of the call.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/absmach/mqttsn/packets"
	"github.com/absmach/mqttsn/server/otel"
	"go.opentelemetry.io/otel/trace"
)

// Defaults.
const (
	DefaultMaxRetries   = 10
	DefaultRetryDelay   = time.Second
	DefaultBufferSize   = packets.MaxPacketSize
	DefaultPollInterval = 5 * time.Millisecond
)

// Session errors.
var (
	ErrJoinFailed       = errors.New("mesh join failed")
	ErrRetriesExhausted = errors.New("send retries exhausted")
	ErrNotSetup         = errors.New("session is not set up")
	ErrInvalidNodeID    = errors.New("node id must be in 1..253")
	ErrMessageTooLarge  = errors.New("message exceeds receive buffer size")
)

// Node ids outside this range are reserved: 0 is the gateway and 254, 255
// are used by the mesh itself.
const (
	MinNodeID uint8 = 1
	MaxNodeID uint8 = 253
)

// Config holds the session tuning shared by both roles.
type Config struct {
	MaxRetries   int
	RetryDelay   time.Duration
	BufferSize   int
	PollInterval time.Duration
}

// DefaultConfig returns the configuration used when no option overrides it.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   DefaultMaxRetries,
		RetryDelay:   DefaultRetryDelay,
		BufferSize:   DefaultBufferSize,
		PollInterval: DefaultPollInterval,
	}
}

type options struct {
	cfg     Config
	logger  *slog.Logger
	metrics *otel.Metrics // nil if metrics disabled
	tracer  trace.Tracer  // nil if tracing disabled
}

// Option configures a session.
type Option func(*options)

// WithConfig replaces the whole session configuration. Zero fields keep
// their defaults.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		if cfg.MaxRetries > 0 {
			o.cfg.MaxRetries = cfg.MaxRetries
		}
		if cfg.RetryDelay > 0 {
			o.cfg.RetryDelay = cfg.RetryDelay
		}
		if cfg.BufferSize > 0 {
			o.cfg.BufferSize = cfg.BufferSize
		}
		if cfg.PollInterval > 0 {
			o.cfg.PollInterval = cfg.PollInterval
		}
	}
}

// WithMaxRetries sets the number of write attempts per send.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.cfg.MaxRetries = n
		}
	}
}

// WithRetryDelay sets the pause after a failed write.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.cfg.RetryDelay = d
		}
	}
}

// WithPollInterval sets how long Loop idles when the mesh has nothing queued.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.cfg.PollInterval = d
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics enables metric recording.
func WithMetrics(m *otel.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracer enables a span around every handler dispatch.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

func newOptions(opts []Option) options {
	o := options{
		cfg:    DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// wait sleeps for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func typeName(data []byte) string {
	t, err := packets.PeekType(data)
	if err != nil {
		return "SHORT"
	}
	if n, ok := packets.PacketNames[t]; ok {
		return n
	}
	return "UNKNOWN"
}
