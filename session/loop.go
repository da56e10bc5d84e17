// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/absmach/mqttsn/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Drop reasons.
const (
	dropShort    = "short"
	dropOversize = "oversize"
	dropKind     = "kind"
)

// receiver owns the single receive buffer of a session.
type receiver struct {
	mu  sync.Mutex // held for the whole of Loop
	buf []byte
}

func newReceiver(size int) *receiver {
	return &receiver{buf: make([]byte, size)}
}

// loop runs step until the deadline passes or ctx is done. A zero deadline
// means no deadline. The deadline is checked once per iteration, after step,
// so a burst of packets is always fully dispatched.
func (o *options) loop(ctx context.Context, deadline time.Time, step func() int) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := step()

		idle := o.cfg.PollInterval
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return nil
			}
			if remaining < idle {
				idle = remaining
			}
		}
		if n > 0 {
			continue
		}
		if err := wait(ctx, idle); err != nil {
			return err
		}
	}
}

// drain dispatches every pending packet in delivery order. With mqttsnOnly
// set, packets not tagged transport.KindMQTTSN are dropped. It returns the
// number of packets taken from the mesh.
func (o *options) drain(m transport.Mesh, r *receiver, mqttsnOnly bool, dispatch func(msgType byte, data []byte, from transport.Address)) int {
	n := 0
	for {
		p, ok := m.Poll()
		if !ok {
			return n
		}
		n++

		switch {
		case mqttsnOnly && p.Kind != transport.KindMQTTSN:
			o.drop(dropKind, p)
			continue
		case len(p.Data) < 2:
			o.drop(dropShort, p)
			continue
		case len(p.Data) > len(r.buf):
			o.drop(dropOversize, p)
			continue
		}

		size := copy(r.buf, p.Data)
		data := r.buf[:size]
		o.dispatch(data, p.From, func() {
			dispatch(data[1], data, p.From)
		})
	}
}

func (o *options) drop(reason string, p transport.Packet) {
	o.logger.Debug("dropping inbound packet",
		slog.String("reason", reason),
		slog.String("kind", string(rune(p.Kind))),
		slog.String("from", p.From.String()),
		slog.Int("size", len(p.Data)))
	if o.metrics != nil {
		o.metrics.RecordDropped(reason)
	}
}

func (o *options) dispatch(data []byte, from transport.Address, call func()) {
	name := typeName(data)
	if o.tracer != nil {
		_, span := o.tracer.Start(context.Background(), "mqttsn.dispatch", trace.WithAttributes(
			attribute.String("mqttsn.type", name),
			attribute.String("mqttsn.from", from.String()),
			attribute.Int("mqttsn.size", len(data)),
		))
		defer span.End()
	}
	if o.metrics != nil {
		o.metrics.RecordMessageReceived(name, int64(len(data)))
	}
	call()
}
