// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds OpenTelemetry metric instruments for MQTT-SN sessions.
type Metrics struct {
	meter metric.Meter

	// Counters
	messagesReceived metric.Int64Counter
	messagesSent     metric.Int64Counter
	bytesReceived    metric.Int64Counter
	bytesSent        metric.Int64Counter
	sendRetries      metric.Int64Counter
	sendFailures     metric.Int64Counter
	packetsDropped   metric.Int64Counter
	meshRepairs      metric.Int64Counter
	rateLimited      metric.Int64Counter
	bridgePublishes  metric.Int64Counter

	// Gauges
	peersKnown metric.Int64Gauge

	// Histograms
	messageSize  metric.Int64Histogram
	sendDuration metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance using the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsWithMeter(otel.Meter("mqttsn"))
}

// NewMetricsWithMeter creates a new Metrics instance on meter.
func NewMetricsWithMeter(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{meter: meter}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.messagesReceived, "mqttsn.messages.received.total", "Total MQTT-SN messages dispatched to handlers"},
		{&m.messagesSent, "mqttsn.messages.sent.total", "Total MQTT-SN messages written to the mesh"},
		{&m.bytesReceived, "mqttsn.bytes.received.total", "Total bytes received"},
		{&m.bytesSent, "mqttsn.bytes.sent.total", "Total bytes sent"},
		{&m.sendRetries, "mqttsn.send.retries.total", "Failed write attempts that were retried"},
		{&m.sendFailures, "mqttsn.send.failures.total", "Sends that exhausted every attempt"},
		{&m.packetsDropped, "mqttsn.packets.dropped.total", "Inbound packets dropped before dispatch"},
		{&m.meshRepairs, "mqttsn.mesh.repairs.total", "Address renewals and rejoins performed while sending"},
		{&m.rateLimited, "mqttsn.ratelimit.rejected.total", "Inbound messages rejected by the per-peer rate limiter"},
		{&m.bridgePublishes, "mqttsn.bridge.publishes.total", "Messages forwarded to the MQTT broker"},
	}
	for _, c := range counters {
		ctr, err := m.meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.dst = ctr
	}

	var err error
	m.peersKnown, err = m.meter.Int64Gauge(
		"mqttsn.peers.known",
		metric.WithDescription("Number of addresses in the gateway's address table"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create peersKnown gauge: %w", err)
	}

	m.messageSize, err = m.meter.Int64Histogram(
		"mqttsn.message.size.bytes",
		metric.WithDescription("Message size distribution"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create messageSize histogram: %w", err)
	}

	m.sendDuration, err = m.meter.Float64Histogram(
		"mqttsn.send.duration.ms",
		metric.WithDescription("Time spent delivering one message, retries included, in milliseconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sendDuration histogram: %w", err)
	}

	return m, nil
}

// RecordMessageReceived records a message dispatched to a handler.
func (m *Metrics) RecordMessageReceived(msgType string, sizeBytes int64) {
	ctx := context.Background()
	m.messagesReceived.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", msgType),
	))
	m.bytesReceived.Add(ctx, sizeBytes)
	m.messageSize.Record(ctx, sizeBytes)
}

// RecordMessageSent records a message written to the mesh.
func (m *Metrics) RecordMessageSent(msgType string, sizeBytes int64) {
	ctx := context.Background()
	m.messagesSent.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", msgType),
	))
	m.bytesSent.Add(ctx, sizeBytes)
}

// RecordRetry records a failed write that will be retried.
func (m *Metrics) RecordRetry(msgType string) {
	m.sendRetries.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("type", msgType),
	))
}

// RecordSendFailed records a send that exhausted its attempts.
func (m *Metrics) RecordSendFailed(msgType string) {
	m.sendFailures.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("type", msgType),
	))
}

// RecordDropped records an inbound packet dropped before dispatch.
func (m *Metrics) RecordDropped(reason string) {
	m.packetsDropped.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordRepair records a mesh repair step: "renew" or "rejoin".
func (m *Metrics) RecordRepair(kind string, ok bool) {
	m.meshRepairs.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("ok", ok),
	))
}

// RecordRateLimited records a message rejected by the rate limiter.
func (m *Metrics) RecordRateLimited() {
	m.rateLimited.Add(context.Background(), 1)
}

// RecordBridgePublish records a bridge publish and its outcome.
func (m *Metrics) RecordBridgePublish(outcome string) {
	m.bridgePublishes.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordPeers records the current size of the address table.
func (m *Metrics) RecordPeers(n int) {
	m.peersKnown.Record(context.Background(), int64(n))
}

// RecordSendDuration records the duration of one send.
func (m *Metrics) RecordSendDuration(durationMs float64) {
	m.sendDuration.Record(context.Background(), durationMs)
}
