// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"testing"
	"time"

	"github.com/absmach/mqttsn/packets"
	"github.com/absmach/mqttsn/server/otel"
	"github.com/absmach/mqttsn/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTelemetry(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := otel.NewMetricsWithMeter(mp.Meter("test"))
	require.NoError(t, err)

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	hub, _, nodes, g := setupGateway(t, 1, WithMetrics(metrics), WithTracer(tp.Tracer("test")))
	require.NoError(t, nodes[0].Write((&packets.PingReq{}).Encode(), transport.KindMQTTSN))
	require.NoError(t, nodes[0].Write([]byte{1}, transport.KindMQTTSN))
	require.NoError(t, g.LoopFor(context.Background(), NewMux(), 5*time.Millisecond))

	hub.FailWrites(nodes[0].Address(), true)
	g.SendToAll(context.Background(), &packets.Advertise{})

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "mqttsn.dispatch", ended[0].Name())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	for _, want := range []string{
		"mqttsn.messages.received.total",
		"mqttsn.packets.dropped.total",
		"mqttsn.send.retries.total",
		"mqttsn.send.failures.total",
		"mqttsn.peers.known",
	} {
		assert.True(t, names[want], "missing metric %s", want)
	}
}
