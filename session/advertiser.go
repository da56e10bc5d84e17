// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/mqttsn/packets"
)

// Advertised is the part of a gateway the Advertiser drives.
type Advertised interface {
	LoopFor(ctx context.Context, h GatewayHandler, block time.Duration) error
	SendToAll(ctx context.Context, msg packets.Message)
}

var _ Advertised = (*Gateway)(nil)

// Advertiser alternates between serving inbound traffic for Interval and
// broadcasting ADVERTISE to every known node.
type Advertiser struct {
	GatewayID byte
	// Duration is the advertised interval in seconds.
	Duration uint16
	Interval time.Duration
	Logger   *slog.Logger
}

// Message returns the ADVERTISE this advertiser broadcasts.
func (a *Advertiser) Message() *packets.Advertise {
	return &packets.Advertise{GatewayID: a.GatewayID, Duration: a.Duration}
}

// Run serves h and advertises until ctx is done or the loop fails.
func (a *Advertiser) Run(ctx context.Context, gw Advertised, h GatewayHandler) error {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for {
		if err := gw.LoopFor(ctx, h, a.Interval); err != nil {
			return err
		}
		logger.Debug("advertising gateway", slog.Int("gw_id", int(a.GatewayID)))
		gw.SendToAll(ctx, a.Message())
	}
}
