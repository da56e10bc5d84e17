// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// send performs up to MaxRetries write attempts. After every failed attempt,
// the last one included, it runs repair (if any) and waits RetryDelay.
func (o *options) send(ctx context.Context, data []byte, write func() error, repair func(), attrs ...any) error {
	if len(data) > o.cfg.BufferSize {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(data), o.cfg.BufferSize)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	name := typeName(data)
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= o.cfg.MaxRetries; attempt++ {
		lastErr = write()
		if lastErr == nil {
			if o.metrics != nil {
				o.metrics.RecordMessageSent(name, int64(len(data)))
				o.metrics.RecordSendDuration(float64(time.Since(start).Microseconds()) / 1000)
			}
			return nil
		}

		o.logger.Debug("mesh write failed",
			append(attrs,
				slog.String("type", name),
				slog.Int("attempt", attempt),
				slog.String("error", lastErr.Error()))...)
		if o.metrics != nil {
			o.metrics.RecordRetry(name)
		}

		if repair != nil {
			repair()
		}
		if err := wait(ctx, o.cfg.RetryDelay); err != nil {
			return err
		}
	}

	if o.metrics != nil {
		o.metrics.RecordSendFailed(name)
		o.metrics.RecordSendDuration(float64(time.Since(start).Microseconds()) / 1000)
	}
	return fmt.Errorf("%w: %s after %d attempts: %w", ErrRetriesExhausted, name, o.cfg.MaxRetries, lastErr)
}
