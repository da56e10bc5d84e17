// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"testing"
	"time"

	"github.com/absmach/mqttsn/config"
	"github.com/absmach/mqttsn/transport"
	"github.com/stretchr/testify/assert"
)

func TestPeerRateLimiter_Allow(t *testing.T) {
	limiter := NewPeerRateLimiter(5, 2, time.Minute)
	defer limiter.Stop()

	addr := transport.Address(01)

	assert.True(t, limiter.Allow(addr), "first message")
	assert.True(t, limiter.Allow(addr), "second message within burst")
	assert.False(t, limiter.Allow(addr), "burst exhausted")

	time.Sleep(250 * time.Millisecond)

	assert.True(t, limiter.Allow(addr), "token refilled")
}

func TestPeerRateLimiter_DifferentPeers(t *testing.T) {
	limiter := NewPeerRateLimiter(1, 1, time.Minute)
	defer limiter.Stop()

	a, b := transport.Address(01), transport.Address(02)

	assert.True(t, limiter.Allow(a))
	assert.True(t, limiter.Allow(b))
	assert.False(t, limiter.Allow(a))
	assert.False(t, limiter.Allow(b))
	assert.Equal(t, 2, limiter.Len())
}

func TestPeerRateLimiter_Remove(t *testing.T) {
	limiter := NewPeerRateLimiter(1, 1, time.Minute)
	defer limiter.Stop()

	addr := transport.Address(05)
	assert.True(t, limiter.Allow(addr))
	assert.False(t, limiter.Allow(addr))

	limiter.Remove(addr)
	assert.Equal(t, 0, limiter.Len())
	assert.True(t, limiter.Allow(addr), "fresh bucket after remove")
}

func TestPeerRateLimiter_EvictStale(t *testing.T) {
	limiter := NewPeerRateLimiter(1, 1, time.Minute)
	defer limiter.Stop()

	now := time.Now()
	limiter.now = func() time.Time { return now }
	limiter.Allow(transport.Address(01))

	now = now.Add(90 * time.Second)
	limiter.Allow(transport.Address(02))

	now = now.Add(60 * time.Second)
	limiter.evictStale()

	assert.Equal(t, 1, limiter.Len(), "only the recently seen peer survives")
}

func TestPeerRateLimiter_StopTwice(t *testing.T) {
	limiter := NewPeerRateLimiter(1, 1, time.Millisecond)
	limiter.Stop()
	assert.NotPanics(t, limiter.Stop)
}

func TestManager(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.RateLimitConfig
		allowed int
	}{
		{
			name:    "disabled allows everything",
			cfg:     config.RateLimitConfig{Enabled: false, Rate: 1, Burst: 1},
			allowed: 10,
		},
		{
			name:    "enabled enforces burst",
			cfg:     config.RateLimitConfig{Enabled: true, Rate: 0.001, Burst: 3, CleanupInterval: time.Minute},
			allowed: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(tt.cfg)
			defer m.Stop()

			var n int
			for range 10 {
				if m.Allow(transport.Address(07)) {
					n++
				}
			}
			assert.Equal(t, tt.allowed, n)
			assert.Equal(t, tt.cfg.Enabled, m.Enabled())
		})
	}
}

func TestManager_OnDisconnect(t *testing.T) {
	m := NewManager(config.RateLimitConfig{Enabled: true, Rate: 0.001, Burst: 1, CleanupInterval: time.Minute})
	defer m.Stop()

	addr := transport.Address(03)
	assert.True(t, m.Allow(addr))
	assert.False(t, m.Allow(addr))

	m.OnDisconnect(addr)
	assert.True(t, m.Allow(addr))
}

func TestManager_Nil(t *testing.T) {
	var m *Manager
	assert.True(t, m.Allow(transport.Address(01)))
	assert.NotPanics(t, m.Stop)
}
