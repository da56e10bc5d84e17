// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit throttles inbound traffic per mesh peer.
package ratelimit

import (
	"sync"
	"time"

	"github.com/absmach/mqttsn/config"
	"github.com/absmach/mqttsn/transport"
	"golang.org/x/time/rate"
)

// PeerRateLimiter keeps one token bucket per mesh address.
type PeerRateLimiter struct {
	mu       sync.Mutex
	limiters map[transport.Address]*peerEntry
	rate     rate.Limit
	burst    int
	cleanup  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

type peerEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewPeerRateLimiter creates a limiter allowing r messages per second per
// peer with the given burst. Entries idle for two cleanup intervals are
// evicted.
func NewPeerRateLimiter(r float64, burst int, cleanupInterval time.Duration) *PeerRateLimiter {
	l := &PeerRateLimiter{
		limiters: make(map[transport.Address]*peerEntry),
		rate:     rate.Limit(r),
		burst:    burst,
		cleanup:  cleanupInterval,
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}
	if cleanupInterval > 0 {
		go l.cleanupLoop()
	}
	return l
}

// Allow reports whether one more message from addr is allowed now.
func (l *PeerRateLimiter) Allow(addr transport.Address) bool {
	l.mu.Lock()
	entry, ok := l.limiters[addr]
	if !ok {
		entry = &peerEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[addr] = entry
	}
	entry.lastSeen = l.now()
	limiter := entry.limiter
	l.mu.Unlock()

	return limiter.Allow()
}

// Remove forgets the bucket of addr.
func (l *PeerRateLimiter) Remove(addr transport.Address) {
	l.mu.Lock()
	delete(l.limiters, addr)
	l.mu.Unlock()
}

// Len returns the number of tracked peers.
func (l *PeerRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *PeerRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evictStale()
		case <-l.stopCh:
			return
		}
	}
}

func (l *PeerRateLimiter) evictStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	threshold := l.now().Add(-l.cleanup * 2)
	for addr, entry := range l.limiters {
		if entry.lastSeen.Before(threshold) {
			delete(l.limiters, addr)
		}
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (l *PeerRateLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

// Manager applies the configured policy. A disabled manager allows
// everything.
type Manager struct {
	peers *PeerRateLimiter
}

// NewManager creates a manager from cfg.
func NewManager(cfg config.RateLimitConfig) *Manager {
	if !cfg.Enabled {
		return &Manager{}
	}
	return &Manager{
		peers: NewPeerRateLimiter(cfg.Rate, cfg.Burst, cfg.CleanupInterval),
	}
}

// Enabled reports whether limiting is active.
func (m *Manager) Enabled() bool {
	return m != nil && m.peers != nil
}

// Allow reports whether a message from addr is allowed.
func (m *Manager) Allow(addr transport.Address) bool {
	if !m.Enabled() {
		return true
	}
	return m.peers.Allow(addr)
}

// OnDisconnect drops the state kept for addr.
func (m *Manager) OnDisconnect(addr transport.Address) {
	if !m.Enabled() {
		return
	}
	m.peers.Remove(addr)
}

// Stop releases background resources.
func (m *Manager) Stop() {
	if m.Enabled() {
		m.peers.Stop()
	}
}
