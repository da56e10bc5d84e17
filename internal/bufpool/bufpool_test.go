// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package bufpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetReturnsEmptyBuffer(t *testing.T) {
	b := Get()
	b.Write([]byte{'M', 0x00, 0x01, 0x03, 0x16})
	Put(b)

	b2 := Get()
	defer Put(b2)
	assert.Zero(t, b2.Len())
}

func TestFreshBufferFitsFrame(t *testing.T) {
	b := Get()
	defer Put(b)
	assert.GreaterOrEqual(t, b.Cap(), 3+144)
}

func TestPutDiscardsOversizedBuffer(t *testing.T) {
	b := Get()
	b.Grow(maxPooledCap + 1)
	assert.NotPanics(t, func() { Put(b) })
}

func TestConcurrentGetPut(t *testing.T) {
	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := Get()
			b.WriteByte(byte(i))
			Put(b)
		}()
	}
	wg.Wait()
}
