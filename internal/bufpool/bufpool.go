// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package bufpool recycles the scratch buffers used to assemble outgoing
// mesh frames.
package bufpool

import (
	"bytes"
	"sync"
)

// maxPooledCap bounds what goes back into the pool. Mesh frames are at most
// a few hundred octets; anything grown past this came from misuse.
const maxPooledCap = 4 * 1024

// frameCap is the initial capacity of a fresh buffer.
const frameCap = 256

var pool = sync.Pool{New: func() any { return bytes.NewBuffer(make([]byte, 0, frameCap)) }}

// Get returns an empty buffer.
func Get() *bytes.Buffer {
	b := pool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

// Put returns b to the pool. b must not be used afterwards.
func Put(b *bytes.Buffer) {
	if b.Cap() > maxPooledCap {
		return
	}
	pool.Put(b)
}
