// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package circbuf holds raw altitude samples between the ADC sampler and
// the control task.
//
// Concurrency contract: exactly one goroutine calls Write (the sampler,
// standing in for the ADC-complete interrupt) and exactly one goroutine
// calls Read/Mean (the scheduler). There is no lock. Every slot and both
// cursors are single-word atomic cells, so a reader never sees a torn
// sample, but nothing stops the reader from overtaking the writer. Mean is
// only meaningful when the sampler has written at least Cap() fresh samples
// since the previous Mean; otherwise it returns a blend of old and new data.
// The sampler runs far faster than the control loop, which is what keeps
// this true in practice.
package circbuf

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// MaxCapacity bounds the backing storage a buffer may request.
const MaxCapacity = 1 << 20

// ErrAllocation is returned when the backing storage cannot be obtained.
// It is fatal to the caller: the controller must not run without a buffer.
var ErrAllocation = errors.New("circbuf: allocation failed")

// Buffer is a fixed-capacity ring of unsigned samples. It never tracks
// fullness: both cursors simply wrap modulo the capacity.
type Buffer struct {
	size   uint32
	windex atomic.Uint32
	rindex atomic.Uint32
	data   []atomic.Uint32
}

// New allocates a zeroed buffer of the given capacity.
func New(capacity int) (*Buffer, error) {
	if capacity <= 0 || capacity > MaxCapacity {
		return nil, fmt.Errorf("%w: capacity %d out of range (1..%d)", ErrAllocation, capacity, MaxCapacity)
	}
	return &Buffer{
		size: uint32(capacity),
		data: make([]atomic.Uint32, capacity),
	}, nil
}

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int {
	return int(b.size)
}

// Write stores v at the write cursor and advances it. Unread data is
// overwritten without notice.
func (b *Buffer) Write(v uint32) {
	w := b.windex.Load()
	b.data[w].Store(v)
	w++
	if w >= b.size {
		w = 0
	}
	b.windex.Store(w)
}

// Read returns the sample at the read cursor and advances it. It does not
// check whether reading has advanced ahead of writing.
func (b *Buffer) Read() uint32 {
	r := b.rindex.Load()
	v := b.data[r].Load()
	r++
	if r >= b.size {
		r = 0
	}
	b.rindex.Store(r)
	return v
}

// Mean drains exactly Cap() samples and returns their rounded average,
// rounding half up without floating point.
func (b *Buffer) Mean() uint32 {
	var sum uint64
	for i := uint32(0); i < b.size; i++ {
		sum += uint64(b.Read())
	}
	n := uint64(b.size)
	return uint32((2*sum + n) / 2 / n)
}
