// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package kernel

import "time"

// Clock is the scheduler's time base. Now never returns 0, which the
// scheduler reserves for "never run".
type Clock interface {
	Now() uint64
	Rate() uint64 // ticks per second
}

// RealClock counts nanoseconds since it was created, offset by one.
type RealClock struct {
	start time.Time
	scale float64
}

// NewRealClock starts a monotonic nanosecond clock.
func NewRealClock() *RealClock {
	return &RealClock{start: time.Now(), scale: 1}
}

// NewScaledClock runs scale times faster than wall time. The simulator
// uses it to fast-forward flights.
func NewScaledClock(scale float64) *RealClock {
	if scale <= 0 {
		scale = 1
	}
	return &RealClock{start: time.Now(), scale: scale}
}

func (c *RealClock) Now() uint64 {
	elapsed := time.Since(c.start)
	if c.scale != 1 {
		elapsed = time.Duration(float64(elapsed) * c.scale)
	}
	return uint64(elapsed) + 1
}

func (c *RealClock) Rate() uint64 {
	return uint64(time.Second)
}

// ManualClock only moves when told to. Used by the simulator and tests.
type ManualClock struct {
	now  uint64
	rate uint64
}

// NewManualClock returns a clock at tick 1 running at rate ticks/second.
func NewManualClock(rate uint64) *ManualClock {
	return &ManualClock{now: 1, rate: rate}
}

func (c *ManualClock) Now() uint64 { return c.now }

func (c *ManualClock) Rate() uint64 { return c.rate }

// Advance moves the clock forward by d ticks.
func (c *ManualClock) Advance(d uint64) {
	c.now += d
}
