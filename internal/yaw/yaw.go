// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package yaw decodes the rig's quadrature encoder into an absolute yaw
// angle and latches the reference (home) angle once per flight.
//
// OnEdge and OnReferenceEdge are called from edge context (one goroutine
// per edge source in sensors, or the sim plant). Everything else is called
// from the scheduler goroutine. Values crossing that boundary (notch
// counter, reference angle, reference-found flag) are single-word atomics.
// The reference angle is stored before the flag is raised, so a reader that
// observes ReferenceFound() == true always reads the latched angle.
package yaw

import "sync/atomic"

const (
	// NotchesMax is the number of encoder notches per revolution.
	NotchesMax = 448
	// AngleMax is the size of the angle domain in degrees.
	AngleMax = 360
	// SearchRate is the sweep speed in degrees per second while seeking
	// the reference.
	SearchRate = 20
)

// Estimator turns encoder edges into a yaw angle.
type Estimator struct {
	notches  atomic.Uint32
	prevPins uint8 // touched only by the edge goroutine

	refAngle atomic.Uint32
	refFound atomic.Bool

	searchStart uint64 // touched only by the scheduler goroutine
}

// NewEstimator returns an estimator at notch 0 with no reference latched.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Direction returns the rotation implied by moving from prev to cur, where
// bit 0 is channel A and bit 1 is channel B. Adjacent Gray-code states give
// +1 or -1; no change or an invalid double step gives 0.
func Direction(prev, cur uint8) int {
	left := int(((cur & 2) >> 1) ^ (prev & 1))
	right := -int(((prev & 2) >> 1) ^ (cur & 1))
	return left + right
}

// OnEdge consumes a new two-bit pin sample. The counter wraps in the
// direction of motion and never leaves [0, NotchesMax).
func (e *Estimator) OnEdge(pins uint8) {
	pins &= 3
	dir := Direction(e.prevPins, pins)
	e.prevPins = pins

	n := e.notches.Load()
	switch {
	case dir < 0 && n == 0:
		n = NotchesMax - 1
	case dir > 0 && n >= NotchesMax-1:
		n = 0
	default:
		n = uint32(int(n) + dir)
	}
	e.notches.Store(n)
}

// Seed records the pin state at power-up without moving the counter.
func (e *Estimator) Seed(pins uint8) {
	e.prevPins = pins & 3
}

// OnReferenceEdge latches the current angle the first time the reference
// sensor fires. Later edges are ignored until ResetReference.
func (e *Estimator) OnReferenceEdge() {
	if e.refFound.Load() {
		return
	}
	e.refAngle.Store(e.Angle())
	e.refFound.Store(true)
}

// Notches returns the raw notch counter.
func (e *Estimator) Notches() uint32 {
	return e.notches.Load()
}

// Angle returns the yaw in whole degrees, truncating:
// notch * (AngleMax-1) / NotchesMax.
func (e *Estimator) Angle() uint32 {
	return e.notches.Load() * (AngleMax - 1) / NotchesMax
}

// ReferenceFound reports whether the reference angle has been latched.
func (e *Estimator) ReferenceFound() bool {
	return e.refFound.Load()
}

// ReferenceAngle returns the latched reference angle. It is only
// meaningful once ReferenceFound reports true.
func (e *Estimator) ReferenceAngle() uint32 {
	return e.refAngle.Load()
}

// SearchReferenceAngle returns the setpoint to follow while hunting for
// the reference. Until the reference fires it sweeps from start at
// SearchRate degrees per second, measured from the first call; afterwards
// it always returns the latched angle.
func (e *Estimator) SearchReferenceAngle(start uint32, now, ticksPerSecond uint64) uint32 {
	if e.refFound.Load() {
		return e.refAngle.Load()
	}
	if e.searchStart == 0 {
		e.searchStart = now
	}
	elapsed := now - e.searchStart
	sweep := SearchRate * elapsed / ticksPerSecond
	return uint32((uint64(start) + sweep) % AngleMax)
}

// ResetReference clears the latch and the sweep start so the next flight
// searches again.
func (e *Estimator) ResetReference() {
	e.refFound.Store(false)
	e.searchStart = 0
}
