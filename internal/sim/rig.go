// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sim stands in for the helicopter rig: a small plant model driven
// by the rotor duties that produces altitude ADC samples and yaw encoder
// edges the same way the hardware does.
package sim

import (
	"context"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/heli_controller/internal/altitude"
	"github.com/relabs-tech/heli_controller/internal/control"
	"github.com/relabs-tech/heli_controller/internal/yaw"
)

// SampleWriter receives altitude samples. *circbuf.Buffer is one.
type SampleWriter interface {
	Write(v uint32)
}

// EdgeSink receives encoder events. *yaw.Estimator is one.
type EdgeSink interface {
	OnEdge(pins uint8)
	OnReferenceEdge()
}

// Config describes the simulated rig.
type Config struct {
	SampleRateHz int
	OneVolt      int
	RangeVolts   int
	// LandedCounts is the ADC reading with the helicopter on the ground.
	LandedCounts int32
	// ReferenceAngle is where the home sensor sits, in degrees.
	ReferenceAngle float64
	// StartYaw is the initial heading in degrees.
	StartYaw float64
	// Noise is the peak ADC noise in counts.
	Noise int
	Seed  uint64
}

// DefaultConfig matches the rig's default calibration.
func DefaultConfig() Config {
	return Config{
		SampleRateHz:   5000,
		OneVolt:        altitude.DefaultOneVolt,
		RangeVolts:     altitude.DefaultVoltageRange,
		LandedCounts:   2400,
		ReferenceAngle: 30,
		StartYaw:       0,
		Noise:          2,
		Seed:           1,
	}
}

// Plant constants. Rates are per percent of duty.
const (
	hoverDuty    = 35.0 // main duty holding altitude
	climbRate    = 0.8  // %/s
	tailTorque   = 3.0  // deg/s
	mainTorque   = 0.8  // tail duty per main duty needed to hold heading
	yawDamping   = 4.0  // 1/s
	notchDegrees = float64(yaw.AngleMax) / yaw.NotchesMax
)

// quadrature is the pin sequence for increasing notch count.
var quadrature = [4]uint8{0b00, 0b10, 0b11, 0b01}

// Rig is the simulated plant. Step runs on a producer goroutine (or the
// test); the rotor methods are called from the scheduler goroutine.
type Rig struct {
	cfg     Config
	samples SampleWriter
	edges   EdgeSink
	rng     *rand.Rand

	mainDuty atomic.Uint32
	tailDuty atomic.Uint32
	enabled  atomic.Bool

	// plant state, owned by the Step caller
	alt       float64 // percent
	heading   float64 // degrees, unbounded
	yawRate   float64 // deg/s
	position  int     // encoder notches, unbounded
	refNotch  int
	sampleAcc float64

	altitudePct atomic.Int32
	headingDeg  atomic.Int32
}

// NewRig builds a landed rig at cfg.StartYaw.
func NewRig(cfg Config, samples SampleWriter, edges EdgeSink) *Rig {
	r := &Rig{
		cfg:     cfg,
		samples: samples,
		edges:   edges,
		rng:     rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		heading: cfg.StartYaw,
	}
	r.position = int(math.Round(cfg.StartYaw / notchDegrees))
	r.refNotch = int(math.Round(cfg.ReferenceAngle/notchDegrees)) % yaw.NotchesMax
	r.publish()
	return r
}

// Prime writes n landed samples so the controller can take its landed
// sample before the plant starts.
func (r *Rig) Prime(n int) {
	for i := 0; i < n; i++ {
		r.writeSample()
	}
}

// Pins reports the current encoder pins, for yaw.Estimator.Seed.
func (r *Rig) Pins() uint8 {
	return quadrature[mod(r.position, 4)]
}

func mod(a, n int) int {
	return ((a % n) + n) % n
}

// SetDuty records the commanded duty for one rotor.
func (r *Rig) SetDuty(ch control.Channel, percent uint32) error {
	if ch == control.Tail {
		r.tailDuty.Store(percent)
	} else {
		r.mainDuty.Store(percent)
	}
	return nil
}

func (r *Rig) Enable()  { r.enabled.Store(true) }
func (r *Rig) Disable() { r.enabled.Store(false) }

// Altitude returns the true altitude in whole percent.
func (r *Rig) Altitude() int32 { return r.altitudePct.Load() }

// Heading returns the true heading in whole degrees within [0, 360).
func (r *Rig) Heading() int32 { return r.headingDeg.Load() }

func (r *Rig) publish() {
	r.altitudePct.Store(int32(math.Round(r.alt)))
	h := math.Mod(r.heading, 360)
	if h < 0 {
		h += 360
	}
	r.headingDeg.Store(int32(h))
}

// Step advances the plant by dt, emitting the ADC samples and encoder
// edges that would have occurred.
func (r *Rig) Step(dt time.Duration) {
	sec := dt.Seconds()
	var main, tail float64
	if r.enabled.Load() {
		main = float64(r.mainDuty.Load())
		tail = float64(r.tailDuty.Load())
	}

	r.alt += climbRate * (main - hoverDuty) * sec
	if main == 0 {
		r.alt -= 20 * sec
	}
	r.alt = math.Max(0, math.Min(100, r.alt))

	// No yaw while sitting on the ground.
	if r.alt > 0 {
		accel := tailTorque*(tail-mainTorque*main) - yawDamping*r.yawRate
		r.yawRate += accel * sec
	} else {
		r.yawRate = 0
	}
	r.heading += r.yawRate * sec

	target := int(math.Round(r.heading / notchDegrees))
	for r.position != target {
		if r.position < target {
			r.position++
		} else {
			r.position--
		}
		r.edges.OnEdge(quadrature[mod(r.position, 4)])
		if mod(r.position, yaw.NotchesMax) == r.refNotch {
			r.edges.OnReferenceEdge()
		}
	}

	r.sampleAcc += float64(r.cfg.SampleRateHz) * sec
	for ; r.sampleAcc >= 1; r.sampleAcc-- {
		r.writeSample()
	}
	r.publish()
}

func (r *Rig) writeSample() {
	v := int64(altitude.Sample(r.cfg.LandedCounts, int32(math.Round(r.alt)), r.cfg.OneVolt, r.cfg.RangeVolts))
	if r.cfg.Noise > 0 {
		v += int64(r.rng.IntN(2*r.cfg.Noise+1) - r.cfg.Noise)
	}
	if v < 0 {
		v = 0
	}
	r.samples.Write(uint32(v))
}

// Run steps the plant every step of simulated time until ctx is cancelled.
// speed must match the scale of the scheduler's clock.
func (r *Rig) Run(ctx context.Context, step time.Duration, speed float64) error {
	if speed <= 0 {
		speed = 1
	}
	ticker := time.NewTicker(time.Duration(float64(step) / speed))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Step(step)
		}
	}
}
