// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package control implements the integer PI law shared by the altitude
// (main rotor) and yaw (tail rotor) loops, plus the error and setpoint
// helpers that feed it.
package control

const (
	// GainScale divides the summed gain terms so gains stay integers.
	GainScale = 1000
	// MinDuty and MaxDuty bound every controller output, in percent.
	MinDuty = 2
	MaxDuty = 98
)

// Gains of one loop. D is carried by the law but both rig loops run with 0.
type Gains struct {
	P, I, D int64
	Bias    int64
}

// Default gains for the real rig.
var (
	AltitudeGains = Gains{P: 400, I: 10, D: 0, Bias: 5}
	YawGains      = Gains{P: 300, I: 10, D: 0, Bias: 0}
)

// Config fully describes one controller.
type Config struct {
	Gains Gains
	// TimeScale converts clock ticks into the integral's time unit
	// (hundredths of a second): clock rate / 100.
	TimeScale int64
	// GainScale defaults to the package constant when zero.
	GainScale int64
	// MinDuty/MaxDuty default to the package constants when both are zero.
	MinDuty, MaxDuty int64
}

// Controller is a discrete PI(D) loop with a clamped output. Clamping
// bounds only the output; the integral keeps accumulating while the
// output is saturated.
type Controller struct {
	cfg       Config
	integral  int64
	prevError int64
}

// New builds a controller, filling scale and clamp defaults.
func New(cfg Config) *Controller {
	if cfg.GainScale == 0 {
		cfg.GainScale = GainScale
	}
	if cfg.MinDuty == 0 && cfg.MaxDuty == 0 {
		cfg.MinDuty, cfg.MaxDuty = MinDuty, MaxDuty
	}
	if cfg.TimeScale <= 0 {
		cfg.TimeScale = 1
	}
	return &Controller{cfg: cfg}
}

// TimeScaleFor returns the TimeScale matching a clock running at
// ticksPerSecond.
func TimeScaleFor(ticksPerSecond uint64) int64 {
	ts := int64(ticksPerSecond / 100)
	if ts == 0 {
		return 1
	}
	return ts
}

// Step runs one evaluation for the given error and elapsed ticks and
// returns the duty cycle in percent.
func (c *Controller) Step(err int32, deltaTicks uint64) uint32 {
	e := int64(err)
	c.integral += e * int64(deltaTicks) / c.cfg.TimeScale

	g := c.cfg.Gains
	out := (g.P*e+g.I*c.integral+g.D*(e-c.prevError))/c.cfg.GainScale + g.Bias
	c.prevError = e

	if out > c.cfg.MaxDuty {
		out = c.cfg.MaxDuty
	} else if out < c.cfg.MinDuty {
		out = c.cfg.MinDuty
	}
	return uint32(out)
}

// ResetIntegral zeroes the accumulated error.
func (c *Controller) ResetIntegral() {
	c.integral = 0
}

// Integral returns the accumulated error.
func (c *Controller) Integral() int64 {
	return c.integral
}

// AltitudeError is the plain difference desired - actual.
func AltitudeError(actual, desired int32) int32 {
	return desired - actual
}

// YawError is desired - actual folded into [-180, 180] so the tail always
// turns the short way round.
func YawError(actual, desired int32) int32 {
	e := desired - actual
	switch {
	case e > 180:
		return e - 360
	case e < -180:
		return e + 360
	}
	return e
}

// Channel names a rotor output.
type Channel uint8

const (
	Main Channel = iota // altitude loop
	Tail                // yaw loop
)

func (c Channel) String() string {
	if c == Tail {
		return "tail"
	}
	return "main"
}
