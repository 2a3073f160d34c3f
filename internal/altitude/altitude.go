// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package altitude turns averaged ADC readings from the rig's height sensor
// into an altitude percentage relative to the landed position. The sensor
// voltage falls as the helicopter rises.
package altitude

import "github.com/relabs-tech/heli_controller/internal/circbuf"

// Defaults for the rig's 12-bit ADC.
const (
	DefaultOneVolt      = 1200 // ADC counts per volt
	DefaultVoltageRange = 1    // volts between landed and full height
)

// Averager is the sample source, normally a *circbuf.Buffer.
type Averager interface {
	Mean() uint32
}

var _ Averager = (*circbuf.Buffer)(nil)

// Sensor converts buffer means into percent. It is used from the scheduler
// goroutine only.
type Sensor struct {
	src    Averager
	span   int32
	landed int32
}

// New returns a sensor reading from src. Non-positive oneVolt or rangeVolts
// fall back to the defaults.
func New(src Averager, oneVolt, rangeVolts int) *Sensor {
	if oneVolt <= 0 {
		oneVolt = DefaultOneVolt
	}
	if rangeVolts <= 0 {
		rangeVolts = DefaultVoltageRange
	}
	return &Sensor{src: src, span: int32(oneVolt * rangeVolts)}
}

// TakeLandedSample records the current mean as the 0% reference. Call it
// once at startup after the buffer has filled.
func (s *Sensor) TakeLandedSample() {
	s.landed = int32(s.src.Mean())
}

// LandedSample returns the recorded 0% reading.
func (s *Sensor) LandedSample() int32 {
	return s.landed
}

// Percent returns the current altitude. Readings above the landed sample
// give negative values; nothing is clamped.
func (s *Sensor) Percent() int32 {
	adc := int32(s.src.Mean())
	return (s.landed - adc) * 100 / s.span
}

// Sample returns the ADC reading for a given altitude percent. The
// simulator uses it to produce samples.
func Sample(landed int32, percent int32, oneVolt, rangeVolts int) uint32 {
	v := landed - percent*int32(oneVolt*rangeVolts)/100
	if v < 0 {
		return 0
	}
	return uint32(v)
}
