// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"log"
	"time"

	"github.com/relabs-tech/heli_controller/internal/config"
	"github.com/relabs-tech/heli_controller/internal/control"
	"github.com/relabs-tech/heli_controller/internal/flight"
	"github.com/relabs-tech/heli_controller/internal/kernel"
	"github.com/relabs-tech/heli_controller/internal/telemetry"
)

// Altimeter reports altitude in percent. *altitude.Sensor is one.
type Altimeter interface {
	Percent() int32
}

// YawSensor reports the heading and locates the reference angle.
// *yaw.Estimator is one.
type YawSensor interface {
	Angle() uint32
	flight.Reference
}

// Rotors drives the two PWM outputs. *sensors.Rotors and *sim.Rig are both
// Rotors.
type Rotors interface {
	flight.Rotors
	SetDuty(ch control.Channel, percent uint32) error
}

// Screen shows a frame on the local display.
type Screen interface {
	Show(f telemetry.Frame) error
}

// StatePublisher is told about every flight state change.
type StatePublisher interface {
	SendStateChange(c telemetry.StateChange) error
}

// poller is implemented by inputs that need sampling before they are read.
type poller interface {
	Poll()
}

// Rates are the task rates in Hz. kernel.Unthrottled runs a task on every
// pass.
type Rates struct {
	Control   uint32
	Display   uint32
	Controls  uint32
	Telemetry uint32
}

// DefaultRates is the rig's task table.
func DefaultRates() Rates {
	return Rates{Control: kernel.Unthrottled, Display: 4, Controls: 100, Telemetry: 5}
}

// RatesFrom reads the task rates from the configuration.
func RatesFrom(cfg *config.Config) Rates {
	return Rates{
		Control:   uint32(cfg.ControlRateHz),
		Display:   uint32(cfg.DisplayRateHz),
		Controls:  uint32(cfg.ControlsRateHz),
		Telemetry: uint32(cfg.TelemetryRateHz),
	}
}

// GainsFrom reads both loops' gains from the configuration.
func GainsFrom(cfg *config.Config) (alt, yaw control.Gains) {
	alt = control.Gains{P: cfg.AltitudeKP, I: cfg.AltitudeKI, D: cfg.AltitudeKD, Bias: cfg.AltitudeBias}
	yaw = control.Gains{P: cfg.YawKP, I: cfg.YawKI, D: cfg.YawKD, Bias: cfg.YawBias}
	return alt, yaw
}

// Deps are the parts a Heli is assembled from. Display, Telemetry and
// States may be nil.
type Deps struct {
	Clock    kernel.Clock
	Altitude Altimeter
	Yaw      YawSensor
	Controls flight.Controls
	Rotors   Rotors

	Display   Screen
	Telemetry telemetry.Sink
	States    StatePublisher

	// Reset is called when a landing completes.
	Reset func()

	AltitudeGains control.Gains
	YawGains      control.Gains
	Rates         Rates
}

// Heli owns the flight state machine and both control loops, and provides
// the scheduler's periodic tasks. Every task runs on the scheduler
// goroutine.
type Heli struct {
	deps    Deps
	machine *flight.Machine
	altLoop *control.Controller
	yawLoop *control.Controller

	// minStep is one unit of the loops' integral, in clock ticks.
	minStep  uint64
	prevTick uint64
	altitude int32
	yaw      int32
	mainDuty uint32
	tailDuty uint32
	dutyErr  bool
}

// NewHeli wires the control loops and state machine together.
func NewHeli(deps Deps) *Heli {
	scale := control.TimeScaleFor(deps.Clock.Rate())
	h := &Heli{
		deps:    deps,
		minStep: uint64(scale),
		altLoop: control.New(control.Config{Gains: deps.AltitudeGains, TimeScale: scale}),
		yawLoop: control.New(control.Config{Gains: deps.YawGains, TimeScale: scale}),
	}
	reset := deps.Reset
	if reset == nil {
		reset = func() {}
	}
	h.machine = flight.NewMachine(flight.Deps{
		Controls:       deps.Controls,
		Rotors:         deps.Rotors,
		Reference:      deps.Yaw,
		ResetIntegrals: h.resetIntegrals,
		Reset:          reset,
		TicksPerSecond: deps.Clock.Rate(),
		OnTransition:   h.onTransition,
	})
	return h
}

func (h *Heli) resetIntegrals() {
	h.altLoop.ResetIntegral()
	h.yawLoop.ResetIntegral()
}

func (h *Heli) onTransition(from, to flight.State) {
	log.Printf("flight: %s -> %s (%s)", from, to, to.Mode())
	if h.deps.States == nil {
		return
	}
	err := h.deps.States.SendStateChange(telemetry.StateChange{
		From: from.String(),
		To:   to.String(),
		Mode: to.Mode(),
		Time: time.Now(),
	})
	if err != nil {
		log.Printf("telemetry: state change: %v", err)
	}
}

// State returns the flight state.
func (h *Heli) State() flight.State {
	return h.machine.State()
}

// Frame snapshots the values the last control pass used.
func (h *Heli) Frame() telemetry.Frame {
	desiredAlt, desiredYaw := h.machine.Setpoints()
	st := h.machine.State()
	return telemetry.Frame{
		Altitude:        h.altitude,
		DesiredAltitude: desiredAlt,
		Yaw:             h.yaw,
		DesiredYaw:      desiredYaw,
		MainDuty:        h.mainDuty,
		TailDuty:        h.tailDuty,
		State:           st.String(),
		Mode:            st.Mode(),
	}
}

// RunControl reads both sensors, steps both loops and writes the duties.
// The first call integrates over zero ticks. Later calls step the loops
// only once a full integral unit (a hundredth of a second) has passed since
// the last step, as the integral drops sub-unit remainders. While the
// machine keeps the rotors grounded both duties are forced to 0 before they
// are written.
func (h *Heli) RunControl() {
	now := h.deps.Clock.Now()
	var dt uint64
	if h.prevTick != 0 {
		dt = now - h.prevTick
		if dt < h.minStep {
			if !h.machine.RotorsAllowed() && (h.mainDuty != 0 || h.tailDuty != 0) {
				h.writeDuties(0, 0)
			}
			return
		}
	}
	h.prevTick = now

	h.altitude = h.deps.Altitude.Percent()
	h.yaw = int32(h.deps.Yaw.Angle())
	desiredAlt, desiredYaw := h.machine.Setpoints()

	main := h.altLoop.Step(control.AltitudeError(h.altitude, desiredAlt), dt)
	tail := h.yawLoop.Step(control.YawError(h.yaw, desiredYaw), dt)
	if !h.machine.RotorsAllowed() {
		main, tail = 0, 0
	}
	h.writeDuties(main, tail)
}

func (h *Heli) writeDuties(main, tail uint32) {
	h.mainDuty, h.tailDuty = main, tail
	err := errors.Join(
		h.deps.Rotors.SetDuty(control.Main, main),
		h.deps.Rotors.SetDuty(control.Tail, tail),
	)
	// Only the first failure of a run is logged.
	if err != nil && !h.dutyErr {
		log.Printf("control: set duty: %v", err)
	}
	h.dutyErr = err != nil
}

// RefreshDisplay draws the current frame on the local display.
func (h *Heli) RefreshDisplay() {
	if h.deps.Display == nil {
		return
	}
	if err := h.deps.Display.Show(h.Frame()); err != nil {
		log.Printf("display: %v", err)
	}
}

// CheckControls samples the operator inputs and advances the state machine
// on the altitude and yaw read by the last control pass.
func (h *Heli) CheckControls() {
	if p, ok := h.deps.Controls.(poller); ok {
		p.Poll()
	}
	h.machine.Poll(h.deps.Clock.Now(), h.altitude, h.yaw)
}

// SendTelemetry emits the current frame. Failures are logged and dropped.
func (h *Heli) SendTelemetry() {
	if h.deps.Telemetry == nil {
		return
	}
	if err := h.deps.Telemetry.Send(h.Frame()); err != nil {
		log.Printf("telemetry: %v", err)
	}
}

// Processes returns the task table in registration order: control,
// display, controls, telemetry.
func (h *Heli) Processes() []kernel.Process {
	r := h.deps.Rates
	return []kernel.Process{
		{Name: "control", Handler: h.RunControl, Rate: r.Control},
		{Name: "display", Handler: h.RefreshDisplay, Rate: r.Display},
		{Name: "controls", Handler: h.CheckControls, Rate: r.Controls},
		{Name: "telemetry", Handler: h.SendTelemetry, Rate: r.Telemetry},
	}
}

// Scheduler returns a scheduler running the task table on the Heli's clock.
func (h *Heli) Scheduler() *kernel.Scheduler {
	return kernel.New(h.deps.Clock, h.Processes()...)
}
