// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package flight sequences take-off, reference search, hover and landing.
//
// The Machine owns the desired altitude and yaw. The control task reads them
// through Setpoints; nothing else writes them. Poll and Setpoints are both
// called from the scheduler goroutine, so the machine holds no locks.
package flight

import "github.com/relabs-tech/heli_controller/internal/control"

// Controls is the operator panel as seen by the state machine. The pressed
// methods report a debounced press once; the switch is a level.
type Controls interface {
	SwitchUp() bool
	UpPressed() bool
	DownPressed() bool
	LeftPressed() bool
	RightPressed() bool
}

// Rotors gates the PWM outputs.
type Rotors interface {
	Enable()
	Disable()
}

// Reference is the part of the yaw estimator that locates the home angle.
type Reference interface {
	SearchReferenceAngle(start uint32, now, ticksPerSecond uint64) uint32
	ReferenceFound() bool
	ReferenceAngle() uint32
}

// Deps are the collaborators a Machine drives.
type Deps struct {
	Controls  Controls
	Rotors    Rotors
	Reference Reference
	// ResetIntegrals zeroes both PI loops. Called on Landed -> Launching.
	ResetIntegrals func()
	// Reset restarts the whole system once a landing completes. It may not
	// return.
	Reset func()
	// TicksPerSecond is the rate of the clock passed to Poll.
	TicksPerSecond uint64
	// OnTransition, if set, is told about every state change.
	OnTransition func(from, to State)
}

// Machine is the flight state machine. It starts in LandedLock so a rig
// powered up with the switch already raised stays on the ground until the
// switch is cycled.
type Machine struct {
	deps Deps

	state          State
	desiredAlt     int32
	desiredYaw     int32
	searchStartYaw uint32
}

// NewMachine returns a machine in LandedLock.
func NewMachine(deps Deps) *Machine {
	return &Machine{deps: deps, state: LandedLock}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Setpoints returns the desired altitude in percent and yaw in degrees.
func (m *Machine) Setpoints() (altitude, yaw int32) {
	return m.desiredAlt, m.desiredYaw
}

// RotorsAllowed is false whenever the duty outputs must be forced to zero.
func (m *Machine) RotorsAllowed() bool {
	return !m.state.Grounded()
}

func (m *Machine) setState(next State) {
	prev := m.state
	m.state = next
	if m.deps.OnTransition != nil && prev != next {
		m.deps.OnTransition(prev, next)
	}
}

// Poll advances the machine by one step given the current altitude (percent),
// yaw (degrees) and the clock reading now.
//
// Transitions on altitude and yaw use exact equality with the setpoint. A
// reading that jumps over the setpoint leaves the machine waiting until the
// loop settles on it.
func (m *Machine) Poll(now uint64, altitude, yaw int32) {
	c := m.deps.Controls

	switch m.state {
	case LandedLock:
		m.desiredAlt = control.AltitudeMin
		m.desiredYaw = 0
		if !c.SwitchUp() {
			m.setState(Landed)
		}

	case Landed:
		m.deps.Rotors.Disable()
		if c.SwitchUp() {
			m.deps.ResetIntegrals()
			m.desiredYaw = yaw
			m.searchStartYaw = uint32(yaw)
			m.deps.Rotors.Enable()
			m.setState(Launching)
		}

	case Launching:
		m.desiredAlt = control.AltitudeHover
		if altitude == m.desiredAlt {
			m.setState(Seeking)
		}

	case Seeking:
		m.desiredAlt = control.AltitudeHover
		m.desiredYaw = int32(m.deps.Reference.SearchReferenceAngle(m.searchStartYaw, now, m.deps.TicksPerSecond))
		if m.deps.Reference.ReferenceFound() {
			m.setState(Setting)
		}

	case Setting:
		if yaw == m.desiredYaw {
			m.desiredAlt = control.AltitudeHover
			m.setState(Flying)
		}

	case Flying:
		if c.UpPressed() {
			m.desiredAlt = control.IncreaseAltitude(m.desiredAlt)
		}
		if c.DownPressed() {
			m.desiredAlt = control.DecreaseAltitude(m.desiredAlt)
		}
		if c.RightPressed() {
			m.desiredYaw = control.IncreaseYaw(m.desiredYaw)
		}
		if c.LeftPressed() {
			m.desiredYaw = control.DecreaseYaw(m.desiredYaw)
		}
		if !c.SwitchUp() {
			m.setState(LandingTurn)
		}

	case LandingTurn:
		m.desiredYaw = int32(m.deps.Reference.ReferenceAngle())
		if yaw == m.desiredYaw {
			m.desiredAlt = control.AltitudeMin
			m.setState(Landing)
		}

	case Landing:
		// TODO: the yaw bound wraps to 0 or 1 when desiredYaw is 358 or 359,
		// so a landing at those headings never completes.
		if altitude == control.AltitudeMin && yaw < (2+m.desiredYaw)%360 {
			m.setState(Landed)
			m.deps.Rotors.Disable()
			m.deps.Reset()
		}
	}
}
