// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package flight

// State is one step of the flight sequence.
type State uint8

const (
	LandedLock State = iota
	Landed
	Launching
	Seeking
	Setting
	Flying
	LandingTurn
	Landing
)

var stateNames = [...]string{
	LandedLock:  "LandedLock",
	Landed:      "Landed",
	Launching:   "Launching",
	Seeking:     "Seeking",
	Setting:     "Setting",
	Flying:      "Flying",
	LandingTurn: "LandingTurn",
	Landing:     "Landing",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// Mode is the coarse name shown to the operator in telemetry.
func (s State) Mode() string {
	switch s {
	case LandedLock, Landed:
		return "LANDED"
	case Launching, Seeking, Setting:
		return "TAKEOFF"
	case Flying:
		return "FLIGHT"
	case LandingTurn, Landing:
		return "LANDING"
	}
	return "UNKNOWN"
}

// Grounded reports whether the rotors must be off in this state.
func (s State) Grounded() bool {
	return s == LandedLock || s == Landed
}
