// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package control

const (
	AltitudeMin       = 0
	AltitudeMax       = 100
	AltitudeHover     = 10
	AltitudeIncrement = 10

	YawIncrement = 15
	yawDomain    = 360
)

// IncreaseAltitude raises the altitude setpoint by one increment, capped at
// AltitudeMax.
func IncreaseAltitude(desired int32) int32 {
	if desired+AltitudeIncrement > AltitudeMax {
		return AltitudeMax
	}
	return desired + AltitudeIncrement
}

// DecreaseAltitude lowers the altitude setpoint by one increment, floored
// at AltitudeMin.
func DecreaseAltitude(desired int32) int32 {
	if desired-AltitudeIncrement < AltitudeMin {
		return AltitudeMin
	}
	return desired - AltitudeIncrement
}

// IncreaseYaw turns the yaw setpoint clockwise by one increment, mod 360.
func IncreaseYaw(desired int32) int32 {
	return (desired + YawIncrement) % yawDomain
}

// DecreaseYaw turns the yaw setpoint anticlockwise by one increment, mod 360.
func DecreaseYaw(desired int32) int32 {
	return (desired - YawIncrement + yawDomain) % yawDomain
}
