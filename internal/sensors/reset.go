// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"fmt"
	"log"
	"os"
	"syscall"

	"periph.io/x/conn/v3/gpio"
)

// Restart replaces the running process with a fresh copy of itself. Nothing
// is cleaned up, and on success it does not return.
func Restart() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("restart: %w", err)
	}
	log.Println("sensors: restarting")
	return syscall.Exec(exe, os.Args, os.Environ())
}

// ResetButton calls reset on every falling edge of its pin.
type ResetButton struct {
	pin   Levels
	reset func()
}

// OpenResetButton configures the reset input.
func OpenResetButton(name string, reset func()) (*ResetButton, error) {
	p, err := inputPin(name, gpio.PullUp, gpio.FallingEdge)
	if err != nil {
		return nil, err
	}
	return &ResetButton{pin: p, reset: reset}, nil
}

// Run watches the pin until ctx is cancelled.
func (b *ResetButton) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		if b.pin.WaitForEdge(edgePoll) {
			b.reset()
		}
	}
	return ctx.Err()
}
