// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors is the periph.io platform layer of the rig: the altitude
// ADC sampler, the yaw encoder and reference watchers, the operator panel,
// the rotor PWM outputs and the reset input.
//
// Every edge source gets its own goroutine. Those goroutines only touch the
// single-word atomics exposed by circbuf and yaw; everything else in this
// package is driven from the scheduler goroutine.
package sensors

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var (
	hostOnce sync.Once
	hostErr  error
)

// Init loads the periph host drivers once per process.
func Init() error {
	hostOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			hostErr = fmt.Errorf("periph host init: %w", err)
		}
	})
	return hostErr
}

// inputPin looks up name and configures it as an input.
func inputPin(name string, pull gpio.Pull, edge gpio.Edge) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	if err := p.In(pull, edge); err != nil {
		return nil, fmt.Errorf("configure %s as input: %w", name, err)
	}
	return p, nil
}

// outputPin looks up name and drives it low.
func outputPin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("configure %s as output: %w", name, err)
	}
	return p, nil
}
