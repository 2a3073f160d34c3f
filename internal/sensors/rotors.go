// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/heli_controller/internal/control"
)

// PWMPin is an output capable of hardware PWM. gpio.PinOut is one.
type PWMPin interface {
	PWM(duty gpio.Duty, f physic.Frequency) error
	Out(l gpio.Level) error
}

// Rotors drives the main and tail motors. While disabled both outputs are
// held low and SetDuty only records the requested duty.
type Rotors struct {
	main, tail PWMPin
	freq       physic.Frequency
	enabled    bool
	duty       [2]uint32
}

// OpenRotors configures the two PWM pins, disabled.
func OpenRotors(mainPin, tailPin string, rateHz int) (*Rotors, error) {
	m, err := outputPin(mainPin)
	if err != nil {
		return nil, err
	}
	t, err := outputPin(tailPin)
	if err != nil {
		return nil, err
	}
	return NewRotors(m, t, physic.Frequency(rateHz)*physic.Hertz), nil
}

// NewRotors wraps two PWM outputs.
func NewRotors(main, tail PWMPin, freq physic.Frequency) *Rotors {
	return &Rotors{main: main, tail: tail, freq: freq}
}

func (r *Rotors) pin(ch control.Channel) PWMPin {
	if ch == control.Tail {
		return r.tail
	}
	return r.main
}

func toDuty(percent uint32) gpio.Duty {
	if percent > 100 {
		percent = 100
	}
	return gpio.Duty(percent) * gpio.DutyMax / 100
}

// SetDuty sets one rotor, in percent.
func (r *Rotors) SetDuty(ch control.Channel, percent uint32) error {
	r.duty[ch] = percent
	if !r.enabled {
		return nil
	}
	if err := r.pin(ch).PWM(toDuty(percent), r.freq); err != nil {
		return fmt.Errorf("%s rotor pwm: %w", ch, err)
	}
	return nil
}

// Duty returns the last duty requested for ch.
func (r *Rotors) Duty(ch control.Channel) uint32 {
	return r.duty[ch]
}

// Enabled reports whether the outputs are live.
func (r *Rotors) Enabled() bool {
	return r.enabled
}

// Enable turns the outputs on at the last requested duties.
func (r *Rotors) Enable() {
	if r.enabled {
		return
	}
	r.enabled = true
	for _, ch := range []control.Channel{control.Main, control.Tail} {
		if err := r.pin(ch).PWM(toDuty(r.duty[ch]), r.freq); err != nil {
			log.Printf("sensors: enable %s rotor: %v", ch, err)
		}
	}
}

// Disable holds both outputs low.
func (r *Rotors) Disable() {
	wasEnabled := r.enabled
	r.enabled = false
	for _, ch := range []control.Channel{control.Main, control.Tail} {
		if err := r.pin(ch).Out(gpio.Low); err != nil && wasEnabled {
			log.Printf("sensors: disable %s rotor: %v", ch, err)
		}
	}
}
