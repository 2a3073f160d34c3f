// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"periph.io/x/conn/v3/gpio"
)

// DebouncePolls is the number of consecutive polls a new level must hold
// before it is accepted.
const DebouncePolls = 3

// Debouncer filters one noisy boolean input sampled at a fixed rate.
type Debouncer struct {
	polls   int
	state   bool
	count   int
	changed bool
}

// NewDebouncer starts in the given state.
func NewDebouncer(polls int, initial bool) *Debouncer {
	if polls < 1 {
		polls = 1
	}
	return &Debouncer{polls: polls, state: initial}
}

// Update feeds one raw sample.
func (d *Debouncer) Update(raw bool) {
	if raw == d.state {
		d.count = 0
		return
	}
	d.count++
	if d.count >= d.polls {
		d.state = raw
		d.count = 0
		d.changed = true
	}
}

// State is the debounced level.
func (d *Debouncer) State() bool {
	return d.state
}

// Pushed reports a change to active since the last call. It consumes the
// change either way, so a press that was released before being read is
// lost.
func (d *Debouncer) Pushed() bool {
	pushed := d.changed && d.state
	d.changed = false
	return pushed
}

// Level is a pin that can be sampled. gpio.PinIn is one.
type Level interface {
	Read() gpio.Level
}

type input struct {
	pin       Level
	activeLow bool
	db        *Debouncer
}

func newInput(pin Level, activeLow bool) *input {
	in := &input{pin: pin, activeLow: activeLow}
	in.db = NewDebouncer(DebouncePolls, in.active())
	return in
}

func (in *input) active() bool {
	return (in.pin.Read() == gpio.High) != in.activeLow
}

func (in *input) poll() { in.db.Update(in.active()) }

// ControlPins names the operator panel inputs. Buttons are active low with
// pull-ups; the flight switch reads high when up.
type ControlPins struct {
	Up, Down, Left, Right string
	Switch                string
}

// Controls is the debounced operator panel. Poll must be called at a fixed
// rate from the scheduler goroutine before the state machine reads it.
type Controls struct {
	up, down, left, right *input
	sw                    *input
}

// OpenControls configures the panel inputs.
func OpenControls(pins ControlPins) (*Controls, error) {
	var lv [5]Level
	for i, name := range []string{pins.Up, pins.Down, pins.Left, pins.Right} {
		p, err := inputPin(name, gpio.PullUp, gpio.NoEdge)
		if err != nil {
			return nil, err
		}
		lv[i] = p
	}
	sw, err := inputPin(pins.Switch, gpio.PullDown, gpio.NoEdge)
	if err != nil {
		return nil, err
	}
	lv[4] = sw
	return NewControls(lv[0], lv[1], lv[2], lv[3], lv[4]), nil
}

// NewControls builds a panel from already configured levels.
func NewControls(up, down, left, right, sw Level) *Controls {
	return &Controls{
		up:    newInput(up, true),
		down:  newInput(down, true),
		left:  newInput(left, true),
		right: newInput(right, true),
		sw:    newInput(sw, false),
	}
}

// Poll samples every input once.
func (c *Controls) Poll() {
	c.up.poll()
	c.down.poll()
	c.left.poll()
	c.right.poll()
	c.sw.poll()
}

func (c *Controls) SwitchUp() bool     { return c.sw.db.State() }
func (c *Controls) UpPressed() bool    { return c.up.db.Pushed() }
func (c *Controls) DownPressed() bool  { return c.down.db.Pushed() }
func (c *Controls) LeftPressed() bool  { return c.left.db.Pushed() }
func (c *Controls) RightPressed() bool { return c.right.db.Pushed() }
