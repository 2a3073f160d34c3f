// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sim

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// Button is one of the four direction buttons.
type Button int

const (
	Up Button = iota
	Down
	Left
	Right
)

// Pilot is a virtual operator panel. Presses queue until the state machine
// reads them. Safe for use from any goroutine.
type Pilot struct {
	switchUp atomic.Bool
	presses  [4]atomic.Int32
}

func (p *Pilot) SetSwitch(up bool) { p.switchUp.Store(up) }

func (p *Pilot) Press(b Button) { p.presses[b].Add(1) }

func (p *Pilot) consume(b Button) bool {
	for {
		n := p.presses[b].Load()
		if n == 0 {
			return false
		}
		if p.presses[b].CompareAndSwap(n, n-1) {
			return true
		}
	}
}

func (p *Pilot) SwitchUp() bool     { return p.switchUp.Load() }
func (p *Pilot) UpPressed() bool    { return p.consume(Up) }
func (p *Pilot) DownPressed() bool  { return p.consume(Down) }
func (p *Pilot) LeftPressed() bool  { return p.consume(Left) }
func (p *Pilot) RightPressed() bool { return p.consume(Right) }

// Cue is one scripted operator action, run After the previous one.
type Cue struct {
	After time.Duration
	Name  string
	Do    func(*Pilot)
}

// DemoFlight takes off, climbs, turns and lands.
func DemoFlight() []Cue {
	return []Cue{
		{2 * time.Second, "switch up", func(p *Pilot) { p.SetSwitch(true) }},
		{40 * time.Second, "climb", func(p *Pilot) { p.Press(Up); p.Press(Up) }},
		{20 * time.Second, "turn right", func(p *Pilot) { p.Press(Right); p.Press(Right) }},
		{20 * time.Second, "switch down", func(p *Pilot) { p.SetSwitch(false) }},
	}
}

// Play runs cues in simulated time, scaled by speed, until they are done or
// ctx is cancelled.
func (p *Pilot) Play(ctx context.Context, cues []Cue, speed float64) error {
	if speed <= 0 {
		speed = 1
	}
	for _, c := range cues {
		t := time.NewTimer(time.Duration(float64(c.After) / speed))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		log.Printf("sim: pilot: %s", c.Name)
		c.Do(p)
	}
	return nil
}
