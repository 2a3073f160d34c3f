// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// EdgeSink receives decoded encoder events. *yaw.Estimator is one.
type EdgeSink interface {
	Seed(pins uint8)
	OnEdge(pins uint8)
	OnReferenceEdge()
}

// edgePoll bounds how long a watcher blocks before it rechecks ctx.
const edgePoll = 100 * time.Millisecond

// Levels is a pin that can be sampled and waited on.
type Levels interface {
	Read() gpio.Level
	WaitForEdge(timeout time.Duration) bool
}

// Encoder watches the quadrature and reference pins of the yaw sensor.
// Both channel watchers funnel their samples through one goroutine, so the
// estimator sees a single producer.
type Encoder struct {
	a, b, ref Levels
	sink      EdgeSink
}

// EncoderPins names the yaw sensor inputs.
type EncoderPins struct {
	A, B, Reference string
}

// OpenEncoder configures the encoder pins for both-edge detection and the
// reference pin for falling edges.
func OpenEncoder(pins EncoderPins, sink EdgeSink) (*Encoder, error) {
	a, err := inputPin(pins.A, gpio.PullUp, gpio.BothEdges)
	if err != nil {
		return nil, err
	}
	b, err := inputPin(pins.B, gpio.PullUp, gpio.BothEdges)
	if err != nil {
		return nil, err
	}
	ref, err := inputPin(pins.Reference, gpio.PullUp, gpio.FallingEdge)
	if err != nil {
		return nil, err
	}
	return NewEncoder(a, b, ref, sink), nil
}

// NewEncoder wires already configured pins to sink.
func NewEncoder(a, b, ref Levels, sink EdgeSink) *Encoder {
	return &Encoder{a: a, b: b, ref: ref, sink: sink}
}

func (e *Encoder) sample() uint8 {
	var s uint8
	if e.a.Read() == gpio.High {
		s |= 1
	}
	if e.b.Read() == gpio.High {
		s |= 2
	}
	return s
}

// Run starts the watchers and blocks until ctx is cancelled.
func (e *Encoder) Run(ctx context.Context) error {
	states := make(chan uint8, 64)

	watch := func(p Levels) {
		for ctx.Err() == nil {
			if !p.WaitForEdge(edgePoll) {
				continue
			}
			select {
			case states <- e.sample():
			default:
				// Decoder is behind; the next edge carries the current state.
			}
		}
	}
	go watch(e.a)
	go watch(e.b)

	go func() {
		for ctx.Err() == nil {
			if e.ref.WaitForEdge(edgePoll) {
				e.sink.OnReferenceEdge()
			}
		}
	}()

	e.sink.Seed(e.sample())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s := <-states:
			e.sink.OnEdge(s)
		}
	}
}
