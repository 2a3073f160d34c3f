// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/relabs-tech/heli_controller/internal/altitude"
	"github.com/relabs-tech/heli_controller/internal/circbuf"
	"github.com/relabs-tech/heli_controller/internal/config"
	"github.com/relabs-tech/heli_controller/internal/kernel"
	"github.com/relabs-tech/heli_controller/internal/sim"
	"github.com/relabs-tech/heli_controller/internal/telemetry"
	"github.com/relabs-tech/heli_controller/internal/yaw"
)

// plantStep is the simulated rig's integration step.
const plantStep = time.Millisecond

// SimRig is a simulated rig wired to the same sample buffer and yaw
// estimator the controller reads.
type SimRig struct {
	Rig      *sim.Rig
	Pilot    *sim.Pilot
	Buffer   *circbuf.Buffer
	Yaw      *yaw.Estimator
	Altitude *altitude.Sensor
}

// NewSimRig builds a landed simulated rig and calibrates the altitude sensor
// against it.
func NewSimRig(cfg *config.Config, rc sim.Config) (*SimRig, error) {
	buf, err := circbuf.New(cfg.SampleBufferSize)
	if err != nil {
		return nil, fmt.Errorf("sample buffer: %w", err)
	}
	rc.OneVolt = cfg.ADCOneVolt
	rc.RangeVolts = cfg.AltitudeVoltageRange

	est := yaw.NewEstimator()
	rig := sim.NewRig(rc, buf, est)
	est.Seed(rig.Pins())
	rig.Prime(buf.Cap())

	alt := altitude.New(buf, cfg.ADCOneVolt, cfg.AltitudeVoltageRange)
	alt.TakeLandedSample()

	return &SimRig{Rig: rig, Pilot: &sim.Pilot{}, Buffer: buf, Yaw: est, Altitude: alt}, nil
}

// Deps returns Heli dependencies flying this rig on clock.
func (s *SimRig) Deps(cfg *config.Config, clock kernel.Clock) Deps {
	altGains, yawGains := GainsFrom(cfg)
	return Deps{
		Clock:         clock,
		Altitude:      s.Altitude,
		Yaw:           s.Yaw,
		Controls:      s.Pilot,
		Rotors:        s.Rig,
		AltitudeGains: altGains,
		YawGains:      yawGains,
		Rates:         RatesFrom(cfg),
	}
}

// RunSim flies the demo script against the simulated rig, printing
// telemetry to stdout and publishing to MQTT when a broker is available.
// It returns once the landing completes or on SIGINT/SIGTERM.
func RunSim() error {
	cfg := config.Get()

	s, err := NewSimRig(cfg, sim.DefaultConfig())
	if err != nil {
		return err
	}
	log.Printf("sim: landed sample %d", s.Altitude.LandedSample())

	format, err := telemetry.ParseFormat(cfg.TelemetryFormat)
	if err != nil {
		return err
	}
	sinks, states, closeMQTT := flightSinks(cfg, telemetry.NewWriterSink(os.Stdout, format))
	defer closeMQTT()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go waitForSignal(cancel)

	scale := cfg.SimTimeScale
	deps := s.Deps(cfg, kernel.NewScaledClock(scale))
	deps.Telemetry = sinks
	deps.States = states
	deps.Reset = func() {
		log.Println("sim: landing complete, rig reset")
		cancel()
	}
	heli := NewHeli(deps)

	go func() {
		if err := s.Rig.Run(ctx, plantStep, scale); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("sim: rig stopped: %v", err)
		}
	}()
	go func() {
		if err := s.Pilot.Play(ctx, sim.DemoFlight(), scale); err == nil {
			log.Println("sim: pilot script finished")
		}
	}()

	sched := heli.Scheduler()
	log.Printf("kernel: running %v at %gx", sched.Names(), scale)
	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
