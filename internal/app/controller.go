// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"periph.io/x/conn/v3/i2c/i2creg"

	"github.com/relabs-tech/heli_controller/internal/altitude"
	"github.com/relabs-tech/heli_controller/internal/circbuf"
	"github.com/relabs-tech/heli_controller/internal/config"
	"github.com/relabs-tech/heli_controller/internal/display"
	"github.com/relabs-tech/heli_controller/internal/kernel"
	"github.com/relabs-tech/heli_controller/internal/sensors"
	"github.com/relabs-tech/heli_controller/internal/telemetry"
	"github.com/relabs-tech/heli_controller/internal/yaw"
)

// RunController flies the real rig: it opens the hardware, starts the edge
// and sample goroutines, and runs the task scheduler until SIGINT/SIGTERM.
func RunController() error {
	cfg := config.Get()

	if err := sensors.Init(); err != nil {
		return err
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	buf, err := circbuf.New(cfg.SampleBufferSize)
	if err != nil {
		return fmt.Errorf("sample buffer: %w", err)
	}

	adc, err := sensors.OpenADC(bus, sensors.ADCConfig{
		Address: cfg.ADCI2CAddr,
		Channel: cfg.ADCChannel,
		RateHz:  cfg.SampleRateHz,
		OneVolt: cfg.ADCOneVolt,
	})
	if err != nil {
		return err
	}

	est := yaw.NewEstimator()
	enc, err := sensors.OpenEncoder(sensors.EncoderPins{
		A:         cfg.YawPinA,
		B:         cfg.YawPinB,
		Reference: cfg.YawRefPin,
	}, est)
	if err != nil {
		return err
	}

	controls, err := sensors.OpenControls(sensors.ControlPins{
		Up:     cfg.ButtonUpPin,
		Down:   cfg.ButtonDownPin,
		Left:   cfg.ButtonLeftPin,
		Right:  cfg.ButtonRightPin,
		Switch: cfg.SwitchPin,
	})
	if err != nil {
		return err
	}

	rotors, err := sensors.OpenRotors(cfg.PWMMainPin, cfg.PWMTailPin, cfg.PWMRateHz)
	if err != nil {
		return err
	}
	defer rotors.Disable()

	restart := func() {
		if err := sensors.Restart(); err != nil {
			log.Printf("reset failed: %v", err)
		}
	}
	resetBtn, err := sensors.OpenResetButton(cfg.ResetPin, restart)
	if err != nil {
		return err
	}

	var screen Screen
	if cfg.DisplayEnabled {
		oled, err := display.OpenI2C(bus)
		if err != nil {
			log.Printf("display: disabled: %v", err)
		} else {
			if err := oled.Splash("Heli Controller"); err != nil {
				log.Printf("display: splash: %v", err)
			}
			screen = oled
		}
	}

	var local []telemetry.Sink
	if cfg.TelemetrySerialPort != "" {
		format, err := telemetry.ParseFormat(cfg.TelemetryFormat)
		if err != nil {
			return err
		}
		uart, err := telemetry.NewSerialSink(cfg.TelemetrySerialPort, uint(cfg.TelemetryBaudRate), format)
		if err != nil {
			return err
		}
		defer uart.Close()
		log.Printf("telemetry: serial on %s at %d baud (%s)", cfg.TelemetrySerialPort, cfg.TelemetryBaudRate, cfg.TelemetryFormat)
		local = append(local, uart)
	}
	sinks, states, closeMQTT := flightSinks(cfg, local...)
	defer closeMQTT()

	// Fill the buffer before calibrating so the landed sample is a full mean.
	if err := adc.Prime(buf, buf.Cap()); err != nil {
		return fmt.Errorf("prime sample buffer: %w", err)
	}
	alt := altitude.New(buf, cfg.ADCOneVolt, cfg.AltitudeVoltageRange)
	alt.TakeLandedSample()
	log.Printf("altitude: landed sample %d", alt.LandedSample())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go waitForSignal(cancel)

	background := []struct {
		name string
		run  func(context.Context) error
	}{
		{"adc", func(ctx context.Context) error { return adc.Run(ctx, buf) }},
		{"encoder", enc.Run},
		{"reset", resetBtn.Run},
	}
	for _, bg := range background {
		go func() {
			if err := bg.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("%s: stopped: %v", bg.name, err)
				cancel()
			}
		}()
	}

	altGains, yawGains := GainsFrom(cfg)
	heli := NewHeli(Deps{
		Clock:         kernel.NewRealClock(),
		Altitude:      alt,
		Yaw:           est,
		Controls:      controls,
		Rotors:        rotors,
		Display:       screen,
		Telemetry:     sinks,
		States:        states,
		Reset:         restart,
		AltitudeGains: altGains,
		YawGains:      yawGains,
		Rates:         RatesFrom(cfg),
	})

	sched := heli.Scheduler()
	log.Printf("kernel: running %v", sched.Names())
	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
