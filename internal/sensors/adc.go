// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"fmt"
	"log"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
)

// SampleWriter receives raw altitude samples. *circbuf.Buffer is one.
type SampleWriter interface {
	Write(v uint32)
}

// ADCConfig selects the altitude ADC input.
type ADCConfig struct {
	Address uint16 // I2C address, 0x48 by default
	Channel int    // single-ended input 0-3
	RateHz  int
	// OneVolt is the number of counts written per volt, so the altitude
	// maths keeps working in the units it was tuned for.
	OneVolt int
}

// ADCSampler streams conversions from an ADS1115 into a SampleWriter.
type ADCSampler struct {
	pin     ads1x15.PinADC
	oneVolt physic.ElectricPotential
}

var channels = [...]ads1x15.Channel{
	ads1x15.Channel0, ads1x15.Channel1, ads1x15.Channel2, ads1x15.Channel3,
}

// OpenADC configures the ADC on bus for continuous conversion.
func OpenADC(bus i2c.Bus, cfg ADCConfig) (*ADCSampler, error) {
	if cfg.Channel < 0 || cfg.Channel >= len(channels) {
		return nil, fmt.Errorf("adc channel %d out of range 0-3", cfg.Channel)
	}
	opts := ads1x15.DefaultOpts
	if cfg.Address != 0 {
		opts.I2cAddress = cfg.Address
	}
	dev, err := ads1x15.NewADS1115(bus, &opts)
	if err != nil {
		return nil, fmt.Errorf("init ads1115 at 0x%02X: %w", opts.I2cAddress, err)
	}
	pin, err := dev.PinForChannel(channels[cfg.Channel], 5*physic.Volt, physic.Frequency(cfg.RateHz)*physic.Hertz, ads1x15.BestQuality)
	if err != nil {
		return nil, fmt.Errorf("ads1115 channel %d: %w", cfg.Channel, err)
	}
	log.Printf("sensors: altitude ADC on channel %d at 0x%02X, %d Hz", cfg.Channel, opts.I2cAddress, cfg.RateHz)
	return &ADCSampler{pin: pin, oneVolt: physic.ElectricPotential(cfg.OneVolt)}, nil
}

// Counts converts a conversion result into altitude counts.
func (a *ADCSampler) Counts(s analog.Sample) uint32 {
	return toCounts(s.V, a.oneVolt)
}

func toCounts(v, oneVolt physic.ElectricPotential) uint32 {
	if v <= 0 {
		return 0
	}
	return uint32(v * oneVolt / physic.Volt)
}

// Run writes every conversion to w until ctx is cancelled.
func (a *ADCSampler) Run(ctx context.Context, w SampleWriter) error {
	samples := a.pin.ReadContinuous()
	defer a.pin.Halt()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-samples:
			if !ok {
				return fmt.Errorf("adc sample stream closed")
			}
			w.Write(a.Counts(s))
		}
	}
}

// Prime blocks until n samples have been written so the first mean is not
// taken over an empty buffer.
func (a *ADCSampler) Prime(w SampleWriter, n int) error {
	for i := 0; i < n; i++ {
		s, err := a.pin.Read()
		if err != nil {
			return fmt.Errorf("adc read: %w", err)
		}
		w.Write(a.Counts(s))
	}
	return nil
}
