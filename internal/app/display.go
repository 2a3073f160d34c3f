// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"periph.io/x/conn/v3/i2c/i2creg"

	"github.com/relabs-tech/heli_controller/internal/config"
	"github.com/relabs-tech/heli_controller/internal/display"
	"github.com/relabs-tech/heli_controller/internal/sensors"
	"github.com/relabs-tech/heli_controller/internal/telemetry"
)

// latestFrame holds the most recent frame received over MQTT.
type latestFrame struct {
	mu    sync.RWMutex
	frame telemetry.Frame
	have  bool
}

func (l *latestFrame) set(f telemetry.Frame) {
	l.mu.Lock()
	l.frame, l.have = f, true
	l.mu.Unlock()
}

func (l *latestFrame) get() (telemetry.Frame, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.frame, l.have
}

// refresh shows the latest frame on screen if one has arrived.
func (l *latestFrame) refresh(screen Screen) error {
	f, ok := l.get()
	if !ok {
		return nil
	}
	return screen.Show(f)
}

// RunRemoteDisplay mirrors the rig's status page on a ground-station OLED,
// fed from the telemetry topic.
func RunRemoteDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if err := sensors.Init(); err != nil {
		return err
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	oled, err := display.OpenI2C(bus)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Println("display: initialized")
	if err := oled.Splash("Heli Telemetry"); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &latestFrame{}

	// Connect to MQTT
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb+"-display")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	token := client.Subscribe(cfg.TopicTelemetry, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f telemetry.Frame
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("display: frame unmarshal error: %v", err)
			return
		}
		data.set(f)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicTelemetry)

	// Display update loop
	rate := cfg.DisplayRateHz
	if rate <= 0 {
		rate = 4
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	log.Println("display: starting update loop")

	stop := make(chan struct{})
	go waitForSignal(func() { close(stop) })
	for {
		select {
		case <-stop:
			return nil
		case <-ticker.C:
			if err := data.refresh(oled); err != nil {
				log.Printf("display: error updating display: %v", err)
			}
		}
	}
}
