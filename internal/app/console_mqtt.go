// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/heli_controller/internal/config"
	"github.com/relabs-tech/heli_controller/internal/telemetry"
)

func printFrame(f telemetry.Frame) {
	fmt.Printf(
		"[TLM ]  ALT=%3d%% [%3d]  YAW=%3d [%3d]  MAIN=%3d%%  TAIL=%3d%%  %s\n",
		f.Altitude, f.DesiredAltitude, f.Yaw, f.DesiredYaw, f.MainDuty, f.TailDuty, f.Mode,
	)
}

func printStateChange(c telemetry.StateChange) {
	fmt.Printf("[STATE] %s -> %s (%s) at %s\n", c.From, c.To, c.Mode, c.Time.Format("15:04:05.000"))
}

// RunConsoleMQTT prints every frame and state change published by the
// controller or the telemetry console until Ctrl+C.
func RunConsoleMQTT() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole+"-monitor")
	if err != nil {
		return err
	}

	// Subscribe to telemetry frames
	frameToken := client.Subscribe(cfg.TopicTelemetry, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f telemetry.Frame
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("console: frame unmarshal error: %v", err)
			return
		}
		printFrame(f)
	})
	frameToken.Wait()
	if frameToken.Error() != nil {
		return frameToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicTelemetry)

	// Subscribe to state changes
	if cfg.TopicState != "" {
		stateToken := client.Subscribe(cfg.TopicState, 0, func(_ mqtt.Client, msg mqtt.Message) {
			var c telemetry.StateChange
			if err := json.Unmarshal(msg.Payload(), &c); err != nil {
				log.Printf("console: state unmarshal error: %v", err)
				return
			}
			printStateChange(c)
		})
		stateToken.Wait()
		if stateToken.Error() != nil {
			return stateToken.Error()
		}
		log.Printf("console: subscribed to %s", cfg.TopicState)
	}

	// Wait for Ctrl+C
	waitForSignal(func() {})

	client.Disconnect(250)
	return nil
}
