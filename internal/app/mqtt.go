// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/heli_controller/internal/config"
	"github.com/relabs-tech/heli_controller/internal/telemetry"
)

// connectMQTT connects to the configured broker as clientID.
func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", broker, token.Error())
	}
	log.Printf("connected to MQTT broker at %s as %s", broker, clientID)
	return client, nil
}

// flightSinks builds the controller's telemetry outputs: local sinks first,
// then MQTT when the broker is reachable. A missing broker is not fatal on
// the rig. The returned cleanup closes what was opened.
func flightSinks(cfg *config.Config, local ...telemetry.Sink) (telemetry.MultiSink, StatePublisher, func()) {
	sinks := telemetry.MultiSink(local)
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDController)
	if err != nil {
		log.Printf("telemetry: MQTT disabled: %v", err)
		return sinks, nil, func() {}
	}
	m := telemetry.NewMQTTSink(client, cfg.TopicTelemetry, cfg.TopicState)
	log.Printf("telemetry: publishing to %s, state changes to %s", cfg.TopicTelemetry, cfg.TopicState)
	return append(sinks, m), m, func() { client.Disconnect(250) }
}

// waitForSignal blocks until Ctrl+C or SIGTERM, then calls stop.
func waitForSignal(stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received %s, shutting down", sig)
	stop()
}
