// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"

	"github.com/relabs-tech/heli_controller/internal/config"
	"github.com/relabs-tech/heli_controller/internal/telemetry"
)

// ReadFrames decodes telemetry from r until it fails or ends, calling emit
// for every complete frame. Both encodings may be mixed on one stream:
// lines starting with '$' are sentences, anything else belongs to a text
// block. Malformed input is logged and skipped; a serial link joined
// mid-block always produces some.
func ReadFrames(r io.Reader, emit func(telemetry.Frame)) error {
	reader := bufio.NewReader(r)
	var text telemetry.TextDecoder

	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			decodeLine(&text, line, emit)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func decodeLine(text *telemetry.TextDecoder, line string, emit func(telemetry.Frame)) {
	if strings.HasPrefix(line, "$") {
		f, err := telemetry.ParseSentence(line)
		if err != nil {
			log.Printf("telemetry console: %v", err)
			return
		}
		emit(f)
		return
	}
	f, ok, err := text.Feed(line)
	if err != nil {
		log.Printf("telemetry console: %v", err)
		return
	}
	if ok {
		emit(f)
	}
}

// RunTelemetryConsole is the ground station: it reads the rig's telemetry
// UART, prints every frame, and republishes it as JSON on the telemetry
// topic.
func RunTelemetryConsole() error {
	cfg := config.Get()

	// ---- 1) Connect to MQTT broker ----
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	// ---- 2) Open telemetry serial port ----
	portName := cfg.TelemetrySerialPort
	if portName == "" {
		portName = "/dev/serial0"
	}
	port, err := telemetry.OpenSerial(portName, uint(cfg.TelemetryBaudRate))
	if err != nil {
		return err
	}
	defer port.Close()
	log.Printf("telemetry console: serial port opened on %s at %d baud", portName, cfg.TelemetryBaudRate)

	go waitForSignal(func() { port.Close() })

	// ---- 3) Decode and republish ----
	return ReadFrames(port, func(f telemetry.Frame) {
		printFrame(f)
		payload, err := json.Marshal(f)
		if err != nil {
			log.Printf("telemetry console: JSON marshal error: %v", err)
			return
		}
		token := client.Publish(cfg.TopicTelemetry, 0, false, payload)
		token.Wait()
		if token.Error() != nil {
			log.Printf("telemetry console: publish error: %v", token.Error())
		}
	})
}
