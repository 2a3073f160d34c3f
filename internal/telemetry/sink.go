// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	serial "github.com/jacobsa/go-serial/serial"
)

// Sink transmits frames. Sends are fire-and-forget: a failed send is
// reported to the caller but never retried.
type Sink interface {
	Send(Frame) error
}

// Format selects the wire encoding of a byte-stream sink.
type Format int

const (
	FormatTextBlock Format = iota // five-line operator block
	FormatNMEA                    // one $HCTLM sentence per frame
)

// ParseFormat maps the TELEMETRY_FORMAT values "text" and "sentence".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "text", "":
		return FormatTextBlock, nil
	case "sentence":
		return FormatNMEA, nil
	}
	return 0, fmt.Errorf("unknown telemetry format %q (want text or sentence)", s)
}

// Encode renders f in the given format, including line terminators.
func (fm Format) Encode(f Frame) string {
	if fm == FormatNMEA {
		return FormatSentence(f) + lineEnd
	}
	return FormatText(f)
}

// WriterSink writes encoded frames to any io.Writer.
type WriterSink struct {
	w      io.Writer
	format Format
}

func NewWriterSink(w io.Writer, format Format) *WriterSink {
	return &WriterSink{w: w, format: format}
}

func (s *WriterSink) Send(f Frame) error {
	_, err := io.WriteString(s.w, s.format.Encode(f))
	return err
}

// OpenSerial opens a UART as 8N1.
func OpenSerial(portName string, baud uint) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", portName, err)
	}
	return port, nil
}

// SerialSink is a WriterSink over a serial port it owns.
type SerialSink struct {
	*WriterSink
	port io.Closer
}

// NewSerialSink opens portName and writes frames to it.
func NewSerialSink(portName string, baud uint, format Format) (*SerialSink, error) {
	port, err := OpenSerial(portName, baud)
	if err != nil {
		return nil, err
	}
	return &SerialSink{WriterSink: NewWriterSink(port, format), port: port}, nil
}

func (s *SerialSink) Close() error {
	return s.port.Close()
}

// Publisher is the part of an MQTT client a sink needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

var _ Publisher = mqtt.Client(nil)

// StateChange is published when the flight state machine moves.
type StateChange struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	Mode string    `json:"mode"`
	Time time.Time `json:"time"`
}

// MQTTSink publishes frames as JSON at QoS 0 without waiting for the
// broker.
type MQTTSink struct {
	client     Publisher
	topic      string
	stateTopic string
}

func NewMQTTSink(client Publisher, topic, stateTopic string) *MQTTSink {
	return &MQTTSink{client: client, topic: topic, stateTopic: stateTopic}
}

func (s *MQTTSink) Send(f Frame) error {
	return s.publish(s.topic, false, f)
}

// SendStateChange publishes a retained state change so late subscribers
// see the current state.
func (s *MQTTSink) SendStateChange(c StateChange) error {
	if s.stateTopic == "" {
		return nil
	}
	return s.publish(s.stateTopic, true, c)
}

func (s *MQTTSink) publish(topic string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal for %s: %w", topic, err)
	}
	s.client.Publish(topic, 0, retained, payload)
	return nil
}

// MultiSink fans a frame out to every sink. All sinks are tried; their
// errors are joined.
type MultiSink []Sink

func (m MultiSink) Send(f Frame) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
