// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry carries the rig's status out of the controller: the
// Frame type, its two wire encodings (the operator's five-line text block
// and a checksummed $HCTLM sentence) and the sinks that transmit it.
package telemetry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedFrame is returned when a text block or sentence cannot be
// decoded into a Frame.
var ErrMalformedFrame = errors.New("telemetry: malformed frame")

// Frame is one snapshot of the rig, suitable for JSON and MQTT.
type Frame struct {
	Altitude        int32  `json:"altitude"`         // percent
	DesiredAltitude int32  `json:"desired_altitude"` // percent
	Yaw             int32  `json:"yaw"`              // degrees
	DesiredYaw      int32  `json:"desired_yaw"`      // degrees
	MainDuty        uint32 `json:"main_duty"`        // percent
	TailDuty        uint32 `json:"tail_duty"`        // percent
	State           string `json:"state,omitempty"`  // e.g. "Seeking"; empty when decoded from text
	Mode            string `json:"mode"`             // "LANDED", "TAKEOFF", "FLIGHT", "LANDING"
}

const (
	textSeparator = "-----------------"
	lineEnd       = "\r\n"
)

// FormatText renders the five-line operator block, each line ending CR/LF.
func FormatText(f Frame) string {
	var b strings.Builder
	b.WriteString(textSeparator + lineEnd)
	fmt.Fprintf(&b, "Yaw: %3d  [%3d] "+lineEnd, f.Yaw, f.DesiredYaw)
	fmt.Fprintf(&b, "Alt: %3d%% [%3d]"+lineEnd, f.Altitude, f.DesiredAltitude)
	fmt.Fprintf(&b, "M: %3d%% T: %3d%% "+lineEnd, f.MainDuty, f.TailDuty)
	fmt.Fprintf(&b, "Mode: %s"+lineEnd, f.Mode)
	return b.String()
}

// TextDecoder reassembles Frames from a stream of text block lines. Lines
// may arrive with or without their terminators. A block is emitted when its
// Mode line is seen; a separator discards any partial block.
type TextDecoder struct {
	cur  Frame
	seen int // bit per decoded line: yaw, alt, duty
}

const (
	seenYaw = 1 << iota
	seenAlt
	seenDuty
	seenAll = seenYaw | seenAlt | seenDuty
)

// Feed consumes one line. It returns the completed frame and true once a
// whole block has been read.
func (d *TextDecoder) Feed(line string) (Frame, bool, error) {
	line = strings.TrimRight(line, "\r\n ")
	switch {
	case line == "":
		return Frame{}, false, nil
	case line == textSeparator:
		d.cur, d.seen = Frame{}, 0
		return Frame{}, false, nil
	case strings.HasPrefix(line, "Yaw:"):
		if _, err := fmt.Sscanf(line, "Yaw: %d [%d]", &d.cur.Yaw, &d.cur.DesiredYaw); err != nil {
			return Frame{}, false, fmt.Errorf("%w: %q: %v", ErrMalformedFrame, line, err)
		}
		d.seen |= seenYaw
	case strings.HasPrefix(line, "Alt:"):
		if _, err := fmt.Sscanf(line, "Alt: %d%% [%d]", &d.cur.Altitude, &d.cur.DesiredAltitude); err != nil {
			return Frame{}, false, fmt.Errorf("%w: %q: %v", ErrMalformedFrame, line, err)
		}
		d.seen |= seenAlt
	case strings.HasPrefix(line, "M:"):
		if _, err := fmt.Sscanf(line, "M: %d%% T: %d%%", &d.cur.MainDuty, &d.cur.TailDuty); err != nil {
			return Frame{}, false, fmt.Errorf("%w: %q: %v", ErrMalformedFrame, line, err)
		}
		d.seen |= seenDuty
	case strings.HasPrefix(line, "Mode:"):
		d.cur.Mode = strings.TrimSpace(strings.TrimPrefix(line, "Mode:"))
		f, complete := d.cur, d.seen == seenAll
		d.cur, d.seen = Frame{}, 0
		if !complete {
			return Frame{}, false, fmt.Errorf("%w: incomplete block", ErrMalformedFrame)
		}
		return f, true, nil
	default:
		return Frame{}, false, fmt.Errorf("%w: unexpected line %q", ErrMalformedFrame, line)
	}
	return Frame{}, false, nil
}
