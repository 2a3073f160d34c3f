// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"fmt"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

const (
	// TalkerID and TypeTLM make up the "$HCTLM" sentence prefix.
	TalkerID = "HC"
	TypeTLM  = "TLM"
)

// TLM is the decoded $HCTLM sentence:
//
//	$HCTLM,<alt>,<desired alt>,<yaw>,<desired yaw>,<main duty>,<tail duty>,<state>,<mode>*CS
type TLM struct {
	nmea.BaseSentence
	Frame Frame
}

func init() {
	if err := nmea.RegisterParser(TypeTLM, parseTLM); err != nil {
		panic(fmt.Sprintf("telemetry: register %s parser: %v", TypeTLM, err))
	}
}

func parseTLM(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	p.AssertType(TypeTLM)
	if len(s.Fields) != 8 {
		return nil, fmt.Errorf("%w: %s has %d fields, want 8", ErrMalformedFrame, s.Prefix(), len(s.Fields))
	}
	f := Frame{
		Altitude:        int32(p.Int64(0, "altitude")),
		DesiredAltitude: int32(p.Int64(1, "desired altitude")),
		Yaw:             int32(p.Int64(2, "yaw")),
		DesiredYaw:      int32(p.Int64(3, "desired yaw")),
		MainDuty:        uint32(p.Int64(4, "main duty")),
		TailDuty:        uint32(p.Int64(5, "tail duty")),
		State:           p.String(6, "state"),
		Mode:            p.String(7, "mode"),
	}
	return TLM{BaseSentence: s, Frame: f}, p.Err()
}

// FormatSentence encodes f as a checksummed $HCTLM sentence without a line
// terminator.
func FormatSentence(f Frame) string {
	body := fmt.Sprintf("%s%s,%d,%d,%d,%d,%d,%d,%s,%s",
		TalkerID, TypeTLM,
		f.Altitude, f.DesiredAltitude, f.Yaw, f.DesiredYaw,
		f.MainDuty, f.TailDuty, f.State, f.Mode)
	return "$" + body + "*" + nmea.Checksum(body)
}

// ParseSentence decodes one $HCTLM sentence. Other valid NMEA sentences and
// anything failing the checksum return an error wrapping ErrMalformedFrame.
func ParseSentence(raw string) (Frame, error) {
	s, err := nmea.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	tlm, ok := s.(TLM)
	if !ok {
		return Frame{}, fmt.Errorf("%w: unexpected sentence %s", ErrMalformedFrame, s.Prefix())
	}
	return tlm.Frame, nil
}
