// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package display draws the rig status page on a 128x64 SSD1306 OLED.
package display

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/heli_controller/internal/telemetry"
)

const (
	width      = 128
	height     = 64
	lineHeight = 13 // basicfont.Face7x13
)

// Panel is anything that can take a full-frame image. *ssd1306.Dev is one.
type Panel interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

var _ Panel = (*ssd1306.Dev)(nil)

// Lines returns the four status lines for f.
func Lines(f telemetry.Frame) []string {
	return []string{
		fmt.Sprintf("Altitude:  %3d%%", f.Altitude),
		fmt.Sprintf("Yaw (deg): %3d", f.Yaw),
		fmt.Sprintf("Main Duty: %3d%%", f.MainDuty),
		fmt.Sprintf("Tail Duty: %3d%%", f.TailDuty),
	}
}

// Render draws the status page for f into a fresh 1-bit image.
func Render(f telemetry.Frame) *image1bit.VerticalLSB {
	return renderText(Lines(f))
}

func renderText(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, width, height))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, (i+1)*lineHeight)
		drawer.DrawString(line)
	}
	return img
}

// OLED shows status pages on a panel.
type OLED struct {
	panel Panel
}

// New wraps an already initialized panel.
func New(p Panel) *OLED {
	return &OLED{panel: p}
}

// OpenI2C initializes an SSD1306 on bus with the default 128x64 options.
func OpenI2C(bus i2c.Bus) (*OLED, error) {
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("init ssd1306: %w", err)
	}
	return New(dev), nil
}

// Show draws the status page for f.
func (o *OLED) Show(f telemetry.Frame) error {
	return o.panel.Draw(o.panel.Bounds(), Render(f), image.Point{})
}

// Splash shows a startup banner until the first status page.
func (o *OLED) Splash(title string) error {
	img := renderText([]string{"", title, "Waiting..."})
	return o.panel.Draw(o.panel.Bounds(), img, image.Point{})
}
