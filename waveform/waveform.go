// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package waveform draws a recorded two-wire trace the way a logic analyzer
// shows it: one row per line, the decoded conditions and bytes underneath.
//
// Term writes to a terminal using ANSI color codes, Image and WritePNG
// produce a picture.
package waveform

import (
	"errors"
	"image/color"
	"time"

	"github.com/maruel/ansi256"

	"github.com/GermanBionicSystems/twi/twitrace"
)

// MaxColumns limits the width of a rendering.
const MaxColumns = 1 << 14

// Opts represents the options available for the renderers.
type Opts struct {
	// Step is the time covered by one column.
	Step time.Duration
	// High and Low are the colors of the two levels.
	High color.NRGBA
	Low  color.NRGBA
	// Palette is only used by Term. It defaults to ansi256.Default.
	Palette *ansi256.Palette

	_ struct{}
}

// DefaultOpts shows a 100kHz transfer with 5 columns per bit phase.
var DefaultOpts = Opts{
	Step: time.Microsecond,
	High: color.NRGBA{0x30, 0xD0, 0x30, 0xFF},
	Low:  color.NRGBA{0x10, 0x30, 0x60, 0xFF},
}

func (o *Opts) color(l bool) color.NRGBA {
	if l {
		return o.High
	}
	return o.Low
}

// columns returns how many columns are needed to show t.
func columns(t *twitrace.Trace, step time.Duration) (int, error) {
	if step <= 0 {
		return 0, errors.New("waveform: Step must be positive")
	}
	if len(t.Samples) == 0 {
		return 0, errors.New("waveform: empty trace")
	}
	n := (t.End() - t.Start()) / step
	if n >= MaxColumns {
		return 0, errors.New("waveform: trace too long for Step; use a larger Step")
	}
	return int(n) + 1, nil
}

// column returns the column showing time at.
func column(t *twitrace.Trace, step, at time.Duration) int {
	return int((at - t.Start()) / step)
}
