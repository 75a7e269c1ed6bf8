// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveform

import (
	"image"
	"io"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/twi/twitrace"
)

// Layout of the picture, in pixels.
const (
	marginLeft  = 40
	marginRight = 10
	rowHigh     = 20
	rowLow      = 50
	rowPitch    = 60
	labelRow    = 2*rowPitch + 15
	height      = labelRow + 10
)

var (
	faceOnce sync.Once
	face     font.Face
)

// labelFace returns Go Regular at 11 points, or the builtin bitmap font if
// it cannot be parsed.
func labelFace() font.Face {
	faceOnce.Do(func() {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			face = basicfont.Face7x13
			return
		}
		face = truetype.NewFace(f, &truetype.Options{Size: 11})
	})
	return face
}

// Image draws tr with one pixel per Step.
//
// opts can be nil, in which case DefaultOpts is used.
func Image(tr *twitrace.Trace, opts *Opts) (image.Image, error) {
	dc, err := draw(tr, opts)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// WritePNG encodes the output of Image as PNG to w.
func WritePNG(w io.Writer, tr *twitrace.Trace, opts *Opts) error {
	dc, err := draw(tr, opts)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

func draw(tr *twitrace.Trace, opts *Opts) (*gg.Context, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	n, err := columns(tr, opts.Step)
	if err != nil {
		return nil, err
	}
	dc := gg.NewContext(marginLeft+n+marginRight, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(labelFace())

	x := func(at time.Duration) float64 {
		return float64(marginLeft) + float64(at-tr.Start())/float64(opts.Step)
	}
	end := x(tr.End()) + 1
	for i, name := range []string{"SCL", "SDA"} {
		off := float64(i * rowPitch)
		y := func(l gpio.Level) float64 {
			if l == gpio.High {
				return off + rowHigh
			}
			return off + rowLow
		}
		level := func(s twitrace.Sample) gpio.Level {
			if i == 0 {
				return s.SCL
			}
			return s.SDA
		}
		dc.SetColor(opts.Low)
		dc.DrawString(name, 4, off+(rowHigh+rowLow)/2+4)

		dc.SetColor(opts.High)
		dc.SetLineWidth(2)
		prev := level(tr.Samples[0])
		dc.MoveTo(x(tr.Start()), y(prev))
		for _, s := range tr.Samples[1:] {
			l := level(s)
			if l == prev {
				continue
			}
			dc.LineTo(x(s.At), y(prev))
			dc.LineTo(x(s.At), y(l))
			prev = l
		}
		dc.LineTo(end, y(prev))
		dc.Stroke()
	}

	dc.SetColor(opts.Low)
	dc.SetLineWidth(1)
	dc.SetDash(2, 3)
	for _, e := range tr.Events() {
		ex := x(e.At)
		dc.DrawLine(ex, rowHigh-5, ex, rowPitch+rowLow+5)
		dc.Stroke()
		dc.DrawStringAnchored(e.String(), ex, labelRow, 0.5, 0)
	}
	dc.SetDash()
	return dc, nil
}
