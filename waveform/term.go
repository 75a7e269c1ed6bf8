// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveform

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/twi/twitrace"
)

// Term renders traces as colored blocks on a terminal.
type Term struct {
	w       io.Writer
	opts    Opts
	palette ansi256.Palette

	buf bytes.Buffer
}

// NewTerm returns a Term writing to w. When w is nil it writes to the
// console, translating the color codes on Windows.
//
// opts can be nil, in which case DefaultOpts is used.
func NewTerm(w io.Writer, opts *Opts) *Term {
	if opts == nil {
		opts = &DefaultOpts
	}
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	return &Term{w: w, opts: *opts, palette: *p}
}

func (t *Term) String() string {
	return "waveform.Term"
}

// Halt implements conn.Resource.
//
// It resets the colors so the console is not corrupted.
func (t *Term) Halt() error {
	_, err := t.w.Write([]byte("\n\033[0m"))
	return err
}

// Render writes three rows: SCL, SDA and the decoded events, each event
// printed at the column where it was recognized. Events that would overlap
// the previous one are left out.
func (t *Term) Render(tr *twitrace.Trace) error {
	n, err := columns(tr, t.opts.Step)
	if err != nil {
		return err
	}
	t.buf.Reset()
	_, _ = t.buf.WriteString("\r\033[0m")
	for _, row := range []string{"SCL", "SDA"} {
		_, _ = t.buf.WriteString(row)
		_ = t.buf.WriteByte(' ')
		for i := 0; i < n; i++ {
			scl, sda := tr.Levels(tr.Start() + t.opts.Step*time.Duration(i))
			l := scl
			if row == "SDA" {
				l = sda
			}
			_, _ = io.WriteString(&t.buf, t.palette.Block(t.opts.color(l == gpio.High)))
		}
		_, _ = t.buf.WriteString("\033[0m\n")
	}
	_, _ = t.buf.WriteString("    ")
	_, _ = t.buf.WriteString(t.labels(tr, n))
	_ = t.buf.WriteByte('\n')
	_, err = t.buf.WriteTo(t.w)
	return err
}

func (t *Term) labels(tr *twitrace.Trace, n int) string {
	line := []byte(strings.Repeat(" ", n))
	next := 0
	for _, e := range tr.Events() {
		c := column(tr, t.opts.Step, e.At)
		s := e.String()
		if c < next || c+len(s) > n {
			continue
		}
		copy(line[c:], s)
		next = c + len(s) + 1
	}
	return strings.TrimRight(string(line), " ")
}
