// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"log"

	"github.com/GermanBionicSystems/twi/twitrace"
	"github.com/GermanBionicSystems/twi/usitwi"
	"github.com/GermanBionicSystems/twi/usitwi/usitwitest"
	"github.com/GermanBionicSystems/twi/waveform"
)

// demo runs the three transactions a firmware typically issues: a register
// write, a single register read and a multi register read.
type demo struct {
	bus    *usitwitest.Bus
	dev    *usitwi.Dev
	limits twitrace.Limits

	addr  byte
	reg   byte
	value byte
	n     int

	// term is nil when no waveform is wanted.
	term *waveform.Term
	// full accumulates the whole session.
	full twitrace.Trace
}

type step struct {
	name string
	run  func() ([]byte, error)
}

func (d *demo) steps() []step {
	w, r := d.addr<<1, d.addr<<1|1
	return []step{
		{"write", func() ([]byte, error) {
			if err := d.dev.Start(); err != nil {
				return nil, err
			}
			return nil, d.send(w, d.reg, d.value)
		}},
		{"single read", func() ([]byte, error) {
			if err := d.selectRead(w, r); err != nil {
				return nil, err
			}
			b, err := d.dev.ReceiveNack()
			return []byte{b}, err
		}},
		{"multi read", func() ([]byte, error) {
			if err := d.selectRead(w, r); err != nil {
				return nil, err
			}
			p := make([]byte, d.n)
			return p, d.dev.Receive(p)
		}},
	}
}

func (d *demo) selectRead(w, r byte) error {
	if err := d.dev.Start(); err != nil {
		return err
	}
	if err := d.send(w, d.reg); err != nil {
		return err
	}
	if err := d.dev.Start(); err != nil {
		return err
	}
	return d.send(r)
}

func (d *demo) send(bs ...byte) error {
	for _, b := range bs {
		ack, err := d.dev.Send(b)
		if err != nil {
			return err
		}
		if !ack {
			return fmt.Errorf("%#02x was not acknowledged", b)
		}
	}
	return nil
}

// run executes every step, printing what the bus showed.
func (d *demo) run(out io.Writer) error {
	for _, s := range d.steps() {
		d.bus.Reset()
		data, err := s.run()
		// The transaction is closed even after a NACK.
		if serr := d.dev.Stop(); err == nil {
			err = serr
		}
		if err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		for _, smp := range d.bus.Trace.Samples {
			d.full.Add(smp.At, smp.SCL, smp.SDA)
		}
		fmt.Fprintf(out, "== %s\n", s.name)
		fmt.Fprintf(out, "%s\n", twitrace.Format(d.bus.Trace.Events()))
		if data != nil {
			fmt.Fprintf(out, "read % x\n", data)
		}
		for _, v := range twitrace.Check(d.bus.Trace.Samples, d.limits) {
			fmt.Fprintf(out, "violation: %s\n", v)
		}
		log.Printf("%s: %d edges in %s", s.name, len(d.bus.Trace.Samples), d.bus.Trace.End()-d.bus.Trace.Start())
		if d.term != nil {
			if err := d.term.Render(&d.bus.Trace); err != nil {
				return err
			}
		}
	}
	return nil
}
