// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/twi/twitrace"
	"github.com/GermanBionicSystems/twi/usitwi"
	"github.com/GermanBionicSystems/twi/usitwi/usitwitest"
	"github.com/GermanBionicSystems/twi/waveform"
)

func newDemo(t *testing.T, cpu physic.Frequency, targets ...usitwitest.Target) *demo {
	t.Helper()
	bus := usitwitest.NewBus()
	for _, x := range targets {
		bus.Attach(x)
	}
	hw, err := bus.NewSoft()
	if err != nil {
		t.Fatal(err)
	}
	dev, err := usitwi.New(hw, &usitwi.Opts{CPU: cpu, Delay: bus.Sleep, Wait: usitwi.Bounded{Polls: 100}})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = dev.Close() })
	if err := dev.Init(); err != nil {
		t.Fatal(err)
	}
	return &demo{bus: bus, dev: dev, limits: twitrace.StandardMode, addr: 0x50, reg: 0x10, value: 0x42, n: 3}
}

func TestDemo(t *testing.T) {
	mem := &usitwitest.Memory{Addr: 0x50}
	for i := range mem.Data {
		mem.Data[i] = byte(0xFF - i)
	}
	d := newDemo(t, physic.MegaHertz, mem)
	var out bytes.Buffer
	if err := d.run(&out); err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"== write",
		"S A0+ 10+ 42+ P",
		"== single read",
		"S A0+ 10+ Sr A1+ 42- P",
		"read 42",
		"== multi read",
		"S A0+ 10+ Sr A1+ 42+ EE+ ED- P",
		"read 42 ee ed",
		"",
	}, "\n")
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if got := twitrace.Format(d.full.Events()); got != "S A0+ 10+ 42+ P S A0+ 10+ Sr A1+ 42- P S A0+ 10+ Sr A1+ 42+ EE+ ED- P" {
		t.Fatalf("session trace %q", got)
	}
}

func TestDemoViolations(t *testing.T) {
	d := newDemo(t, 8*physic.MegaHertz, &usitwitest.Memory{Addr: 0x50})
	var out bytes.Buffer
	if err := d.run(&out); err != nil {
		t.Fatal(err)
	}
	// Both reads use a repeated start.
	if n := strings.Count(out.String(), "violation: tSU;STA"); n != 2 {
		t.Fatalf("got %d violations:\n%s", n, out.String())
	}
}

func TestDemoNoTarget(t *testing.T) {
	d := newDemo(t, physic.MegaHertz)
	var out bytes.Buffer
	err := d.run(&out)
	if err == nil || !strings.HasPrefix(err.Error(), "write: 0xa0 was not acknowledged") {
		t.Fatalf("got %v", err)
	}
	if d.bus.SCL().Level() != gpio.High || d.bus.SDA().Level() != gpio.High {
		t.Fatal("the bus must be released")
	}
}

func TestDemoWaveform(t *testing.T) {
	d := newDemo(t, physic.MegaHertz, &usitwitest.Memory{Addr: 0x50})
	var wave bytes.Buffer
	opts := waveform.DefaultOpts
	opts.Step = 5 * opts.Step
	d.term = waveform.NewTerm(&wave, &opts)
	var out bytes.Buffer
	if err := d.run(&out); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(wave.String(), "SCL "); n != 3 {
		t.Fatalf("expected one waveform per transaction, got %d", n)
	}
}
