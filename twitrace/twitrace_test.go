// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twitrace

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/gpio"
)

// gen draws an ideal waveform where every step lasts dt.
type gen struct {
	t        Trace
	now, dt  time.Duration
	scl, sda gpio.Level
}

func newGen(dt time.Duration) *gen {
	g := &gen{dt: dt, scl: gpio.High, sda: gpio.High}
	g.t.Add(0, g.scl, g.sda)
	return g
}

func (g *gen) set(scl, sda gpio.Level) {
	g.now += g.dt
	g.scl, g.sda = scl, sda
	g.t.Add(g.now, scl, sda)
}

func (g *gen) start() {
	if g.scl == gpio.Low {
		g.set(gpio.Low, gpio.High)
		g.set(gpio.High, gpio.High)
	}
	g.set(gpio.High, gpio.Low)
	g.set(gpio.Low, gpio.Low)
}

func (g *gen) bit(b gpio.Level) {
	g.set(gpio.Low, b)
	g.set(gpio.High, b)
	g.set(gpio.Low, b)
}

func (g *gen) octet(v byte, ack bool) {
	for i := 7; i >= 0; i-- {
		g.bit(v&(1<<uint(i)) != 0)
	}
	g.bit(gpio.Level(!ack))
}

func (g *gen) stop() {
	g.set(gpio.Low, gpio.Low)
	g.set(gpio.High, gpio.Low)
	g.set(gpio.High, gpio.High)
}

func TestAddKeepsChangesOnly(t *testing.T) {
	var tr Trace
	tr.Add(0, gpio.High, gpio.High)
	tr.Add(1, gpio.High, gpio.High)
	tr.Add(2, gpio.Low, gpio.High)
	if len(tr.Samples) != 2 {
		t.Fatalf("got %d samples", len(tr.Samples))
	}
	if tr.Start() != 0 || tr.End() != 2 {
		t.Fatalf("Start=%s End=%s", tr.Start(), tr.End())
	}
	if scl, _ := tr.Levels(1); scl != gpio.High {
		t.Fatal("SCL should still be high at 1ns")
	}
	if scl, _ := tr.Levels(5); scl != gpio.Low {
		t.Fatal("SCL should be low at 5ns")
	}
	tr.Reset()
	if len(tr.Samples) != 0 || tr.End() != 0 {
		t.Fatal("Reset should drop samples")
	}
}

func TestDecode(t *testing.T) {
	g := newGen(5 * time.Microsecond)
	g.start()
	g.octet(0xA0, true)
	g.octet(0x00, true)
	g.start()
	g.octet(0xA1, true)
	g.octet(0x11, true)
	g.octet(0x22, false)
	g.stop()
	want := "S A0+ 00+ Sr A1+ 11+ 22- P"
	if diff := cmp.Diff(want, Format(g.t.Events())); diff != "" {
		t.Fatalf("Decode mismatch (-want +got):\n%s", diff)
	}
	kinds := []Kind{}
	for _, e := range g.t.Events() {
		if e.Kind != Byte {
			kinds = append(kinds, e.Kind)
		}
	}
	if diff := cmp.Diff([]Kind{Start, Restart, Stop}, kinds); diff != "" {
		t.Fatalf("conditions mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeIgnoresIdleClock(t *testing.T) {
	g := newGen(time.Microsecond)
	g.bit(gpio.High)
	g.bit(gpio.Low)
	if e := g.t.Events(); len(e) != 0 {
		t.Fatalf("unexpected events %v", e)
	}
}

func TestCheck(t *testing.T) {
	g := newGen(5 * time.Microsecond)
	g.start()
	g.octet(0x55, false)
	g.stop()
	if v := Check(g.t.Samples, StandardMode); len(v) != 0 {
		t.Fatalf("unexpected violations %v", v)
	}

	g = newGen(time.Microsecond)
	g.start()
	g.octet(0x55, false)
	g.stop()
	v := Check(g.t.Samples, StandardMode)
	seen := map[string]bool{}
	for _, x := range v {
		seen[x.Param] = true
		if x.Got >= x.Min {
			t.Errorf("%s is not a violation", x)
		}
	}
	for _, p := range []string{"tLOW", "tHIGH", "tHD;STA", "tSU;STO"} {
		if !seen[p] {
			t.Errorf("missing %s violation in %v", p, v)
		}
	}
	if v := Check(g.t.Samples, Limits{}); len(v) != 0 {
		t.Fatalf("zero limits can't be violated: %v", v)
	}
}

func TestCheckRepeatedStartAndBusFree(t *testing.T) {
	g := newGen(time.Microsecond)
	g.start()
	g.octet(0xA0, true)
	g.start()
	g.octet(0xA1, false)
	g.stop()
	g.start()
	seen := map[string]bool{}
	for _, x := range Check(g.t.Samples, StandardMode) {
		seen[x.Param] = true
	}
	if !seen["tSU;STA"] || !seen["tBUF"] {
		t.Fatalf("expected tSU;STA and tBUF violations, got %v", seen)
	}
}

func TestEventString(t *testing.T) {
	data := []struct {
		e    Event
		want string
	}{
		{Event{Kind: Start}, "S"},
		{Event{Kind: Restart}, "Sr"},
		{Event{Kind: Stop}, "P"},
		{Event{Kind: Byte, Value: 0x0A, Ack: true}, "0A+"},
		{Event{Kind: Byte, Value: 0xFF}, "FF-"},
		{Event{Kind: Kind(9)}, "Kind(9)"},
	}
	for _, line := range data {
		if got := line.e.String(); got != line.want {
			t.Errorf("%#v.String() = %q, want %q", line.e, got, line.want)
		}
	}
}
