// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usitwi

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers/at24cx"

	"github.com/GermanBionicSystems/twi/twitrace"
	"github.com/GermanBionicSystems/twi/usitwi/usitwitest"
)

func openSim(t *testing.T, opts *Opts, targets ...usitwitest.Target) (*Bus, *usitwitest.Bus) {
	t.Helper()
	sb := usitwitest.NewBus()
	for _, x := range targets {
		sb.Attach(x)
	}
	s, err := sb.NewSoft()
	if err != nil {
		t.Fatal(err)
	}
	o := Opts{Wait: Bounded{Polls: 100}}
	if opts != nil {
		o = *opts
	}
	o.Delay = sb.Sleep
	b, err := Open(s, &o)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = b.Close() })
	sb.Reset()
	return b, sb
}

func TestBusTx(t *testing.T) {
	mem := &usitwitest.Memory{Addr: 0x50}
	b, sb := openSim(t, nil, mem)
	rec := &i2ctest.Record{Bus: b}
	d := &i2c.Dev{Bus: rec, Addr: 0x50}

	if err := d.Tx([]byte{0x10, 0xDE, 0xAD}, nil); err != nil {
		t.Fatal(err)
	}
	if mem.Data[0x10] != 0xDE || mem.Data[0x11] != 0xAD {
		t.Fatalf("memory holds %#x %#x", mem.Data[0x10], mem.Data[0x11])
	}
	r := make([]byte, 2)
	if err := d.Tx([]byte{0x10}, r); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{0xDE, 0xAD}, r); diff != "" {
		t.Fatalf("read (-want +got):\n%s", diff)
	}

	want := []i2ctest.IO{
		{Addr: 0x50, W: []byte{0x10, 0xDE, 0xAD}},
		{Addr: 0x50, W: []byte{0x10}, R: []byte{0xDE, 0xAD}},
	}
	if diff := cmp.Diff(want, rec.Ops, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("ops (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("S A0+ 10+ DE+ AD+ P S A0+ 10+ Sr A1+ DE+ AD- P", twitrace.Format(sb.Trace.Events())); diff != "" {
		t.Fatalf("analyzer (-want +got):\n%s", diff)
	}
	if v := twitrace.Check(sb.Trace.Samples, twitrace.StandardMode); len(v) != 0 {
		t.Fatalf("timing violations: %v", v)
	}
}

func TestBusReadOnly(t *testing.T) {
	mem := &usitwitest.Memory{Addr: 0x50}
	mem.Data[0], mem.Data[1], mem.Data[2] = 1, 2, 3
	b, sb := openSim(t, nil, mem)
	r := make([]byte, 3)
	if err := b.Tx(0x50, nil, r); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3}, r); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("S A1+ 01+ 02+ 03- P", twitrace.Format(sb.Trace.Events())); diff != "" {
		t.Fatalf("analyzer (-want +got):\n%s", diff)
	}
	if mem.Pointer() != 3 {
		t.Fatalf("pointer %d", mem.Pointer())
	}
}

func TestBusErrors(t *testing.T) {
	mem := &usitwitest.Memory{Addr: 0x50, WriteProtect: true}
	b, sb := openSim(t, nil, mem)
	data := []struct {
		name   string
		addr   uint16
		w      []byte
		err    error
		events string
	}{
		{"no device", 0x51, []byte{0}, ErrNoDevice, "S A2- P"},
		{"write protected", 0x50, []byte{0, 1}, ErrNack, "S A0+ 00+ 01- P"},
		{"10 bit", 0x80, []byte{0}, ErrInvalidAddr, ""},
	}
	for _, line := range data {
		sb.Reset()
		if err := b.Tx(line.addr, line.w, nil); !errors.Is(err, line.err) {
			t.Errorf("%s: got %v, want %v", line.name, err, line.err)
		}
		if diff := cmp.Diff(line.events, twitrace.Format(sb.Trace.Events())); diff != "" {
			t.Errorf("%s: analyzer (-want +got):\n%s", line.name, diff)
		}
		if sb.SCL().Level() != gpio.High || sb.SDA().Level() != gpio.High {
			t.Errorf("%s: bus left busy", line.name)
		}
	}
}

func TestBusProbe(t *testing.T) {
	b, sb := openSim(t, nil, &usitwitest.Memory{Addr: 0x50})
	var found []uint16
	for addr := uint16(0); addr < 0x80; addr++ {
		err := b.Tx(addr, nil, nil)
		if err == nil {
			found = append(found, addr)
		} else if !errors.Is(err, ErrNoDevice) {
			t.Fatalf("%#x: %v", addr, err)
		}
	}
	if diff := cmp.Diff([]uint16{0x50}, found); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if n := len(sb.Trace.Events()); n != 3*0x80 {
		t.Fatalf("got %d events", n)
	}
}

func TestBusFastMode(t *testing.T) {
	mem := &usitwitest.Memory{Addr: 0x50}
	b, sb := openSim(t, &Opts{CPU: 8 * physic.MegaHertz}, mem)
	if err := b.SetSpeed(2 * physic.MegaHertz); err == nil {
		t.Fatal("expected error")
	}
	if err := b.SetSpeed(FastSpeed); err != nil {
		t.Fatal(err)
	}
	sb.Reset()
	r := make([]byte, 1)
	if err := b.Tx(0x50, []byte{0x00}, r); err != nil {
		t.Fatal(err)
	}
	if v := twitrace.Check(sb.Trace.Samples, twitrace.FastMode); len(v) != 0 {
		t.Fatalf("timing violations: %v", v)
	}
	// Fast mode delays are too short for standard mode targets.
	if v := twitrace.Check(sb.Trace.Samples, twitrace.StandardMode); len(v) == 0 {
		t.Fatal("expected standard mode violations")
	}
}

func TestBusTimeout(t *testing.T) {
	b, sb := openSim(t, &Opts{Wait: Bounded{Polls: 10}})
	usitwitest.Stuck(sb.SCL())
	if err := b.Tx(0x50, []byte{0}, nil); !errors.Is(err, ErrBusTimeout) {
		t.Fatalf("got %v", err)
	}
	usitwitest.Unstick(sb.SCL())
	if err := b.Dev().Stop(); err != nil {
		t.Fatal(err)
	}
	if err := b.Tx(0x51, nil, nil); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("bus should work again, got %v", err)
	}
}

func TestBusPins(t *testing.T) {
	b, sb := openSim(t, nil)
	if b.SCL() != gpio.PinIO(sb.SCL()) || b.SDA() != gpio.PinIO(sb.SDA()) {
		t.Fatalf("pins %s %s", b.SCL(), b.SDA())
	}

	s2 := usitwitest.NewBus()
	soft, err := s2.NewSoft()
	if err != nil {
		t.Fatal(err)
	}
	b2, err := Open(&spy{Hardware: soft}, &Opts{Delay: s2.Sleep})
	if err != nil {
		t.Fatal(err)
	}
	defer b2.Close()
	if b2.SCL() != gpio.INVALID || b2.SDA() != gpio.INVALID {
		t.Fatal("hardware without pins should report gpio.INVALID")
	}
}

func TestBusClose(t *testing.T) {
	sb := usitwitest.NewBus()
	soft, err := sb.NewSoft()
	if err != nil {
		t.Fatal(err)
	}
	b, err := Open(soft, &Opts{Delay: sb.Sleep})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Open(soft, &Opts{Delay: sb.Sleep}); !errors.Is(err, ErrBusy) {
		t.Fatalf("got %v, want ErrBusy", err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if err := b.Tx(0x50, nil, nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("got %v, want ErrClosed", err)
	}
	b, err = Open(soft, &Opts{Delay: sb.Sleep})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestBusTinyGoDriver(t *testing.T) {
	mem := &usitwitest.Memory{Addr: 0x50, Wide: true}
	b, sb := openSim(t, nil, mem)
	eeprom := at24cx.New(b)
	eeprom.Address = 0x50
	eeprom.Configure(at24cx.Config{})

	if err := eeprom.WriteByte(0x0123, 0x5A); err != nil {
		t.Fatal(err)
	}
	if mem.Data[0x123] != 0x5A {
		t.Fatalf("memory holds %#x", mem.Data[0x123])
	}
	sb.Reset()
	v, err := eeprom.ReadByte(0x0123)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x5A {
		t.Fatalf("read %#x", v)
	}
	if diff := cmp.Diff("S A0+ 01+ 23+ Sr A1+ 5A- P", twitrace.Format(sb.Trace.Events())); diff != "" {
		t.Fatalf("analyzer (-want +got):\n%s", diff)
	}

	msg := []byte("two-wire")
	if _, err := eeprom.WriteAt(msg, 0x0FF0); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, len(msg))
	if _, err := eeprom.ReadAt(got, 0x0FF0); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(msg, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}
