// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package usitwitest is meant to be used to test drivers of the two-wire bus
// without hardware.
//
// Bus simulates a wired-AND bus with pull-ups and a virtual clock. Its two
// lines are gpio.PinIO and can be handed to usi.NewSoft; targets attached to
// the bus react synchronously to every edge. Every level change is recorded
// in a twitrace.Trace stamped with the virtual clock, which only advances
// through Sleep.
package usitwitest

import (
	"errors"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/pin"

	"github.com/GermanBionicSystems/twi/twitrace"
	"github.com/GermanBionicSystems/twi/usi"
)

// Target is a device attached to the simulated bus.
type Target interface {
	// Edge is called after l changed to level.
	Edge(b *Bus, l *Line, level gpio.Level)
}

// Poller is implemented by targets that want to know when a line is read,
// typically to release a clock they are stretching.
type Poller interface {
	Poll(b *Bus, l *Line)
}

// Bus is a simulated two-wire bus.
//
// It is not safe for concurrent use; the driver under test is single
// threaded.
type Bus struct {
	// Trace holds every level change of either line.
	Trace twitrace.Trace

	now     time.Duration
	scl     *Line
	sda     *Line
	targets []Target
}

// NewBus returns an idle bus: both lines released.
func NewBus() *Bus {
	b := &Bus{}
	b.scl = &Line{bus: b, name: "SCL", num: usi.PinSCL, level: gpio.High, pull: gpio.PullUp, held: map[any]struct{}{}}
	b.sda = &Line{bus: b, name: "SDA", num: usi.PinSDA, level: gpio.High, pull: gpio.PullUp, held: map[any]struct{}{}}
	b.Trace.Add(0, gpio.High, gpio.High)
	return b
}

func (b *Bus) String() string {
	return "usitwitest.Bus"
}

// SCL returns the clock line.
func (b *Bus) SCL() *Line {
	return b.scl
}

// SDA returns the data line.
func (b *Bus) SDA() *Line {
	return b.sda
}

// Attach connects t to the bus.
func (b *Bus) Attach(t Target) {
	b.targets = append(b.targets, t)
}

// Now returns the virtual time.
func (b *Bus) Now() time.Duration {
	return b.now
}

// Sleep advances the virtual clock. Pass it as the driver's delay function.
func (b *Bus) Sleep(d time.Duration) {
	if d > 0 {
		b.now += d
	}
}

// NewSoft returns a software USI driving the bus lines.
func (b *Bus) NewSoft() (*usi.Soft, error) {
	return usi.NewSoft(b.scl, b.sda)
}

// Reset clears the trace, keeping the current line levels as its first
// sample.
func (b *Bus) Reset() {
	b.Trace.Reset()
	b.Trace.Add(b.now, b.scl.level, b.sda.level)
}

func (b *Bus) changed(l *Line) {
	b.Trace.Add(b.now, b.scl.level, b.sda.level)
	for _, t := range b.targets {
		t.Edge(b, l, l.level)
	}
}

// Line is one wire of the simulated bus. The master drives it through the
// gpio.PinIO methods, targets through Hold and Release. It reads low as soon
// as anyone pulls it low.
type Line struct {
	bus    *Bus
	name   string
	num    int
	master bool
	pull   gpio.Pull
	held   map[any]struct{}
	level  gpio.Level
}

// Level returns the current level without notifying pollers.
func (l *Line) Level() gpio.Level {
	return l.level
}

// Hold pulls the line low on behalf of who.
func (l *Line) Hold(who any) {
	l.held[who] = struct{}{}
	l.update()
}

// Release stops pulling the line low on behalf of who.
func (l *Line) Release(who any) {
	delete(l.held, who)
	l.update()
}

func (l *Line) update() {
	level := gpio.Level(!l.master && len(l.held) == 0)
	if level == l.level {
		return
	}
	l.level = level
	l.bus.changed(l)
}

// String implements conn.Resource.
func (l *Line) String() string {
	return l.name
}

// Halt implements conn.Resource.
func (l *Line) Halt() error {
	return nil
}

// Name implements pin.Pin.
func (l *Line) Name() string {
	return l.name
}

// Number implements pin.Pin.
func (l *Line) Number() int {
	return l.num
}

// Function implements pin.Pin.
func (l *Line) Function() string {
	if l.master {
		return "Out/Low"
	}
	return "In/" + l.pull.String()
}

// In implements gpio.PinIn. The line is released.
func (l *Line) In(pull gpio.Pull, edge gpio.Edge) error {
	if edge != gpio.NoEdge {
		return errors.New("usitwitest: edge detection is not supported")
	}
	if pull != gpio.PullNoChange {
		l.pull = pull
	}
	l.master = false
	l.update()
	return nil
}

// Read implements gpio.PinIn.
func (l *Line) Read() gpio.Level {
	for _, t := range l.bus.targets {
		if p, ok := t.(Poller); ok {
			p.Poll(l.bus, l)
		}
	}
	return l.level
}

// WaitForEdge implements gpio.PinIn.
func (l *Line) WaitForEdge(timeout time.Duration) bool {
	return false
}

// Pull implements gpio.PinIn.
func (l *Line) Pull() gpio.Pull {
	return l.pull
}

// DefaultPull implements gpio.PinIn.
func (l *Line) DefaultPull() gpio.Pull {
	return gpio.PullUp
}

// Out implements gpio.PinOut. Driving high only releases the line: the bus is
// open-drain.
func (l *Line) Out(level gpio.Level) error {
	l.master = level == gpio.Low
	l.update()
	return nil
}

// PWM implements gpio.PinOut.
func (l *Line) PWM(duty gpio.Duty, f physic.Frequency) error {
	return errors.New("usitwitest: PWM is not supported")
}

var _ gpio.PinIO = &Line{}
var _ pin.Pin = &Line{}
