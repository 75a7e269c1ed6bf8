// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usitwi

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3/cpu"

	"github.com/GermanBionicSystems/twi/usi"
)

var (
	// ErrBusTimeout is returned by a Bounded Waiter when SCL never reads high.
	ErrBusTimeout = errors.New("usitwi: bus timeout")
	// ErrBusy is returned by New when the hardware already has a driver.
	ErrBusy = errors.New("usitwi: hardware already in use")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("usitwi: closed")
	// ErrNoDevice is returned by Bus.Tx when the address is not acknowledged.
	ErrNoDevice = errors.New("usitwi: no device acknowledged the address")
	// ErrNack is returned by Bus.Tx when a data byte is not acknowledged.
	ErrNack = errors.New("usitwi: NACK received")
	// ErrInvalidAddr is returned by Bus.Tx for anything but a 7-bit address.
	ErrInvalidAddr = errors.New("usitwi: only 7-bit addresses are supported")
)

// Opts holds the configuration of the driver.
type Opts struct {
	// CPU is the clock the delays are counted in. It defaults to 1MHz, the
	// factory setting of the ATtiny2313.
	CPU physic.Frequency
	// Speed is the targeted SCL frequency. It defaults to 100kHz.
	Speed physic.Frequency
	// Delay busy-waits for the given duration. It defaults to cpu.Nanospin.
	Delay func(time.Duration)
	// Wait waits for SCL to read high. It defaults to Spin, which never
	// returns if the line is held low.
	Wait Waiter
	// Guard is held for the duration of every start, stop and bit transfer so
	// the delays are not stretched by preemption. On a target with interrupts
	// this is where they get masked. It defaults to a no-op.
	Guard sync.Locker
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	CPU:   physic.MegaHertz,
	Speed: StandardSpeed,
}

// Dev is a single-master I²C driver bit-banging the bus through an USI
// peripheral in two-wire mode with software clock strobes.
//
// Operations must be issued in order: Init once, then transactions that each
// begin with Start and end with Stop. A repeated start is a Start without a
// Stop in between. Dev is not safe for concurrent use; Bus adds the locking.
type Dev struct {
	hw     usi.Hardware
	cpu    physic.Frequency
	timing Timing
	delay  func(time.Duration)
	wait   Waiter
	guard  sync.Locker
	closed bool
}

// New returns a driver owning hw. It doesn't touch the hardware; call Init.
//
// opts can be nil, in which case DefaultOpts is used. Only one Dev may own a
// given hw at a time; Close releases it.
func New(hw usi.Hardware, opts *Opts) (*Dev, error) {
	if hw == nil {
		return nil, errors.New("usitwi: hardware is required")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.CPU <= 0 {
		o.CPU = DefaultOpts.CPU
	}
	if o.Speed == 0 {
		o.Speed = DefaultOpts.Speed
	}
	if err := checkSpeed(o.Speed); err != nil {
		return nil, err
	}
	if o.Delay == nil {
		o.Delay = cpu.Nanospin
	}
	if o.Wait == nil {
		o.Wait = Spin{}
	}
	if o.Guard == nil {
		o.Guard = nopLocker{}
	}
	if err := claim(hw); err != nil {
		return nil, err
	}
	return &Dev{
		hw:     hw,
		cpu:    o.CPU,
		timing: NewTiming(o.CPU, o.Speed),
		delay:  o.Delay,
		wait:   o.Wait,
		guard:  o.Guard,
	}, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("usitwi(%v)", d.hw)
}

// Timing returns the delays in use.
func (d *Dev) Timing() Timing {
	return d.timing
}

// SetSpeed recomputes the delays for the SCL frequency f.
func (d *Dev) SetSpeed(f physic.Frequency) error {
	if err := checkSpeed(f); err != nil {
		return err
	}
	d.timing = NewTiming(d.cpu, f)
	return nil
}

// Init releases both lines, makes them outputs and configures the peripheral
// for two-wire mode with the counter clocked by software strobes. All status
// flags are cleared.
//
// It can be called again at any time outside a transaction; the result is the
// same.
func (d *Dev) Init() error {
	if d.closed {
		return ErrClosed
	}
	d.guard.Lock()
	defer d.guard.Unlock()
	for _, l := range []usi.Line{usi.SDA, usi.SCL} {
		if err := d.hw.SetPort(l, true); err != nil {
			return err
		}
	}
	for _, l := range []usi.Line{usi.SDA, usi.SCL} {
		if err := d.hw.SetOutput(l, true); err != nil {
			return err
		}
	}
	if err := d.hw.SetData(usi.DataIdle); err != nil {
		return err
	}
	if err := d.hw.SetControl(usi.ControlTwoWire); err != nil {
		return err
	}
	d.hw.SetStatus(usi.StatusByte)
	return nil
}

// Start sends a start condition, or a repeated start inside a transaction.
//
// It returns with SCL low and SDA released, ready for the address byte.
func (d *Dev) Start() error {
	if d.closed {
		return ErrClosed
	}
	d.guard.Lock()
	defer d.guard.Unlock()
	if err := d.hw.SetPort(usi.SCL, true); err != nil {
		return err
	}
	if err := d.waitSCL("start"); err != nil {
		return err
	}
	d.delay(d.timing.High)
	// SDA falling while SCL is high.
	if err := d.hw.SetPort(usi.SDA, false); err != nil {
		return err
	}
	d.delay(d.timing.High)
	if err := d.hw.SetPort(usi.SCL, false); err != nil {
		return err
	}
	return d.hw.SetPort(usi.SDA, true)
}

// Stop sends a stop condition, leaving both lines released.
//
// It must end every transaction, including one where the address was not
// acknowledged.
func (d *Dev) Stop() error {
	if d.closed {
		return ErrClosed
	}
	d.guard.Lock()
	defer d.guard.Unlock()
	if err := d.hw.SetPort(usi.SDA, false); err != nil {
		return err
	}
	if err := d.hw.SetPort(usi.SCL, true); err != nil {
		return err
	}
	if err := d.waitSCL("stop"); err != nil {
		return err
	}
	d.delay(d.timing.High)
	// SDA rising while SCL is high.
	if err := d.hw.SetPort(usi.SDA, true); err != nil {
		return err
	}
	d.delay(d.timing.Low)
	return nil
}

// Send shifts b out MSB first and clocks in the acknowledge bit. ack is true
// when the target pulled SDA low.
//
// A NACK is not an error; what to do next is the caller's decision, but the
// transaction must still be ended with Stop.
func (d *Dev) Send(b byte) (ack bool, err error) {
	if d.closed {
		return false, ErrClosed
	}
	if err := d.hw.SetPort(usi.SCL, false); err != nil {
		return false, err
	}
	if err := d.hw.SetData(b); err != nil {
		return false, err
	}
	if _, err := d.transfer(usi.StatusByte); err != nil {
		return false, err
	}
	if err := d.hw.SetOutput(usi.SDA, false); err != nil {
		return false, err
	}
	r, err := d.transfer(usi.StatusBit)
	if err != nil {
		return false, err
	}
	return r&1 == 0, nil
}

// ReceiveAck clocks in a byte and acknowledges it, asking the target for
// more.
func (d *Dev) ReceiveAck() (byte, error) {
	return d.receive(usi.DataAck)
}

// ReceiveNack clocks in a byte and does not acknowledge it, telling the
// target it was the last one.
func (d *Dev) ReceiveNack() (byte, error) {
	return d.receive(usi.DataNack)
}

// Receive fills p, acknowledging every byte but the last.
func (d *Dev) Receive(p []byte) error {
	for i := range p {
		var err error
		if i == len(p)-1 {
			p[i], err = d.ReceiveNack()
		} else {
			p[i], err = d.ReceiveAck()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Halt implements conn.Resource.
//
// It sends a stop condition so the bus is left released.
func (d *Dev) Halt() error {
	return d.Stop()
}

// Close releases the ownership of the hardware. The lines are left as they
// are.
func (d *Dev) Close() error {
	if d.closed {
		return ErrClosed
	}
	d.closed = true
	release(d.hw)
	return nil
}

func (d *Dev) receive(ack byte) (byte, error) {
	if d.closed {
		return 0, ErrClosed
	}
	if err := d.hw.SetOutput(usi.SDA, false); err != nil {
		return 0, err
	}
	b, err := d.transfer(usi.StatusByte)
	if err != nil {
		return 0, err
	}
	if err := d.hw.SetData(ack); err != nil {
		return 0, err
	}
	if _, err := d.transfer(usi.StatusBit); err != nil {
		return 0, err
	}
	return b, nil
}

// transfer clocks SCL until the counter preset in status overflows: usi.StatusByte
// for 8 pulses, usi.StatusBit for 1. It returns USIDR, then releases SDA and
// makes it an output again.
func (d *Dev) transfer(status byte) (byte, error) {
	d.guard.Lock()
	defer d.guard.Unlock()
	d.hw.SetStatus(status)
	for {
		d.delay(d.timing.Low)
		// Rising edge.
		if err := d.hw.SetControl(usi.ControlStrobe); err != nil {
			return 0, err
		}
		if err := d.waitSCL("transfer"); err != nil {
			return 0, err
		}
		d.delay(d.timing.High)
		// Falling edge.
		if err := d.hw.SetControl(usi.ControlStrobe); err != nil {
			return 0, err
		}
		if d.hw.Status()&usi.USIOIF != 0 {
			break
		}
	}
	d.delay(d.timing.Low)
	b := d.hw.Data()
	if err := d.hw.SetData(usi.DataIdle); err != nil {
		return 0, err
	}
	if err := d.hw.SetOutput(usi.SDA, true); err != nil {
		return 0, err
	}
	return b, nil
}

// waitSCL waits for SCL to read high, which a target stretching the clock
// delays.
func (d *Dev) waitSCL(phase string) error {
	err := d.wait.WaitUntil(func() bool {
		return d.hw.Read(usi.SCL) == gpio.High
	})
	if err != nil {
		return fmt.Errorf("usitwi: %s: SCL held low: %w", phase, err)
	}
	return nil
}

var _ conn.Resource = &Dev{}
