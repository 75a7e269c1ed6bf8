// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usitwi

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"

	"github.com/GermanBionicSystems/twi/usi"
)

// Bus exposes a Dev as a periph.io i2c.Bus, so every I²C device driver can
// run over the bit-banged bus. It also satisfies drivers.I2C, the bus
// interface of the TinyGo drivers.
type Bus struct {
	mu sync.Mutex
	d  *Dev
}

// NewBus wraps d. d must have been initialized.
func NewBus(d *Dev) *Bus {
	return &Bus{d: d}
}

// Open returns an initialized Bus owning hw.
func Open(hw usi.Hardware, opts *Opts) (*Bus, error) {
	d, err := New(hw, opts)
	if err != nil {
		return nil, err
	}
	if err := d.Init(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return NewBus(d), nil
}

func (b *Bus) String() string {
	return b.d.String()
}

// Dev returns the underlying driver.
func (b *Bus) Dev() *Dev {
	return b.d
}

// Close implements i2c.BusCloser.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.d.Close()
}

// SetSpeed implements i2c.Bus.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.d.SetSpeed(f)
}

// Tx implements i2c.Bus.
//
// The write phase is skipped when w is empty and r is not; the read phase
// follows with a repeated start. With both empty only the address is sent,
// which is how a bus scan probes for devices.
//
// The transaction is always closed with a stop condition, also on error.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7F {
		return fmt.Errorf("usitwi: address %#x: %w", addr, ErrInvalidAddr)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.d.closed {
		return ErrClosed
	}
	err := b.tx(addr, w, r)
	if errors.Is(err, ErrBusTimeout) {
		// A stop needs the clock line too.
		return err
	}
	if serr := b.d.Stop(); serr != nil {
		if err == nil {
			return serr
		}
		return errors.Join(err, serr)
	}
	return err
}

// SCL implements i2c.Pins.
func (b *Bus) SCL() gpio.PinIO {
	if p, ok := b.d.hw.(i2c.Pins); ok {
		return p.SCL()
	}
	return gpio.INVALID
}

// SDA implements i2c.Pins.
func (b *Bus) SDA() gpio.PinIO {
	if p, ok := b.d.hw.(i2c.Pins); ok {
		return p.SDA()
	}
	return gpio.INVALID
}

func (b *Bus) tx(addr uint16, w, r []byte) error {
	if err := b.d.Start(); err != nil {
		return err
	}
	if len(w) != 0 || len(r) == 0 {
		if err := b.address(addr, false); err != nil {
			return err
		}
		for i, c := range w {
			ack, err := b.d.Send(c)
			if err != nil {
				return err
			}
			if !ack {
				return fmt.Errorf("usitwi: write to %#x: byte %d: %w", addr, i, ErrNack)
			}
		}
		if len(r) == 0 {
			return nil
		}
		if err := b.d.Start(); err != nil {
			return err
		}
	}
	if err := b.address(addr, true); err != nil {
		return err
	}
	return b.d.Receive(r)
}

func (b *Bus) address(addr uint16, read bool) error {
	a := byte(addr << 1)
	if read {
		a |= 1
	}
	ack, err := b.d.Send(a)
	if err != nil {
		return err
	}
	if !ack {
		return fmt.Errorf("usitwi: %#x: %w", addr, ErrNoDevice)
	}
	return nil
}

var _ i2c.BusCloser = &Bus{}
var _ i2c.Pins = &Bus{}
var _ drivers.I2C = &Bus{}
