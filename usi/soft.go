// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usi

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
)

// Soft is a software model of the USI peripheral in two-wire mode driving two
// GPIO pins.
//
// The pins are used as open-drain outputs: a released line is an input with
// pull-up, a low line is an output driven low. For hardware which doesn't
// support tristate this is the usual way to share a wired-AND bus.
//
// Semantics modelled:
//   - SCL is low when DDR and PORT select a low output.
//   - SDA is low when DDR selects an output and either PORT is low or the
//     output latch is zero. The latch follows USIDR bit 7 while SCL is low or
//     two-wire mode is off, and holds while SCL is high.
//   - Writing USITC toggles the SCL PORT bit. With the software strobe
//     counter selected, every toggle advances USICNT; the wrap from 15 to 0
//     sets USIOIF.
//   - SDA is sampled at the end of each SCL high phase and shifted into USIDR
//     bit 0. A sampled low while the latch is one sets USIDC.
//   - SDA falling while SCL is released sets USISIF, SDA rising sets USIPF.
type Soft struct {
	pins  [2]gpio.PinIO
	port  [2]bool
	ddr   [2]bool
	dr    byte
	sr    byte
	cr    byte
	latch bool
	// -1 when unknown, 0 low, 1 released.
	driven [2]int8
}

// NewSoft returns a Soft using scl and sda. Both lines start released, as
// after a reset: inputs with PORT low.
func NewSoft(scl, sda gpio.PinIO) (*Soft, error) {
	if scl == nil || sda == nil {
		return nil, errors.New("usi: both SCL and SDA pins are required")
	}
	if scl == sda {
		return nil, errors.New("usi: SCL and SDA must be different pins")
	}
	s := &Soft{pins: [2]gpio.PinIO{scl, sda}, latch: true, driven: [2]int8{-1, -1}}
	if err := s.apply(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Soft) String() string {
	return fmt.Sprintf("USI{SCL: %s, SDA: %s}", s.pins[SCL], s.pins[SDA])
}

// Halt implements conn.Resource.
//
// It turns both lines into inputs, releasing the bus.
func (s *Soft) Halt() error {
	s.ddr = [2]bool{}
	return s.apply()
}

// SCL implements i2c.Pins.
func (s *Soft) SCL() gpio.PinIO {
	return s.pins[SCL]
}

// SDA implements i2c.Pins.
func (s *Soft) SDA() gpio.PinIO {
	return s.pins[SDA]
}

// SetPort implements Hardware.
func (s *Soft) SetPort(l Line, high bool) error {
	s.port[l] = high
	return s.apply()
}

// SetOutput implements Hardware.
func (s *Soft) SetOutput(l Line, out bool) error {
	s.ddr[l] = out
	return s.apply()
}

// Read implements Hardware.
func (s *Soft) Read(l Line) gpio.Level {
	return s.pins[l].Read()
}

// Data implements Hardware.
func (s *Soft) Data() byte {
	return s.dr
}

// SetData implements Hardware.
func (s *Soft) SetData(v byte) error {
	s.dr = v
	return s.apply()
}

// Status implements Hardware.
func (s *Soft) Status() byte {
	return s.sr
}

// SetStatus implements Hardware.
func (s *Soft) SetStatus(v byte) {
	s.sr = (s.sr &^ (v & statusFlags) &^ USICNT) | v&USICNT
}

// Control implements Hardware.
func (s *Soft) Control() byte {
	return s.cr
}

// SetControl implements Hardware.
func (s *Soft) SetControl(v byte) error {
	s.cr = v &^ USITC
	if v&USITC == 0 {
		return s.apply()
	}
	if s.port[SCL] && s.twoWire() && s.cr&USICS1 != 0 {
		s.shift()
	}
	s.port[SCL] = !s.port[SCL]
	if s.cr&(USICS1|USICLK) == USICS1|USICLK {
		s.count()
	}
	return s.apply()
}

func (s *Soft) twoWire() bool {
	return s.cr&USIWM1 != 0
}

// shift samples SDA into USIDR bit 0.
func (s *Soft) shift() {
	bit := s.pins[SDA].Read() == gpio.High
	if s.ddr[SDA] && s.latch && !bit {
		s.sr |= USIDC
	}
	s.dr <<= 1
	if bit {
		s.dr |= 1
	}
}

func (s *Soft) count() {
	n := (s.sr + 1) & USICNT
	s.sr = s.sr&^USICNT | n
	if n == 0 {
		s.sr |= USIOIF
	}
}

// levels returns the levels the peripheral drives: true is released.
func (s *Soft) levels() (scl, sda bool) {
	if !s.port[SCL] || !s.twoWire() {
		s.latch = s.dr&0x80 != 0
	}
	scl = !s.ddr[SCL] || s.port[SCL]
	sda = !s.ddr[SDA] || (s.port[SDA] && (!s.twoWire() || s.latch))
	return scl, sda
}

// apply pushes the computed levels to the pins. SCL falls before SDA changes
// and rises after, so that data changes never look like a start or stop
// condition.
func (s *Soft) apply() error {
	scl, sda := s.levels()
	if !scl {
		if err := s.drive(SCL, false); err != nil {
			return err
		}
	}
	if err := s.drive(SDA, sda); err != nil {
		return err
	}
	if scl {
		return s.drive(SCL, true)
	}
	return nil
}

func (s *Soft) drive(l Line, release bool) error {
	want := int8(0)
	if release {
		want = 1
	}
	if s.driven[l] == want {
		return nil
	}
	var err error
	if release {
		err = s.pins[l].In(gpio.PullUp, gpio.NoEdge)
	} else {
		err = s.pins[l].Out(gpio.Low)
	}
	if err != nil {
		s.driven[l] = -1
		return fmt.Errorf("usi: %s: %w", l, err)
	}
	s.driven[l] = want
	// Use the SCL level this side drives; a Read is visible to the targets.
	if l == SDA && s.twoWire() && s.driven[SCL] == 1 {
		if release {
			s.sr |= USIPF
		} else {
			s.sr |= USISIF
		}
	}
	return nil
}

var _ Hardware = &Soft{}
var _ conn.Resource = &Soft{}
var _ i2c.Pins = &Soft{}
