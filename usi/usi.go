// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usi

import (
	"strconv"

	"periph.io/x/conn/v3/gpio"
)

// Line identifies one of the two lines of the USI in two-wire mode.
type Line uint8

const (
	SCL Line = iota
	SDA
)

func (l Line) String() string {
	switch l {
	case SCL:
		return "SCL"
	case SDA:
		return "SDA"
	default:
		return "Line(" + strconv.Itoa(int(l)) + ")"
	}
}

// Port B bit positions of the two-wire lines on the ATtiny2313 (PDIP pins 19
// and 17).
const (
	PinSDA = 5
	PinSCL = 7
)

// USICR, the control register.
const (
	USISIE byte = 1 << 7 // Start condition interrupt enable
	USIOIE byte = 1 << 6 // Counter overflow interrupt enable
	USIWM1 byte = 1 << 5 // Wire mode
	USIWM0 byte = 1 << 4
	USICS1 byte = 1 << 3 // Clock source select
	USICS0 byte = 1 << 2
	USICLK byte = 1 << 1 // Clock strobe
	USITC  byte = 1 << 0 // Toggle clock port pin
)

// USISR, the status register. Writing a one to a flag clears it.
const (
	USISIF byte = 1 << 7 // Start condition detected
	USIOIF byte = 1 << 6 // Counter overflow
	USIPF  byte = 1 << 5 // Stop condition detected
	USIDC  byte = 1 << 4 // Data output collision
	USICNT byte = 0x0F   // 4-bit edge counter
)

const statusFlags = USISIF | USIOIF | USIPF | USIDC

const (
	// ControlTwoWire selects two-wire mode with the external clock shifting
	// data and the counter clocked by software strobes. Interrupts are off.
	ControlTwoWire = USIWM1 | USICS1 | USICLK
	// ControlStrobe is ControlTwoWire plus USITC: every write toggles SCL and
	// advances the counter by one edge.
	ControlStrobe = ControlTwoWire | USITC

	// StatusByte clears all flags and presets the counter to overflow after 16
	// edges, which is 8 clock pulses.
	StatusByte = statusFlags | 0x0
	// StatusBit clears all flags and presets the counter to overflow after 2
	// edges, a single clock pulse used for ACK and NACK.
	StatusBit = statusFlags | 0xE

	// DataIdle is the shift register content that releases SDA.
	DataIdle byte = 0xFF
	// DataAck drives SDA low for the acknowledge bit.
	DataAck byte = 0x00
	// DataNack leaves SDA released for the acknowledge bit.
	DataNack byte = 0xFF
)

// Hardware is the capability set a two-wire driver needs: the PORT, DDR and
// PIN bits of both lines and the three USI registers.
//
// Implementations are owned by a single driver; none of the methods need to be
// safe for concurrent use.
type Hardware interface {
	// SetPort sets the PORTx bit of the line. A high bit releases the line.
	SetPort(l Line, high bool) error
	// SetOutput sets the DDRx bit of the line.
	SetOutput(l Line, out bool) error
	// Read returns the PINx level of the line, whatever its direction.
	Read(l Line) gpio.Level

	// Data returns USIDR.
	Data() byte
	// SetData writes USIDR.
	SetData(v byte) error
	// Status returns USISR.
	Status() byte
	// SetStatus writes USISR: flags written as one are cleared and the
	// counter is loaded with the low nibble.
	SetStatus(v byte)
	// Control returns USICR. USITC always reads as zero.
	Control() byte
	// SetControl writes USICR.
	SetControl(v byte) error
}
