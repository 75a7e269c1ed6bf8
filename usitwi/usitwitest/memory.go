// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usitwitest

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

type phase uint8

const (
	idle phase = iota
	addressing
	receiving
	acking
	sending
	awaitAck
	ignoring
)

// Memory is a target behaving like a 24C02 EEPROM: the first byte written
// after the address sets the word pointer, the following ones are stored,
// reads return data from the pointer. The pointer auto-increments and wraps
// at 256.
//
// With Wide set it behaves like a 24C32 instead: the word pointer is two
// bytes, high byte first, and wraps at 4096.
type Memory struct {
	// Addr is the 7-bit address the target answers to.
	Addr uint16
	// Wide selects 16-bit word addresses.
	Wide bool
	// Data is the memory array. Without Wide only the first 256 bytes are
	// reachable.
	Data [4096]byte
	// WriteProtect makes the target NACK data bytes after the word pointer.
	WriteProtect bool

	// Starts and Stops count the conditions seen on the bus.
	Starts int
	Stops  int

	ptr    uint16
	ptrLen int
	read   bool
	nack   bool
	phase  phase
	shift  byte
	bits   int
	out    byte
}

func (m *Memory) String() string {
	return fmt.Sprintf("Memory(%#x)", m.Addr)
}

// Pointer returns the current word pointer.
func (m *Memory) Pointer() uint16 {
	return m.ptr
}

func (m *Memory) addrLen() int {
	if m.Wide {
		return 2
	}
	return 1
}

func (m *Memory) mask() uint16 {
	if m.Wide {
		return uint16(len(m.Data) - 1)
	}
	return 0xFF
}

// Edge implements Target.
func (m *Memory) Edge(b *Bus, l *Line, level gpio.Level) {
	if l == b.SDA() {
		if b.SCL().Level() == gpio.Low {
			return
		}
		m.release(b)
		if level == gpio.Low {
			m.Starts++
			m.phase = addressing
			m.shift = 0
			m.bits = 0
		} else {
			m.Stops++
			m.phase = idle
		}
		return
	}
	if level == gpio.High {
		m.rise(b)
	} else {
		m.fall(b)
	}
}

// rise samples SDA.
func (m *Memory) rise(b *Bus) {
	bit := b.SDA().Level() == gpio.High
	switch m.phase {
	case addressing, receiving:
		m.shift <<= 1
		if bit {
			m.shift |= 1
		}
		m.bits++
	case awaitAck:
		m.nack = bit
	}
}

// fall changes SDA for the next clock pulse.
func (m *Memory) fall(b *Bus) {
	switch m.phase {
	case addressing:
		if m.bits < 8 {
			return
		}
		if uint16(m.shift>>1) != m.Addr {
			m.phase = ignoring
			return
		}
		m.read = m.shift&1 == 1
		if !m.read {
			m.ptrLen = 0
		}
		m.ack(b)
	case receiving:
		if m.bits < 8 {
			return
		}
		if m.ptrLen < m.addrLen() {
			m.ptr = (m.ptr<<8 | uint16(m.shift)) & m.mask()
			m.ptrLen++
		} else if m.WriteProtect {
			m.phase = ignoring
			return
		} else {
			m.Data[m.ptr] = m.shift
			m.ptr = (m.ptr + 1) & m.mask()
		}
		m.ack(b)
	case acking:
		m.release(b)
		if m.read {
			m.load(b)
		} else {
			m.phase = receiving
			m.shift = 0
			m.bits = 0
		}
	case sending:
		m.bits++
		if m.bits < 8 {
			m.put(b)
			return
		}
		m.release(b)
		m.phase = awaitAck
	case awaitAck:
		if m.nack {
			m.phase = ignoring
			return
		}
		m.load(b)
	}
}

func (m *Memory) ack(b *Bus) {
	b.SDA().Hold(m)
	m.phase = acking
}

// load starts sending the byte at the pointer.
func (m *Memory) load(b *Bus) {
	m.out = m.Data[m.ptr]
	m.ptr = (m.ptr + 1) & m.mask()
	m.bits = 0
	m.phase = sending
	m.put(b)
}

// put drives the current bit of out.
func (m *Memory) put(b *Bus) {
	if m.out&(0x80>>uint(m.bits)) == 0 {
		b.SDA().Hold(m)
	} else {
		b.SDA().Release(m)
	}
}

func (m *Memory) release(b *Bus) {
	b.SDA().Release(m)
}

var _ Target = &Memory{}
