// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package usitwi is a single-master I²C (TWI) driver for the AVR USI
// peripheral in two-wire mode.
//
// The peripheral only shifts bits and counts clock edges; the start and stop
// conditions, the bit timing and the acknowledge handling are done by the
// driver, which toggles SCL through software strobes and busy-waits between
// edges.
//
// Dev exposes the bus primitives: Start, Stop, Send and the Receive family.
// Bus wraps a Dev as a periph.io i2c.Bus so existing device drivers run over
// it unchanged.
//
// Only standard (100kHz) and fast (400kHz) mode are supported. There is no
// arbitration: this must be the only master on the bus. 10-bit addresses are
// not supported.
//
// # Clock stretching
//
// After every release of SCL the driver waits for the line to read high. With
// the default Waiter, Spin, a line held low forever hangs the caller; use
// Bounded to get ErrBusTimeout instead.
//
// # Datasheet
//
// https://ww1.microchip.com/downloads/en/Appnotes/doc2561.pdf, AVR310 "Using
// the USI module as a TWI Master".
//
// https://www.nxp.com/docs/en/user-guide/UM10204.pdf, the I²C-bus
// specification.
package usitwi
