// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package usi describes the Universal Serial Interface found on the AVR
// ATtiny family (ATtiny2313, ATtiny85, ...) as used in two-wire mode.
//
// It exposes the register layout of USIDR, USISR and USICR, the Hardware
// capability set a two-wire driver is built upon, and Soft, a software model
// of the peripheral driving two periph.io GPIO pins. Soft makes the driver in
// github.com/GermanBionicSystems/twi/usitwi usable on any host with two free GPIOs and is
// what the simulator in usitwi/usitwitest is wired to.
//
// # Datasheet
//
// https://ww1.microchip.com/downloads/en/DeviceDoc/doc2543.pdf, section
// "USI – Universal Serial Interface".
package usi
