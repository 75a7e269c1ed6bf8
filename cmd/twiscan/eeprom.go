// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/at24cx"
)

// eepromSize is the largest AT24Cxx the 16-bit word address can reach.
const eepromSize = 1 << 16

// dumpEEPROM reads n bytes at off from a 24C32 or larger EEPROM at addr.
func dumpEEPROM(b drivers.I2C, addr uint16, off, n int) ([]byte, error) {
	if off < 0 || n < 1 || off+n > eepromSize {
		return nil, errors.New("range outside of the EEPROM")
	}
	d := at24cx.New(b)
	d.Address = addr
	d.Configure(at24cx.Config{})
	p := make([]byte, n)
	if _, err := d.ReadAt(p, int64(off)); err != nil {
		return nil, err
	}
	return p, nil
}
