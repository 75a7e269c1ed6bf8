// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io"

	"periph.io/x/conn/v3/i2c"

	"github.com/GermanBionicSystems/twi/usitwi"
)

// Addresses outside this range are reserved.
const (
	firstAddr = 0x08
	lastAddr  = 0x77
)

// scan probes every non reserved 7-bit address and prints the ones that
// answered as a table, like i2cdetect.
func scan(b i2c.Bus, w io.Writer) ([]uint16, error) {
	var found []uint16
	fmt.Fprintln(w, "     0  1  2  3  4  5  6  7  8  9  a  b  c  d  e  f")
	for row := 0; row < 0x80; row += 16 {
		fmt.Fprintf(w, "%02x:", row)
		for a := row; a < row+16; a++ {
			if a < firstAddr || a > lastAddr {
				fmt.Fprint(w, "   ")
				continue
			}
			err := b.Tx(uint16(a), nil, nil)
			switch {
			case err == nil:
				found = append(found, uint16(a))
				fmt.Fprintf(w, " %02x", a)
			case errors.Is(err, usitwi.ErrNoDevice):
				fmt.Fprint(w, " --")
			default:
				fmt.Fprintln(w)
				return found, fmt.Errorf("%#02x: %w", a, err)
			}
		}
		fmt.Fprintln(w)
	}
	return found, nil
}

// readRegs reads n bytes starting at register reg of the device at addr.
func readRegs(b i2c.Bus, addr uint16, reg byte, n int) ([]byte, error) {
	d := i2c.Dev{Bus: b, Addr: addr}
	r := make([]byte, n)
	if err := d.Tx([]byte{reg}, r); err != nil {
		return nil, err
	}
	return r, nil
}
