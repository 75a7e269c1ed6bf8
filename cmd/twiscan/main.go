// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// twiscan bit-bangs an I²C bus on two GPIOs with the USI two-wire driver and
// scans it for devices. It can also read registers of one of them or dump an
// EEPROM.
package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/twi/usi"
	"github.com/GermanBionicSystems/twi/usitwi"
)

// checkArgs validates the numeric flags. addr is -1 when scanning.
func checkArgs(addr, reg, n int) error {
	if addr < -1 || addr > 0x7F {
		return errors.New("-addr must be a 7-bit address")
	}
	if reg < 0 || reg > 0xFF {
		return errors.New("-reg must fit in a byte")
	}
	if n < 1 {
		return errors.New("-n must be at least 1")
	}
	return nil
}

func mainImpl() error {
	sclName := flag.String("scl", "GPIO17", "GPIO used as SCL")
	sdaName := flag.String("sda", "GPIO27", "GPIO used as SDA")
	speed := usitwi.StandardSpeed
	flag.Var(&speed, "speed", "SCL frequency")
	timeout := flag.Duration("timeout", 10*time.Millisecond, "how long a target may hold SCL low")
	addr := flag.Int("addr", -1, "read registers of this 7-bit address instead of scanning")
	reg := flag.Int("reg", 0, "first register to read")
	n := flag.Int("n", 1, "number of bytes to read")
	eeprom := flag.Bool("eeprom", false, "dump -n bytes of a 24C32 or larger EEPROM at -addr, from -offset")
	offset := flag.Int("offset", 0, "first byte of the EEPROM dump")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(io.Discard)
	}
	log.SetFlags(log.Lmicroseconds)
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}
	if err := checkArgs(*addr, *reg, *n); err != nil {
		return err
	}

	if _, err := host.Init(); err != nil {
		return err
	}
	scl := gpioreg.ByName(*sclName)
	if scl == nil {
		return fmt.Errorf("no GPIO named %q", *sclName)
	}
	sda := gpioreg.ByName(*sdaName)
	if sda == nil {
		return fmt.Errorf("no GPIO named %q", *sdaName)
	}
	hw, err := usi.NewSoft(scl, sda)
	if err != nil {
		return err
	}
	defer hw.Halt()
	b, err := usitwi.Open(hw, &usitwi.Opts{Speed: speed, Wait: usitwi.Bounded{Timeout: *timeout}})
	if err != nil {
		return err
	}
	defer b.Close()
	log.Printf("%s: %s", b, b.Dev().Timing())

	if *eeprom {
		if *addr < 0 {
			return errors.New("-eeprom requires -addr")
		}
		p, err := dumpEEPROM(b, uint16(*addr), *offset, *n)
		if err != nil {
			return err
		}
		fmt.Print(hex.Dump(p))
		return nil
	}
	if *addr < 0 {
		found, err := scan(b, os.Stdout)
		log.Printf("found %d devices", len(found))
		return err
	}
	r, err := readRegs(b, uint16(*addr), byte(*reg), *n)
	if err != nil {
		return err
	}
	fmt.Printf("%#02x @ %#02x: % x\n", *addr, *reg, r)
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "twiscan: %s.\n", err)
		os.Exit(1)
	}
}
