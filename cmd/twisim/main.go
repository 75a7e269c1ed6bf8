// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// twisim runs the USI two-wire driver against a simulated EEPROM and shows
// what a logic analyzer would see.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/twi/twitrace"
	"github.com/GermanBionicSystems/twi/usitwi"
	"github.com/GermanBionicSystems/twi/usitwi/usitwitest"
	"github.com/GermanBionicSystems/twi/waveform"
)

func mainImpl() error {
	cpu := physic.MegaHertz
	speed := usitwi.StandardSpeed
	flag.Var(&cpu, "cpu", "CPU clock the delays are counted in")
	flag.Var(&speed, "speed", "SCL frequency")
	addr := flag.Int("addr", 0x50, "7-bit address of the simulated EEPROM")
	reg := flag.Int("reg", 0x10, "register to write then read back")
	value := flag.Int("value", 0x42, "value to write")
	n := flag.Int("n", 10, "number of bytes of the multi register read")
	stretch := flag.Int("stretch", 0, "make the target stretch every clock low phase for this many polls")
	wave := flag.Bool("wave", true, "print the waveform of every transaction")
	stepD := flag.Duration("step", time.Microsecond, "time covered by one waveform column")
	pngPath := flag.String("png", "", "write the waveform of the whole session to this PNG file")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(io.Discard)
	}
	log.SetFlags(log.Lmicroseconds)
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}
	if *addr < 0 || *addr > 0x7F {
		return errors.New("-addr must be a 7-bit address")
	}
	if *reg < 0 || *reg > 0xFF || *value < 0 || *value > 0xFF {
		return errors.New("-reg and -value must fit in a byte")
	}
	if *n < 1 {
		return errors.New("-n must be at least 1")
	}

	bus := usitwitest.NewBus()
	mem := &usitwitest.Memory{Addr: uint16(*addr)}
	for i := range mem.Data {
		mem.Data[i] = byte(0xFF - i)
	}
	bus.Attach(mem)
	if *stretch > 0 {
		bus.Attach(&usitwitest.Stretcher{Polls: *stretch})
	}
	hw, err := bus.NewSoft()
	if err != nil {
		return err
	}
	dev, err := usitwi.New(hw, &usitwi.Opts{
		CPU:   cpu,
		Speed: speed,
		Delay: bus.Sleep,
		Wait:  usitwi.Bounded{Polls: 10 * (*stretch + 1)},
	})
	if err != nil {
		return err
	}
	defer dev.Close()
	if err := dev.Init(); err != nil {
		return err
	}
	log.Printf("%s on %s: %s", dev, hw, dev.Timing())

	d := &demo{
		bus:    bus,
		dev:    dev,
		limits: twitrace.StandardMode,
		addr:   byte(*addr),
		reg:    byte(*reg),
		value:  byte(*value),
		n:      *n,
	}
	if speed > usitwi.StandardSpeed {
		d.limits = twitrace.FastMode
	}
	opts := waveform.DefaultOpts
	opts.Step = *stepD
	if *wave {
		d.term = waveform.NewTerm(nil, &opts)
		defer d.term.Halt()
	}
	if err := d.run(os.Stdout); err != nil {
		return err
	}
	if *pngPath != "" {
		f, err := os.Create(*pngPath)
		if err != nil {
			return err
		}
		if err := waveform.WritePNG(f, &d.full, &opts); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "twisim: %s.\n", err)
		os.Exit(1)
	}
}
