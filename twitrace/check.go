// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twitrace

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Limits are minimum durations from the I²C specification, table 10.
type Limits struct {
	Low        time.Duration // tLOW
	High       time.Duration // tHIGH
	SetupStart time.Duration // tSU;STA, for a repeated start
	HoldStart  time.Duration // tHD;STA
	SetupStop  time.Duration // tSU;STO
	BusFree    time.Duration // tBUF
}

// StandardMode is up to 100kHz.
var StandardMode = Limits{
	Low:        4700 * time.Nanosecond,
	High:       4000 * time.Nanosecond,
	SetupStart: 4700 * time.Nanosecond,
	HoldStart:  4000 * time.Nanosecond,
	SetupStop:  4000 * time.Nanosecond,
	BusFree:    4700 * time.Nanosecond,
}

// FastMode is up to 400kHz.
var FastMode = Limits{
	Low:        1300 * time.Nanosecond,
	High:       600 * time.Nanosecond,
	SetupStart: 600 * time.Nanosecond,
	HoldStart:  600 * time.Nanosecond,
	SetupStop:  600 * time.Nanosecond,
	BusFree:    1300 * time.Nanosecond,
}

// Violation is a period shorter than its limit.
type Violation struct {
	At    time.Duration
	Param string
	Got   time.Duration
	Min   time.Duration
}

func (v Violation) String() string {
	return fmt.Sprintf("%s at %s: %s < %s", v.Param, v.At, v.Got, v.Min)
}

// Check returns every timing violation in samples. Periods that started
// before the first sample are not checked.
func Check(samples []Sample, l Limits) []Violation {
	var out []Violation
	check := func(at time.Duration, param string, got, limit time.Duration) {
		if got < limit {
			out = append(out, Violation{At: at, Param: param, Got: got, Min: limit})
		}
	}
	var rise, fall, start, stop time.Duration
	haveRise, haveFall, haveStart, haveStop := false, false, false, false
	inTx := false
	for i := 1; i < len(samples); i++ {
		p, c := samples[i-1], samples[i]
		switch {
		case p.SCL == gpio.High && c.SCL == gpio.Low:
			if haveRise {
				check(c.At, "tHIGH", c.At-rise, l.High)
			}
			if haveStart && (!haveRise || start >= rise) {
				check(c.At, "tHD;STA", c.At-start, l.HoldStart)
			}
			fall, haveFall = c.At, true
		case p.SCL == gpio.Low && c.SCL == gpio.High:
			if haveFall {
				check(c.At, "tLOW", c.At-fall, l.Low)
			}
			rise, haveRise = c.At, true
		case c.SCL == gpio.High && p.SDA == gpio.High && c.SDA == gpio.Low:
			if inTx && haveRise {
				check(c.At, "tSU;STA", c.At-rise, l.SetupStart)
			}
			if !inTx && haveStop {
				check(c.At, "tBUF", c.At-stop, l.BusFree)
			}
			start, haveStart = c.At, true
			inTx = true
		case c.SCL == gpio.High && p.SDA == gpio.Low && c.SDA == gpio.High:
			if haveRise {
				check(c.At, "tSU;STO", c.At-rise, l.SetupStop)
			}
			stop, haveStop = c.At, true
			inTx = false
		}
	}
	return out
}
