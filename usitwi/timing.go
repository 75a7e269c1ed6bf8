// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usitwi

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"
)

// Minimum SCL low and high periods from the I²C specification.
const (
	standardLow  = 4700 * time.Nanosecond
	standardHigh = 4000 * time.Nanosecond
	fastLow      = 1300 * time.Nanosecond
	fastHigh     = 600 * time.Nanosecond
)

// Supported bus speeds.
const (
	MinSpeed      = physic.KiloHertz
	StandardSpeed = 100 * physic.KiloHertz
	FastSpeed     = 400 * physic.KiloHertz
)

// Timing holds the two delays the driver inserts around every clock edge.
//
// They are computed once for a CPU clock and do not adjust themselves: a
// different CPU clock needs a new Timing.
type Timing struct {
	// Low is waited after SCL falls and before it rises again; >4.7µs in
	// standard mode.
	Low time.Duration
	// High is waited after SCL is observed high and before it falls; >4.0µs
	// in standard mode.
	High time.Duration
}

// NewTiming returns the delays for a CPU clocked at cpu driving the bus at
// speed.
//
// Each delay is counted in CPU cycles as floor(cpu×minimum)+1, which always
// exceeds the minimum. At 1MHz and 100kHz this gives 5 cycles for both, at
// 8MHz 38 and 33 cycles.
//
// Up to 100kHz the standard mode minima apply, below it the delays are
// stretched to half a clock period. Up to 400kHz the fast mode minima apply.
// speed is not validated here; Dev.SetSpeed rejects values outside
// [MinSpeed, FastSpeed].
func NewTiming(cpu, speed physic.Frequency) Timing {
	low, high := standardLow, standardHigh
	if speed > StandardSpeed {
		low, high = fastLow, fastHigh
	} else if speed > 0 && speed < StandardSpeed {
		half := speed.Period() / 2
		if half > low {
			low = half
		}
		if half > high {
			high = half
		}
	}
	return Timing{Low: cycles(cpu, low), High: cycles(cpu, high)}
}

// cycles rounds d up to a whole number of CPU cycles the way a cycle counted
// delay loop does.
func cycles(cpu physic.Frequency, d time.Duration) time.Duration {
	hz := int64(cpu / physic.Hertz)
	if hz <= 0 {
		return d
	}
	n := hz*int64(d)/int64(time.Second) + 1
	return time.Duration(n * int64(time.Second) / hz)
}

func (t Timing) String() string {
	return fmt.Sprintf("Timing{Low: %s, High: %s}", t.Low, t.High)
}

func checkSpeed(f physic.Frequency) error {
	if f > FastSpeed {
		return fmt.Errorf("usitwi: invalid speed %s; maximum supported clock is %s", f, FastSpeed)
	}
	if f < MinSpeed {
		return fmt.Errorf("usitwi: invalid speed %s; minimum supported clock is %s; did you forget to multiply by physic.KiloHertz?", f, MinSpeed)
	}
	return nil
}
