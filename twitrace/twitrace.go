// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twitrace

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Sample is the state of both lines from At until the next sample.
type Sample struct {
	At  time.Duration
	SCL gpio.Level
	SDA gpio.Level
}

func (s Sample) String() string {
	return fmt.Sprintf("%s SCL=%s SDA=%s", s.At, s.SCL, s.SDA)
}

// Trace is a recording of the two lines. Only changes are kept.
type Trace struct {
	Samples []Sample
}

// Add records the levels at time at, if they differ from the last sample.
func (t *Trace) Add(at time.Duration, scl, sda gpio.Level) {
	if n := len(t.Samples); n != 0 {
		last := t.Samples[n-1]
		if last.SCL == scl && last.SDA == sda {
			return
		}
	}
	t.Samples = append(t.Samples, Sample{At: at, SCL: scl, SDA: sda})
}

// Reset drops all samples.
func (t *Trace) Reset() {
	t.Samples = t.Samples[:0]
}

// Start returns the time of the first sample.
func (t *Trace) Start() time.Duration {
	if len(t.Samples) == 0 {
		return 0
	}
	return t.Samples[0].At
}

// End returns the time of the last sample.
func (t *Trace) End() time.Duration {
	if len(t.Samples) == 0 {
		return 0
	}
	return t.Samples[len(t.Samples)-1].At
}

// Levels returns the levels of both lines at time at. Before the first sample
// the bus is idle.
func (t *Trace) Levels(at time.Duration) (scl, sda gpio.Level) {
	i := sort.Search(len(t.Samples), func(i int) bool { return t.Samples[i].At > at })
	if i == 0 {
		return gpio.High, gpio.High
	}
	s := t.Samples[i-1]
	return s.SCL, s.SDA
}

// Events decodes the trace.
func (t *Trace) Events() []Event {
	return Decode(t.Samples)
}

// Kind is the kind of a decoded Event.
type Kind uint8

const (
	Start Kind = iota
	Restart
	Stop
	Byte
)

func (k Kind) String() string {
	switch k {
	case Start:
		return "S"
	case Restart:
		return "Sr"
	case Stop:
		return "P"
	case Byte:
		return "Byte"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Event is a protocol element found on the bus.
type Event struct {
	Kind Kind
	At   time.Duration
	// Value and Ack are only meaningful for Byte. Ack is true when the ninth
	// bit was low.
	Value byte
	Ack   bool
}

// String returns the usual bus analyzer notation: S, Sr and P for the
// conditions, the byte in hex followed by + for ACK or - for NACK.
func (e Event) String() string {
	if e.Kind != Byte {
		return e.Kind.String()
	}
	if e.Ack {
		return fmt.Sprintf("%02X+", e.Value)
	}
	return fmt.Sprintf("%02X-", e.Value)
}

// Format joins events with spaces.
func Format(events []Event) string {
	s := make([]string, 0, len(events))
	for _, e := range events {
		s = append(s, e.String())
	}
	return strings.Join(s, " ")
}

// Decode finds the start and stop conditions and the bytes with their
// acknowledge bit in samples. Data bits are taken on SCL rising edges; bits
// outside a transaction are ignored.
func Decode(samples []Sample) []Event {
	var events []Event
	inTx := false
	bits, n := 0, 0
	for i := 1; i < len(samples); i++ {
		p, c := samples[i-1], samples[i]
		switch {
		case p.SCL == gpio.High && c.SCL == gpio.High && p.SDA != c.SDA:
			if c.SDA == gpio.Low {
				k := Start
				if inTx {
					k = Restart
				}
				events = append(events, Event{Kind: k, At: c.At})
				inTx = true
			} else {
				events = append(events, Event{Kind: Stop, At: c.At})
				inTx = false
			}
			bits, n = 0, 0
		case p.SCL == gpio.Low && c.SCL == gpio.High:
			if !inTx {
				continue
			}
			bits <<= 1
			if c.SDA == gpio.High {
				bits |= 1
			}
			if n++; n == 9 {
				events = append(events, Event{Kind: Byte, At: c.At, Value: byte(bits >> 1), Ack: bits&1 == 0})
				bits, n = 0, 0
			}
		}
	}
	return events
}
