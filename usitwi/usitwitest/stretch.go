// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usitwitest

import "periph.io/x/conn/v3/gpio"

// Stretcher is a target that holds SCL low after every falling edge until the
// line has been read Polls times, like a slow target stretching the clock.
type Stretcher struct {
	Polls int

	// Stretched counts the low phases the target held.
	Stretched int

	left int
}

// Edge implements Target.
func (s *Stretcher) Edge(b *Bus, l *Line, level gpio.Level) {
	if l != b.SCL() || level != gpio.Low || s.left > 0 || s.Polls <= 0 {
		return
	}
	s.left = s.Polls
	s.Stretched++
	l.Hold(s)
}

// Poll implements Poller.
func (s *Stretcher) Poll(b *Bus, l *Line) {
	if l != b.SCL() || s.left == 0 {
		return
	}
	s.left--
	if s.left == 0 {
		l.Release(s)
	}
}

// Stuck holds l low forever, like a target that crashed mid-transfer.
func Stuck(l *Line) {
	l.Hold(stuck{})
}

// Unstick undoes Stuck.
func Unstick(l *Line) {
	l.Release(stuck{})
}

type stuck struct{}

var _ Target = &Stretcher{}
var _ Poller = &Stretcher{}
