// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usitwi

import (
	"sync"
	"time"
)

// Waiter blocks until a bus condition holds.
//
// The driver waits for SCL to read high after every release of the clock
// line. This is where a stuck bus, a missing pull-up or a target stretching
// the clock shows up.
type Waiter interface {
	WaitUntil(cond func() bool) error
}

// Spin polls cond until it is true. It never gives up: a clock line held low
// forever blocks the caller forever. This is the default.
type Spin struct{}

// WaitUntil implements Waiter.
func (Spin) WaitUntil(cond func() bool) error {
	for !cond() {
	}
	return nil
}

// Bounded polls cond at most Polls times or for at most Timeout, whichever
// comes first, and returns ErrBusTimeout when it gives up. A zero field is no
// limit; the zero value behaves like Spin.
//
// Using Bounded changes the failure mode of the driver from a hang to an
// error.
type Bounded struct {
	Polls   int
	Timeout time.Duration
}

// WaitUntil implements Waiter.
func (b Bounded) WaitUntil(cond func() bool) error {
	var end time.Time
	if b.Timeout > 0 {
		end = time.Now().Add(b.Timeout)
	}
	for i := 1; ; i++ {
		if cond() {
			return nil
		}
		if b.Polls > 0 && i >= b.Polls {
			return ErrBusTimeout
		}
		if b.Timeout > 0 && !time.Now().Before(end) {
			return ErrBusTimeout
		}
	}
}

// nopLocker is the guard used when the platform has nothing to mask.
type nopLocker struct{}

func (nopLocker) Lock()   {}
func (nopLocker) Unlock() {}

var _ Waiter = Spin{}
var _ Waiter = Bounded{}
var _ sync.Locker = nopLocker{}
