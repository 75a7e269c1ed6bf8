// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package twi is a container for a bit-banged I²C master built on the AVR
// USI peripheral, and the tools to test it without hardware.
//
// usi models the peripheral, usitwi is the driver, usitwi/usitwitest
// simulates a bus with targets, twitrace decodes and checks what was on the
// wires and waveform draws it.
package twi
