// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package twitrace records the two lines of an I²C bus and analyzes the
// recording like a logic analyzer would: Decode turns it into start, stop and
// byte events, Check verifies the minimum periods of the I²C specification.
//
// # Specification
//
// https://www.nxp.com/docs/en/user-guide/UM10204.pdf
package twitrace
