// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usitwi

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/GermanBionicSystems/twi/usi"
)

// owners tracks the hardware currently driven by a Dev. The registers and the
// two lines are process wide resources; two drivers on the same peripheral
// would corrupt each other's transactions.
var owners = struct {
	mu sync.Mutex
	m  map[usi.Hardware]struct{}
}{m: map[usi.Hardware]struct{}{}}

func claim(hw usi.Hardware) error {
	if !reflect.TypeOf(hw).Comparable() {
		// Can't be used as a key; ownership is then the caller's business.
		return nil
	}
	owners.mu.Lock()
	defer owners.mu.Unlock()
	if _, ok := owners.m[hw]; ok {
		return fmt.Errorf("usitwi: %v: %w", hw, ErrBusy)
	}
	owners.m[hw] = struct{}{}
	return nil
}

func release(hw usi.Hardware) {
	if !reflect.TypeOf(hw).Comparable() {
		return
	}
	owners.mu.Lock()
	delete(owners.m, hw)
	owners.mu.Unlock()
}
