// go-wiznet
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-wiznet.
//
// go-wiznet is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-wiznet is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-wiznet; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package retry provides the bounded poll loops used to wait on chip registers
package retry

import (
	"errors"
	"time"
)

// Operation represents a single poll attempt
// Returns: data, done, error
// - data: the value observed by this attempt
// - done: true once the awaited condition holds
// - error: any bus error, which stops polling immediately
type Operation[T any] func() (T, bool, error)

var (
	// ErrTimeout is returned when the condition did not hold before the deadline
	ErrTimeout = errors.New("poll timeout")
	// ErrUnstable is returned when consecutive reads never agreed
	ErrUnstable = errors.New("value did not settle")
)

// Poll runs op until it reports done, sleeping interval between attempts.
// The loop is bounded by elapsed time, not by attempt count. At least one
// attempt is always made. On timeout the last observed value is returned
// together with ErrTimeout so callers can report what they saw.
func Poll[T any](timeout, interval time.Duration, op Operation[T]) (T, error) {
	deadline := time.Now().Add(timeout)

	for {
		result, done, err := op()
		if err != nil {
			return result, err
		}
		if done {
			return result, nil
		}
		if !time.Now().Before(deadline) {
			return result, ErrTimeout
		}
		if interval > 0 {
			time.Sleep(interval)
		}
	}
}

// Stable reads a value until two consecutive reads agree and returns the
// agreed value. A counter updated by the chip mid-read can tear, so a single
// read is never trusted. At most maxReads reads are made.
func Stable[T comparable](maxReads int, read func() (T, error)) (T, error) {
	var zero T
	if maxReads < 2 {
		maxReads = 2
	}

	prev, err := read()
	if err != nil {
		return zero, err
	}
	for i := 1; i < maxReads; i++ {
		cur, err := read()
		if err != nil {
			return zero, err
		}
		if cur == prev {
			return cur, nil
		}
		prev = cur
	}
	return zero, ErrUnstable
}
