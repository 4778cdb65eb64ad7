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

package wiznet

import (
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// InterruptPin is the input wired to the chip's active-low INTn line.
// Any periph gpio.PinIn satisfies it.
type InterruptPin interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	Read() gpio.Level
	WaitForEdge(timeout time.Duration) bool
	Halt() error
	String() string
}

// MACConfig holds the construction time settings of a MAC.
// Exactly one wakeup source must be configured: an interrupt line
// (IntGPIO >= 0 or IntPin set) or a poll period.
type MACConfig struct {
	// IntPin overrides IntGPIO with an already opened pin
	IntPin InterruptPin
	// Allocator returns the buffer a received frame is copied into. A nil
	// result drops the frame.
	Allocator func(n int) []byte
	// IntGPIO is the interrupt line number as known to gpioreg, negative for polling
	IntGPIO int
	// PollPeriod is the RX poll interval when no interrupt line is used
	PollPeriod time.Duration
	// SWResetTimeout bounds the software reset and identity checks
	SWResetTimeout time.Duration
	// RXIdleTimeout bounds each wait for an interrupt edge before the line
	// level is checked again
	RXIdleTimeout time.Duration
	// TXTimeout100M and TXTimeout10M bound the wait for send completion
	TXTimeout100M time.Duration
	TXTimeout10M  time.Duration
	// RXTaskCPU pins the receive goroutine's thread to a CPU, -1 to disable
	RXTaskCPU int
}

// DefaultMACConfig returns the default MAC configuration. Neither wakeup
// source is set; callers choose one.
func DefaultMACConfig() *MACConfig {
	return &MACConfig{
		IntGPIO:        -1,
		PollPeriod:     0,
		SWResetTimeout: 100 * time.Millisecond,
		RXIdleTimeout:  time.Second,
		TXTimeout100M:  200 * time.Microsecond,
		TXTimeout10M:   1500 * time.Microsecond,
		RXTaskCPU:      -1,
		Allocator:      func(n int) []byte { return make([]byte, n) },
	}
}

func (c *MACConfig) interruptMode() bool {
	return c.IntGPIO >= 0 || c.IntPin != nil
}

func (c *MACConfig) validate() error {
	if c.interruptMode() == (c.PollPeriod > 0) {
		return fmt.Errorf("%w: exactly one of interrupt GPIO and poll period must be set (gpio %d, poll %s)",
			ErrInvalidConfig, c.IntGPIO, c.PollPeriod)
	}
	if c.SWResetTimeout <= 0 {
		return fmt.Errorf("%w: reset timeout must be positive", ErrInvalidConfig)
	}
	if c.Allocator == nil {
		return fmt.Errorf("%w: allocator not set", ErrInvalidConfig)
	}
	return nil
}

// MACOption is a functional option for configuring a MAC
type MACOption func(*MAC) error

// WithMACConfig replaces the whole configuration. Later options still apply.
func WithMACConfig(cfg *MACConfig) MACOption {
	return func(m *MAC) error {
		if cfg == nil {
			return fmt.Errorf("%w: nil MAC config", ErrInvalidConfig)
		}
		c := *cfg
		m.config = &c
		return nil
	}
}

// WithInterruptGPIO selects interrupt driven receive on the given GPIO number
func WithInterruptGPIO(n int) MACOption {
	return func(m *MAC) error {
		m.config.IntGPIO = n
		return nil
	}
}

// WithInterruptPin selects interrupt driven receive on an opened pin
func WithInterruptPin(pin InterruptPin) MACOption {
	return func(m *MAC) error {
		m.config.IntPin = pin
		return nil
	}
}

// WithPollPeriod selects timer driven receive
func WithPollPeriod(period time.Duration) MACOption {
	return func(m *MAC) error {
		m.config.PollPeriod = period
		return nil
	}
}

// WithResetTimeout sets the bound of the reset and identity checks
func WithResetTimeout(timeout time.Duration) MACOption {
	return func(m *MAC) error {
		m.config.SWResetTimeout = timeout
		return nil
	}
}

// WithTXTimeouts sets the send completion bounds for 100 and 10 Mbit/s
func WithTXTimeouts(at100M, at10M time.Duration) MACOption {
	return func(m *MAC) error {
		if at100M <= 0 || at10M <= 0 {
			return fmt.Errorf("%w: TX timeouts must be positive", ErrInvalidConfig)
		}
		m.config.TXTimeout100M = at100M
		m.config.TXTimeout10M = at10M
		return nil
	}
}

// WithAllocator sets the receive buffer allocator
func WithAllocator(alloc func(n int) []byte) MACOption {
	return func(m *MAC) error {
		m.config.Allocator = alloc
		return nil
	}
}

// WithRXTaskCPU pins the receive goroutine to cpu
func WithRXTaskCPU(cpu int) MACOption {
	return func(m *MAC) error {
		m.config.RXTaskCPU = cpu
		return nil
	}
}

// WithLogger sets the logger of the MAC
func WithLogger(l *slog.Logger) MACOption {
	return func(m *MAC) error {
		m.logger = l
		return nil
	}
}
