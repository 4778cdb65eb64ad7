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
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// RXMetrics tracks the receive goroutine
type RXMetrics struct {
	Wakeups   int64 // interrupt edges or poll ticks that were serviced
	Frames    int64 // frames handed to the mediator
	Bytes     int64 // payload bytes handed to the mediator
	Errors    int64 // bus and ring errors
	Truncated int64 // frames cut to the receive buffer
	Dropped   int64 // frames dropped for lack of memory or refused by the mediator
}

// rxScheduler waits for the chip to signal a received frame, either on the
// interrupt line or on a poll tick, and drains the ring into the mediator.
type rxScheduler struct {
	mac    *MAC
	ticker *time.Ticker

	mu       sync.Mutex
	stopChan chan struct{}
	done     chan struct{}

	wakeups   atomic.Int64
	frames    atomic.Int64
	bytes     atomic.Int64
	errors    atomic.Int64
	truncated atomic.Int64
	dropped   atomic.Int64
}

func newRXScheduler(m *MAC) *rxScheduler {
	s := &rxScheduler{mac: m}
	if !m.config.interruptMode() {
		s.ticker = time.NewTicker(m.config.PollPeriod)
		s.ticker.Stop()
	}
	return s
}

func (s *rxScheduler) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopChan != nil {
		return
	}
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(s.stopChan, s.done)
}

// stop ends the goroutine and waits for it. An interrupt wait in progress
// is released by halting the pin.
func (s *rxScheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopChan == nil {
		return
	}
	close(s.stopChan)
	if pin := s.mac.intPin; pin != nil {
		_ = pin.Halt()
	}
	<-s.done
	s.stopChan = nil
	s.done = nil
}

func (s *rxScheduler) close() {
	s.stop()
	if s.ticker != nil {
		s.ticker.Stop()
	}
}

func (s *rxScheduler) pauseTimer() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
}

func (s *rxScheduler) resumeTimer() {
	if s.ticker != nil {
		s.ticker.Reset(s.mac.config.PollPeriod)
	}
}

func (s *rxScheduler) loop(stopChan <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	if cpu := s.mac.config.RXTaskCPU; cpu >= 0 {
		if err := pinToCPU(cpu); err != nil {
			s.mac.warn("could not pin receive goroutine", slog.Int("cpu", cpu), slog.Any("error", err))
		}
	}

	for {
		if !s.wait(stopChan) {
			return
		}
		s.wakeups.Add(1)
		s.service()
	}
}

// wait blocks until there is something to service. It returns false once
// the scheduler is stopped.
func (s *rxScheduler) wait(stopChan <-chan struct{}) bool {
	pin := s.mac.intPin
	if pin == nil {
		select {
		case <-stopChan:
			return false
		case <-s.ticker.C:
			return true
		}
	}

	for {
		select {
		case <-stopChan:
			return false
		default:
		}
		if pin.WaitForEdge(s.mac.config.RXIdleTimeout) {
			return true
		}
		// an edge can be missed while the previous one is being serviced,
		// INTn stays asserted until the status is cleared
		select {
		case <-stopChan:
			return false
		default:
		}
		if pin.Read() == gpio.Low {
			return true
		}
	}
}

// service reads the socket status and, when a frame arrived, drains the ring
func (s *rxScheduler) service() {
	m := s.mac
	status, err := m.readReg(m.ops.SockIR)
	if err != nil {
		s.errors.Add(1)
		m.logerr("read socket interrupt status failed", slog.Any("error", err))
		return
	}
	if status&m.ops.SIRRecv == 0 {
		return
	}
	if err := m.writeReg(m.ops.SockIRClr, m.ops.SIRRecv); err != nil {
		s.errors.Add(1)
		m.logerr("clear receive status failed", slog.Any("error", err))
		return
	}

	for {
		buf, err := m.ReceiveFrame()
		switch {
		case err == nil && buf == nil:
		case errors.Is(err, ErrNoMem):
			s.dropped.Add(1)
		case errors.Is(err, ErrFrameTruncated):
			s.truncated.Add(1)
		case err != nil:
			s.errors.Add(1)
			m.logerr("receive frame failed", slog.Any("error", err))
		default:
			s.frames.Add(1)
			s.bytes.Add(int64(len(buf)))
			s.deliver(buf)
		}
		if !m.PacketsRemain() {
			return
		}
	}
}

func (s *rxScheduler) deliver(buf []byte) {
	m := s.mac
	m.mu.Lock()
	med := m.mediator
	m.mu.Unlock()
	if med == nil {
		s.dropped.Add(1)
		return
	}
	if err := med.StackInput(buf); err != nil {
		s.dropped.Add(1)
		m.warn("stack input refused frame", slog.Any("error", err))
	}
}

func (s *rxScheduler) metrics() RXMetrics {
	return RXMetrics{
		Wakeups:   s.wakeups.Load(),
		Frames:    s.frames.Load(),
		Bytes:     s.bytes.Load(),
		Errors:    s.errors.Load(),
		Truncated: s.truncated.Load(),
		Dropped:   s.dropped.Load(),
	}
}
