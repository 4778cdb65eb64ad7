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

// Package polling watches the PHY link of a WIZnet chip. The chip has no
// link change interrupt, so the status register is polled.
package polling

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soypat/lneto/phy"
)

// LinkSource is the PHY side the monitor polls. *wiznet.PHY implements it.
type LinkSource interface {
	// GetLink reads the link status and reports changes to the mediator
	GetLink() error
	// LinkMode returns the mode reported by the last GetLink
	LinkMode() phy.LinkMode
}

// Config holds the monitor timing
type Config struct {
	// PollInterval is the link check period
	PollInterval time.Duration
	// IdleInterval is used instead once the link has been down for IdleAfter
	IdleInterval time.Duration
	// IdleAfter is how long the link stays down before polling slows
	IdleAfter time.Duration
}

// DefaultConfig returns the default monitor timing
func DefaultConfig() *Config {
	return &Config{
		PollInterval: 2 * time.Second,
		IdleInterval: 5 * time.Second,
		IdleAfter:    30 * time.Second,
	}
}

// Metrics counts monitor activity
type Metrics struct {
	Polls       int64
	PollErrors  int64
	LinkUps     int64
	LinkDowns   int64
	LastLatency time.Duration
}

var (
	ErrMonitorRunning = errors.New("monitor is already running")
	ErrNilSource      = errors.New("link source cannot be nil")
)

// Monitor polls a LinkSource and calls back on link transitions
type Monitor struct {
	src    LinkSource
	config *Config
	logger *slog.Logger

	// OnLinkUp is called with the negotiated mode when the link comes up
	OnLinkUp func(mode phy.LinkMode)
	// OnLinkDown is called when the link goes down
	OnLinkDown func()

	now func() time.Time

	mu         sync.Mutex
	state      LinkState
	cancelFunc context.CancelFunc
	done       chan struct{}
	running    atomic.Bool

	polls       atomic.Int64
	pollErrors  atomic.Int64
	linkUps     atomic.Int64
	linkDowns   atomic.Int64
	lastLatency atomic.Int64
}

// NewMonitor creates a monitor for src. A nil config uses DefaultConfig.
func NewMonitor(src LinkSource, config *Config) (*Monitor, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	if config == nil {
		config = DefaultConfig()
	}
	return &Monitor{
		src:    src,
		config: config,
		logger: slog.Default().With("component", "link-monitor"),
		now:    time.Now,
	}, nil
}

// SetLogger replaces the monitor's logger
func (m *Monitor) SetLogger(l *slog.Logger) {
	if l != nil {
		m.logger = l
	}
}

// Start polls in a goroutine until ctx is cancelled or Stop is called
func (m *Monitor) Start(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrMonitorRunning
	}

	pollCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.mu.Lock()
	m.cancelFunc = cancel
	m.done = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		defer m.running.Store(false)
		m.run(pollCtx)
	}()
	return nil
}

// Stop ends polling and waits for the goroutine
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancelFunc, m.done
	m.cancelFunc, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// State returns a copy of the link state
func (m *Monitor) State() LinkState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Metrics returns the poll counters
func (m *Monitor) Metrics() Metrics {
	return Metrics{
		Polls:       m.polls.Load(),
		PollErrors:  m.pollErrors.Load(),
		LinkUps:     m.linkUps.Load(),
		LinkDowns:   m.linkDowns.Load(),
		LastLatency: time.Duration(m.lastLatency.Load()),
	}
}

// Interval returns the period the next poll waits for
func (m *Monitor) Interval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Phase == PhaseIdle {
		return m.config.IdleInterval
	}
	return m.config.PollInterval
}

func (m *Monitor) run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if err := m.Poll(); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Warn("link poll failed", slog.Any("error", err))
		}
		timer.Reset(m.Interval())
	}
}

// Poll checks the link once and runs the callbacks for a transition
func (m *Monitor) Poll() error {
	start := m.now()
	err := m.src.GetLink()
	m.polls.Add(1)
	m.lastLatency.Store(int64(m.now().Sub(start)))
	if err != nil {
		m.pollErrors.Add(1)
		return err
	}

	mode := m.src.LinkMode()
	now := m.now()

	m.mu.Lock()
	wasUp := m.state.Up()
	first := m.state.Phase == PhaseUnknown
	switch {
	case mode != phy.LinkDown && !wasUp:
		m.state.TransitionToUp(mode, now)
	case mode == phy.LinkDown && (wasUp || first):
		m.state.TransitionToDown(now)
	case mode == phy.LinkDown && m.state.DownFor(now) >= m.config.IdleAfter:
		m.state.TransitionToIdle()
	}
	up := m.state.Up()
	m.mu.Unlock()

	switch {
	case up && !wasUp:
		m.linkUps.Add(1)
		m.logger.Info("link up", slog.String("mode", ModeName(mode)))
		if m.OnLinkUp != nil {
			m.OnLinkUp(mode)
		}
	case !up && wasUp:
		m.linkDowns.Add(1)
		m.logger.Info("link down")
		if m.OnLinkDown != nil {
			m.OnLinkDown()
		}
	}
	return nil
}
