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

// Package eth binds one WIZnet MAC and its PHY into a running Ethernet
// interface. Driver is the mediator both halves report to: link changes
// reconfigure the MAC and received frames go to a handler.
package eth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	wiznet "github.com/ZaparooProject/go-wiznet"
	"github.com/ZaparooProject/go-wiznet/polling"
	"github.com/soypat/lneto/phy"
)

var (
	ErrAlreadyStarted = errors.New("driver already started")
	ErrNotStarted     = errors.New("driver not started")
)

// FrameHandler receives a frame and owns it afterwards
type FrameHandler func(frame []byte) error

// LinkHandler is called after the MAC has followed a link change
type LinkHandler func(link wiznet.Link, mode phy.LinkMode)

// Stats counts frames passing through the driver
type Stats struct {
	RXFrames  int64
	RXDropped int64
	TXFrames  int64
	TXErrors  int64
}

// Option configures a Driver
type Option func(*Driver) error

// WithFrameHandler sets the handler for received frames
func WithFrameHandler(fn FrameHandler) Option {
	return func(d *Driver) error {
		d.onFrame = fn
		return nil
	}
}

// WithLinkHandler sets the handler for link changes
func WithLinkHandler(fn LinkHandler) Option {
	return func(d *Driver) error {
		d.onLink = fn
		return nil
	}
}

// WithMonitorConfig sets the link poll timing
func WithMonitorConfig(cfg *polling.Config) Option {
	return func(d *Driver) error {
		if cfg == nil {
			return fmt.Errorf("%w: nil monitor config", wiznet.ErrInvalidConfig)
		}
		d.monitorConfig = cfg
		return nil
	}
}

// WithHardwareAddr programs addr into the MAC on Start
func WithHardwareAddr(addr [6]byte) Option {
	return func(d *Driver) error {
		d.hwAddr = &addr
		return nil
	}
}

// WithLogger sets the driver's logger
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) error {
		d.logger = l
		return nil
	}
}

// Driver implements wiznet.Mediator for one MAC and PHY pair
type Driver struct {
	mac           *wiznet.MAC
	phy           *wiznet.PHY
	monitor       *polling.Monitor
	monitorConfig *polling.Config
	logger        *slog.Logger
	hwAddr        *[6]byte
	onFrame       FrameHandler
	onLink        LinkHandler

	lifeMu  sync.Mutex
	started bool

	// mu guards the negotiated mode reported while the monitor runs
	mu     sync.Mutex
	speed  wiznet.Speed
	duplex wiznet.Duplex

	rxFrames  atomic.Int64
	rxDropped atomic.Int64
	txFrames  atomic.Int64
	txErrors  atomic.Int64
}

// New attaches a driver to mac and p. Neither is initialized until Start.
func New(mac *wiznet.MAC, p *wiznet.PHY, opts ...Option) (*Driver, error) {
	if mac == nil || p == nil {
		return nil, fmt.Errorf("%w: MAC and PHY are required", wiznet.ErrInvalidArgument)
	}
	d := &Driver{
		mac:           mac,
		phy:           p,
		monitorConfig: polling.DefaultConfig(),
		speed:         wiznet.Speed100M,
		duplex:        wiznet.DuplexFull,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	d.logger = d.logger.With("component", "eth", "chip", mac.Chip().Name)

	monitor, err := polling.NewMonitor(p, d.monitorConfig)
	if err != nil {
		return nil, fmt.Errorf("create link monitor: %w", err)
	}
	monitor.SetLogger(d.logger)
	d.monitor = monitor

	if err := mac.SetMediator(d); err != nil {
		return nil, fmt.Errorf("attach MAC: %w", err)
	}
	if err := p.SetMediator(d); err != nil {
		return nil, fmt.Errorf("attach PHY: %w", err)
	}
	return d, nil
}

// Start resets and initializes the chip, then polls the link until Stop
func (d *Driver) Start(ctx context.Context) error {
	d.lifeMu.Lock()
	defer d.lifeMu.Unlock()
	if d.started {
		return ErrAlreadyStarted
	}

	if err := d.phy.ResetHW(); err != nil {
		return fmt.Errorf("hardware reset: %w", err)
	}
	if err := d.mac.Init(); err != nil {
		return fmt.Errorf("init MAC: %w", err)
	}
	if err := d.phy.Init(); err != nil {
		d.deinitMAC()
		return fmt.Errorf("init PHY: %w", err)
	}
	if d.hwAddr != nil {
		if err := d.mac.SetAddr(*d.hwAddr); err != nil {
			d.deinitMAC()
			return fmt.Errorf("set hardware address: %w", err)
		}
	}
	if err := d.monitor.Start(ctx); err != nil {
		d.deinitMAC()
		return fmt.Errorf("start link monitor: %w", err)
	}
	d.started = true
	d.logger.Info("ethernet started")
	return nil
}

// Stop halts link polling, reports the link down and powers the chip down
func (d *Driver) Stop() error {
	d.lifeMu.Lock()
	defer d.lifeMu.Unlock()
	if !d.started {
		return ErrNotStarted
	}
	d.started = false
	d.monitor.Stop()

	var errs []error
	if err := d.phy.SetLink(wiznet.LinkDown); err != nil {
		errs = append(errs, fmt.Errorf("link down: %w", err))
	}
	if err := d.phy.Deinit(); err != nil {
		errs = append(errs, fmt.Errorf("deinit PHY: %w", err))
	}
	if err := d.mac.Deinit(); err != nil {
		errs = append(errs, fmt.Errorf("deinit MAC: %w", err))
	}
	d.logger.Info("ethernet stopped")
	return errors.Join(errs...)
}

// Close stops the driver if needed and releases the transport
func (d *Driver) Close() error {
	if err := d.Stop(); err != nil && !errors.Is(err, ErrNotStarted) {
		d.logger.Warn("stop during close failed", slog.Any("error", err))
	}
	return d.mac.Close()
}

// Transmit sends one frame
func (d *Driver) Transmit(frame []byte) error {
	if err := d.mac.Transmit(frame); err != nil {
		d.txErrors.Add(1)
		return err
	}
	d.txFrames.Add(1)
	return nil
}

// HardwareAddr reads the MAC address from the chip
func (d *Driver) HardwareAddr() ([6]byte, error) {
	return d.mac.Addr()
}

// LinkMode returns the current link mode, phy.LinkDown while down
func (d *Driver) LinkMode() phy.LinkMode {
	return d.phy.LinkMode()
}

// Monitor returns the link monitor
func (d *Driver) Monitor() *polling.Monitor {
	return d.monitor
}

// Stats returns the frame counters
func (d *Driver) Stats() Stats {
	return Stats{
		RXFrames:  d.rxFrames.Load(),
		RXDropped: d.rxDropped.Load(),
		TXFrames:  d.txFrames.Load(),
		TXErrors:  d.txErrors.Load(),
	}
}

// OnStateChanged implements wiznet.Mediator
func (d *Driver) OnStateChanged(state wiznet.State, arg any) error {
	switch state {
	case wiznet.StateLLInit, wiznet.StateDeinit:
		d.logger.Debug("mac state", slog.String("state", state.String()))
		return nil
	case wiznet.StateSpeed:
		speed, ok := arg.(wiznet.Speed)
		if !ok {
			return argError(state, arg)
		}
		if err := d.mac.SetSpeed(speed); err != nil {
			return err
		}
		d.mu.Lock()
		d.speed = speed
		d.mu.Unlock()
		return nil
	case wiznet.StateDuplex:
		duplex, ok := arg.(wiznet.Duplex)
		if !ok {
			return argError(state, arg)
		}
		if err := d.mac.SetDuplex(duplex); err != nil {
			return err
		}
		d.mu.Lock()
		d.duplex = duplex
		d.mu.Unlock()
		return nil
	case wiznet.StateLink:
		link, ok := arg.(wiznet.Link)
		if !ok {
			return argError(state, arg)
		}
		return d.linkChanged(link)
	case wiznet.StatePause:
		ability, ok := arg.(uint32)
		if !ok {
			return argError(state, arg)
		}
		return d.mac.SetPeerPauseAbility(ability)
	default:
		return fmt.Errorf("%w: state %s", wiznet.ErrInvalidArgument, state)
	}
}

func (d *Driver) linkChanged(link wiznet.Link) error {
	if err := d.mac.SetLink(link); err != nil {
		return fmt.Errorf("MAC follow link %s: %w", link, err)
	}
	mode := phy.LinkDown
	if link == wiznet.LinkUp {
		d.mu.Lock()
		mode = wiznet.LinkMode(d.speed, d.duplex)
		d.mu.Unlock()
	}
	d.logger.Info("link changed", slog.String("link", link.String()), slog.String("mode", polling.ModeName(mode)))
	if d.onLink != nil {
		d.onLink(link, mode)
	}
	return nil
}

// StackInput implements wiznet.Mediator
func (d *Driver) StackInput(frame []byte) error {
	if d.onFrame == nil {
		d.rxDropped.Add(1)
		return nil
	}
	if err := d.onFrame(frame); err != nil {
		d.rxDropped.Add(1)
		return err
	}
	d.rxFrames.Add(1)
	return nil
}

// PHYRegRead implements wiznet.Mediator
func (d *Driver) PHYRegRead(phyAddr, reg uint32) (uint32, error) {
	return d.mac.ReadPHYReg(phyAddr, reg)
}

// PHYRegWrite implements wiznet.Mediator
func (d *Driver) PHYRegWrite(phyAddr, reg, value uint32) error {
	return d.mac.WritePHYReg(phyAddr, reg, value)
}

func (d *Driver) deinitMAC() {
	if err := d.mac.Deinit(); err != nil {
		d.logger.Warn("deinit after failed start", slog.Any("error", err))
	}
}

func argError(state wiznet.State, arg any) error {
	return fmt.Errorf("%w: state %s with argument %T", wiznet.ErrInvalidArgument, state, arg)
}

var _ wiznet.Mediator = (*Driver)(nil)
