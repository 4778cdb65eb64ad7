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
	"sync"
	"time"

	"github.com/soypat/lneto/phy"
	"periph.io/x/conn/v3/gpio"
)

// Bits shared by the PHY status registers of both chips. How the speed and
// duplex bits read depends on the chip.
const (
	phyStatusLink   = 0x01
	phyStatusSpeed  = 0x02
	phyStatusDuplex = 0x04
)

// AutonegCmd selects an auto-negotiation control action
type AutonegCmd int

const (
	AutonegRestart AutonegCmd = iota
	AutonegEnable
	AutonegDisable
	AutonegStatus
)

func (c AutonegCmd) String() string {
	switch c {
	case AutonegRestart:
		return "restart"
	case AutonegEnable:
		return "enable"
	case AutonegDisable:
		return "disable"
	case AutonegStatus:
		return "status"
	default:
		return fmt.Sprintf("AutonegCmd(%d)", int(c))
	}
}

// FixedMode is a forced speed and duplex pair selected by an opmode code
type FixedMode struct {
	Speed  Speed
	Duplex Duplex
}

// PHYOps describes the internal PHY of one chip family.
type PHYOps struct {
	// SetMode programs auto-negotiation or a fixed speed and duplex
	SetMode func(p *PHY, autoneg bool, speed Speed, duplex Duplex) error
	// Reset restarts the PHY; the link is considered down afterwards
	Reset func(p *PHY) error
	// PowerControl powers the PHY up or down
	PowerControl func(p *PHY, enable bool) error
	// AutonegEnabled reports whether opmode selects auto-negotiation
	AutonegEnabled func(opmode byte) bool

	// FixedModes maps opmode codes to forced modes; codes outside it mean
	// auto-negotiation
	FixedModes map[byte]FixedMode

	Name string

	StatusReg   uint32
	OpmodeReg   uint32
	OpmodeShift uint
	OpmodeMask  byte

	SpeedWhenSet    Speed
	SpeedWhenClear  Speed
	DuplexWhenSet   Duplex
	DuplexWhenClear Duplex
}

// Validate checks that the chip specific hooks and opmode table are set
func (o *PHYOps) Validate() error {
	if o == nil {
		return fmt.Errorf("%w: PHY ops not set", ErrInvalidArgument)
	}
	if o.SetMode == nil || o.Reset == nil || o.PowerControl == nil || o.AutonegEnabled == nil {
		return fmt.Errorf("%w: chip specific PHY ops for %q not configured", ErrInvalidState, o.Name)
	}
	if len(o.FixedModes) == 0 {
		return fmt.Errorf("%w: opmode table for %q not configured", ErrInvalidState, o.Name)
	}
	return nil
}

func (o *PHYOps) speed(status byte) Speed {
	if status&phyStatusSpeed != 0 {
		return o.SpeedWhenSet
	}
	return o.SpeedWhenClear
}

func (o *PHYOps) duplex(status byte) Duplex {
	if status&phyStatusDuplex != 0 {
		return o.DuplexWhenSet
	}
	return o.DuplexWhenClear
}

// PHYConfig holds PHY settings
type PHYConfig struct {
	// ResetPin is driven low to hard reset the chip, nil to skip
	ResetPin gpio.PinOut
	// Addr is the PHY address; the internal PHY ignores it
	Addr uint32
	// ResetAssert is how long ResetPin is held low
	ResetAssert time.Duration
}

// DefaultPHYConfig returns the default PHY configuration
func DefaultPHYConfig() *PHYConfig {
	return &PHYConfig{
		ResetAssert: 100 * time.Microsecond,
	}
}

// PHYOption is a functional option for configuring a PHY
type PHYOption func(*PHY) error

// WithResetPin sets the hardware reset output
func WithResetPin(pin gpio.PinOut) PHYOption {
	return func(p *PHY) error {
		p.config.ResetPin = pin
		return nil
	}
}

// WithPHYAddr sets the PHY address
func WithPHYAddr(addr uint32) PHYOption {
	return func(p *PHY) error {
		p.config.Addr = addr
		return nil
	}
}

// WithPHYLogger sets the logger of the PHY
func WithPHYLogger(l *slog.Logger) PHYOption {
	return func(p *PHY) error {
		p.logger = l
		return nil
	}
}

// PHY translates the chip's PHY status register into link, speed and
// duplex events for the mediator.
type PHY struct {
	devLogger
	ops      *PHYOps
	config   *PHYConfig
	logger   *slog.Logger
	mediator Mediator

	mu     sync.Mutex
	link   Link
	speed  Speed
	duplex Duplex
}

// NewPHY creates a PHY translator for ops
func NewPHY(ops *PHYOps, opts ...PHYOption) (*PHY, error) {
	if ops == nil {
		return nil, fmt.Errorf("%w: PHY ops not set", ErrInvalidArgument)
	}
	p := &PHY{
		ops:    ops,
		config: DefaultPHYConfig(),
		link:   LinkDown,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.devLogger = newDevLogger(p.logger, "phy", ops.Name)
	return p, nil
}

// SetMediator attaches the mediator providing register access
func (p *PHY) SetMediator(med Mediator) error {
	if med == nil {
		return fmt.Errorf("%w: nil mediator", ErrInvalidArgument)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mediator = med
	return nil
}

// Init powers the PHY up and resets it
func (p *PHY) Init() error {
	if err := p.ops.Validate(); err != nil {
		return err
	}
	if err := p.PowerControl(true); err != nil {
		return fmt.Errorf("power control: %w", err)
	}
	if err := p.Reset(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// Deinit powers the PHY down
func (p *PHY) Deinit() error {
	if err := p.PowerControl(false); err != nil {
		return fmt.Errorf("power control: %w", err)
	}
	return nil
}

// Reset performs the chip's PHY software reset
func (p *PHY) Reset() error {
	p.mu.Lock()
	p.link = LinkDown
	p.mu.Unlock()
	return p.ops.Reset(p)
}

// ResetHW pulses the hardware reset pin low
func (p *PHY) ResetHW() error {
	pin := p.config.ResetPin
	if pin == nil {
		return nil
	}
	if err := pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("assert reset pin: %w", err)
	}
	time.Sleep(p.config.ResetAssert)
	if err := pin.Out(gpio.High); err != nil {
		return fmt.Errorf("release reset pin: %w", err)
	}
	return nil
}

// PowerControl powers the PHY up or down
func (p *PHY) PowerControl(enable bool) error {
	return p.ops.PowerControl(p, enable)
}

// GetLink reads the status register and reports a changed link. On a
// transition to up the negotiated speed and duplex are reported first.
func (p *PHY) GetLink() error {
	status, err := p.readReg(p.ops.StatusReg)
	if err != nil {
		return fmt.Errorf("read PHY status: %w", err)
	}
	link := LinkDown
	if status&phyStatusLink != 0 {
		link = LinkUp
	}

	med, err := p.med()
	if err != nil {
		return err
	}
	if p.Link() == link {
		return nil
	}
	if link == LinkUp {
		speed, duplex := p.ops.speed(status), p.ops.duplex(status)
		if err := med.OnStateChanged(StateSpeed, speed); err != nil {
			return fmt.Errorf("change speed: %w", err)
		}
		if err := med.OnStateChanged(StateDuplex, duplex); err != nil {
			return fmt.Errorf("change duplex: %w", err)
		}
		p.mu.Lock()
		p.speed, p.duplex = speed, duplex
		p.mu.Unlock()
	}
	if err := med.OnStateChanged(StateLink, link); err != nil {
		return fmt.Errorf("change link: %w", err)
	}
	p.mu.Lock()
	p.link = link
	p.mu.Unlock()
	p.debug("link changed", slog.String("link", link.String()),
		slog.String("speed", p.speed.String()), slog.String("duplex", p.duplex.String()))
	return nil
}

// SetLink records the link state and reports it when it changed
func (p *PHY) SetLink(link Link) error {
	med, err := p.med()
	if err != nil {
		return err
	}
	p.mu.Lock()
	changed := p.link != link
	p.link = link
	p.mu.Unlock()
	if !changed {
		return nil
	}
	if err := med.OnStateChanged(StateLink, link); err != nil {
		return fmt.Errorf("change link: %w", err)
	}
	return nil
}

// Link returns the last reported link state
func (p *PHY) Link() Link {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.link
}

// LinkMode returns the last reported mode, phy.LinkDown while the link is down
func (p *PHY) LinkMode() phy.LinkMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.link != LinkUp {
		return phy.LinkDown
	}
	return LinkMode(p.speed, p.duplex)
}

// GetMode reports whether auto-negotiation is selected and the current
// speed and duplex. A fixed mode is read from the opmode table, otherwise
// the status bits give the negotiated result.
func (p *PHY) GetMode() (autoneg bool, speed Speed, duplex Duplex, err error) {
	status, err := p.readReg(p.ops.OpmodeReg)
	if err != nil {
		return false, 0, 0, fmt.Errorf("read opmode status: %w", err)
	}
	opmode := (status >> p.ops.OpmodeShift) & p.ops.OpmodeMask
	if mode, ok := p.ops.FixedModes[opmode]; ok {
		return false, mode.Speed, mode.Duplex, nil
	}
	return true, p.ops.speed(status), p.ops.duplex(status), nil
}

// AutonegoCtrl runs an auto-negotiation command and returns whether
// auto-negotiation is enabled afterwards.
func (p *PHY) AutonegoCtrl(cmd AutonegCmd) (bool, error) {
	opmode, err := p.opmode()
	if err != nil {
		return false, err
	}
	enabled := p.ops.AutonegEnabled(opmode)

	switch cmd {
	case AutonegRestart:
		if !enabled {
			return false, fmt.Errorf("%w: auto negotiation is disabled", ErrInvalidState)
		}
		if err := p.Reset(); err != nil {
			return false, fmt.Errorf("reset PHY: %w", err)
		}
		return true, nil
	case AutonegDisable:
		status, err := p.readReg(p.ops.StatusReg)
		if err != nil {
			return false, fmt.Errorf("read PHY status: %w", err)
		}
		if err := p.ops.SetMode(p, false, p.ops.speed(status), p.ops.duplex(status)); err != nil {
			return false, fmt.Errorf("disable autoneg: %w", err)
		}
		return false, nil
	case AutonegEnable:
		if err := p.ops.SetMode(p, true, Speed10M, DuplexHalf); err != nil {
			return false, fmt.Errorf("enable autoneg: %w", err)
		}
		return true, nil
	case AutonegStatus:
		return enabled, nil
	default:
		return false, fmt.Errorf("%w: autoneg command %s", ErrInvalidArgument, cmd)
	}
}

// SetSpeed forces speed, keeping the current duplex, and resets the PHY
func (p *PHY) SetSpeed(speed Speed) error {
	if speed != Speed10M && speed != Speed100M {
		return fmt.Errorf("%w: unknown speed %d", ErrInvalidArgument, int(speed))
	}
	return p.forceMode(func(_ Speed, duplex Duplex) (Speed, Duplex) { return speed, duplex })
}

// SetDuplex forces duplex, keeping the current speed, and resets the PHY
func (p *PHY) SetDuplex(duplex Duplex) error {
	if duplex != DuplexHalf && duplex != DuplexFull {
		return fmt.Errorf("%w: unknown duplex %d", ErrInvalidArgument, int(duplex))
	}
	return p.forceMode(func(speed Speed, _ Duplex) (Speed, Duplex) { return speed, duplex })
}

// forceMode considers the link down so the new mode is reported once it
// comes back up.
func (p *PHY) forceMode(next func(Speed, Duplex) (Speed, Duplex)) error {
	p.mu.Lock()
	p.link = LinkDown
	p.mu.Unlock()

	_, speed, duplex, err := p.GetMode()
	if err != nil {
		return fmt.Errorf("get mode: %w", err)
	}
	speed, duplex = next(speed, duplex)
	if err := p.ops.SetMode(p, false, speed, duplex); err != nil {
		return fmt.Errorf("set mode: %w", err)
	}
	if err := p.Reset(); err != nil {
		return fmt.Errorf("reset PHY: %w", err)
	}
	return nil
}

// SetAddr sets the PHY address
func (p *PHY) SetAddr(addr uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config.Addr = addr
}

// Addr returns the PHY address
func (p *PHY) Addr() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config.Addr
}

// AdvertisePauseAbility is accepted and ignored; the internal PHY does not
// advertise pause frames.
func (*PHY) AdvertisePauseAbility(uint32) error { return nil }

// Loopback is not supported by the internal PHY
func (*PHY) Loopback(bool) error { return ErrNotSupported }

func (p *PHY) opmode() (byte, error) {
	v, err := p.readReg(p.ops.OpmodeReg)
	if err != nil {
		return 0, fmt.Errorf("read opmode status: %w", err)
	}
	return (v >> p.ops.OpmodeShift) & p.ops.OpmodeMask, nil
}

func (p *PHY) med() (Mediator, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mediator == nil {
		return nil, ErrNoMediator
	}
	return p.mediator, nil
}

func (p *PHY) readReg(reg uint32) (byte, error) {
	med, err := p.med()
	if err != nil {
		return 0, err
	}
	v, err := med.PHYRegRead(p.Addr(), reg)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

func (p *PHY) writeReg(reg uint32, v byte) error {
	med, err := p.med()
	if err != nil {
		return err
	}
	return med.PHYRegWrite(p.Addr(), reg, uint32(v))
}

func (p *PHY) modifyReg(reg uint32, fn func(byte) byte) error {
	v, err := p.readReg(reg)
	if err != nil {
		return err
	}
	return p.writeReg(reg, fn(v))
}

// PHYOpsFor returns the internal PHY description that matches a chip family.
func PHYOpsFor(ops *ChipOps) (*PHYOps, error) {
	switch ops {
	case W5500:
		return W5500PHY, nil
	case W6100:
		return W6100PHY, nil
	default:
		return nil, fmt.Errorf("%w: no PHY for chip %v", ErrNotSupported, ops)
	}
}
