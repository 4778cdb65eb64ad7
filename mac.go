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
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-wiznet/internal/frame"
	"github.com/ZaparooProject/go-wiznet/internal/retry"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Phase is the initialization progress of a MAC
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseLowLevelInit
	PhaseReset
	PhaseIdentityVerified
	PhaseDefaultConfigured
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseLowLevelInit:
		return "lowlevel-init"
	case PhaseReset:
		return "reset"
	case PhaseIdentityVerified:
		return "identity-verified"
	case PhaseDefaultConfigured:
		return "default-configured"
	case PhaseReady:
		return "ready"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

const (
	// commandTimeout bounds the wait for the chip to accept a socket command
	commandTimeout = 100 * time.Millisecond
	// maxStableReads bounds the consecutive-equal check of the buffer counters
	maxStableReads = 8
)

// MAC drives socket 0 of a W5500 or W6100 in MACRAW mode.
type MAC struct {
	devLogger
	tr       Transport
	ops      *ChipOps
	config   *MACConfig
	logger   *slog.Logger
	mediator Mediator
	intPin   InterruptPin
	rx       *rxScheduler

	// rxBuf is the scratch buffer frames are read into before being copied out
	rxBuf []byte
	rxMu  sync.Mutex

	mu        sync.Mutex
	phase     Phase
	mcastV4   int
	mcastV6   int
	installed bool

	txTimeout     atomic.Int64
	packetsRemain atomic.Bool
}

// NewMAC creates a MAC for the chip described by ops, talking over tr.
// Exactly one of an interrupt line and a poll period must be configured.
func NewMAC(tr Transport, ops *ChipOps, opts ...MACOption) (*MAC, error) {
	if tr == nil {
		return nil, fmt.Errorf("%w: transport not set", ErrInvalidArgument)
	}
	if err := ops.Validate(); err != nil {
		return nil, err
	}

	m := &MAC{
		tr:     tr,
		ops:    ops,
		config: DefaultMACConfig(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	if err := m.config.validate(); err != nil {
		return nil, err
	}
	m.devLogger = newDevLogger(m.logger, "mac", ops.Name)

	if m.config.interruptMode() {
		pin, err := m.resolveInterruptPin()
		if err != nil {
			return nil, err
		}
		m.intPin = pin
	}

	m.rxBuf = make([]byte, frame.MaxPacketSize)
	m.txTimeout.Store(int64(m.config.TXTimeout100M))
	m.rx = newRXScheduler(m)
	return m, nil
}

func (m *MAC) resolveInterruptPin() (InterruptPin, error) {
	if m.config.IntPin != nil {
		return m.config.IntPin, nil
	}
	pin := gpioreg.ByName(strconv.Itoa(m.config.IntGPIO))
	if pin == nil {
		return nil, fmt.Errorf("%w: interrupt GPIO %d not found", ErrInvalidConfig, m.config.IntGPIO)
	}
	return pin, nil
}

// Chip returns the chip description the MAC was built for
func (m *MAC) Chip() *ChipOps { return m.ops }

// Phase returns the initialization progress
func (m *MAC) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// SetMediator attaches the mediator that receives frames and state changes
func (m *MAC) SetMediator(med Mediator) error {
	if med == nil {
		return fmt.Errorf("%w: nil mediator", ErrInvalidArgument)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mediator = med
	return nil
}

// Init resets the chip, checks its identity, applies the MACRAW defaults and
// starts the receive goroutine. Any failure undoes what was done so far.
func (m *MAC) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mediator == nil {
		return ErrNoMediator
	}
	if m.phase != PhaseUninitialized {
		return fmt.Errorf("%w: init while %s", ErrInvalidState, m.phase)
	}

	if err := m.installInterrupt(); err != nil {
		return err
	}

	steps := []struct {
		run  func() error
		name string
		next Phase
	}{
		{name: "lowlevel init", next: PhaseLowLevelInit, run: func() error {
			return m.mediator.OnStateChanged(StateLLInit, nil)
		}},
		{name: "reset", next: PhaseReset, run: func() error { return m.ops.Reset(m) }},
		{name: "verify id", next: PhaseIdentityVerified, run: func() error { return m.ops.VerifyID(m) }},
		{name: "setup default", next: PhaseDefaultConfigured, run: func() error { return m.ops.SetupDefault(m) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			m.logerr(step.name+" failed", slog.Any("error", err))
			m.unwindInit()
			return fmt.Errorf("%s: %w", step.name, err)
		}
		m.phase = step.next
	}

	m.rx.start()
	m.phase = PhaseReady
	m.debug("initialized")
	return nil
}

func (m *MAC) unwindInit() {
	m.removeInterrupt()
	if err := m.mediator.OnStateChanged(StateDeinit, nil); err != nil {
		m.warn("deinit notification failed", slog.Any("error", err))
	}
	m.phase = PhaseUninitialized
}

// Deinit stops the socket, detaches the wakeup sources and tells the mediator.
func (m *MAC) Deinit() error {
	if err := m.Stop(); err != nil {
		m.warn("stop during deinit failed", slog.Any("error", err))
	}

	m.mu.Lock()
	m.removeInterrupt()
	m.rx.pauseTimer()
	m.mu.Unlock()

	// the receive goroutine takes m.mu to reach the mediator
	m.rx.stop()

	m.mu.Lock()
	m.phase = PhaseUninitialized
	med := m.mediator
	m.mu.Unlock()
	if med == nil {
		return nil
	}
	if err := med.OnStateChanged(StateDeinit, nil); err != nil {
		return fmt.Errorf("deinit notification: %w", err)
	}
	return nil
}

// Close deinitializes the MAC if needed and closes the transport
func (m *MAC) Close() error {
	if m.Phase() != PhaseUninitialized {
		if err := m.Deinit(); err != nil {
			m.warn("deinit during close failed", slog.Any("error", err))
		}
	}
	m.rx.close()
	if err := m.tr.Close(); err != nil {
		return fmt.Errorf("close transport: %w", err)
	}
	return nil
}

func (m *MAC) installInterrupt() error {
	if m.intPin == nil || m.installed {
		return nil
	}
	if err := m.intPin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return fmt.Errorf("configure interrupt pin %s: %w", m.intPin, err)
	}
	m.installed = true
	return nil
}

func (m *MAC) removeInterrupt() {
	if m.intPin == nil || !m.installed {
		return
	}
	if err := m.intPin.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		m.warn("disable interrupt edge failed", slog.Any("error", err))
	}
	m.installed = false
}

// Start opens socket 0 and unmasks its interrupt
func (m *MAC) Start() error {
	if err := m.sendCommand(m.ops.CmdOpen, commandTimeout); err != nil {
		return fmt.Errorf("open socket: %w", err)
	}
	if err := m.writeReg(m.ops.SIMR, m.ops.SIMRSock0); err != nil {
		return fmt.Errorf("enable socket interrupt: %w", err)
	}
	return nil
}

// Stop masks the socket interrupt and closes socket 0
func (m *MAC) Stop() error {
	if err := m.writeReg(m.ops.SIMR, 0); err != nil {
		return fmt.Errorf("disable socket interrupt: %w", err)
	}
	if err := m.sendCommand(m.ops.CmdClose, commandTimeout); err != nil {
		return fmt.Errorf("close socket: %w", err)
	}
	return nil
}

// SetLink starts or stops the socket to follow the PHY link state
func (m *MAC) SetLink(link Link) error {
	switch link {
	case LinkUp:
		if err := m.Start(); err != nil {
			return err
		}
		m.rx.resumeTimer()
		m.debug("link is up")
	case LinkDown:
		if err := m.Stop(); err != nil {
			return err
		}
		m.rx.pauseTimer()
		m.debug("link is down")
	default:
		return fmt.Errorf("%w: unknown link status %d", ErrInvalidArgument, int(link))
	}
	return nil
}

// SetSpeed adjusts the transmit completion timeout to the link speed
func (m *MAC) SetSpeed(speed Speed) error {
	switch speed {
	case Speed10M:
		m.txTimeout.Store(int64(m.config.TXTimeout10M))
	case Speed100M:
		m.txTimeout.Store(int64(m.config.TXTimeout100M))
	default:
		return fmt.Errorf("%w: unknown speed %d", ErrInvalidArgument, int(speed))
	}
	m.debug("working in "+speed.String()+"bps", slog.Duration("tx_timeout", m.txDeadline()))
	return nil
}

// SetDuplex accepts the duplex mode; the MAC needs no reconfiguration for it
func (m *MAC) SetDuplex(duplex Duplex) error {
	switch duplex {
	case DuplexHalf, DuplexFull:
		m.debug("working in " + duplex.String() + " duplex")
		return nil
	default:
		return fmt.Errorf("%w: unknown duplex %d", ErrInvalidArgument, int(duplex))
	}
}

// SetPromiscuous disables the MAC address filter when enable is true
func (m *MAC) SetPromiscuous(enable bool) error {
	return m.modifyReg(m.ops.Reg(RegSockMR), func(smr byte) byte {
		if enable {
			return smr &^ m.ops.SMRMACFilter
		}
		return smr | m.ops.SMRMACFilter
	})
}

// EnableFlowControl is not supported by the chip
func (*MAC) EnableFlowControl(bool) error { return ErrNotSupported }

// SetPeerPauseAbility is not supported by the chip
func (*MAC) SetPeerPauseAbility(uint32) error { return ErrNotSupported }

// SetAddr programs the source hardware address
func (m *MAC) SetAddr(addr [6]byte) error {
	if err := m.tr.Write(m.ops.Reg(RegMACAddr), addr[:]); err != nil {
		return fmt.Errorf("write MAC address: %w", err)
	}
	return nil
}

// Addr reads the programmed hardware address back from the chip
func (m *MAC) Addr() ([6]byte, error) {
	var addr [6]byte
	if err := m.tr.Read(m.ops.Reg(RegMACAddr), addr[:]); err != nil {
		return addr, fmt.Errorf("read MAC address: %w", err)
	}
	return addr, nil
}

// ReadPHYReg reads a PHY register. The PHY sits behind the common register
// block, so phyAddr is ignored and reg is a mapped chip address.
func (m *MAC) ReadPHYReg(_, reg uint32) (uint32, error) {
	v, err := m.readReg(reg)
	if err != nil {
		return 0, fmt.Errorf("read PHY register: %w", err)
	}
	return uint32(v), nil
}

// WritePHYReg writes the low byte of value to a PHY register
func (m *MAC) WritePHYReg(_, reg, value uint32) error {
	if err := m.writeReg(reg, byte(value)); err != nil {
		return fmt.Errorf("write PHY register: %w", err)
	}
	return nil
}

// PacketsRemain reports whether the last receive left frames in the ring
func (m *MAC) PacketsRemain() bool { return m.packetsRemain.Load() }

// Metrics returns the receive goroutine counters
func (m *MAC) Metrics() RXMetrics { return m.rx.metrics() }

func (m *MAC) readReg(addr uint32) (byte, error) {
	return readU8(m.tr, addr)
}

func (m *MAC) writeReg(addr uint32, v byte) error {
	return writeU8(m.tr, addr, v)
}

// modifyReg applies fn to the register and writes it back only if it changed
func (m *MAC) modifyReg(addr uint32, fn func(byte) byte) error {
	v, err := m.readReg(addr)
	if err != nil {
		return fmt.Errorf("read register 0x%08x: %w", addr, err)
	}
	next := fn(v)
	if next == v {
		return nil
	}
	if err := m.writeReg(addr, next); err != nil {
		return fmt.Errorf("write register 0x%08x: %w", addr, err)
	}
	return nil
}

// sendCommand writes a socket command and waits for the chip to clear Sn_CR
func (m *MAC) sendCommand(cmd byte, timeout time.Duration) error {
	if err := m.writeReg(m.ops.SockCR, cmd); err != nil {
		return fmt.Errorf("write command 0x%02x: %w", cmd, err)
	}
	_, err := retry.Poll(timeout, registerPollInterval, func() (byte, bool, error) {
		cr, err := m.readReg(m.ops.SockCR)
		if err != nil {
			return cr, false, fmt.Errorf("read command register: %w", err)
		}
		return cr, cr == 0, nil
	})
	if err != nil {
		m.logerr("send command timeout", slog.String("command", fmt.Sprintf("0x%02x", cmd)))
		return m.pollError("command", ErrCommandTimeout, err)
	}
	return nil
}

// stableU16 reads a counter the chip updates asynchronously until two
// consecutive reads agree
func (m *MAC) stableU16(addr uint32, name string) (uint16, error) {
	v, err := retry.Stable(maxStableReads, func() (uint16, error) {
		return readU16(m.tr, addr)
	})
	if errors.Is(err, retry.ErrUnstable) {
		return 0, fmt.Errorf("%w: %s", ErrUnstableCounter, name)
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", name, err)
	}
	return v, nil
}

func (m *MAC) linkUp() (bool, error) {
	v, err := m.readReg(m.ops.PHYStatusReg)
	if err != nil {
		return false, err
	}
	return v&m.ops.PHYLinkMask != 0, nil
}

func (m *MAC) txDeadline() time.Duration {
	return time.Duration(m.txTimeout.Load())
}

// pollError turns a poll deadline into a timeout error carrying sentinel
func (m *MAC) pollError(op string, sentinel, err error) error {
	if isPollTimeout(err) {
		return newPollTimeout(op, m.ops.Name, sentinel)
	}
	return err
}

func isPollTimeout(err error) bool {
	return errors.Is(err, retry.ErrTimeout)
}
