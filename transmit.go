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
	"runtime"
	"time"

	"github.com/ZaparooProject/go-wiznet/internal/frame"
)

// Transmit copies an Ethernet frame (without CRC) into the TX ring, issues
// SEND and waits for the chip to report completion. The wait is bounded by
// the speed dependent TX timeout and abandoned when the link drops.
func (m *MAC) Transmit(buf []byte) error {
	length := len(buf)
	if length > frame.MaxPacketSize {
		return fmt.Errorf("%w: frame size %d exceeds %d", ErrInvalidArgument, length, frame.MaxPacketSize)
	}

	free, err := m.stableU16(m.ops.SockTXFSR, "TX free size")
	if err != nil {
		return err
	}
	if length > int(free) {
		m.logerr("free size less than frame length",
			slog.Int("free", int(free)), slog.Int("length", length))
		return fmt.Errorf("%w: free %d, length %d", ErrTxBufferFull, free, length)
	}

	wr, err := readU16(m.tr, m.ops.SockTXWR)
	if err != nil {
		return fmt.Errorf("read TX write pointer: %w", err)
	}
	if err := m.tr.Write(frame.WithOffset(m.ops.MemTXBase, wr), buf); err != nil {
		return fmt.Errorf("write TX buffer: %w", err)
	}
	if err := writeU16(m.tr, m.ops.SockTXWR, wr+uint16(length)); err != nil {
		return fmt.Errorf("write TX write pointer: %w", err)
	}
	if m.tracing() {
		m.traceFrame("tx", buf)
	}

	if err := m.sendCommand(m.ops.CmdSend, commandTimeout); err != nil {
		return fmt.Errorf("issue SEND: %w", err)
	}
	if err := m.waitSendOK(); err != nil {
		return err
	}
	if err := m.writeReg(m.ops.SockIRClr, m.ops.SIRSend); err != nil {
		return fmt.Errorf("clear SEND_OK: %w", err)
	}
	return nil
}

// waitSendOK polls Sn_IR, yielding between reads; the deadline is far below
// the scheduler tick so it never sleeps.
func (m *MAC) waitSendOK() error {
	timeout := m.txDeadline()
	start := time.Now()
	for {
		up, err := m.linkUp()
		if err != nil {
			return fmt.Errorf("%w: read link status: %w", ErrTransmitFailed, err)
		}
		if !up {
			return fmt.Errorf("%w: link down while sending", ErrTransmitFailed)
		}
		if elapsed := time.Since(start); elapsed > timeout {
			m.logerr("send timeout", slog.Duration("elapsed", elapsed), slog.Duration("timeout", timeout))
			return fmt.Errorf("%w: no SEND_OK after %s", ErrTransmitFailed, timeout)
		}
		status, err := m.readReg(m.ops.SockIR)
		if err != nil {
			return fmt.Errorf("read socket interrupt status: %w", err)
		}
		if status&m.ops.SIRSend != 0 {
			return nil
		}
		runtime.Gosched()
	}
}
