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

	"github.com/ZaparooProject/go-wiznet/internal/frame"
	"github.com/ZaparooProject/go-wiznet/internal/retry"
)

// W5500 common registers
var (
	w5500RegMR       = frame.MakeMap(0x0000, frame.BlockCommon)
	w5500RegSHAR     = frame.MakeMap(0x0009, frame.BlockCommon)
	w5500RegINTLEVEL = frame.MakeMap(0x0013, frame.BlockCommon)
	w5500RegSIMR     = frame.MakeMap(0x0018, frame.BlockCommon)
	w5500RegPHYCFGR  = frame.MakeMap(0x002E, frame.BlockCommon)
	w5500RegVERSIONR = frame.MakeMap(0x0039, frame.BlockCommon)
)

func w5500SockReg(offset uint16) uint32 { return frame.MakeMap(offset, frame.SockReg(0)) }

const (
	w5500MRRst   = 0x80
	w5500Version = 0x04

	w5500SMRMFEN   = 0x80
	w5500SMRMMB    = 0x20
	w5500SMRMACRAW = 0x04

	w5500SIRSendOK = 0x10
	w5500SIRRecv   = 0x04

	w5500PHYCFGRLink = 0x01
)

// W5500 is the chip description of the WIZnet W5500.
var W5500 = &ChipOps{
	Name: "w5500",
	Regs: [RegCount]uint32{
		RegMACAddr:       w5500RegSHAR,
		RegSockMR:        w5500SockReg(0x00),
		RegSockIMR:       w5500SockReg(0x2C),
		RegSockRXBufSize: w5500SockReg(0x1E),
		RegSockTXBufSize: w5500SockReg(0x1F),
		RegIntLevel:      w5500RegINTLEVEL,
	},
	SockCR:    w5500SockReg(0x01),
	SockIR:    w5500SockReg(0x02),
	SockIRClr: w5500SockReg(0x02),
	SockTXFSR: w5500SockReg(0x20),
	SockTXWR:  w5500SockReg(0x24),
	SockRXRSR: w5500SockReg(0x26),
	SockRXRD:  w5500SockReg(0x28),
	SIMR:      w5500RegSIMR,

	MemTXBase: frame.MakeMap(0, frame.SockTX(0)),
	MemRXBase: frame.MakeMap(0, frame.SockRX(0)),

	CmdOpen:  0x01,
	CmdClose: 0x10,
	CmdSend:  0x20,
	CmdRecv:  0x40,

	SIRSend:   w5500SIRSendOK,
	SIRRecv:   w5500SIRRecv,
	SIMRSock0: 0x01,

	SMRMACFilter:    w5500SMRMFEN,
	SMRMACRaw:       w5500SMRMACRAW,
	SMRDefault:      w5500SMRMACRAW | w5500SMRMFEN | w5500SMRMMB,
	SMRBlockMcastV4: w5500SMRMMB,

	PHYStatusReg: w5500RegPHYCFGR,
	PHYLinkMask:  w5500PHYCFGRLink,

	Reset:        w5500Reset,
	VerifyID:     w5500VerifyID,
	SetupDefault: setupDefault,
}

// w5500Reset sets MR.RST and waits for the chip to clear it.
func w5500Reset(m *MAC) error {
	if err := m.writeReg(w5500RegMR, w5500MRRst); err != nil {
		return fmt.Errorf("write MR: %w", err)
	}
	_, err := retry.Poll(m.config.SWResetTimeout, registerPollInterval, func() (byte, bool, error) {
		mr, err := m.readReg(w5500RegMR)
		if err != nil {
			return mr, false, fmt.Errorf("read MR: %w", err)
		}
		return mr, mr&w5500MRRst == 0, nil
	})
	if err != nil {
		return m.pollError("reset", ErrResetTimeout, err)
	}
	return nil
}

// w5500VerifyID waits for VERSIONR to read 0x04. Some parts return 0 right
// after reset, so the register is polled instead of read once.
func w5500VerifyID(m *MAC) error {
	m.debug("waiting for chip to start and verifying version")
	version, err := retry.Poll(m.config.SWResetTimeout, registerPollInterval, func() (byte, bool, error) {
		v, err := m.readReg(w5500RegVERSIONR)
		if err != nil {
			return v, false, fmt.Errorf("read VERSIONR: %w", err)
		}
		return v, v == w5500Version, nil
	})
	if err == nil {
		return nil
	}
	if isPollTimeout(err) {
		m.logerr("version mismatched",
			slog.String("expected", fmt.Sprintf("0x%02x", w5500Version)),
			slog.String("got", fmt.Sprintf("0x%02x", version)))
		return fmt.Errorf("%w: expected 0x%02x, got 0x%02x", ErrInvalidVersion, w5500Version, version)
	}
	return err
}

// registerPollInterval is the pause between reads of a register being waited on.
const registerPollInterval = 10 * time.Millisecond
