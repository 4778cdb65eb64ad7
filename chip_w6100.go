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

// W6100 common registers
var (
	w6100RegCIDR    = frame.MakeMap(0x0000, frame.BlockCommon)
	w6100RegVER     = frame.MakeMap(0x0002, frame.BlockCommon)
	w6100RegSYCR0   = frame.MakeMap(0x2004, frame.BlockCommon)
	w6100RegSYCR1   = frame.MakeMap(0x2005, frame.BlockCommon)
	w6100RegSIMR    = frame.MakeMap(0x2114, frame.BlockCommon)
	w6100RegPHYSR   = frame.MakeMap(0x3000, frame.BlockCommon)
	w6100RegPHYCR0  = frame.MakeMap(0x301C, frame.BlockCommon)
	w6100RegPHYCR1  = frame.MakeMap(0x301D, frame.BlockCommon)
	w6100RegNETMR   = frame.MakeMap(0x4008, frame.BlockCommon)
	w6100RegSHAR    = frame.MakeMap(0x4120, frame.BlockCommon)
	w6100RegINTPTMR = frame.MakeMap(0x41C5, frame.BlockCommon)
	w6100RegNETLCKR = frame.MakeMap(0x41F5, frame.BlockCommon)
	w6100RegPHYLCKR = frame.MakeMap(0x41F6, frame.BlockCommon)
)

func w6100SockReg(offset uint16) uint32 { return frame.MakeMap(offset, frame.SockReg(0)) }

const (
	w6100ChipID  = 0x6100
	w6100Version = 0x4661

	w6100SYCR1IEN = 0x80

	w6100NETLCKRUnlock = 0x3A
	w6100PHYLCKRUnlock = 0x53

	w6100SMRMF     = 0x80
	w6100SMRMMB    = 0x20
	w6100SMRMMB6   = 0x10
	w6100SMRMACRAW = 0x07

	w6100SIRSendOK = 0x10
	w6100SIRRecv   = 0x04

	w6100PHYSRLink = 0x01

	// the datasheet asks for about 60 ms after a software reset
	w6100ResetSettle = 100 * time.Millisecond
)

// W6100 is the chip description of the WIZnet W6100.
var W6100 = &ChipOps{
	Name: "w6100",
	Regs: [RegCount]uint32{
		RegMACAddr:       w6100RegSHAR,
		RegSockMR:        w6100SockReg(0x0000),
		RegSockIMR:       w6100SockReg(0x0024),
		RegSockRXBufSize: w6100SockReg(0x0220),
		RegSockTXBufSize: w6100SockReg(0x0200),
		RegIntLevel:      w6100RegINTPTMR,
	},
	SockCR:    w6100SockReg(0x0010),
	SockIR:    w6100SockReg(0x0020),
	SockIRClr: w6100SockReg(0x0028),
	SockTXFSR: w6100SockReg(0x0204),
	SockTXWR:  w6100SockReg(0x020C),
	SockRXRSR: w6100SockReg(0x0224),
	SockRXRD:  w6100SockReg(0x0228),
	SIMR:      w6100RegSIMR,

	MemTXBase: frame.MakeMap(0, frame.SockTX(0)),
	MemRXBase: frame.MakeMap(0, frame.SockRX(0)),

	CmdOpen:  0x01,
	CmdClose: 0x10,
	CmdSend:  0x20,
	CmdRecv:  0x40,

	SIRSend:   w6100SIRSendOK,
	SIRRecv:   w6100SIRRecv,
	SIMRSock0: 0x01,

	SMRMACFilter:    w6100SMRMF,
	SMRMACRaw:       w6100SMRMACRAW,
	SMRDefault:      w6100SMRMACRAW | w6100SMRMF | w6100SMRMMB | w6100SMRMMB6,
	SMRBlockMcastV4: w6100SMRMMB,
	SMRBlockMcastV6: w6100SMRMMB6,

	PHYStatusReg: w6100RegPHYSR,
	PHYLinkMask:  w6100PHYSRLink,

	Reset:        w6100Reset,
	VerifyID:     w6100VerifyID,
	SetupDefault: w6100SetupDefault,
}

// w6100Reset clears SYCR0.RST, which resets the chip, then waits for it to settle.
func w6100Reset(m *MAC) error {
	if err := m.writeReg(w6100RegSYCR0, 0x00); err != nil {
		return fmt.Errorf("write SYCR0: %w", err)
	}
	time.Sleep(w6100ResetSettle)
	return nil
}

func w6100VerifyID(m *MAC) error {
	m.debug("waiting for chip to start and verifying chip ID")
	id, err := retry.Poll(m.config.SWResetTimeout, registerPollInterval, func() (uint16, bool, error) {
		v, err := readU16(m.tr, w6100RegCIDR)
		if err != nil {
			return v, false, fmt.Errorf("read CIDR: %w", err)
		}
		return v, v == w6100ChipID, nil
	})
	if err != nil {
		if !isPollTimeout(err) {
			return err
		}
		m.logerr("chip ID mismatched",
			slog.String("expected", fmt.Sprintf("0x%04x", w6100ChipID)),
			slog.String("got", fmt.Sprintf("0x%04x", id)))
		return fmt.Errorf("%w: expected 0x%04x, got 0x%04x", ErrInvalidVersion, w6100ChipID, id)
	}

	version, err := readU16(m.tr, w6100RegVER)
	if err != nil {
		return fmt.Errorf("read VER: %w", err)
	}
	m.info("chip identified",
		slog.String("id", fmt.Sprintf("0x%04x", id)),
		slog.String("version", fmt.Sprintf("0x%04x", version)))
	if version != w6100Version {
		m.warn("unexpected chip version", slog.String("version", fmt.Sprintf("0x%04x", version)))
	}
	return nil
}

// w6100SetupDefault unlocks the network registers and clears NETMR before the
// shared setup; NETMR blocking bits still filter frames in MACRAW mode.
func w6100SetupDefault(m *MAC) error {
	if err := m.writeReg(w6100RegNETLCKR, w6100NETLCKRUnlock); err != nil {
		return fmt.Errorf("unlock network config: %w", err)
	}
	if err := m.writeReg(w6100RegNETMR, 0); err != nil {
		return fmt.Errorf("write NETMR: %w", err)
	}
	if err := setupDefault(m); err != nil {
		return err
	}
	if err := m.writeReg(w6100RegSYCR1, w6100SYCR1IEN); err != nil {
		return fmt.Errorf("write SYCR1: %w", err)
	}
	return nil
}
