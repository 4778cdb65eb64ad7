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

	"github.com/ZaparooProject/go-wiznet/internal/frame"
)

// RegID names a register whose address differs between chip families but
// whose meaning does not.
type RegID int

const (
	RegMACAddr RegID = iota
	RegSockMR
	RegSockIMR
	RegSockRXBufSize
	RegSockTXBufSize
	RegIntLevel
	RegCount
)

// ChipOps describes one chip family: where its registers live, the opcodes
// and bit masks it understands and the few steps that cannot be shared.
// Values are built once at package init and are read-only afterwards; every
// MAC of that family borrows the same pointer.
type ChipOps struct {
	Reset        func(m *MAC) error
	VerifyID     func(m *MAC) error
	SetupDefault func(m *MAC) error

	Name string

	Regs [RegCount]uint32

	// Socket 0 registers
	SockCR    uint32
	SockIR    uint32
	SockIRClr uint32 // equal to SockIR on chips that clear by writing 1 to the status bit
	SockTXFSR uint32
	SockTXWR  uint32
	SockRXRSR uint32
	SockRXRD  uint32
	SIMR      uint32

	// Socket 0 buffer blocks; the ring offset is applied with frame.WithOffset
	MemTXBase uint32
	MemRXBase uint32

	PHYStatusReg uint32

	CmdOpen  byte
	CmdClose byte
	CmdSend  byte
	CmdRecv  byte

	SIRSend   byte
	SIRRecv   byte
	SIMRSock0 byte

	SMRMACFilter    byte
	SMRMACRaw       byte
	SMRDefault      byte
	SMRBlockMcastV4 byte
	SMRBlockMcastV6 byte // zero when the chip always accepts IPv6 multicast

	PHYLinkMask byte
}

// Reg returns the address of id, or 0 when the chip has no such register.
func (o *ChipOps) Reg(id RegID) uint32 {
	if id < 0 || id >= RegCount {
		return 0
	}
	return o.Regs[id]
}

// Validate checks that the chip specific steps are present.
func (o *ChipOps) Validate() error {
	if o == nil {
		return fmt.Errorf("%w: chip ops not set", ErrInvalidArgument)
	}
	if o.Reset == nil || o.VerifyID == nil || o.SetupDefault == nil {
		return fmt.Errorf("%w: chip ops for %q not configured", ErrInvalidArgument, o.Name)
	}
	return nil
}

// String returns the family name.
func (o *ChipOps) String() string { return o.Name }

// sockOffset moves a socket 0 register address to socket n.
func sockOffset(reg uint32, n int) uint32 {
	return reg + frame.MakeMap(0, frame.SockReg(n)-frame.SockReg(0))
}

// setupDefault programs the configuration both families share: the whole
// buffer memory goes to socket 0 in MACRAW mode with address filtering and
// multicast blocking, only the receive interrupt is unmasked and the
// interrupt re-assertion timer is set to its maximum.
func setupDefault(m *MAC) error {
	ops := m.ops
	const bufKiB = frame.SocketBufferSize / 1024

	if err := m.writeReg(ops.Reg(RegSockRXBufSize), bufKiB); err != nil {
		return fmt.Errorf("set rx buffer size: %w", err)
	}
	if err := m.writeReg(ops.Reg(RegSockTXBufSize), bufKiB); err != nil {
		return fmt.Errorf("set tx buffer size: %w", err)
	}
	for i := 1; i < socketCount; i++ {
		if err := m.writeReg(sockOffset(ops.Reg(RegSockRXBufSize), i), 0); err != nil {
			return fmt.Errorf("set rx buffer size of socket %d: %w", i, err)
		}
		if err := m.writeReg(sockOffset(ops.Reg(RegSockTXBufSize), i), 0); err != nil {
			return fmt.Errorf("set tx buffer size of socket %d: %w", i, err)
		}
	}

	if err := m.writeReg(ops.SIMR, 0); err != nil {
		return fmt.Errorf("write SIMR: %w", err)
	}
	if err := m.writeReg(ops.Reg(RegSockMR), ops.SMRDefault); err != nil {
		return fmt.Errorf("write socket mode: %w", err)
	}
	if err := m.writeReg(ops.Reg(RegSockIMR), ops.SIRRecv); err != nil {
		return fmt.Errorf("write socket interrupt mask: %w", err)
	}
	if reg := ops.Reg(RegIntLevel); reg != 0 {
		if err := writeU16(m.tr, reg, 0xFFFF); err != nil {
			return fmt.Errorf("write interrupt level: %w", err)
		}
	}
	return nil
}

const socketCount = 8

// Identify reads the identity registers of both families without writing
// anything and returns the ops of the chip that answered.
func Identify(tr Transport) (*ChipOps, error) {
	cid, err := readU16(tr, w6100RegCIDR)
	if err != nil {
		return nil, fmt.Errorf("read CIDR: %w", err)
	}
	if cid == w6100ChipID {
		return W6100, nil
	}
	version, err := readU8(tr, w5500RegVERSIONR)
	if err != nil {
		return nil, fmt.Errorf("read VERSIONR: %w", err)
	}
	if version == w5500Version {
		return W5500, nil
	}
	return nil, fmt.Errorf("%w: CIDR 0x%04x, VERSIONR 0x%02x", ErrInvalidVersion, cid, version)
}
