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

// Package frame provides the SPI frame encoding and wire constants shared by
// WIZnet W5500/W6100 transports.
package frame

// Control phase bits. The operation mode field (bits 1..0) is always 00,
// variable-length data mode, since chip select frames every transaction.
const (
	ControlWrite    = 0x04 // RWB bit, 1 selects a write
	ControlRead     = 0x00
	ControlBSBShift = 3
	ControlBSBMask  = 0x1F
	ControlOMVDM    = 0x00
)

// Frame layout.
const (
	// HeaderLength is the address phase (2 bytes) plus the control phase.
	HeaderLength = 3
	// InlineReadMax is the largest read served by the stack-allocated path.
	InlineReadMax = 4
)

// Block select values. Socket n owns three consecutive blocks starting at 4n+1.
const (
	BlockCommon = 0x00
)

// Ethernet sizes used by the ring protocol.
const (
	MaxPacketSize = 1514 // destination + source + type + 1500 payload, no CRC
	MinPacketSize = 64
	CRCLength     = 4
	// MinRxPayload is the smallest frame the chip hands over once the CRC is stripped.
	MinRxPayload = MinPacketSize - CRCLength
	// RxHeaderLength is the big-endian length prefix the chip writes in front of
	// every received frame. The value counts the prefix itself.
	RxHeaderLength = 2
	// SocketBufferSize is the ring size of socket 0 once every other socket gets none.
	SocketBufferSize = 16 * 1024
)

// SockReg returns the block select value for socket n's register block.
func SockReg(n int) uint8 { return uint8(4*n + 1) }

// SockTX returns the block select value for socket n's TX buffer.
func SockTX(n int) uint8 { return uint8(4*n + 2) }

// SockRX returns the block select value for socket n's RX buffer.
func SockRX(n int) uint8 { return uint8(4*n + 3) }

// MakeMap packs a 16-bit offset and a block select value into the address
// format used throughout the chip register tables.
func MakeMap(offset uint16, bsb uint8) uint32 {
	return uint32(offset)<<16 | uint32(bsb&ControlBSBMask)<<ControlBSBShift
}

// WithOffset applies a buffer offset to a memory block base address.
func WithOffset(base uint32, offset uint16) uint32 {
	return base | uint32(offset)<<16
}

// Offset extracts the 16-bit address phase from a mapped address.
func Offset(addr uint32) uint16 { return uint16(addr >> 16) }

// Block extracts the block select value from a mapped address.
func Block(addr uint32) uint8 { return uint8(addr>>ControlBSBShift) & ControlBSBMask }

// PutHeader writes the address and control phases for addr into dst, which
// must hold at least HeaderLength bytes.
func PutHeader(dst []byte, addr uint32, write bool) {
	_ = dst[HeaderLength-1]
	ctrl := byte(addr) &^ (ControlWrite | 0x03)
	if write {
		ctrl |= ControlWrite
	}
	dst[0] = byte(addr >> 24)
	dst[1] = byte(addr >> 16)
	dst[2] = ctrl | ControlOMVDM
}
