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
	"encoding/binary"
)

// Transport moves bytes between the host and a WIZnet chip.
// Addresses use the mapped form built by frame.MakeMap: the upper 16 bits
// carry the address phase and the low byte carries the block select bits.
// Implementations must serialize whole transactions; callers never see
// interleaving at the byte level.
type Transport interface {
	// Read fills dst starting at addr
	Read(addr uint32, dst []byte) error

	// Write sends src starting at addr
	Write(addr uint32, src []byte) error

	// Close releases the bus
	Close() error

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportSPI represents a SPI bus transport.
	TransportSPI TransportType = "spi"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

func readU8(tr Transport, addr uint32) (byte, error) {
	var b [1]byte
	if err := tr.Read(addr, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func writeU8(tr Transport, addr uint32, v byte) error {
	b := [1]byte{v}
	return tr.Write(addr, b[:])
}

// readU16 reads a big-endian 16-bit register pair.
func readU16(tr Transport, addr uint32) (uint16, error) {
	var b [2]byte
	if err := tr.Read(addr, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func writeU16(tr Transport, addr uint32, v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return tr.Write(addr, b[:])
}
