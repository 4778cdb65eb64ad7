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

// Package testing builds Ethernet frames for tests of the MAC and its
// consumers.
package testing

import (
	"github.com/soypat/lneto/ethernet"
)

// Addresses used across tests
var (
	TestSrcAddr   = [6]byte{0x02, 0x00, 0x5e, 0x10, 0x00, 0x01}
	TestDstAddr   = [6]byte{0x02, 0x00, 0x5e, 0x10, 0x00, 0x02}
	IPv4McastAddr = [6]byte{0x01, 0x00, 0x5e, 0x00, 0x00, 0xfb}
	IPv6McastAddr = [6]byte{0x33, 0x33, 0x00, 0x00, 0x00, 0x01}
	OtherMcast    = [6]byte{0x01, 0x80, 0xc2, 0x00, 0x00, 0x0e}
)

// HeaderLength is the size of an untagged Ethernet header
const HeaderLength = 14

// BuildFrame returns an Ethernet frame of exactly size bytes (at least a
// header). The payload holds a counting pattern so misplaced bytes show up.
func BuildFrame(dst, src [6]byte, etype ethernet.Type, size int) []byte {
	size = max(size, HeaderLength)
	buf := make([]byte, size)
	efrm, err := ethernet.NewFrame(buf)
	if err != nil {
		panic(err)
	}
	*efrm.DestinationHardwareAddr() = dst
	*efrm.SourceHardwareAddr() = src
	efrm.SetEtherType(etype)
	for i := HeaderLength; i < size; i++ {
		buf[i] = byte(i)
	}
	return buf
}

// BuildIPv4Frame returns a unicast IPv4 frame of size bytes
func BuildIPv4Frame(size int) []byte {
	return BuildFrame(TestDstAddr, TestSrcAddr, ethernet.TypeIPv4, size)
}

// BuildBroadcastARP returns a broadcast ARP frame of size bytes
func BuildBroadcastARP(size int) []byte {
	return BuildFrame(ethernet.BroadcastAddr(), TestSrcAddr, ethernet.TypeARP, size)
}

// BuildSequence returns n IPv4 frames whose first payload byte is their index
func BuildSequence(n, size int) [][]byte {
	frames := make([][]byte, n)
	for i := range frames {
		frames[i] = BuildIPv4Frame(size)
		if size > HeaderLength {
			frames[i][HeaderLength] = byte(i)
		}
	}
	return frames
}
