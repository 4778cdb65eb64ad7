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
)

type mcastFamily int

const (
	mcastOther mcastFamily = iota
	mcastIPv4
	mcastIPv6
)

// classifyMulticast maps a group address to the IP family that owns its prefix
func classifyMulticast(addr [6]byte) mcastFamily {
	switch {
	case addr[0] == 0x01 && addr[1] == 0x00 && addr[2] == 0x5e:
		return mcastIPv4
	case addr[0] == 0x33 && addr[1] == 0x33:
		return mcastIPv6
	default:
		return mcastOther
	}
}

// AddMACFilter accepts frames sent to a multicast group address. The chip
// filters per family rather than per group, so the family's block bit is
// cleared on the first address and the count tracks the rest.
func (m *MAC) AddMACFilter(addr [6]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch classifyMulticast(addr) {
	case mcastIPv4:
		if m.mcastV4 == 0 {
			if err := m.blockMulticast(false, m.mcastV6 == 0); err != nil {
				return err
			}
		}
		m.mcastV4++
	case mcastIPv6:
		if m.ops.SMRBlockMcastV6 == 0 {
			m.warn("IPv6 multicast is always received", slog.String("addr", hwAddr(addr)))
			return nil
		}
		if m.mcastV6 == 0 {
			if err := m.blockMulticast(m.mcastV4 == 0, false); err != nil {
				return err
			}
		}
		m.mcastV6++
	default:
		m.logerr("only IPv4 and IPv6 multicast addresses can be filtered", slog.String("addr", hwAddr(addr)))
		return fmt.Errorf("%w: filter for %s", ErrNotSupported, hwAddr(addr))
	}
	return nil
}

// RemoveMACFilter drops one reference to a multicast group address and
// blocks the family again once none are left.
func (m *MAC) RemoveMACFilter(addr [6]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch classifyMulticast(addr) {
	case mcastIPv4:
		if m.mcastV4 == 0 {
			return fmt.Errorf("%w: no IPv4 multicast filter to remove", ErrInvalidState)
		}
		m.mcastV4--
		if m.mcastV4 == 0 {
			return m.blockMulticast(true, m.mcastV6 == 0)
		}
	case mcastIPv6:
		if m.ops.SMRBlockMcastV6 == 0 {
			return fmt.Errorf("%w: IPv6 multicast cannot be blocked on %s", ErrNotSupported, m.ops.Name)
		}
		if m.mcastV6 == 0 {
			return fmt.Errorf("%w: no IPv6 multicast filter to remove", ErrInvalidState)
		}
		m.mcastV6--
		if m.mcastV6 == 0 {
			return m.blockMulticast(m.mcastV4 == 0, true)
		}
	default:
		return fmt.Errorf("%w: filter for %s", ErrNotSupported, hwAddr(addr))
	}
	return nil
}

// SetAllMulticast accepts or blocks every multicast frame and forgets the
// per-family counts.
func (m *MAC) SetAllMulticast(enable bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.blockMulticast(!enable, !enable); err != nil {
		return err
	}
	m.mcastV4 = 0
	m.mcastV6 = 0
	if enable {
		m.warn("receiving all multicast frames, group filters are reset")
	} else {
		m.warn("blocking all multicast frames, group filters are reset")
	}
	return nil
}

// blockMulticast sets the block bits of Sn_MR with a read-modify-write
func (m *MAC) blockMulticast(v4, v6 bool) error {
	return m.modifyReg(m.ops.Reg(RegSockMR), func(smr byte) byte {
		smr = setBits(smr, m.ops.SMRBlockMcastV4, v4)
		return setBits(smr, m.ops.SMRBlockMcastV6, v6)
	})
}

func setBits(v, mask byte, on bool) byte {
	if on {
		return v | mask
	}
	return v &^ mask
}
