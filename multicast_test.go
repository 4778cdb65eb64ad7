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
	"testing"

	testutil "github.com/ZaparooProject/go-wiznet/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyMulticast(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		addr [6]byte
		want mcastFamily
	}{
		{name: "ipv4 group", addr: testutil.IPv4McastAddr, want: mcastIPv4},
		{name: "ipv6 group", addr: testutil.IPv6McastAddr, want: mcastIPv6},
		{name: "ipv6 solicited node", addr: [6]byte{0x33, 0x33, 0xff, 0x12, 0x34, 0x56}, want: mcastIPv6},
		{name: "link local control", addr: testutil.OtherMcast, want: mcastOther},
		{name: "unicast", addr: testutil.TestDstAddr, want: mcastOther},
		{name: "ipv4 prefix with wrong third byte", addr: [6]byte{0x01, 0x00, 0x5f, 0, 0, 1}, want: mcastOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, classifyMulticast(tt.addr))
		})
	}
}

func sockMR(rig *testRig) byte {
	return rig.chip.Reg(rig.mac.ops.Reg(RegSockMR))
}

func TestMulticast_IPv4RefCount(t *testing.T) {
	t.Parallel()
	for _, fam := range chipFamilies {
		t.Run(fam.name, func(t *testing.T) {
			t.Parallel()
			rig := newReadyMAC(t, fam.ops)
			block := fam.ops.SMRBlockMcastV4
			require.NotZero(t, sockMR(rig)&block, "blocked after init")

			other := [6]byte{0x01, 0x00, 0x5e, 0x7f, 0xff, 0xfa}
			require.NoError(t, rig.mac.AddMACFilter(testutil.IPv4McastAddr))
			assert.Zero(t, sockMR(rig)&block)
			require.NoError(t, rig.mac.AddMACFilter(other))

			require.NoError(t, rig.mac.RemoveMACFilter(testutil.IPv4McastAddr))
			assert.Zero(t, sockMR(rig)&block, "still one group joined")
			require.NoError(t, rig.mac.RemoveMACFilter(other))
			assert.NotZero(t, sockMR(rig)&block)

			err := rig.mac.RemoveMACFilter(other)
			require.ErrorIs(t, err, ErrInvalidState)
			assert.NotZero(t, sockMR(rig)&fam.ops.SMRMACRaw, "mode bits untouched")
		})
	}
}

func TestMulticast_IPv6(t *testing.T) {
	t.Parallel()

	t.Run("w5500 always receives", func(t *testing.T) {
		t.Parallel()
		rig := newReadyMAC(t, W5500)
		before := sockMR(rig)
		require.NoError(t, rig.mac.AddMACFilter(testutil.IPv6McastAddr))
		assert.Equal(t, before, sockMR(rig))

		err := rig.mac.RemoveMACFilter(testutil.IPv6McastAddr)
		require.ErrorIs(t, err, ErrNotSupported)
	})

	t.Run("w6100 filters", func(t *testing.T) {
		t.Parallel()
		rig := newReadyMAC(t, W6100)
		v4, v6 := W6100.SMRBlockMcastV4, W6100.SMRBlockMcastV6

		require.NoError(t, rig.mac.AddMACFilter(testutil.IPv6McastAddr))
		assert.Zero(t, sockMR(rig)&v6)
		assert.NotZero(t, sockMR(rig)&v4)

		require.NoError(t, rig.mac.AddMACFilter(testutil.IPv4McastAddr))
		assert.Zero(t, sockMR(rig)&(v4|v6))

		require.NoError(t, rig.mac.RemoveMACFilter(testutil.IPv6McastAddr))
		assert.NotZero(t, sockMR(rig)&v6)
		assert.Zero(t, sockMR(rig)&v4)

		require.ErrorIs(t, rig.mac.RemoveMACFilter(testutil.IPv6McastAddr), ErrInvalidState)
	})
}

func TestMulticast_OtherAddress(t *testing.T) {
	t.Parallel()
	rig := newReadyMAC(t, W6100)
	before := sockMR(rig)
	require.ErrorIs(t, rig.mac.AddMACFilter(testutil.OtherMcast), ErrNotSupported)
	require.ErrorIs(t, rig.mac.RemoveMACFilter(testutil.OtherMcast), ErrNotSupported)
	assert.Equal(t, before, sockMR(rig))
}

func TestMulticast_SetAll(t *testing.T) {
	t.Parallel()
	for _, fam := range chipFamilies {
		t.Run(fam.name, func(t *testing.T) {
			t.Parallel()
			rig := newReadyMAC(t, fam.ops)
			blocks := fam.ops.SMRBlockMcastV4 | fam.ops.SMRBlockMcastV6

			require.NoError(t, rig.mac.AddMACFilter(testutil.IPv4McastAddr))
			require.NoError(t, rig.mac.SetAllMulticast(true))
			assert.Zero(t, sockMR(rig)&blocks)

			require.NoError(t, rig.mac.SetAllMulticast(false))
			assert.Equal(t, blocks, sockMR(rig)&blocks)

			// the count was reset with the mode change
			require.ErrorIs(t, rig.mac.RemoveMACFilter(testutil.IPv4McastAddr), ErrInvalidState)
		})
	}
}

func TestMulticast_BusError(t *testing.T) {
	t.Parallel()
	rig := newReadyMAC(t, W5500)
	rig.chip.SetErrors(ErrTransportRead, nil)
	require.Error(t, rig.mac.AddMACFilter(testutil.IPv4McastAddr))

	rig.chip.SetErrors(nil, nil)
	require.ErrorIs(t, rig.mac.RemoveMACFilter(testutil.IPv4McastAddr), ErrInvalidState, "count unchanged after a failed add")
}

func TestSetBits(t *testing.T) {
	t.Parallel()
	assert.Equal(t, byte(0x41), setBits(0x01, 0x40, true))
	assert.Equal(t, byte(0x01), setBits(0x41, 0x40, false))
	assert.Equal(t, byte(0x41), setBits(0x41, 0, false))
}
