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

	"github.com/ZaparooProject/go-wiznet/internal/frame"
	testutil "github.com/ZaparooProject/go-wiznet/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceive_LoopbackRoundTrip(t *testing.T) {
	t.Parallel()
	for _, fam := range chipFamilies {
		t.Run(fam.name, func(t *testing.T) {
			t.Parallel()
			rig := newReadyMAC(t, fam.ops)
			rig.chip.SetLoopback(true)

			for _, size := range []int{60, 333, frame.MaxPacketSize} {
				want := testutil.BuildIPv4Frame(size)
				require.NoError(t, rig.mac.Transmit(want))

				dst := make([]byte, frame.MaxPacketSize)
				n, err := rig.mac.Receive(dst)
				require.NoError(t, err)
				require.Equal(t, size, n)
				assert.Equal(t, want, dst[:n])
				assert.False(t, rig.mac.PacketsRemain())
			}
			assert.Zero(t, rig.chip.Pending())
		})
	}
}

func TestReceive_MinimumSizeBoundary(t *testing.T) {
	t.Parallel()
	for _, fam := range chipFamilies {
		t.Run(fam.name, func(t *testing.T) {
			t.Parallel()
			rig := newReadyMAC(t, fam.ops)
			dst := make([]byte, frame.MaxPacketSize)

			require.True(t, rig.chip.InjectFrame(testutil.BuildIPv4Frame(frame.MinRxPayload)))
			n, err := rig.mac.Receive(dst)
			require.NoError(t, err)
			assert.Equal(t, frame.MinRxPayload, n)

			require.True(t, rig.chip.InjectFrame(testutil.BuildIPv4Frame(frame.MinRxPayload-1)))
			n, err = rig.mac.Receive(dst)
			require.ErrorIs(t, err, ErrInvalidFrameSize)
			assert.Zero(t, n)
			assert.Zero(t, rig.chip.Pending(), "runt frame is skipped")
		})
	}
}

func TestReceiveFrame_RejectsRunt(t *testing.T) {
	t.Parallel()
	rig := newReadyMAC(t, W5500)
	require.True(t, rig.chip.InjectFrame(testutil.BuildIPv4Frame(20)))
	require.True(t, rig.chip.InjectFrame(testutil.BuildIPv4Frame(100)))

	buf, err := rig.mac.ReceiveFrame()
	require.ErrorIs(t, err, ErrInvalidFrameSize)
	assert.Nil(t, buf)
	assert.True(t, rig.mac.PacketsRemain())

	buf, err = rig.mac.ReceiveFrame()
	require.NoError(t, err)
	assert.Len(t, buf, 100)
}

func TestReceive_Truncated(t *testing.T) {
	t.Parallel()
	rig := newReadyMAC(t, W6100)
	want := testutil.BuildIPv4Frame(200)
	require.True(t, rig.chip.InjectFrame(want))
	require.True(t, rig.chip.InjectFrame(testutil.BuildIPv4Frame(70)))

	dst := make([]byte, 100)
	n, err := rig.mac.Receive(dst)
	require.ErrorIs(t, err, ErrFrameTruncated)
	assert.Equal(t, 100, n)
	assert.Equal(t, want[:100], dst)

	// the ring moved past the whole truncated frame
	n, err = rig.mac.Receive(dst)
	require.NoError(t, err)
	assert.Equal(t, 70, n)
	assert.Zero(t, rig.chip.Pending())
}

func TestReceive_Empty(t *testing.T) {
	t.Parallel()
	rig := newReadyMAC(t, W5500)

	n, err := rig.mac.Receive(make([]byte, 64))
	require.NoError(t, err)
	assert.Zero(t, n)

	buf, err := rig.mac.ReceiveFrame()
	require.NoError(t, err)
	assert.Nil(t, buf)
	assert.False(t, rig.mac.PacketsRemain())
}

func TestReceiveFrame_NoMemory(t *testing.T) {
	t.Parallel()
	rig := newReadyMAC(t, W5500, WithAllocator(func(int) []byte { return nil }))
	require.True(t, rig.chip.InjectFrame(testutil.BuildIPv4Frame(128)))

	buf, err := rig.mac.ReceiveFrame()
	require.ErrorIs(t, err, ErrNoMem)
	assert.Nil(t, buf)
	assert.Zero(t, rig.chip.Pending(), "frame is flushed")
}

func TestReceiveFrame_PacketsRemain(t *testing.T) {
	t.Parallel()
	rig := newReadyMAC(t, W6100)
	frames := testutil.BuildSequence(3, 90)
	for _, f := range frames {
		require.True(t, rig.chip.InjectFrame(f))
	}

	for i, want := range frames {
		buf, err := rig.mac.ReceiveFrame()
		require.NoError(t, err)
		assert.Equal(t, want, buf)
		assert.Equal(t, i < len(frames)-1, rig.mac.PacketsRemain(), "after frame %d", i)
	}
}

func TestReceive_StableCounterThirdRead(t *testing.T) {
	t.Parallel()
	rig := newReadyMAC(t, W5500)
	want := testutil.BuildIPv4Frame(64)
	require.True(t, rig.chip.InjectFrame(want))
	rig.chip.SetUnstableReads(1)

	dst := make([]byte, 128)
	n, err := rig.mac.Receive(dst)
	require.NoError(t, err)
	assert.Equal(t, want, dst[:n])
	assert.Equal(t, 3, rig.chip.Reads(W5500.SockRXRSR))
}

func TestReceive_CorruptLengthResyncs(t *testing.T) {
	t.Parallel()
	oversized := make([]byte, 1800)
	putU16(oversized, uint16(len(oversized)))

	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "shorter than the prefix", raw: []byte{0x00, 0x01, 0xAA, 0xBB}},
		{name: "beyond the pending bytes", raw: []byte{0x04, 0x00, 0xAA, 0xBB}},
		{name: "above the largest frame", raw: oversized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rig := newReadyMAC(t, W5500)
			rig.chip.InjectRaw(tt.raw)

			_, err := rig.mac.Receive(make([]byte, frame.MaxPacketSize))
			require.ErrorIs(t, err, ErrInvalidFrameSize)
			assert.Zero(t, rig.chip.Pending())
			assert.True(t, rig.chip.IsOpen())

			cmds := rig.chip.Commands()
			require.GreaterOrEqual(t, len(cmds), 2)
			assert.Equal(t, []byte{W5500.CmdClose, W5500.CmdOpen}, cmds[len(cmds)-2:])
		})
	}
}

func TestReceive_RingWraps(t *testing.T) {
	t.Parallel()
	rig := newReadyMAC(t, W5500)
	dst := make([]byte, frame.MaxPacketSize)

	for i := range 30 {
		want := testutil.BuildIPv4Frame(1000 + i)
		require.True(t, rig.chip.InjectFrame(want))
		n, err := rig.mac.Receive(dst)
		require.NoError(t, err)
		require.Equal(t, want, dst[:n], "frame %d", i)
	}
}

func TestFlush(t *testing.T) {
	t.Parallel()
	rig := newReadyMAC(t, W6100)
	for _, f := range testutil.BuildSequence(5, 70) {
		require.True(t, rig.chip.InjectFrame(f))
	}

	require.NoError(t, rig.mac.Flush())
	assert.Zero(t, rig.chip.Pending())
	assert.False(t, rig.mac.PacketsRemain())
}

func TestReceive_RingFull(t *testing.T) {
	t.Parallel()
	chip := NewMockChip(W5500)
	n := 0
	for chip.InjectFrame(testutil.BuildIPv4Frame(frame.MaxPacketSize)) {
		n++
	}
	assert.Equal(t, frame.SocketBufferSize/(frame.MaxPacketSize+frame.RxHeaderLength), n)
}
