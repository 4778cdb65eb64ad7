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

package eth

import (
	"errors"
	"sync"
	"testing"
	"time"

	wiznet "github.com/ZaparooProject/go-wiznet"
	testutil "github.com/ZaparooProject/go-wiznet/internal/testing"
	"github.com/ZaparooProject/go-wiznet/polling"
	"github.com/soypat/lneto/phy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventually = 2 * time.Second

type linkEvent struct {
	link wiznet.Link
	mode phy.LinkMode
}

type collector struct {
	frames [][]byte
	links  []linkEvent
	err    error
	mu     sync.Mutex
}

func (c *collector) frame(f []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *collector) link(link wiznet.Link, mode phy.LinkMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.links = append(c.links, linkEvent{link: link, mode: mode})
}

func (c *collector) linkEvents() []linkEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]linkEvent(nil), c.links...)
}

func (c *collector) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.frames...)
}

type driverRig struct {
	drv  *Driver
	chip *wiznet.MockChip
	col  *collector
}

func fastMonitor() *polling.Config {
	return &polling.Config{
		PollInterval: time.Millisecond,
		IdleInterval: time.Millisecond,
		IdleAfter:    time.Hour,
	}
}

func newDriverRig(t *testing.T, ops *wiznet.ChipOps, phyOps *wiznet.PHYOps, opts ...Option) *driverRig {
	t.Helper()
	chip := wiznet.NewMockChip(ops)
	mac, err := wiznet.NewMAC(chip, ops,
		wiznet.WithPollPeriod(time.Millisecond),
		wiznet.WithResetTimeout(50*time.Millisecond),
		wiznet.WithTXTimeouts(50*time.Millisecond, 50*time.Millisecond),
	)
	require.NoError(t, err)
	p, err := wiznet.NewPHY(phyOps)
	require.NoError(t, err)

	col := &collector{}
	base := []Option{
		WithMonitorConfig(fastMonitor()),
		WithFrameHandler(col.frame),
		WithLinkHandler(col.link),
	}
	drv, err := New(mac, p, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = drv.Close() })
	return &driverRig{drv: drv, chip: chip, col: col}
}

func TestNew_RequiresBothHalves(t *testing.T) {
	t.Parallel()
	p, err := wiznet.NewPHY(wiznet.W5500PHY)
	require.NoError(t, err)
	_, err = New(nil, p)
	require.ErrorIs(t, err, wiznet.ErrInvalidArgument)

	mac, err := wiznet.NewMAC(wiznet.NewMockChip(wiznet.W5500), wiznet.W5500, wiznet.WithPollPeriod(time.Hour))
	require.NoError(t, err)
	_, err = New(mac, p, WithMonitorConfig(nil))
	require.ErrorIs(t, err, wiznet.ErrInvalidConfig)
}

func TestDriver_Lifecycle(t *testing.T) {
	t.Parallel()
	tests := []struct {
		ops    *wiznet.ChipOps
		phyOps *wiznet.PHYOps
		name   string
		speed  wiznet.Speed
		duplex wiznet.Duplex
		mode   phy.LinkMode
	}{
		{name: "w5500", ops: wiznet.W5500, phyOps: wiznet.W5500PHY,
			speed: wiznet.Speed100M, duplex: wiznet.DuplexFull, mode: phy.Link100FDX},
		{name: "w6100", ops: wiznet.W6100, phyOps: wiznet.W6100PHY,
			speed: wiznet.Speed10M, duplex: wiznet.DuplexHalf, mode: phy.Link10HDX},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rig := newDriverRig(t, tt.ops, tt.phyOps)
			rig.chip.SetLink(true, tt.speed, tt.duplex)

			require.NoError(t, rig.drv.Start(t.Context()))
			require.ErrorIs(t, rig.drv.Start(t.Context()), ErrAlreadyStarted)
			require.Eventually(t, func() bool { return len(rig.col.linkEvents()) == 1 }, eventually, time.Millisecond)
			assert.Equal(t, linkEvent{link: wiznet.LinkUp, mode: tt.mode}, rig.col.linkEvents()[0])
			assert.True(t, rig.chip.IsOpen())
			require.Eventually(t, func() bool { return rig.drv.LinkMode() == tt.mode }, eventually, time.Millisecond)

			want := testutil.BuildIPv4Frame(128)
			require.True(t, rig.chip.InjectFrame(want))
			require.Eventually(t, func() bool { return len(rig.col.received()) == 1 }, eventually, time.Millisecond)
			assert.Equal(t, want, rig.col.received()[0])

			out := testutil.BuildBroadcastARP(60)
			require.NoError(t, rig.drv.Transmit(out))
			assert.Equal(t, [][]byte{out}, rig.chip.Sent())

			rig.chip.SetLink(false, tt.speed, tt.duplex)
			require.Eventually(t, func() bool { return len(rig.col.linkEvents()) == 2 }, eventually, time.Millisecond)
			assert.Equal(t, linkEvent{link: wiznet.LinkDown, mode: phy.LinkDown}, rig.col.linkEvents()[1])
			assert.False(t, rig.chip.IsOpen())

			require.Error(t, rig.drv.Transmit(out), "socket closed while the link is down")
			stats := rig.drv.Stats()
			assert.Equal(t, int64(1), stats.RXFrames)
			assert.Equal(t, int64(1), stats.TXFrames)
			assert.Equal(t, int64(1), stats.TXErrors)

			require.NoError(t, rig.drv.Stop())
			require.ErrorIs(t, rig.drv.Stop(), ErrNotStarted)
			assert.Equal(t, wiznet.PhaseUninitialized, rig.drv.mac.Phase())
		})
	}
}

func TestDriver_StopReportsLinkDown(t *testing.T) {
	t.Parallel()
	rig := newDriverRig(t, wiznet.W5500, wiznet.W5500PHY)
	rig.chip.SetLink(true, wiznet.Speed100M, wiznet.DuplexFull)
	require.NoError(t, rig.drv.Start(t.Context()))
	require.Eventually(t, func() bool { return len(rig.col.linkEvents()) == 1 }, eventually, time.Millisecond)

	require.NoError(t, rig.drv.Stop())
	events := rig.col.linkEvents()
	require.Len(t, events, 2)
	assert.Equal(t, wiznet.LinkDown, events[1].link)
	assert.False(t, rig.chip.IsOpen())
}

func TestDriver_HardwareAddr(t *testing.T) {
	t.Parallel()
	addr := [6]byte{0x02, 0x08, 0xdc, 0x01, 0x02, 0x03}
	rig := newDriverRig(t, wiznet.W6100, wiznet.W6100PHY, WithHardwareAddr(addr))
	require.NoError(t, rig.drv.Start(t.Context()))

	got, err := rig.drv.HardwareAddr()
	require.NoError(t, err)
	assert.Equal(t, addr, got)
}

func TestDriver_StartFailure(t *testing.T) {
	t.Parallel()
	rig := newDriverRig(t, wiznet.W5500, wiznet.W5500PHY)
	rig.chip.SetIdentity(0x51)

	err := rig.drv.Start(t.Context())
	require.ErrorIs(t, err, wiznet.ErrInvalidVersion)
	require.ErrorIs(t, rig.drv.Stop(), ErrNotStarted)

	rig.chip.SetIdentity(0x04)
	require.NoError(t, rig.drv.Start(t.Context()))
}

func TestDriver_OnStateChanged(t *testing.T) {
	t.Parallel()
	rig := newDriverRig(t, wiznet.W5500, wiznet.W5500PHY)
	d := rig.drv

	tests := []struct {
		arg     any
		wantErr error
		name    string
		state   wiznet.State
	}{
		{name: "init notice", state: wiznet.StateLLInit},
		{name: "deinit notice", state: wiznet.StateDeinit},
		{name: "speed", state: wiznet.StateSpeed, arg: wiznet.Speed10M},
		{name: "duplex", state: wiznet.StateDuplex, arg: wiznet.DuplexHalf},
		{name: "speed of wrong type", state: wiznet.StateSpeed, arg: 100, wantErr: wiznet.ErrInvalidArgument},
		{name: "duplex of wrong type", state: wiznet.StateDuplex, arg: "full", wantErr: wiznet.ErrInvalidArgument},
		{name: "link of wrong type", state: wiznet.StateLink, arg: true, wantErr: wiznet.ErrInvalidArgument},
		{name: "pause", state: wiznet.StatePause, arg: uint32(1), wantErr: wiznet.ErrNotSupported},
		{name: "pause of wrong type", state: wiznet.StatePause, arg: 1, wantErr: wiznet.ErrInvalidArgument},
		{name: "unknown state", state: wiznet.State(99), wantErr: wiznet.ErrInvalidArgument},
	}
	for _, tt := range tests {
		err := d.OnStateChanged(tt.state, tt.arg)
		if tt.wantErr == nil {
			require.NoError(t, err, tt.name)
			continue
		}
		require.ErrorIs(t, err, tt.wantErr, tt.name)
	}
}

func TestDriver_StackInput(t *testing.T) {
	t.Parallel()

	t.Run("without handler", func(t *testing.T) {
		t.Parallel()
		chip := wiznet.NewMockChip(wiznet.W5500)
		mac, err := wiznet.NewMAC(chip, wiznet.W5500, wiznet.WithPollPeriod(time.Hour))
		require.NoError(t, err)
		p, err := wiznet.NewPHY(wiznet.W5500PHY)
		require.NoError(t, err)
		d, err := New(mac, p)
		require.NoError(t, err)

		require.NoError(t, d.StackInput(testutil.BuildIPv4Frame(64)))
		assert.Equal(t, int64(1), d.Stats().RXDropped)
	})

	t.Run("handler refuses", func(t *testing.T) {
		t.Parallel()
		rig := newDriverRig(t, wiznet.W5500, wiznet.W5500PHY)
		full := errors.New("queue full")
		rig.col.err = full
		require.ErrorIs(t, rig.drv.StackInput(testutil.BuildIPv4Frame(64)), full)
		assert.Equal(t, int64(1), rig.drv.Stats().RXDropped)
		assert.Zero(t, rig.drv.Stats().RXFrames)
	})
}

func TestDriver_PHYRegisterRouting(t *testing.T) {
	t.Parallel()
	rig := newDriverRig(t, wiznet.W5500, wiznet.W5500PHY)
	require.NoError(t, rig.drv.Start(t.Context()))

	autoneg, speed, duplex, err := rig.drv.phy.GetMode()
	require.NoError(t, err)
	assert.True(t, autoneg)
	assert.Equal(t, wiznet.Speed10M, speed, "no link yet, status bits clear")
	assert.Equal(t, wiznet.DuplexHalf, duplex)
}
