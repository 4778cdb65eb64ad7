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
	"errors"
	"testing"
	"time"

	"github.com/ZaparooProject/go-wiznet/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
)

func TestNewMAC_Validation(t *testing.T) {
	t.Parallel()

	brokenOps := *W5500
	brokenOps.Reset = nil

	tests := []struct {
		wantErr error
		tr      Transport
		ops     *ChipOps
		name    string
		opts    []MACOption
	}{
		{
			name:    "neither interrupt nor polling",
			tr:      NewMockChip(W5500),
			ops:     W5500,
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "interrupt and polling together",
			tr:      NewMockChip(W5500),
			ops:     W5500,
			opts:    []MACOption{WithInterruptPin(NewMockInterruptPin()), WithPollPeriod(time.Millisecond)},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "nil transport",
			ops:     W5500,
			opts:    []MACOption{WithPollPeriod(time.Millisecond)},
			wantErr: ErrInvalidArgument,
		},
		{
			name:    "nil chip ops",
			tr:      NewMockChip(W5500),
			opts:    []MACOption{WithPollPeriod(time.Millisecond)},
			wantErr: ErrInvalidArgument,
		},
		{
			name:    "incomplete chip ops",
			tr:      NewMockChip(W5500),
			ops:     &brokenOps,
			opts:    []MACOption{WithPollPeriod(time.Millisecond)},
			wantErr: ErrInvalidArgument,
		},
		{
			name:    "non-positive TX timeout",
			tr:      NewMockChip(W5500),
			ops:     W5500,
			opts:    []MACOption{WithPollPeriod(time.Millisecond), WithTXTimeouts(0, time.Millisecond)},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "nil config",
			tr:      NewMockChip(W5500),
			ops:     W5500,
			opts:    []MACOption{WithMACConfig(nil)},
			wantErr: ErrInvalidConfig,
		},
		{
			name: "polling",
			tr:   NewMockChip(W5500),
			ops:  W5500,
			opts: []MACOption{WithPollPeriod(10 * time.Millisecond)},
		},
		{
			name: "interrupt pin",
			tr:   NewMockChip(W6100),
			ops:  W6100,
			opts: []MACOption{WithInterruptPin(NewMockInterruptPin())},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mac, err := NewMAC(tt.tr, tt.ops, tt.opts...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, mac)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, PhaseUninitialized, mac.Phase())
			assert.NoError(t, mac.Close())
		})
	}
}

func TestNewMAC_DefaultConfigRejected(t *testing.T) {
	t.Parallel()
	cfg := DefaultMACConfig()
	assert.Equal(t, -1, cfg.IntGPIO)
	assert.Zero(t, cfg.PollPeriod)

	_, err := NewMAC(NewMockChip(W5500), W5500, WithMACConfig(cfg))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestMAC_Init(t *testing.T) {
	t.Parallel()
	for _, fam := range chipFamilies {
		t.Run(fam.name, func(t *testing.T) {
			t.Parallel()
			rig := newTestMAC(t, fam.ops)
			require.NoError(t, rig.mac.Init())

			assert.Equal(t, PhaseReady, rig.mac.Phase())
			assert.Equal(t, []State{StateLLInit}, rig.med.stateList())

			ops := fam.ops
			assert.Equal(t, byte(16), rig.chip.Reg(ops.Reg(RegSockRXBufSize)))
			assert.Equal(t, byte(16), rig.chip.Reg(ops.Reg(RegSockTXBufSize)))
			for i := 1; i < socketCount; i++ {
				assert.Zero(t, rig.chip.Reg(sockOffset(ops.Reg(RegSockRXBufSize), i)), "socket %d", i)
				assert.Zero(t, rig.chip.Reg(sockOffset(ops.Reg(RegSockTXBufSize), i)), "socket %d", i)
			}
			assert.Equal(t, ops.SMRDefault, rig.chip.Reg(ops.Reg(RegSockMR)))
			assert.Equal(t, ops.SIRRecv, rig.chip.Reg(ops.Reg(RegSockIMR)))
			assert.Zero(t, rig.chip.Reg(ops.SIMR))
			assert.Equal(t, byte(0xFF), rig.chip.Reg(ops.Reg(RegIntLevel)))
		})
	}
}

func TestMAC_InitFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		setup   func(rig *testRig)
		wantErr error
		ops     *ChipOps
		name    string
		timeout bool
	}{
		{
			name:    "w5500 version mismatch",
			ops:     W5500,
			setup:   func(rig *testRig) { rig.chip.SetIdentity(0x05) },
			wantErr: ErrInvalidVersion,
		},
		{
			name:    "w6100 chip id mismatch",
			ops:     W6100,
			setup:   func(rig *testRig) { rig.chip.SetIdentity(0x5100) },
			wantErr: ErrInvalidVersion,
		},
		{
			name:    "w5500 reset never completes",
			ops:     W5500,
			setup:   func(rig *testRig) { rig.chip.SetResetStuck(true) },
			wantErr: ErrResetTimeout,
			timeout: true,
		},
		{
			name: "mediator refuses lowlevel init",
			ops:  W5500,
			setup: func(rig *testRig) {
				rig.med.setStateErr(StateLLInit, errors.New("no stack"))
			},
		},
		{
			name:    "bus failure",
			ops:     W5500,
			setup:   func(rig *testRig) { rig.chip.SetErrors(ErrTransportRead, ErrTransportWrite) },
			wantErr: ErrTransportWrite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rig := newTestMAC(t, tt.ops)
			tt.setup(rig)

			err := rig.mac.Init()
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.timeout, IsTimeout(err))
			assert.Equal(t, PhaseUninitialized, rig.mac.Phase())
			assert.Equal(t, []State{StateLLInit, StateDeinit}, rig.med.stateList())
		})
	}
}

func TestMAC_InitRequiresMediator(t *testing.T) {
	t.Parallel()
	mac, err := NewMAC(NewMockChip(W5500), W5500, WithPollPeriod(time.Hour))
	require.NoError(t, err)
	defer func() { _ = mac.Close() }()

	require.ErrorIs(t, mac.Init(), ErrNoMediator)
	require.ErrorIs(t, mac.SetMediator(nil), ErrInvalidArgument)
}

func TestMAC_InitTwice(t *testing.T) {
	t.Parallel()
	rig := newTestMAC(t, W5500)
	require.NoError(t, rig.mac.Init())
	require.ErrorIs(t, rig.mac.Init(), ErrInvalidState)
}

func TestMAC_InitInterruptPin(t *testing.T) {
	t.Parallel()
	chip := NewMockChip(W5500)
	rig := newTestMAC(t, W5500, WithInterruptPin(chip.IntPin()), WithPollPeriod(0))
	// the pin belongs to a different chip here; only its configuration is checked
	require.NoError(t, rig.mac.Init())
	assert.Equal(t, gpio.FallingEdge, chip.IntPin().Edge())

	require.NoError(t, rig.mac.Deinit())
	assert.Equal(t, gpio.NoEdge, chip.IntPin().Edge())
}

func TestMAC_Deinit(t *testing.T) {
	t.Parallel()
	rig := newReadyMAC(t, W5500)
	require.True(t, rig.chip.IsOpen())

	require.NoError(t, rig.mac.Deinit())
	assert.False(t, rig.chip.IsOpen())
	assert.Equal(t, PhaseUninitialized, rig.mac.Phase())
	assert.Equal(t, []State{StateLLInit, StateDeinit}, rig.med.stateList())

	// a second init after deinit is allowed
	require.NoError(t, rig.mac.Init())
	assert.Equal(t, PhaseReady, rig.mac.Phase())
}

func TestMAC_StartStop(t *testing.T) {
	t.Parallel()
	for _, fam := range chipFamilies {
		t.Run(fam.name, func(t *testing.T) {
			t.Parallel()
			rig := newTestMAC(t, fam.ops)
			require.NoError(t, rig.mac.Init())

			require.NoError(t, rig.mac.Start())
			assert.True(t, rig.chip.IsOpen())
			assert.Equal(t, fam.ops.SIMRSock0, rig.chip.Reg(fam.ops.SIMR))

			require.NoError(t, rig.mac.Stop())
			assert.False(t, rig.chip.IsOpen())
			assert.Zero(t, rig.chip.Reg(fam.ops.SIMR))

			assert.Equal(t, []byte{fam.ops.CmdOpen, fam.ops.CmdClose}, rig.chip.Commands())
		})
	}
}

func TestMAC_CommandTimeout(t *testing.T) {
	t.Parallel()
	rig := newTestMAC(t, W5500)
	require.NoError(t, rig.mac.Init())
	rig.chip.SetCommandStuck(true)

	start := time.Now()
	err := rig.mac.Start()
	require.ErrorIs(t, err, ErrCommandTimeout)
	assert.True(t, IsTimeout(err))
	assert.True(t, IsRetryable(err))
	assert.GreaterOrEqual(t, time.Since(start), commandTimeout)

	rig.chip.SetCommandStuck(false)
}

func TestMAC_SetLink(t *testing.T) {
	t.Parallel()
	rig := newTestMAC(t, W5500)
	require.NoError(t, rig.mac.Init())

	require.NoError(t, rig.mac.SetLink(LinkUp))
	assert.True(t, rig.chip.IsOpen())
	require.NoError(t, rig.mac.SetLink(LinkDown))
	assert.False(t, rig.chip.IsOpen())
	require.ErrorIs(t, rig.mac.SetLink(Link(7)), ErrInvalidArgument)
}

func TestMAC_SetSpeed(t *testing.T) {
	t.Parallel()
	rig := newTestMAC(t, W5500, WithTXTimeouts(200*time.Microsecond, 1500*time.Microsecond))

	require.NoError(t, rig.mac.SetSpeed(Speed10M))
	assert.Equal(t, 1500*time.Microsecond, rig.mac.txDeadline())
	require.NoError(t, rig.mac.SetSpeed(Speed100M))
	assert.Equal(t, 200*time.Microsecond, rig.mac.txDeadline())
	require.ErrorIs(t, rig.mac.SetSpeed(Speed(9)), ErrInvalidArgument)

	require.NoError(t, rig.mac.SetDuplex(DuplexHalf))
	require.NoError(t, rig.mac.SetDuplex(DuplexFull))
	require.ErrorIs(t, rig.mac.SetDuplex(Duplex(9)), ErrInvalidArgument)
}

func TestMAC_SetPromiscuous(t *testing.T) {
	t.Parallel()
	for _, fam := range chipFamilies {
		t.Run(fam.name, func(t *testing.T) {
			t.Parallel()
			rig := newTestMAC(t, fam.ops)
			require.NoError(t, rig.mac.Init())
			mr := fam.ops.Reg(RegSockMR)
			filter := fam.ops.SMRMACFilter

			before := rig.chip.Writes(mr)
			require.NoError(t, rig.mac.SetPromiscuous(true))
			assert.Equal(t, before+1, rig.chip.Writes(mr))
			require.NoError(t, rig.mac.SetPromiscuous(true))
			assert.Equal(t, before+1, rig.chip.Writes(mr), "no write when already promiscuous")
			assert.Zero(t, rig.chip.Reg(mr)&filter)
			assert.Equal(t, fam.ops.SMRDefault&^filter, rig.chip.Reg(mr))

			require.NoError(t, rig.mac.SetPromiscuous(false))
			assert.Equal(t, before+2, rig.chip.Writes(mr))
			assert.Equal(t, fam.ops.SMRDefault, rig.chip.Reg(mr))
			require.NoError(t, rig.mac.SetPromiscuous(false))
			assert.Equal(t, before+2, rig.chip.Writes(mr))
		})
	}
}

func TestMAC_Addr(t *testing.T) {
	t.Parallel()
	for _, fam := range chipFamilies {
		t.Run(fam.name, func(t *testing.T) {
			t.Parallel()
			rig := newTestMAC(t, fam.ops)
			want := [6]byte{0x02, 0x08, 0xdc, 0x01, 0x02, 0x03}
			require.NoError(t, rig.mac.SetAddr(want))
			got, err := rig.mac.Addr()
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestMAC_UnsupportedFeatures(t *testing.T) {
	t.Parallel()
	rig := newTestMAC(t, W5500)
	require.ErrorIs(t, rig.mac.EnableFlowControl(true), ErrNotSupported)
	require.ErrorIs(t, rig.mac.SetPeerPauseAbility(1), ErrNotSupported)
}

func TestMAC_PHYRegisterAccess(t *testing.T) {
	t.Parallel()
	rig := newTestMAC(t, W5500)
	rig.chip.SetLink(true, Speed100M, DuplexFull)

	v, err := rig.mac.ReadPHYReg(0, w5500RegPHYCFGR)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xBF), v)

	require.NoError(t, rig.mac.WritePHYReg(0, w5500RegPHYCFGR, 0x1F8))
	assert.Equal(t, byte(0xFF), rig.chip.Reg(w5500RegPHYCFGR))
}

func TestMAC_ClosedTransport(t *testing.T) {
	t.Parallel()
	rig := newTestMAC(t, W5500)
	require.NoError(t, rig.chip.Close())
	_, err := rig.mac.Addr()
	require.ErrorIs(t, err, ErrTransportClosed)
}

func TestPhase_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ready", PhaseReady.String())
	assert.Equal(t, "Phase(42)", Phase(42).String())
}

func TestSockOffset(t *testing.T) {
	t.Parallel()
	base := W5500.Reg(RegSockRXBufSize)
	assert.Equal(t, frame.SockReg(3), frame.Block(sockOffset(base, 3)))
	assert.Equal(t, frame.Offset(base), frame.Offset(sockOffset(base, 3)))
}
