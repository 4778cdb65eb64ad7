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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stateEvent struct {
	arg   any
	state State
}

// recordingMediator records state changes and frames and routes PHY
// register access to a MAC.
type recordingMediator struct {
	mac      *MAC
	stateErr map[State]error
	inputErr error
	states   []stateEvent
	frames   [][]byte
	mu       sync.Mutex
}

func newRecordingMediator(mac *MAC) *recordingMediator {
	return &recordingMediator{mac: mac, stateErr: make(map[State]error)}
}

func (r *recordingMediator) OnStateChanged(state State, arg any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, stateEvent{state: state, arg: arg})
	return r.stateErr[state]
}

func (r *recordingMediator) StackInput(frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inputErr != nil {
		return r.inputErr
	}
	r.frames = append(r.frames, frame)
	return nil
}

func (r *recordingMediator) PHYRegRead(phyAddr, reg uint32) (uint32, error) {
	return r.mac.ReadPHYReg(phyAddr, reg)
}

func (r *recordingMediator) PHYRegWrite(phyAddr, reg, value uint32) error {
	return r.mac.WritePHYReg(phyAddr, reg, value)
}

func (r *recordingMediator) setStateErr(state State, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stateErr[state] = err
}

func (r *recordingMediator) setInputErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputErr = err
}

func (r *recordingMediator) stateList() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.states))
	for i, ev := range r.states {
		out[i] = ev.state
	}
	return out
}

func (r *recordingMediator) events() []stateEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]stateEvent(nil), r.states...)
}

func (r *recordingMediator) received() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.frames...)
}

type testRig struct {
	mac  *MAC
	chip *MockChip
	med  *recordingMediator
}

// newTestMAC builds a MAC over a MockChip in polling mode with a poll
// period long enough that the receive goroutine never runs during a test.
func newTestMAC(t *testing.T, ops *ChipOps, opts ...MACOption) *testRig {
	t.Helper()
	chip := NewMockChip(ops)
	base := []MACOption{
		WithPollPeriod(time.Hour),
		WithResetTimeout(50 * time.Millisecond),
		WithTXTimeouts(50*time.Millisecond, 50*time.Millisecond),
	}
	mac, err := NewMAC(chip, ops, append(base, opts...)...)
	require.NoError(t, err)
	med := newRecordingMediator(mac)
	require.NoError(t, mac.SetMediator(med))
	t.Cleanup(func() { _ = mac.Close() })
	return &testRig{mac: mac, chip: chip, med: med}
}

// newInterruptMAC returns an initialized MAC with socket 0 open and the link
// up, whose receive goroutine is woken only by the mock chip's INTn line.
func newInterruptMAC(t *testing.T, ops *ChipOps, opts ...MACOption) *testRig {
	t.Helper()
	chip := NewMockChip(ops)
	base := []MACOption{
		WithInterruptPin(chip.IntPin()),
		WithResetTimeout(50 * time.Millisecond),
		WithTXTimeouts(50*time.Millisecond, 50*time.Millisecond),
	}
	mac, err := NewMAC(chip, ops, append(base, opts...)...)
	require.NoError(t, err)
	med := newRecordingMediator(mac)
	require.NoError(t, mac.SetMediator(med))
	t.Cleanup(func() { _ = mac.Close() })

	require.NoError(t, mac.Init())
	chip.SetLink(true, Speed100M, DuplexFull)
	require.NoError(t, mac.Start())
	return &testRig{mac: mac, chip: chip, med: med}
}

// newReadyMAC returns an initialized MAC with socket 0 open and the link up
func newReadyMAC(t *testing.T, ops *ChipOps, opts ...MACOption) *testRig {
	t.Helper()
	rig := newTestMAC(t, ops, opts...)
	require.NoError(t, rig.mac.Init())
	rig.chip.SetLink(true, Speed100M, DuplexFull)
	require.NoError(t, rig.mac.Start())
	return rig
}

func countCommand(cmds []byte, cmd byte) int {
	n := 0
	for _, c := range cmds {
		if c == cmd {
			n++
		}
	}
	return n
}

var chipFamilies = []struct {
	ops  *ChipOps
	name string
}{
	{name: "w5500", ops: W5500},
	{name: "w6100", ops: W6100},
}
