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

	"github.com/soypat/lneto/phy"
)

// State identifies a notification sent to the Mediator
type State int

const (
	// StateLLInit is sent when low level initialization starts
	StateLLInit State = iota
	// StateDeinit is sent when the device is torn down or init unwinds
	StateDeinit
	// StateLink carries a Link value
	StateLink
	// StateSpeed carries a Speed value
	StateSpeed
	// StateDuplex carries a Duplex value
	StateDuplex
	// StatePause carries the peer pause ability as uint32
	StatePause
)

func (s State) String() string {
	switch s {
	case StateLLInit:
		return "llinit"
	case StateDeinit:
		return "deinit"
	case StateLink:
		return "link"
	case StateSpeed:
		return "speed"
	case StateDuplex:
		return "duplex"
	case StatePause:
		return "pause"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Link is the Ethernet link state
type Link int

const (
	LinkUp Link = iota
	LinkDown
)

func (l Link) String() string {
	switch l {
	case LinkUp:
		return "up"
	case LinkDown:
		return "down"
	default:
		return fmt.Sprintf("Link(%d)", int(l))
	}
}

// Speed is the Ethernet line speed
type Speed int

const (
	Speed10M Speed = iota
	Speed100M
)

func (s Speed) String() string {
	switch s {
	case Speed10M:
		return "10M"
	case Speed100M:
		return "100M"
	default:
		return fmt.Sprintf("Speed(%d)", int(s))
	}
}

// Duplex is the Ethernet duplex mode
type Duplex int

const (
	DuplexHalf Duplex = iota
	DuplexFull
)

func (d Duplex) String() string {
	switch d {
	case DuplexHalf:
		return "half"
	case DuplexFull:
		return "full"
	default:
		return fmt.Sprintf("Duplex(%d)", int(d))
	}
}

// LinkMode converts a speed and duplex pair to the lneto representation.
func LinkMode(speed Speed, duplex Duplex) phy.LinkMode {
	switch {
	case speed == Speed100M && duplex == DuplexFull:
		return phy.Link100FDX
	case speed == Speed100M:
		return phy.Link100HDX
	case duplex == DuplexFull:
		return phy.Link10FDX
	default:
		return phy.Link10HDX
	}
}

// Mediator is the framework side of the driver. The MAC reports lifecycle
// events and hands received frames to it; the PHY reaches MAC registers
// through it and reports link changes to it.
type Mediator interface {
	// OnStateChanged receives lifecycle and link notifications
	OnStateChanged(state State, arg any) error

	// StackInput takes ownership of a received frame
	StackInput(frame []byte) error

	// PHYRegRead reads a PHY register through the MAC
	PHYRegRead(phyAddr, reg uint32) (uint32, error)

	// PHYRegWrite writes a PHY register through the MAC
	PHYRegWrite(phyAddr, reg, value uint32) error
}
