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

package polling

import (
	"time"

	"github.com/soypat/lneto/phy"
)

// LinkPhase describes where the monitor is in the link lifecycle
type LinkPhase int

const (
	// PhaseUnknown means no poll has completed yet
	PhaseUnknown LinkPhase = iota
	// PhaseDown means the last poll saw no link
	PhaseDown
	// PhaseUp means the link is up and its mode has been reported
	PhaseUp
	// PhaseIdle means the link has been down long enough to poll slowly
	PhaseIdle
)

func (p LinkPhase) String() string {
	switch p {
	case PhaseUnknown:
		return "unknown"
	case PhaseDown:
		return "down"
	case PhaseUp:
		return "up"
	case PhaseIdle:
		return "idle"
	default:
		return "invalid"
	}
}

// LinkState is the monitor's view of the link
type LinkState struct {
	Since time.Time
	Mode  phy.LinkMode
	Phase LinkPhase
	Flaps int
}

// Up reports whether the link was up at the last poll
func (s *LinkState) Up() bool {
	return s.Phase == PhaseUp
}

// TransitionToUp records a link that came up in mode
func (s *LinkState) TransitionToUp(mode phy.LinkMode, now time.Time) {
	s.Phase = PhaseUp
	s.Mode = mode
	s.Since = now
}

// TransitionToDown records a link that went down. A link that was up
// counts as a flap.
func (s *LinkState) TransitionToDown(now time.Time) {
	if s.Phase == PhaseUp {
		s.Flaps++
	}
	s.Phase = PhaseDown
	s.Mode = phy.LinkDown
	s.Since = now
}

// TransitionToIdle marks a link that stayed down for a while
func (s *LinkState) TransitionToIdle() {
	if s.Phase == PhaseDown {
		s.Phase = PhaseIdle
	}
}

// DownFor returns how long the link has been down, zero while it is up
func (s *LinkState) DownFor(now time.Time) time.Duration {
	if s.Phase != PhaseDown && s.Phase != PhaseIdle {
		return 0
	}
	return now.Sub(s.Since)
}

// ModeName describes a link mode for logs and output
func ModeName(mode phy.LinkMode) string {
	switch mode {
	case phy.Link10HDX:
		return "10M half duplex"
	case phy.Link10FDX:
		return "10M full duplex"
	case phy.Link100HDX:
		return "100M half duplex"
	case phy.Link100FDX:
		return "100M full duplex"
	case phy.LinkDown:
		return "down"
	default:
		return "unknown"
	}
}
