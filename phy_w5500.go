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
	"time"
)

// PHYCFGR fields
const (
	w5500PHYCFGRRst    = 0x80 // cleared to reset the PHY
	w5500PHYCFGROpsel  = 0x40 // mode taken from OPMDC instead of pins
	w5500OpmodeShift   = 3
	w5500OpmodeMask    = 0x07
	w5500Opmode100HAN  = 4 // 100BT half duplex, auto-negotiation enabled
	w5500OpmodeAll     = 7 // all capable, auto-negotiation enabled
	w5500PHYResetPause = 10 * time.Millisecond
)

// W5500PHY describes the internal PHY of the W5500.
var W5500PHY = &PHYOps{
	Name:        "w5500",
	StatusReg:   w5500RegPHYCFGR,
	OpmodeReg:   w5500RegPHYCFGR,
	OpmodeShift: w5500OpmodeShift,
	OpmodeMask:  w5500OpmodeMask,

	SpeedWhenSet:    Speed100M,
	SpeedWhenClear:  Speed10M,
	DuplexWhenSet:   DuplexFull,
	DuplexWhenClear: DuplexHalf,

	FixedModes: map[byte]FixedMode{
		0: {Speed10M, DuplexHalf},
		1: {Speed10M, DuplexFull},
		2: {Speed100M, DuplexHalf},
		3: {Speed100M, DuplexFull},
	},
	AutonegEnabled: func(opmode byte) bool {
		return opmode == w5500OpmodeAll || opmode == w5500Opmode100HAN
	},
	SetMode:      w5500PHYSetMode,
	Reset:        w5500PHYReset,
	PowerControl: func(*PHY, bool) error { return nil },
}

// w5500PHYSetMode writes OPMDC with OPSEL set so the register, not the
// mode pins, selects the PHY mode.
func w5500PHYSetMode(p *PHY, autoneg bool, speed Speed, duplex Duplex) error {
	opmode := byte(w5500OpmodeAll)
	if !autoneg {
		opmode = w5500FixedOpmode(speed, duplex)
	}
	err := p.modifyReg(w5500RegPHYCFGR, func(v byte) byte {
		v &^= w5500OpmodeMask << w5500OpmodeShift
		return v | opmode<<w5500OpmodeShift | w5500PHYCFGROpsel
	})
	if err != nil {
		return fmt.Errorf("write PHYCFGR: %w", err)
	}
	return nil
}

func w5500FixedOpmode(speed Speed, duplex Duplex) byte {
	switch {
	case speed == Speed100M && duplex == DuplexFull:
		return 3
	case speed == Speed100M:
		return 2
	case duplex == DuplexFull:
		return 1
	default:
		return 0
	}
}

// w5500PHYReset holds PHYCFGR.RST low for a while, which restarts the PHY
func w5500PHYReset(p *PHY) error {
	v, err := p.readReg(w5500RegPHYCFGR)
	if err != nil {
		return fmt.Errorf("read PHYCFGR: %w", err)
	}
	if err := p.writeReg(w5500RegPHYCFGR, v&^w5500PHYCFGRRst); err != nil {
		return fmt.Errorf("write PHYCFGR: %w", err)
	}
	time.Sleep(w5500PHYResetPause)
	if err := p.writeReg(w5500RegPHYCFGR, v|w5500PHYCFGRRst); err != nil {
		return fmt.Errorf("write PHYCFGR: %w", err)
	}
	return nil
}
