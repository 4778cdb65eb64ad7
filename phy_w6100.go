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

const (
	w6100PHYCR0Auto = 0x00
	w6100PHYCR1Rst  = 0x01
	w6100PHYCR1Pwdn = 0x20

	w6100OpmodeShift   = 3
	w6100OpmodeMask    = 0x07
	w6100OpmodeFixed   = 0x04
	w6100PHYResetPause = 10 * time.Millisecond
)

// W6100PHY describes the internal PHY of the W6100. Its speed and duplex
// status bits read inverted compared to the W5500.
var W6100PHY = &PHYOps{
	Name:        "w6100",
	StatusReg:   w6100RegPHYSR,
	OpmodeReg:   w6100RegPHYSR,
	OpmodeShift: w6100OpmodeShift,
	OpmodeMask:  w6100OpmodeMask,

	SpeedWhenSet:    Speed10M,
	SpeedWhenClear:  Speed100M,
	DuplexWhenSet:   DuplexHalf,
	DuplexWhenClear: DuplexFull,

	FixedModes: map[byte]FixedMode{
		4: {Speed100M, DuplexFull},
		5: {Speed100M, DuplexHalf},
		6: {Speed10M, DuplexFull},
		7: {Speed10M, DuplexHalf},
	},
	AutonegEnabled: func(opmode byte) bool { return opmode&w6100OpmodeFixed == 0 },
	SetMode:        w6100PHYSetMode,
	Reset:          w6100PHYReset,
	PowerControl:   w6100PHYPowerControl,
}

func w6100PHYUnlock(p *PHY) error {
	if err := p.writeReg(w6100RegPHYLCKR, w6100PHYLCKRUnlock); err != nil {
		return fmt.Errorf("unlock PHY: %w", err)
	}
	return nil
}

func w6100PHYSetMode(p *PHY, autoneg bool, speed Speed, duplex Duplex) error {
	if err := w6100PHYUnlock(p); err != nil {
		return err
	}
	mode := byte(w6100PHYCR0Auto)
	if !autoneg {
		switch {
		case speed == Speed100M && duplex == DuplexFull:
			mode = 4
		case speed == Speed100M:
			mode = 5
		case duplex == DuplexFull:
			mode = 6
		default:
			mode = 7
		}
	}
	if err := p.writeReg(w6100RegPHYCR0, mode); err != nil {
		return fmt.Errorf("write PHYCR0: %w", err)
	}
	return nil
}

func w6100PHYReset(p *PHY) error {
	if err := w6100PHYUnlock(p); err != nil {
		return err
	}
	v, err := p.readReg(w6100RegPHYCR1)
	if err != nil {
		return fmt.Errorf("read PHYCR1: %w", err)
	}
	if err := p.writeReg(w6100RegPHYCR1, v|w6100PHYCR1Rst); err != nil {
		return fmt.Errorf("write PHYCR1: %w", err)
	}
	time.Sleep(w6100PHYResetPause)
	if err := p.writeReg(w6100RegPHYCR1, v&^w6100PHYCR1Rst); err != nil {
		return fmt.Errorf("write PHYCR1: %w", err)
	}
	return nil
}

// w6100PHYPowerControl writes PHYCR1.PWDN and waits for the PHY to come up
// when powering on.
func w6100PHYPowerControl(p *PHY, enable bool) error {
	if err := w6100PHYUnlock(p); err != nil {
		return err
	}
	err := p.modifyReg(w6100RegPHYCR1, func(v byte) byte {
		return setBits(v, w6100PHYCR1Pwdn, !enable)
	})
	if err != nil {
		return fmt.Errorf("write PHYCR1: %w", err)
	}
	if enable {
		time.Sleep(w6100PHYResetPause)
	}
	return nil
}
