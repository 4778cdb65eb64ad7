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

/*
Package wiznet drives WIZnet W5500 and W6100 SPI Ethernet controllers as plain
Ethernet MACs.

Both chips embed a TCP/IP offload engine. This package ignores it and opens
socket 0 in MAC-raw mode, so whole Ethernet frames pass between the host and
the wire and a host network stack does the rest.

The driver is split the way most Ethernet hardware is:
  - MAC: frame transmit and receive through the socket 0 ring buffers,
    hardware address, promiscuous mode and multicast filtering
  - PHY: link, speed, duplex and autonegotiation for the internal PHY
  - Mediator: the glue that both halves report to and that hands received
    frames to the stack

Chip differences live in ChipOps and PHYOps descriptors (W5500, W6100,
W5500PHY, W6100PHY), so the MAC and PHY logic is shared.

Basic Usage:

	import (
	    wiznet "github.com/ZaparooProject/go-wiznet"
	    "github.com/ZaparooProject/go-wiznet/eth"
	    "github.com/ZaparooProject/go-wiznet/transport/spi"
	)

	tr, err := spi.New("/dev/spidev0.0", spi.DefaultSpeed)
	if err != nil {
	    return err
	}
	chip, err := wiznet.Identify(tr)
	if err != nil {
	    return err
	}
	mac, err := wiznet.NewMAC(tr, chip, wiznet.WithInterruptGPIO(25))
	if err != nil {
	    return err
	}
	phyOps, _ := wiznet.PHYOpsFor(chip)
	p, err := wiznet.NewPHY(phyOps)
	if err != nil {
	    return err
	}

	drv, err := eth.New(mac, p, eth.WithFrameHandler(func(frame []byte) error {
	    return stack.Input(frame)
	}))
	if err != nil {
	    return err
	}
	defer drv.Close()
	if err := drv.Start(ctx); err != nil {
	    return err
	}

Receive:

Frames are pulled by a dedicated goroutine started by MAC.Init. It wakes on
the falling edge of the INTn pin when one is configured and on a periodic
timer otherwise, then drains every complete frame in one pass and hands each
to Mediator.StackInput.

Error Handling:

Errors wrap the sentinels declared in errors.go and can be inspected with
errors.Is:

	if errors.Is(err, wiznet.ErrTxBufferFull) {
	    // retry later
	}

Bus failures are returned as *TransportError, which records the operation
and whether a retry may help.

Thread Safety:

MAC and PHY methods may be called from any goroutine. All register traffic
is serialized by the transport.
*/
package wiznet
