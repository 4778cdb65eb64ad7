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

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	wiznet "github.com/ZaparooProject/go-wiznet"
	"github.com/ZaparooProject/go-wiznet/eth"
	wspi "github.com/ZaparooProject/go-wiznet/transport/spi"
	"periph.io/x/conn/v3/physic"
)

// device bundles an opened controller and the driver that owns it.
type device struct {
	chip   *wiznet.ChipOps
	driver *eth.Driver
	tr     *wspi.Transport
}

// openDevice opens the SPI port, identifies the chip and builds the driver.
// The driver is not started.
func openDevice(logger *slog.Logger, opts ...eth.Option) (*device, error) {
	tr, err := wspi.New(portName, physic.Frequency(busSpeed)*physic.Hertz)
	if err != nil {
		return nil, fmt.Errorf("open SPI port: %w", err)
	}

	chip, err := wiznet.Identify(tr)
	if err != nil {
		_ = tr.Close()
		return nil, fmt.Errorf("identify controller on %s: %w", tr, err)
	}
	logger.Info("controller identified", slog.String("port", tr.String()), slog.String("chip", chip.Name))

	macOpts := []wiznet.MACOption{wiznet.WithLogger(logger)}
	if intGPIO >= 0 {
		macOpts = append(macOpts, wiznet.WithInterruptGPIO(intGPIO))
	} else {
		macOpts = append(macOpts, wiznet.WithPollPeriod(pollPeriod))
	}
	mac, err := wiznet.NewMAC(tr, chip, macOpts...)
	if err != nil {
		_ = tr.Close()
		return nil, fmt.Errorf("create MAC: %w", err)
	}

	phyOps, err := wiznet.PHYOpsFor(chip)
	if err != nil {
		_ = mac.Close()
		return nil, err
	}
	p, err := wiznet.NewPHY(phyOps, wiznet.WithPHYLogger(logger))
	if err != nil {
		_ = mac.Close()
		return nil, fmt.Errorf("create PHY: %w", err)
	}

	opts = append([]eth.Option{eth.WithLogger(logger)}, opts...)
	driver, err := eth.New(mac, p, opts...)
	if err != nil {
		_ = mac.Close()
		return nil, fmt.Errorf("create driver: %w", err)
	}
	return &device{chip: chip, driver: driver, tr: tr}, nil
}

// Close stops the driver and releases the port.
func (d *device) Close() error {
	return d.driver.Close()
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
