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
	"fmt"
	"time"

	wiznet "github.com/ZaparooProject/go-wiznet"
	"github.com/ZaparooProject/go-wiznet/eth"
	"github.com/ZaparooProject/go-wiznet/polling"
	"github.com/soypat/lneto/phy"
	"github.com/spf13/cobra"
)

var linkInterval time.Duration

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Watch the Ethernet link state",
	Long: `Bring the controller up and print every link change until interrupted.

Examples:
  wiznetctl link --port /dev/spidev0.0
  wiznetctl link --port SPI0.0 --interval 500ms`,
	RunE: runLink,
}

func init() {
	rootCmd.AddCommand(linkCmd)
	addDeviceFlags(linkCmd)

	linkCmd.Flags().DurationVar(&linkInterval, "interval", 2*time.Second, "link check period")
}

func runLink(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	cfg := polling.DefaultConfig()
	cfg.PollInterval = linkInterval

	dev, err := openDevice(newLogger(cmd.ErrOrStderr()),
		eth.WithMonitorConfig(cfg),
		eth.WithLinkHandler(func(link wiznet.Link, mode phy.LinkMode) {
			_, _ = fmt.Fprintln(out, formatLink(time.Now(), link, mode))
		}),
	)
	if err != nil {
		return err
	}
	defer func() { _ = dev.Close() }()

	ctx, stop := signalContext(cmd.Context())
	defer stop()
	if err := dev.driver.Start(ctx); err != nil {
		return fmt.Errorf("start %s: %w", dev.chip, err)
	}
	addr, err := dev.driver.HardwareAddr()
	if err != nil {
		return fmt.Errorf("read hardware address: %w", err)
	}
	_, _ = fmt.Fprintf(out, "%s on %s, address %s\n", dev.chip, dev.tr, formatHWAddr(addr))

	<-ctx.Done()
	return dev.driver.Stop()
}

func formatLink(now time.Time, link wiznet.Link, mode phy.LinkMode) string {
	stamp := now.Format("15:04:05.000")
	if link != wiznet.LinkUp {
		return stamp + " link down"
	}
	return stamp + " link up, " + polling.ModeName(mode)
}

func formatHWAddr(addr [6]byte) string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", addr[0], addr[1], addr[2], addr[3], addr[4], addr[5])
}
