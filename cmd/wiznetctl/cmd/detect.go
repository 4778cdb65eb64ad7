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
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-wiznet/detection"
	// Register the SPI detector
	_ "github.com/ZaparooProject/go-wiznet/detection/spi"
	"github.com/spf13/cobra"
)

var (
	detectPassive bool
	detectIgnore  []string
	detectTimeout time.Duration
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Find WIZnet controllers on the SPI buses",
	Long: `Enumerate the SPI ports of this host and probe each one for a W5500 or W6100.

Probing reads the chip identity registers only. Passive mode lists the
candidate ports without touching the bus.

Examples:
  wiznetctl detect
  wiznetctl detect --passive
  wiznetctl detect --ignore /dev/spidev1.0`,
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().BoolVar(&detectPassive, "passive", false, "list ports without probing them")
	detectCmd.Flags().StringSliceVar(&detectIgnore, "ignore", nil, "ports to skip, by name or alias")
	detectCmd.Flags().DurationVar(&detectTimeout, "timeout", 5*time.Second, "bound for the whole run")
}

func runDetect(cmd *cobra.Command, _ []string) error {
	opts := detection.DefaultOptions()
	opts.IgnorePaths = detectIgnore
	opts.Timeout = detectTimeout
	if detectPassive {
		opts.Mode = detection.Passive
	}

	devices, err := detection.DetectAll(cmd.Context(), opts)
	if errors.Is(err, detection.ErrNoDevicesFound) {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No controllers found")
		if verbose {
			return err
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}
	printDevices(cmd, devices)
	return nil
}

func printDevices(cmd *cobra.Command, devices []detection.DeviceInfo) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Found %d device(s)\n", len(devices))
	for i, dev := range devices {
		_, _ = fmt.Fprintf(out, "  [%d] %s\n", i, dev)
		if aliases := dev.Metadata["aliases"]; aliases != "" && verbose {
			_, _ = fmt.Fprintf(out, "      aliases: %s\n", aliases)
		}
	}
}
