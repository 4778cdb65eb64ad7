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
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	portName   string
	busSpeed   int64
	intGPIO    int
	pollPeriod time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "wiznetctl",
	Short: "WIZnet W5500/W6100 Ethernet controller tool",
	Long: `Inspect and exercise WIZnet W5500 and W6100 SPI Ethernet controllers
running in MAC-raw mode.

Examples:
  wiznetctl detect                               # Probe every SPI port
  wiznetctl link --port /dev/spidev0.0           # Watch link changes
  wiznetctl dump --port SPI0.0 --count 10        # Print 10 received frames
  wiznetctl send --port SPI0.0 --ethertype 0x88b5 # Broadcast a test frame`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// addDeviceFlags registers the flags shared by every command that opens a controller.
func addDeviceFlags(c *cobra.Command) {
	c.Flags().StringVarP(&portName, "port", "p", "",
		"SPI port name or alias (e.g. /dev/spidev0.0, SPI0.0); empty picks the first port")
	c.Flags().Int64Var(&busSpeed, "speed", 20_000_000, "SPI clock in Hz")
	c.Flags().IntVar(&intGPIO, "int-gpio", -1,
		"GPIO number wired to the INTn pin; negative polls the receive buffer instead")
	c.Flags().DurationVar(&pollPeriod, "poll", 10*time.Millisecond,
		"receive poll period when no interrupt pin is used")
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
