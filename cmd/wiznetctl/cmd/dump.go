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
	"io"
	"strconv"
	"sync"

	"github.com/ZaparooProject/go-wiznet/eth"
	"github.com/soypat/lneto/internet/pcap"
	"github.com/spf13/cobra"
)

var dumpCount int

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print received Ethernet frames",
	Long: `Bring the controller up in MAC-raw mode and print a protocol breakdown of
every frame it delivers.

Examples:
  wiznetctl dump --port /dev/spidev0.0
  wiznetctl dump --port SPI0.0 --count 20 --int-gpio 25`,
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	addDeviceFlags(dumpCmd)

	dumpCmd.Flags().IntVarP(&dumpCount, "count", "n", 0, "stop after this many frames; 0 runs until interrupted")
}

// framePrinter formats frames with the lneto packet breakdown. Safe for use
// from the receive goroutine.
type framePrinter struct {
	w     io.Writer
	frms  []pcap.Frame
	buf   []byte
	cap   pcap.PacketBreakdown
	pfmt  pcap.Formatter
	mu    sync.Mutex
	count int
}

// print writes one line for pkt and returns the number of frames printed so far.
func (p *framePrinter) print(pkt []byte) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	buf := strconv.AppendInt(p.buf[:0], int64(p.count), 10)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(len(pkt)), 10)
	buf = append(buf, " bytes "...)

	var err error
	p.frms, err = p.cap.CaptureEthernet(p.frms[:0], pkt, 0)
	if err == nil {
		buf, err = p.pfmt.FormatFrames(buf, p.frms, pkt)
	}
	if err != nil {
		buf = append(buf, "capture error: "...)
		buf = append(buf, err.Error()...)
	}
	buf = append(buf, '\n')
	_, _ = p.w.Write(buf)
	p.buf = buf
	return p.count
}

func runDump(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	printer := &framePrinter{w: cmd.OutOrStdout()}
	dev, err := openDevice(newLogger(cmd.ErrOrStderr()),
		eth.WithFrameHandler(func(frame []byte) error {
			if n := printer.print(frame); dumpCount > 0 && n >= dumpCount {
				cancel()
			}
			return nil
		}),
	)
	if err != nil {
		return err
	}
	defer func() { _ = dev.Close() }()

	if err := dev.driver.Start(ctx); err != nil {
		return fmt.Errorf("start %s: %w", dev.chip, err)
	}
	<-ctx.Done()

	stats := dev.driver.Stats()
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%d frames received, %d dropped\n", stats.RXFrames, stats.RXDropped)
	return dev.driver.Stop()
}
