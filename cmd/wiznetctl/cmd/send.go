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
	"net"
	"strconv"
	"time"

	wiznet "github.com/ZaparooProject/go-wiznet"
	"github.com/ZaparooProject/go-wiznet/eth"
	"github.com/soypat/lneto/ethernet"
	"github.com/soypat/lneto/phy"
	"github.com/spf13/cobra"
)

// minFrameSize is the shortest frame without FCS that may go on the wire.
const minFrameSize = 60

var (
	sendDst       string
	sendEtherType string
	sendPayload   string
	sendRepeat    int
	sendGap       time.Duration
	sendLinkWait  time.Duration
)

var errLinkTimeout = errors.New("link did not come up")

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Transmit test frames",
	Long: `Bring the controller up, wait for link and transmit raw Ethernet frames.

The default EtherType 0x88b5 is reserved for local experiments.

Examples:
  wiznetctl send --port /dev/spidev0.0
  wiznetctl send --port SPI0.0 --dst 02:00:00:00:00:01 --payload hello --repeat 10`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	addDeviceFlags(sendCmd)

	sendCmd.Flags().StringVar(&sendDst, "dst", "ff:ff:ff:ff:ff:ff", "destination hardware address")
	sendCmd.Flags().StringVar(&sendEtherType, "ethertype", "0x88b5", "EtherType of the frame")
	sendCmd.Flags().StringVar(&sendPayload, "payload", "wiznetctl", "frame payload")
	sendCmd.Flags().IntVarP(&sendRepeat, "repeat", "r", 1, "number of frames to send")
	sendCmd.Flags().DurationVar(&sendGap, "gap", 100*time.Millisecond, "delay between frames")
	sendCmd.Flags().DurationVar(&sendLinkWait, "link-timeout", 10*time.Second, "how long to wait for link")
}

// buildFrame lays out an Ethernet II frame, padded to the minimum size.
func buildFrame(dst, src [6]byte, etherType ethernet.Type, payload []byte) ([]byte, error) {
	const headerLen = 14
	if len(payload) > 1500 {
		return nil, fmt.Errorf("payload of %d bytes exceeds the 1500 byte MTU", len(payload))
	}
	buf := make([]byte, max(headerLen+len(payload), minFrameSize))
	efrm, err := ethernet.NewFrame(buf)
	if err != nil {
		return nil, err
	}
	*efrm.DestinationHardwareAddr() = dst
	*efrm.SourceHardwareAddr() = src
	efrm.SetEtherType(etherType)
	copy(buf[headerLen:], payload)
	return buf, nil
}

func parseHWAddr(s string) ([6]byte, error) {
	var addr [6]byte
	hw, err := net.ParseMAC(s)
	if err != nil {
		return addr, err
	}
	if len(hw) != len(addr) {
		return addr, fmt.Errorf("address %q is not a 48-bit MAC", s)
	}
	copy(addr[:], hw)
	return addr, nil
}

func parseEtherType(s string) (ethernet.Type, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid EtherType %q: %w", s, err)
	}
	et := ethernet.Type(v)
	if et.IsSize() {
		return 0, fmt.Errorf("EtherType %#04x is a length field", v)
	}
	return et, nil
}

func runSend(cmd *cobra.Command, _ []string) error {
	dst, err := parseHWAddr(sendDst)
	if err != nil {
		return fmt.Errorf("invalid destination: %w", err)
	}
	etherType, err := parseEtherType(sendEtherType)
	if err != nil {
		return err
	}

	linkUp := make(chan struct{}, 1)
	dev, err := openDevice(newLogger(cmd.ErrOrStderr()),
		eth.WithLinkHandler(func(link wiznet.Link, _ phy.LinkMode) {
			if link == wiznet.LinkUp {
				select {
				case linkUp <- struct{}{}:
				default:
				}
			}
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
	src, err := dev.driver.HardwareAddr()
	if err != nil {
		return fmt.Errorf("read hardware address: %w", err)
	}
	frame, err := buildFrame(dst, src, etherType, []byte(sendPayload))
	if err != nil {
		return err
	}

	select {
	case <-linkUp:
	case <-time.After(sendLinkWait):
		return fmt.Errorf("%w within %v", errLinkTimeout, sendLinkWait)
	case <-ctx.Done():
		return ctx.Err()
	}

	out := cmd.OutOrStdout()
	for i := range sendRepeat {
		if i > 0 {
			select {
			case <-time.After(sendGap):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := dev.driver.Transmit(frame); err != nil {
			return fmt.Errorf("transmit frame %d: %w", i+1, err)
		}
		_, _ = fmt.Fprintf(out, "sent frame %d (%d bytes) to %s\n", i+1, len(frame), formatHWAddr(dst))
	}
	return dev.driver.Stop()
}
