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

// Package spi detects WIZnet chips on the host's SPI ports by reading
// their identity registers.
package spi

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	wiznet "github.com/ZaparooProject/go-wiznet"
	"github.com/ZaparooProject/go-wiznet/detection"
	wspi "github.com/ZaparooProject/go-wiznet/transport/spi"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// ProbeSpeed is slow enough for long jumper wires
const ProbeSpeed = 1 * physic.MegaHertz

type detector struct {
	init func() error
	refs func() []*spireg.Ref
	goos string
}

// New returns the SPI detector
func New() detection.Detector {
	return &detector{
		init: func() error {
			_, err := host.Init()
			return err
		},
		refs: spireg.All,
		goos: runtime.GOOS,
	}
}

func init() {
	detection.RegisterDetector(New())
}

func (*detector) Transport() string {
	return "spi"
}

func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	if opts == nil {
		opts = detection.DefaultOptions()
	}
	// periph only registers SPI ports through spidev
	if d.goos != "linux" {
		return nil, detection.ErrUnsupportedPlatform
	}
	if err := d.init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	refs := d.refs()
	if len(refs) == 0 {
		return nil, detection.ErrNoDevicesFound
	}

	var devices []detection.DeviceInfo
	for _, ref := range refs {
		select {
		case <-ctx.Done():
			return devices, detection.ErrDetectionTimeout
		default:
		}

		names := append([]string{ref.Name}, ref.Aliases...)
		if ignored(names, opts.IgnorePaths) || detection.IsBlocked(names, opts.Blocklist) {
			continue
		}

		info := detection.DeviceInfo{
			Transport: "spi",
			Path:      ref.Name,
			Metadata:  metadata(ref),
		}
		if opts.Mode == detection.Passive {
			info.Metadata["probed"] = "false"
			devices = append(devices, info)
			continue
		}

		ops, err := probe(ref)
		if err != nil {
			continue
		}
		info.Chip = ops.Name
		info.Metadata["probed"] = "true"
		devices = append(devices, info)
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// probe opens the port, reads the identity registers and closes it again
func probe(ref *spireg.Ref) (*wiznet.ChipOps, error) {
	port, err := ref.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ref.Name, err)
	}
	defer func() { _ = port.Close() }()

	c, err := port.Connect(ProbeSpeed, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", ref.Name, err)
	}
	tr := wspi.NewFromConn(c, ref.Name)
	return wiznet.Identify(tr)
}

func ignored(names, ignorePaths []string) bool {
	for _, name := range names {
		if detection.IsPathIgnored(name, ignorePaths) {
			return true
		}
	}
	return false
}

func metadata(ref *spireg.Ref) map[string]string {
	md := map[string]string{}
	if ref.Number >= 0 {
		md["number"] = strconv.Itoa(ref.Number)
	}
	if len(ref.Aliases) > 0 {
		md["aliases"] = strings.Join(ref.Aliases, ",")
	}
	return md
}
