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

// Package detection finds WIZnet chips attached to the host. Bus specific
// detectors register themselves from their init function; import them for
// side effects and call DetectAll.
package detection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrNoDevicesFound      = errors.New("no devices found")
	ErrUnsupportedPlatform = errors.New("detection not supported on this platform")
	ErrDetectionTimeout    = errors.New("detection timed out")
)

// Mode selects how intrusive detection may be
type Mode int

const (
	// Passive lists candidate ports without talking to them
	Passive Mode = iota
	// Safe reads identity registers only, never writes
	Safe
)

func (m Mode) String() string {
	switch m {
	case Passive:
		return "passive"
	case Safe:
		return "safe"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Options controls a detection run
type Options struct {
	// IgnorePaths lists ports to skip by name or alias
	IgnorePaths []string
	// Blocklist lists ports known to host other devices
	Blocklist []string
	// Timeout bounds the whole run
	Timeout time.Duration
	Mode    Mode
}

// DefaultOptions returns safe probing with a 5 second bound
func DefaultOptions() *Options {
	return &Options{
		Mode:      Safe,
		Timeout:   5 * time.Second,
		Blocklist: DefaultBlocklist(),
	}
}

// DeviceInfo describes a detected chip or, in passive mode, a candidate port
type DeviceInfo struct {
	Metadata  map[string]string
	Transport string
	Path      string
	Chip      string
}

func (d DeviceInfo) String() string {
	if d.Chip == "" {
		return fmt.Sprintf("%s:%s", d.Transport, d.Path)
	}
	return fmt.Sprintf("%s on %s:%s", d.Chip, d.Transport, d.Path)
}

// Detector finds chips on one kind of bus
type Detector interface {
	// Transport names the bus, e.g. "spi"
	Transport() string
	// Detect probes every port of that bus
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
}

var (
	registryMu sync.Mutex
	registry   []Detector
)

// RegisterDetector adds d to the detectors used by DetectAll
func RegisterDetector(d Detector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, d)
}

// Detectors returns the registered detectors
func Detectors() []Detector {
	registryMu.Lock()
	defer registryMu.Unlock()
	return append([]Detector(nil), registry...)
}

// DetectAll runs every registered detector. Errors from one detector do not
// stop the others; ErrNoDevicesFound is returned only when none found any.
func DetectAll(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	return detectWith(ctx, Detectors(), opts)
}

func detectWith(ctx context.Context, detectors []Detector, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var devices []DeviceInfo
	var errs []error
	for _, d := range detectors {
		found, err := d.Detect(ctx, opts)
		devices = append(devices, found...)
		if err != nil && !errors.Is(err, ErrNoDevicesFound) && !errors.Is(err, ErrUnsupportedPlatform) {
			errs = append(errs, fmt.Errorf("%s: %w", d.Transport(), err))
		}
	}
	if len(devices) == 0 {
		return nil, errors.Join(append([]error{ErrNoDevicesFound}, errs...)...)
	}
	return devices, nil
}
