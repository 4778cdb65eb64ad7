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
	"context"
	"fmt"
	"log/slog"

	"github.com/soypat/lneto/ethernet"
)

// LevelTrace is below slog.LevelDebug and covers per-frame and per-register
// messages on the data path.
const LevelTrace slog.Level = slog.LevelDebug - 2

// devLogger is embedded by MAC and PHY so both log with the same helpers.
type devLogger struct {
	log *slog.Logger
}

func newDevLogger(l *slog.Logger, component, chip string) devLogger {
	if l == nil {
		l = slog.Default()
	}
	return devLogger{log: l.With(slog.String("component", component), slog.String("chip", chip))}
}

func (d *devLogger) logerr(msg string, attrs ...slog.Attr) {
	d.logattrs(slog.LevelError, msg, attrs...)
}

func (d *devLogger) warn(msg string, attrs ...slog.Attr) {
	d.logattrs(slog.LevelWarn, msg, attrs...)
}

func (d *devLogger) info(msg string, attrs ...slog.Attr) {
	d.logattrs(slog.LevelInfo, msg, attrs...)
}

func (d *devLogger) debug(msg string, attrs ...slog.Attr) {
	d.logattrs(slog.LevelDebug, msg, attrs...)
}

func (d *devLogger) trace(msg string, attrs ...slog.Attr) {
	d.logattrs(LevelTrace, msg, attrs...)
}

func (d *devLogger) tracing() bool {
	return d.log != nil && d.log.Enabled(context.Background(), LevelTrace)
}

func (d *devLogger) logattrs(level slog.Level, msg string, attrs ...slog.Attr) {
	if d.log == nil {
		return
	}
	ctx := context.Background()
	if !d.log.Enabled(ctx, level) {
		return
	}
	d.log.LogAttrs(ctx, level, msg, attrs...)
}

// traceFrame logs the Ethernet header of a frame at trace level.
func (d *devLogger) traceFrame(dir string, buf []byte) {
	efrm, err := ethernet.NewFrame(buf)
	if err != nil {
		d.trace(dir+" short frame", slog.Int("length", len(buf)))
		return
	}
	d.trace(dir+" frame",
		slog.String("dst", hwAddr(*efrm.DestinationHardwareAddr())),
		slog.String("src", hwAddr(*efrm.SourceHardwareAddr())),
		slog.String("type", fmt.Sprintf("0x%04x", uint16(efrm.EtherTypeOrSize()))),
		slog.Bool("broadcast", efrm.IsBroadcast()),
		slog.Int("length", len(buf)))
}

func hwAddr(addr [6]byte) string { return string(ethernet.AppendAddr(nil, addr)) }
