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

// Package spi provides the SPI transport for WIZnet W5500 and W6100 chips
package spi

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	wiznet "github.com/ZaparooProject/go-wiznet"
	"github.com/ZaparooProject/go-wiznet/internal/frame"
	"golang.org/x/sync/semaphore"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	// DefaultSpeed is a clock both chips run at reliably on short wires
	DefaultSpeed = 20 * physic.MegaHertz

	// MaxSpeed is the fastest clock the W5500 is rated for
	MaxSpeed = 80 * physic.MegaHertz

	defaultLockTimeout = 50 * time.Millisecond
)

// Transport implements wiznet.Transport over a SPI connection in variable
// length data mode. Chip select frames each transaction.
type Transport struct {
	conn    spi.Conn
	port    spi.PortCloser
	sem     *semaphore.Weighted
	name    string
	maxTx   int
	timeout atomic.Int64
	closed  atomic.Bool
}

// New opens the SPI port named portName (empty for the first one) and
// connects at speed in mode 0.
func New(portName string, speed physic.Frequency) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %q: %w", portName, err)
	}

	if speed <= 0 {
		speed = DefaultSpeed
	}
	c, err := port.Connect(min(speed, MaxSpeed), spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to connect SPI port %s: %w", port, err)
	}

	t := NewFromConn(c, port.String())
	t.port = port
	return t, nil
}

// NewFromConn wraps an already configured connection. The caller keeps
// ownership of the port behind it.
func NewFromConn(c spi.Conn, name string) *Transport {
	t := &Transport{
		conn: c,
		sem:  semaphore.NewWeighted(1),
		name: name,
	}
	t.timeout.Store(int64(defaultLockTimeout))
	if l, ok := c.(conn.Limits); ok {
		t.maxTx = l.MaxTxSize()
	}
	return t
}

// SetTimeout sets how long a transaction waits for the bus
func (t *Transport) SetTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: lock timeout must be positive", wiznet.ErrInvalidArgument)
	}
	t.timeout.Store(int64(timeout))
	return nil
}

// Read implements wiznet.Transport
func (t *Transport) Read(addr uint32, dst []byte) error {
	if err := t.lock("read"); err != nil {
		return err
	}
	defer t.sem.Release(1)

	if len(dst) <= frame.InlineReadMax {
		return t.readInline(addr, dst)
	}
	return t.chunked(addr, len(dst), func(a uint32, off, n int) error {
		return t.readPooled(a, dst[off:off+n])
	})
}

// Write implements wiznet.Transport
func (t *Transport) Write(addr uint32, src []byte) error {
	if err := t.lock("write"); err != nil {
		return err
	}
	defer t.sem.Release(1)

	return t.chunked(addr, len(src), func(a uint32, off, n int) error {
		return t.write(a, src[off:off+n])
	})
}

// Close waits for the transaction in progress and releases the port
func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(t.timeout.Load()))
	defer cancel()
	if err := t.sem.Acquire(ctx, 1); err == nil {
		defer t.sem.Release(1)
	}
	if t.port == nil {
		return nil
	}
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("failed to close SPI port %s: %w", t.name, err)
	}
	return nil
}

// Type implements wiznet.Transport
func (*Transport) Type() wiznet.TransportType {
	return wiznet.TransportSPI
}

func (t *Transport) String() string {
	return t.name
}

func (t *Transport) lock(op string) error {
	if t.closed.Load() {
		return wiznet.ErrTransportClosed
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(t.timeout.Load()))
	defer cancel()
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return wiznet.NewTimeoutError(op, t.name)
	}
	if t.closed.Load() {
		t.sem.Release(1)
		return wiznet.ErrTransportClosed
	}
	return nil
}

// chunked splits a transfer that does not fit the driver's limit. The chip
// auto-increments the offset so each chunk starts where the last ended.
func (t *Transport) chunked(addr uint32, n int, fn func(a uint32, off, n int) error) error {
	limit := n
	if t.maxTx > frame.HeaderLength && t.maxTx-frame.HeaderLength < n {
		limit = t.maxTx - frame.HeaderLength
	}
	if n == 0 {
		return fn(addr, 0, 0)
	}
	for off := 0; off < n; off += limit {
		size := min(limit, n-off)
		a := frame.MakeMap(frame.Offset(addr)+uint16(off), frame.Block(addr))
		if err := fn(a, off, size); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transport) readInline(addr uint32, dst []byte) error {
	var w, r [frame.HeaderLength + frame.InlineReadMax]byte
	n := frame.HeaderLength + len(dst)
	frame.PutHeader(w[:], addr, false)
	if err := t.conn.Tx(w[:n], r[:n]); err != nil {
		return t.txError("read", wiznet.ErrTransportRead, err)
	}
	copy(dst, r[frame.HeaderLength:n])
	return nil
}

func (t *Transport) readPooled(addr uint32, dst []byte) error {
	n := frame.HeaderLength + len(dst)
	w := frame.GetBuffer(n)
	defer frame.PutBuffer(w)
	r := frame.GetBuffer(n)
	defer frame.PutBuffer(r)

	frame.PutHeader(w, addr, false)
	clear(w[frame.HeaderLength:])
	if err := t.conn.Tx(w, r); err != nil {
		return t.txError("read", wiznet.ErrTransportRead, err)
	}
	copy(dst, r[frame.HeaderLength:])
	return nil
}

func (t *Transport) write(addr uint32, src []byte) error {
	n := frame.HeaderLength + len(src)
	w := frame.GetBuffer(n)
	defer frame.PutBuffer(w)

	frame.PutHeader(w, addr, true)
	copy(w[frame.HeaderLength:], src)
	if err := t.conn.Tx(w, nil); err != nil {
		return t.txError("write", wiznet.ErrTransportWrite, err)
	}
	return nil
}

func (t *Transport) txError(op string, kind, err error) error {
	return wiznet.NewTransportError(op, t.name, errors.Join(kind, err), wiznet.ErrorTypeTransient)
}

var _ wiznet.Transport = (*Transport)(nil)
